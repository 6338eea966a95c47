package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var quotationCmd = &cobra.Command{
	Use:   "quotation",
	Short: "Work with quotations",
}

var quotationListCmd = &cobra.Command{
	Use:   "list",
	Short: "List quotations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(cmd); err != nil {
			return err
		}
		gw := apiGateway()
		defer gw.Close()

		quotations, err := gw.Quotations().List(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NUMBER\tCLIENT\tSTATUS\tTOTAL")
		for _, q := range quotations {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\n", q.Number, q.ClientID, q.Status, q.Total)
		}
		return w.Flush()
	},
}

var quotationConvertCmd = &cobra.Command{
	Use:   "convert <id>",
	Short: "Convert an accepted quotation into a purchase order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(cmd); err != nil {
			return err
		}
		gw := apiGateway()
		defer gw.Close()

		po, err := gw.Quotations().ConvertToOrder(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Created purchase order %s (status %s)\n", po.Number, po.Status)
		return nil
	},
}

var invoiceCmd = &cobra.Command{
	Use:   "invoice",
	Short: "Work with invoices",
}

var invoiceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List invoices",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(cmd); err != nil {
			return err
		}
		gw := apiGateway()
		defer gw.Close()

		invoices, err := gw.Invoices().List(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NUMBER\tCLIENT\tSTATUS\tAMOUNT")
		for _, inv := range invoices {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\n", inv.Number, inv.ClientID, inv.Status, inv.Amount)
		}
		return w.Flush()
	},
}

var invoiceUploadCmd = &cobra.Command{
	Use:   "upload-pdf <id> <file>",
	Short: "Attach a rendered PDF to an invoice",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(cmd); err != nil {
			return err
		}
		file, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer file.Close()

		gw := apiGateway()
		defer gw.Close()

		inv, err := gw.Invoices().UploadPDF(cmd.Context(), args[0], file.Name(), file)
		if err != nil {
			return err
		}
		fmt.Printf("Uploaded document for invoice %s\n", inv.Number)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(quotationCmd)
	quotationCmd.AddCommand(quotationListCmd)
	quotationCmd.AddCommand(quotationConvertCmd)

	rootCmd.AddCommand(invoiceCmd)
	invoiceCmd.AddCommand(invoiceListCmd)
	invoiceCmd.AddCommand(invoiceUploadCmd)
}
