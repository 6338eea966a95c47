// Package cmd implements the flowctl command tree. flowctl talks to the same
// upstream API as the BFF, holding its session in a file instead of cookies.
package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tradeflow-dev/tradeflow"
	"github.com/tradeflow-dev/tradeflow/authclient"
	"github.com/tradeflow-dev/tradeflow/gateway"
	"github.com/tradeflow-dev/tradeflow/log"
	"github.com/tradeflow-dev/tradeflow/sessionstore"
)

var (
	appLogger log.Logger

	apiURL      string
	sessionPath string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "flowctl",
	Short: "flowctl is a CLI for the tradeflow business API",
	Long:  `A command-line interface for the quotation → purchase order → delivery order → invoice flow, sharing the auth stack with the tradeflow BFF.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := zerolog.WarnLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		appLogger = log.NewZerologAdapter(level, true)

		if sessionPath == "" {
			path, err := sessionstore.DefaultSessionPath()
			if err != nil {
				return err
			}
			sessionPath = path
		}
		return nil
	},
}

// Execute runs the command tree.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// tokenClient builds the shared auth client over the session file.
func tokenClient() *authclient.TokenClient {
	return authclient.New(authclient.Options{
		BaseURL: apiURL,
		Store:   sessionstore.NewFileStore(sessionPath),
		Logger:  appLogger,
	})
}

// requireSession rejects entity commands early when no session is saved, so
// the user gets a login hint instead of a refresh failure.
func requireSession(cmd *cobra.Command) error {
	if !tokenClient().Status(cmd.Context()).IsAuthenticated {
		return fmt.Errorf("%w, run 'flowctl auth login' first", tradeflow.ErrNoSession)
	}
	return nil
}

// apiGateway builds the business-API gateway for entity commands.
func apiGateway() *gateway.Client {
	tokens := tokenClient()
	return gateway.New(gateway.Options{
		BaseURL:   apiURL,
		Tokens:    tokens,
		Refresher: authclient.NewAutoRefresher(tokens, appLogger),
		Logger:    appLogger,
	})
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:3001/api",
		"base URL of the upstream business API")
	rootCmd.PersistentFlags().StringVar(&sessionPath, "session-file", "",
		"session file (default is $HOME/.tradeflow/session.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
