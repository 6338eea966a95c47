package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tradeflow-dev/tradeflow/dto"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the flowctl session",
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the API and save the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		tokens := tokenClient()

		if tokens.Status(cmd.Context()).IsAuthenticated {
			fmt.Print("Already logged in. Re-login? (yes/no): ")
			reader := bufio.NewReader(os.Stdin)
			confirm, _ := reader.ReadString('\n')
			if strings.TrimSpace(strings.ToLower(confirm)) != "yes" {
				fmt.Println("Login cancelled.")
				return nil
			}
		}

		fmt.Print("Enter email: ")
		reader := bufio.NewReader(os.Stdin)
		email, _ := reader.ReadString('\n')
		email = strings.TrimSpace(email)

		fmt.Print("Enter password: ")
		bytePassword, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}

		result := tokens.Login(cmd.Context(), dto.LoginRequest{
			Email:    email,
			Password: string(bytePassword),
		})
		if !result.Success {
			return fmt.Errorf("login failed: %s", result.Error)
		}

		fmt.Println("Login successful. Session saved.")
		if result.User != nil {
			fmt.Printf("Logged in as: %s (ID: %s)\n", result.User.Email, result.User.ID)
		}
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and clear the saved session",
	RunE: func(cmd *cobra.Command, args []string) error {
		tokens := tokenClient()
		if !tokens.Status(cmd.Context()).IsAuthenticated {
			fmt.Println("Not logged in.")
			return nil
		}

		result := tokens.Logout(cmd.Context())
		if !result.APICallSuccessful {
			fmt.Fprintln(os.Stderr, "Server logout failed or timed out; local session cleared anyway.")
		}
		fmt.Println("Logged out.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a session is active",
	RunE: func(cmd *cobra.Command, args []string) error {
		status := tokenClient().Status(cmd.Context())
		if status.IsAuthenticated {
			fmt.Println("Logged in.")
		} else {
			fmt.Println("Not logged in.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(statusCmd)
}
