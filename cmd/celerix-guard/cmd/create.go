package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	createUsername string
	createPassword string
	createEmail    string
)

func init() {
	createCmd.Flags().StringVar(&createUsername, "username", "", "username (required)")
	createCmd.Flags().StringVar(&createPassword, "password", "", "password, at least 8 characters (required)")
	createCmd.Flags().StringVar(&createEmail, "email", "", "email address (required)")
	createCmd.MarkFlagRequired("username")
	createCmd.MarkFlagRequired("password")
	createCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(createCmd)
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user record",
	Long: `Create a user record through the signup path.

Examples:
  celerix-guard create --username alice --password longenough1 --email a@x.com`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPI()
		if err != nil {
			return err
		}
		id, err := client.Create(cmd.Context(), map[string]any{
			"username": createUsername,
			"password": createPassword,
			"email":    createEmail,
		})
		if err != nil {
			return err
		}
		fmt.Printf("%s user %s created (id: %s)\n", color.GreenString("OK"), createUsername, id)
		return nil
	},
}
