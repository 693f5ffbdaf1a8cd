package cmd

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(listCmd)
}

var getCmd = &cobra.Command{
	Use:   "get <user-id>",
	Short: "Show a user record",
	Long: `Show a user record. Only the attributes readable by the acting
principal's role are returned; everything else is dropped by the guard.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPI()
		if err != nil {
			return err
		}
		view, err := client.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printJSON(view)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all user records (administrators only)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPI()
		if err != nil {
			return err
		}
		views, err := client.List(cmd.Context())
		if err != nil {
			return err
		}
		printJSON(views)
		return nil
	},
}
