package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(confirmCmd)
}

var updateCmd = &cobra.Command{
	Use:   "update <user-id> <attr=value>...",
	Short: "Update attributes of a user record",
	Long: `Update attributes of a user record. The whole write-set is rejected
if any attribute is not writable by the acting principal's role.

Examples:
  celerix-guard update 6e3f... email=b@x.com
  celerix-guard update 6e3f... groups=users,staff --actor admin --group administrators`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		attrs := make(map[string]any)
		for _, pair := range args[1:] {
			name, value, ok := strings.Cut(pair, "=")
			if !ok {
				return fmt.Errorf("invalid attribute %q, expected attr=value", pair)
			}
			if name == "groups" {
				attrs[name] = strings.Split(value, ",")
				continue
			}
			attrs[name] = value
		}

		client, err := newAPI()
		if err != nil {
			return err
		}
		if err := client.Update(cmd.Context(), args[0], attrs); err != nil {
			return err
		}
		fmt.Printf("%s user %s updated\n", color.GreenString("OK"), args[0])
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <user-id>",
	Short: "Delete a user record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPI()
		if err != nil {
			return err
		}
		if err := client.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("%s user %s deleted\n", color.GreenString("OK"), args[0])
		return nil
	},
}

var confirmCmd = &cobra.Command{
	Use:   "confirm <user-id> <key>",
	Short: "Confirm an account with the key received out of band",
	Long: `Confirm an account. The key is the digest mailed to the account's
address; it must match the record's current secret exactly. Changing the
email address rotates the secret and voids previously issued keys.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPI()
		if err != nil {
			return err
		}
		if err := client.ConfirmKey(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("%s account confirmed\n", color.GreenString("OK"))
		return nil
	},
}
