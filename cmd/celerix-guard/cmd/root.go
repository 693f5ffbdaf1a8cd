// Package cmd implements the celerix-guard CLI.
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/celerix-dev/celerix-guard/pkg/policy"
	"github.com/celerix-dev/celerix-guard/pkg/sdk"
)

var (
	serverURL string
	actor     string
	groups    []string
	dataDir   string
)

var rootCmd = &cobra.Command{
	Use:   "celerix-guard",
	Short: "CLI for the Celerix Guard user service",
	Long: `celerix-guard manages user records through the guard's field-level
access-control pipeline. It talks to a running daemon when --server (or
CELERIX_GUARD_ADDR) is set, and otherwise runs the guard embedded over a
local data directory.

The acting identity is sent as-is; what it may read or write is decided
by the guard's per-field role tables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Error:"), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", os.Getenv("CELERIX_GUARD_ADDR"), "guard daemon URL (empty for embedded mode)")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", os.Getenv("CELERIX_GUARD_ACTOR"), "acting principal ID")
	rootCmd.PersistentFlags().StringSliceVar(&groups, "group", nil, "acting principal group (repeatable)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "./data", "data directory for embedded mode")
}

func newAPI() (sdk.UserAPI, error) {
	if serverURL != "" {
		return sdk.NewClient(serverURL, sdk.WithActor(actor, groups...)), nil
	}
	p := policy.Principal{ID: actor, Groups: groups, Authenticated: actor != ""}
	return sdk.Embedded(dataDir, p)
}

func printJSON(v any) {
	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(v)
		return
	}
	fmt.Println(string(bytes))
}
