package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/votewise/votewise/internal/cli"
	"github.com/votewise/votewise/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "votewised",
		Short: "VoteWise daemon",
		Long:  "VoteWise daemon for serving answers about Belgian party programs and building the passage index",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.IndexCmd())
	rootCmd.AddCommand(admin.MigrateCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
