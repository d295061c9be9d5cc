package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/votewise/votewise/internal/cli"
	"github.com/votewise/votewise/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "votewise",
		Short: "VoteWise CLI - ask questions about Belgian party programs",
		Long: `VoteWise CLI asks a running votewised server questions about Belgian party
programs and prints the synthesized answer with the passages it came from.

Environment variables:
  VOTEWISE_API_URL     API base URL (default: http://localhost:8080)
  VOTEWISE_API_TOKEN   Bearer token, when the server requires one`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-token", "", "API token (overrides env)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.DocumentsCmd())
	rootCmd.AddCommand(client.SyncCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
