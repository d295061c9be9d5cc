package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

type SyncResult struct {
	Scanned   int `json:"scanned"`
	Queued    int `json:"queued"`
	Unchanged int `json:"unchanged"`
}

// SyncCmd creates the sync command.
func SyncCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Queue new and changed party programs for indexing",
		Long: `Asks the server to scan its document source. New and changed files are
queued and indexed in the background by 'votewised serve --watch'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api := NewAPIClientWithCmd(cmd)
			return runSync(cmd.Context(), api, cmd.OutOrStdout(), force, outputJSON(cmd))
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Queue unchanged documents too")

	return cmd
}

func runSync(ctx context.Context, api *APIClient, w io.Writer, force, asJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	path := "/documents/sync"
	if force {
		path += "?force=true"
	}

	resp, err := api.Post(ctx, path, nil)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	var result SyncResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse sync result: %w", err)
	}

	if asJSON {
		return printJSON(w, result)
	}

	fmt.Fprintf(w, "Scanned %d documents: %d queued, %d unchanged\n", result.Scanned, result.Queued, result.Unchanged)
	return nil
}
