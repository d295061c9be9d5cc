package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/votewise/votewise/internal/config"
	"github.com/votewise/votewise/internal/database"
	"github.com/votewise/votewise/internal/jobs"
	"github.com/votewise/votewise/internal/repository"
	"github.com/votewise/votewise/internal/service"
)

// IndexCmd returns the index command
func IndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build or refresh the passage index",
		Long: `Scan the document source, queue new and changed party programs, and index
them synchronously. Unchanged documents are skipped unless --force is given.`,
		Example: `  votewised index
  votewised index --source data/raw/nl --force`,
		RunE: runIndex,
	}

	cmd.Flags().String("source", "", "Local directory to index instead of the configured source")
	cmd.Flags().Bool("force", false, "Re-index documents whose content did not change")
	cmd.Flags().Bool("no-migrate", false, "Skip database migrations")

	return cmd
}

// IndexSummary reports one index run.
type IndexSummary struct {
	Sync  *service.SyncResult
	Batch jobs.BatchResult
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	sourceDir, _ := cmd.Flags().GetString("source")
	force, _ := cmd.Flags().GetBool("force")

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if noMigrate, _ := cmd.Flags().GetBool("no-migrate"); !noMigrate {
		if err := database.Migrate(cfg.DatabaseURL, database.DefaultMigrationsURL); err != nil {
			return err
		}
	}

	answerCache, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	if answerCache != nil {
		defer answerCache.Close()
	}

	source, err := newSource(ctx, cfg, sourceDir)
	if err != nil {
		return err
	}

	if n, err := repository.NewDocumentRepository(pool).ResetStale(ctx); err != nil {
		return fmt.Errorf("failed to reset stale documents: %w", err)
	} else if n > 0 {
		log.Printf("requeued %d documents left in processing", n)
	}

	summary, err := buildIndex(ctx, newIndexing(pool, cfg, source, newEmbedder(cfg), answerCache), force)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scanned %d documents: %d queued, %d unchanged\n",
		summary.Sync.Scanned, summary.Sync.Queued, summary.Sync.Unchanged)
	fmt.Fprintf(out, "Indexed %d documents (%d passages)", summary.Batch.Indexed, summary.Batch.Passages)
	if summary.Batch.Failed > 0 {
		fmt.Fprintf(out, ", %d failed", summary.Batch.Failed)
	}
	fmt.Fprintln(out)

	if summary.Batch.Failed > 0 {
		return fmt.Errorf("%d documents failed to index (see 'votewise documents')", summary.Batch.Failed)
	}
	return nil
}

// buildIndex syncs the source and drains the pending queue.
func buildIndex(ctx context.Context, idx indexing, force bool) (IndexSummary, error) {
	syncResult, err := idx.indexer.Sync(ctx, force)
	if err != nil {
		return IndexSummary{}, fmt.Errorf("failed to scan documents: %w", err)
	}
	log.Printf("sync: %d scanned, %d queued, %d unchanged", syncResult.Scanned, syncResult.Queued, syncResult.Unchanged)

	batch, err := idx.worker.Drain(ctx)
	if err != nil {
		return IndexSummary{Sync: syncResult, Batch: batch}, fmt.Errorf("failed to index documents: %w", err)
	}
	return IndexSummary{Sync: syncResult, Batch: batch}, nil
}
