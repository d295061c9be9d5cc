package admin

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/votewise/votewise/internal/api/handlers"
	"github.com/votewise/votewise/internal/cli"
	"github.com/votewise/votewise/internal/config"
	"github.com/votewise/votewise/internal/database"
	"github.com/votewise/votewise/internal/domain"
	"github.com/votewise/votewise/internal/jobs"
	"github.com/votewise/votewise/internal/repository"
	"github.com/votewise/votewise/internal/server"
	"github.com/votewise/votewise/internal/service"
	"github.com/votewise/votewise/internal/telemetry"
)

const shutdownTimeout = 30 * time.Second

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the votewise API server.

The passage index must exist unless --watch is given, in which case an empty
index is built from the document source before the server starts.`,
		RunE: runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (default $VOTEWISE_PORT or 8080)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("watch", false, "Run the document indexing worker in the background")
	cmd.Flags().AddFlagSet(cli.PipelineFlags())

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cli.ApplyPipelineFlags(cmd.Flags(), cfg); err != nil {
		return err
	}

	shutdownTelemetry, err := initTelemetry(cfg)
	if err != nil {
		log.Printf("telemetry init failed (continuing without tracing): %v", err)
	} else {
		defer shutdownTelemetry()
	}

	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}
	watch, _ := cmd.Flags().GetBool("watch")

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

	emb := newEmbedder(cfg)
	gen := newGenerator(cfg)

	source, err := newSource(ctx, cfg, "")
	if err != nil {
		return err
	}
	idx := newIndexing(pool, cfg, source, emb, answerCache)

	indexStore := repository.NewIndexStore(pool)
	index, err := service.LoadIndex(ctx, indexStore, emb.Model(), cfg.EmbeddingDimensions)
	if errors.Is(err, domain.ErrIndexNotFound) && watch {
		log.Println("index is empty, building it before serving")
		if _, err := buildIndex(ctx, idx, false); err != nil {
			return err
		}
		index, err = service.LoadIndex(ctx, indexStore, emb.Model(), cfg.EmbeddingDimensions)
	}
	if err != nil {
		return fmt.Errorf("failed to load index (run 'votewised index' first): %w", err)
	}
	log.Printf("index loaded: %d passages, model %s, %d dimensions",
		index.PassageCount(), index.Meta().EmbeddingModel, index.Meta().Dimensions)

	retriever := service.NewRetriever(index, emb, repository.NewPassageRepository(pool))
	var answerSvc *service.AnswerService
	if answerCache != nil {
		answerSvc = service.NewAnswerServiceWithCache(retriever, gen, answerCache, pipelineConfig(cfg, gen.Model()))
	} else {
		answerSvc = service.NewAnswerService(retriever, gen, pipelineConfig(cfg, gen.Model()))
	}

	var worker *jobs.Worker
	if watch {
		docs := repository.NewDocumentRepository(pool)
		if n, err := docs.ResetStale(ctx); err != nil {
			log.Printf("failed to reset stale documents: %v", err)
		} else if n > 0 {
			log.Printf("requeued %d documents left in processing", n)
		}
		worker = jobs.NewWorker("document-indexer", idx.worker, cfg.WorkerInterval)
		go worker.Start(ctx)
		log.Println("document worker started")
	}

	var syncer handlers.DocumentSyncer
	if watch {
		syncer = idx.indexer
	}

	router := server.NewRouter(server.RouterConfig{
		APIToken:        cfg.APIToken,
		AnswerHandler:   handlers.NewAnswerHandler(answerSvc),
		DocumentHandler: handlers.NewDocumentHandler(service.NewDocumentService(repository.NewDocumentRepository(pool)), syncer),
		HealthHandler:   handlers.NewHealthHandler(index),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if worker != nil {
		worker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func initTelemetry(cfg *config.Config) (func(), error) {
	if !cfg.HasSentry() {
		return func() {}, nil
	}

	// 10% sampling in production, everything in development
	sampleRate := 0.1
	if cfg.Environment == "development" {
		sampleRate = 1.0
	}

	return telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: sampleRate,
		Debug:            cfg.Debug,
	})
}
