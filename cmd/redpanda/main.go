// Redpanda is the knowledge-base backend: it ingests PDF documents into
// per-knowledge-base vector collections and answers questions about them
// through a retrieval-augmented pipeline.
//
// Configuration comes from an optional YAML file and REDPANDA_*
// environment variables. See internal/config for details.
//
// Usage:
//
//	# Start the server with defaults
//	redpanda serve
//
//	# Start with a config file
//	redpanda serve --config config.yaml
//
//	# Configure via environment
//	REDPANDA_SERVER_PORT=9000 redpanda serve
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/heyjiacheng/Backend-Red-Panda/internal/chunker"
	"github.com/heyjiacheng/Backend-Red-Panda/internal/config"
	"github.com/heyjiacheng/Backend-Red-Panda/internal/embeddings"
	"github.com/heyjiacheng/Backend-Red-Panda/internal/extraction"
	"github.com/heyjiacheng/Backend-Red-Panda/internal/ingest"
	"github.com/heyjiacheng/Backend-Red-Panda/internal/llm"
	"github.com/heyjiacheng/Backend-Red-Panda/internal/logging"
	"github.com/heyjiacheng/Backend-Red-Panda/internal/metastore"
	"github.com/heyjiacheng/Backend-Red-Panda/internal/rag"
	"github.com/heyjiacheng/Backend-Red-Panda/internal/server"
	"github.com/heyjiacheng/Backend-Red-Panda/internal/vectorstore"
)

// Version information (set via ldflags during build)
var (
	version = "dev"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:     "redpanda",
	Short:   "PDF knowledge-base backend with retrieval-augmented answering",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the backend HTTP server.

Examples:
  # Start with defaults
  redpanda serve

  # Start with a config file
  redpanda serve --config config.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigCh
			cancel()
		}()

		return run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run wires the full backend and blocks until ctx is cancelled.
func run(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	logger.Info("starting redpanda",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("ollama_url", cfg.Ollama.ServerURL),
	)

	meta, err := metastore.Open(cfg.Storage.DatabasePath, logger)
	if err != nil {
		return fmt.Errorf("opening metadata store: %w", err)
	}
	defer func() {
		_ = meta.Close()
	}()

	provider, err := embeddings.NewOllamaProvider(embeddings.Config{
		ServerURL: cfg.Ollama.ServerURL,
		Model:     cfg.Ollama.EmbeddingModel,
	})
	if err != nil {
		return fmt.Errorf("creating embedding provider: %w", err)
	}

	vectors, err := vectorstore.New(vectorstore.Config{Path: cfg.VectorPath}, provider, logger)
	if err != nil {
		return fmt.Errorf("opening vector store: %w", err)
	}

	chatClient, err := llm.NewClient(llm.Config{
		ServerURL: cfg.Ollama.ServerURL,
		Model:     cfg.Ollama.LLMModel,
	})
	if err != nil {
		return fmt.Errorf("creating chat client: %w", err)
	}

	cascade := extraction.NewCascade(extraction.Config{
		OCRLanguages: cfg.Extraction.OCRLanguages,
	}, logger)

	chunks, err := chunker.New(cfg.Ingestion.ChunkSize, cfg.Ingestion.ChunkOverlap)
	if err != nil {
		return fmt.Errorf("creating chunker: %w", err)
	}

	ingestSvc, err := ingest.NewService(ingest.Config{
		TempDir: cfg.Storage.TempDir,
		DocsDir: cfg.Storage.DocsDir,
	}, cascade, chunks, vectors, meta, logger)
	if err != nil {
		return fmt.Errorf("creating ingestion service: %w", err)
	}

	querySvc := rag.NewService(
		meta,
		rag.NewExpander(chatClient, cfg.Query.Expansions, logger),
		rag.NewRetriever(vectors, cfg.Query.RetrievalK, logger),
		rag.NewReranker(),
		rag.NewAssembler(cfg.Query.ContextSize),
		rag.NewGenerator(chatClient),
		rag.NewAttributor(meta, provider, cfg.Query.PreviewLength, logger),
		logger,
	)

	srv, err := server.New(ingestSvc, querySvc, meta, logger, &server.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}
