package cmd

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aris-rag/aris/internal/config"
	"github.com/aris-rag/aris/internal/embed"
	"github.com/aris-rag/aris/internal/index"
	"github.com/aris-rag/aris/internal/llm"
	"github.com/aris-rag/aris/internal/logging"
	"github.com/aris-rag/aris/internal/qdrant"
	"github.com/aris-rag/aris/internal/search"
	"github.com/aris-rag/aris/internal/server"
	"github.com/aris-rag/aris/pkg/version"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger, cleanup, err := logging.Setup(logging.Config{
		Level:         cfg.Logging.Level,
		FilePath:      cfg.Logging.FilePath,
		WriteToStderr: true,
	})
	if err != nil {
		return err
	}
	defer cleanup()

	logger.Info("starting", slog.String("version", version.Short()), slog.String("addr", cfg.Server.Addr))

	manager := index.NewManager(buildQdrantClient(ctx, cfg), cfg.Qdrant.Collection)
	engine := search.NewEngine(manager, cfg.Search.RRFK, cfg.Search.DefaultTopK)
	registry := embed.NewRegistry(cfg.APIM, cfg.Embeddings)
	llmClient := llm.NewClient(cfg.APIM, cfg.LLM)

	srv := server.New(cfg, manager, engine, registry, llmClient).HTTPServer()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildQdrantClient resolves the dense backend once at startup: nil in
// memory mode or when the configured instance does not respond.
func buildQdrantClient(ctx context.Context, cfg *config.Config) *qdrant.Client {
	if !cfg.Qdrant.External() {
		slog.Info("dense_backend", slog.String("mode", "memory"))
		return nil
	}

	client := qdrant.NewClient(qdrant.Config{
		BaseURL: cfg.Qdrant.BaseURL(),
		APIKey:  cfg.Qdrant.APIKey,
		Timeout: time.Duration(cfg.Qdrant.TimeoutSeconds) * time.Second,
	})
	if err := client.HealthCheck(ctx); err != nil {
		slog.Warn("qdrant_unreachable_using_memory",
			slog.String("url", cfg.Qdrant.BaseURL()), slog.String("error", err.Error()))
		return nil
	}
	slog.Info("dense_backend",
		slog.String("mode", "external"), slog.String("url", cfg.Qdrant.BaseURL()))
	return client
}
