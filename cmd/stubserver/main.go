// stubserver - local stand-ins for the chat service and its backend
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/chatprobe/internal/agent"
	"github.com/ashureev/chatprobe/internal/api"
	"github.com/ashureev/chatprobe/internal/config"
	"github.com/ashureev/chatprobe/internal/store"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stubserver",
	Short: "Serve stub chat and backend services for chatprobe",
	Long: `stubserver runs two HTTP services:

  primary   POST /initialize, POST /chat-step (a scripted questionnaire)
  backend   POST /api/chat/initialize, POST /api/chat/chat-step (bearer auth,
            conversations persisted in SQLite, turns forwarded to primary)

Tokens come from STUB_TOKENS as token=user pairs. The backend serves TLS
when STUB_TLS_CERT and STUB_TLS_KEY are set.`,
	SilenceUsage: true,
	RunE:         run,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return err
	}
	stub := cfg.Stub

	repo, err := store.NewSQLite(stub.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		return err
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(cmd.Context()); err != nil {
		slog.Error("Database health check failed", "error", err)
		return err
	}
	slog.Info("Database connected", "path", stub.DBPath)

	if len(stub.Tokens) == 0 {
		slog.Warn("STUB_TOKENS is empty, every backend request will be rejected")
	}

	primary := &http.Server{
		Addr:        stub.PrimaryAddr,
		Handler:     chiMiddleware.Logger(api.NewPrimaryRouter(agent.NewQuestionnaire(agent.DefaultQuestions()))),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	svc := agent.NewService(agent.NewClient(stub.PrimaryURL, logger), repo)
	backend := &http.Server{
		Addr:        stub.BackendAddr,
		Handler:     chiMiddleware.Logger(api.NewBackendRouter(svc, stub.Tokens)),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agent.StartTTLWorker(ctx, repo, stub.TTL, agent.DefaultSweepInterval)

	errCh := make(chan error, 2)
	go func() {
		slog.Info("Primary stub listening", "addr", primary.Addr)
		errCh <- primary.ListenAndServe()
	}()
	go func() {
		if stub.TLSCert != "" {
			slog.Info("Backend stub listening", "addr", backend.Addr, "tls", true)
			errCh <- backend.ListenAndServeTLS(stub.TLSCert, stub.TLSKey)
			return
		}
		slog.Info("Backend stub listening", "addr", backend.Addr, "tls", false)
		errCh <- backend.ListenAndServe()
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			serveErr = err
		}
	}
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, srv := range []*http.Server{primary, backend} {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server forced to shutdown", "addr", srv.Addr, "error", err)
			serveErr = errors.Join(serveErr, err)
		}
	}

	if serveErr == nil {
		slog.Info("Servers stopped successfully")
	}
	return serveErr
}
