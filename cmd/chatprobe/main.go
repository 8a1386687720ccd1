// chatprobe - smoke test for the chat service and the backend in front of it
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/chatprobe/internal/config"
	"github.com/ashureev/chatprobe/internal/probe"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	primaryURL     string
	backendURL     string
	bearerToken    string
	conversationID string
	userInput      string
	timeout        time.Duration
	noColor        bool
	logLevel       string
)

var rootCmd = &cobra.Command{
	Use:   "chatprobe",
	Short: "Probe the chat service and its authenticated backend",
	Long: `chatprobe calls /initialize and /chat-step on the chat service, then on the
backend that fronts it, and prints what came back.

The backend is only probed once the chat service answers correctly.
Failures are reported in the transcript; the exit code stays 0 unless the
configuration itself is invalid.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&primaryURL, "primary-url", "", "chat service base URL (env PRIMARY_URL)")
	f.StringVar(&backendURL, "backend-url", "", "backend base URL (env BACKEND_URL)")
	f.StringVar(&bearerToken, "token", "", "bearer token for the backend (env BACKEND_TOKEN)")
	f.StringVar(&conversationID, "conversation-id", "", "conversation id sent on chat-step (env PROBE_CONVERSATION_ID)")
	f.StringVar(&userInput, "input", "", "user input sent on chat-step (env PROBE_USER_INPUT)")
	f.DurationVar(&timeout, "timeout", 0, "per-request timeout, 0 disables (env PROBE_TIMEOUT)")
	f.BoolVar(&noColor, "no-color", false, "disable colored markers (env NO_COLOR)")
	f.StringVar(&logLevel, "log-level", "", "diagnostic log level on stderr (env LOG_LEVEL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	// A missing .env is fine; the environment is used as-is.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Level(),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	colored := !cfg.NoColor && (isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()))

	summary := probe.New(cfg, cmd.OutOrStdout(), colored, logger).Run(ctx)
	logger.Info("Probe finished",
		"primary_ok", summary.Primary.OK(),
		"dependent_ran", summary.DependentRan,
	)
	return nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("primary-url") {
		cfg.PrimaryURL = primaryURL
	}
	if f.Changed("backend-url") {
		cfg.BackendURL = backendURL
	}
	if f.Changed("token") {
		cfg.BearerToken = bearerToken
	}
	if f.Changed("conversation-id") {
		cfg.ConversationID = conversationID
	}
	if f.Changed("input") {
		cfg.UserInput = userInput
	}
	if f.Changed("timeout") {
		cfg.Timeout = timeout
	}
	if f.Changed("no-color") {
		cfg.NoColor = noColor
	}
	if f.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
}

