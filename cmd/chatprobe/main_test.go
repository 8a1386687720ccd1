package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/chatprobe/internal/config"
	"github.com/spf13/pflag"
)

// resetRootCmd restores flag defaults after a test drives the package-level command.
func resetRootCmd(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		rootCmd.Flags().VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
}

func TestApplyFlagsOnlyOverridesChanged(t *testing.T) {
	cfg := &config.Config{
		PrimaryURL:     "http://env-primary:5000",
		BackendURL:     "https://env-backend:7205",
		BearerToken:    "env-token",
		ConversationID: "test-123",
		UserInput:      "Hello",
		LogLevel:       "warn",
	}

	resetRootCmd(t)
	if err := rootCmd.Flags().Parse([]string{"--token", "flag-token", "--timeout", "2s", "--no-color"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	applyFlags(rootCmd, cfg)

	if cfg.BearerToken != "flag-token" {
		t.Errorf("Expected flag token, got %q", cfg.BearerToken)
	}
	if cfg.Timeout != 2*time.Second {
		t.Errorf("Expected 2s timeout, got %v", cfg.Timeout)
	}
	if !cfg.NoColor {
		t.Error("Expected NoColor from flag")
	}
	if cfg.PrimaryURL != "http://env-primary:5000" || cfg.ConversationID != "test-123" {
		t.Errorf("Unchanged flags overwrote config: %+v", cfg)
	}
}

func TestRunExitsCleanlyWhenPrimaryIsDown(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	t.Setenv("PRIMARY_URL", deadURL)
	t.Setenv("BACKEND_URL", deadURL)
	t.Setenv("BACKEND_TOKEN", "fake-token")
	t.Setenv("LOG_LEVEL", "error")

	resetRootCmd(t)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--no-color"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Expected nil error when the primary is down, got %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "Python API test failed:") || !strings.Contains(got, "❌ Python API has issues") {
		t.Errorf("Expected failure transcript, got:\n%s", got)
	}
	if strings.Contains(got, "Testing Backend Flow") {
		t.Errorf("Backend should not be called:\n%s", got)
	}
}

func TestRunRejectsInvalidConfiguration(t *testing.T) {
	t.Setenv("PRIMARY_URL", "http://127.0.0.1:1")
	t.Setenv("BACKEND_URL", "https://127.0.0.1:1")
	t.Setenv("BACKEND_TOKEN", "fake-token")

	resetRootCmd(t)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"--token", ""})

	err := rootCmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Fatalf("Expected invalid configuration error, got %v", err)
	}
	if strings.Contains(out.String(), "Starting debug flow test") {
		t.Errorf("Nothing should run on invalid configuration:\n%s", out.String())
	}
}
