package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "production" {
		t.Fatalf("expected App.Env to be production, got %q", cfg.App.Env)
	}

	if cfg.Platform.GuildID != "guild-1" {
		t.Fatalf("unexpected guild id: %q", cfg.Platform.GuildID)
	}

	if got := cfg.Workflow.TicketCloseTTL; got != 3*time.Hour {
		t.Fatalf("expected default ticket close TTL 3h, got %v", got)
	}

	if got := cfg.Workflow.ReceiptWait; got != 120*time.Second {
		t.Fatalf("expected default receipt wait 120s, got %v", got)
	}

	if cfg.Ledger.Path != "orders.csv" {
		t.Fatalf("unexpected ledger path %q", cfg.Ledger.Path)
	}

	if cfg.Redis.Enabled() {
		t.Fatal("redis should be disabled without a URL")
	}
}

func TestLoad_MissingToken(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv(EnvPlatformToken); err != nil {
		t.Fatalf("failed to unset %s: %v", EnvPlatformToken, err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected missing token to return an error")
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv(EnvAppEnv, "production")
	t.Setenv(EnvPlatformToken, "token-123")
	t.Setenv(EnvGuildID, "guild-1")
	t.Setenv(EnvTicketCategoryID, "cat-ticket")
	t.Setenv(EnvCartCategoryID, "cat-cart")
	t.Setenv(EnvReceiptCategoryID, "cat-receipt")
	t.Setenv(EnvOrderCategoryID, "cat-order")
	t.Setenv(EnvPaymentLink, "https://pay.example.com/store")
	t.Setenv(EnvRedisURL, "")
}

func TestAppConfigEnvHelpers(t *testing.T) {
	devConfig := AppConfig{Env: "DEV"}
	if !devConfig.IsDev() {
		t.Fatalf("expected IsDev true for %q", devConfig.Env)
	}
	if devConfig.IsProd() {
		t.Fatalf("expected IsProd false for %q", devConfig.Env)
	}

	prodConfig := AppConfig{Env: "Production"}
	if !prodConfig.IsProd() {
		t.Fatalf("expected IsProd true for %q", prodConfig.Env)
	}
}
