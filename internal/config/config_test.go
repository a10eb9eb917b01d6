package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsValidateWithKey(t *testing.T) {
	cfg := Defaults()
	cfg.Ledger.PrivateKey = "APrivateKey1zkp8CZNn3yeCseEtxuVPbDCwSyhGW6yZKUYKfgXmcpoGPWH"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults with key should validate: %v", err)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "bogus"
	cfg.LogLevel = "loud"
	cfg.Redis.Addr = ""
	cfg.Server.Port = -1

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation failure")
	}
	for _, want := range []string{"mode:", "log_level:", "redis.addr", "server.port"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err.Error(), want)
		}
	}
}

func TestValidateLedgerCredentials(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "worker"

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "private_key or encrypted_key_path") {
		t.Fatalf("expected missing-key error, got %v", err)
	}

	// Serve mode never touches the ledger, so a missing key is fine.
	cfg.Mode = "serve"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("serve mode should not require a key: %v", err)
	}

	// Encrypted key without a password is unusable.
	cfg.Mode = "worker"
	cfg.Ledger.EncryptedKeyPath = "/etc/maniifold/key.enc"
	err = cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "key_password") {
		t.Fatalf("expected key_password error, got %v", err)
	}
}

func TestLoadTOMLAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
mode = "worker"
log_level = "debug"

[ledger]
node_url = "http://node.example:3030"
program_id = "test_market.aleo"
create_fee = 250000

[worker]
interval = "30s"
submit_delay = "2s"

[server]
cors_origins = ["https://app.example.com"]
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("MANIIFOLD_LEDGER_PRIVATE_KEY", "APrivateKey1zkp8CZNn3yeCseEtxuVPbDCwSyhGW6yZKUYKfgXmcpoGPWH")
	t.Setenv("MANIIFOLD_LEDGER_NODE_URL", "http://override.example:3030")
	t.Setenv("MANIIFOLD_SERVER_RATE_LIMIT", "60")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Mode != "worker" {
		t.Errorf("mode = %q, want worker", cfg.Mode)
	}
	if cfg.Ledger.NodeURL != "http://override.example:3030" {
		t.Errorf("env override lost: node_url = %q", cfg.Ledger.NodeURL)
	}
	if cfg.Ledger.ProgramID != "test_market.aleo" {
		t.Errorf("program_id = %q", cfg.Ledger.ProgramID)
	}
	if cfg.Ledger.CreateFee != 250_000 {
		t.Errorf("create_fee = %d, want 250000", cfg.Ledger.CreateFee)
	}
	// Untouched fee keeps its default.
	if cfg.Ledger.LockFee != 100_000 {
		t.Errorf("lock_fee = %d, want default 100000", cfg.Ledger.LockFee)
	}
	if cfg.Worker.Interval.Duration != 30*time.Second {
		t.Errorf("worker.interval = %v", cfg.Worker.Interval.Duration)
	}
	if cfg.Server.RateLimit != 60 {
		t.Errorf("server.rate_limit = %d, want 60", cfg.Server.RateLimit)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "https://app.example.com" {
		t.Errorf("cors_origins = %v", cfg.Server.CORSOrigins)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config should validate: %v", err)
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Ledger.PrivateKey = "APrivateKey1secret"
	cfg.Database.Password = "hunter2"
	cfg.Redis.Password = "redispw"
	cfg.Server.APIKey = "apikey"
	cfg.Notify.TelegramToken = "tg-token"

	red := RedactedConfig(&cfg)

	for name, got := range map[string]string{
		"ledger.private_key": red.Ledger.PrivateKey,
		"database.password":  red.Database.Password,
		"redis.password":     red.Redis.Password,
		"server.api_key":     red.Server.APIKey,
		"notify.telegram":    red.Notify.TelegramToken,
	} {
		if got != "***" {
			t.Errorf("%s not redacted: %q", name, got)
		}
	}

	// The original must be untouched.
	if cfg.Ledger.PrivateKey != "APrivateKey1secret" {
		t.Error("redaction mutated the original config")
	}

	// Mutating the redacted copy's slices must not leak back.
	red.Server.CORSOrigins[0] = "mutated"
	if cfg.Server.CORSOrigins[0] == "mutated" {
		t.Error("redacted copy shares CORS slice with original")
	}
}
