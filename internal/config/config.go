package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// duration wraps time.Duration so TOML values like "30s" or "5m" decode
// directly into config fields.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Config is the root configuration for the oracle. It is populated from a
// TOML file, then overridden by MANIIFOLD_* environment variables.
type Config struct {
	Ledger   LedgerConfig   `toml:"ledger"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Worker   WorkerConfig   `toml:"worker"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Metrics  MetricsConfig  `toml:"metrics"`

	// Mode selects which components run: "worker" (lifecycle loop only),
	// "serve" (REST/WS API only) or "full" (both).
	Mode string `toml:"mode"`

	// LogLevel: debug | info | warn | error.
	LogLevel string `toml:"log_level"`
}

// LedgerConfig holds the Aleo node endpoints and transaction parameters.
type LedgerConfig struct {
	NodeURL     string `toml:"node_url"`
	ExecutorURL string `toml:"executor_url"`
	ProgramID   string `toml:"program_id"`

	// PrivateKey is the raw account key. Leave empty and set
	// EncryptedKeyPath + KeyPassword to load from an encrypted keyfile.
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`

	// Fees are in microcredits.
	CreateFee  uint64 `toml:"create_fee"`
	LockFee    uint64 `toml:"lock_fee"`
	ResolveFee uint64 `toml:"resolve_fee"`
}

// DatabaseConfig holds Postgres connection settings. DSN, when set, takes
// precedence over the individual host/port fields.
type DatabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`

	// ArchiveInterval controls how often resolved markets are exported.
	// Zero disables the archiver.
	ArchiveInterval duration `toml:"archive_interval"`
	ArchiveAfter    duration `toml:"archive_after"`
}

// WorkerConfig controls the lifecycle loop.
type WorkerConfig struct {
	Interval    duration `toml:"interval"`
	SubmitDelay duration `toml:"submit_delay"`
}

type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`

	// RateLimit is the per-client requests-per-minute cap. Zero disables
	// rate limiting.
	RateLimit int `toml:"rate_limit"`
}

type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// MetricsConfig overrides the upstream endpoints used by resolution
// strategies. Empty fields fall back to the public defaults.
type MetricsConfig struct {
	CoinGeckoURL string `toml:"coingecko_url"`
	FearGreedURL string `toml:"feargreed_url"`
	BeaconchaURL string `toml:"beaconcha_url"`
	EthRPCURL    string `toml:"eth_rpc_url"`
}

// Defaults returns a Config with sensible development defaults. Load merges
// the TOML file and environment on top of this.
func Defaults() Config {
	return Config{
		Ledger: LedgerConfig{
			NodeURL:     "http://localhost:3030",
			ExecutorURL: "http://localhost:3030",
			ProgramID:   "maniifold_market.aleo",
			CreateFee:   100_000,
			LockFee:     100_000,
			ResolveFee:  100_000,
		},
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "maniifold",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		S3: S3Config{
			Region:          "us-east-1",
			Bucket:          "maniifold-archive",
			ForcePathStyle:  true,
			ArchiveInterval: duration{0},
			ArchiveAfter:    duration{30 * 24 * time.Hour},
		},
		Worker: WorkerConfig{
			Interval:    duration{60 * time.Second},
			SubmitDelay: duration{5 * time.Second},
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        3000,
			CORSOrigins: []string{"*"},
			RateLimit:   120,
		},
		Notify: NotifyConfig{
			Events: []string{"market_locked", "market_resolved"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	"worker": true,
	"serve":  true,
	"full":   true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// needsLedger reports whether the configured mode submits transactions.
func (c *Config) needsLedger() bool {
	return c.Mode == "worker" || c.Mode == "full"
}

// Validate checks the configuration for internal consistency and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[c.Mode] {
		errs = append(errs, fmt.Sprintf("mode: %q is not one of worker|serve|full", c.Mode))
	}
	if !validLogLevels[c.LogLevel] {
		errs = append(errs, fmt.Sprintf("log_level: %q is not one of debug|info|warn|error", c.LogLevel))
	}

	if c.needsLedger() {
		if c.Ledger.NodeURL == "" {
			errs = append(errs, "ledger.node_url: required when mode runs the worker")
		}
		if c.Ledger.ProgramID == "" {
			errs = append(errs, "ledger.program_id: required when mode runs the worker")
		}
		if c.Ledger.PrivateKey == "" && c.Ledger.EncryptedKeyPath == "" {
			errs = append(errs, "ledger: private_key or encrypted_key_path required when mode runs the worker")
		}
		if c.Ledger.EncryptedKeyPath != "" && c.Ledger.PrivateKey == "" && c.Ledger.KeyPassword == "" {
			errs = append(errs, "ledger.key_password: required to decrypt encrypted_key_path")
		}
	}

	if c.Database.DSN == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database.host: required when database.dsn is unset")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.port: %d is out of range", c.Database.Port))
		}
		if c.Database.Database == "" {
			errs = append(errs, "database.database: required when database.dsn is unset")
		}
		if c.Database.User == "" {
			errs = append(errs, "database.user: required when database.dsn is unset")
		}
	}
	if c.Database.PoolMinConns > c.Database.PoolMaxConns {
		errs = append(errs, fmt.Sprintf("database: pool_min_conns (%d) exceeds pool_max_conns (%d)",
			c.Database.PoolMinConns, c.Database.PoolMaxConns))
	}

	if c.Redis.Addr == "" {
		errs = append(errs, "redis.addr: required")
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server.port: %d is out of range", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server.rate_limit: must not be negative")
		}
	}

	if c.Worker.Interval.Duration <= 0 {
		errs = append(errs, "worker.interval: must be positive")
	}
	if c.Worker.SubmitDelay.Duration < 0 {
		errs = append(errs, "worker.submit_delay: must not be negative")
	}

	if c.S3.ArchiveInterval.Duration > 0 {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3.bucket: required when archive_interval is set")
		}
		if c.S3.AccessKey == "" || c.S3.SecretKey == "" {
			errs = append(errs, "s3: access_key and secret_key required when archive_interval is set")
		}
	}

	if c.Notify.TelegramToken != "" && c.Notify.TelegramChatID == "" {
		errs = append(errs, "notify.telegram_chat_id: required when telegram_token is set")
	}

	if len(errs) > 0 {
		return errors.New("config: " + strings.Join(errs, "; "))
	}
	return nil
}
