package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MANIIFOLD_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known MANIIFOLD_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Ledger ──
	setStr(&cfg.Ledger.NodeURL, "MANIIFOLD_LEDGER_NODE_URL")
	setStr(&cfg.Ledger.ExecutorURL, "MANIIFOLD_LEDGER_EXECUTOR_URL")
	setStr(&cfg.Ledger.ProgramID, "MANIIFOLD_LEDGER_PROGRAM_ID")
	setStr(&cfg.Ledger.PrivateKey, "MANIIFOLD_LEDGER_PRIVATE_KEY")
	setStr(&cfg.Ledger.EncryptedKeyPath, "MANIIFOLD_LEDGER_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Ledger.KeyPassword, "MANIIFOLD_LEDGER_KEY_PASSWORD")
	setUint64(&cfg.Ledger.CreateFee, "MANIIFOLD_LEDGER_CREATE_FEE")
	setUint64(&cfg.Ledger.LockFee, "MANIIFOLD_LEDGER_LOCK_FEE")
	setUint64(&cfg.Ledger.ResolveFee, "MANIIFOLD_LEDGER_RESOLVE_FEE")

	// ── Database ──
	setStr(&cfg.Database.DSN, "MANIIFOLD_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Database.Host, "MANIIFOLD_DATABASE_HOST")
	setInt(&cfg.Database.Port, "MANIIFOLD_DATABASE_PORT")
	setStr(&cfg.Database.Database, "MANIIFOLD_DATABASE_NAME")
	setStr(&cfg.Database.User, "MANIIFOLD_DATABASE_USER")
	setStr(&cfg.Database.Password, "MANIIFOLD_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "MANIIFOLD_DATABASE_SSL_MODE")
	setInt(&cfg.Database.PoolMaxConns, "MANIIFOLD_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "MANIIFOLD_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "MANIIFOLD_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "MANIIFOLD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MANIIFOLD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MANIIFOLD_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MANIIFOLD_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MANIIFOLD_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MANIIFOLD_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "MANIIFOLD_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MANIIFOLD_S3_REGION")
	setStr(&cfg.S3.Bucket, "MANIIFOLD_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "MANIIFOLD_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MANIIFOLD_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "MANIIFOLD_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "MANIIFOLD_S3_FORCE_PATH_STYLE")
	setDuration(&cfg.S3.ArchiveInterval, "MANIIFOLD_S3_ARCHIVE_INTERVAL")
	setDuration(&cfg.S3.ArchiveAfter, "MANIIFOLD_S3_ARCHIVE_AFTER")

	// ── Worker ──
	setDuration(&cfg.Worker.Interval, "MANIIFOLD_WORKER_INTERVAL")
	setDuration(&cfg.Worker.SubmitDelay, "MANIIFOLD_WORKER_SUBMIT_DELAY")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "MANIIFOLD_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "MANIIFOLD_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "MANIIFOLD_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "MANIIFOLD_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "MANIIFOLD_SERVER_RATE_LIMIT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "MANIIFOLD_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "MANIIFOLD_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "MANIIFOLD_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "MANIIFOLD_NOTIFY_EVENTS")

	// ── Metrics ──
	setStr(&cfg.Metrics.CoinGeckoURL, "MANIIFOLD_METRICS_COINGECKO_URL")
	setStr(&cfg.Metrics.FearGreedURL, "MANIIFOLD_METRICS_FEARGREED_URL")
	setStr(&cfg.Metrics.BeaconchaURL, "MANIIFOLD_METRICS_BEACONCHA_URL")
	setStr(&cfg.Metrics.EthRPCURL, "MANIIFOLD_METRICS_ETH_RPC_URL")

	// ── Top-level ──
	setStr(&cfg.Mode, "MANIIFOLD_MODE")
	setStr(&cfg.LogLevel, "MANIIFOLD_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
