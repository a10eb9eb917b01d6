package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/Jemiiah/Maniifold/internal/blob/s3"
	"github.com/Jemiiah/Maniifold/internal/cache/redis"
	"github.com/Jemiiah/Maniifold/internal/config"
	"github.com/Jemiiah/Maniifold/internal/crypto"
	"github.com/Jemiiah/Maniifold/internal/domain"
	"github.com/Jemiiah/Maniifold/internal/ledger"
	"github.com/Jemiiah/Maniifold/internal/metric"
	"github.com/Jemiiah/Maniifold/internal/notify"
	"github.com/Jemiiah/Maniifold/internal/store/postgres"
)

// marketCacheTTL bounds staleness of cached market rows. The worker writes
// directly to the store, so cached copies may lag by up to this long.
const marketCacheTTL = time.Minute

// Dependencies bundles every dependency the application modes need. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Markets     domain.MarketStore
	MarketCache domain.MarketCache
	Bus         domain.EventBus
	RateLimiter domain.RateLimiter

	// Ledger is nil in serve mode, which never submits transactions.
	Ledger *ledger.Client

	Metrics  *metric.Registry
	Notifier *notify.Notifier

	// Archiver is nil unless s3.archive_interval is configured.
	Archiver *s3blob.Archiver
}

// needsLedger returns true for modes that submit ledger transactions.
func needsLedger(mode string) bool {
	return mode == "worker" || mode == "full"
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	marketStore := postgres.NewMarketStore(pgClient.Pool())
	deps.Markets = marketStore

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.MarketCache = redis.NewMarketCache(redisClient, marketCacheTTL)
	deps.Bus = redis.NewEventBus(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)

	// --- Ledger client (only for modes that submit transactions) ---
	if needsLedger(cfg.Mode) {
		key, err := crypto.LoadKey(crypto.KeyConfig{
			RawPrivateKey:    cfg.Ledger.PrivateKey,
			EncryptedKeyPath: cfg.Ledger.EncryptedKeyPath,
			KeyPassword:      cfg.Ledger.KeyPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: ledger key: %w", err)
		}
		deps.Ledger = ledger.NewClient(ledger.ClientConfig{
			NodeURL:     cfg.Ledger.NodeURL,
			ExecutorURL: cfg.Ledger.ExecutorURL,
			ProgramID:   cfg.Ledger.ProgramID,
			PrivateKey:  key,
		})
	}

	// --- Metric strategies ---
	deps.Metrics = metric.Builtin(metric.Endpoints{
		CoinGeckoURL: cfg.Metrics.CoinGeckoURL,
		FearGreedURL: cfg.Metrics.FearGreedURL,
		BeaconchaURL: cfg.Metrics.BeaconchaURL,
		EthRPCURL:    cfg.Metrics.EthRPCURL,
	}, logger)

	// --- S3 archiver (optional) ---
	if cfg.S3.ArchiveInterval.Duration > 0 {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), marketStore, logger)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
