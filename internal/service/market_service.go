// Package service implements the application operations exposed over the
// REST API: market creation, reads, and the manual lifecycle overrides.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Jemiiah/Maniifold/internal/domain"
	"github.com/Jemiiah/Maniifold/internal/metric"
)

// CreateParams carries the fields needed to create a draft market. Optional
// labels default to YES/NO and the metric type defaults to generic (manual
// resolution).
type CreateParams struct {
	Title       string
	Description string
	OptionA     string
	OptionB     string
	Deadline    int64
	Threshold   float64
	MetricType  string

	// Upsert selects the conflict policy. When the market ID already
	// exists a plain create fails with ErrAlreadyExists; with Upsert set
	// the existing row's deadline, threshold, metric type, and description
	// are amended instead. Status and stake counters are never touched.
	Upsert bool
}

// MarketService handles market reads and writes for the API layer. It
// touches the store, cache, and event bus only; ledger submissions are the
// worker's job.
type MarketService struct {
	markets domain.MarketStore
	cache   domain.MarketCache
	bus     domain.EventBus
	metrics *metric.Registry
	logger  *slog.Logger

	now func() time.Time
}

// NewMarketService creates a MarketService with all required dependencies.
func NewMarketService(
	markets domain.MarketStore,
	cache domain.MarketCache,
	bus domain.EventBus,
	metrics *metric.Registry,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		markets: markets,
		cache:   cache,
		bus:     bus,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// CreateMarket validates the parameters, assigns a market ID derived from
// the title, and inserts a pending row for the worker to pick up. With the
// Upsert policy a colliding ID amends the existing market's mutable fields
// instead of failing. The stored market is returned.
func (s *MarketService) CreateMarket(ctx context.Context, p CreateParams) (domain.Market, error) {
	if strings.TrimSpace(p.Title) == "" {
		return domain.Market{}, fmt.Errorf("market_service: title is required: %w", domain.ErrInvalidInput)
	}
	if p.Deadline <= s.now().Unix() {
		return domain.Market{}, fmt.Errorf("market_service: deadline must be in the future: %w", domain.ErrInvalidInput)
	}
	if p.MetricType == "" {
		p.MetricType = "generic"
	}
	if _, err := s.metrics.Get(p.MetricType); err != nil {
		return domain.Market{}, fmt.Errorf("market_service: metric %q: %w", p.MetricType, err)
	}
	if p.OptionA == "" {
		p.OptionA = "YES"
	}
	if p.OptionB == "" {
		p.OptionB = "NO"
	}

	now := s.now().UTC()
	m := domain.Market{
		ID:          generateMarketID(p.Title, now),
		Title:       p.Title,
		Description: p.Description,
		OptionA:     p.OptionA,
		OptionB:     p.OptionB,
		Deadline:    p.Deadline,
		Threshold:   p.Threshold,
		MetricType:  p.MetricType,
		Status:      domain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if p.Upsert {
		if err := s.markets.Upsert(ctx, m); err != nil {
			return domain.Market{}, fmt.Errorf("market_service: upsert: %w", err)
		}
		// The row may have existed; return what the store actually holds
		// and drop any cached copy of the pre-amendment market.
		stored, err := s.markets.GetByID(ctx, m.ID)
		if err != nil {
			return domain.Market{}, fmt.Errorf("market_service: upsert read back: %w", err)
		}
		m = stored
		s.invalidate(ctx, m.ID)
	} else if err := s.markets.Create(ctx, m); err != nil {
		return domain.Market{}, fmt.Errorf("market_service: create: %w", err)
	}

	s.publishEvent(ctx, domain.EventMarketCreated, m.ID, func(ev *domain.MarketEvent) {
		ev.Status = m.Status
	})

	s.logger.InfoContext(ctx, "market created",
		slog.String("market_id", m.ID),
		slog.String("metric", m.MetricType),
		slog.Int64("deadline", m.Deadline),
	)
	return m, nil
}

// GetMarket retrieves a market by ID, checking the cache first and falling
// back to the persistent store on a miss.
func (s *MarketService) GetMarket(ctx context.Context, id string) (domain.Market, error) {
	m, err := s.cache.Get(ctx, id)
	if err == nil {
		return m, nil
	}

	m, err = s.markets.GetByID(ctx, id)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: get by id %q: %w", id, err)
	}

	// Back-fill the cache; log but do not fail on cache write errors.
	if cacheErr := s.cache.Set(ctx, m); cacheErr != nil {
		s.logger.WarnContext(ctx, "cache set failed",
			slog.String("market_id", id),
			slog.String("error", cacheErr.Error()),
		)
	}
	return m, nil
}

// ListMarkets returns every market, or only those in the given status when
// status is non-empty.
func (s *MarketService) ListMarkets(ctx context.Context, status domain.MarketStatus) ([]domain.Market, error) {
	if status == "" {
		markets, err := s.markets.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("market_service: list: %w", err)
		}
		return markets, nil
	}
	if !status.Valid() {
		return nil, fmt.Errorf("market_service: unknown status %q: %w", status, domain.ErrInvalidInput)
	}
	markets, err := s.markets.ListByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("market_service: list by status: %w", err)
	}
	return markets, nil
}

// Count returns the total number of markets.
func (s *MarketService) Count(ctx context.Context) (int64, error) {
	count, err := s.markets.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("market_service: count: %w", err)
	}
	return count, nil
}

// ForceLock manually locks a market that is still pending, taking it off the
// worker's broadcast path. Markets in any other status return
// ErrInvalidTransition.
func (s *MarketService) ForceLock(ctx context.Context, id string) error {
	m, err := s.markets.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("market_service: force lock %q: %w", id, err)
	}
	if m.Status != domain.StatusPending {
		return fmt.Errorf("market_service: force lock %q from %s: %w", id, m.Status, domain.ErrInvalidTransition)
	}

	if err := s.markets.SetStatus(ctx, id, domain.StatusLocked); err != nil {
		return fmt.Errorf("market_service: force lock %q: %w", id, err)
	}
	s.invalidate(ctx, id)

	s.publishEvent(ctx, domain.EventMarketLocked, id, func(ev *domain.MarketEvent) {
		ev.Status = domain.StatusLocked
	})

	s.logger.InfoContext(ctx, "market locked manually", slog.String("market_id", id))
	return nil
}

// ForceResolve manually resolves a locked market with the given winning
// option. Intended for generic (manual) markets; winningOption must be 1
// or 2.
func (s *MarketService) ForceResolve(ctx context.Context, id string, winningOption int) error {
	if winningOption != 1 && winningOption != 2 {
		return fmt.Errorf("market_service: winning option %d: %w", winningOption, domain.ErrInvalidOption)
	}

	m, err := s.markets.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("market_service: force resolve %q: %w", id, err)
	}
	if m.Status != domain.StatusLocked {
		return fmt.Errorf("market_service: force resolve %q from %s: %w", id, m.Status, domain.ErrInvalidTransition)
	}

	if err := s.markets.SetStatus(ctx, id, domain.StatusResolved); err != nil {
		return fmt.Errorf("market_service: force resolve %q: %w", id, err)
	}
	s.invalidate(ctx, id)

	s.publishEvent(ctx, domain.EventMarketResolved, id, func(ev *domain.MarketEvent) {
		ev.Status = domain.StatusResolved
		ev.WinningOption = winningOption
	})

	s.logger.InfoContext(ctx, "market resolved manually",
		slog.String("market_id", id),
		slog.Int("winning_option", winningOption),
	)
	return nil
}

// MetricTypes returns the registered metric strategy names.
func (s *MarketService) MetricTypes() []string {
	return s.metrics.List()
}

// invalidate drops the cached copy of a market after a write. Cache errors
// are non-fatal; the entry expires on its own.
func (s *MarketService) invalidate(ctx context.Context, id string) {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "cache invalidate failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
	}
}

// publishEvent emits a lifecycle event on the markets channel. Publish
// failures are logged and swallowed so event delivery never blocks a write
// that already committed.
func (s *MarketService) publishEvent(ctx context.Context, eventType, marketID string, fill func(*domain.MarketEvent)) {
	ev := domain.NewMarketEvent(eventType, marketID)
	if fill != nil {
		fill(&ev)
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		s.logger.ErrorContext(ctx, "event marshal failed", slog.String("error", err.Error()))
		return
	}
	if err := s.bus.Publish(ctx, domain.EventsChannel, payload); err != nil {
		s.logger.WarnContext(ctx, "event publish failed",
			slog.String("event", eventType),
			slog.String("error", err.Error()),
		)
	}
}

// generateMarketID derives a field-typed pool key from the title, salted
// with the creation time so identical titles get distinct markets.
func generateMarketID(title string, now time.Time) string {
	var hash int32
	for _, r := range title {
		hash = hash*31 + int32(r)
	}
	if hash < 0 {
		hash = -hash
	}
	return fmt.Sprintf("%dfield", int64(hash)+now.UnixMilli())
}
