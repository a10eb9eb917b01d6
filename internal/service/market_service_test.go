package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/Jemiiah/Maniifold/internal/domain"
	"github.com/Jemiiah/Maniifold/internal/metric"
)

type memStore struct {
	markets map[string]domain.Market
}

func newMemStore() *memStore {
	return &memStore{markets: make(map[string]domain.Market)}
}

func (s *memStore) Create(_ context.Context, m domain.Market) error {
	if _, ok := s.markets[m.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.markets[m.ID] = m
	return nil
}

func (s *memStore) Upsert(_ context.Context, m domain.Market) error {
	existing, ok := s.markets[m.ID]
	if !ok {
		s.markets[m.ID] = m
		return nil
	}
	// Conflict policy mirrors the SQL: amend the four mutable fields only.
	existing.Deadline = m.Deadline
	existing.Threshold = m.Threshold
	existing.MetricType = m.MetricType
	existing.Description = m.Description
	existing.UpdatedAt = m.UpdatedAt
	s.markets[m.ID] = existing
	return nil
}

func (s *memStore) GetByID(_ context.Context, id string) (domain.Market, error) {
	m, ok := s.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (s *memStore) List(_ context.Context) ([]domain.Market, error) {
	var out []domain.Market
	for _, m := range s.markets {
		out = append(out, m)
	}
	return out, nil
}

func (s *memStore) ListByStatus(_ context.Context, status domain.MarketStatus) ([]domain.Market, error) {
	var out []domain.Market
	for _, m := range s.markets {
		if m.Status == status {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) SetStatus(_ context.Context, id string, status domain.MarketStatus) error {
	m, ok := s.markets[id]
	if !ok {
		return domain.ErrNotFound
	}
	m.Status = status
	s.markets[id] = m
	return nil
}

func (s *memStore) UpdateStats(_ context.Context, id string, stats domain.PoolStats) error {
	m, ok := s.markets[id]
	if !ok {
		return domain.ErrNotFound
	}
	m.TotalStaked = stats.TotalStaked
	m.OptionAStakes = stats.OptionAStakes
	m.OptionBStakes = stats.OptionBStakes
	s.markets[id] = m
	return nil
}

func (s *memStore) Count(_ context.Context) (int64, error) {
	return int64(len(s.markets)), nil
}

type memCache struct {
	entries map[string]domain.Market
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]domain.Market)}
}

func (c *memCache) Set(_ context.Context, m domain.Market) error {
	c.entries[m.ID] = m
	return nil
}

func (c *memCache) Get(_ context.Context, id string) (domain.Market, error) {
	m, ok := c.entries[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (c *memCache) Invalidate(_ context.Context, id string) error {
	delete(c.entries, id)
	return nil
}

type memBus struct {
	published [][]byte
}

func (b *memBus) Publish(_ context.Context, _ string, payload []byte) error {
	b.published = append(b.published, payload)
	return nil
}

func (b *memBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, errors.New("not implemented")
}

func (b *memBus) lastEvent(t *testing.T) domain.MarketEvent {
	t.Helper()
	if len(b.published) == 0 {
		t.Fatal("no events published")
	}
	var ev domain.MarketEvent
	if err := json.Unmarshal(b.published[len(b.published)-1], &ev); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	return ev
}

func newTestService(t *testing.T) (*MarketService, *memStore, *memCache, *memBus) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := metric.Builtin(metric.Endpoints{}, logger)
	store := newMemStore()
	cache := newMemCache()
	bus := &memBus{}
	svc := NewMarketService(store, cache, bus, reg, logger)
	svc.now = func() time.Time {
		return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	}
	return svc, store, cache, bus
}

func TestCreateMarket(t *testing.T) {
	svc, store, _, bus := newTestService(t)

	m, err := svc.CreateMarket(context.Background(), CreateParams{
		Title:     "BTC above 100k by April",
		Deadline:  time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC).Unix(),
		Threshold: 100_000,
		MetricType: "btc_price",
	})
	if err != nil {
		t.Fatalf("CreateMarket() error = %v", err)
	}

	if matched, _ := regexp.MatchString(`^\d+field$`, m.ID); !matched {
		t.Errorf("market ID %q is not field-typed", m.ID)
	}
	if m.Status != domain.StatusPending {
		t.Errorf("status = %s, want pending", m.Status)
	}
	if m.OptionA != "YES" || m.OptionB != "NO" {
		t.Errorf("default labels = %q/%q, want YES/NO", m.OptionA, m.OptionB)
	}
	if _, err := store.GetByID(context.Background(), m.ID); err != nil {
		t.Errorf("created market not in store: %v", err)
	}

	ev := bus.lastEvent(t)
	if ev.Type != domain.EventMarketCreated || ev.MarketID != m.ID {
		t.Errorf("event = %s/%s, want %s/%s", ev.Type, ev.MarketID, domain.EventMarketCreated, m.ID)
	}
}

func TestCreateMarketConflictPolicy(t *testing.T) {
	svc, store, cache, _ := newTestService(t)
	ctx := context.Background()
	deadline := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC).Unix()

	first, err := svc.CreateMarket(ctx, CreateParams{
		Title:      "ETH above 5k",
		Deadline:   deadline,
		Threshold:  5_000,
		MetricType: "eth_price",
	})
	if err != nil {
		t.Fatalf("CreateMarket() error = %v", err)
	}

	// Under the pinned clock the same title generates the same ID, so a
	// plain create now collides.
	_, err = svc.CreateMarket(ctx, CreateParams{
		Title:      "ETH above 5k",
		Deadline:   deadline,
		Threshold:  5_000,
		MetricType: "eth_price",
	})
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("create on existing ID error = %v, want ErrAlreadyExists", err)
	}

	// The worker has meanwhile taken the market on-chain and a copy sits
	// in the cache.
	if err := store.SetStatus(ctx, first.ID, domain.StatusOnChain); err != nil {
		t.Fatal(err)
	}
	cache.entries[first.ID] = store.markets[first.ID]

	later := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC).Unix()
	amended, err := svc.CreateMarket(ctx, CreateParams{
		Title:       "ETH above 5k",
		Description: "deadline extended",
		Deadline:    later,
		Threshold:   6_000,
		MetricType:  "generic",
		Upsert:      true,
	})
	if err != nil {
		t.Fatalf("CreateMarket() with upsert error = %v", err)
	}

	if amended.ID != first.ID {
		t.Fatalf("upsert created a new market %s, want %s", amended.ID, first.ID)
	}
	if amended.Deadline != later || amended.Threshold != 6_000 ||
		amended.MetricType != "generic" || amended.Description != "deadline extended" {
		t.Errorf("mutable fields not amended: %+v", amended)
	}
	if amended.Status != domain.StatusOnChain {
		t.Errorf("status = %s, want onchain left untouched", amended.Status)
	}
	if _, ok := cache.entries[first.ID]; ok {
		t.Error("stale cache entry survived the amendment")
	}
}

func TestCreateMarketValidation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	future := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC).Unix()

	tests := []struct {
		name   string
		params CreateParams
	}{
		{"empty title", CreateParams{Title: "  ", Deadline: future, Threshold: 1}},
		{"past deadline", CreateParams{Title: "t", Deadline: 100, Threshold: 1}},
		{"unknown metric", CreateParams{Title: "t", Deadline: future, Threshold: 1, MetricType: "nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateMarket(context.Background(), tt.params); err == nil {
				t.Error("CreateMarket() succeeded, want error")
			}
		})
	}
}

func TestGetMarketCacheAside(t *testing.T) {
	svc, store, cache, _ := newTestService(t)
	ctx := context.Background()

	seed := domain.Market{ID: "7field", Title: "seeded", Status: domain.StatusOnChain}
	store.markets[seed.ID] = seed

	got, err := svc.GetMarket(ctx, seed.ID)
	if err != nil {
		t.Fatalf("GetMarket() error = %v", err)
	}
	if got.Title != "seeded" {
		t.Errorf("Title = %q", got.Title)
	}
	if _, ok := cache.entries[seed.ID]; !ok {
		t.Error("cache was not back-filled after store read")
	}

	// A cached copy wins over the store.
	cached := seed
	cached.Title = "from cache"
	cache.entries[seed.ID] = cached
	got, err = svc.GetMarket(ctx, seed.ID)
	if err != nil {
		t.Fatalf("GetMarket() error = %v", err)
	}
	if got.Title != "from cache" {
		t.Errorf("Title = %q, want cached copy", got.Title)
	}
}

func TestForceLock(t *testing.T) {
	svc, store, _, bus := newTestService(t)
	ctx := context.Background()

	store.markets["1field"] = domain.Market{ID: "1field", Status: domain.StatusPending}
	store.markets["2field"] = domain.Market{ID: "2field", Status: domain.StatusOnChain}

	if err := svc.ForceLock(ctx, "1field"); err != nil {
		t.Fatalf("ForceLock(pending) error = %v", err)
	}
	if got := store.markets["1field"].Status; got != domain.StatusLocked {
		t.Errorf("status = %s, want locked", got)
	}
	if ev := bus.lastEvent(t); ev.Type != domain.EventMarketLocked {
		t.Errorf("event type = %s", ev.Type)
	}

	err := svc.ForceLock(ctx, "2field")
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("ForceLock(onchain) error = %v, want ErrInvalidTransition", err)
	}

	if err := svc.ForceLock(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("ForceLock(missing) error = %v, want ErrNotFound", err)
	}
}

func TestForceResolve(t *testing.T) {
	svc, store, _, bus := newTestService(t)
	ctx := context.Background()

	store.markets["1field"] = domain.Market{ID: "1field", Status: domain.StatusLocked}
	store.markets["2field"] = domain.Market{ID: "2field", Status: domain.StatusPending}

	if err := svc.ForceResolve(ctx, "1field", 2); err != nil {
		t.Fatalf("ForceResolve(locked) error = %v", err)
	}
	if got := store.markets["1field"].Status; got != domain.StatusResolved {
		t.Errorf("status = %s, want resolved", got)
	}
	ev := bus.lastEvent(t)
	if ev.Type != domain.EventMarketResolved || ev.WinningOption != 2 {
		t.Errorf("event = %s option %d", ev.Type, ev.WinningOption)
	}

	if err := svc.ForceResolve(ctx, "1field", 3); !errors.Is(err, domain.ErrInvalidOption) {
		t.Errorf("winning option 3 error = %v, want ErrInvalidOption", err)
	}
	if err := svc.ForceResolve(ctx, "2field", 1); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("ForceResolve(pending) error = %v, want ErrInvalidTransition", err)
	}
}

func TestListMarkets(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	store.markets["1field"] = domain.Market{ID: "1field", Status: domain.StatusPending}
	store.markets["2field"] = domain.Market{ID: "2field", Status: domain.StatusLocked}

	all, err := svc.ListMarkets(ctx, "")
	if err != nil {
		t.Fatalf("ListMarkets() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("len(all) = %d, want 2", len(all))
	}

	locked, err := svc.ListMarkets(ctx, domain.StatusLocked)
	if err != nil {
		t.Fatalf("ListMarkets(locked) error = %v", err)
	}
	if len(locked) != 1 || locked[0].ID != "2field" {
		t.Errorf("locked = %+v", locked)
	}

	if _, err := svc.ListMarkets(ctx, "bogus"); err == nil {
		t.Error("ListMarkets(bogus) succeeded, want error")
	}
}
