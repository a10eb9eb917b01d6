package metric

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/Jemiiah/Maniifold/internal/domain"
)

// Registry maps metric type names to strategies. It is safe for concurrent
// use. The worker holds one Registry instance for the process lifetime;
// tests inject fakes under test names.
type Registry struct {
	strategies map[string]Strategy
	mu         sync.RWMutex
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// Register adds a strategy under its own name, replacing any existing entry.
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by metric type name. It returns
// domain.ErrUnknownMetric when the name is not registered.
func (r *Registry) Get(name string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("metric %q: %w", name, domain.ErrUnknownMetric)
	}
	return s, nil
}

// List returns the names of all registered strategies in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.strategies))
	for n := range r.strategies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Endpoints holds the upstream data-provider locations for the built-in
// strategies. Zero values fall back to each provider's public endpoint.
type Endpoints struct {
	CoinGeckoURL string
	FearGreedURL string
	BeaconchaURL string
	EthRPCURL    string
}

// Builtin populates a Registry with the full built-in strategy set.
func Builtin(eps Endpoints, logger *slog.Logger) *Registry {
	r := NewRegistry()

	gecko := newCoinGeckoClient(eps.CoinGeckoURL)
	r.Register(&BTCPrice{gecko: gecko, logger: logger})
	r.Register(&ETHPrice{gecko: gecko, logger: logger})
	r.Register(&BTCDominance{gecko: gecko, logger: logger})
	r.Register(&StablecoinPeg{gecko: gecko, logger: logger})
	r.Register(NewFearGreed(eps.FearGreedURL, logger))
	r.Register(NewETHStakingRate(eps.BeaconchaURL, logger))
	r.Register(NewETHGasPrice(eps.EthRPCURL, logger))
	r.Register(&Generic{logger: logger})

	return r
}
