// Package metric provides the pluggable real-world data sources used to
// resolve markets, and the registry that maps metric type names to them.
package metric

import "context"

// Strategy is one real-world data source. FetchValue returns the current
// metric value, or ok=false when no resolvable value exists yet: either the
// upstream fetch failed (transient, retried next tick) or the metric is
// resolved manually by an operator. Implementations never return an error;
// they log the reason for an unavailable value instead. Fetches are fresh on
// every call, with no cross-tick caching.
type Strategy interface {
	Name() string
	FetchValue(ctx context.Context) (value float64, ok bool)
}
