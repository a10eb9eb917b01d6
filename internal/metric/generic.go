package metric

import (
	"context"
	"log/slog"
)

// Generic is the manual-resolution metric. It never produces a value, so
// markets using it stay locked until an operator resolves them through the
// REST API.
type Generic struct {
	logger *slog.Logger
}

func (s *Generic) Name() string { return "generic" }

func (s *Generic) FetchValue(ctx context.Context) (float64, bool) {
	s.logger.DebugContext(ctx, "generic metric requires manual resolution")
	return 0, false
}
