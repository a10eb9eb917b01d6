package metric

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

const defaultFearGreedURL = "https://api.alternative.me/fng/"

// FearGreed reports the Crypto Fear & Greed Index (0-100).
type FearGreed struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFearGreed creates the fear_greed strategy. An empty url selects the
// public alternative.me endpoint.
func NewFearGreed(url string, logger *slog.Logger) *FearGreed {
	if url == "" {
		url = defaultFearGreedURL
	}
	return &FearGreed{
		url:        url,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

func (s *FearGreed) Name() string { return "fear_greed" }

// fngResponse mirrors the alternative.me index payload. The value arrives as
// a decimal string.
type fngResponse struct {
	Data []struct {
		Value string `json:"value"`
	} `json:"data"`
}

func (s *FearGreed) FetchValue(ctx context.Context) (float64, bool) {
	value, err := s.fetch(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "fear & greed fetch failed", slog.String("error", err.Error()))
		return 0, false
	}
	return value, true
}

func (s *FearGreed) fetch(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return 0, fmt.Errorf("fng: create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fng: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("fng: unexpected status %d: %s", resp.StatusCode, body)
	}

	var out fngResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("fng: decode response: %w", err)
	}
	if len(out.Data) == 0 {
		return 0, fmt.Errorf("fng: empty data in response")
	}

	value, err := strconv.ParseFloat(out.Data[0].Value, 64)
	if err != nil {
		return 0, fmt.Errorf("fng: parse value %q: %w", out.Data[0].Value, err)
	}
	return value, nil
}
