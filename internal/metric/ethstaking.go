package metric

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultBeaconchaURL = "https://beaconcha.in"

// ETHStakingRate reports the Ethereum staking APR percentage from the
// beaconcha.in ETH.STORE index.
type ETHStakingRate struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewETHStakingRate creates the eth_staking_rate strategy. An empty baseURL
// selects the public beaconcha.in endpoint.
func NewETHStakingRate(baseURL string, logger *slog.Logger) *ETHStakingRate {
	if baseURL == "" {
		baseURL = defaultBeaconchaURL
	}
	return &ETHStakingRate{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

func (s *ETHStakingRate) Name() string { return "eth_staking_rate" }

// ethStoreResponse mirrors the beaconcha.in ethstore payload fields we use.
type ethStoreResponse struct {
	Data struct {
		APR float64 `json:"apr"`
	} `json:"data"`
}

func (s *ETHStakingRate) FetchValue(ctx context.Context) (float64, bool) {
	apr, err := s.fetch(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "eth staking rate fetch failed", slog.String("error", err.Error()))
		return 0, false
	}
	return apr, true
}

func (s *ETHStakingRate) fetch(ctx context.Context) (float64, error) {
	endpoint := s.baseURL + "/api/v1/ethstore/latest"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("ethstore: create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("ethstore: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("ethstore: unexpected status %d: %s", resp.StatusCode, body)
	}

	var out ethStoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("ethstore: decode response: %w", err)
	}

	// The index reports a fraction; markets are quoted in percent.
	return out.Data.APR * 100, nil
}
