package metric

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const defaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// coinGeckoClient is a minimal client for the CoinGecko REST API, shared by
// the price, dominance, and peg strategies.
type coinGeckoClient struct {
	baseURL    string
	httpClient *http.Client
}

func newCoinGeckoClient(baseURL string) *coinGeckoClient {
	if baseURL == "" {
		baseURL = defaultCoinGeckoURL
	}
	return &coinGeckoClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *coinGeckoClient) doGet(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("coingecko: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("coingecko: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("coingecko: unexpected status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("coingecko: decode response: %w", err)
	}
	return nil
}

// simplePrice fetches the USD price for a single coin id.
func (c *coinGeckoClient) simplePrice(ctx context.Context, coinID string) (float64, error) {
	params := url.Values{}
	params.Set("ids", coinID)
	params.Set("vs_currencies", "usd")

	var out map[string]map[string]float64
	if err := c.doGet(ctx, "/simple/price?"+params.Encode(), &out); err != nil {
		return 0, err
	}

	price, ok := out[coinID]["usd"]
	if !ok {
		return 0, fmt.Errorf("coingecko: no usd price for %s in response", coinID)
	}
	return price, nil
}

// globalData mirrors the fields of /global that the dominance strategy uses.
type globalData struct {
	Data struct {
		MarketCapPercentage map[string]float64 `json:"market_cap_percentage"`
	} `json:"data"`
}

// marketCapPercentages fetches the per-coin market capitalization shares.
func (c *coinGeckoClient) marketCapPercentages(ctx context.Context) (map[string]float64, error) {
	var out globalData
	if err := c.doGet(ctx, "/global", &out); err != nil {
		return nil, err
	}
	if len(out.Data.MarketCapPercentage) == 0 {
		return nil, fmt.Errorf("coingecko: empty market cap percentages")
	}
	return out.Data.MarketCapPercentage, nil
}

// BTCPrice reports the Bitcoin spot price in USD.
type BTCPrice struct {
	gecko  *coinGeckoClient
	logger *slog.Logger
}

func (s *BTCPrice) Name() string { return "btc_price" }

func (s *BTCPrice) FetchValue(ctx context.Context) (float64, bool) {
	price, err := s.gecko.simplePrice(ctx, "bitcoin")
	if err != nil {
		s.logger.WarnContext(ctx, "btc price fetch failed", slog.String("error", err.Error()))
		return 0, false
	}
	return price, true
}

// ETHPrice reports the Ethereum spot price in USD.
type ETHPrice struct {
	gecko  *coinGeckoClient
	logger *slog.Logger
}

func (s *ETHPrice) Name() string { return "eth_price" }

func (s *ETHPrice) FetchValue(ctx context.Context) (float64, bool) {
	price, err := s.gecko.simplePrice(ctx, "ethereum")
	if err != nil {
		s.logger.WarnContext(ctx, "eth price fetch failed", slog.String("error", err.Error()))
		return 0, false
	}
	return price, true
}

// BTCDominance reports 1 when Bitcoin holds the largest market capitalization
// share, 0 otherwise.
type BTCDominance struct {
	gecko  *coinGeckoClient
	logger *slog.Logger
}

func (s *BTCDominance) Name() string { return "btc_dominance" }

func (s *BTCDominance) FetchValue(ctx context.Context) (float64, bool) {
	shares, err := s.gecko.marketCapPercentages(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "btc dominance fetch failed", slog.String("error", err.Error()))
		return 0, false
	}

	btc := shares["btc"]
	for coin, share := range shares {
		if coin != "btc" && share > btc {
			return 0, true
		}
	}
	return 1, true
}

// StablecoinPeg reports the USDT spot price in USD; a healthy peg hovers
// around 1.0.
type StablecoinPeg struct {
	gecko  *coinGeckoClient
	logger *slog.Logger
}

func (s *StablecoinPeg) Name() string { return "stablecoin_peg" }

func (s *StablecoinPeg) FetchValue(ctx context.Context) (float64, bool) {
	price, err := s.gecko.simplePrice(ctx, "tether")
	if err != nil {
		s.logger.WarnContext(ctx, "stablecoin peg fetch failed", slog.String("error", err.Error()))
		return 0, false
	}
	return price, true
}
