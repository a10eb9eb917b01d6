package metric

import (
	"context"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/ethclient"
)

const defaultEthRPCURL = "https://ethereum-rpc.publicnode.com"

// weiPerGwei converts a wei-denominated gas price to gwei.
const weiPerGwei = 1e9

// ETHGasPrice reports the suggested Ethereum gas price in gwei, read from an
// execution-layer JSON-RPC node.
type ETHGasPrice struct {
	rpcURL string
	logger *slog.Logger

	mu     sync.Mutex
	client *ethclient.Client
}

// NewETHGasPrice creates the eth_gas_price strategy. An empty rpcURL selects
// a public RPC endpoint. The RPC connection is established lazily on first
// fetch and reused afterwards.
func NewETHGasPrice(rpcURL string, logger *slog.Logger) *ETHGasPrice {
	if rpcURL == "" {
		rpcURL = defaultEthRPCURL
	}
	return &ETHGasPrice{rpcURL: rpcURL, logger: logger}
}

func (s *ETHGasPrice) Name() string { return "eth_gas_price" }

func (s *ETHGasPrice) FetchValue(ctx context.Context) (float64, bool) {
	client, err := s.dial(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "eth rpc dial failed",
			slog.String("url", s.rpcURL),
			slog.String("error", err.Error()),
		)
		return 0, false
	}

	price, err := client.SuggestGasPrice(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "eth gas price fetch failed", slog.String("error", err.Error()))
		// Force a fresh dial next tick in case the connection went stale.
		s.reset()
		return 0, false
	}

	gwei := new(big.Float).SetInt(price)
	value, _ := gwei.Quo(gwei, big.NewFloat(weiPerGwei)).Float64()
	return value, true
}

func (s *ETHGasPrice) dial(ctx context.Context) (*ethclient.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}
	client, err := ethclient.DialContext(ctx, s.rpcURL)
	if err != nil {
		return nil, err
	}
	s.client = client
	return client, nil
}

func (s *ETHGasPrice) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		s.client.Close()
		s.client = nil
	}
}
