package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventsChannel is the bus channel carrying market lifecycle events.
const EventsChannel = "markets"

// Market lifecycle event types published on EventsChannel.
const (
	EventMarketCreated  = "market_created"
	EventMarketOnChain  = "market_onchain"
	EventMarketLocked   = "market_locked"
	EventMarketResolved = "market_resolved"
	EventStatsSynced    = "stats_synced"
)

// MarketEvent describes a single lifecycle or sync occurrence for a market.
type MarketEvent struct {
	ID            string       `json:"id"`
	Type          string       `json:"type"`
	MarketID      string       `json:"market_id"`
	Status        MarketStatus `json:"status,omitempty"`
	WinningOption int          `json:"winning_option,omitempty"`
	TxID          string       `json:"tx_id,omitempty"`
	Stats         *PoolStats   `json:"stats,omitempty"`
	At            time.Time    `json:"at"`
}

// NewMarketEvent builds a MarketEvent with a fresh unique ID and the current
// timestamp.
func NewMarketEvent(eventType, marketID string) MarketEvent {
	return MarketEvent{
		ID:       uuid.New().String(),
		Type:     eventType,
		MarketID: marketID,
		At:       time.Now().UTC(),
	}
}
