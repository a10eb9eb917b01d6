package domain

import "time"

// MarketStatus represents the lifecycle state of a market. Transitions only
// move forward: pending -> onchain -> locked -> resolved.
type MarketStatus string

const (
	// StatusPending means the market exists only as a local row; the worker
	// has not yet broadcast its create_pool execution.
	StatusPending MarketStatus = "pending"
	// StatusOnChain means a create_pool execution was accepted for broadcast.
	StatusOnChain MarketStatus = "onchain"
	// StatusLocked means a lock_pool execution was accepted; staking is over.
	StatusLocked MarketStatus = "locked"
	// StatusResolved is terminal; the winning option was submitted on-chain.
	StatusResolved MarketStatus = "resolved"
)

// rank orders statuses along the lifecycle. Unknown statuses rank below
// pending so they can never be advanced to.
func (s MarketStatus) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusOnChain:
		return 1
	case StatusLocked:
		return 2
	case StatusResolved:
		return 3
	default:
		return -1
	}
}

// Valid reports whether s is one of the four lifecycle statuses.
func (s MarketStatus) Valid() bool {
	return s.rank() >= 0
}

// CanTransitionTo reports whether moving from s to next is a legal lifecycle
// step. Only single forward steps are allowed; a status never regresses or
// skips a state.
func (s MarketStatus) CanTransitionTo(next MarketStatus) bool {
	return s.Valid() && next.Valid() && next.rank() == s.rank()+1
}

// Market is one prediction instance with two outcomes, a deadline, and a
// resolution metric. ID is the field-encoded on-ledger pool key and is
// immutable once assigned, as are all display fields, the deadline, the
// threshold, and the metric type. The stake counters mirror ledger state and
// are written only by the worker's sync phase.
type Market struct {
	ID          string       `json:"market_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	OptionA     string       `json:"option_a_label"`
	OptionB     string       `json:"option_b_label"`
	Deadline    int64        `json:"deadline"`
	Threshold   float64      `json:"threshold"`
	MetricType  string       `json:"metric_type"`
	Status      MarketStatus `json:"status"`

	TotalStaked   uint64 `json:"total_staked"`
	OptionAStakes uint64 `json:"option_a_stakes"`
	OptionBStakes uint64 `json:"option_b_stakes"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeadlinePassed reports whether the market's deadline is at or before now.
func (m Market) DeadlinePassed(now time.Time) bool {
	return now.Unix() >= m.Deadline
}

// PoolStats holds the ledger-observed aggregate stake counters for a market.
type PoolStats struct {
	TotalStaked   uint64
	OptionAStakes uint64
	OptionBStakes uint64
}

// WinningOption decides a market outcome from a metric value. Values at or
// above the threshold favor option 1 (option A); ties go to option 1.
func WinningOption(value, threshold float64) int {
	if value >= threshold {
		return 1
	}
	return 2
}
