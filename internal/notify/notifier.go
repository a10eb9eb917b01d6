// Package notify delivers operator alerts for market lifecycle changes.
// Alerts fan out to all configured channels (Telegram, Discord) and can be
// filtered by event type so operators receive only what they care about.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Jemiiah/Maniifold/internal/domain"
)

// Sender is the interface each notification channel must implement.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender.
	Name() string
}

// Notifier dispatches alerts to one or more Senders, filtered by event type.
// An empty allow-list lets every event through.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders. Only events
// whose type appears in events are forwarded; an empty slice allows all.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// MarketEvent formats and dispatches an alert for a market lifecycle event.
// Filtered or zero-sender configurations make this a cheap no-op, so callers
// fire it unconditionally.
func (n *Notifier) MarketEvent(ctx context.Context, ev domain.MarketEvent) error {
	if len(n.events) > 0 && !n.events[ev.Type] {
		n.logger.DebugContext(ctx, "event filtered out", slog.String("event", ev.Type))
		return nil
	}

	title, message := formatEvent(ev)
	return n.dispatch(ctx, title, message)
}

// Alert dispatches a free-form notification regardless of event filtering.
// Used for operational problems rather than lifecycle events.
func (n *Notifier) Alert(ctx context.Context, title, message string) error {
	return n.dispatch(ctx, title, message)
}

// dispatch sends to every sender, collecting failures so one broken channel
// does not block the others.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// formatEvent renders a lifecycle event as an alert title and body.
func formatEvent(ev domain.MarketEvent) (title, message string) {
	switch ev.Type {
	case domain.EventMarketCreated:
		title = "Market created on chain"
	case domain.EventMarketOnChain:
		title = "Market broadcast to ledger"
	case domain.EventMarketLocked:
		title = "Market locked"
	case domain.EventMarketResolved:
		title = fmt.Sprintf("Market resolved (option %d)", ev.WinningOption)
	default:
		title = "Market update"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "market: %s\nstatus: %s", ev.MarketID, ev.Status)
	if ev.TxID != "" {
		fmt.Fprintf(&b, "\ntx: %s", ev.TxID)
	}
	return title, b.String()
}
