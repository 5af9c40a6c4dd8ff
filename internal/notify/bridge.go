package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ipredict/engine/internal/domain"
)

// busEvent mirrors the envelope published by the service layer.
type busEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Bridge subscribes to market lifecycle events on the signal bus and forwards
// them to the notifier until the context is cancelled. It runs as a
// fire-and-forget consumer: malformed or unknown events are skipped.
func Bridge(ctx context.Context, bus domain.SignalBus, notifier *Notifier, logger *slog.Logger) error {
	msgCh, err := bus.Subscribe(ctx, "ch:market:*")
	if err != nil {
		return fmt.Errorf("notify: subscribe: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgCh:
			if !ok {
				return nil
			}
			forward(ctx, notifier, logger, msg.Payload)
		}
	}
}

func forward(ctx context.Context, notifier *Notifier, logger *slog.Logger, data []byte) {
	var ev busEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return
	}

	var market domain.Market
	if err := json.Unmarshal(ev.Payload, &market); err != nil {
		return
	}

	var title, message string
	switch ev.Type {
	case "market_created":
		title = "Market created"
		message = fmt.Sprintf("%s (%s) by %s", market.Name, market.ID, market.Creator)
	case "market_resolved":
		title = "Market resolved"
		message = fmt.Sprintf("%s (%s) resolved %s", market.Name, market.ID, market.Resolution)
	default:
		return
	}

	if err := notifier.Notify(ctx, ev.Type, title, message); err != nil {
		logger.WarnContext(ctx, "notification delivery failed",
			slog.String("event", ev.Type),
			slog.String("error", err.Error()),
		)
	}
}
