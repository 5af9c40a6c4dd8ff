// Package service coordinates the matching engine with persistence, caching,
// distributed locking and event publication. Engine state is authoritative;
// stores provide durability and caches serve cheap reads.
package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ipredict/engine/internal/domain"
)

// Event channels. The WebSocket hub subscribes to the wildcard forms.
const (
	channelMarketPrefix = "ch:market:"
	channelFillsPrefix  = "ch:fills:"
	channelDepthPrefix  = "ch:depth:"
)

// event is the envelope published on the signal bus.
type event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// publishEvent marshals and publishes an event, logging failures without
// propagating them; bus delivery is best effort.
func publishEvent(ctx context.Context, bus domain.SignalBus, logger *slog.Logger, channel, typ string, payload any) {
	if bus == nil {
		return
	}
	data, err := json.Marshal(event{Type: typ, Payload: payload})
	if err != nil {
		logger.WarnContext(ctx, "event marshal failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := bus.Publish(ctx, channel, data); err != nil {
		logger.WarnContext(ctx, "event publish failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}
