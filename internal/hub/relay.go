package hub

import (
	"context"
	"fmt"

	"github.com/weiawesome/wes-io-chat/pkg/log"
	"github.com/weiawesome/wes-io-chat/pkg/pubsub"
)

// Relay subscribes to every room's event channel and forwards each event to
// the hub. It returns when ctx is cancelled or the subscription ends.
func Relay(ctx context.Context, sub pubsub.Subscriber, h *Hub) error {
	events, err := sub.SubscribePattern(ctx, pubsub.PatternRoomEvents)
	if err != nil {
		return fmt.Errorf("subscribe room events: %w", err)
	}
	l := log.L()
	l.Info().Str(log.FieldChannel, pubsub.PatternRoomEvents).Msg("relaying room events to websocket clients")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if event.RoomID == "" {
				continue
			}
			if err := h.BroadcastToRoom(event.RoomID, event); err != nil {
				l.Warn().Err(err).Str(log.FieldRoomID, event.RoomID).Msg("failed to broadcast room event")
			}
		}
	}
}
