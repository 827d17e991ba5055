package service

import (
	"context"
	"time"

	"github.com/weiawesome/wes-io-chat/pkg/log"
	"github.com/weiawesome/wes-io-chat/pkg/pubsub"
)

const publishTimeout = 2 * time.Second

// publishRoomEvent notifies realtime subscribers of a room change. Failures
// are logged and never fail the mutation.
func publishRoomEvent(ctx context.Context, pub pubsub.Publisher, eventType, roomID string, payload interface{}) {
	if pub == nil {
		return
	}
	l := log.Ctx(ctx)

	event, err := pubsub.NewEvent(eventType, roomID, payload)
	if err != nil {
		l.Warn().Err(err).Str("event_type", eventType).Msg("failed to build room event")
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	channel := pubsub.RoomEventsChannel(roomID)
	if err := pub.Publish(pubCtx, channel, event); err != nil {
		l.Warn().Err(err).Str(log.FieldChannel, channel).Str("event_type", eventType).Msg("failed to publish room event")
	}
}
