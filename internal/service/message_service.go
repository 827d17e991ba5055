package service

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/weiawesome/wes-io-chat/internal/audit"
	"github.com/weiawesome/wes-io-chat/internal/cache"
	"github.com/weiawesome/wes-io-chat/internal/domain"
	"github.com/weiawesome/wes-io-chat/internal/idgen"
	"github.com/weiawesome/wes-io-chat/internal/observability/metrics"
	"github.com/weiawesome/wes-io-chat/internal/push"
	"github.com/weiawesome/wes-io-chat/internal/repository"
	"github.com/weiawesome/wes-io-chat/pkg/log"
	"github.com/weiawesome/wes-io-chat/pkg/pubsub"
)

const (
	defaultMaxMessageLength    = 2000
	defaultMessageLimit        = 50
	defaultMaxMessageListLimit = 100
)

// MessageConfig bounds message content and listing.
type MessageConfig struct {
	MaxLength    int
	DefaultLimit int
	MaxLimit     int
}

type messageServiceImpl struct {
	tx         repository.Transactor
	messages   repository.MessageRepository
	rooms      repository.RoomRepository
	users      repository.UserRepository
	cache      cache.RoomCache
	publisher  pubsub.Publisher
	dispatcher Dispatcher
	ids        idgen.Generator
	cfg        MessageConfig
	opts       options
}

// NewMessageService creates a new message service. publisher may be nil.
func NewMessageService(
	tx repository.Transactor,
	messages repository.MessageRepository,
	rooms repository.RoomRepository,
	users repository.UserRepository,
	roomCache cache.RoomCache,
	publisher pubsub.Publisher,
	dispatcher Dispatcher,
	ids idgen.Generator,
	cfg MessageConfig,
	opts ...Option,
) MessageService {
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = defaultMaxMessageLength
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = defaultMessageLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = defaultMaxMessageListLimit
	}
	if roomCache == nil {
		roomCache = cache.NewNoopRoomCache()
	}
	return &messageServiceImpl{
		tx:         tx,
		messages:   messages,
		rooms:      rooms,
		users:      users,
		cache:      roomCache,
		publisher:  publisher,
		dispatcher: dispatcher,
		ids:        ids,
		cfg:        cfg,
		opts:       buildOptions(opts),
	}
}

// Send stores a message, bumps the room's activity time and notifies every
// other participant that has a push token.
func (s *messageServiceImpl) Send(ctx context.Context, req domain.SendMessageRequest) (*domain.Message, error) {
	if utf8.RuneCountInString(req.Content) > s.cfg.MaxLength {
		return nil, ErrMessageTooLong
	}

	messageID, err := s.ids.Generate()
	if err != nil {
		return nil, err
	}

	now := domain.FromMillis(domain.ToMillis(s.opts.now()))
	msg := &domain.Message{
		ID:         messageID,
		ChatRoomID: req.ChatRoomID,
		SenderID:   req.SenderID,
		SenderName: req.SenderName,
		Content:    req.Content,
		CreatedAt:  now,
	}

	var tokens []string
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		// Touch the room first so a missing room fails before anything is
		// written to a store outside the transaction.
		if err := s.rooms.TouchLastMessage(ctx, req.ChatRoomID, domain.ToMillis(now)); err != nil {
			if errors.Is(err, repository.ErrRoomNotFound) {
				return ErrRoomNotFound
			}
			return err
		}
		if err := s.messages.Create(ctx, msg); err != nil {
			return err
		}

		room, err := s.rooms.GetByID(ctx, req.ChatRoomID)
		if err != nil {
			return err
		}
		tokens, err = s.recipientTokens(ctx, room, req.SenderID)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("send message: %w", err)
	}

	ctx = log.WithRoom(ctx, req.ChatRoomID)
	metrics.MessagesSentTotal.Inc()
	audit.LogRoom(ctx, audit.ActionSendMessage, req.SenderID, req.ChatRoomID, "message sent")

	if err := s.cache.Invalidate(ctx, req.ChatRoomID); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("cache delete error")
	}
	publishRoomEvent(ctx, s.publisher, pubsub.EventMessageCreated, req.ChatRoomID, pubsub.MessageCreatedPayload{
		RoomID:     req.ChatRoomID,
		MessageID:  msg.ID,
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		Content:    msg.Content,
		CreatedAt:  msg.CreatedAt,
	})

	s.notify(ctx, msg, tokens)
	return msg, nil
}

// recipientTokens returns the push tokens of every participant except the
// sender, in join order.
func (s *messageServiceImpl) recipientTokens(ctx context.Context, room *domain.ChatRoom, senderID string) ([]string, error) {
	others := room.OtherParticipants(senderID)
	if len(others) == 0 {
		return nil, nil
	}

	users, err := s.users.GetByDeviceIDs(ctx, others)
	if err != nil {
		return nil, err
	}
	byDevice := make(map[string]domain.User, len(users))
	for _, u := range users {
		byDevice[u.DeviceID] = u
	}

	tokens := make([]string, 0, len(others))
	for _, id := range others {
		if u, ok := byDevice[id]; ok && u.HasPushToken() {
			tokens = append(tokens, *u.PushToken)
		}
	}
	return tokens, nil
}

// notify dispatches one push notification for msg. Failures are logged and
// counted only.
func (s *messageServiceImpl) notify(ctx context.Context, msg *domain.Message, tokens []string) {
	if len(tokens) == 0 || s.dispatcher == nil {
		metrics.PushNotificationsTotal.WithLabelValues(metrics.ResultSkipped).Inc()
		return
	}
	l := log.Ctx(ctx)

	// The push has its own timeout; a client hanging up must not cancel it.
	_, err := s.dispatcher.SendPushNotification(context.WithoutCancel(ctx), push.Notification{
		PushTokens: tokens,
		Title:      "New message from " + msg.SenderName,
		Body:       msg.Content,
		Data: map[string]interface{}{
			"chatRoomId": msg.ChatRoomID,
			"messageId":  msg.ID,
		},
	})
	if err != nil {
		metrics.PushNotificationsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		l.Error().Err(err).Str(log.FieldMessageID, msg.ID).Int(log.FieldRecipients, len(tokens)).Msg("failed to send push notification")
		return
	}

	metrics.PushNotificationsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	l.Debug().Str(log.FieldMessageID, msg.ID).Int(log.FieldRecipients, len(tokens)).Msg("push notification dispatched")
}

// List returns up to limit messages of a room, newest first. A non-positive
// limit selects cfg.DefaultLimit and anything above cfg.MaxLimit is capped.
func (s *messageServiceImpl) List(ctx context.Context, chatRoomID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}

	messages, err := s.messages.ListByRoom(ctx, chatRoomID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}
