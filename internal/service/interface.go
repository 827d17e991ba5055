package service

import (
	"context"
	"time"

	"github.com/weiawesome/wes-io-chat/internal/domain"
	"github.com/weiawesome/wes-io-chat/internal/push"
)

// RoomService defines the interface for room business logic.
type RoomService interface {
	Create(ctx context.Context, name, createdBy string) (*domain.ChatRoom, error)
	// Join adds userID to the room. The bool reports whether membership changed.
	Join(ctx context.Context, chatRoomID, userID string) (*domain.ChatRoom, bool, error)
	ListForUser(ctx context.Context, userID string) ([]domain.ChatRoom, error)
	// Get returns nil, nil when the room does not exist.
	Get(ctx context.Context, id string) (*domain.ChatRoom, error)
	ListPublic(ctx context.Context) ([]domain.ChatRoom, error)
}

// MessageService defines the interface for message business logic.
type MessageService interface {
	Send(ctx context.Context, req domain.SendMessageRequest) (*domain.Message, error)
	// List returns the newest messages first. limit <= 0 selects
	// chat.default_message_limit (50) and larger values are capped at
	// chat.max_message_limit (100), so a limit of 0 never yields an empty page.
	List(ctx context.Context, chatRoomID string, limit int) ([]domain.Message, error)
}

// UserService defines the interface for the device user directory.
type UserService interface {
	Upsert(ctx context.Context, name, deviceID string, pushToken *string) (*domain.User, error)
	// GetByDeviceID returns nil, nil when no user is registered for the device.
	GetByDeviceID(ctx context.Context, deviceID string) (*domain.User, error)
}

// Dispatcher delivers push notifications.
type Dispatcher interface {
	SendPushNotification(ctx context.Context, n push.Notification) (*push.Result, error)
}

// Option customises a service.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
