package cache

import (
	"context"
	"errors"
	"time"

	"github.com/weiawesome/wes-io-chat/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// RoomCache holds read-through copies of rooms keyed by room id. Writers
// invalidate rather than update; the next read repopulates.
type RoomCache interface {
	Get(ctx context.Context, roomID string) (*domain.ChatRoom, error)
	Set(ctx context.Context, room *domain.ChatRoom, ttl time.Duration) error
	Invalidate(ctx context.Context, roomIDs ...string) error
	Close() error
}
