package cache

import (
	"context"
	"time"

	"github.com/weiawesome/wes-io-chat/internal/domain"
)

// NoopRoomCache always misses. Used when cache.enabled is false.
type NoopRoomCache struct{}

func NewNoopRoomCache() *NoopRoomCache {
	return &NoopRoomCache{}
}

func (NoopRoomCache) Get(context.Context, string) (*domain.ChatRoom, error) {
	return nil, ErrCacheMiss
}

func (NoopRoomCache) Set(context.Context, *domain.ChatRoom, time.Duration) error { return nil }

func (NoopRoomCache) Invalidate(context.Context, ...string) error { return nil }

func (NoopRoomCache) Close() error { return nil }
