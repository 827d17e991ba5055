package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/weiawesome/wes-io-chat/internal/config"
	"github.com/weiawesome/wes-io-chat/internal/domain"
)

// cachedRoom is the stored form. Times are kept in milliseconds to match the
// database so a cached room compares equal to a freshly loaded one.
type cachedRoom struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	CreatedBy      string   `json:"created_by"`
	CreatedAt      int64    `json:"created_at"`
	LastMessageAt  int64    `json:"last_message_at"`
	ParticipantIDs []string `json:"participant_ids"`
}

func toCached(r *domain.ChatRoom) cachedRoom {
	return cachedRoom{
		ID:             r.ID,
		Name:           r.Name,
		CreatedBy:      r.CreatedBy,
		CreatedAt:      domain.ToMillis(r.CreatedAt),
		LastMessageAt:  domain.ToMillis(r.LastMessageAt),
		ParticipantIDs: r.ParticipantIDs,
	}
}

func (c cachedRoom) toDomain() *domain.ChatRoom {
	return &domain.ChatRoom{
		ID:             c.ID,
		Name:           c.Name,
		CreatedBy:      c.CreatedBy,
		CreatedAt:      domain.FromMillis(c.CreatedAt),
		LastMessageAt:  domain.FromMillis(c.LastMessageAt),
		ParticipantIDs: c.ParticipantIDs,
	}
}

type RedisRoomCache struct {
	client *redis.Client
	prefix string
}

func NewRedisRoomCache(cfg config.RedisConfig, prefix string) (*RedisRoomCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisRoomCacheWithClient(client, prefix), nil
}

// NewRedisRoomCacheWithClient wraps an existing client.
func NewRedisRoomCacheWithClient(client *redis.Client, prefix string) *RedisRoomCache {
	return &RedisRoomCache{client: client, prefix: prefix}
}

func (c *RedisRoomCache) key(roomID string) string {
	return fmt.Sprintf("%s:id:%s", c.prefix, roomID)
}

func (c *RedisRoomCache) Get(ctx context.Context, roomID string) (*domain.ChatRoom, error) {
	data, err := c.client.Get(ctx, c.key(roomID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("get room %s from redis: %w", roomID, err)
	}

	var stored cachedRoom
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("decode cached room %s: %w", roomID, err)
	}
	return stored.toDomain(), nil
}

func (c *RedisRoomCache) Set(ctx context.Context, room *domain.ChatRoom, ttl time.Duration) error {
	data, err := json.Marshal(toCached(room))
	if err != nil {
		return fmt.Errorf("encode room %s: %w", room.ID, err)
	}
	if err := c.client.Set(ctx, c.key(room.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("set room %s in redis: %w", room.ID, err)
	}
	return nil
}

func (c *RedisRoomCache) Invalidate(ctx context.Context, roomIDs ...string) error {
	if len(roomIDs) == 0 {
		return nil
	}
	keys := make([]string, len(roomIDs))
	for i, id := range roomIDs {
		keys[i] = c.key(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate rooms in redis: %w", err)
	}
	return nil
}

func (c *RedisRoomCache) Close() error {
	return c.client.Close()
}
