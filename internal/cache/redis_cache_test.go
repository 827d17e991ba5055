package cache

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/weiawesome/wes-io-chat/internal/domain"
)

func TestRedisRoomCacheKey(t *testing.T) {
	c := NewRedisRoomCacheWithClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), "chat:room")
	defer c.Close()

	if got := c.key("abc"); got != "chat:room:id:abc" {
		t.Fatalf("key = %q", got)
	}
}

func TestCachedRoomRoundTrip(t *testing.T) {
	room := &domain.ChatRoom{
		ID:             "r1",
		Name:           "Trip Planning",
		CreatedBy:      "dev_1",
		CreatedAt:      domain.FromMillis(1_700_000_000_123),
		LastMessageAt:  domain.FromMillis(1_700_000_500_456),
		ParticipantIDs: []string{"dev_1", "dev_2"},
	}

	data, err := json.Marshal(toCached(room))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var stored cachedRoom
	if err := json.Unmarshal(data, &stored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got := stored.toDomain()

	if !got.CreatedAt.Equal(room.CreatedAt) || !got.LastMessageAt.Equal(room.LastMessageAt) {
		t.Fatalf("times changed: %v/%v", got.CreatedAt, got.LastMessageAt)
	}
	if got.LastMessageAt.Location() != time.UTC {
		t.Fatalf("expected UTC, got %v", got.LastMessageAt.Location())
	}
	if len(got.ParticipantIDs) != 2 || got.ParticipantIDs[1] != "dev_2" {
		t.Fatalf("participants = %v", got.ParticipantIDs)
	}
}
