package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/weiawesome/wes-io-chat/internal/cache"
	"github.com/weiawesome/wes-io-chat/internal/domain"
	"github.com/weiawesome/wes-io-chat/internal/idgen"
	"github.com/weiawesome/wes-io-chat/internal/push"
	"github.com/weiawesome/wes-io-chat/internal/repository"
	"github.com/weiawesome/wes-io-chat/pkg/pubsub"
)

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []push.Notification
	err   error
}

func (d *fakeDispatcher) SendPushNotification(_ context.Context, n push.Notification) (*push.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, n)
	if d.err != nil {
		return nil, d.err
	}
	return &push.Result{StatusCode: 200}, nil
}

func (d *fakeDispatcher) Calls() []push.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]push.Notification(nil), d.calls...)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*pubsub.Event
	chans  []string
}

func (p *fakePublisher) Publish(_ context.Context, channel string, event *pubsub.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chans = append(p.chans, channel)
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type fakeCache struct {
	mu          sync.Mutex
	entries     map[string]domain.ChatRoom
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]domain.ChatRoom)}
}

func (c *fakeCache) Get(_ context.Context, roomID string) (*domain.ChatRoom, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.entries[roomID]; ok {
		return &r, nil
	}
	return nil, cache.ErrCacheMiss
}

func (c *fakeCache) Set(_ context.Context, room *domain.ChatRoom, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[room.ID] = *room
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, roomIDs ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range roomIDs {
		delete(c.entries, id)
		c.invalidated = append(c.invalidated, id)
	}
	return nil
}

func (c *fakeCache) Invalidated() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.invalidated...)
}

func (c *fakeCache) Close() error { return nil }

// stepClock advances by one millisecond on every call.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.UnixMilli(1_700_000_000_000).UTC()}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

type env struct {
	db         *gorm.DB
	rooms      RoomService
	messages   MessageService
	users      UserService
	dispatcher *fakeDispatcher
	publisher  *fakePublisher
	cache      *fakeCache
}

func setup(t *testing.T) *env {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(domain.Models()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	tx := repository.NewGormTransactor(db)
	roomRepo := repository.NewGormRoomRepository(db)
	msgRepo := repository.NewGormMessageRepository(db)
	userRepo := repository.NewGormUserRepository(db)

	clock := newStepClock()
	e := &env{
		db:         db,
		dispatcher: &fakeDispatcher{},
		publisher:  &fakePublisher{},
		cache:      newFakeCache(),
	}
	e.rooms = NewRoomService(tx, roomRepo, e.cache, time.Minute, e.publisher, idgen.NewUUIDGenerator(), 20, WithClock(clock.Now))
	e.messages = NewMessageService(tx, msgRepo, roomRepo, userRepo, e.cache, e.publisher, e.dispatcher, idgen.NewULIDGenerator(), MessageConfig{MaxLength: 2000}, WithClock(clock.Now))
	e.users = NewUserService(userRepo, idgen.NewUUIDGenerator(), WithClock(clock.Now))
	return e
}

func strPtr(s string) *string { return &s }

func (e *env) count(t *testing.T, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	if err := e.db.Model(model).Where(query, args...).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
