package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/weiawesome/wes-io-chat/internal/domain"
	"github.com/weiawesome/wes-io-chat/internal/idgen"
	"github.com/weiawesome/wes-io-chat/internal/push"
	"github.com/weiawesome/wes-io-chat/internal/repository"
	"github.com/weiawesome/wes-io-chat/internal/service"
	"github.com/weiawesome/wes-io-chat/pkg/middleware"
)

const testScheme = "wesiochat"

type recordingDispatcher struct {
	mu    sync.Mutex
	calls []push.Notification
}

func (d *recordingDispatcher) SendPushNotification(_ context.Context, n push.Notification) (*push.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, n)
	return &push.Result{StatusCode: http.StatusOK}, nil
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

type testServer struct {
	router     *gin.Engine
	rooms      service.RoomService
	messages   service.MessageService
	users      service.UserService
	dispatcher *recordingDispatcher
}

func openTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func newTestServer(t *testing.T, limiter *middleware.DeviceRateLimiter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := openTestDB(t)
	tx := repository.NewGormTransactor(db)
	roomRepo := repository.NewGormRoomRepository(db)
	msgRepo := repository.NewGormMessageRepository(db)
	userRepo := repository.NewGormUserRepository(db)

	s := &testServer{dispatcher: &recordingDispatcher{}}
	s.rooms = service.NewRoomService(tx, roomRepo, nil, time.Minute, nil, idgen.NewUUIDGenerator(), 20)
	s.messages = service.NewMessageService(tx, msgRepo, roomRepo, userRepo, nil, nil, s.dispatcher,
		idgen.NewULIDGenerator(), service.MessageConfig{MaxLength: 10})
	s.users = service.NewUserService(userRepo, idgen.NewUUIDGenerator())

	s.router = gin.New()
	NewHandler(s.rooms, s.messages, s.users, testScheme, limiter).RegisterRoutes(s.router)
	return s
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, deviceID string, body interface{}) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if deviceID != "" {
		req.Header.Set(middleware.DeviceIDHeader, deviceID)
		req.Header.Set(middleware.UserNameHeader, strings.ToUpper(deviceID[:1])+deviceID[1:])
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return w.Code, env
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data %q: %v", string(env.Data), err)
	}
}

func (s *testServer) createRoom(t *testing.T, deviceID, name string) domain.RoomResponse {
	t.Helper()
	code, env := s.do(t, http.MethodPost, "/api/v1/rooms", deviceID, gin.H{"name": name})
	if code != http.StatusCreated {
		t.Fatalf("create room: status %d", code)
	}
	var room domain.RoomResponse
	decodeData(t, env, &room)
	return room
}

func TestCreateRoom(t *testing.T) {
	s := newTestServer(t, nil)

	room := s.createRoom(t, "alice", "Trip Planning")

	if room.Name != "Trip Planning" || room.CreatedBy != "alice" {
		t.Fatalf("unexpected room: %+v", room)
	}
	if len(room.ParticipantIDs) != 1 || room.ParticipantIDs[0] != "alice" {
		t.Fatalf("participants = %v, want [alice]", room.ParticipantIDs)
	}
	if want := testScheme + "://chat/" + room.ID; room.DeepLink != want {
		t.Fatalf("deep link = %q, want %q", room.DeepLink, want)
	}
}

func TestCreateRoomValidation(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name     string
		deviceID string
		body     interface{}
		want     int
		code     string
	}{
		{"missing device", "", gin.H{"name": "x"}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"missing name", "alice", gin.H{}, http.StatusBadRequest, "BAD_REQUEST"},
		{"name too long", "alice", gin.H{"name": strings.Repeat("a", 101)}, http.StatusBadRequest, "BAD_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := s.do(t, http.MethodPost, "/api/v1/rooms", tt.deviceID, tt.body)
			if code != tt.want {
				t.Fatalf("status = %d, want %d", code, tt.want)
			}
			if env.Success || env.Error == nil || env.Error.Code != tt.code {
				t.Fatalf("unexpected envelope: %+v", env)
			}
		})
	}
}

func TestGetRoomNotFound(t *testing.T) {
	s := newTestServer(t, nil)

	code, env := s.do(t, http.MethodGet, "/api/v1/rooms/"+uuid.NewString(), "alice", nil)
	if code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}
	if env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestJoinRoomIdempotent(t *testing.T) {
	s := newTestServer(t, nil)
	room := s.createRoom(t, "alice", "Trip Planning")

	for i, wantJoined := range []bool{true, false} {
		code, env := s.do(t, http.MethodPost, "/api/v1/rooms/"+room.ID+"/join", "bob", nil)
		if code != http.StatusOK {
			t.Fatalf("join %d: status %d", i, code)
		}
		var resp domain.JoinRoomResponse
		decodeData(t, env, &resp)
		if resp.Joined != wantJoined {
			t.Fatalf("join %d: joined = %v, want %v", i, resp.Joined, wantJoined)
		}
		if len(resp.Room.ParticipantIDs) != 2 {
			t.Fatalf("join %d: participants = %v", i, resp.Room.ParticipantIDs)
		}
	}
}

func TestJoinRoomNotFound(t *testing.T) {
	s := newTestServer(t, nil)

	code, _ := s.do(t, http.MethodPost, "/api/v1/rooms/"+uuid.NewString()+"/join", "bob", nil)
	if code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}
}

func TestJoinByLink(t *testing.T) {
	s := newTestServer(t, nil)
	room := s.createRoom(t, "alice", "Trip Planning")

	code, env := s.do(t, http.MethodPost, "/api/v1/rooms/join-link", "bob", gin.H{"link": room.DeepLink})
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	var resp domain.JoinRoomResponse
	decodeData(t, env, &resp)
	if !resp.Joined || resp.Room.ID != room.ID {
		t.Fatalf("unexpected join response: %+v", resp)
	}

	code, _ = s.do(t, http.MethodPost, "/api/v1/rooms/join-link", "bob", gin.H{"link": "https://example.com/nope"})
	if code != http.StatusBadRequest {
		t.Fatalf("invalid link: status = %d, want 400", code)
	}
}

func TestSendAndListMessages(t *testing.T) {
	s := newTestServer(t, nil)
	room := s.createRoom(t, "alice", "Trip Planning")

	code, env := s.do(t, http.MethodPost, "/api/v1/rooms/"+room.ID+"/messages", "alice", gin.H{"content": "hi"})
	if code != http.StatusCreated {
		t.Fatalf("send: status = %d", code)
	}
	var sent domain.MessageResponse
	decodeData(t, env, &sent)
	if sent.SenderID != "alice" || sent.SenderName != "Alice" || sent.Content != "hi" {
		t.Fatalf("unexpected message: %+v", sent)
	}

	code, env = s.do(t, http.MethodGet, "/api/v1/rooms/"+room.ID+"/messages?limit=10", "alice", nil)
	if code != http.StatusOK {
		t.Fatalf("list: status = %d", code)
	}
	var listed []domain.MessageResponse
	decodeData(t, env, &listed)
	if len(listed) != 1 || listed[0].ID != sent.ID {
		t.Fatalf("listed = %+v", listed)
	}

	code, _ = s.do(t, http.MethodGet, "/api/v1/rooms/"+room.ID+"/messages?limit=abc", "alice", nil)
	if code != http.StatusBadRequest {
		t.Fatalf("bad limit: status = %d, want 400", code)
	}
}

func TestSendMessageErrors(t *testing.T) {
	s := newTestServer(t, nil)
	room := s.createRoom(t, "alice", "Trip Planning")

	code, env := s.do(t, http.MethodPost, "/api/v1/rooms/"+room.ID+"/messages", "alice", gin.H{"content": strings.Repeat("x", 11)})
	if code != http.StatusBadRequest || env.Error == nil || env.Error.Message != "message too long" {
		t.Fatalf("too long: status = %d, env = %+v", code, env)
	}

	code, _ = s.do(t, http.MethodPost, "/api/v1/rooms/"+uuid.NewString()+"/messages", "alice", gin.H{"content": "hi"})
	if code != http.StatusNotFound {
		t.Fatalf("missing room: status = %d, want 404", code)
	}

	code, _ = s.do(t, http.MethodPost, "/api/v1/rooms/"+room.ID+"/messages", "alice", gin.H{})
	if code != http.StatusBadRequest {
		t.Fatalf("empty content: status = %d, want 400", code)
	}
}

func TestSendMessageRateLimited(t *testing.T) {
	s := newTestServer(t, middleware.NewDeviceRateLimiter(0.001, 1))
	room := s.createRoom(t, "alice", "Trip Planning")

	path := "/api/v1/rooms/" + room.ID + "/messages"
	if code, _ := s.do(t, http.MethodPost, path, "alice", gin.H{"content": "one"}); code != http.StatusCreated {
		t.Fatalf("first send: status = %d", code)
	}
	code, env := s.do(t, http.MethodPost, path, "alice", gin.H{"content": "two"})
	if code != http.StatusTooManyRequests || env.Error == nil || env.Error.Code != "RATE_LIMITED" {
		t.Fatalf("second send: status = %d, env = %+v", code, env)
	}
}

func TestListMyRoomsOrdering(t *testing.T) {
	s := newTestServer(t, nil)
	first := s.createRoom(t, "alice", "First")
	second := s.createRoom(t, "alice", "Second")
	s.createRoom(t, "bob", "Not mine")

	// Sending into the older room moves it to the front.
	time.Sleep(2 * time.Millisecond)
	if code, _ := s.do(t, http.MethodPost, "/api/v1/rooms/"+first.ID+"/messages", "alice", gin.H{"content": "bump"}); code != http.StatusCreated {
		t.Fatalf("send: status = %d", code)
	}

	code, env := s.do(t, http.MethodGet, "/api/v1/rooms", "alice", nil)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	var rooms []domain.RoomResponse
	decodeData(t, env, &rooms)
	if len(rooms) != 2 || rooms[0].ID != first.ID || rooms[1].ID != second.ID {
		t.Fatalf("rooms = %+v", rooms)
	}
}

func TestListPublicRoomsNoSession(t *testing.T) {
	s := newTestServer(t, nil)
	s.createRoom(t, "alice", "Open")

	code, env := s.do(t, http.MethodGet, "/api/v1/rooms/public", "", nil)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	var rooms []domain.RoomResponse
	decodeData(t, env, &rooms)
	if len(rooms) != 1 {
		t.Fatalf("rooms = %+v", rooms)
	}
}

func TestRoomView(t *testing.T) {
	s := newTestServer(t, nil)
	room := s.createRoom(t, "alice", "Trip Planning")
	for _, content := range []string{"one", "two"} {
		if code, _ := s.do(t, http.MethodPost, "/api/v1/rooms/"+room.ID+"/messages", "alice", gin.H{"content": content}); code != http.StatusCreated {
			t.Fatalf("send %q: status = %d", content, code)
		}
	}

	code, env := s.do(t, http.MethodGet, "/api/v1/rooms/"+room.ID+"/view?limit=1", "alice", nil)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	var view domain.RoomViewResponse
	decodeData(t, env, &view)
	if view.Room.ID != room.ID {
		t.Fatalf("room = %+v", view.Room)
	}
	if len(view.Messages) != 1 || view.Messages[0].Content != "two" {
		t.Fatalf("messages = %+v", view.Messages)
	}

	code, _ = s.do(t, http.MethodGet, "/api/v1/rooms/"+uuid.NewString()+"/view", "alice", nil)
	if code != http.StatusNotFound {
		t.Fatalf("missing room: status = %d, want 404", code)
	}
}

func TestUsers(t *testing.T) {
	s := newTestServer(t, nil)

	code, _ := s.do(t, http.MethodGet, "/api/v1/users/d1", "", nil)
	if code != http.StatusNotFound {
		t.Fatalf("absent user: status = %d, want 404", code)
	}

	for _, name := range []string{"Alice", "Bob"} {
		code, _ := s.do(t, http.MethodPut, "/api/v1/users/me", "d1", gin.H{"name": name, "push_token": "ExponentPushToken[d1]"})
		if code != http.StatusOK {
			t.Fatalf("upsert %s: status = %d", name, code)
		}
	}

	code, env := s.do(t, http.MethodGet, "/api/v1/users/d1", "", nil)
	if code != http.StatusOK {
		t.Fatalf("get user: status = %d", code)
	}
	var user domain.User
	decodeData(t, env, &user)
	if user.Name != "Bob" || user.DeviceID != "d1" || !user.HasPushToken() {
		t.Fatalf("user = %+v", user)
	}
}

func TestSendNotifiesOtherParticipants(t *testing.T) {
	s := newTestServer(t, nil)
	room := s.createRoom(t, "alice", "Trip Planning")

	for _, device := range []string{"alice", "bob"} {
		if code, _ := s.do(t, http.MethodPut, "/api/v1/users/me", device, gin.H{"push_token": "ExponentPushToken[" + device + "]"}); code != http.StatusOK {
			t.Fatalf("upsert %s: status = %d", device, code)
		}
	}
	if code, _ := s.do(t, http.MethodPost, "/api/v1/rooms/"+room.ID+"/join", "bob", nil); code != http.StatusOK {
		t.Fatalf("join: status = %d", code)
	}

	if code, _ := s.do(t, http.MethodPost, "/api/v1/rooms/"+room.ID+"/messages", "alice", gin.H{"content": "hi"}); code != http.StatusCreated {
		t.Fatalf("send: status = %d", code)
	}
	if got := s.dispatcher.count(); got != 1 {
		t.Fatalf("dispatcher calls = %d, want 1", got)
	}
}
