package repository

import (
	"context"
	"errors"

	"github.com/weiawesome/wes-io-chat/internal/domain"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrUserNotFound = errors.New("user not found")
)

// Transactor runs fn inside a single store transaction. Repositories called
// with the ctx passed to fn join that transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// RoomRepository defines the interface for room and membership persistence.
type RoomRepository interface {
	Create(ctx context.Context, room *domain.ChatRoom) error
	GetByID(ctx context.Context, id string) (*domain.ChatRoom, error)
	// GetByIDForUpdate reads a room and locks its row until the surrounding
	// transaction ends, on drivers that support row locks.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.ChatRoom, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.ChatRoom, error)
	UpdateParticipants(ctx context.Context, id string, participantIDs []string) error
	// AddParticipant inserts a participant record. It reports false when the
	// (user, room) pair already exists.
	AddParticipant(ctx context.Context, p *domain.Participant) (bool, error)
	ListParticipations(ctx context.Context, userID string) ([]domain.Participant, error)
	ListRecent(ctx context.Context, limit int) ([]domain.ChatRoom, error)
	TouchLastMessage(ctx context.Context, id string, at int64) error
}

// MessageRepository defines the interface for message persistence.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	// ListByRoom returns up to limit messages, newest first.
	ListByRoom(ctx context.Context, chatRoomID string, limit int) ([]domain.Message, error)
}

// UserRepository defines the interface for user persistence.
type UserRepository interface {
	// Upsert inserts the user or, when the device id already exists, replaces
	// its name, push token and last seen time.
	Upsert(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByDeviceID(ctx context.Context, deviceID string) (*domain.User, error)
	GetByDeviceIDs(ctx context.Context, deviceIDs []string) ([]domain.User, error)
}
