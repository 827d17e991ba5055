package domain

import (
	"time"

	"github.com/weiawesome/wes-io-chat/pkg/database"
)

// Timestamps are stored as Unix milliseconds so ordering is identical on
// every driver.

// ChatRoomModel is the GORM model for chat_rooms table.
type ChatRoomModel struct {
	ID             string               `gorm:"type:varchar(36);primaryKey"`
	Name           string               `gorm:"type:varchar(100);not null"`
	CreatedBy      string               `gorm:"type:varchar(128);not null"`
	CreatedAt      int64                `gorm:"autoCreateTime:false;not null"`
	LastMessageAt  int64                `gorm:"index:idx_chat_rooms_last_message_at;not null"`
	ParticipantIDs database.StringArray `gorm:"type:text"`
}

// TableName specifies the table name for ChatRoomModel.
func (ChatRoomModel) TableName() string {
	return "chat_rooms"
}

// ToDomain converts ChatRoomModel to domain ChatRoom.
func (m *ChatRoomModel) ToDomain() *ChatRoom {
	ids := make([]string, len(m.ParticipantIDs))
	copy(ids, m.ParticipantIDs)
	return &ChatRoom{
		ID:             m.ID,
		Name:           m.Name,
		CreatedBy:      m.CreatedBy,
		CreatedAt:      FromMillis(m.CreatedAt),
		LastMessageAt:  FromMillis(m.LastMessageAt),
		ParticipantIDs: ids,
	}
}

// ChatRoomToModel converts domain ChatRoom to ChatRoomModel.
func ChatRoomToModel(r *ChatRoom) *ChatRoomModel {
	return &ChatRoomModel{
		ID:             r.ID,
		Name:           r.Name,
		CreatedBy:      r.CreatedBy,
		CreatedAt:      ToMillis(r.CreatedAt),
		LastMessageAt:  ToMillis(r.LastMessageAt),
		ParticipantIDs: database.StringArray(r.ParticipantIDs),
	}
}

// ParticipantModel is the GORM model for participants table.
type ParticipantModel struct {
	ID         string `gorm:"type:varchar(36);primaryKey"`
	UserID     string `gorm:"type:varchar(128);not null;uniqueIndex:idx_participants_user_room,priority:1"`
	ChatRoomID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_participants_user_room,priority:2"`
	JoinedAt   int64  `gorm:"not null"`
}

func (ParticipantModel) TableName() string {
	return "participants"
}

func (m *ParticipantModel) ToDomain() *Participant {
	return &Participant{
		ID:         m.ID,
		UserID:     m.UserID,
		ChatRoomID: m.ChatRoomID,
		JoinedAt:   FromMillis(m.JoinedAt),
	}
}

func ParticipantToModel(p *Participant) *ParticipantModel {
	return &ParticipantModel{
		ID:         p.ID,
		UserID:     p.UserID,
		ChatRoomID: p.ChatRoomID,
		JoinedAt:   ToMillis(p.JoinedAt),
	}
}

// MessageModel is the GORM model for messages table.
type MessageModel struct {
	ID         string `gorm:"type:varchar(26);primaryKey"`
	ChatRoomID string `gorm:"type:varchar(36);not null;index:idx_messages_room_created,priority:1"`
	SenderID   string `gorm:"type:varchar(128);not null"`
	SenderName string `gorm:"type:varchar(100);not null"`
	Content    string `gorm:"type:text;not null"`
	CreatedAt  int64  `gorm:"autoCreateTime:false;not null;index:idx_messages_room_created,priority:2"`
}

func (MessageModel) TableName() string {
	return "messages"
}

func (m *MessageModel) ToDomain() *Message {
	return &Message{
		ID:         m.ID,
		ChatRoomID: m.ChatRoomID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Content:    m.Content,
		CreatedAt:  FromMillis(m.CreatedAt),
	}
}

func MessageToModel(msg *Message) *MessageModel {
	return &MessageModel{
		ID:         msg.ID,
		ChatRoomID: msg.ChatRoomID,
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		Content:    msg.Content,
		CreatedAt:  ToMillis(msg.CreatedAt),
	}
}

// UserModel is the GORM model for users table.
type UserModel struct {
	ID        string  `gorm:"type:varchar(36);primaryKey"`
	Name      string  `gorm:"type:varchar(100);not null"`
	DeviceID  string  `gorm:"type:varchar(128);not null;uniqueIndex:idx_users_device_id"`
	PushToken *string `gorm:"type:varchar(255)"`
	LastSeen  int64   `gorm:"not null"`
}

func (UserModel) TableName() string {
	return "users"
}

func (m *UserModel) ToDomain() *User {
	return &User{
		ID:        m.ID,
		Name:      m.Name,
		DeviceID:  m.DeviceID,
		PushToken: m.PushToken,
		LastSeen:  FromMillis(m.LastSeen),
	}
}

func UserToModel(u *User) *UserModel {
	return &UserModel{
		ID:        u.ID,
		Name:      u.Name,
		DeviceID:  u.DeviceID,
		PushToken: u.PushToken,
		LastSeen:  ToMillis(u.LastSeen),
	}
}

// Models lists every GORM model for auto-migration.
func Models() []interface{} {
	return []interface{}{
		&ChatRoomModel{},
		&ParticipantModel{},
		&MessageModel{},
		&UserModel{},
	}
}

// ToMillis converts t to Unix milliseconds.
func ToMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromMillis converts Unix milliseconds to a UTC time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
