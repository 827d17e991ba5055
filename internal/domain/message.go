package domain

import "time"

// Message is an immutable chat message. SenderName is copied at send time.
type Message struct {
	ID         string    `json:"id"`
	ChatRoomID string    `json:"chat_room_id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// SendMessageRequest is the service-level input for sending a message.
type SendMessageRequest struct {
	Content    string
	ChatRoomID string
	SenderID   string
	SenderName string
}

// PostMessageRequest represents the HTTP body for sending a message.
type PostMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// ListMessagesRequest represents the query for listing messages.
type ListMessagesRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=0"`
}

// MessageResponse represents a message in API responses.
type MessageResponse struct {
	ID         string    `json:"id"`
	ChatRoomID string    `json:"chat_room_id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

func (m *Message) ToResponse() MessageResponse {
	return MessageResponse{
		ID:         m.ID,
		ChatRoomID: m.ChatRoomID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Content:    m.Content,
		CreatedAt:  m.CreatedAt,
	}
}

func MessagesToResponse(msgs []Message) []MessageResponse {
	out := make([]MessageResponse, len(msgs))
	for i := range msgs {
		out[i] = msgs[i].ToResponse()
	}
	return out
}
