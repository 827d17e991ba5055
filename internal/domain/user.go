package domain

import "time"

// User is a device-keyed chat user. PushToken is nil when the device has not
// registered for notifications.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	DeviceID  string    `json:"device_id"`
	PushToken *string   `json:"push_token,omitempty"`
	LastSeen  time.Time `json:"last_seen"`
}

// HasPushToken reports whether the user can receive push notifications.
func (u *User) HasPushToken() bool {
	return u.PushToken != nil && *u.PushToken != ""
}

// UpsertUserRequest represents the HTTP body for PUT /users/me.
// Name falls back to the session's X-User-Name header when empty.
type UpsertUserRequest struct {
	Name      string  `json:"name" binding:"max=100"`
	PushToken *string `json:"push_token"`
}
