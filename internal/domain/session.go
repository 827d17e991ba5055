package domain

// Session is the per-request caller identity. The device id doubles as the
// user id for rooms, participants and messages.
type Session struct {
	DeviceID string
	UserName string
}

// DisplayName returns the name to stamp on outgoing messages.
func (s Session) DisplayName() string {
	if s.UserName != "" {
		return s.UserName
	}
	return "Anonymous"
}
