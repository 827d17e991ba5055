package service

import "errors"

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrMessageTooLong = errors.New("message too long")
)
