package audit

import (
	"context"

	"github.com/weiawesome/wes-io-chat/pkg/log"
)

// Audit actions for chat mutations.
const (
	ActionCreateRoom  = "room.create"
	ActionJoinRoom    = "room.join"
	ActionSendMessage = "message.send"
	ActionUpsertUser  = "user.upsert"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, deviceID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldDeviceID, deviceID).
		Msg(msg)
}

// LogRoom emits an audit entry scoped to a room.
func LogRoom(ctx context.Context, action string, deviceID, roomID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldDeviceID, deviceID).
		Str(log.FieldRoomID, roomID).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action string, deviceID string, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldDeviceID, deviceID).
		Str(FieldDetail, detail).
		Msg(msg)
}
