package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor (matches pkg/middleware/device.go keys)
	FieldDeviceID = "device_id"
	FieldUserName = "user_name"

	// Chat
	FieldRoomID     = "room_id"
	FieldMessageID  = "message_id"
	FieldRecipients = "recipients"
	FieldChannel    = "channel"

	// Service
	FieldService = "service"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
