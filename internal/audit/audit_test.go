package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/weiawesome/wes-io-chat/pkg/log"
)

func TestLogRoomWritesAuditFields(t *testing.T) {
	var buf bytes.Buffer
	ctx := log.WithLogger(context.Background(), log.New(log.Config{Level: "info", Output: &buf}))

	LogRoom(ctx, ActionJoinRoom, "device-1", "room-1", "room joined")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}

	want := map[string]string{
		log.FieldLogType:  log.LogTypeAudit,
		FieldAction:       ActionJoinRoom,
		log.FieldDeviceID: "device-1",
		log.FieldRoomID:   "room-1",
		"message":         "room joined",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Fatalf("field %s: expected %q, got %v", k, v, entry[k])
		}
	}
}
