package log

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestGinMiddlewareInjectsRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	logger := New(Config{Level: "debug", Output: &buf})

	r := gin.New()
	r.Use(GinMiddleware(logger))
	r.GET("/rooms/:id", func(c *gin.Context) {
		c.Set(FieldDeviceID, "dev_1")
		l := Ctx(WithRoom(c.Request.Context(), c.Param("id")))
		l.Info().Msg("inside handler")
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/rooms/r1", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "req-42" {
		t.Fatalf("response request id = %q", got)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %s", len(lines), buf.String())
	}

	var inner, done map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &inner); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &done); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if inner[FieldRequestID] != "req-42" || inner[FieldRoomID] != "r1" || inner[FieldPath] != "/rooms/:id" {
		t.Fatalf("unexpected handler line: %v", inner)
	}
	if done[FieldStatus] != float64(http.StatusNoContent) || done[FieldDeviceID] != "dev_1" {
		t.Fatalf("unexpected completion line: %v", done)
	}
}

func TestCtxWithoutLoggerReturnsGlobal(t *testing.T) {
	l := Ctx(context.Background())
	if l.GetLevel() != L().GetLevel() {
		t.Fatalf("expected global logger level %v, got %v", L().GetLevel(), l.GetLevel())
	}
}
