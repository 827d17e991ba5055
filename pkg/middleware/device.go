package middleware

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/wes-io-chat/pkg/response"
)

const (
	DeviceIDKey    = "device_id"
	UserNameKey    = "user_name"
	DeviceIDHeader = "X-Device-ID"
	UserNameHeader = "X-User-Name"

	maxDeviceIDLength = 128
	maxUserNameLength = 100
)

// RequireDevice returns a Gin middleware that reads the caller's device
// identity from request headers. The device id stands in for the user; there
// is no further authentication.
func RequireDevice() gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceID := strings.TrimSpace(c.GetHeader(DeviceIDHeader))
		if deviceID == "" {
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "missing "+DeviceIDHeader+" header")
			return
		}
		if len(deviceID) > maxDeviceIDLength {
			response.Abort(c, http.StatusBadRequest, response.CodeBadRequest, "device id too long")
			return
		}

		userName := truncateRunes(strings.ToValidUTF8(strings.TrimSpace(c.GetHeader(UserNameHeader)), ""), maxUserNameLength)

		c.Set(DeviceIDKey, deviceID)
		c.Set(UserNameKey, userName)

		c.Next()
	}
}

// truncateRunes cuts s to at most n characters without splitting one.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// GetDeviceID extracts the device id from Gin context.
func GetDeviceID(c *gin.Context) string {
	return c.GetString(DeviceIDKey)
}

// GetUserName extracts the display name from Gin context.
func GetUserName(c *gin.Context) string {
	return c.GetString(UserNameKey)
}
