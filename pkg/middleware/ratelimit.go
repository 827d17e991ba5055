package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/weiawesome/wes-io-chat/pkg/response"
)

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterTTL             = 30 * time.Minute
)

type limiterEntry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

// DeviceRateLimiter hands out one token bucket per device id.
type DeviceRateLimiter struct {
	limit   rate.Limit
	burst   int
	mu      sync.Mutex
	entries map[string]*limiterEntry
	now     func() time.Time
}

// NewDeviceRateLimiter allows rps requests per second per device with the
// given burst. Idle buckets are evicted after limiterTTL.
func NewDeviceRateLimiter(rps float64, burst int) *DeviceRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &DeviceRateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		entries: make(map[string]*limiterEntry),
		now:     time.Now,
	}
}

func (l *DeviceRateLimiter) get(deviceID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[deviceID]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[deviceID] = e
	}
	e.lastUse = l.now()
	return e.limiter
}

// Allow reports whether deviceID may make another request now.
func (l *DeviceRateLimiter) Allow(deviceID string) bool {
	return l.get(deviceID).AllowN(l.now(), 1)
}

// Cleanup evicts buckets idle for longer than limiterTTL.
func (l *DeviceRateLimiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, e := range l.entries {
		if now.Sub(e.lastUse) > limiterTTL {
			delete(l.entries, k)
		}
	}
}

// RunCleanup evicts idle buckets periodically until stop is closed.
func (l *DeviceRateLimiter) RunCleanup(stop <-chan struct{}) {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			l.Cleanup()
		}
	}
}

// Handler rejects requests over the device's rate with 429. It must run
// after RequireDevice.
func (l *DeviceRateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-RateLimit-Limit", strconv.Itoa(l.burst))
		if !l.Allow(GetDeviceID(c)) {
			c.Header("X-RateLimit-Remaining", "0")
			response.Abort(c, http.StatusTooManyRequests, response.CodeRateLimited, "too many messages, slow down")
			return
		}
		c.Next()
	}
}
