// Package push delivers notifications through an Expo-compatible push gateway.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/weiawesome/wes-io-chat/pkg/log"
)

const (
	DefaultURL     = "https://exp.host/--/api/v2/push/send"
	DefaultTimeout = 10 * time.Second

	maxResponseBody = 1 << 20
)

var ErrDeliveryFailed = errors.New("push delivery failed")

// Notification is one logical notification addressed to many devices.
type Notification struct {
	PushTokens []string
	Title      string
	Body       string
	Data       map[string]interface{}
}

// Message is the per-token payload accepted by the gateway.
type Message struct {
	To    string                 `json:"to"`
	Sound string                 `json:"sound"`
	Title string                 `json:"title"`
	Body  string                 `json:"body"`
	Data  map[string]interface{} `json:"data"`
}

// Result is the gateway response. Body holds the decoded JSON, or the raw
// text when the response is not JSON.
type Result struct {
	StatusCode int
	Body       interface{}
}

type Config struct {
	URL         string
	AccessToken string
	Timeout     time.Duration
}

// Client posts notifications to the push gateway.
type Client struct {
	url         string
	accessToken string
	http        *http.Client
}

func NewClient(cfg Config) *Client {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		url = DefaultURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		url:         url,
		accessToken: cfg.AccessToken,
		http:        &http.Client{Timeout: timeout},
	}
}

// BuildMessages returns one gateway message per token. Data is always sent,
// as an empty object when unset.
func BuildMessages(n Notification) []Message {
	data := n.Data
	if data == nil {
		data = map[string]interface{}{}
	}
	msgs := make([]Message, len(n.PushTokens))
	for i, token := range n.PushTokens {
		msgs[i] = Message{
			To:    token,
			Sound: "default",
			Title: n.Title,
			Body:  n.Body,
			Data:  data,
		}
	}
	return msgs
}

// SendPushNotification sends n in a single request. A single token is sent
// as a bare object and several as an array. It does nothing for zero tokens.
func (c *Client) SendPushNotification(ctx context.Context, n Notification) (*Result, error) {
	if len(n.PushTokens) == 0 {
		return nil, nil
	}
	l := log.Ctx(ctx)

	msgs := BuildMessages(n)
	var payload interface{} = msgs
	if len(msgs) == 1 {
		payload = msgs[0]
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrDeliveryFailed, err)
	}

	result := &Result{StatusCode: resp.StatusCode, Body: decodeBody(raw)}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return result, fmt.Errorf("%w: status %d: %s", ErrDeliveryFailed, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	l.Debug().Int(log.FieldRecipients, len(msgs)).Int(log.FieldStatus, resp.StatusCode).Msg("push notification sent")
	return result, nil
}

func decodeBody(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}
