package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds a single delivery, including any pacing wait.
	DefaultTimeout = 10 * time.Second

	maxErrorBody = 512
)

// payload is the JSON body posted to the webhook.
type payload struct {
	Text string `json:"text"`
}

// Webhook posts notifications to a single endpoint.
//
// Webhook is safe for concurrent use.
type Webhook struct {
	url     string
	timeout time.Duration
	client  *http.Client
	limiter *rate.Limiter
}

// Option configures a Webhook.
type Option func(*Webhook)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(w *Webhook) {
		if d > 0 {
			w.timeout = d
		}
	}
}

// WithMaxPerMinute paces deliveries to at most n per minute, with a burst of
// n. Zero or negative leaves delivery unpaced.
func WithMaxPerMinute(n int) Option {
	return func(w *Webhook) {
		if n > 0 {
			w.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
		}
	}
}

// WithHTTPClient replaces the default client. The Webhook timeout still
// applies through the request context.
func WithHTTPClient(c *http.Client) Option {
	return func(w *Webhook) {
		if c != nil {
			w.client = c
		}
	}
}

// NewWebhook returns a Webhook posting to url.
func NewWebhook(url string, opts ...Option) *Webhook {
	w := &Webhook{
		url:     url,
		timeout: DefaultTimeout,
		client:  &http.Client{},
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Send delivers msg with a single attempt.
func (w *Webhook) Send(ctx context.Context, msg Message) error {
	err := w.send(ctx, msg)
	if err != nil {
		slog.Error("notify: webhook delivery failed",
			"level", msg.Level.String(),
			"err", err,
		)
		return err
	}
	slog.Info("notify: webhook delivered", "level", msg.Level.String())
	return nil
}

func (w *Webhook) send(ctx context.Context, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			return &DeliveryError{Kind: Transport, Err: fmt.Errorf("pacing: %w", err)}
		}
	}

	body, err := json.Marshal(payload{Text: msg.Text()})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return &DeliveryError{Kind: Transport, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return &DeliveryError{Kind: Transport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &DeliveryError{
			Kind:       RemoteRejected,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	return nil
}
