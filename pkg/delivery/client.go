package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/hkniberg/meter/pkg/log"
	"github.com/hkniberg/meter/pkg/notification"
	"github.com/hkniberg/meter/pkg/retry"
)

// maxErrorBody bounds how much of an error response is kept for logs.
const maxErrorBody = 1024

// Config holds the client configuration.
type Config struct {
	// ServerURL is the collector endpoint notifications are POSTed to.
	ServerURL string

	// Timeout bounds each single request, not the whole retry loop.
	Timeout time.Duration

	// Retry decides how often and how patiently failed requests are retried.
	Retry retry.Policy

	// Verbose logs every attempt instead of only retries and final failures.
	Verbose bool
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("%w: server url is required", ErrInvalidConfig)
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: server url %q must be an absolute http(s) url", ErrInvalidConfig, c.ServerURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Client delivers notifications with retries.
type Client struct {
	cfg      Config
	client   HTTPClient
	logger   log.Logger
	metrics  *Metrics
	hostname string
}

// Option configures optional behavior of a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client HTTPClient) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger log.Logger) Option {
	return func(c *Client) { c.logger = log.OrNoop(logger) }
}

// WithMetrics records attempts and outcomes on m.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a client. It returns an error if cfg is invalid.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{
		cfg:      cfg,
		client:   &http.Client{},
		logger:   log.NoopLogger{},
		hostname: hostname(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SendOne delivers a single notification. A notification without events is
// not sent and SendOne returns nil right away.
func (c *Client) SendOne(ctx context.Context, n notification.Notification) error {
	if n.Empty() {
		return nil
	}
	return c.deliver(ctx, n, 1)
}

// SendMany delivers notifications in one request. Notifications without
// events are left out of the payload; if nothing remains no request is made.
func (c *Client) SendMany(ctx context.Context, ns []notification.Notification) error {
	payload := make([]notification.Notification, 0, len(ns))
	for _, n := range ns {
		if !n.Empty() {
			payload = append(payload, n)
		}
	}
	if len(payload) == 0 {
		return nil
	}
	return c.deliver(ctx, payload, len(payload))
}

func (c *Client) deliver(ctx context.Context, payload interface{}, count int) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notifications: %w", err)
	}

	var (
		start      = time.Now()
		attempts   int
		lastStatus int
		lastMsg    string
	)

	err = retry.Do(ctx, c.cfg.Retry, func(ctx context.Context, attempt int) error {
		attempts = attempt
		if c.cfg.Verbose || attempt > 1 {
			c.logger.Info("sending notifications",
				log.Int("attempt", attempt),
				log.Int("notifications", count),
			)
		}

		reqStart := time.Now()
		status, err := c.post(ctx, body)
		c.metrics.observeAttempt(err == nil, time.Since(reqStart).Seconds())
		lastStatus = status
		if err != nil {
			lastMsg = err.Error()
			var se *statusError
			if errors.As(err, &se) {
				lastMsg = se.body
			}
			return err
		}

		if c.cfg.Verbose || attempt > 1 {
			c.logger.Info("notifications delivered",
				log.Int("attempt", attempt),
				log.Int("notifications", count),
				log.Duration("elapsed", time.Since(start)),
			)
		}
		return nil
	}, retry.OnRetry(func(ri retry.RetryInfo) {
		c.logger.Warn("send failed, will retry",
			log.Int("attempt", ri.Attempt),
			log.Int("notifications", count),
			log.Duration("elapsed", ri.Elapsed),
			log.Duration("retry_in", ri.Delay),
			log.Err(ri.Err),
		)
	}))

	if err == nil {
		c.metrics.observeDelivered(count)
		return nil
	}

	if errors.Is(err, retry.ErrExhausted) {
		c.metrics.observeExhausted()
	}
	c.logger.Error("giving up on notifications",
		log.Int("attempts", attempts),
		log.Int("notifications", count),
		log.Duration("elapsed", time.Since(start)),
		log.Err(err),
	)
	return &Error{
		Notifications: count,
		Attempts:      attempts,
		StatusCode:    lastStatus,
		Message:       lastMsg,
		Err:           err,
	}
}

// post performs one request and returns the response status, or 0 if no
// response arrived.
func (c *Client) post(ctx context.Context, body []byte) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ServerURL, bytes.NewReader(body))
	if err != nil {
		return 0, retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Agent-Hostname", c.hostname)
	req.Header.Set("X-Agent-OSArch", runtime.GOOS+"/"+runtime.GOARCH)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(respBody))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func hostname() string {
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "unknown"
}
