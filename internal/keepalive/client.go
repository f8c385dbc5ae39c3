// Package keepalive pings the session endpoint on an interval so a browser
// tab or a long-running tool keeps its session accounted for, and reports
// when the server ends it.
package keepalive

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

	"github.com/jonboulle/clockwork"
)

// DefaultInterval matches the browser client's ping period.
const DefaultInterval = 15 * time.Second

// ExpiredError is returned once the server rejects the session.
type ExpiredError struct {
	Reason string
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("session ended: %s", e.Reason)
}

// Status is the server's view of the session after a ping.
type Status struct {
	SessionID        string  `json:"id"`
	BudgetMinutes    int     `json:"budgetMinutes"`
	UsedSeconds      float64 `json:"usedSeconds"`
	RemainingSeconds float64 `json:"remainingSeconds"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	clock      clockwork.Clock
	interval   time.Duration
	token      string

	// OnAlive is called after every accepted ping.
	OnAlive func(Status)
	// OnExpired is called once, with the server's reason code, before Run returns.
	OnExpired func(reason string)
	// OnError is called for failed pings that did not end the session.
	OnError func(err error)
}

type Option func(*Client)

func WithInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.interval = d
		}
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken starts the client with an existing credential.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a client for the server at baseURL (scheme and host, no path).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/") + "/api/v1",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		clock:      clockwork.NewRealClock(),
		interval:   DefaultInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Token() string {
	return c.token
}

type authResponse struct {
	Token   string `json:"token"`
	Session Status `json:"session"`
}

type errorResponse struct {
	Status    string `json:"status"`
	ErrorType string `json:"error_type"`
	Message   string `json:"message"`
}

// Login opens a new session and keeps its token.
func (c *Client) Login(ctx context.Context, email, password string) (Status, error) {
	return c.authenticate(ctx, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

// Signup creates an account, which also opens a session.
func (c *Client) Signup(ctx context.Context, fullName, email, password string) (Status, error) {
	return c.authenticate(ctx, "/auth/signup", map[string]string{
		"fullName": fullName,
		"email":    email,
		"password": password,
	})
}

func (c *Client) authenticate(ctx context.Context, path string, body map[string]string) (Status, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return Status{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return Status{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Status{}, fmt.Errorf("%s request failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return Status{}, fmt.Errorf("%s failed (status %d): %s", path, resp.StatusCode, readError(resp.Body))
	}

	var result authResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Status{}, fmt.Errorf("failed to decode response: %w", err)
	}
	c.token = result.Token
	return result.Session, nil
}

// Ping charges the session once. A rejected session yields *ExpiredError.
func (c *Client) Ping(ctx context.Context) (Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/session/ping", nil)
	if err != nil {
		return Status{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.AddCookie(&http.Cookie{Name: "token", Value: c.token})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Status{}, fmt.Errorf("ping failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var body struct {
			Session Status `json:"session"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return Status{}, fmt.Errorf("failed to decode ping response: %w", err)
		}
		return body.Session, nil
	case http.StatusUnauthorized:
		var body errorResponse
		json.NewDecoder(resp.Body).Decode(&body)
		reason := body.ErrorType
		if reason == "" {
			reason = "UNAUTHENTICATED"
		}
		return Status{}, &ExpiredError{Reason: reason}
	default:
		return Status{}, fmt.Errorf("ping failed (status %d): %s", resp.StatusCode, readError(resp.Body))
	}
}

// Run pings every interval until the session ends or ctx is done. It returns
// the *ExpiredError that stopped it, or ctx.Err().
func (c *Client) Run(ctx context.Context) error {
	ticker := c.clock.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			status, err := c.Ping(ctx)
			var expired *ExpiredError
			switch {
			case errors.As(err, &expired):
				if c.OnExpired != nil {
					c.OnExpired(expired.Reason)
				}
				return err
			case err != nil:
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if c.OnError != nil {
					c.OnError(err)
				}
			default:
				if c.OnAlive != nil {
					c.OnAlive(status)
				}
			}
		}
	}
}

func readError(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 1024))
	var body errorResponse
	if json.Unmarshal(data, &body) == nil && body.Message != "" {
		return body.Message
	}
	return strings.TrimSpace(string(data))
}
