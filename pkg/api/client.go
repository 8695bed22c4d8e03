// Package api is the HTTP client for the CareerSage backend.
//
// Every call takes a context, so a view that goes away can cancel what it
// started. Failures come back as *Error. A 401 from any endpoint outside
// /auth/ means the session expired: the client clears stored credentials,
// runs the OnUnauthorized hook and returns an error matching
// ErrUnauthorized.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vanderheijden86/sage/pkg/debug"
	"github.com/vanderheijden86/sage/pkg/metrics"
	"github.com/vanderheijden86/sage/pkg/model"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
)

// DefaultBaseURL is where the backend listens in development.
const DefaultBaseURL = "http://localhost:5000/api"

// NetworkErrorMessage is reported for transport failures.
const NetworkErrorMessage = "Network error. Please check your connection."

// ErrUnauthorized matches errors caused by an expired or missing session.
var ErrUnauthorized = errors.New("session expired")

// Error is a failed backend call. Status is 0 for transport failures.
type Error struct {
	Status  int
	Message string
	Data    map[string]any
	// Expired is set for a 401 outside /auth/.
	Expired bool
	Err     error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// Unwrap exposes the transport error, if any.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is ErrUnauthorized and the session expired.
func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.Expired
}

// IsNetwork reports whether err is a transport failure rather than an
// answer from the backend.
func IsNetwork(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == 0
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Credentials stores the session token and user between runs.
type Credentials interface {
	Token() string
	SetSession(token string, user model.User) error
	ClearSession() error
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCredentials attaches a session store.
func WithCredentials(creds Credentials) Option {
	return func(c *Client) { c.creds = creds }
}

// WithOnUnauthorized sets the hook run after an expired session is cleared.
func WithOnUnauthorized(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// Client talks to the backend.
type Client struct {
	baseURL        string
	http           *http.Client
	creds          Credentials
	onUnauthorized func()
	validate       *validator.Validate
}

// New creates a Client. An empty baseURL selects DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &http.Client{Timeout: 30 * time.Second},
		onUnauthorized: func() {},
		validate:       validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.baseURL }

// LoggedIn reports whether a session token is stored.
func (c *Client) LoggedIn() bool {
	return c.creds != nil && c.creds.Token() != ""
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	defer metrics.Timer(metrics.RoadmapFetch)()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.creds != nil {
		if tok := c.creds.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		debug.Log("api: %s %s: %v", method, path, err)
		return &Error{Status: 0, Message: NetworkErrorMessage, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Status: 0, Message: NetworkErrorMessage, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.failure(path, resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) failure(path string, status int, raw []byte) error {
	var data map[string]any
	_ = json.Unmarshal(raw, &data)

	apiErr := &Error{Status: status, Message: "Request failed", Data: data}
	if msg, ok := data["error"].(string); ok && msg != "" {
		apiErr.Message = msg
	}

	if status == http.StatusUnauthorized && !strings.HasPrefix(path, "/auth/") {
		apiErr.Expired = true
		if c.creds != nil {
			if err := c.creds.ClearSession(); err != nil {
				debug.Log("api: clearing expired session: %v", err)
			}
		}
		c.onUnauthorized()
	}
	debug.Log("api: %s -> %d %s", path, status, apiErr.Message)
	return apiErr
}
