package supabase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	maxResponseBytes  = 8 << 20  // 8 MiB
	maxErrorBodyBytes = 32 << 10 // 32 KiB
)

// Client is the backend REST client. It owns the session store and derives
// the Authorization header from the live session at call time.
type Client struct {
	config   Config
	sessions *SessionStore
	http     *http.Client
	log      zerolog.Logger

	// Derived values
	baseURL    string
	restURL    string
	authURL    string
	storageURL string
}

// New creates a new client.
func New(cfg Config, log zerolog.Logger) (*Client, error) {
	if cfg.ProjectURL == "" {
		return nil, fmt.Errorf("project URL is required")
	}
	if cfg.AnonKey == "" {
		return nil, fmt.Errorf("anon key is required")
	}

	baseURL := strings.TrimRight(cfg.ProjectURL, "/")
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid project URL: %w", err)
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		config:     cfg,
		sessions:   NewSessionStore(cfg.Sessions),
		http:       &http.Client{Timeout: cfg.Timeout},
		log:        log,
		baseURL:    baseURL,
		restURL:    baseURL + "/rest/v1",
		authURL:    baseURL + "/auth/v1",
		storageURL: baseURL + "/storage/v1",
	}, nil
}

// Sessions returns the session store.
func (c *Client) Sessions() *SessionStore {
	return c.sessions
}

// Auth returns the auth client.
func (c *Client) Auth() *AuthClient {
	return &AuthClient{client: c}
}

// Storage returns the storage client.
func (c *Client) Storage() *StorageClient {
	return &StorageClient{client: c}
}

// From starts a query builder for a table.
func (c *Client) From(table string) QueryBuilder {
	return QueryBuilder{
		client:  c,
		table:   table,
		method:  http.MethodGet,
		columns: "*",
	}
}

// AnonKey returns the anonymous API key.
func (c *Client) AnonKey() string {
	return c.config.AnonKey
}

// =============================================================================
// Internal HTTP Methods
// =============================================================================

// request performs an HTTP request. The Authorization bearer is resolved from
// the session store at call time: the session token when one is live, the
// anonymous key otherwise.
func (c *Client) request(ctx context.Context, method, urlStr string, body []byte, headers map[string]string) ([]byte, int, http.Header, error) {
	token := c.sessions.Token()
	if token == "" {
		token = c.config.AnonKey
	}
	return c.do(ctx, method, urlStr, body, headers, token)
}

// requestAnonymous performs an HTTP request with the anonymous key only,
// ignoring any live session. Auth endpoints use this: signup and token
// exchange must never carry a stale user bearer.
func (c *Client) requestAnonymous(ctx context.Context, method, urlStr string, body []byte, headers map[string]string) ([]byte, int, http.Header, error) {
	return c.do(ctx, method, urlStr, body, headers, c.config.AnonKey)
}

func (c *Client) do(ctx context.Context, method, urlStr string, body []byte, headers map[string]string, token string) ([]byte, int, http.Header, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, reqBody)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.config.AnonKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", requestID)
	for k, v := range c.config.DefaultHeaders {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Str("request_id", requestID).Str("method", method).Str("url", urlStr).Err(err).Msg("request failed")
		return nil, 0, nil, transportError(err)
	}
	defer resp.Body.Close()

	limit := int64(maxResponseBytes)
	if resp.StatusCode >= 400 {
		limit = maxErrorBodyBytes
	}
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, resp.StatusCode, resp.Header, transportError(err)
	}

	c.log.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("url", urlStr).
		Int("status", resp.StatusCode).
		Msg("request")

	return respBody, resp.StatusCode, resp.Header, nil
}
