// Package client is the dashboard-side SDK for the bazaar API. It owns the
// session lifecycle (token pair, transparent refresh-and-retry, identity
// cache) and exposes typed operations for the product workflow and the
// assistant chat. Capability checks run locally through the shared role
// table before a byte goes on the wire; the server remains the
// authoritative guard.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"go.uber.org/zap"
)

const defaultRefreshTimeout = 10 * time.Second

type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.SugaredLogger
	tokens  TokenStore

	// refreshTimeout bounds the refresh call; an unbounded hang there would
	// stall every request queued behind it.
	refreshTimeout time.Duration

	// mu guards the in-memory pair and the identity cache. The two are
	// always cleared together.
	mu       sync.Mutex
	access   string
	refresh  string
	identity *User

	refreshGroup singleflight.Group
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithTokenStore(store TokenStore) Option {
	return func(c *Client) { c.tokens = store }
}

func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Client) { c.refreshTimeout = d }
}

// New builds a client for the API at baseURL and loads any previously
// persisted credential pair, so a session survives a restart.
func New(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &http.Client{Timeout: 30 * time.Second},
		logger:         zap.NewNop().Sugar(),
		tokens:         NewMemoryTokenStore(),
		refreshTimeout: defaultRefreshTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	access, refresh, err := c.tokens.Load()
	if err != nil {
		return nil, fmt.Errorf("loading stored tokens: %w", err)
	}
	c.access, c.refresh = access, refresh

	return c, nil
}

// Authenticated reports whether a credential pair is currently held.
func (c *Client) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.access != "" && c.refresh != ""
}

// terminate drops the pair and the cached identity in one critical section
// so a resolved identity never outlives its credentials.
func (c *Client) terminate() {
	c.mu.Lock()
	c.access, c.refresh, c.identity = "", "", nil
	c.mu.Unlock()

	if err := c.tokens.Clear(); err != nil {
		c.logger.Warnw("clearing token store", "error", err)
	}
}

func (c *Client) currentAccess() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.access
}

// newRequest builds a JSON request. The body is marshalled up front so a
// retry can resend it.
func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, []byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, payload, nil
}

// do sends the request with the bearer attached, performing at most one
// refresh-and-retry when the access token is rejected. A second rejection
// after the retry tears the session down instead of looping.
func (c *Client) do(req *http.Request, payload []byte, out any) error {
	access := c.currentAccess()
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode == http.StatusUnauthorized && access != "" {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		// A request that raced a finished refresh retries with the token
		// that refresh produced instead of starting another one.
		newAccess := c.currentAccess()
		if newAccess == "" || newAccess == access {
			newAccess, err = c.refreshAccess(req.Context())
			if err != nil {
				c.logger.Infow("token refresh failed, session terminated", "error", err)
				c.terminate()
				return ErrSessionExpired
			}
		}

		retry := req.Clone(req.Context())
		retry.Body = io.NopCloser(bytes.NewReader(payload))
		retry.ContentLength = int64(len(payload))
		retry.Header.Set("Authorization", "Bearer "+newAccess)

		resp, err = c.http.Do(retry)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
		if resp.StatusCode == http.StatusUnauthorized {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			c.terminate()
			return ErrSessionExpired
		}
	}

	return decodeResponse(resp, out)
}

// doJSON is the one-shot helper behind every typed operation.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	req, payload, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	return c.do(req, payload, out)
}

// refreshAccess exchanges the refresh token for a new access token.
// Concurrent callers share a single in-flight exchange; everyone queued
// behind it resumes with the token that exchange produced.
func (c *Client) refreshAccess(ctx context.Context) (string, error) {
	result, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		c.mu.Lock()
		refresh := c.refresh
		c.mu.Unlock()
		if refresh == "" {
			return nil, fmt.Errorf("no refresh token")
		}

		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
		defer cancel()

		req, _, err := c.newRequest(rctx, http.MethodPost, "/v1/auth/refresh", map[string]string{"refresh": refresh})
		if err != nil {
			return nil, err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}

		var body struct {
			Access string `json:"access"`
		}
		if err := decodeResponse(resp, &body); err != nil {
			return nil, err
		}
		if body.Access == "" {
			return nil, fmt.Errorf("refresh response missing access token")
		}

		c.mu.Lock()
		c.access = body.Access
		c.mu.Unlock()

		if err := c.tokens.Save(body.Access, refresh); err != nil {
			c.logger.Warnw("persisting refreshed token", "error", err)
		}

		c.logger.Debugw("access token refreshed")
		return body.Access, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

type apiEnvelope struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}

// decodeResponse maps the server's error envelope onto the client error
// taxonomy and unmarshals successful bodies into out.
func decodeResponse(resp *http.Response, out any) error {
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	var envelope apiEnvelope
	_ = json.NewDecoder(resp.Body).Decode(&envelope)

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return &ValidationError{Message: envelope.Message, Fields: envelope.Fields}
	case http.StatusUnauthorized:
		return ErrSessionExpired
	case http.StatusForbidden:
		return ErrPermissionDenied
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrInvalidTransition, envelope.Message)
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %s", ErrUpstreamUnavailable, envelope.Message)
	default:
		return fmt.Errorf("%w: unexpected status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}
}
