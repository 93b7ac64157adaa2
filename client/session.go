package client

import (
	"context"
	"net/http"
)

// Login exchanges credentials for a token pair, persists it and resolves
// the caller's identity. On rejection the client stays unauthenticated and
// nothing is stored.
func (c *Client) Login(ctx context.Context, username, password string) (*User, error) {
	req, _, err := c.newRequest(ctx, http.MethodPost, "/v1/auth/login", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	// Deliberately bypasses do(): a 401 here means bad credentials, not an
	// expired session, and must never trigger a refresh.
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		return nil, ErrInvalidCredentials
	}

	var pair struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	if err := decodeResponse(resp, &pair); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.access, c.refresh, c.identity = pair.Access, pair.Refresh, nil
	c.mu.Unlock()

	if err := c.tokens.Save(pair.Access, pair.Refresh); err != nil {
		c.logger.Warnw("persisting token pair", "error", err)
	}

	c.logger.Debugw("logged in", "username", username)
	return c.CurrentUser(ctx)
}

// Logout revokes the refresh token server-side on a best-effort basis, then
// clears the pair and the identity cache. It never fails.
func (c *Client) Logout(ctx context.Context) {
	if c.Authenticated() {
		req, payload, err := c.newRequest(ctx, http.MethodPost, "/v1/auth/logout", nil)
		if err == nil {
			if err := c.do(req, payload, nil); err != nil {
				c.logger.Debugw("server-side logout failed", "error", err)
			}
		}
	}

	c.terminate()
	c.logger.Debugw("logged out")
}
