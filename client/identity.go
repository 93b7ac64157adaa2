package client

import (
	"context"
	"net/http"
	"time"

	"bazaar/internal/rbac"
)

type Business struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type User struct {
	ID              int64     `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	Role            rbac.Role `json:"role"`
	IsBusinessAdmin bool      `json:"is_business_admin"`
	Business        *Business `json:"business,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CurrentUser resolves the session's identity, cached for the lifetime of
// the credential pair. A token that cannot be resolved clears the pair so
// the client never sits in an authenticated-looking state with a dead
// credential.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	c.mu.Lock()
	cached := c.identity
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	if !c.Authenticated() {
		return nil, ErrSessionExpired
	}

	// A garbage or revoked token surfaces here as ErrSessionExpired after
	// do() has already torn the pair down; that is the self-healing path.
	var user User
	if err := c.doJSON(ctx, http.MethodGet, "/v1/auth/me", nil, &user); err != nil {
		return nil, err
	}

	c.mu.Lock()
	// The pair may have been cleared while the call was in flight; do not
	// resurrect an identity for cleared credentials.
	if c.access != "" {
		c.identity = &user
	}
	c.mu.Unlock()

	return &user, nil
}

// requireCapability is the local permission gate. With a warm identity
// cache it answers without any network traffic; the server still enforces
// the same table authoritatively.
func (c *Client) requireCapability(ctx context.Context, capability rbac.Capability) error {
	user, err := c.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if !rbac.Can(user.Role, capability) {
		return ErrPermissionDenied
	}
	return nil
}

// Can reports whether the current session may perform the capability. It is
// what drives UI affordances (hiding buttons the role cannot use).
func (c *Client) Can(ctx context.Context, capability rbac.Capability) bool {
	user, err := c.CurrentUser(ctx)
	if err != nil {
		return false
	}
	return rbac.Can(user.Role, capability)
}

// Roles lists the assignable roles and their capabilities.
func (c *Client) Roles(ctx context.Context) ([]RoleInfo, error) {
	var roles []RoleInfo
	if err := c.doJSON(ctx, http.MethodGet, "/v1/auth/roles", nil, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

type RoleInfo struct {
	Name         rbac.Role         `json:"name"`
	Capabilities []rbac.Capability `json:"capabilities"`
}
