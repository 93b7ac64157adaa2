package client

import (
	"context"
	"fmt"
	"net/http"

	"bazaar/internal/rbac"
)

// Register creates a new business together with its bootstrap admin user
// and returns that user. It does not log the session in.
func (c *Client) Register(ctx context.Context, username, email, password, businessName string) (*User, error) {
	body := map[string]string{
		"username":      username,
		"email":         email,
		"password":      password,
		"business_name": businessName,
	}

	var user User
	if err := c.doJSON(ctx, http.MethodPost, "/v1/auth/register", body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListMembers lists every user of the caller's business. Admin only.
func (c *Client) ListMembers(ctx context.Context) ([]User, error) {
	if err := c.requireCapability(ctx, rbac.CapManageUsers); err != nil {
		return nil, err
	}

	var members []User
	if err := c.doJSON(ctx, http.MethodGet, "/v1/auth/users", nil, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// InviteMember creates a user in the caller's business; the backend emails
// the temporary password.
func (c *Client) InviteMember(ctx context.Context, username, email string, role rbac.Role) (*User, error) {
	if err := c.requireCapability(ctx, rbac.CapManageUsers); err != nil {
		return nil, err
	}
	if !rbac.Valid(role) {
		return nil, &ValidationError{
			Message: "validation failed",
			Fields:  map[string]string{"role": fmt.Sprintf("unknown role %q", role)},
		}
	}

	body := map[string]string{
		"username": username,
		"email":    email,
		"role":     string(role),
	}

	var user User
	if err := c.doJSON(ctx, http.MethodPost, "/v1/auth/users", body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

type UpdateMemberInput struct {
	Username *string    `json:"username,omitempty"`
	Email    *string    `json:"email,omitempty"`
	Role     *rbac.Role `json:"role,omitempty"`
	Password *string    `json:"password,omitempty"`
}

func (c *Client) UpdateMember(ctx context.Context, id int64, input UpdateMemberInput) (*User, error) {
	if err := c.requireCapability(ctx, rbac.CapManageUsers); err != nil {
		return nil, err
	}

	var user User
	if err := c.doJSON(ctx, http.MethodPatch, fmt.Sprintf("/v1/auth/users/%d", id), input, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) DeleteMember(ctx context.Context, id int64) error {
	if err := c.requireCapability(ctx, rbac.CapManageUsers); err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/v1/auth/users/%d", id), nil, nil)
}
