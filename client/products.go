package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"bazaar/internal/catalog"
	"bazaar/internal/rbac"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID            int64           `json:"id"`
	Reference     string          `json:"reference"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	Status        catalog.Status  `json:"status"`
	BusinessID    int64           `json:"business"`
	BusinessName  string          `json:"business_name"`
	CreatedByID   *int64          `json:"created_by"`
	CreatedByName *string         `json:"created_by_name"`
	ApprovedByID  *int64          `json:"approved_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	ApprovedAt    *time.Time      `json:"approved_at"`
}

// ProductPage is one page of a listing in the count/next/previous/results
// shape the API paginates with.
type ProductPage struct {
	Count    int       `json:"count"`
	Next     *string   `json:"next"`
	Previous *string   `json:"previous"`
	Results  []Product `json:"results"`
}

// ProductFilters narrows a listing. Zero values mean "not filtered".
type ProductFilters struct {
	Status   catalog.Status
	Search   string
	Business string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     string
	Page     int
}

func (f ProductFilters) query() string {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Business != "" {
		q.Set("business", f.Business)
	}
	if f.MinPrice != nil {
		q.Set("min_price", f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		q.Set("max_price", f.MaxPrice.String())
	}
	if f.Sort != "" {
		q.Set("sort", f.Sort)
	}
	if f.Page > 1 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

type CreateProductInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	// Status may be draft or pending_approval; empty means draft.
	Status *catalog.Status `json:"status,omitempty"`
}

type UpdateProductInput struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Status      *catalog.Status  `json:"status,omitempty"`
}

// ListPublicProducts is the storefront listing: approved products from
// every business, no session required.
func (c *Client) ListPublicProducts(ctx context.Context, filters ProductFilters) (*ProductPage, error) {
	var page ProductPage
	if err := c.doJSON(ctx, http.MethodGet, "/v1/products"+filters.query(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ListInternalProducts is the dashboard listing: the caller's business's
// products across every status.
func (c *Client) ListInternalProducts(ctx context.Context, filters ProductFilters) (*ProductPage, error) {
	if _, err := c.CurrentUser(ctx); err != nil {
		return nil, err
	}

	var page ProductPage
	if err := c.doJSON(ctx, http.MethodGet, "/v1/products/list_internal"+filters.query(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ProductStats returns per-status counts for the caller's business plus a
// "total" entry, for the dashboard summary cards.
func (c *Client) ProductStats(ctx context.Context) (map[string]int, error) {
	if _, err := c.CurrentUser(ctx); err != nil {
		return nil, err
	}

	var stats map[string]int
	if err := c.doJSON(ctx, http.MethodGet, "/v1/products/stats", nil, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (c *Client) GetProduct(ctx context.Context, id int64) (*Product, error) {
	var product Product
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/v1/products/%d", id), nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) CreateProduct(ctx context.Context, input CreateProductInput) (*Product, error) {
	if err := c.requireCapability(ctx, rbac.CapCreate); err != nil {
		return nil, err
	}
	if input.Price.IsNegative() {
		return nil, &ValidationError{
			Message: "validation failed",
			Fields:  map[string]string{"price": "must not be negative"},
		}
	}

	var product Product
	if err := c.doJSON(ctx, http.MethodPost, "/v1/products", input, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id int64, input UpdateProductInput) (*Product, error) {
	if err := c.requireCapability(ctx, rbac.CapEdit); err != nil {
		return nil, err
	}
	// Approval has its own endpoint and capability; the edit path can never
	// reach approved.
	if input.Status != nil && *input.Status == catalog.StatusApproved {
		return nil, ErrInvalidTransition
	}

	var product Product
	if err := c.doJSON(ctx, http.MethodPatch, fmt.Sprintf("/v1/products/%d", id), input, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// SubmitProduct moves a draft (or a rejected product being resubmitted)
// into the review queue.
func (c *Client) SubmitProduct(ctx context.Context, id int64) (*Product, error) {
	status := catalog.StatusPendingApproval
	return c.UpdateProduct(ctx, id, UpdateProductInput{Status: &status})
}

// RejectProduct sends a pending product back to its editors.
func (c *Client) RejectProduct(ctx context.Context, id int64) (*Product, error) {
	if err := c.requireCapability(ctx, rbac.CapApprove); err != nil {
		return nil, err
	}

	status := catalog.StatusRejected
	var product Product
	input := UpdateProductInput{Status: &status}
	if err := c.doJSON(ctx, http.MethodPatch, fmt.Sprintf("/v1/products/%d", id), input, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// ApproveProduct publishes a pending product. Requires the approve
// capability; anything not pending_approval comes back as ErrInvalidTransition.
func (c *Client) ApproveProduct(ctx context.Context, id int64) (*Product, error) {
	if err := c.requireCapability(ctx, rbac.CapApprove); err != nil {
		return nil, err
	}

	var product Product
	body := map[string]bool{"approved": true}
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/v1/products/%d/approve", id), body, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	if err := c.requireCapability(ctx, rbac.CapDelete); err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/v1/products/%d", id), nil, nil)
}
