package main

import (
	"context"
	"net/http"
	"testing"
	"time"

	"bazaar/internal/catalog"
	"bazaar/internal/params"
	"bazaar/internal/rbac"
	"bazaar/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProduct(id, businessID int64, status catalog.Status) *store.Product {
	return &store.Product{
		ID:          id,
		Reference:   "REF00001",
		Name:        "Walnut Desk",
		Description: "A sturdy desk made of walnut.",
		Price:       decimal.NewFromInt(250),
		Status:      status,
		BusinessID:  businessID,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}

func TestListPublicProducts(t *testing.T) {
	t.Run("a status filter in the query string is discarded", func(t *testing.T) {
		var gotFilter store.ProductFilter
		st := newTestStorage()
		st.Products = &productsStub{
			listPublicFn: func(ctx context.Context, f store.ProductFilter, limit, offset int) ([]store.Product, int, error) {
				gotFilter = f
				return []store.Product{*sampleProduct(1, 1, catalog.StatusApproved)}, 1, nil
			},
		}
		app := newTestApplication(t, st)

		req := jsonRequest(t, http.MethodGet, "/v1/products/?status=draft&search=desk", nil)
		rr := executeRequest(app, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, gotFilter.Status)
		assert.Equal(t, "desk", gotFilter.Search)
	})

	t.Run("responses use the count/next/previous/results envelope", func(t *testing.T) {
		products := make([]store.Product, 15)
		for i := range products {
			products[i] = *sampleProduct(int64(i+1), 1, catalog.StatusApproved)
		}
		st := newTestStorage()
		st.Products = &productsStub{
			listPublicFn: func(ctx context.Context, f store.ProductFilter, limit, offset int) ([]store.Product, int, error) {
				return products, 40, nil
			},
		}
		app := newTestApplication(t, st)

		req := jsonRequest(t, http.MethodGet, "/v1/products/?page=2", nil)
		rr := executeRequest(app, req)

		require.Equal(t, http.StatusOK, rr.Code)

		var page params.Page
		decodeBody(t, rr, &page)
		assert.Equal(t, 40, page.Count)
		require.NotNil(t, page.Next)
		assert.Contains(t, *page.Next, "page=3")
		require.NotNil(t, page.Previous)
		assert.Contains(t, *page.Previous, "page=1")
	})
}

func TestListInternalProducts(t *testing.T) {
	editor := testUser(2, 7, rbac.RoleEditor)

	var gotBusinessID int64
	var gotFilter store.ProductFilter
	st := newTestStorage()
	st.Users = &usersStub{
		getByIDFn: func(ctx context.Context, id int64) (*store.User, error) { return editor, nil },
	}
	st.Products = &productsStub{
		listByBusinessFn: func(ctx context.Context, businessID int64, f store.ProductFilter, limit, offset int) ([]store.Product, int, error) {
			gotBusinessID = businessID
			gotFilter = f
			return nil, 0, nil
		},
	}
	app := newTestApplication(t, st)

	req := jsonRequest(t, http.MethodGet, "/v1/products/list_internal/?status=draft", nil)
	req.Header.Set("Authorization", bearerFor(t, app, editor))
	rr := executeRequest(app, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(7), gotBusinessID)
	assert.Equal(t, catalog.StatusDraft, gotFilter.Status)
}

func TestProductStats(t *testing.T) {
	admin := testUser(1, 3, rbac.RoleAdmin)

	st := newTestStorage()
	st.Users = &usersStub{
		getByIDFn: func(ctx context.Context, id int64) (*store.User, error) { return admin, nil },
	}
	st.Products = &productsStub{
		statusCountsFn: func(ctx context.Context, businessID int64) (map[catalog.Status]int, error) {
			return map[catalog.Status]int{
				catalog.StatusDraft:           2,
				catalog.StatusPendingApproval: 1,
				catalog.StatusApproved:        4,
				catalog.StatusRejected:        0,
			}, nil
		},
	}
	app := newTestApplication(t, st)

	req := jsonRequest(t, http.MethodGet, "/v1/products/stats/", nil)
	req.Header.Set("Authorization", bearerFor(t, app, admin))
	rr := executeRequest(app, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var stats map[string]int
	decodeBody(t, rr, &stats)
	assert.Equal(t, 2, stats["draft"])
	assert.Equal(t, 1, stats["pending_approval"])
	assert.Equal(t, 4, stats["approved"])
	assert.Equal(t, 0, stats["rejected"])
	assert.Equal(t, 7, stats["total"])
}

func TestGetProduct(t *testing.T) {
	owner := testUser(1, 1, rbac.RoleViewer)
	stranger := testUser(9, 2, rbac.RoleAdmin)

	newApp := func(product *store.Product) *application {
		st := newTestStorage()
		st.Users = &usersStub{
			getByIDFn: func(ctx context.Context, id int64) (*store.User, error) {
				switch id {
				case owner.ID:
					return owner, nil
				case stranger.ID:
					return stranger, nil
				}
				return nil, store.ErrNotFound
			},
		}
		st.Products = &productsStub{
			getByIDFn: func(ctx context.Context, id int64) (*store.Product, error) {
				if id == product.ID {
					return product, nil
				}
				return nil, store.ErrNotFound
			},
		}
		return newTestApplication(t, st)
	}

	t.Run("approved products are public", func(t *testing.T) {
		app := newApp(sampleProduct(5, 1, catalog.StatusApproved))

		req := jsonRequest(t, http.MethodGet, "/v1/products/5", nil)
		rr := executeRequest(app, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("drafts are invisible without a token", func(t *testing.T) {
		app := newApp(sampleProduct(5, 1, catalog.StatusDraft))

		req := jsonRequest(t, http.MethodGet, "/v1/products/5", nil)
		rr := executeRequest(app, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("drafts read as absent from another business", func(t *testing.T) {
		app := newApp(sampleProduct(5, 1, catalog.StatusDraft))

		req := jsonRequest(t, http.MethodGet, "/v1/products/5", nil)
		req.Header.Set("Authorization", bearerFor(t, app, stranger))
		rr := executeRequest(app, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("drafts are visible inside their business", func(t *testing.T) {
		app := newApp(sampleProduct(5, 1, catalog.StatusDraft))

		req := jsonRequest(t, http.MethodGet, "/v1/products/5", nil)
		req.Header.Set("Authorization", bearerFor(t, app, owner))
		rr := executeRequest(app, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestCreateProduct(t *testing.T) {
	editor := testUser(2, 1, rbac.RoleEditor)
	viewer := testUser(3, 1, rbac.RoleViewer)

	newApp := func(products *productsStub) *application {
		st := newTestStorage()
		st.Users = &usersStub{
			getByIDFn: func(ctx context.Context, id int64) (*store.User, error) {
				switch id {
				case editor.ID:
					return editor, nil
				case viewer.ID:
					return viewer, nil
				}
				return nil, store.ErrNotFound
			},
		}
		if products != nil {
			st.Products = products
		}
		return newTestApplication(t, st)
	}

	t.Run("defaults to draft and stamps the creator", func(t *testing.T) {
		var created *store.Product
		app := newApp(&productsStub{
			createFn: func(ctx context.Context, p *store.Product) error {
				p.ID = 10
				p.Reference = "REF00010"
				created = p
				return nil
			},
		})

		req := jsonRequest(t, http.MethodPost, "/v1/products/", map[string]any{
			"name":        "Walnut Desk",
			"description": "A sturdy desk made of walnut.",
			"price":       "250.00",
		})
		req.Header.Set("Authorization", bearerFor(t, app, editor))
		rr := executeRequest(app, req)

		require.Equal(t, http.StatusCreated, rr.Code)
		require.NotNil(t, created)
		assert.Equal(t, catalog.StatusDraft, created.Status)
		assert.Equal(t, int64(1), created.BusinessID)
		require.NotNil(t, created.CreatedByID)
		assert.Equal(t, editor.ID, *created.CreatedByID)
	})

	t.Run("may start directly in pending_approval", func(t *testing.T) {
		var created *store.Product
		app := newApp(&productsStub{
			createFn: func(ctx context.Context, p *store.Product) error {
				created = p
				return nil
			},
		})

		req := jsonRequest(t, http.MethodPost, "/v1/products/", map[string]any{
			"name":        "Walnut Desk",
			"description": "A sturdy desk made of walnut.",
			"price":       "250.00",
			"status":      "pending_approval",
		})
		req.Header.Set("Authorization", bearerFor(t, app, editor))
		rr := executeRequest(app, req)

		require.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, catalog.StatusPendingApproval, created.Status)
	})

	t.Run("cannot be born approved", func(t *testing.T) {
		app := newApp(nil)

		req := jsonRequest(t, http.MethodPost, "/v1/products/", map[string]any{
			"name":        "Walnut Desk",
			"description": "A sturdy desk made of walnut.",
			"price":       "250.00",
			"status":      "approved",
		})
		req.Header.Set("Authorization", bearerFor(t, app, editor))
		rr := executeRequest(app, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("negative price is a field error", func(t *testing.T) {
		app := newApp(nil)

		req := jsonRequest(t, http.MethodPost, "/v1/products/", map[string]any{
			"name":        "Walnut Desk",
			"description": "A sturdy desk made of walnut.",
			"price":       "-1",
		})
		req.Header.Set("Authorization", bearerFor(t, app, editor))
		rr := executeRequest(app, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "price")
	})

	t.Run("viewers are forbidden", func(t *testing.T) {
		app := newApp(nil)

		req := jsonRequest(t, http.MethodPost, "/v1/products/", map[string]any{
			"name":        "Walnut Desk",
			"description": "A sturdy desk made of walnut.",
			"price":       "250.00",
		})
		req.Header.Set("Authorization", bearerFor(t, app, viewer))
		rr := executeRequest(app, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}

func TestUpdateProduct(t *testing.T) {
	editor := testUser(2, 1, rbac.RoleEditor)

	newApp := func(product *store.Product, products *productsStub) *application {
		if products == nil {
			products = &productsStub{}
		}
		if products.getByIDFn == nil {
			products.getByIDFn = func(ctx context.Context, id int64) (*store.Product, error) {
				if id == product.ID {
					return product, nil
				}
				return nil, store.ErrNotFound
			}
		}
		st := newTestStorage()
		st.Users = &usersStub{
			getByIDFn: func(ctx context.Context, id int64) (*store.User, error) { return editor, nil },
		}
		st.Products = products
		return newTestApplication(t, st)
	}

	t.Run("draft to pending_approval", func(t *testing.T) {
		product := sampleProduct(5, 1, catalog.StatusDraft)
		app := newApp(product, nil)

		req := jsonRequest(t, http.MethodPatch, "/v1/products/5/", map[string]any{"status": "pending_approval"})
		req.Header.Set("Authorization", bearerFor(t, app, editor))
		rr := executeRequest(app, req)

		require.Equal(t, http.StatusOK, rr.Code)

		var body store.Product
		decodeBody(t, rr, &body)
		assert.Equal(t, catalog.StatusPendingApproval, body.Status)
	})

	t.Run("status approved is rejected on the edit path", func(t *testing.T) {
		product := sampleProduct(5, 1, catalog.StatusPendingApproval)
		app := newApp(product, nil)

		req := jsonRequest(t, http.MethodPatch, "/v1/products/5/", map[string]any{"status": "approved"})
		req.Header.Set("Authorization", bearerFor(t, app, editor))
		rr := executeRequest(app, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("rejected can be resubmitted", func(t *testing.T) {
		product := sampleProduct(5, 1, catalog.StatusRejected)
		app := newApp(product, nil)

		req := jsonRequest(t, http.MethodPatch, "/v1/products/5/", map[string]any{"status": "pending_approval"})
		req.Header.Set("Authorization", bearerFor(t, app, editor))
		rr := executeRequest(app, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("rejected cannot jump back to draft", func(t *testing.T) {
		product := sampleProduct(5, 1, catalog.StatusRejected)
		app := newApp(product, nil)

		req := jsonRequest(t, http.MethodPatch, "/v1/products/5/", map[string]any{"status": "draft"})
		req.Header.Set("Authorization", bearerFor(t, app, editor))
		rr := executeRequest(app, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("another business's product reads as absent", func(t *testing.T) {
		product := sampleProduct(5, 99, catalog.StatusDraft)
		app := newApp(product, nil)

		req := jsonRequest(t, http.MethodPatch, "/v1/products/5/", map[string]any{"name": "New Name"})
		req.Header.Set("Authorization", bearerFor(t, app, editor))
		rr := executeRequest(app, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestApproveProduct(t *testing.T) {
	approver := testUser(4, 1, rbac.RoleApprover)
	editor := testUser(2, 1, rbac.RoleEditor)

	newApp := func(product *store.Product, products *productsStub) *application {
		if products == nil {
			products = &productsStub{}
		}
		if products.getByIDFn == nil {
			products.getByIDFn = func(ctx context.Context, id int64) (*store.Product, error) {
				if id == product.ID {
					return product, nil
				}
				return nil, store.ErrNotFound
			}
		}
		st := newTestStorage()
		st.Users = &usersStub{
			getByIDFn: func(ctx context.Context, id int64) (*store.User, error) {
				switch id {
				case approver.ID:
					return approver, nil
				case editor.ID:
					return editor, nil
				}
				return nil, store.ErrNotFound
			},
		}
		st.Products = products
		return newTestApplication(t, st)
	}

	t.Run("pending product is approved and the approver recorded", func(t *testing.T) {
		product := sampleProduct(5, 1, catalog.StatusPendingApproval)
		var gotApprover int64
		app := newApp(product, &productsStub{
			approveFn: func(ctx context.Context, id, approverID int64) error {
				gotApprover = approverID
				product.Status = catalog.StatusApproved
				product.ApprovedByID = &approverID
				return nil
			},
		})

		req := jsonRequest(t, http.MethodPost, "/v1/products/5/approve/", map[string]any{"approved": true})
		req.Header.Set("Authorization", bearerFor(t, app, approver))
		rr := executeRequest(app, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, approver.ID, gotApprover)

		var body store.Product
		decodeBody(t, rr, &body)
		assert.Equal(t, catalog.StatusApproved, body.Status)
	})

	t.Run("draft cannot be approved", func(t *testing.T) {
		app := newApp(sampleProduct(5, 1, catalog.StatusDraft), nil)

		req := jsonRequest(t, http.MethodPost, "/v1/products/5/approve/", map[string]any{"approved": true})
		req.Header.Set("Authorization", bearerFor(t, app, approver))
		rr := executeRequest(app, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("approving twice conflicts", func(t *testing.T) {
		app := newApp(sampleProduct(5, 1, catalog.StatusApproved), nil)

		req := jsonRequest(t, http.MethodPost, "/v1/products/5/approve/", map[string]any{"approved": true})
		req.Header.Set("Authorization", bearerFor(t, app, approver))
		rr := executeRequest(app, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("approved must be true", func(t *testing.T) {
		app := newApp(sampleProduct(5, 1, catalog.StatusPendingApproval), nil)

		req := jsonRequest(t, http.MethodPost, "/v1/products/5/approve/", map[string]any{"approved": false})
		req.Header.Set("Authorization", bearerFor(t, app, approver))
		rr := executeRequest(app, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("editors lack the approve capability", func(t *testing.T) {
		app := newApp(sampleProduct(5, 1, catalog.StatusPendingApproval), nil)

		req := jsonRequest(t, http.MethodPost, "/v1/products/5/approve/", map[string]any{"approved": true})
		req.Header.Set("Authorization", bearerFor(t, app, editor))
		rr := executeRequest(app, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}

func TestDeleteProduct(t *testing.T) {
	editor := testUser(2, 1, rbac.RoleEditor)

	t.Run("scoped to the caller's business", func(t *testing.T) {
		var gotID, gotBusinessID int64
		st := newTestStorage()
		st.Users = &usersStub{
			getByIDFn: func(ctx context.Context, id int64) (*store.User, error) { return editor, nil },
		}
		st.Products = &productsStub{
			deleteFn: func(ctx context.Context, id, businessID int64) error {
				gotID, gotBusinessID = id, businessID
				return nil
			},
		}
		app := newTestApplication(t, st)

		req := jsonRequest(t, http.MethodDelete, "/v1/products/5/", nil)
		req.Header.Set("Authorization", bearerFor(t, app, editor))
		rr := executeRequest(app, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, int64(5), gotID)
		assert.Equal(t, int64(1), gotBusinessID)
	})

	t.Run("missing product is a 404", func(t *testing.T) {
		st := newTestStorage()
		st.Users = &usersStub{
			getByIDFn: func(ctx context.Context, id int64) (*store.User, error) { return editor, nil },
		}
		st.Products = &productsStub{
			deleteFn: func(ctx context.Context, id, businessID int64) error {
				return store.ErrNotFound
			},
		}
		app := newTestApplication(t, st)

		req := jsonRequest(t, http.MethodDelete, "/v1/products/5/", nil)
		req.Header.Set("Authorization", bearerFor(t, app, editor))
		rr := executeRequest(app, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
