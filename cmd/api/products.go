package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"bazaar/internal/catalog"
	"bazaar/internal/params"
	"bazaar/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
)

type CreateProductPayload struct {
	Name        string          `json:"name" validate:"required,min=3,max=255"`
	Description string          `json:"description" validate:"required,min=10"`
	Price       decimal.Decimal `json:"price"`
	Status      *string         `json:"status"`
}

type UpdateProductPayload struct {
	Name        *string          `json:"name" validate:"omitempty,min=3,max=255"`
	Description *string          `json:"description" validate:"omitempty,min=10"`
	Price       *decimal.Decimal `json:"price"`
	Status      *string          `json:"status"`
}

// fieldErrors flattens validator output into a field -> message map so the
// form layer can render per-field messages.
func fieldErrors(err error) map[string]string {
	fields := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields[fe.Field()] = fmt.Sprintf("failed on %q validation", fe.Tag())
		}
	}
	return fields
}

func parseProductFilter(q url.Values) store.ProductFilter {
	f := store.ProductFilter{
		Search:   q.Get("search"),
		Business: q.Get("business"),
		Sort:     q.Get("sort"),
	}
	if status := q.Get("status"); status != "" && catalog.Valid(catalog.Status(status)) {
		f.Status = catalog.Status(status)
	}
	if raw := q.Get("min_price"); raw != "" {
		if d, err := decimal.NewFromString(raw); err == nil {
			f.MinPrice = &d
		}
	}
	if raw := q.Get("max_price"); raw != "" {
		if d, err := decimal.NewFromString(raw); err == nil {
			f.MaxPrice = &d
		}
	}
	return f
}

// listPublicProductsHandler godoc
//
//	@Summary		Public product listing
//	@Description	Storefront listing of approved products from every business. A status filter in the query string is ignored.
//	@Tags			products
//	@Produce		json
//	@Param			search		query		string	false	"Name/description search"
//	@Param			business	query		string	false	"Business name filter"
//	@Param			sort		query		string	false	"created_at, price or name, prefix with - for descending"
//	@Param			page		query		int		false	"Page number"
//	@Success		200			{object}	params.Page
//	@Router			/products [get]
func (app *application) listPublicProductsHandler(w http.ResponseWriter, r *http.Request) {
	pagination := params.ParsePagination(r.URL.Query())
	filter := parseProductFilter(r.URL.Query())
	// Whatever the query string says, the public window is approved-only.
	filter.Status = ""

	products, total, err := app.store.Products.ListPublic(r.Context(), filter, pagination.Limit, pagination.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if products == nil {
		products = []store.Product{}
	}

	if err := writeJSON(w, http.StatusOK, pagination.Envelope(r.URL, total, products)); err != nil {
		app.internalServerError(w, r, err)
	}
}

// listInternalProductsHandler godoc
//
//	@Summary		Internal product listing
//	@Description	Dashboard listing of the caller's business products across every status
//	@Tags			products
//	@Produce		json
//	@Param			status	query		string	false	"Workflow status filter"
//	@Param			search	query		string	false	"Name/description search"
//	@Param			sort	query		string	false	"created_at, price or name, prefix with - for descending"
//	@Param			page	query		int		false	"Page number"
//	@Success		200		{object}	params.Page
//	@Failure		401		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/products/list_internal [get]
func (app *application) listInternalProductsHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	pagination := params.ParsePagination(r.URL.Query())
	filter := parseProductFilter(r.URL.Query())

	products, total, err := app.store.Products.ListByBusiness(r.Context(), user.BusinessID(), filter, pagination.Limit, pagination.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if products == nil {
		products = []store.Product{}
	}

	if err := writeJSON(w, http.StatusOK, pagination.Envelope(r.URL, total, products)); err != nil {
		app.internalServerError(w, r, err)
	}
}

// productStatsHandler godoc
//
//	@Summary		Product status counts
//	@Description	Per-status product totals for the caller's business. Draft and pending_approval are reported separately; any grouping is up to the dashboard.
//	@Tags			products
//	@Produce		json
//	@Success		200	{object}	map[string]int
//	@Failure		401	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/products/stats [get]
func (app *application) productStatsHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	counts, err := app.store.Products.StatusCounts(r.Context(), user.BusinessID())
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	total := 0
	stats := make(map[string]int, len(counts)+1)
	for status, count := range counts {
		stats[string(status)] = count
		total += count
	}
	stats["total"] = total

	if err := writeJSON(w, http.StatusOK, stats); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getProductHandler godoc
//
//	@Summary		Product detail
//	@Description	Approved products are public; everything else is only visible to its owning business
//	@Tags			products
//	@Produce		json
//	@Param			productID	path		int	true	"Product ID"
//	@Success		200			{object}	store.Product
//	@Failure		404			{object}	error
//	@Router			/products/{productID} [get]
func (app *application) getProductHandler(w http.ResponseWriter, r *http.Request) {
	productID, err := parseIDParam(chi.URLParam(r, "productID"))
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	product, err := app.store.Products.GetByID(r.Context(), productID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if product.Status != catalog.StatusApproved {
		user := app.optionalUser(r)
		// Non-approved products read as absent outside their business.
		if user == nil || user.BusinessID() != product.BusinessID {
			app.notFoundResponse(w, r, store.ErrNotFound)
			return
		}
	}

	if err := writeJSON(w, http.StatusOK, product); err != nil {
		app.internalServerError(w, r, err)
	}
}

// createProductHandler godoc
//
//	@Summary		Create a product
//	@Description	Creates a catalog entry for the caller's business, in draft unless pending_approval is requested
//	@Tags			products
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CreateProductPayload	true	"Product fields"
//	@Success		201		{object}	store.Product
//	@Failure		400		{object}	error
//	@Failure		403		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/products [post]
func (app *application) createProductHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	var payload CreateProductPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		writeFieldErrors(w, fieldErrors(err))
		return
	}
	if payload.Price.IsNegative() {
		writeFieldErrors(w, map[string]string{"price": "must not be negative"})
		return
	}

	status := catalog.StatusDraft
	if payload.Status != nil {
		status = catalog.Status(*payload.Status)
		// A new product can start in draft or go straight to review, nothing
		// else.
		if status != catalog.StatusDraft && status != catalog.StatusPendingApproval {
			app.conflictResponse(w, r, catalog.ErrInvalidTransition)
			return
		}
	}

	creatorID := user.ID
	product := &store.Product{
		Name:          payload.Name,
		Description:   payload.Description,
		Price:         payload.Price,
		Status:        status,
		BusinessID:    user.BusinessID(),
		BusinessName:  user.Business.Name,
		CreatedByID:   &creatorID,
		CreatedByName: &user.Username,
	}

	if err := app.store.Products.Create(r.Context(), product); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, product); err != nil {
		app.internalServerError(w, r, err)
	}
}

// updateProductHandler godoc
//
//	@Summary		Update a product
//	@Description	Changes name, description, price and/or status. Status changes follow the workflow table; approval only happens through the approve endpoint.
//	@Tags			products
//	@Accept			json
//	@Produce		json
//	@Param			productID	path		int						true	"Product ID"
//	@Param			payload		body		UpdateProductPayload	true	"Fields to change"
//	@Success		200			{object}	store.Product
//	@Failure		400			{object}	error
//	@Failure		404			{object}	error
//	@Failure		409			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/products/{productID} [patch]
func (app *application) updateProductHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	productID, err := parseIDParam(chi.URLParam(r, "productID"))
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payload UpdateProductPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		writeFieldErrors(w, fieldErrors(err))
		return
	}

	product, err := app.store.Products.GetByID(r.Context(), productID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if product.BusinessID != user.BusinessID() {
		app.notFoundResponse(w, r, store.ErrNotFound)
		return
	}

	if payload.Name != nil {
		product.Name = *payload.Name
	}
	if payload.Description != nil {
		product.Description = *payload.Description
	}
	if payload.Price != nil {
		if payload.Price.IsNegative() {
			writeFieldErrors(w, map[string]string{"price": "must not be negative"})
			return
		}
		product.Price = *payload.Price
	}
	if payload.Status != nil {
		next := catalog.Status(*payload.Status)
		// approved is only reachable through the approve endpoint, which
		// checks the approve capability.
		if next == catalog.StatusApproved && product.Status != catalog.StatusApproved {
			app.conflictResponse(w, r, catalog.ErrInvalidTransition)
			return
		}
		if err := catalog.Transition(product.Status, next); err != nil {
			app.conflictResponse(w, r, err)
			return
		}
		product.Status = next
	}

	if err := app.store.Products.Update(r.Context(), product); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := writeJSON(w, http.StatusOK, product); err != nil {
		app.internalServerError(w, r, err)
	}
}

type ApproveProductPayload struct {
	Approved bool `json:"approved"`
}

// approveProductHandler godoc
//
//	@Summary		Approve a product
//	@Description	Moves a pending_approval product to approved and records the approver
//	@Tags			products
//	@Accept			json
//	@Produce		json
//	@Param			productID	path		int						true	"Product ID"
//	@Param			payload		body		ApproveProductPayload	true	"Approval confirmation"
//	@Success		200			{object}	store.Product
//	@Failure		400			{object}	error
//	@Failure		404			{object}	error
//	@Failure		409			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/products/{productID}/approve [post]
func (app *application) approveProductHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	productID, err := parseIDParam(chi.URLParam(r, "productID"))
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payload ApproveProductPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if !payload.Approved {
		app.badRequestResponse(w, r, fmt.Errorf("approved must be true"))
		return
	}

	product, err := app.store.Products.GetByID(r.Context(), productID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if product.BusinessID != user.BusinessID() {
		app.notFoundResponse(w, r, store.ErrNotFound)
		return
	}

	if product.Status != catalog.StatusPendingApproval {
		app.conflictResponse(w, r, catalog.ErrInvalidTransition)
		return
	}

	if err := app.store.Products.Approve(r.Context(), productID, user.ID); err != nil {
		switch {
		case errors.Is(err, catalog.ErrInvalidTransition):
			app.conflictResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	product, err = app.store.Products.GetByID(r.Context(), productID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, product); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteProductHandler godoc
//
//	@Summary		Delete a product
//	@Description	Irreversibly removes a product from every listing
//	@Tags			products
//	@Param			productID	path	int	true	"Product ID"
//	@Success		204
//	@Failure		404	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/products/{productID} [delete]
func (app *application) deleteProductHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	productID, err := parseIDParam(chi.URLParam(r, "productID"))
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.store.Products.Delete(r.Context(), productID, user.BusinessID())
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// optionalUser resolves the bearer token when one is present without
// requiring it. Detail pages are public for approved products but richer for
// the owning business.
func (app *application) optionalUser(r *http.Request) *store.User {
	authHeader := r.Header.Get("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil
	}

	jwtToken, err := app.authenticator.ValidateAccessToken(parts[1])
	if err != nil {
		return nil
	}
	claims, _ := jwtToken.Claims.(jwt.MapClaims)
	userID, err := strconv.ParseInt(fmt.Sprintf("%.f", claims["sub"]), 10, 64)
	if err != nil {
		return nil
	}
	user, err := app.store.Users.GetByID(r.Context(), userID)
	if err != nil {
		return nil
	}
	return user
}
