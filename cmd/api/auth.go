package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"bazaar/internal/rbac"
	"bazaar/internal/store"

	"github.com/golang-jwt/jwt/v5"
)

type RegisterPayload struct {
	Username     string `json:"username" validate:"required,min=3,max=50"`
	Email        string `json:"email" validate:"required,email,max=255"`
	Password     string `json:"password" validate:"required,min=8,max=72"`
	BusinessName string `json:"business_name" validate:"required,min=2,max=255"`
}

// registerHandler godoc
//
//	@Summary		Register a business
//	@Description	Creates a business and its bootstrap admin user in one step
//	@Tags			authentication
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		RegisterPayload	true	"Registration fields"
//	@Success		201		{object}	store.User		"Bootstrap admin user"
//	@Failure		400		{object}	error
//	@Failure		409		{object}	error
//	@Router			/auth/register [post]
func (app *application) registerHandler(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user := &store.User{
		Username: payload.Username,
		Email:    payload.Email,
	}
	if err := user.Password.Set(payload.Password); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	err := app.store.Users.RegisterWithBusiness(r.Context(), user, payload.BusinessName)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			app.conflictResponse(w, r, fmt.Errorf("a business with that name already exists"))
		case errors.Is(err, store.ErrDuplicateUsername):
			app.conflictResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := writeJSON(w, http.StatusCreated, user); err != nil {
		app.internalServerError(w, r, err)
	}
}

type LoginPayload struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,max=72"`
}

// loginHandler godoc
//
//	@Summary		Login to get a credential pair
//	@Description	Issues an access and refresh token pair for valid credentials
//	@Tags			authentication
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		LoginPayload	true	"User credentials"
//	@Success		200		{object}	map[string]string	"access and refresh tokens"
//	@Failure		400		{object}	error
//	@Failure		401		{object}	error
//	@Router			/auth/login [post]
func (app *application) loginHandler(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user, err := app.store.Users.GetByUsername(r.Context(), payload.Username)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.unauthorizedErrorResponse(w, r, fmt.Errorf("invalid credentials"))
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := user.Password.Compare(payload.Password); err != nil {
		app.unauthorizedErrorResponse(w, r, fmt.Errorf("invalid credentials"))
		return
	}

	accessToken, refreshToken, err := app.authenticator.GenerateTokens(user.ID, user.BusinessID(), string(user.Role))
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	// Save refresh token in the database
	if err := app.store.Users.SaveRefreshToken(r.Context(), user.ID, refreshToken); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	response := map[string]string{
		"access":  accessToken,
		"refresh": refreshToken,
	}
	if err := writeJSON(w, http.StatusOK, response); err != nil {
		app.internalServerError(w, r, err)
	}
}

type RefreshPayload struct {
	Refresh string `json:"refresh" validate:"required"`
}

// refreshTokenHandler godoc
//
//	@Summary		Refresh the access token
//	@Description	Validates the refresh token and issues a new access token. The refresh token is reused until its own expiry.
//	@Tags			authentication
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		RefreshPayload		true	"Refresh token payload"
//	@Success		200		{object}	map[string]string	"New access token"
//	@Failure		400		{object}	error
//	@Failure		401		{object}	error
//	@Router			/auth/refresh [post]
func (app *application) refreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	var payload RefreshPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	token, err := app.authenticator.ValidateRefreshToken(payload.Refresh)
	if err != nil || !token.Valid {
		app.unauthorizedErrorResponse(w, r, fmt.Errorf("invalid refresh token"))
		return
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		app.unauthorizedErrorResponse(w, r, fmt.Errorf("invalid claims"))
		return
	}

	subClaim, ok := claims["sub"].(float64)
	if !ok {
		app.unauthorizedErrorResponse(w, r, fmt.Errorf("invalid sub claim"))
		return
	}
	userID := int64(subClaim)

	// Ensure refresh token exists in DB; logout revokes it.
	savedToken, err := app.store.Users.GetRefreshToken(r.Context(), userID)
	if err != nil || savedToken != payload.Refresh {
		app.unauthorizedErrorResponse(w, r, fmt.Errorf("refresh token mismatch"))
		return
	}

	user, err := app.store.Users.GetByID(r.Context(), userID)
	if err != nil {
		app.unauthorizedErrorResponse(w, r, err)
		return
	}

	accessToken, err := app.authenticator.GenerateAccessToken(user.ID, user.BusinessID(), string(user.Role))
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	response := map[string]string{
		"access": accessToken,
	}
	if err := writeJSON(w, http.StatusOK, response); err != nil {
		app.internalServerError(w, r, err)
	}
}

// meHandler godoc
//
//	@Summary		Current user
//	@Description	Resolves the access token to the authenticated user record
//	@Tags			authentication
//	@Produce		json
//	@Success		200	{object}	store.User
//	@Failure		401	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/auth/me [get]
func (app *application) meHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	if err := writeJSON(w, http.StatusOK, user); err != nil {
		app.internalServerError(w, r, err)
	}
}

// logoutHandler godoc
//
//	@Summary		Logout
//	@Description	Revokes the stored refresh token for the authenticated user
//	@Tags			authentication
//	@Success		204
//	@Security		ApiKeyAuth
//	@Router			/auth/logout [post]
func (app *application) logoutHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	if err := app.store.Users.DeleteRefreshToken(r.Context(), user.ID); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type RoleInfo struct {
	Name         rbac.Role         `json:"name"`
	Capabilities []rbac.Capability `json:"capabilities"`
}

// listRolesHandler godoc
//
//	@Summary		List roles
//	@Description	Lists every assignable role and its capabilities
//	@Tags			authentication
//	@Produce		json
//	@Success		200	{array}	RoleInfo
//	@Security		ApiKeyAuth
//	@Router			/auth/roles [get]
func (app *application) listRolesHandler(w http.ResponseWriter, r *http.Request) {
	roles := make([]RoleInfo, 0, len(rbac.Roles()))
	for _, role := range rbac.Roles() {
		roles = append(roles, RoleInfo{Name: role, Capabilities: rbac.Capabilities(role)})
	}

	if err := writeJSON(w, http.StatusOK, roles); err != nil {
		app.internalServerError(w, r, err)
	}
}

func parseIDParam(value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id %q", value)
	}
	return id, nil
}
