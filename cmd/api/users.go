package main

import (
	"errors"
	"fmt"
	"net/http"

	"bazaar/internal/mailer"
	"bazaar/internal/rbac"
	"bazaar/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// listUsersHandler godoc
//
//	@Summary		List business members
//	@Description	Lists every user of the caller's business
//	@Tags			users
//	@Produce		json
//	@Success		200	{array}	store.User
//	@Failure		401	{object}	error
//	@Failure		403	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/auth/users [get]
func (app *application) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	members, err := app.store.Users.ListByBusiness(r.Context(), user.BusinessID())
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, members); err != nil {
		app.internalServerError(w, r, err)
	}
}

type InviteUserPayload struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Role     string `json:"role" validate:"required"`
}

// inviteUserHandler godoc
//
//	@Summary		Invite a member
//	@Description	Creates a user in the caller's business with a temporary password and emails the invitation
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		InviteUserPayload	true	"Member fields"
//	@Success		201		{object}	store.User
//	@Failure		400		{object}	error
//	@Failure		409		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/auth/users [post]
func (app *application) inviteUserHandler(w http.ResponseWriter, r *http.Request) {
	admin := getUserFromContext(r)

	var payload InviteUserPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	role := rbac.Role(payload.Role)
	if !rbac.Valid(role) {
		app.badRequestResponse(w, r, fmt.Errorf("unknown role %q", payload.Role))
		return
	}

	member := &store.User{
		Username: payload.Username,
		Email:    payload.Email,
		Role:     role,
		Business: admin.Business,
	}

	tempPassword := uuid.New().String()
	if err := member.Password.Set(tempPassword); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.store.Users.Create(r.Context(), member); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateUsername):
			app.conflictResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	vars := struct {
		Username     string
		BusinessName string
		Role         string
		TempPassword string
		LoginURL     string
	}{
		Username:     member.Username,
		BusinessName: admin.Business.Name,
		Role:         string(role),
		TempPassword: tempPassword,
		LoginURL:     app.config.frontendURL + "/login",
	}

	// Invitation mail failures must not fail the invite itself.
	go func() {
		status, err := app.mailer.Send(mailer.MemberInviteTemplate, member.Username, member.Email, vars)
		if err != nil {
			app.logger.Errorw("error sending invitation email", "error", err, "email", member.Email)
			return
		}
		app.logger.Infow("invitation email sent", "status", status, "email", member.Email)
	}()

	if err := writeJSON(w, http.StatusCreated, member); err != nil {
		app.internalServerError(w, r, err)
	}
}

type UpdateUserPayload struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=50"`
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	Role     *string `json:"role"`
	Password *string `json:"password" validate:"omitempty,min=8,max=72"`
}

// updateUserHandler godoc
//
//	@Summary		Update a member
//	@Description	Updates profile fields, password or role of a member in the caller's business
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Param			userID	path		int					true	"User ID"
//	@Param			payload	body		UpdateUserPayload	true	"Fields to change"
//	@Success		200		{object}	store.User
//	@Failure		400		{object}	error
//	@Failure		403		{object}	error
//	@Failure		404		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/auth/users/{userID} [patch]
func (app *application) updateUserHandler(w http.ResponseWriter, r *http.Request) {
	admin := getUserFromContext(r)

	userID, err := parseIDParam(chi.URLParam(r, "userID"))
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payload UpdateUserPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	member, err := app.store.Users.GetByID(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	// Cross-business access reads as absence.
	if member.BusinessID() != admin.BusinessID() {
		app.notFoundResponse(w, r, store.ErrNotFound)
		return
	}

	if payload.Username != nil {
		member.Username = *payload.Username
	}
	if payload.Email != nil {
		member.Email = *payload.Email
	}
	if payload.Role != nil {
		role := rbac.Role(*payload.Role)
		if !rbac.Valid(role) {
			app.badRequestResponse(w, r, fmt.Errorf("unknown role %q", *payload.Role))
			return
		}
		// The bootstrap admin keeps the admin role; nobody else may demote it.
		if member.IsBusinessAdmin && role != rbac.RoleAdmin {
			app.forbiddenResponse(w, r)
			return
		}
		member.Role = role
	}
	if payload.Password != nil {
		if err := member.Password.Set(*payload.Password); err != nil {
			app.internalServerError(w, r, err)
			return
		}
	}

	if err := app.store.Users.Update(r.Context(), member); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		case errors.Is(err, store.ErrDuplicateUsername):
			app.conflictResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := writeJSON(w, http.StatusOK, member); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteUserHandler godoc
//
//	@Summary		Delete a member
//	@Description	Removes a member from the caller's business. The business admin cannot be deleted.
//	@Tags			users
//	@Param			userID	path	int	true	"User ID"
//	@Success		204
//	@Failure		403	{object}	error
//	@Failure		404	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/auth/users/{userID} [delete]
func (app *application) deleteUserHandler(w http.ResponseWriter, r *http.Request) {
	admin := getUserFromContext(r)

	userID, err := parseIDParam(chi.URLParam(r, "userID"))
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.store.Users.Delete(r.Context(), userID, admin.BusinessID())
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		case errors.Is(err, store.ErrLastBusinessAdmin):
			app.forbiddenResponse(w, r)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
