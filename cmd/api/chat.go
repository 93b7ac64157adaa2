package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"bazaar/internal/assistant"
	"bazaar/internal/params"
	"bazaar/internal/store"
)

// listChatHistoryHandler godoc
//
//	@Summary		Chat transcript
//	@Description	Lists the caller's assistant transcript entries, newest first
//	@Tags			chat
//	@Produce		json
//	@Param			page	query		int	false	"Page number"
//	@Success		200		{object}	params.Page
//	@Failure		401		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/chat/history [get]
func (app *application) listChatHistoryHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	pagination := params.ParsePagination(r.URL.Query())

	entries, total, err := app.store.Chat.ListByUser(r.Context(), user.ID, pagination.Limit, pagination.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if entries == nil {
		entries = []store.ChatEntry{}
	}

	if err := writeJSON(w, http.StatusOK, pagination.Envelope(r.URL, total, entries)); err != nil {
		app.internalServerError(w, r, err)
	}
}

type ChatMessagePayload struct {
	UserMessage string `json:"user_message" validate:"required,max=4000"`
}

// createChatMessageHandler godoc
//
//	@Summary		Ask the assistant
//	@Description	Relays a message to the hosted assistant and appends the exchange to the transcript
//	@Tags			chat
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		ChatMessagePayload	true	"User message"
//	@Success		201		{object}	store.ChatEntry
//	@Failure		400		{object}	error
//	@Failure		502		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/chat/history [post]
func (app *application) createChatMessageHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	var payload ChatMessagePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	reply, err := app.assistant.Reply(ctx, payload.UserMessage)
	if err != nil {
		if errors.Is(err, assistant.ErrUnavailable) {
			app.logger.Warnw("assistant unavailable", "error", err)
			writeJSONError(w, http.StatusBadGateway, "assistant is unavailable, try again")
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	entry := &store.ChatEntry{
		UserID:      user.ID,
		BusinessID:  user.BusinessID(),
		UserMessage: payload.UserMessage,
		AIResponse:  reply,
	}
	if err := app.store.Chat.Create(r.Context(), entry); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, entry); err != nil {
		app.internalServerError(w, r, err)
	}
}
