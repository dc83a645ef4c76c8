// Package handler exposes the inbox operations over HTTP. Every response is
// a JSON Response envelope.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/johndosdos/anonbox/internal/common"
	"github.com/johndosdos/anonbox/internal/model"
)

// Response is the envelope returned by every endpoint except the inbox
// listing.
type Response struct {
	Success             bool   `json:"success"`
	Message             string `json:"message,omitempty"`
	IsAcceptingMessages *bool  `json:"isAcceptingMessages,omitempty"`
}

// MessagesResponse lists an inbox. Messages is always present, an empty
// inbox encodes as [].
type MessagesResponse struct {
	Success  bool            `json:"success"`
	Messages []model.Message `json:"messages"`
}

// WriteJSON writes resp with the given status code.
func WriteJSON(w http.ResponseWriter, code int, resp any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", slog.Any("error", err))
	}
}

// WriteError writes a failure envelope with message and code.
func WriteError(w http.ResponseWriter, code int, message string) {
	WriteJSON(w, code, Response{Success: false, Message: message})
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrRejected):
		return http.StatusForbidden
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
