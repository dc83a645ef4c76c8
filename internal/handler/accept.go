package handler

import (
	"encoding/json"
	"net/http"

	"github.com/johndosdos/anonbox/internal/auth"
	"github.com/johndosdos/anonbox/internal/inbox"
)

type acceptMessagesRequest struct {
	AcceptMessages *bool `json:"acceptMessages"`
}

// GetAcceptMessages reports whether the owner currently accepts messages.
func GetAcceptMessages(svc *inbox.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		accepting, err := svc.AcceptingMessages(ctx, auth.OwnerFromContext(ctx))
		if err != nil {
			writeAcceptError(w, err, "Error in getting message acceptance status")
			return
		}

		WriteJSON(w, http.StatusOK, Response{Success: true, IsAcceptingMessages: &accepting})
	}
}

// SetAcceptMessages stores the owner's accept flag.
func SetAcceptMessages(svc *inbox.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req acceptMessagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AcceptMessages == nil {
			WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		accepting, err := svc.SetAcceptingMessages(ctx, auth.OwnerFromContext(ctx), *req.AcceptMessages)
		if err != nil {
			writeAcceptError(w, err, "Failed to update user status to accept messages")
			return
		}

		WriteJSON(w, http.StatusOK, Response{
			Success:             true,
			Message:             "Message acceptance status updated successfully",
			IsAcceptingMessages: &accepting,
		})
	}
}

func writeAcceptError(w http.ResponseWriter, err error, fallback string) {
	code := statusFor(err)
	switch code {
	case http.StatusUnauthorized:
		WriteError(w, code, msgNotAuthenticated)
	case http.StatusNotFound:
		WriteError(w, code, msgUserNotFound)
	default:
		WriteError(w, code, fallback)
	}
}
