package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/johndosdos/anonbox/internal/auth"
	"github.com/johndosdos/anonbox/internal/common"
	"github.com/johndosdos/anonbox/internal/inbox"
	"github.com/johndosdos/anonbox/internal/model"
)

const (
	msgNotAuthenticated = "Not Authenticated"
	msgUserNotFound     = "User not found"
	msgInternal         = "Internal server error"
	msgInvalidContent   = "Invalid username or message content"
)

type sendMessageRequest struct {
	Username string `json:"username"`
	Content  string `json:"content"`
}

// SendMessage appends an anonymous message to the inbox named in the body.
// No session is required.
func SendMessage(svc *inbox.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req sendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		msg, err := svc.Append(ctx, req.Username, req.Content)
		if err != nil {
			code := statusFor(err)
			switch {
			case errors.Is(err, common.ErrInvalidArgument):
				slog.InfoContext(ctx, "message rejected by validator",
					slog.String("username", req.Username),
					slog.Any("error", err))
				WriteError(w, code, msgInvalidContent)
			case errors.Is(err, common.ErrNotFound):
				WriteError(w, code, msgUserNotFound)
			case errors.Is(err, common.ErrRejected):
				WriteError(w, code, "User is not accepting messages")
			default:
				WriteError(w, code, "Error adding message")
			}
			return
		}

		WriteJSON(w, http.StatusCreated, Response{Success: true, Message: "Message sent successfully"})

		slog.InfoContext(ctx, "message delivered",
			slog.String("username", req.Username),
			slog.String("message_id", msg.ID.String()))
	}
}

// GetMessages returns the owner's inbox, newest first.
func GetMessages(svc *inbox.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		messages, err := svc.Messages(ctx, auth.OwnerFromContext(ctx))
		if err != nil {
			code := statusFor(err)
			switch code {
			case http.StatusUnauthorized:
				WriteError(w, code, msgNotAuthenticated)
			case http.StatusNotFound:
				WriteError(w, code, msgUserNotFound)
			default:
				WriteError(w, code, msgInternal)
			}
			return
		}

		if messages == nil {
			messages = []model.Message{}
		}

		WriteJSON(w, http.StatusOK, MessagesResponse{Success: true, Messages: messages})
	}
}

// DeleteMessage removes one message from the owner's inbox.
func DeleteMessage(svc *inbox.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		err := svc.Delete(ctx, auth.OwnerFromContext(ctx), chi.URLParam(r, "messageid"))
		if err != nil {
			code := statusFor(err)
			switch code {
			case http.StatusBadRequest:
				WriteError(w, code, "Invalid message ID format")
			case http.StatusUnauthorized:
				WriteError(w, code, msgNotAuthenticated)
			case http.StatusNotFound:
				WriteError(w, code, "Message not found or already deleted")
			default:
				WriteError(w, code, "Error deleting message")
			}
			return
		}

		WriteJSON(w, http.StatusOK, Response{Success: true, Message: "Message deleted successfully"})
	}
}
