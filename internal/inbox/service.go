// Package inbox implements the anonymous inbox: appending messages to a
// user, and the owner's list, delete and accept-flag operations.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/johndosdos/anonbox/internal/common"
	"github.com/johndosdos/anonbox/internal/model"
)

// Service runs inbox operations against a Store. It keeps no state between
// calls.
type Service struct {
	store     Store
	validator Validator
}

// NewService returns a new instance of Service.
func NewService(store Store, validator Validator) *Service {
	return &Service{store: store, validator: validator}
}

// Append delivers content to username's inbox.
func (s *Service) Append(ctx context.Context, username, content string) (model.Message, error) {
	content, err := s.validator.Validate(username, content)
	if err != nil {
		return model.Message{}, err
	}

	msg, err := s.store.AppendMessage(ctx, username, content)
	if err != nil {
		return model.Message{}, s.storeErr(ctx, "append message", err,
			slog.String("username", username))
	}

	return msg, nil
}

// Messages returns the owner's messages, newest first. Messages without a
// timestamp are left out.
func (s *Service) Messages(ctx context.Context, owner *model.Owner) ([]model.Message, error) {
	if owner == nil {
		return nil, common.ErrUnauthorized
	}

	stored, err := s.store.ListMessages(ctx, owner.ID)
	if err != nil {
		return nil, s.storeErr(ctx, "list messages", err,
			slog.String("user_id", owner.ID.String()))
	}

	messages := make([]model.Message, 0, len(stored))
	for _, m := range stored {
		if m.CreatedAt.IsZero() {
			continue
		}
		messages = append(messages, m)
	}

	slices.SortStableFunc(messages, func(a, b model.Message) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return messages, nil
}

// Delete removes one message from the owner's inbox. The id is checked
// before the session so malformed input never reaches the store.
func (s *Service) Delete(ctx context.Context, owner *model.Owner, messageID string) error {
	id, err := uuid.Parse(messageID)
	if err != nil {
		return fmt.Errorf("%w: malformed message id %q", common.ErrInvalidArgument, messageID)
	}

	if owner == nil {
		return common.ErrUnauthorized
	}

	if err := s.store.RemoveMessageByID(ctx, owner.ID, id); err != nil {
		return s.storeErr(ctx, "delete message", err,
			slog.String("user_id", owner.ID.String()),
			slog.String("message_id", id.String()))
	}

	slog.InfoContext(ctx, "message deleted",
		slog.String("user_id", owner.ID.String()),
		slog.String("message_id", id.String()))

	return nil
}

// AcceptingMessages reports the owner's current accept flag.
func (s *Service) AcceptingMessages(ctx context.Context, owner *model.Owner) (bool, error) {
	if owner == nil {
		return false, common.ErrUnauthorized
	}

	accepting, err := s.store.AcceptingMessages(ctx, owner.ID)
	if err != nil {
		return false, s.storeErr(ctx, "read accept flag", err,
			slog.String("user_id", owner.ID.String()))
	}

	return accepting, nil
}

// SetAcceptingMessages stores the owner's accept flag and returns the value
// that was written.
func (s *Service) SetAcceptingMessages(ctx context.Context, owner *model.Owner, accept bool) (bool, error) {
	if owner == nil {
		return false, common.ErrUnauthorized
	}

	if err := s.store.SetAcceptFlag(ctx, owner.ID, accept); err != nil {
		return false, s.storeErr(ctx, "set accept flag", err,
			slog.String("user_id", owner.ID.String()))
	}

	return accept, nil
}

// storeErr passes business outcomes through and folds everything else into
// common.ErrStoreFailure.
func (s *Service) storeErr(ctx context.Context, op string, err error, attrs ...any) error {
	if errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrRejected) {
		return err
	}

	attrs = append(attrs, slog.Any("error", err))
	slog.ErrorContext(ctx, "inbox: "+op+" failed", attrs...)

	return fmt.Errorf("%w: %s: %v", common.ErrStoreFailure, op, err)
}
