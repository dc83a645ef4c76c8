package inbox

import (
	"context"

	"github.com/google/uuid"
	"github.com/johndosdos/anonbox/internal/model"
)

// Store persists users and their embedded messages.
//
// Every method is a single atomic operation against one user record:
//   - AppendMessage inserts one message, gated on the accept flag in the same
//     write. The store assigns the message ID and CreatedAt. An unknown
//     username yields common.ErrNotFound, a user who is not accepting yields
//     common.ErrRejected. Concurrent appends never drop sibling messages.
//   - ListMessages returns messages in insertion order.
//   - RemoveMessageByID removes at most one message and only from userID's
//     collection. Nothing removed yields common.ErrNotFound.
//   - SetAcceptFlag is the only write to the accept flag.
//
// Unknown owners yield common.ErrNotFound. Any other error is an
// infrastructure fault.
type Store interface {
	AppendMessage(ctx context.Context, username, content string) (model.Message, error)
	ListMessages(ctx context.Context, userID uuid.UUID) ([]model.Message, error)
	RemoveMessageByID(ctx context.Context, userID, messageID uuid.UUID) error
	AcceptingMessages(ctx context.Context, userID uuid.UUID) (bool, error)
	SetAcceptFlag(ctx context.Context, userID uuid.UUID, accept bool) error
}
