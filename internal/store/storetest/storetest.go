// Package storetest checks that an inbox.Store honours the store contract.
// Each store package runs Run against its own implementation.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/johndosdos/anonbox/internal/common"
	"github.com/johndosdos/anonbox/internal/inbox"
	"github.com/johndosdos/anonbox/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Store is an inbox.Store that can also create users.
type Store interface {
	inbox.Store
	CreateUser(ctx context.Context, p model.CreateUserParams) (model.User, error)
}

// Run executes the contract tests. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("create_user_defaults", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		u, err := s.CreateUser(ctx, params("alice"))
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, u.ID)
		assert.Equal(t, "alice", u.Username)
		assert.True(t, u.IsAcceptingMessages)

		accepting, err := s.AcceptingMessages(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, accepting)

		messages, err := s.ListMessages(ctx, u.ID)
		require.NoError(t, err)
		assert.Empty(t, messages)
	})

	t.Run("create_user_duplicate", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.CreateUser(ctx, params("alice"))
		require.NoError(t, err)

		_, err = s.CreateUser(ctx, params("alice"))
		assert.ErrorIs(t, err, common.ErrAlreadyExists)
	})

	t.Run("append_unknown_user", func(t *testing.T) {
		s := newStore(t)

		_, err := s.AppendMessage(context.Background(), "nobody", "hello")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("append_assigns_id_and_timestamp", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		u := mustCreate(t, s, "alice")

		msg, err := s.AppendMessage(ctx, "alice", "hello")
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, msg.ID)
		assert.False(t, msg.CreatedAt.IsZero())
		assert.Equal(t, "hello", msg.Content)

		messages, err := s.ListMessages(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, msg.ID, messages[0].ID)
		assert.Equal(t, "hello", messages[0].Content)
	})

	t.Run("append_rejected_when_not_accepting", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		u := mustCreate(t, s, "alice")

		_, err := s.AppendMessage(ctx, "alice", "first")
		require.NoError(t, err)
		require.NoError(t, s.SetAcceptFlag(ctx, u.ID, false))

		_, err = s.AppendMessage(ctx, "alice", "second")
		assert.ErrorIs(t, err, common.ErrRejected)

		messages, err := s.ListMessages(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, "first", messages[0].Content)
	})

	t.Run("username_is_case_sensitive", func(t *testing.T) {
		s := newStore(t)
		mustCreate(t, s, "alice")

		_, err := s.AppendMessage(context.Background(), "Alice", "hello")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("list_insertion_order", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		u := mustCreate(t, s, "alice")

		for i := range 3 {
			_, err := s.AppendMessage(ctx, "alice", fmt.Sprintf("m%d", i))
			require.NoError(t, err)
		}

		messages, err := s.ListMessages(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, messages, 3)
		for i, m := range messages {
			assert.Equal(t, fmt.Sprintf("m%d", i), m.Content)
		}
	})

	t.Run("list_unknown_owner", func(t *testing.T) {
		s := newStore(t)

		_, err := s.ListMessages(context.Background(), uuid.New())
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("remove_exactly_one", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		u := mustCreate(t, s, "alice")

		keep1, err := s.AppendMessage(ctx, "alice", "keep 1")
		require.NoError(t, err)
		drop, err := s.AppendMessage(ctx, "alice", "drop")
		require.NoError(t, err)
		keep2, err := s.AppendMessage(ctx, "alice", "keep 2")
		require.NoError(t, err)

		require.NoError(t, s.RemoveMessageByID(ctx, u.ID, drop.ID))

		messages, err := s.ListMessages(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, keep1.ID, messages[0].ID)
		assert.Equal(t, "keep 1", messages[0].Content)
		assert.Equal(t, keep2.ID, messages[1].ID)
		assert.Equal(t, "keep 2", messages[1].Content)

		err = s.RemoveMessageByID(ctx, u.ID, drop.ID)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("remove_other_owners_message", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		alice := mustCreate(t, s, "alice")
		bob := mustCreate(t, s, "bob")

		bobs, err := s.AppendMessage(ctx, "bob", "for bob")
		require.NoError(t, err)

		err = s.RemoveMessageByID(ctx, alice.ID, bobs.ID)
		assert.ErrorIs(t, err, common.ErrNotFound)

		messages, err := s.ListMessages(ctx, bob.ID)
		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, bobs.ID, messages[0].ID)
	})

	t.Run("remove_unknown_owner", func(t *testing.T) {
		s := newStore(t)

		err := s.RemoveMessageByID(context.Background(), uuid.New(), uuid.New())
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("set_flag_idempotent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		u := mustCreate(t, s, "alice")

		for range 2 {
			require.NoError(t, s.SetAcceptFlag(ctx, u.ID, true))
			accepting, err := s.AcceptingMessages(ctx, u.ID)
			require.NoError(t, err)
			assert.True(t, accepting)
		}

		require.NoError(t, s.SetAcceptFlag(ctx, u.ID, false))
		accepting, err := s.AcceptingMessages(ctx, u.ID)
		require.NoError(t, err)
		assert.False(t, accepting)
	})

	t.Run("flag_unknown_owner", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.AcceptingMessages(ctx, uuid.New())
		assert.ErrorIs(t, err, common.ErrNotFound)

		err = s.SetAcceptFlag(ctx, uuid.New(), true)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("concurrent_appends_keep_every_message", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		u := mustCreate(t, s, "alice")

		const n = 20
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.AppendMessage(ctx, "alice", fmt.Sprintf("m%d", i))
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}

		messages, err := s.ListMessages(ctx, u.ID)
		require.NoError(t, err)
		assert.Len(t, messages, n)
	})

	t.Run("concurrent_deletes_single_winner", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		u := mustCreate(t, s, "alice")

		msg, err := s.AppendMessage(ctx, "alice", "hello")
		require.NoError(t, err)

		const n = 8
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- s.RemoveMessageByID(ctx, u.ID, msg.ID)
			}()
		}
		wg.Wait()
		close(errs)

		succeeded := 0
		for err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, common.ErrNotFound)
		}
		assert.Equal(t, 1, succeeded)
	})
}

func params(username string) model.CreateUserParams {
	return model.CreateUserParams{
		Username:   username,
		Email:      username + "@example.com",
		VerifyCode: "123456",
	}
}

func mustCreate(t *testing.T, s Store, username string) model.User {
	t.Helper()

	u, err := s.CreateUser(context.Background(), params(username))
	require.NoError(t, err)
	return u
}
