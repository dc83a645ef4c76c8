// Package memory is an in-process inbox store. It backs tests and local
// runs with STORE_DRIVER=memory.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/johndosdos/anonbox/internal/common"
	"github.com/johndosdos/anonbox/internal/model"
)

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the timestamp source used for new messages.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store keeps users in a map guarded by a single mutex, so every method is
// atomic with respect to the others.
type Store struct {
	mu         sync.Mutex
	users      map[uuid.UUID]*model.User
	byUsername map[string]uuid.UUID
	byEmail    map[string]uuid.UUID
	now        func() time.Time
}

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		users:      make(map[uuid.UUID]*model.User),
		byUsername: make(map[string]uuid.UUID),
		byEmail:    make(map[string]uuid.UUID),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateUser adds a user that accepts messages and has an empty inbox.
func (s *Store) CreateUser(_ context.Context, p model.CreateUserParams) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[p.Username]; ok {
		return model.User{}, common.ErrAlreadyExists
	}
	if _, ok := s.byEmail[p.Email]; ok {
		return model.User{}, common.ErrAlreadyExists
	}

	u := &model.User{
		ID:                  uuid.New(),
		Username:            p.Username,
		Email:               p.Email,
		VerifyCode:          p.VerifyCode,
		VerifyCodeExpiry:    p.VerifyCodeExpiry,
		IsAcceptingMessages: true,
	}
	s.users[u.ID] = u
	s.byUsername[u.Username] = u.ID
	s.byEmail[u.Email] = u.ID

	return cloneUser(u), nil
}

func (s *Store) AppendMessage(_ context.Context, username, content string) (model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byUsername[username]
	if !ok {
		return model.Message{}, common.ErrNotFound
	}

	u := s.users[id]
	if !u.IsAcceptingMessages {
		return model.Message{}, common.ErrRejected
	}

	msg := model.Message{
		ID:        uuid.New(),
		Content:   content,
		CreatedAt: s.now(),
	}
	u.Messages = append(u.Messages, msg)

	return msg, nil
}

func (s *Store) ListMessages(_ context.Context, userID uuid.UUID) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, common.ErrNotFound
	}

	return slices.Clone(u.Messages), nil
}

func (s *Store) RemoveMessageByID(_ context.Context, userID, messageID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return common.ErrNotFound
	}

	i := slices.IndexFunc(u.Messages, func(m model.Message) bool { return m.ID == messageID })
	if i < 0 {
		return common.ErrNotFound
	}
	u.Messages = slices.Delete(u.Messages, i, i+1)

	return nil
}

func (s *Store) AcceptingMessages(_ context.Context, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return false, common.ErrNotFound
	}

	return u.IsAcceptingMessages, nil
}

func (s *Store) SetAcceptFlag(_ context.Context, userID uuid.UUID, accept bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return common.ErrNotFound
	}
	u.IsAcceptingMessages = accept

	return nil
}

// Close is a no-op; it lets Store stand in wherever a closable store is
// expected.
func (s *Store) Close(context.Context) error { return nil }

func cloneUser(u *model.User) model.User {
	c := *u
	c.Messages = slices.Clone(u.Messages)
	return c
}
