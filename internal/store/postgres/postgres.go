// Package postgres is the PostgreSQL inbox store. Messages live in their own
// table keyed by owner, and every inbox operation is one SQL statement.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/johndosdos/anonbox/internal/common"
	"github.com/johndosdos/anonbox/internal/model"
)

const uniqueViolation = "23505"

// DBTX is the subset of pgx used by Store. *pgxpool.Pool and pgx.Tx both
// satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db   DBTX
	pool *pgxpool.Pool
}

// New returns a Store that runs its queries on db.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// Open connects to dbURL, applies migrations and returns a Store that owns
// the pool.
func Open(ctx context.Context, dbURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("store/postgres: could not connect to the postgresql database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store/postgres: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{db: pool, pool: pool}, nil
}

// Close releases the pool when the Store owns one.
func (s *Store) Close(context.Context) error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// CreateUser inserts a user that accepts messages and has an empty inbox.
func (s *Store) CreateUser(ctx context.Context, p model.CreateUserParams) (model.User, error) {
	const q = `
		INSERT INTO users (user_id, username, email, verify_code, verify_code_expiry)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING user_id, username, email, is_verified, verify_code, verify_code_expiry, is_accepting_messages`

	expiry := pgtype.Timestamptz{Time: p.VerifyCodeExpiry, Valid: !p.VerifyCodeExpiry.IsZero()}

	var (
		u        model.User
		id       pgtype.UUID
		expiryTS pgtype.Timestamptz
	)
	err := s.db.QueryRow(ctx, q, pgUUID(uuid.New()), p.Username, p.Email, p.VerifyCode, expiry).
		Scan(&id, &u.Username, &u.Email, &u.IsVerified, &u.VerifyCode, &expiryTS, &u.IsAcceptingMessages)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return model.User{}, common.ErrAlreadyExists
		}
		return model.User{}, fmt.Errorf("store/postgres: create user: %w", err)
	}

	u.ID = id.Bytes
	u.VerifyCodeExpiry = expiryTS.Time

	return u, nil
}

// AppendMessage looks up the user, checks the flag and inserts in one
// statement. The outer select reports why nothing was inserted.
func (s *Store) AppendMessage(ctx context.Context, username, content string) (model.Message, error) {
	const q = `
		WITH target AS (
			SELECT user_id, is_accepting_messages FROM users WHERE username = $1
		), inserted AS (
			INSERT INTO messages (user_id, content)
			SELECT user_id, $2 FROM target WHERE is_accepting_messages
			RETURNING message_id, created_at
		)
		SELECT t.is_accepting_messages, i.message_id, i.created_at
		FROM target t LEFT JOIN inserted i ON TRUE`

	var (
		accepting bool
		id        pgtype.UUID
		createdAt pgtype.Timestamptz
	)
	err := s.db.QueryRow(ctx, q, username, content).Scan(&accepting, &id, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Message{}, common.ErrNotFound
	}
	if err != nil {
		return model.Message{}, fmt.Errorf("store/postgres: append message: %w", err)
	}
	if !accepting || !id.Valid {
		return model.Message{}, common.ErrRejected
	}

	return model.Message{
		ID:        id.Bytes,
		Content:   content,
		CreatedAt: createdAt.Time.UTC(),
	}, nil
}

// ListMessages returns the owner's messages in insertion order. The left
// join yields one all-null row for an owner with an empty inbox, and no rows
// at all for an unknown owner.
func (s *Store) ListMessages(ctx context.Context, userID uuid.UUID) ([]model.Message, error) {
	const q = `
		SELECT m.message_id, m.content, m.created_at
		FROM users u
		LEFT JOIN messages m ON m.user_id = u.user_id
		WHERE u.user_id = $1
		ORDER BY m.seq`

	rows, err := s.db.Query(ctx, q, pgUUID(userID))
	if err != nil {
		return nil, fmt.Errorf("store/postgres: list messages: %w", err)
	}
	defer rows.Close()

	found := false
	messages := []model.Message{}
	for rows.Next() {
		found = true

		var (
			id        pgtype.UUID
			content   pgtype.Text
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&id, &content, &createdAt); err != nil {
			return nil, fmt.Errorf("store/postgres: scan message: %w", err)
		}
		if !id.Valid {
			continue
		}

		m := model.Message{ID: id.Bytes, Content: content.String}
		if createdAt.Valid {
			m.CreatedAt = createdAt.Time.UTC()
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store/postgres: list messages: %w", err)
	}

	if !found {
		return nil, common.ErrNotFound
	}

	return messages, nil
}

func (s *Store) RemoveMessageByID(ctx context.Context, userID, messageID uuid.UUID) error {
	const q = `DELETE FROM messages WHERE message_id = $1 AND user_id = $2`

	tag, err := s.db.Exec(ctx, q, pgUUID(messageID), pgUUID(userID))
	if err != nil {
		return fmt.Errorf("store/postgres: delete message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}

	return nil
}

func (s *Store) AcceptingMessages(ctx context.Context, userID uuid.UUID) (bool, error) {
	const q = `SELECT is_accepting_messages FROM users WHERE user_id = $1`

	var accepting bool
	err := s.db.QueryRow(ctx, q, pgUUID(userID)).Scan(&accepting)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, common.ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("store/postgres: read accept flag: %w", err)
	}

	return accepting, nil
}

func (s *Store) SetAcceptFlag(ctx context.Context, userID uuid.UUID, accept bool) error {
	const q = `UPDATE users SET is_accepting_messages = $2 WHERE user_id = $1`

	tag, err := s.db.Exec(ctx, q, pgUUID(userID), accept)
	if err != nil {
		return fmt.Errorf("store/postgres: set accept flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}

	return nil
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}
