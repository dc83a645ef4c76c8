// Package mongo is the MongoDB inbox store. Each user is one document in the
// users collection with its messages embedded in an array, so every inbox
// operation is a single-document update.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/johndosdos/anonbox/internal/common"
	"github.com/johndosdos/anonbox/internal/model"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const usersCollection = "users"

type userDocument struct {
	ID                  string            `bson:"_id"`
	Username            string            `bson:"username"`
	Email               string            `bson:"email"`
	IsVerified          bool              `bson:"isVerified"`
	VerifyCode          string            `bson:"verifyCode"`
	VerifyCodeExpiry    time.Time         `bson:"verifyCodeExpiry,omitempty"`
	IsAcceptingMessages bool              `bson:"isAcceptingMessages"`
	Messages            []messageDocument `bson:"messages"`
}

type messageDocument struct {
	ID        string     `bson:"_id"`
	Content   string     `bson:"content"`
	CreatedAt *time.Time `bson:"createdAt,omitempty"`
}

type Store struct {
	client *mongo.Client
	users  *mongo.Collection
	now    func() time.Time
}

// New returns a Store over db's users collection. The caller keeps
// ownership of the client.
func New(db *mongo.Database) *Store {
	return &Store{
		users: db.Collection(usersCollection),
		now:   func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// Open connects to uri, ensures indexes on database and returns a Store
// that owns the client.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("store/mongo: connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("store/mongo: ping: %w", err)
	}

	s := New(client.Database(database))
	s.client = client

	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return s, nil
}

// EnsureIndexes creates the unique username and email indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("store/mongo: create indexes: %w", err)
	}
	return nil
}

// Close disconnects the client when the Store owns one.
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// CreateUser inserts a user document that accepts messages and has an
// empty inbox.
func (s *Store) CreateUser(ctx context.Context, p model.CreateUserParams) (model.User, error) {
	doc := userDocument{
		ID:                  uuid.NewString(),
		Username:            p.Username,
		Email:               p.Email,
		VerifyCode:          p.VerifyCode,
		VerifyCodeExpiry:    p.VerifyCodeExpiry,
		IsAcceptingMessages: true,
		Messages:            []messageDocument{},
	}

	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.User{}, common.ErrAlreadyExists
		}
		return model.User{}, fmt.Errorf("store/mongo: create user: %w", err)
	}

	return model.User{
		ID:                  uuid.MustParse(doc.ID),
		Username:            doc.Username,
		Email:               doc.Email,
		VerifyCode:          doc.VerifyCode,
		VerifyCodeExpiry:    doc.VerifyCodeExpiry,
		IsAcceptingMessages: true,
	}, nil
}

// AppendMessage pushes the message only when the filter also matches the
// accept flag. When nothing matched, a count on the username alone tells
// a missing user apart from one who is not accepting.
func (s *Store) AppendMessage(ctx context.Context, username, content string) (model.Message, error) {
	createdAt := s.now()
	doc := messageDocument{
		ID:        uuid.NewString(),
		Content:   content,
		CreatedAt: &createdAt,
	}

	filter := bson.D{
		{Key: "username", Value: username},
		{Key: "isAcceptingMessages", Value: true},
	}
	update := bson.D{{Key: "$push", Value: bson.D{{Key: "messages", Value: doc}}}}

	res, err := s.users.UpdateOne(ctx, filter, update)
	if err != nil {
		return model.Message{}, fmt.Errorf("store/mongo: append message: %w", err)
	}

	if res.MatchedCount == 0 {
		n, err := s.users.CountDocuments(ctx, bson.D{{Key: "username", Value: username}})
		if err != nil {
			return model.Message{}, fmt.Errorf("store/mongo: look up user: %w", err)
		}
		if n == 0 {
			return model.Message{}, common.ErrNotFound
		}
		return model.Message{}, common.ErrRejected
	}

	return model.Message{
		ID:        uuid.MustParse(doc.ID),
		Content:   content,
		CreatedAt: createdAt,
	}, nil
}

func (s *Store) ListMessages(ctx context.Context, userID uuid.UUID) ([]model.Message, error) {
	var doc userDocument
	opts := options.FindOne().SetProjection(bson.D{{Key: "messages", Value: 1}})

	err := s.users.FindOne(ctx, byID(userID), opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store/mongo: list messages: %w", err)
	}

	messages := make([]model.Message, 0, len(doc.Messages))
	for _, m := range doc.Messages {
		id, err := uuid.Parse(m.ID)
		if err != nil {
			slog.WarnContext(ctx, "store/mongo: skipping message with non-uuid id",
				slog.String("user_id", userID.String()),
				slog.String("message_id", m.ID))
			continue
		}

		msg := model.Message{ID: id, Content: m.Content}
		if m.CreatedAt != nil {
			msg.CreatedAt = m.CreatedAt.UTC()
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

// RemoveMessageByID pulls the element from the owner's own document only;
// a modified count of zero means nothing was removed.
func (s *Store) RemoveMessageByID(ctx context.Context, userID, messageID uuid.UUID) error {
	update := bson.D{{Key: "$pull", Value: bson.D{
		{Key: "messages", Value: bson.D{{Key: "_id", Value: messageID.String()}}},
	}}}

	res, err := s.users.UpdateOne(ctx, byID(userID), update)
	if err != nil {
		return fmt.Errorf("store/mongo: delete message: %w", err)
	}
	if res.ModifiedCount == 0 {
		return common.ErrNotFound
	}

	return nil
}

func (s *Store) AcceptingMessages(ctx context.Context, userID uuid.UUID) (bool, error) {
	var doc struct {
		IsAcceptingMessages bool `bson:"isAcceptingMessages"`
	}
	opts := options.FindOne().SetProjection(bson.D{{Key: "isAcceptingMessages", Value: 1}})

	err := s.users.FindOne(ctx, byID(userID), opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, common.ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("store/mongo: read accept flag: %w", err)
	}

	return doc.IsAcceptingMessages, nil
}

// SetAcceptFlag checks the matched count, not the modified count, so that
// writing the current value again is still a success.
func (s *Store) SetAcceptFlag(ctx context.Context, userID uuid.UUID, accept bool) error {
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "isAcceptingMessages", Value: accept}}}}

	res, err := s.users.UpdateOne(ctx, byID(userID), update)
	if err != nil {
		return fmt.Errorf("store/mongo: set accept flag: %w", err)
	}
	if res.MatchedCount == 0 {
		return common.ErrNotFound
	}

	return nil
}

func byID(userID uuid.UUID) bson.D {
	return bson.D{{Key: "_id", Value: userID.String()}}
}
