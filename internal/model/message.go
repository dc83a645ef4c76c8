package model

import (
	"time"

	"github.com/google/uuid"
)

// Message is one anonymous note delivered to a user's inbox. ID and
// CreatedAt are assigned by the store at insertion time. A zero CreatedAt
// marks a legacy record without a timestamp.
type Message struct {
	ID        uuid.UUID `json:"_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
