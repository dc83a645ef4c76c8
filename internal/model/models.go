// Package model defines data structure.
package model

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered account and the owner of one inbox.
type User struct {
	ID                  uuid.UUID
	Username            string
	Email               string
	IsVerified          bool
	VerifyCode          string
	VerifyCodeExpiry    time.Time
	IsAcceptingMessages bool
	Messages            []Message
}

// Owner is the authenticated identity resolved from a request's session.
// A nil *Owner means the request carried no valid session.
type Owner struct {
	ID uuid.UUID
}

// CreateUserParams carries the fields a signup flow supplies when it
// creates a user record.
type CreateUserParams struct {
	Username         string
	Email            string
	VerifyCode       string
	VerifyCodeExpiry time.Time
}
