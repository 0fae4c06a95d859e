package models

import "time"

// User is the directory entry owned by the identity service. This service
// only reads it, apart from the account-created hook that mirrors it.
type User struct {
	UserID      string    `db:"user_id" json:"user_id"`
	Email       string    `db:"email" json:"email"`
	DisplayName string    `db:"display_name" json:"display_name"`
	Tier        string    `db:"tier" json:"tier"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID string
	Email  string
	// Tier is the signed subscription claim of the access token.
	Tier string
}

type AccountResult struct {
	UserID               string `json:"user_id"`
	Created              bool   `json:"created"`
	InvitationsConverted int    `json:"invitations_converted"`
}
