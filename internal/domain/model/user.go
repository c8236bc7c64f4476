package model

import (
	"errors"
	"time"
)

// User represents a registered API user.
type User struct {
	ID           string    `json:"id"         db:"id"`
	Username     string    `json:"username"   db:"username"`
	PasswordHash string    `json:"-"          db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// RegisterUserRequest represents a request to register a new user.
type RegisterUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate validates the RegisterUserRequest fields.
func (r *RegisterUserRequest) Validate() error {
	if r.Username == "" {
		return errors.New("username is required")
	}
	if len(r.Username) > 128 {
		return errors.New("username must be at most 128 characters")
	}
	if len(r.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	// bcrypt truncates beyond 72 bytes
	if len(r.Password) > 72 {
		return errors.New("password must be at most 72 characters")
	}
	return nil
}
