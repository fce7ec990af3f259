package model

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// User is an account that may sign in to the inventory.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// MinPasswordLength is the shortest password accepted on registration or change.
const MinPasswordLength = 8

// MaxUsernameLength bounds usernames.
const MaxUsernameLength = 100

// ValidatePassword checks a plaintext password against the password policy.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// ValidateUsername checks that a username is non-empty and not too long.
func ValidateUsername(username string) error {
	if username == "" {
		return errors.New("username required")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return fmt.Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	return nil
}
