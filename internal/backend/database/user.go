package database

import (
	"errors"
	"time"
)

var (
	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")
)

// User is an account record. ResetToken is empty unless a password reset is pending.
type User struct {
	Email            string
	Name             string
	PasswordHash     string
	ResetToken       string
	ResetTokenExpiry time.Time
	CreatedAt        time.Time
}
