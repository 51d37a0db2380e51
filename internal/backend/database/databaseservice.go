package database

import (
	"database/sql"
	"time"
)

type DatabaseService interface {
	CreateDatabase() (*sql.DB, error)
	DoesDatabaseExist() bool
	// DB exposes the shared handle so other stores can live in the same database.
	DB() *sql.DB
	Close() error

	// CreateUser fails with ErrUserExists if the email is taken.
	CreateUser(user *User) error
	GetUserByEmail(email string) (*User, error)
	SetResetToken(email, token string, expiry time.Time) error
	GetUserByResetToken(token string) (*User, error)
	// UpdatePassword stores the new hash and clears any pending reset token.
	UpdatePassword(email, passwordHash string) error
}
