package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteDatabase struct {
	db               *sql.DB
	connectionString string
}

func NewSQLiteDatabase(connectionString string) (DatabaseService, error) {
	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, err
	}
	// every connection to :memory: would otherwise see its own empty database
	if strings.Contains(connectionString, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	return &SQLiteDatabase{
		db:               db,
		connectionString: connectionString,
	}, nil
}

func (s *SQLiteDatabase) CreateDatabase() (*sql.DB, error) {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS users (
		email TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		reset_token TEXT,
		reset_token_expiry INTEGER,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		return nil, err
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_users_reset_token ON users(reset_token)`)
	if err != nil {
		return nil, err
	}

	return s.db, nil
}

func (s *SQLiteDatabase) DB() *sql.DB {
	return s.db
}

func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteDatabase) DoesDatabaseExist() bool {
	// In SQLite, the database file is created when you connect to it.
	// So we can assume it exists if we can successfully ping the database.
	err := s.db.Ping()
	return err == nil
}

func (s *SQLiteDatabase) CreateUser(user *User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	res, err := s.db.Exec(`INSERT INTO users (email, name, password_hash, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(email) DO NOTHING`,
		user.Email, user.Name, user.PasswordHash, user.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserExists
	}
	return nil
}

func (s *SQLiteDatabase) GetUserByEmail(email string) (*User, error) {
	row := s.db.QueryRow(`SELECT email, name, password_hash, reset_token, reset_token_expiry, created_at
		FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (s *SQLiteDatabase) SetResetToken(email, token string, expiry time.Time) error {
	res, err := s.db.Exec("UPDATE users SET reset_token = ?, reset_token_expiry = ? WHERE email = ?",
		token, expiry.Unix(), email)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *SQLiteDatabase) GetUserByResetToken(token string) (*User, error) {
	if token == "" {
		return nil, ErrUserNotFound
	}
	row := s.db.QueryRow(`SELECT email, name, password_hash, reset_token, reset_token_expiry, created_at
		FROM users WHERE reset_token = ?`, token)
	return scanUser(row)
}

func (s *SQLiteDatabase) UpdatePassword(email, passwordHash string) error {
	res, err := s.db.Exec(`UPDATE users
		SET password_hash = ?, reset_token = NULL, reset_token_expiry = NULL
		WHERE email = ?`, passwordHash, email)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func scanUser(row *sql.Row) (*User, error) {
	var user User
	var resetToken sql.NullString
	var resetExpiry sql.NullInt64
	var createdAt int64

	err := row.Scan(&user.Email, &user.Name, &user.PasswordHash, &resetToken, &resetExpiry, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	user.ResetToken = resetToken.String
	if resetExpiry.Valid {
		user.ResetTokenExpiry = time.Unix(resetExpiry.Int64, 0)
	}
	user.CreatedAt = time.Unix(createdAt, 0)
	return &user, nil
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}
