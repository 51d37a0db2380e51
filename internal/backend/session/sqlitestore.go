package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// SQLiteStore keeps sessions in a table of the shared database. The unique
// user_email column enforces one session per user.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

func NewSQLiteStore(db *sql.DB, ttl time.Duration) (*SQLiteStore, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		user_email TEXT NOT NULL UNIQUE,
		issued_at INTEGER NOT NULL,
		expires_at INTEGER
	)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}
	return &SQLiteStore{db: db, ttl: ttl, now: time.Now}, nil
}

func (s *SQLiteStore) Create(ctx context.Context, userEmail string) (*Session, error) {
	session := newSession(userEmail, s.now(), s.ttl)

	var expiresAt sql.NullInt64
	if !session.ExpiresAt.IsZero() {
		expiresAt = sql.NullInt64{Int64: session.ExpiresAt.Unix(), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE user_email = ?", userEmail); err != nil {
		return nil, fmt.Errorf("failed to revoke previous session: %w", err)
	}
	_, err = tx.ExecContext(ctx, "INSERT INTO sessions (token, user_email, issued_at, expires_at) VALUES (?, ?, ?, ?)",
		session.Token, session.UserEmail, session.IssuedAt.Unix(), expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	slog.Debug("SQLiteStore: session created", "user", userEmail)
	return session, nil
}

func (s *SQLiteStore) Get(ctx context.Context, token string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, "SELECT token, user_email, issued_at, expires_at FROM sessions WHERE token = ?", token)

	var session Session
	var issuedAt int64
	var expiresAt sql.NullInt64
	err := row.Scan(&session.Token, &session.UserEmail, &issuedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	session.IssuedAt = time.Unix(issuedAt, 0)
	if expiresAt.Valid {
		session.ExpiresAt = time.Unix(expiresAt.Int64, 0)
	}

	if session.Expired(s.now()) {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token); err != nil {
			slog.Warn("SQLiteStore: failed to delete expired session", "error", err)
		}
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, token string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteForUser(ctx context.Context, userEmail string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE user_email = ?", userEmail)
	return err
}
