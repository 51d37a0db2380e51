package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jo-hoe/imagecompressor/internal/backend/database"
	"github.com/jo-hoe/imagecompressor/internal/backend/mail"
	"github.com/jo-hoe/imagecompressor/internal/backend/session"
	"github.com/jo-hoe/imagecompressor/internal/common"
)

const DefaultResetTokenTTL = time.Hour

// UserInfo is the public view of an account
type UserInfo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// LoginResult is returned on successful login
type LoginResult struct {
	SessionID string
	User      UserInfo
}

// Service implements account registration, login sessions and password reset
type Service struct {
	users         database.DatabaseService
	sessions      session.Store
	mailer        mail.Sender
	resetBaseURL  string
	resetTokenTTL time.Duration
	bcryptCost    int
	now           func() time.Time
}

func NewService(users database.DatabaseService, sessions session.Store, mailer mail.Sender, resetBaseURL string) *Service {
	return &Service{
		users:         users,
		sessions:      sessions,
		mailer:        mailer,
		resetBaseURL:  resetBaseURL,
		resetTokenTTL: DefaultResetTokenTTL,
		bcryptCost:    bcrypt.DefaultCost,
		now:           time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// hashPassword reports passwords bcrypt cannot hash as a ValidationError
func (s *Service) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", common.NewValidationError("Password must be at most 72 bytes")
	}
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (s *Service) Register(ctx context.Context, email, name, password string) error {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" || name == "" || password == "" {
		return common.NewValidationError("All fields are required")
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return err
	}

	err = s.users.CreateUser(&database.User{Email: email, Name: name, PasswordHash: hash})
	if errors.Is(err, database.ErrUserExists) {
		return common.NewValidationError("User already exists")
	}
	if err != nil {
		return err
	}

	slog.Info("AuthService: user registered", "email", email)
	return nil
}

// Login checks the credentials and starts a new session, ending any previous one of the user
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, common.NewValidationError("Email and password are required")
	}

	user, err := s.users.GetUserByEmail(email)
	if errors.Is(err, database.ErrUserNotFound) {
		return nil, common.NewValidationError("Invalid email or password")
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, common.NewValidationError("Invalid email or password")
	}

	sess, err := s.sessions.Create(ctx, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("AuthService: user logged in", "email", user.Email)
	return &LoginResult{
		SessionID: sess.Token,
		User:      UserInfo{Email: user.Email, Name: user.Name},
	}, nil
}

func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return common.NewValidationError("Session ID is required")
	}
	err := s.sessions.Delete(ctx, sessionID)
	if errors.Is(err, session.ErrSessionNotFound) {
		return common.NewValidationError("Invalid session ID or user not found")
	}
	return err
}

func (s *Service) UserInfo(ctx context.Context, sessionID string) (*UserInfo, error) {
	if sessionID == "" {
		return nil, common.NewValidationError("Session ID is required")
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, session.ErrSessionNotFound) {
		return nil, &common.NotFoundError{Resource: "session", ID: sessionID}
	}
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(sess.UserEmail)
	if errors.Is(err, database.ErrUserNotFound) {
		return nil, &common.NotFoundError{Resource: "user", ID: sess.UserEmail}
	}
	if err != nil {
		return nil, err
	}
	return &UserInfo{Email: user.Email, Name: user.Name}, nil
}

// ForgotPassword stores a reset token and mails the reset link if the
// account exists. The outcome is never revealed to the caller.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return common.NewValidationError("Email is required")
	}

	user, err := s.users.GetUserByEmail(email)
	if errors.Is(err, database.ErrUserNotFound) {
		slog.Info("AuthService: password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return err
	}

	token, err := generateResetToken()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}
	if err := s.users.SetResetToken(user.Email, token, s.now().Add(s.resetTokenTTL)); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	body := fmt.Sprintf("Hello %s,\n\nYou requested a password reset. Open the link below to choose a new password:\n\n%s\n\nThe link expires in %s. If you did not request this, ignore this message.\n",
		user.Name, s.resetLink(token), s.resetTokenTTL)
	if err := s.mailer.Send(ctx, user.Email, "Password Reset", body); err != nil {
		return fmt.Errorf("failed to send reset mail: %w", err)
	}
	return nil
}

func (s *Service) resetLink(token string) string {
	link, err := url.Parse(s.resetBaseURL)
	if err != nil {
		return s.resetBaseURL + "?token=" + url.QueryEscape(token)
	}
	query := link.Query()
	query.Set("token", token)
	link.RawQuery = query.Encode()
	return link.String()
}

// ResetPassword sets a new password for the holder of a valid reset token
// and ends the user's session.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if token == "" || password == "" {
		return common.NewValidationError("Token and new password are required")
	}

	user, err := s.users.GetUserByResetToken(token)
	if errors.Is(err, database.ErrUserNotFound) {
		return common.NewValidationError("Invalid or expired token")
	}
	if err != nil {
		return err
	}
	if !s.now().Before(user.ResetTokenExpiry) {
		return common.NewValidationError("Invalid or expired token")
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(user.Email, hash); err != nil {
		return err
	}
	if err := s.sessions.DeleteForUser(ctx, user.Email); err != nil {
		slog.Warn("AuthService: failed to revoke session after password reset", "email", user.Email, "error", err)
	}

	slog.Info("AuthService: password reset", "email", user.Email)
	return nil
}
