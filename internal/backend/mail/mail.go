package mail

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/smtp"
	"strconv"
	"time"

	gomail "github.com/emersion/go-message/mail"
)

// Sender delivers a plain text message to one recipient
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	FromName string `yaml:"fromName"`
}

// Config selects the sender. The "log" sender only writes the message to the log.
type Config struct {
	Type string     `yaml:"type"`
	SMTP SMTPConfig `yaml:"smtp"`
}

func NewSender(cfg Config) (Sender, error) {
	switch cfg.Type {
	case "", "log":
		return &LogSender{}, nil
	case "smtp":
		if cfg.SMTP.Host == "" || cfg.SMTP.From == "" {
			return nil, fmt.Errorf("smtp sender requires host and from address")
		}
		return NewSMTPSender(cfg.SMTP), nil
	default:
		return nil, fmt.Errorf("unsupported mail sender: %s", cfg.Type)
	}
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender sends mail through an SMTP relay with PLAIN auth when a username is set
type SMTPSender struct {
	cfg  SMTPConfig
	send sendFunc
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPSender{cfg: cfg, send: smtp.SendMail}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	message, err := ComposeMessage(s.cfg.FromName, s.cfg.From, to, subject, body, time.Now())
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	addr := s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)
	if err := s.send(addr, auth, s.cfg.From, []string{to}, message); err != nil {
		slog.Error("SMTPSender: failed to send mail", "to", to, "subject", subject, "error", err)
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	slog.Info("SMTPSender: mail sent", "to", to, "subject", subject)
	return nil
}

// ComposeMessage renders an RFC 5322 message with a quoted-printable UTF-8 text body
func ComposeMessage(fromName, from, to, subject, body string, date time.Time) ([]byte, error) {
	var h gomail.Header
	h.SetDate(date)
	h.SetAddressList("From", []*gomail.Address{{Name: fromName, Address: from}})
	h.SetAddressList("To", []*gomail.Address{{Address: to}})
	h.SetSubject(subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("failed to generate message id: %w", err)
	}
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	h.Set("Content-Transfer-Encoding", "quoted-printable")

	var buf bytes.Buffer
	w, err := gomail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message writer: %w", err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return nil, fmt.Errorf("failed to write message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize message: %w", err)
	}
	return buf.Bytes(), nil
}

// LogSender logs messages instead of delivering them
type LogSender struct{}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	slog.Info("LogSender: mail not delivered, no smtp configured", "to", to, "subject", subject, "body", body)
	return nil
}
