package core

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jo-hoe/imagecompressor/internal/backend/imageprocessing"
	"github.com/jo-hoe/imagecompressor/internal/backend/mail"
	"github.com/jo-hoe/imagecompressor/internal/backend/session"
	"github.com/jo-hoe/imagecompressor/internal/backend/storage"
)

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Database struct {
	Type             string        `yaml:"type"`
	ConnectionString string        `yaml:"connectionString"`
	ConnectRetries   int           `yaml:"connectRetries"`
	RetryDelay       time.Duration `yaml:"retryDelay"`
}

// Policy configures the width table. A nil TJKFeatureWidth takes the
// default; an explicit 0 leaves TJK feature images to the request override.
type Policy struct {
	TJKFeatureWidth *int `yaml:"tjkFeatureWidth"`
}

type Images struct {
	MaxFiles int                          `yaml:"maxFiles"`
	Policy   Policy                       `yaml:"policy"`
	Budget   imageprocessing.BudgetConfig `yaml:"budget"`
}

type Auth struct {
	ResetBaseURL string `yaml:"resetBaseURL"`
}

type CORS struct {
	AllowOrigins []string `yaml:"allowOrigins"`
}

type ServiceConfig struct {
	Port         int            `yaml:"port"`
	ReadTimeout  time.Duration  `yaml:"readTimeout"`
	WriteTimeout time.Duration  `yaml:"writeTimeout"`
	Logging      Logging        `yaml:"logging"`
	Database     Database       `yaml:"database"`
	Storage      storage.Config `yaml:"storage"`
	Sessions     session.Config `yaml:"sessions"`
	Mail         mail.Config    `yaml:"mail"`
	Images       Images         `yaml:"images"`
	Auth         Auth           `yaml:"auth"`
	CORS         CORS           `yaml:"cors"`
}

// LoadConfig loads configuration from the specified YAML file
func LoadConfig(configPath string) (*ServiceConfig, error) {
	// Read the config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	// Parse YAML
	var config ServiceConfig
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	config.ApplyDefaults()
	config.applyEnvironment()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", configPath, err)
	}

	return &config, nil
}

// ApplyDefaults fills every unset field with its default
func (c *ServiceConfig) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 2 * time.Minute
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 5 * time.Minute
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.ConnectionString == "" {
		c.Database.ConnectionString = "imagecompressor.db"
	}
	if c.Database.RetryDelay == 0 {
		c.Database.RetryDelay = 2 * time.Second
	}
	if c.Storage.Type == "" {
		c.Storage.Type = "filesystem"
	}
	if c.Storage.Root == "" {
		c.Storage.Root = "uploads"
	}
	if c.Storage.LockDir == "" {
		c.Storage.LockDir = "locks"
	}
	if c.Sessions.Type == "" {
		c.Sessions.Type = "sqlite"
	}
	if c.Mail.Type == "" {
		c.Mail.Type = "log"
	}
	if c.Images.MaxFiles == 0 {
		c.Images.MaxFiles = imageprocessing.DefaultMaxFiles
	}
	if c.Images.Policy.TJKFeatureWidth == nil {
		width := imageprocessing.DefaultTJKFeatureWidth
		c.Images.Policy.TJKFeatureWidth = &width
	}

	defaults := imageprocessing.DefaultBudgetConfig()
	budget := &c.Images.Budget
	if budget.MaxBytes == 0 {
		budget.MaxBytes = defaults.MaxBytes
	}
	if budget.Quality == 0 {
		budget.Quality = defaults.Quality
	}
	if budget.QualityStep == 0 {
		budget.QualityStep = defaults.QualityStep
	}
	if budget.QualityFloor == nil {
		budget.QualityFloor = defaults.QualityFloor
	}

	if c.Auth.ResetBaseURL == "" {
		c.Auth.ResetBaseURL = "http://localhost:3000/reset-password"
	}
	if len(c.CORS.AllowOrigins) == 0 {
		c.CORS.AllowOrigins = []string{"http://localhost:3000"}
	}
}

// applyEnvironment lets secrets come from the environment instead of the file
func (c *ServiceConfig) applyEnvironment() {
	overrides := map[string]*string{
		"SMTP_PASSWORD":        &c.Mail.SMTP.Password,
		"REDIS_PASSWORD":       &c.Sessions.Redis.Password,
		"S3_ACCESS_KEY_ID":     &c.Storage.S3.AccessKeyID,
		"S3_SECRET_ACCESS_KEY": &c.Storage.S3.SecretAccessKey,
	}
	for name, target := range overrides {
		if value := os.Getenv(name); value != "" {
			*target = value
		}
	}
}

// Validate checks ranges and enumerations after defaults were applied
func (c *ServiceConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be in [1, 65535], got %d", c.Port)
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	if c.Database.ConnectRetries < 0 {
		return fmt.Errorf("database.connectRetries must not be negative, got %d", c.Database.ConnectRetries)
	}
	if c.Images.MaxFiles < 0 {
		return fmt.Errorf("images.maxFiles must be positive, got %d", c.Images.MaxFiles)
	}
	if width := c.Images.Policy.TJKFeatureWidth; width != nil && *width < 0 {
		return fmt.Errorf("images.policy.tjkFeatureWidth must not be negative, got %d", *c.Images.Policy.TJKFeatureWidth)
	}
	if err := c.Images.Budget.Validate(); err != nil {
		return fmt.Errorf("images.budget: %w", err)
	}
	if c.Sessions.TTL < 0 {
		return fmt.Errorf("sessions.ttl must not be negative, got %s", c.Sessions.TTL)
	}
	return nil
}

// ResolutionPolicy returns the configured width table
func (c *ServiceConfig) ResolutionPolicy() imageprocessing.ResolutionPolicy {
	policy := imageprocessing.DefaultResolutionPolicy()
	if c.Images.Policy.TJKFeatureWidth != nil {
		policy.TJKFeatureWidth = *c.Images.Policy.TJKFeatureWidth
	}
	return policy
}

// SlogLevel returns the configured log level, info when unparsable
func (l Logging) SlogLevel() slog.Level {
	level, err := parseLevel(l.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// NewLogger builds a slog logger writing to w in the configured format
func (l Logging) NewLogger(w io.Writer) *slog.Logger {
	options := &slog.HandlerOptions{Level: l.SlogLevel()}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, options))
	}
	return slog.New(slog.NewTextHandler(w, options))
}

func parseLevel(level string) (slog.Level, error) {
	var parsed slog.Level
	if err := parsed.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("logging.level %q is invalid: %w", level, err)
	}
	return parsed, nil
}
