package core

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}
	return configPath
}

func TestLoadConfig_Defaults(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, "port: 9090\n"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", config.Port)
	}
	if config.Images.MaxFiles != 10 {
		t.Errorf("Expected default maxFiles 10, got %d", config.Images.MaxFiles)
	}
	if config.Images.Budget.MaxBytes != 200*1024 || config.Images.Budget.Quality != 80 {
		t.Errorf("Unexpected default budget %+v", config.Images.Budget)
	}
	if got := config.ResolutionPolicy().TJKFeatureWidth; got != 1920 {
		t.Errorf("Expected default TJK feature width 1920, got %d", got)
	}
	if config.Storage.Type != "filesystem" || config.Sessions.Type != "sqlite" || config.Mail.Type != "log" {
		t.Errorf("Unexpected default backends: storage=%s sessions=%s mail=%s", config.Storage.Type, config.Sessions.Type, config.Mail.Type)
	}
	if config.Logging.SlogLevel() != slog.LevelInfo {
		t.Errorf("Expected info level, got %v", config.Logging.SlogLevel())
	}
}

func TestLoadConfig_FullFile(t *testing.T) {
	content := `port: 8081
readTimeout: 30s
logging:
  level: debug
  format: json
database:
  type: sqlite
  connectionString: ":memory:"
  connectRetries: 3
  retryDelay: 500ms
storage:
  type: s3
  lockDir: /tmp/locks
  s3:
    bucket: images
    endpoint: http://minio:9000
    usePathStyle: true
sessions:
  type: redis
  ttl: 24h
  redis:
    addr: localhost:6379
mail:
  type: smtp
  smtp:
    host: smtp.example.com
    port: 2525
    from: noreply@example.com
images:
  maxFiles: 5
  policy:
    tjkFeatureWidth: 0
  budget:
    maxBytes: 102400
    quality: 90
cors:
  allowOrigins: ["https://app.example.com"]
`
	config, err := LoadConfig(writeConfig(t, content))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.ReadTimeout != 30*time.Second {
		t.Errorf("Expected read timeout 30s, got %s", config.ReadTimeout)
	}
	if config.Logging.SlogLevel() != slog.LevelDebug || config.Logging.Format != "json" {
		t.Errorf("Unexpected logging %+v", config.Logging)
	}
	if config.Database.ConnectRetries != 3 || config.Database.RetryDelay != 500*time.Millisecond {
		t.Errorf("Unexpected database config %+v", config.Database)
	}
	if config.Storage.S3.Bucket != "images" || !config.Storage.S3.UsePathStyle {
		t.Errorf("Unexpected s3 config %+v", config.Storage.S3)
	}
	if config.Sessions.TTL != 24*time.Hour || config.Sessions.Redis.Addr != "localhost:6379" {
		t.Errorf("Unexpected sessions config %+v", config.Sessions)
	}
	if config.Mail.SMTP.Port != 2525 {
		t.Errorf("Expected smtp port 2525, got %d", config.Mail.SMTP.Port)
	}
	if config.Images.MaxFiles != 5 || config.Images.Budget.Quality != 90 || config.Images.Budget.QualityStep != 10 {
		t.Errorf("Unexpected images config %+v", config.Images)
	}
	if got := config.ResolutionPolicy().TJKFeatureWidth; got != 0 {
		t.Errorf("Expected explicit 0 TJK feature width to be kept, got %d", got)
	}
	if len(config.CORS.AllowOrigins) != 1 || config.CORS.AllowOrigins[0] != "https://app.example.com" {
		t.Errorf("Unexpected CORS origins %v", config.CORS.AllowOrigins)
	}
}

func TestLoadConfig_EnvironmentSecrets(t *testing.T) {
	t.Setenv("SMTP_PASSWORD", "from-env")
	config, err := LoadConfig(writeConfig(t, "mail:\n  smtp:\n    password: from-file\n"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.Mail.SMTP.Password != "from-env" {
		t.Errorf("Expected environment to override password, got %q", config.Mail.SMTP.Password)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"port out of range", "port: 70000\n", "port"},
		{"bad log level", "logging:\n  level: loud\n", "logging.level"},
		{"bad log format", "logging:\n  format: xml\n", "logging.format"},
		{"floor above quality", "images:\n  budget:\n    quality: 50\n    qualityFloor: 60\n", "images.budget"},
		{"negative feature width", "images:\n  policy:\n    tjkFeatureWidth: -1\n", "tjkFeatureWidth"},
		{"malformed yaml", "port: [\n", "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if config != nil {
				t.Error("Expected config to be nil on error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error to mention %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	config, err := LoadConfig("/path/that/does/not/exist/config.yaml")
	if err == nil {
		t.Fatal("Expected error for non-existent file, got nil")
	}
	if config != nil {
		t.Error("Expected config to be nil when file doesn't exist")
	}
}

func TestLoadConfig_QualityFloor(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"default", "port: 8080\n", 10},
		{"explicit zero kept", "images:\n  budget:\n    qualityFloor: 0\n", 0},
		{"explicit value", "images:\n  budget:\n    qualityFloor: 30\n", 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadConfig(writeConfig(t, tt.content))
			if err != nil {
				t.Fatalf("LoadConfig failed: %v", err)
			}
			floor := config.Images.Budget.QualityFloor
			if floor == nil || *floor != tt.want {
				t.Errorf("Expected quality floor %d, got %v", tt.want, floor)
			}
		})
	}
}

func TestLogging_NewLogger(t *testing.T) {
	var buf strings.Builder
	logger := Logging{Level: "warn", Format: "json"}.NewLogger(&buf)

	logger.Info("Core: hidden")
	logger.Warn("Core: shown", "batch_id", "abc")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, `"batch_id":"abc"`) {
		t.Errorf("expected JSON record with batch_id, got %s", out)
	}
}
