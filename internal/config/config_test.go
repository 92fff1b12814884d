package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"careTracker/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// TestLoad_File тестирует чтение файла и значения по умолчанию
func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
  cors_origins: ["http://a.example", "http://b.example"]
repository:
  type: postgres
database:
  url: postgres://u:p@localhost:5432/db
auth:
  jwt_secret: `+validSecret+`
  token_lifetime: 2h
checklist:
  timezone: Europe/Moscow
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.GetServerAddr())
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "postgres", cfg.Repository.Type)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenLifetime)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, 5*time.Minute, cfg.Worker.ReminderInterval)
	assert.Equal(t, 100, cfg.Worker.BatchSize)
	assert.True(t, cfg.Database.MigrateOnStart)
	assert.False(t, cfg.Redis.Enabled)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Moscow", loc.String())
}

// TestLoad_EnvOverrides тестирует переопределение через CARETRACKER_*
func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: `+validSecret+`
`)
	t.Setenv("CARETRACKER_SERVER_PORT", "7070")
	t.Setenv("CARETRACKER_REDIS_ENABLED", "true")
	t.Setenv("CARETRACKER_REDIS_ADDR", "redis:6379")
	t.Setenv("CARETRACKER_WORKER_REMINDER_INTERVAL", "30s")
	t.Setenv("CARETRACKER_BOOTSTRAP_ADMIN_USERNAME", "root")
	t.Setenv("CARETRACKER_BOOTSTRAP_ADMIN_PASSWORD", "root-password")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 30*time.Second, cfg.Worker.ReminderInterval)
	assert.Equal(t, "root", cfg.Bootstrap.AdminUsername)
}

// TestLoad_Invalid тестирует отказ на неверной конфигурации
func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "short jwt secret",
			content: "auth:\n  jwt_secret: short\n",
		},
		{
			name:    "unknown repository type",
			content: "auth:\n  jwt_secret: " + validSecret + "\nrepository:\n  type: mongo\n",
		},
		{
			name:    "postgres without url",
			content: "auth:\n  jwt_secret: " + validSecret + "\nrepository:\n  type: postgres\n",
		},
		{
			name:    "unknown timezone",
			content: "auth:\n  jwt_secret: " + validSecret + "\nchecklist:\n  timezone: Mars/Olympus\n",
		},
		{
			name:    "admin without password",
			content: "auth:\n  jwt_secret: " + validSecret + "\nbootstrap:\n  admin_username: admin\n",
		},
		{
			name:    "broken yaml",
			content: "auth: [",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

// TestLoad_MissingFile тестирует явный путь к отсутствующему файлу
func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}
