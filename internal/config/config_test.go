package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom("", "")
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, 60, cfg.Engine.StaleThresholdDays)
	assert.Len(t, cfg.Sources, 4)
	assert.Equal(t, "github", cfg.Sources[0].Scanner)
	assert.Equal(t, "w3f", cfg.Sources[0].Options["owner"])
	assert.Equal(t, time.UTC.String(), cfg.Scheduler.Location().String())
}

func TestLoadFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
storage:
  driver: postgres
database:
  dsn: postgres://file
scheduler:
  cronExpression: "0 6 * * *"
  timezone: Europe/Berlin
github:
  perPage: 50
  requestDelay: 2s
sources:
  - name: dump
    scanner: file
    options:
      path: "data/*.json"
engine:
  staleThresholdDays: 30
  labelCategories:
    needs-work: PENDING
  rejectionKeywords: [declined]
rubric:
  weights:
    completeness: 1
`)
	envFile := writeFile(t, dir, ".env", "TELEGRAM_CHAT_ID=99\n")

	t.Setenv("DATABASE_DSN", "postgres://env")
	t.Setenv("GRANT_SCANNER_STALE_DAYS", "45")
	t.Setenv("TELEGRAM_CHAT_ID", "")
	require.NoError(t, os.Unsetenv("TELEGRAM_CHAT_ID"))

	cfg, err := LoadFrom(path, envFile)
	require.NoError(t, err)

	assert.Equal(t, StoragePostgres, cfg.Storage.Driver)
	assert.Equal(t, "postgres://env", cfg.Database.DSN)
	assert.Equal(t, "0 6 * * *", cfg.Scheduler.CronExpression)
	assert.Equal(t, "Europe/Berlin", cfg.Scheduler.Location().String())
	assert.Equal(t, 50, cfg.GitHub.PerPage)
	assert.Equal(t, 2*time.Second, cfg.GitHub.RequestDelay)
	assert.Equal(t, time.Minute, cfg.GitHub.RateLimitWait)
	assert.Equal(t, 45, cfg.Engine.StaleThresholdDays)
	assert.Equal(t, "PENDING", cfg.Engine.LabelCategories["needs-work"])
	assert.Equal(t, []string{"declined"}, cfg.Engine.RejectionKeywords)
	assert.Equal(t, 1.0, cfg.Rubric.Weights["completeness"])
	assert.Equal(t, "99", cfg.Notifications.Telegram.ChatID)
	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, "data/*.json", cfg.Sources[0].Options["path"])
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFrom(filepath.Join(dir, "missing.yaml"), "")
	require.Error(t, err)

	_, err = LoadFrom(writeFile(t, dir, "bad.yaml", "storage: [oops"), "")
	require.Error(t, err)

	_, err = LoadFrom(writeFile(t, dir, "pg.yaml", "storage:\n  driver: postgres\n"), "")
	require.Error(t, err)

	_, err = LoadFrom("", filepath.Join(dir, "absent.env"))
	require.NoError(t, err)
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Storage.Driver = "sqlite"
	assert.Error(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.Sources = append(cfg.Sources, cfg.Sources[0])
	assert.Error(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.Sources = []SourceConfig{{Name: "x"}}
	assert.Error(t, cfg.Validate())
}

func TestValidateLabelCategories(t *testing.T) {
	cfg := defaultConfig()
	cfg.Engine.LabelCategories = map[string]string{"needs-work": "pending", "wontfix": " Rejected "}
	require.NoError(t, cfg.Validate())

	for _, category := range []string{"approved", "STALE", "later", ""} {
		cfg.Engine.LabelCategories = map[string]string{"x": category}
		assert.Error(t, cfg.Validate(), category)
	}
}

func TestUnknownTimezoneFallsBack(t *testing.T) {
	cfg := defaultConfig()
	cfg.Scheduler.Timezone = "Mars/Olympus"
	cfg.bindTimezone()
	assert.Equal(t, "UTC", cfg.Scheduler.Location().String())
}
