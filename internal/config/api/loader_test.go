package api_config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "s3cret")

	cfg, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Server.HTTPAddr)
	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "Tifi.tv", cfg.Mail.FromName)
	assert.Equal(t, "log", cfg.Mail.Transport)
	assert.Equal(t, "https://tifi.tv/about", cfg.Links.CTALink)
	assert.Equal(t, 15*time.Minute, cfg.Auth.LinkTTL)
	assert.Equal(t, 4, cfg.Dispatch.Workers)
	assert.Equal(t, "tifi.notifications.recorded", cfg.Kafka.Topic)
	assert.Equal(t, 2*time.Second, cfg.DB.QueryTimeout)
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	yml := filepath.Join(dir, "api.yaml")
	require.NoError(t, os.WriteFile(yml, []byte(`
storage:
  driver: sqlite
  sqlite_path: "file::memory:"
mail:
  transport: smtp
  smtp:
    addr: mailhog:1025
dispatch:
  workers: 8
`), 0o600))
	env := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(env, []byte("AUTH_JWT_SECRET=from-dotenv\n"), 0o600))
	t.Setenv("DISPATCH_WORKERS", "2")
	t.Cleanup(func() { _ = os.Unsetenv("AUTH_JWT_SECRET") })

	cfg, err := Load(yml, env)
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "mailhog:1025", cfg.Mail.SMTP.Addr)
	assert.Equal(t, 2, cfg.Dispatch.Workers)
	assert.Equal(t, "from-dotenv", cfg.Auth.JWTSecret)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Storage: Storage{Driver: DriverSQLite, SQLitePath: "x.db"},
			Auth:    Auth{JWTSecret: "k"},
			Mail:    Mail{Transport: "log"},
		}
	}

	c := base()
	require.NoError(t, c.Validate())

	c = base()
	c.Storage.Driver = "mysql"
	var ce ErrConfig
	require.ErrorAs(t, c.Validate(), &ce)

	c = base()
	c.Auth.JWTSecret = ""
	assert.Error(t, c.Validate())

	c = base()
	c.Mail.Transport = "postmark"
	assert.Error(t, c.Validate())

	c = base()
	c.Kafka = Kafka{Enable: true}
	assert.Error(t, c.Validate())
}
