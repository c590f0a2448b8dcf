package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func TestDecode_Defaults(t *testing.T) {
	v := newViper()
	v.Set("security.jwtsecret", "s3cret")

	cfg, err := decode(v)
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.HTTP.Port)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, time.Hour, cfg.Security.SessionTTL)
	assert.Equal(t, 10, cfg.Security.BcryptCost)
	assert.False(t, cfg.Security.RequireEmailVerification)
	assert.Equal(t, 24*time.Hour, cfg.Tokens.VerificationTTL)
	assert.Equal(t, time.Hour, cfg.Tokens.ResetTTL)
	assert.Equal(t, 24*time.Hour, cfg.Tokens.DeletionTTL)
	assert.Equal(t, MailTransportSMTP, cfg.Mail.Transport)
	assert.False(t, cfg.Mail.Configured())
	assert.Equal(t, "mail:outbound", cfg.Redis.Stream)
	assert.Equal(t, 30*time.Second, cfg.Worker.ClaimInterval)
}

func TestDecode_RequiresSecret(t *testing.T) {
	_, err := decode(newViper())
	assert.ErrorIs(t, err, ErrMissingJWTSecret)
}

func TestValidate(t *testing.T) {
	base := func() AppConfig {
		return AppConfig{
			Security: SecurityConfig{JWTSecret: "s"},
			Database: DatabaseConfig{Driver: DriverPostgres},
			Mail:     MailConfig{Transport: MailTransportNone},
		}
	}

	cfg := base()
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Database.Driver = "mysql"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Mail.Transport = MailTransportQueue
	assert.Error(t, cfg.Validate())
	cfg.Redis.Enabled = true
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Mail.Transport = "pigeon"
	assert.Error(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("RUTAS_SECURITY_JWTSECRET", "from-env")
	t.Setenv("RUTAS_HTTP_PORT", "8081")
	t.Setenv("RUTAS_MAIL_HOST", "smtp.example.com")
	t.Setenv("RUTAS_SECURITY_REQUIREEMAILVERIFICATION", "true")
	t.Setenv("RUTAS_ALLOWCORSORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Security.JWTSecret)
	assert.Equal(t, 8081, cfg.HTTP.Port)
	assert.True(t, cfg.Mail.Configured())
	assert.True(t, cfg.Security.RequireEmailVerification)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowCORSOrigins)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	yaml := []byte(`
security:
  jwtsecret: from-file
  sessionttl: 30m
database:
  driver: postgres
  dsn: postgres://rutas@localhost/rutas
tokens:
  resetttl: 15m
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.Security.JWTSecret)
	assert.Equal(t, 30*time.Minute, cfg.Security.SessionTTL)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 15*time.Minute, cfg.Tokens.ResetTTL)
}
