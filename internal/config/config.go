package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Driver          string
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	Stream   string
}

type SecurityConfig struct {
	JWTSecret                string
	SessionTTL               time.Duration
	BcryptCost               int
	RequireEmailVerification bool
}

type TokenConfig struct {
	VerificationTTL time.Duration
	ResetTTL        time.Duration
	DeletionTTL     time.Duration
}

type MailConfig struct {
	Transport string
	Host      string
	Port      int
	Username  string
	Password  string
	From      string
	SSL       bool
}

// Configured reports whether an outbound transport is available at all.
func (m MailConfig) Configured() bool {
	switch m.Transport {
	case MailTransportSMTP:
		return m.Host != ""
	case MailTransportQueue:
		return true
	default:
		return false
	}
}

type AppURLConfig struct {
	PublicURL string
}

type BootstrapConfig struct {
	AdminEmail    string
	AdminPassword string
}

type JobsConfig struct {
	TokenSweep string
}

type WorkerConfig struct {
	Group         string
	Consumer      string
	ClaimInterval time.Duration
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Database         DatabaseConfig
	Redis            RedisConfig
	Security         SecurityConfig
	Tokens           TokenConfig
	Mail             MailConfig
	App              AppURLConfig
	Bootstrap        BootstrapConfig
	Jobs             JobsConfig
	Worker           WorkerConfig
	AllowCORSOrigins []string
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	MailTransportSMTP  = "smtp"
	MailTransportQueue = "queue"
	MailTransportNone  = "none"
)

var ErrMissingJWTSecret = errors.New("security.jwtsecret is required")

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("RUTAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) Validate() error {
	if c.Security.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Mail.Transport {
	case MailTransportSMTP, MailTransportNone:
	case MailTransportQueue:
		if !c.Redis.Enabled {
			return errors.New("mail.transport=queue requires redis.enabled")
		}
	default:
		return fmt.Errorf("unsupported mail transport %q", c.Mail.Transport)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 3000)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.dsn", "file:data/database.sqlite?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	v.SetDefault("database.maxopen", 10)
	v.SetDefault("database.maxidle", 5)
	v.SetDefault("database.connmaxlifetime", "30m")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "mail:outbound")

	// keys without a useful default still need registering so that
	// AutomaticEnv overrides reach Unmarshal
	v.SetDefault("redis.password", "")
	v.SetDefault("security.jwtsecret", "")
	v.SetDefault("mail.host", "")
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "")
	v.SetDefault("app.publicurl", "")
	v.SetDefault("bootstrap.adminemail", "")
	v.SetDefault("bootstrap.adminpassword", "")
	v.SetDefault("allowcorsorigins", []string{})

	v.SetDefault("security.sessionttl", "1h")
	v.SetDefault("security.bcryptcost", 10)
	v.SetDefault("security.requireemailverification", false)

	v.SetDefault("tokens.verificationttl", "24h")
	v.SetDefault("tokens.resetttl", "1h")
	v.SetDefault("tokens.deletionttl", "24h")

	v.SetDefault("mail.transport", MailTransportSMTP)
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.ssl", false)

	v.SetDefault("jobs.tokensweep", "0 15 * * * *") // hourly, quarter past

	v.SetDefault("worker.group", "mail-workers")
	v.SetDefault("worker.consumer", "worker-1")
	v.SetDefault("worker.claiminterval", "30s")
}
