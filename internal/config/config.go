package config

import (
	"fmt"
	"time"

	"github.com/cpp-cyber/ldapauth/internal/auth"
	"github.com/cpp-cyber/ldapauth/internal/ldap"
	"github.com/cpp-cyber/ldapauth/internal/lock"
	"github.com/cpp-cyber/ldapauth/internal/store"

	"github.com/hashicorp/go-multierror"
	"github.com/kelseyhightower/envconfig"
)

// DefaultSessionSecret is only acceptable for local development.
const DefaultSessionSecret = "default-secret-key"

// AppConfig holds the HTTP server settings
type AppConfig struct {
	Port          string        `envconfig:"PORT" default:":8080"`
	SessionSecret string        `envconfig:"SESSION_SECRET" default:"default-secret-key"`
	LoginTimeout  time.Duration `envconfig:"LOGIN_TIMEOUT" default:"15s"`
	CORSOrigin    string        `envconfig:"CORS_ORIGIN"`
	LogLevel      string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat     string        `envconfig:"LOG_FORMAT" default:"json"`
}

// Config holds all application configuration
type Config struct {
	App   *AppConfig
	LDAP  *ldap.Config
	Store *store.Config
	Auth  *auth.Config
	Mail  *auth.MailConfig
	Lock  *lock.Config
}

// Load reads every section from the environment. Sections are processed
// separately so that each keeps its unprefixed variable names.
func Load() (*Config, error) {
	var app AppConfig
	if err := envconfig.Process("", &app); err != nil {
		return nil, fmt.Errorf("failed to process environment configuration: %w", err)
	}

	ldapConfig, err := ldap.LoadConfig()
	if err != nil {
		return nil, err
	}
	storeConfig, err := store.LoadConfig()
	if err != nil {
		return nil, err
	}
	authConfig, err := auth.LoadConfig()
	if err != nil {
		return nil, err
	}
	mailConfig, err := auth.LoadMailConfig()
	if err != nil {
		return nil, err
	}
	lockConfig, err := lock.LoadConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		App:   &app,
		LDAP:  ldapConfig,
		Store: storeConfig,
		Auth:  authConfig,
		Mail:  mailConfig,
		Lock:  lockConfig,
	}, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs *multierror.Error

	if c.App.LoginTimeout <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("LOGIN_TIMEOUT must be positive"))
	}
	if c.App.SessionSecret == "" {
		errs = multierror.Append(errs, fmt.Errorf("SESSION_SECRET is required"))
	}
	if err := c.LDAP.Validate(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("ldap: %w", err))
	}
	if err := c.Store.Validate(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("database: %w", err))
	}
	if err := c.Auth.Validate(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("auth: %w", err))
	}
	if err := c.Mail.Validate(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("mail: %w", err))
	}
	if err := c.Lock.Validate(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("lock: %w", err))
	}

	return errs.ErrorOrNil()
}

// InsecureSessionSecret reports whether the built-in development secret is in use.
func (c *Config) InsecureSessionSecret() bool {
	return c.App.SessionSecret == DefaultSessionSecret
}
