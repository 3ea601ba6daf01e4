package auth

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Fallback        string `envconfig:"LDAP_FALLBACK"`
	SavePassword    bool   `envconfig:"LDAP_SAVE_LOGIN_PASSWORD" default:"true"`
	MapUsername     string `envconfig:"LDAP_MAP_USERNAME" default:"identity"`
	MapEmail        string `envconfig:"LDAP_MAP_EMAIL" default:"identity"`
	MapName         string `envconfig:"LDAP_MAP_NAME" default:"identity"`
	UniqueUsernames bool   `envconfig:"LDAP_UNIQUE_USERNAMES" default:"false"`
}

type MailConfig struct {
	Enabled  bool   `envconfig:"REGISTRATION_EMAIL" default:"false"`
	Host     string `envconfig:"SMTP_HOST"`
	Port     int    `envconfig:"SMTP_PORT" default:"587"`
	User     string `envconfig:"SMTP_USER"`
	Password string `envconfig:"SMTP_PASSWORD"`
	From     string `envconfig:"SMTP_FROM"`
}

func LoadConfig() (*Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to process auth configuration: %w", err)
	}
	return &config, nil
}

func LoadMailConfig() (*MailConfig, error) {
	var config MailConfig
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to process mail configuration: %w", err)
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if !IsKnownStrategy(c.Fallback) {
		return fmt.Errorf("unknown LDAP_FALLBACK strategy: %s", c.Fallback)
	}
	if c.Fallback == StrategyLDAP {
		return fmt.Errorf("LDAP_FALLBACK cannot be %q", StrategyLDAP)
	}
	if _, err := c.Mappers(); err != nil {
		return err
	}
	return nil
}

// Mappers resolves the configured mapper names.
func (c *Config) Mappers() (Mappers, error) {
	username, err := MapperByName(c.MapUsername)
	if err != nil {
		return Mappers{}, fmt.Errorf("LDAP_MAP_USERNAME: %w", err)
	}
	email, err := MapperByName(c.MapEmail)
	if err != nil {
		return Mappers{}, fmt.Errorf("LDAP_MAP_EMAIL: %w", err)
	}
	name, err := MapperByName(c.MapName)
	if err != nil {
		return Mappers{}, fmt.Errorf("LDAP_MAP_NAME: %w", err)
	}
	return Mappers{Username: username, Email: email, FullName: name}, nil
}

func (c *MailConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Host == "" || c.From == "" {
		return fmt.Errorf("REGISTRATION_EMAIL requires SMTP_HOST and SMTP_FROM")
	}
	return nil
}
