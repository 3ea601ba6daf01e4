package store

import (
	"fmt"
	"net"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/kelseyhightower/envconfig"
)

// Config holds database configuration. DSN wins when set; otherwise one is
// built from the individual fields for the selected driver.
type Config struct {
	Driver   string `envconfig:"DB_DRIVER" default:"sqlite"`
	DSN      string `envconfig:"DB_DSN"`
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT"`
	User     string `envconfig:"DB_USER"`
	Password string `envconfig:"DB_PASSWORD"`
	Name     string `envconfig:"DB_NAME" default:"ldapauth.db"`
}

func LoadConfig() (*Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to process database configuration: %w", err)
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if !HasDriver(c.Driver) {
		return fmt.Errorf("unsupported database driver: %s", c.Driver)
	}
	if c.DSN == "" && c.Name == "" {
		return fmt.Errorf("DB_NAME or DB_DSN is required")
	}
	return nil
}

// DataSourceName builds the driver specific DSN.
func (c *Config) DataSourceName() string {
	if c.DSN != "" {
		return c.DSN
	}

	switch c.Driver {
	case "mysql":
		port := c.Port
		if port == "" {
			port = "3306"
		}
		cfg := gomysql.NewConfig()
		cfg.User = c.User
		cfg.Passwd = c.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(c.Host, port)
		cfg.DBName = c.Name
		cfg.ParseTime = true
		return cfg.FormatDSN()
	case "postgres":
		port := c.Port
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			c.Host, port, c.User, c.Password, c.Name)
	default:
		return c.Name
	}
}
