package config

import (
	"fmt"
	"net/url"
	"time"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// PersistenceConfig selects the storage backend. The memory backend serves
// local development and smoke testing only; it loses everything on exit.
type PersistenceConfig struct {
	Backend  string         `mapstructure:"backend" validate:"required,oneof=postgres memory"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig represents the database configuration.
type PostgresConfig struct {
	Host           string             `mapstructure:"host"`
	Port           int                `mapstructure:"port" validate:"omitempty,gte=1,lte=65535"`
	User           string             `mapstructure:"user"`
	Password       string             `mapstructure:"password"`
	Database       string             `mapstructure:"database"`
	SSLMode        string             `mapstructure:"ssl_mode"`
	Connection     DBConnectionConfig `mapstructure:"connection"`
	MigrationsPath string             `mapstructure:"migrations_path"`
}

// DBConnectionConfig represents the connection pool configuration.
type DBConnectionConfig struct {
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// DSN renders the pgx connection string.
func (c PostgresConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Database,
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else {
		u.User = url.User(c.User)
	}
	q := u.Query()
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
