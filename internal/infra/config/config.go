package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	apperrors "github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/internal/errors"
	customvalidator "github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/pkg/validator"
)

type Config struct {
	Logging     LoggingConfig             `mapstructure:"logging"`
	Encryption  EncryptionConfig          `mapstructure:"encryption"`
	Persistence PersistenceConfig         `mapstructure:"persistence"`
	Providers   map[string]ProviderConfig `mapstructure:"providers" validate:"required,dive"`
	Rotation    RotationConfig            `mapstructure:"rotation"`

	ServiceVersion string
	BuildCommit    string
}

func Load(path string) (*Config, error) {
	vip := viper.New()
	if path != "" {
		vip.SetConfigFile(path)
	} else {
		vip.SetConfigName("config")
		vip.AddConfigPath("./configs")
		vip.AddConfigPath(".")
	}

	vip.SetConfigType("yaml")
	vip.AutomaticEnv()
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(vip)

	if err := vip.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("%w: reading config file: %v", apperrors.ErrConfiguration, err)
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshaling config: %v", apperrors.ErrConfiguration, err)
	}

	validate := validator.New()
	if err := customvalidator.RegisterCustomValidators(validate); err != nil {
		return nil, fmt.Errorf("registering custom validators: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrConfiguration, err)
	}
	if err := cfg.crossCheck(); err != nil {
		return nil, err
	}

	cfg.ServiceVersion = getenv("ROTATEKEYS_SERVICE_VERSION", "dev")
	cfg.BuildCommit = getenv("ROTATEKEYS_BUILD_COMMIT", "unknown")

	return &cfg, nil
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("logging.level", "info")
	vip.SetDefault("logging.format", "text")

	vip.SetDefault("persistence.backend", "postgres")
	vip.SetDefault("persistence.postgres.host", "localhost")
	vip.SetDefault("persistence.postgres.port", 5432)
	vip.SetDefault("persistence.postgres.user", "postgres")
	vip.SetDefault("persistence.postgres.database", "rotatekeys")
	vip.SetDefault("persistence.postgres.ssl_mode", "disable")
	vip.SetDefault("persistence.postgres.connection.max_conns", 10)
	vip.SetDefault("persistence.postgres.connection.min_conns", 2)
	vip.SetDefault("persistence.postgres.connection.max_conn_lifetime", "30m")
	vip.SetDefault("persistence.postgres.connection.max_conn_idle_time", "5m")
	vip.SetDefault("persistence.postgres.connection.health_check_period", "1m")
	vip.SetDefault("persistence.postgres.migrations_path", "migrations")

	vip.SetDefault("rotation.default_provider", "openai")
	vip.SetDefault("rotation.default_frequency", "monthly")
	vip.SetDefault("rotation.runner.enabled", false)
	vip.SetDefault("rotation.runner.interval", "1h")
	vip.SetDefault("rotation.webhook_timeout", "10s")
}

// crossCheck enforces the constraints that span sections and cannot be
// expressed as field tags.
func (c *Config) crossCheck() error {
	if !c.Encryption.KMS.Enabled && c.Encryption.MasterKey == "" {
		return fmt.Errorf("%w: encryption.master_key is required when encryption.kms is disabled", apperrors.ErrConfiguration)
	}
	if c.Persistence.Backend == BackendPostgres {
		pg := c.Persistence.Postgres
		if pg.Host == "" || pg.User == "" || pg.Database == "" {
			return fmt.Errorf("%w: persistence.postgres requires host, user, and database", apperrors.ErrConfiguration)
		}
	}
	if c.Rotation.DefaultProvider != "" {
		if _, ok := c.Providers[c.Rotation.DefaultProvider]; !ok {
			return fmt.Errorf("%w: rotation.default_provider %q is not a configured provider",
				apperrors.ErrConfiguration, c.Rotation.DefaultProvider)
		}
	}
	return nil
}

// getenv returns an environment variable or a default value.
func getenv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
