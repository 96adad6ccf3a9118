package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads the YAML file at path and applies APP_* environment overrides
// (APP_POSTGRES_USER overrides postgres.user and so on).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	setDefaults(v)

	// Secrets are usually absent from the file, and AutomaticEnv only sees keys viper already knows.
	for _, key := range []string{"postgres.user", "postgres.password", "postgres.db", "postgres.host", "storage.driver"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var config Config
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config file not found: %w", err)
	}
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "care-events-dashboard")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.shutdown_timeout", 10)
	v.SetDefault("storage.driver", DriverMemory)
	v.SetDefault("storage.sqlite_path", "data/events.db")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("kafka.concurrency", 10)
	v.SetDefault("kafka.group_id", "care-events-dashboard")
	v.SetDefault("dashboard.render_wait_ms", 1500)
	v.SetDefault("dashboard.max_limit", 100)
}

// Validate checks struct rules plus the postgres secrets the driver needs.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation error: %w", err)
	}
	if c.Storage.Driver == DriverPostgres {
		var missing []string
		if c.Postgres.User == "" {
			missing = append(missing, "APP_POSTGRES_USER")
		}
		if c.Postgres.Password == "" {
			missing = append(missing, "APP_POSTGRES_PASSWORD")
		}
		if c.Postgres.DBName == "" {
			missing = append(missing, "APP_POSTGRES_DB")
		}
		if len(missing) > 0 {
			return errors.New("postgres driver requires " + strings.Join(missing, ", "))
		}
	}
	return nil
}
