package config

import (
	"github.com/maxviazov/care-events-dashboard/internal/logger"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	App       AppConfig           `mapstructure:"app"`
	Logger    logger.LoggerConfig `mapstructure:"logger" validate:"-"`
	Storage   StorageConfig       `mapstructure:"storage"`
	Postgres  PostgresConfig      `mapstructure:"postgres"`
	Kafka     KafkaConfig         `mapstructure:"kafka"`
	Dashboard DashboardConfig     `mapstructure:"dashboard"`
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	Env     string `mapstructure:"env"`
	Port    int    `mapstructure:"port" validate:"min=1,max=65535"`
	// ShutdownTimeout is in seconds.
	ShutdownTimeout int      `mapstructure:"shutdown_timeout" validate:"min=0"`
	CORSOrigins     []string `mapstructure:"cors_origins"`
}

type StorageConfig struct {
	Driver     string `mapstructure:"driver" validate:"oneof=memory sqlite postgres"`
	SQLitePath string `mapstructure:"sqlite_path" validate:"required_if=Driver sqlite"`
}

// PostgresConfig: durations are in seconds. Secrets usually come from APP_POSTGRES_* env.
type PostgresConfig struct {
	Host              string `mapstructure:"host"`
	Port              int    `mapstructure:"port"`
	User              string `mapstructure:"user"`
	Password          string `mapstructure:"password"`
	DBName            string `mapstructure:"db"`
	SSLMode           string `mapstructure:"sslmode"`
	MaxConns          int32  `mapstructure:"max_conns"`
	MinConns          int32  `mapstructure:"min_conns"`
	MaxConnLifetime   int    `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   int    `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod int    `mapstructure:"health_check_period"`
}

type KafkaConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Brokers     []string `mapstructure:"brokers" validate:"required_if=Enabled true"`
	Topic       string   `mapstructure:"topic" validate:"required_if=Enabled true"`
	GroupID     string   `mapstructure:"group_id" validate:"required_if=Enabled true"`
	Concurrency int      `mapstructure:"concurrency" validate:"min=0"`
}

// DashboardConfig: RenderWait is how long (ms) the HTML screen waits for a fetch before showing the loader.
type DashboardConfig struct {
	RenderWait int `mapstructure:"render_wait_ms" validate:"min=0"`
	MaxLimit   int `mapstructure:"max_limit" validate:"min=0"`
}
