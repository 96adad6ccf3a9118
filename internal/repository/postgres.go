package repository

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/maxviazov/care-events-dashboard/internal/config"
	"github.com/maxviazov/care-events-dashboard/migrations"
)

// Postgres owns the pgx connection pool shared by the postgres repositories.
type Postgres struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgres connects a pgx pool using the postgres section of the config.
func NewPostgres(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*Postgres, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	pg := cfg.Postgres

	// 1. Build the DSN through url.URL so credentials are escaped.
	u := url.URL{
		Scheme: "postgres",
		Host:   pg.Host + ":" + strconv.Itoa(pg.Port),
		Path:   pg.DBName,
	}
	if pg.User != "" || pg.Password != "" {
		u.User = url.UserPassword(pg.User, pg.Password)
	}
	q := u.Query()
	if pg.SSLMode != "" {
		q.Set("sslmode", pg.SSLMode)
	}
	u.RawQuery = q.Encode()

	poolConfig, err := pgxpool.ParseConfig(u.String())
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool config: %w", err)
	}

	// 2. Route pgx tracing through zerolog at the effective level.
	poolConfig.ConnConfig.Tracer = &tracelog.TraceLog{
		Logger:   newPgxLogger(*logger),
		LogLevel: tracelogLevel(max(logger.GetLevel(), zerolog.GlobalLevel())),
	}

	// 3. Pool tuning; zero values keep pgx defaults.
	if pg.MaxConns > 0 {
		poolConfig.MaxConns = pg.MaxConns
	}
	if pg.MinConns > 0 {
		poolConfig.MinConns = pg.MinConns
	}
	if pg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = time.Duration(pg.MaxConnLifetime) * time.Second
	}
	if pg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = time.Duration(pg.MaxConnIdleTime) * time.Second
	}
	if pg.HealthCheckPeriod > 0 {
		poolConfig.HealthCheckPeriod = time.Duration(pg.HealthCheckPeriod) * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	// 4. Ping with a timeout so startup never hangs on a dead database.
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	logger.Info().
		Str("host", pg.Host).
		Int("port", pg.Port).
		Str("user", pg.User).
		Str("db", pg.DBName).
		Msg("Successfully connected to PostgreSQL")

	return &Postgres{pool: pool, logger: *logger}, nil
}

// Pool exposes the pool to the postgres repository implementations.
func (p *Postgres) Pool() *pgxpool.Pool { return p.pool }

// Migrate applies the embedded postgres migrations with goose.
func (p *Postgres) Migrate(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(p.pool)
	defer db.Close()
	return RunMigrations(ctx, goose.DialectPostgres, db, migrations.Postgres(), p.logger)
}

// Close releases every pooled connection.
func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}
