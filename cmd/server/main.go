package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/maxviazov/care-events-dashboard/internal/config"
	"github.com/maxviazov/care-events-dashboard/internal/handler"
	"github.com/maxviazov/care-events-dashboard/internal/ingest"
	"github.com/maxviazov/care-events-dashboard/internal/logger"
	"github.com/maxviazov/care-events-dashboard/internal/repository"
	"github.com/maxviazov/care-events-dashboard/internal/repository/memory"
	"github.com/maxviazov/care-events-dashboard/internal/repository/postgres"
	"github.com/maxviazov/care-events-dashboard/internal/repository/sqlite"
	"github.com/maxviazov/care-events-dashboard/internal/service"
)

// storage bundles what the service layer and the probes need from the selected driver.
type storage struct {
	events repository.EventRepository
	tx     repository.TxManager
	pinger repository.Pinger
	close  func()
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// Load application config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Config loading failed: %v", err)
	}

	appLogger, err := logger.New(&cfg.Logger)
	if err != nil {
		log.Fatalf("❌ Logger initialization failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil {
		appLogger.Fatal().Err(err).Msg("service stopped with error")
	}
	appLogger.Info().Msg("service stopped")
}

func run(ctx context.Context, cfg *config.Config, appLogger zerolog.Logger) error {
	store, err := openStorage(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	defer store.close()

	svc := service.NewEventService(store.events, store.tx, cfg.Dashboard.MaxLimit, appLogger)

	var wg sync.WaitGroup
	if cfg.Kafka.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runIngest(ctx, cfg.Kafka, svc, appLogger)
		}()
	}

	router := handler.NewRouter(handler.Deps{
		Pinger:     store.pinger,
		Events:     svc,
		Logger:     appLogger,
		RenderWait: time.Duration(cfg.Dashboard.RenderWait) * time.Millisecond,
	}, cfg.App.CORSOrigins)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info().Str("addr", srv.Addr).Str("storage", cfg.Storage.Driver).Bool("kafka", cfg.Kafka.Enabled).Msg("🚀 Service started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	timeout := time.Duration(cfg.App.ShutdownTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	appLogger.Info().Dur("timeout", timeout).Msg("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	wg.Wait()
	return nil
}

// runIngest keeps a consumer running until ctx ends. A consumer that stopped on a failed
// message is replaced after a pause so the group redelivers from the last commit.
func runIngest(ctx context.Context, cfg config.KafkaConfig, svc service.EventService, appLogger zerolog.Logger) {
	const restartDelay = 5 * time.Second
	for {
		consumer := ingest.NewConsumer(
			ingest.NewReader(cfg),
			ingest.NewProcessor(svc, appLogger),
			cfg.Concurrency,
			appLogger,
		)
		err := consumer.Run(ctx)
		if err == nil || ctx.Err() != nil {
			return
		}
		appLogger.Error().Err(err).Dur("restart_in", restartDelay).Msg("kafka consumer stopped")
		select {
		case <-ctx.Done():
			return
		case <-time.After(restartDelay):
		}
	}
}

func openStorage(ctx context.Context, cfg *config.Config, appLogger zerolog.Logger) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		pg, err := repository.NewPostgres(ctx, cfg, &appLogger)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		return &storage{
			events: postgres.NewEventRepository(pg.Pool()),
			tx:     postgres.NewTxManager(pg.Pool()),
			pinger: postgres.NewPinger(pg.Pool()),
			close:  pg.Close,
		}, nil
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.Storage.SQLitePath, appLogger)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		return &storage{
			events: sqlite.NewEventRepository(db),
			tx:     sqlite.NewTxManager(db),
			pinger: db,
			close: func() {
				if err := db.Close(); err != nil {
					appLogger.Warn().Err(err).Msg("close sqlite")
				}
			},
		}, nil
	default:
		repo := memory.NewEventRepo()
		appLogger.Warn().Msg("using in-memory storage; events are lost on restart")
		return &storage{
			events: repo,
			tx:     memory.NewTxManager(repo),
			pinger: repo,
			close:  func() {},
		}, nil
	}
}
