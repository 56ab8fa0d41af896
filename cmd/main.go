package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/MimeLyc/doctrans/internal/archive"
	"github.com/MimeLyc/doctrans/internal/checkpoint"
	"github.com/MimeLyc/doctrans/internal/config"
	"github.com/MimeLyc/doctrans/internal/deepl"
	"github.com/MimeLyc/doctrans/internal/httpapi"
	"github.com/MimeLyc/doctrans/internal/persistence"
	"github.com/MimeLyc/doctrans/internal/service"
	"github.com/MimeLyc/doctrans/pkg/log"
)

const shutdownTimeout = 10 * time.Second

type scheduler interface {
	Schedule(ctx context.Context) error
}

type cronEngine interface {
	Start()
	Stop() context.Context
}

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

func main() {
	// .env is optional; real env vars win
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}
	log.GetLogger().SetLevel(log.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal("Service stopped: %v", err)
	}
	log.Info("Service stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	store, err := persistence.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	client, err := deepl.NewClient(deepl.Config{
		AuthKey: cfg.DeepL.AuthKey,
		APIURL:  cfg.DeepL.APIURL,
		Timeout: time.Duration(cfg.DeepL.Timeout) * time.Second,
	})
	if err != nil {
		return err
	}

	archiver, pruner, err := newArchiver(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	wf, err := service.NewWorkflow(ctx, service.Deps{
		Provider:    client,
		Checkpoints: checkpoint.NewStore(store, checkpoint.WithStaleAfter(cfg.Translate.StaleAfter)),
		Archiver:    archiver,
		History:     store,
	},
		service.WithPollInterval(cfg.Translate.PollInterval),
		service.WithMaxAttemptsCeiling(cfg.Translate.MaxAttemptsCeiling),
		service.WithErrorHandler(func(msg string) { log.Warn("Translation ended with error: %s", msg) }),
	)
	if err != nil {
		return err
	}
	// the process going away is the server-side equivalent of a hidden page
	defer wf.Hide(context.Background())

	cronEngine := cron.New()
	maintenance := service.NewMaintenanceService(cronEngine, cfg.Maintenance.CronExpr,
		cfg.Maintenance.Retention(), store, pruner)

	httpSrv := httpapi.NewServer(wf,
		httpapi.WithHistory(store),
		httpapi.WithMaintenance(maintenance),
		httpapi.WithDefaultTargetLanguage(cfg.Translate.TargetLanguage),
		httpapi.WithUI(cfg.HTTP.UIStaticDir, cfg.HTTP.UIEnabled),
	)

	return runWithComponents(ctx, cfg, maintenance, cronEngine, httpSrv)
}

// newArchiver returns the configured archive and, for the local backend,
// the pruner used by maintenance. S3 retention is left to bucket lifecycle rules.
func newArchiver(ctx context.Context, cfg config.StorageConfig) (service.Archiver, service.ArchivePruner, error) {
	switch cfg.ArchiveBackend {
	case config.ArchiveS3:
		a, err := archive.NewS3Archiver(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3Prefix)
		if err != nil {
			return nil, nil, fmt.Errorf("init s3 archive: %w", err)
		}
		return a, nil, nil
	default:
		a, err := archive.NewLocalArchiver(cfg.ArchiveDir)
		if err != nil {
			return nil, nil, fmt.Errorf("init local archive: %w", err)
		}
		return a, a, nil
	}
}

func runWithComponents(
	ctx context.Context,
	cfg *config.Config,
	sched scheduler,
	engine cronEngine,
	srv httpServer,
) error {
	if err := sched.Schedule(ctx); err != nil {
		return fmt.Errorf("schedule maintenance: %w", err)
	}
	engine.Start()
	defer func() {
		<-engine.Stop().Done()
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening on %s", cfg.HTTP.Addr)
		errCh <- srv.ListenAndServe(cfg.HTTP.Addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
