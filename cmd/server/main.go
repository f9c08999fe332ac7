package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/campusconnect/backend/internal/app"
	"github.com/campusconnect/backend/internal/config"
	"github.com/campusconnect/backend/internal/db"
	"github.com/campusconnect/backend/internal/jobs"
	"github.com/campusconnect/backend/internal/logging"
	"github.com/campusconnect/backend/internal/observability"
	"github.com/joho/godotenv"
)

var release = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer lg.Closer()

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, release)
	if err != nil {
		lg.Sugar.Warnw("sentry init failed", "err", err)
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		lg.Sugar.Fatalw("db connect", "err", err)
	}
	defer func() { _ = database.Close() }()

	if err := db.Migrate(database); err != nil {
		lg.Sugar.Fatalw("migrate", "err", err)
	}

	srv := app.New(cfg, database, lg)
	srv.Start(ctx)
	lg.Sugar.Infow("http server started", "addr", cfg.HTTPAddr)

	runner := jobs.New(ctx)
	runner.Every(time.Hour, "token-purge", func(ctx context.Context) error {
		n, err := db.PurgeDeadTokens(ctx, database)
		if err != nil {
			observability.CaptureErr(err)
			return err
		}
		if n > 0 {
			lg.Sugar.Infow("purged dead parent tokens", "count", n)
		}
		return nil
	})
	runner.Every(15*time.Minute, "limiter-sweep", func(context.Context) error {
		srv.Limiter().Sweep()
		return nil
	})

	<-ctx.Done()
	lg.Sugar.Infow("shutting down")
	// give the http server its shutdown window
	time.Sleep(100 * time.Millisecond)
}
