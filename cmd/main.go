package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"license-server/internal/config"
	"license-server/internal/database"
	"license-server/internal/handler"
	"license-server/internal/logger"
	"license-server/internal/metrics"
	"license-server/internal/service"
	"license-server/internal/store"
	"license-server/internal/token"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".")
	if err != nil {
		return err
	}

	log, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	db, err := database.Open(cfg.Database, log, cfg.IsProduction())
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Warn("close database", zap.Error(err))
		}
	}()

	if err := database.EnsureAdmin(db, cfg.Admin.Username, cfg.Admin.Password, log); err != nil {
		return err
	}

	codec, err := token.NewCodec(cfg.License.SecretKey, cfg.License.Footer)
	if err != nil {
		return fmt.Errorf("init license codec: %w", err)
	}

	sheetSync, err := service.NewSheetSyncService(cfg.SheetSync, log)
	if err != nil {
		return fmt.Errorf("init sheet sync: %w", err)
	}
	var exporter service.LicenseExporter
	if sheetSync != nil {
		exporter = sheetSync
		log.Info("sheet sync enabled", zap.String("sheet", cfg.SheetSync.SheetName))
	}

	st := store.NewGormStore(db)
	m := metrics.New()
	audit := service.NewOperationLogger(db)

	h := handler.New(handler.Deps{
		Validator:  service.NewValidator(codec, st, m, log),
		Admin:      service.NewAdminService(codec, st, audit, exporter, m, log),
		Usage:      service.NewUsageLogger(db),
		Audit:      audit,
		Statistics: service.NewStatisticsService(db),
		DB:         db,
		JWTSecret:  []byte(cfg.Admin.JWTSecret),
		TokenTTL:   cfg.Admin.TokenTTL,
		AppName:    cfg.AppName,
		AppVersion: cfg.AppVersion,
		Log:        log,
	})
	app := handler.NewApp(h, m)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("license server listening", zap.String("addr", cfg.Server.Addr))
		if err := app.Listen(cfg.Server.Addr); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
