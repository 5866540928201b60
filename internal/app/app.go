// Package app wires configuration into the repositories, delivery pipeline
// and reminder scheduler shared by the api and reminder binaries.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	httpadp "assetloan-backend/internal/adapter/http"
	"assetloan-backend/internal/adapter/mail"
	"assetloan-backend/internal/adapter/middleware"
	"assetloan-backend/internal/adapter/repository/mysql"
	"assetloan-backend/internal/config"
	"assetloan-backend/internal/domain/loan"
	"assetloan-backend/internal/infrastructure/cache"
	"assetloan-backend/internal/infrastructure/db"
	"assetloan-backend/internal/infrastructure/metrics"
	"assetloan-backend/internal/usecase/extension"
	loanuc "assetloan-backend/internal/usecase/loan"
	"assetloan-backend/internal/usecase/notify"
	"assetloan-backend/internal/usecase/reminder"
	"assetloan-backend/internal/usecase/returns"
)

type App struct {
	Config     *config.Config
	Location   *time.Location
	Logger     *slog.Logger
	Dispatcher *notify.Dispatcher
	Scheduler  *reminder.Scheduler
	Replayer   *notify.Replayer
	Handlers   httpadp.Handlers
	// Idempotency is empty when Redis is unreachable.
	Idempotency []echo.MiddlewareFunc

	sqlDB *sql.DB
	rdb   *redis.Client
}

// New opens MySQL (required) and Redis (optional) and builds every component.
// reg receives the metric collectors.
func New(cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) (*App, error) {
	gdb, err := db.OpenGorm(cfg.MySQLDSN(), db.ParseLogLevel(cfg.GormLogLevel))
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(gdb); err != nil {
		return nil, err
	}
	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Warn("redis unavailable, running without idempotency and sweep lock", "addr", cfg.RedisAddr, "error", err)
	}
	return Assemble(cfg, gdb, rdb, logger, reg)
}

// Assemble builds the components over open connections. rdb may be nil. The
// App owns both connections afterwards.
func Assemble(cfg *config.Config, gdb *gorm.DB, rdb *redis.Client, logger *slog.Logger, reg prometheus.Registerer) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("reminder timezone: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Location: loc, Logger: logger, sqlDB: sqlDB, rdb: rdb}
	if err := a.build(gdb, reg); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(gdb *gorm.DB, reg prometheus.Registerer) error {
	cfg, logger := a.Config, a.Logger

	loans := mysql.NewLoanRepository(gdb)
	tx := mysql.NewGormUoW(gdb)
	collectors := metrics.New(reg)

	var mailer notify.Mailer = mail.NewLogMailer(logger)
	if cfg.SMTPHost != "" {
		m, err := mail.NewSMTPMailer(cfg.SMTPAddr(), cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
		if err != nil {
			return err
		}
		mailer = m
	}
	renderer, err := mail.NewRenderer(a.Location)
	if err != nil {
		return err
	}

	a.Dispatcher = notify.NewDispatcher(mailer, renderer, notify.NewLedgerStore(tx), logger,
		notify.WithRecorder(collectors),
		notify.WithWorkers(cfg.DispatchWorkers, cfg.DispatchQueueSize))
	resolver := notify.NewResolver(mysql.NewDirectoryRepository(gdb), cfg.EntitasRoles)
	notifier := notify.NewNotifier(resolver, a.Dispatcher, logger)

	opts := []reminder.Option{reminder.WithRecorder(collectors), reminder.WithLocation(a.Location)}
	checks := map[string]httpadp.Check{"mysql": a.sqlDB.PingContext}
	if a.rdb != nil {
		rdb := a.rdb
		opts = append(opts, reminder.WithLocker(cache.NewSweepLock(rdb, 0)))
		a.Idempotency = append(a.Idempotency,
			middleware.IdempotencyMiddleware(rdb, time.Duration(cfg.IdempTTLSecs)*time.Second))
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	a.Scheduler = reminder.NewScheduler(loans, mysql.NewReminderRunRepository(gdb), tx, resolver, a.Dispatcher, logger, opts...)
	a.Replayer = notify.NewReplayer(loans, a.Dispatcher, a.Location, logger)

	m := loan.NewMachine()
	limits := loan.AttachmentLimits{MaxCount: cfg.ReturnMaxPhotos, MaxBytes: cfg.ReturnMaxPhotoBytes}
	a.Handlers = httpadp.Handlers{
		Health:    httpadp.NewHandler(checks),
		Loans:     httpadp.NewLoanHandler(loanuc.NewUsecase(loans, tx, m, notifier), a.Location),
		Extension: httpadp.NewExtensionHandler(extension.NewUsecase(tx, m, notifier), a.Location),
		Returns:   httpadp.NewReturnHandler(returns.NewUsecase(tx, m, notifier, limits)),
		Reminders: httpadp.NewReminderHandler(a.Scheduler),
	}
	return nil
}

// Close releases the connections. Stop the dispatcher first.
func (a *App) Close() {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.Logger.Warn("redis close", "error", err)
		}
	}
	if err := a.sqlDB.Close(); err != nil {
		a.Logger.Warn("mysql close", "error", err)
	}
}
