package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kursadbilgin/crm-mailer/internal/config"
	"github.com/kursadbilgin/crm-mailer/internal/handler"
	"github.com/kursadbilgin/crm-mailer/internal/infra/postgresql"
	"github.com/kursadbilgin/crm-mailer/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/crm-mailer/internal/infra/redis"
	"github.com/kursadbilgin/crm-mailer/internal/mailtemplate"
	"github.com/kursadbilgin/crm-mailer/internal/observability"
	"github.com/kursadbilgin/crm-mailer/internal/provider"
	"github.com/kursadbilgin/crm-mailer/internal/ratelimit"
	"github.com/kursadbilgin/crm-mailer/internal/repository"
	"github.com/kursadbilgin/crm-mailer/internal/service"
	"github.com/kursadbilgin/crm-mailer/internal/transport"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

type stores struct {
	jobs  repository.EmailJobRepository
	tasks repository.TaskRepository
	users repository.UserRepository
	sqlDB *sql.DB
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("crm-mailer exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if st.sqlDB != nil {
		defer st.sqlDB.Close()
	}

	var (
		rdb     *goredis.Client
		limiter ratelimit.RateLimiter
		ledger  service.ReminderLedger
	)
	if cfg.RedisURL != "" {
		rdb, err = infraredis.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis initialization failed: %w", err)
		}
		defer rdb.Close()

		redisLimiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.EmailRateLimitPerSec)
		if err != nil {
			return fmt.Errorf("rate limiter initialization failed: %w", err)
		}
		limiter = redisLimiter

		redisLedger, err := infraredis.NewReminderLedger(rdb, 0)
		if err != nil {
			return fmt.Errorf("reminder ledger initialization failed: %w", err)
		}
		ledger = redisLedger
	} else {
		logger.Warn("REDIS_URL not set, sending without rate limiting or notice deduplication")
	}

	smtpSource, err := config.NewEnvSMTPSource()
	if err != nil {
		return fmt.Errorf("smtp settings initialization failed: %w", err)
	}
	smtpSettings := smtpSource.Current()
	if !smtpSettings.HasCredentials() {
		logger.Warn("EMAIL_PASS not configured, emails will be retried until credentials are set",
			zap.String("user", smtpSettings.Username),
		)
	} else {
		logger.Info("smtp settings loaded",
			zap.String("host", smtpSettings.Host),
			zap.Int("port", smtpSettings.Port),
			zap.String("user", smtpSettings.Username),
			zap.String("password", observability.MaskSecret(smtpSettings.Password)),
		)
	}

	templates, err := mailtemplate.NewRegistry()
	if err != nil {
		return fmt.Errorf("template registry initialization failed: %w", err)
	}

	deliverer, err := service.NewSMTPDeliverer(smtpSource, provider.NewSMTPMailer(), limiter, logger)
	if err != nil {
		return err
	}
	deliverer.SetMetrics(metrics)

	emailService, err := service.NewEmailService(st.jobs, templates, deliverer, cfg.LoginURL, logger)
	if err != nil {
		return err
	}
	emailService.SetMetrics(metrics)

	scanner, err := service.NewReminderScanner(st.tasks, st.users, emailService, cfg.OverdueNoticeHour, logger)
	if err != nil {
		return err
	}
	if ledger != nil {
		scanner.SetLedger(ledger)
	}

	scheduler, err := service.NewScheduler(emailService, scanner, service.SchedulerOptions{
		QueueDrainInterval: cfg.QueueDrainInterval(),
		ReminderInterval:   cfg.ReminderInterval(),
		PruneHour:          cfg.PruneHour,
		PruneMaxAgeDays:    cfg.PruneMaxAgeDays,
	}, logger)
	if err != nil {
		return err
	}
	scheduler.SetMetrics(metrics)

	emailHandler, err := handler.NewEmailHandler(emailService, smtpSource, cfg.LoginURL)
	if err != nil {
		return err
	}

	app := transport.NewApp(logger, metrics)
	handler.RegisterHealthRoutes(app, st.sqlDB, rdb)
	if err := handler.RegisterEmailRoutes(app, emailHandler, []byte(cfg.JWTSecret)); err != nil {
		return err
	}

	if err := scheduler.Start(ctx); err != nil {
		return err
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	}()
	logger.Info("crm-mailer api started", zap.Int("port", cfg.APIPort))

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			runErr = fmt.Errorf("http server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}
	if err := scheduler.Stop(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("scheduler shutdown failed", zap.Error(err))
	}

	logger.Info("crm-mailer stopped")
	return runErr
}

// openStores uses postgres when DATABASE_DSN is set and in-memory stores
// otherwise.
func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	if cfg.DatabaseDSN == "" {
		logger.Warn("DATABASE_DSN not set, using in-memory stores")
		directory := repository.NewMemoryDirectory()
		return &stores{
			jobs:  repository.NewMemoryEmailJobRepo(),
			tasks: directory,
			users: directory,
		}, nil
	}

	db, err := postgresql.NewPostgres(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("postgres initialization failed: %w", err)
	}
	if err := migrations.Migrate(db); err != nil {
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres underlying db init failed: %w", err)
	}

	return &stores{
		jobs:  repository.NewGormEmailJobRepo(db),
		tasks: repository.NewGormTaskRepo(db),
		users: repository.NewGormUserRepo(db),
		sqlDB: sqlDB,
	}, nil
}
