package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/config"
	appHTTP "github.com/cmlabs-hris/payroll-ledger-go/internal/handler/http"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/cron"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/logger"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/telemetry"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/repository/postgresql"
	ledgerService "github.com/cmlabs-hris/payroll-ledger-go/internal/service/ledger"
	payrollService "github.com/cmlabs-hris/payroll-ledger-go/internal/service/payroll"
	"github.com/cmlabs-hris/payroll-ledger-go/migrations"
	"github.com/redis/go-redis/v9"
)

const (
	appName    = "payroll-ledger"
	appVersion = "v1.0.0"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	log := logger.New(os.Stdout, cfg.App.LogLevel, appName, appVersion, cfg.App.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:       appName,
		ServiceVersion:    appVersion,
		Environment:       cfg.App.Env,
		Enabled:           cfg.Tracing.Enabled,
		CollectorEndpoint: cfg.Tracing.Endpoint,
		SampleRatio:       cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("error setting up telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Error("telemetry shutdown failed", "error", err)
		}
	}()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolConfig{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}
	defer db.Close()

	if cfg.App.RunMigrations {
		if err := database.Migrate(db, migrations.FS, "."); err != nil {
			return err
		}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		// Idempotency fails open, so a missing Redis degrades but does not stop the API.
		slog.Warn("redis unreachable, idempotency keys will not be enforced", "addr", cfg.Redis.Addr, "error", err)
	}

	txManager := postgresql.NewTxManager(db)
	companyRepo := postgresql.NewCompanyRepository(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)
	gradeRepo := postgresql.NewGradeRepository(db)
	accountRepo := postgresql.NewAccountRepository(db)
	transactionRepo := postgresql.NewTransactionRepository(db)
	payrollRepo := postgresql.NewPayrollRepository(db)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)

	ledgerSvc := ledgerService.NewLedgerService(txManager, accountRepo, transactionRepo, cfg.Payroll.SerializationRetries)
	payrollSvc := payrollService.NewPayrollService(
		txManager,
		payrollRepo,
		companyRepo,
		employeeRepo,
		gradeRepo,
		accountRepo,
		ledgerSvc,
		payrollService.NewSalaryCalculator(cfg.Payroll.ReferenceBaseSalary),
	)

	if cfg.Payroll.MonitorEnabled {
		scheduler := cron.NewScheduler(log)
		monitor := payrollService.NewStalledBatchMonitor(payrollRepo, cfg.Payroll.StalledAfter)
		if err := scheduler.Register(cron.Job{
			Name:     "report_stalled_payroll_batches",
			Interval: cfg.Payroll.MonitorInterval,
			Timeout:  time.Minute,
			Fn:       monitor.Run,
		}); err != nil {
			return err
		}
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	payrollHandler := appHTTP.NewPayrollHandler(payrollSvc)
	ledgerHandler := appHTTP.NewLedgerHandler(ledgerSvc)

	router := appHTTP.NewRouter(
		log,
		appHTTP.RouterConfig{
			AllowedOrigins: cfg.App.CORSAllowedOrigins,
			IdempotencyTTL: cfg.Redis.IdempotencyTTL,
		},
		JWTService,
		rdb,
		payrollHandler,
		ledgerHandler,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server running", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
