package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"

	"github.com/ogurasousui/employee-roster/internal/adapters/http/handler"
	"github.com/ogurasousui/employee-roster/internal/adapters/repository/postgres"
	"github.com/ogurasousui/employee-roster/internal/adapters/spreadsheet"
	"github.com/ogurasousui/employee-roster/internal/core/employee"
	"github.com/ogurasousui/employee-roster/internal/core/roster"
	"github.com/ogurasousui/employee-roster/internal/platform/config"
	pg "github.com/ogurasousui/employee-roster/internal/platform/db/postgres"
	"github.com/ogurasousui/employee-roster/internal/platform/logging"
	"github.com/ogurasousui/employee-roster/internal/platform/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfgPath := config.PathFromEnv()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "path", cfgPath, "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, os.Stdout)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	dbPool, err := pg.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	txManager := pg.NewTransactionManager(dbPool, pg.WithIsoLevel(pgx.ReadCommitted))
	employeeRepo := postgres.NewEmployeeRepository(dbPool)

	employeeSvc := employee.NewService(employeeRepo, nil, txManager)
	codec := spreadsheet.NewXLSXCodec(
		spreadsheet.WithUnzipSizeLimit(cfg.Import.MaxUnzipSize),
		spreadsheet.WithMaxRows(cfg.Import.MaxRows),
	)
	rosterSvc := roster.NewService(employeeRepo, codec, nil, txManager,
		roster.WithMaxRows(cfg.Import.MaxRows))

	router := handler.NewRouter(handler.Handlers{
		Employees: handler.NewEmployeeHandler(employeeSvc),
		Roster:    handler.NewRosterHandler(rosterSvc, cfg.Import.MaxFileSize),
		Health:    handler.NewHealthHandler(dbPool),
	}, cfg.RateLimit, logger)

	return server.New(cfg.Server, router, logger).Run(ctx)
}
