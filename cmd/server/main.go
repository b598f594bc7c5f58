package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/expensio/expense-workflow/internal/config"
	"github.com/expensio/expense-workflow/internal/currency"
	"github.com/expensio/expense-workflow/internal/directory"
	"github.com/expensio/expense-workflow/internal/export"
	"github.com/expensio/expense-workflow/internal/httpapi"
	"github.com/expensio/expense-workflow/internal/org"
	"github.com/expensio/expense-workflow/internal/query"
	"github.com/expensio/expense-workflow/internal/receipt"
	"github.com/expensio/expense-workflow/internal/repository"
	"github.com/expensio/expense-workflow/internal/workflow"
	"github.com/expensio/expense-workflow/pkg/database"
	"github.com/expensio/expense-workflow/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	_ = gotenv.Load()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	threshold, err := decimal.NewFromString(cfg.Approval.EscalationThreshold)
	if err != nil {
		return fmt.Errorf("invalid escalation threshold %q: %w", cfg.Approval.EscalationThreshold, err)
	}

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(ctx, cfg.Database.MigrationsDir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	companyRepo := repository.NewCompanyRepository(db.DB, logger)
	userRepo := repository.NewUserRepository(db.DB, logger)
	expenseRepo := repository.NewExpenseRepository(db, logger)

	dir := directory.NewService(userRepo)
	engine := workflow.NewEngine(expenseRepo, dir, companyRepo, currency.NewPassthrough(), threshold, logger)
	queries := query.NewService(expenseRepo)
	orgService := org.NewService(db, companyRepo, userRepo, logger)
	exporter := export.NewExcelWriter(logger)

	var scanner *receipt.Scanner
	if cfg.OpenAI.APIKey != "" {
		scanner = receipt.NewScanner(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.Temperature, logger)
	} else {
		logger.Warn("OPENAI_API_KEY not set; receipt scanning disabled")
	}

	handlers := httpapi.NewHandlers(orgService, engine, queries, dir, scanner, exporter, logger)
	server := httpapi.NewServer(httpapi.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, handlers, logger)

	logger.Info("Expense workflow service starting",
		zap.String("threshold", threshold.String()),
		zap.Bool("receipt_scanning", scanner != nil))

	return server.Start(ctx)
}
