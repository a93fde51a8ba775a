package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/sentinel-fin/reimbursement-service/internal/application/service"
	"github.com/sentinel-fin/reimbursement-service/internal/config"
	"github.com/sentinel-fin/reimbursement-service/internal/fraud"
	"github.com/sentinel-fin/reimbursement-service/internal/infrastructure/external/ocr"
	"github.com/sentinel-fin/reimbursement-service/internal/infrastructure/external/openai"
	"github.com/sentinel-fin/reimbursement-service/internal/infrastructure/external/policy"
	"github.com/sentinel-fin/reimbursement-service/internal/infrastructure/external/storage"
	"github.com/sentinel-fin/reimbursement-service/internal/infrastructure/persistence/repository"
	"github.com/sentinel-fin/reimbursement-service/internal/infrastructure/receipt"
	httpiface "github.com/sentinel-fin/reimbursement-service/internal/interfaces/http"
	"github.com/sentinel-fin/reimbursement-service/pkg/database"
	"github.com/sentinel-fin/reimbursement-service/pkg/utils"
)

func main() {
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting reimbursement screening service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.Run(); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	submissionRepo := repository.NewSubmissionRepository(db.DB, logger)
	historyRepo := repository.NewHistoryRepository(db.DB, logger)
	txManager := repository.NewTxManager(db)

	blobStorage := storage.NewLocalBlobStorage(cfg.Storage.BaseDir, logger)
	ocrClient := ocr.NewClient(cfg.OCR.BaseURL, cfg.OCR.Timeout, logger)
	extractor := openai.NewFieldExtractor(
		cfg.OpenAI.APIKey,
		cfg.OpenAI.BaseURL,
		cfg.OpenAI.Model,
		cfg.OpenAI.Temperature,
		logger,
	)
	policyClient := policy.NewClient(cfg.Policy.BaseURL, cfg.Policy.Timeout, logger)
	rasterizer := receipt.NewRasterizer(logger)

	engine := fraud.NewEngine(
		fraud.NewImageHasher(),
		fraud.NewTextHasher(),
		historyRepo,
		policyClient,
		fraud.Config{EnablePolicyCheck: cfg.Fraud.EnablePolicyCheck},
		logger,
	)

	submissionService := service.NewSubmissionService(
		submissionRepo,
		historyRepo,
		txManager,
		blobStorage,
		ocrClient,
		extractor,
		rasterizer,
		engine,
		logger,
	)
	exportService := service.NewExportService(submissionRepo, logger)

	serverCfg := httpiface.DefaultServerConfig()
	if cfg.Server.Host != "" {
		serverCfg.Host = cfg.Server.Host
	}
	if cfg.Server.Port != 0 {
		serverCfg.Port = cfg.Server.Port
	}
	if cfg.Server.ReadTimeout > 0 {
		serverCfg.ReadTimeout = cfg.Server.ReadTimeout
	}
	if cfg.Server.WriteTimeout > 0 {
		serverCfg.WriteTimeout = cfg.Server.WriteTimeout
	}

	server := httpiface.NewServer(serverCfg, submissionService, exportService, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Service stopped")
}
