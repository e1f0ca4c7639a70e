package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"

	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/lakeview-data/marketplace-api/pkg/config"
	"github.com/lakeview-data/marketplace-api/pkg/database"
	"github.com/lakeview-data/marketplace-api/pkg/handlers"
	"github.com/lakeview-data/marketplace-api/pkg/middleware"
	"github.com/lakeview-data/marketplace-api/pkg/preview"
	"github.com/lakeview-data/marketplace-api/pkg/services"
	"github.com/lakeview-data/marketplace-api/pkg/warehouse"
	"github.com/lakeview-data/marketplace-api/ui"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := buildLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("database", fmt.Sprintf("%s@%s:%d/%s",
			cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)),
		zap.Bool("warehouse_configured", cfg.Warehouse.Host != ""))

	ctx := context.Background()

	// The warehouse client is optional: the service keeps running on static
	// credentials and the JSON dataset fallback when it cannot be built.
	warehouseClient, err := warehouse.NewClient(cfg.Warehouse, logger)
	if err != nil {
		logger.Warn("Warehouse client unavailable", zap.Error(err))
		warehouseClient = nil
	}

	var generator database.CredentialGenerator
	if warehouseClient != nil {
		generator = warehouseClient
	}
	provider := database.NewProvider(generator, cfg.Warehouse.Host, cfg.Database.User, logger)
	cache := database.NewCache(provider, cfg.Database.User, cfg.Database.Password, logger)

	dbManager := database.NewManager(cfg.Database, cache, cfg.Env, warehouseClient.Method(), logger)
	if err := dbManager.Initialize(ctx); err != nil {
		log.Fatalf("Failed to initialize database pool: %v", err)
	}
	defer dbManager.Close()

	if cfg.Database.RunMigrations {
		if err := runMigrations(ctx, cfg, dbManager, logger); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	datasetService := services.NewDatasetService(
		dbManager, cfg.DatasetsTable, cfg.DatasetsFile, logger)

	workerPool := preview.NewWorkerPool(cfg.Preview.Workers)
	defer workerPool.Close()
	var executor preview.StatementExecutor
	if warehouseClient != nil {
		executor = warehouseClient
	}
	previewService := preview.NewService(executor, workerPool, cfg.Preview.RowLimit, logger)

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, dbManager, logger).RegisterRoutes(mux)
	handlers.NewDatasetsHandler(datasetService, logger).RegisterRoutes(mux)
	handlers.NewPreviewHandler(previewService, cfg.Warehouse, warehouseClient.Method(), logger).RegisterRoutes(mux)
	handlers.NewDatabaseHandler(cfg, dbManager, logger).RegisterRoutes(mux)

	mux.Handle("/", ui.SPAHandler())

	handler := middleware.RequestLogger(logger)(mux)

	addr := fmt.Sprintf("%s:%s", cfg.BindAddr, cfg.Port)
	logger.Info("Starting marketplace-api",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func buildLogger(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// runMigrations applies schema migrations over a short-lived database/sql
// connection using the current credentials, separate from the pgx pool.
func runMigrations(ctx context.Context, cfg *config.Config, m *database.Manager, logger *zap.Logger) error {
	db, err := sql.Open("pgx", m.BuildConnectionString(ctx))
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer db.Close()

	return database.RunMigrations(db, cfg.Database.MigrationsPath, logger)
}
