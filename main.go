package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/hoardapp/hoard/hoard"
	"github.com/hoardapp/hoard/hoard/api"
	"github.com/hoardapp/hoard/hoard/database"
	"github.com/hoardapp/hoard/hoard/database/repositories"
	"github.com/hoardapp/hoard/hoard/logger"
	"github.com/hoardapp/hoard/hoard/migration"
	"github.com/hoardapp/hoard/hoard/services"
	"github.com/hoardapp/hoard/hoard/trading"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	customHandler := logger.NewHandler("Hoard")
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting Hoard",
		slog.String("version", version),
		slog.String("commit", commit))

	path := flag.String("config", "config.toml", "path to config")
	resetTables := flag.Bool("reset-tables", false, "Drop and recreate all application tables on startup")
	importDir := flag.String("import-legacy", "", "Import a legacy dump from this directory, then exit")
	flag.Parse()

	cfg, err := hoard.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}
	customHandler.SetLevel(cfg.Log.Level)
	slog.Info("Configuration loaded successfully")

	slog.Info("Initializing database connection...")
	dbStartTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		slog.Error("Database connection failed",
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}
	defer db.Close()

	slog.Info("Database connected successfully",
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStartTime)))

	if *resetTables {
		slog.Warn("Resetting application tables")
		if err := db.ResetAppTables(ctx); err != nil {
			slog.Error("Failed to reset tables", slog.Any("error", err))
			os.Exit(-1)
		}
	}
	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize schema", slog.Any("error", err))
		os.Exit(-1)
	}

	app := hoard.New(*cfg, version, commit)
	app.DB = db
	app.AccountRepository = repositories.NewAccountRepository(db.BunDB())
	app.InventoryRepository = repositories.NewInventoryRepository(db.BunDB())
	app.ItemRepository = repositories.NewItemRepository(db.BunDB())
	app.TradeRepository = repositories.NewTradeRepository(db.BunDB(), app.InventoryRepository)

	if *importDir != "" {
		migrator := migration.NewMigrator(app.ItemRepository, app.AccountRepository, app.InventoryRepository, *importDir)
		if err := migrator.Run(ctx); err != nil {
			slog.Error("Legacy import failed", slog.Any("error", err))
			os.Exit(-1)
		}
		return
	}

	app.Bus = trading.NewBus()
	app.Engine = trading.NewEngine(app.TradeRepository, app.AccountRepository, app.Bus, uuid.NewString)
	app.Catalog = services.NewCatalog(app.ItemRepository)
	app.Overview = services.NewOverview(app.AccountRepository, app.InventoryRepository)

	if cfg.Spaces.Key != "" {
		app.Snapshots, err = services.NewSnapshots(
			cfg.Spaces.Key,
			cfg.Spaces.Secret,
			cfg.Spaces.Region,
			cfg.Spaces.Bucket,
			cfg.Spaces.Root,
			app.Overview,
		)
		if err != nil {
			slog.Error("Failed to initialize snapshot storage", slog.Any("error", err))
			os.Exit(-1)
		}
	} else {
		slog.Warn("Snapshot storage not configured, exports disabled")
	}

	server := api.New(app)

	go func() {
		slog.Info("Starting API server", slog.String("addr", cfg.Server.Addr))
		if err := server.Listen(cfg.Server.Addr); err != nil {
			slog.Error("Failed to start server", slog.Any("error", err))
			os.Exit(-1)
		}
	}()

	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-s

	slog.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", slog.Any("error", err))
	}
	slog.Info("Shutdown complete")
}
