package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ordersync/ordersync/internal/client/api"
	"github.com/ordersync/ordersync/internal/client/broadcast"
	"github.com/ordersync/ordersync/internal/client/cli"
	"github.com/ordersync/ordersync/internal/client/config"
	"github.com/ordersync/ordersync/internal/client/connectivity"
	"github.com/ordersync/ordersync/internal/client/data"
	"github.com/ordersync/ordersync/internal/client/iocli"
	"github.com/ordersync/ordersync/internal/client/retention"
	"github.com/ordersync/ordersync/internal/client/storage/boltdb"
	clientsync "github.com/ordersync/ordersync/internal/client/sync"
	"github.com/ordersync/ordersync/internal/lww"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Глобальные флаги
	showVersion := flag.Bool("version", false, "Show version information")
	configPath := flag.String("config", "ordersync.toml", "Path to TOML config file")
	serverURL := flag.String("server", "", "Server URL (overrides config)")
	dbPath := flag.String("db", "", "Path to local database (overrides config)")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage()
		os.Exit(1)
	}

	command := args[0]
	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *serverURL != "" {
		cfg.ServerURL = *serverURL
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	// Диагностика в stderr, вывод команд через iocli в stdout
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	// Открываем BoltDB storage. Эксклюзивный файловый лок bbolt заодно
	// гарантирует, что с одной базой работает один процесс.
	boltStorage, err := boltdb.New(ctx, cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := boltStorage.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	clock, err := restoreClock(ctx, boltStorage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to restore clock: %v\n", err)
		os.Exit(1)
	}
	// Счетчик часов уходит вперед при каждой мутации, фиксируем его на выходе
	defer func() {
		if err := boltStorage.SaveClock(ctx, clock.Current()); err != nil {
			logger.Error("failed to persist clock", "error", err)
		}
	}()

	apiClient := api.NewClient(cfg.ServerURL)

	broadcaster, err := broadcast.New(cfg.BroadcastDir, cfg.Debounce(), cfg.CacheTTL(), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start broadcast layer: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := broadcaster.Close(); err != nil {
			logger.Error("failed to close broadcast layer", "error", err)
		}
	}()

	tokenFunc := func(ctx context.Context) (string, error) {
		if cfg.AccessToken == "" {
			return "", fmt.Errorf("no access token configured (set access_token or ORDERSYNC_ACCESS_TOKEN)")
		}
		return cfg.AccessToken, nil
	}

	coordinator := clientsync.NewCoordinator(
		apiClient,
		boltStorage,
		boltStorage,
		boltStorage,
		clock,
		tokenFunc,
		logger,
		clientsync.WithBatchSize(cfg.SyncBatchSize),
		clientsync.WithStateCallback(func(state clientsync.State) {
			publishState(broadcaster, logger, state)
		}),
	)

	// Восстановление связи — основной триггер фоновой синхронизации
	monitor := connectivity.NewMonitor(
		apiClient.Ping,
		cfg.ProbeInterval(),
		logger,
		connectivity.WithOnOnline(func() {
			if _, err := coordinator.SyncNow(context.Background()); err != nil && err != clientsync.ErrSyncInProgress {
				logger.Warn("background sync failed", "error", err)
			}
		}),
	)

	sweeper := retention.NewSweeper(boltStorage, boltStorage, cfg.RetentionWindow(), cfg.SweepInterval(), logger)

	dataService := data.NewService(boltStorage, clock)

	app := cli.New(iocli.NewStdio(), dataService, coordinator, monitor, sweeper, broadcaster, boltStorage, boltStorage)

	if err := app.Run(ctx, command, args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// restoreClock восстанавливает Lamport-часы после перезапуска.
// На первом запуске минтится NodeID и сохраняется в метаданных.
func restoreClock(ctx context.Context, metadata *boltdb.Storage) (*lww.Clock, error) {
	nodeID, err := metadata.GetNodeID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read node id: %w", err)
	}

	var clock *lww.Clock
	if nodeID == "" {
		clock = lww.NewClock()
		if err := metadata.SaveNodeID(ctx, clock.NodeID()); err != nil {
			return nil, fmt.Errorf("failed to save node id: %w", err)
		}
	} else {
		clock = lww.NewClockWithNodeID(nodeID)
	}

	counter, err := metadata.GetClock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read clock counter: %w", err)
	}
	clock.SetCurrent(counter)

	return clock, nil
}

// publishState сообщает другим инстансам о смене состояния синхронизации
func publishState(broadcaster *broadcast.Broadcaster, logger *slog.Logger, state clientsync.State) {
	payload, err := json.Marshal(map[string]any{
		"state": string(state),
		"at":    time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	if err := broadcaster.Write("sync_state", payload); err != nil {
		logger.Warn("failed to broadcast sync state", "error", err)
	}
}

func printVersion() {
	fmt.Printf("OrderSync Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
