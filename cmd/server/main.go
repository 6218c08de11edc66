// Package main provides the entry point for the Puter bridge server. It
// connects the chat page's browser-held Puter SDK to the application's
// settings panel and the global model registry.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/openchat-dev/puterbridge/internal/api"
	"github.com/openchat-dev/puterbridge/internal/bridge"
	"github.com/openchat-dev/puterbridge/internal/buildinfo"
	"github.com/openchat-dev/puterbridge/internal/config"
	"github.com/openchat-dev/puterbridge/internal/logging"
	"github.com/openchat-dev/puterbridge/internal/puter"
	"github.com/openchat-dev/puterbridge/internal/registry"
	"github.com/openchat-dev/puterbridge/internal/settings"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

func main() {
	fmt.Printf("PuterBridge Version: %s, Commit: %s, BuiltAt: %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)

	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "path to the configuration file")
	flag.Parse()

	if err := godotenv.Load(); err == nil {
		log.Debug("Loaded environment overrides from .env")
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err = logging.ConfigureLogOutput(cfg); err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}
	if key := os.Getenv("PUTERBRIDGE_MANAGEMENT_KEY"); key != "" {
		cfg.ManagementKey = key
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := settings.NewFileStore(cfg.SettingsFile)
	modelRegistry := registry.NewModelRegistry()
	adapter := puter.NewAdapter()
	controller := puter.NewController(adapter, store, modelRegistry, nil)
	if err = controller.Start(ctx); err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}

	bridgeManager := bridge.NewManager(bridge.Options{
		Path: cfg.BridgePath,
		OnConnected: func(sdk puter.SDK) {
			puter.RegisterSDK(sdk)
			controller.Reload(ctx)
		},
		OnDisconnected: func(err error) {
			puter.RegisterSDK(nil)
			controller.Reload(ctx)
		},
		LogDebugf: log.Debugf,
		LogWarnf:  log.Warnf,
	})

	handler := api.NewHandler(controller, modelRegistry, cfg.ManagementKey)
	server := api.NewServer(cfg.Port, handler, bridgeManager, cfg.Debug)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return server.Run(groupCtx) })

	if cfg.WatchSettings {
		watcher, errWatch := settings.NewWatcher(store.Path(), func() { controller.Reload(context.Background()) })
		if errWatch != nil {
			log.Warnf("Settings watcher unavailable: %v", errWatch)
		} else if errWatch = watcher.Start(groupCtx); errWatch != nil {
			log.Warnf("Failed to start settings watcher: %v", errWatch)
		}
	}

	group.Go(func() error {
		<-groupCtx.Done()
		return bridgeManager.Stop(context.Background())
	})

	if err = group.Wait(); err != nil && ctx.Err() == nil {
		log.Fatalf("Server exited with error: %v", err)
	}
	log.Info("Shutdown complete")
}
