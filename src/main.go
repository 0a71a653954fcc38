package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/khoatrg/songboard/src/features/config"
	"github.com/khoatrg/songboard/src/features/hosting"
	"github.com/khoatrg/songboard/src/features/logging"
	"github.com/khoatrg/songboard/src/features/manage"
	"github.com/khoatrg/songboard/src/features/metrics"
	"github.com/khoatrg/songboard/src/infra/database"
	"github.com/khoatrg/songboard/src/infra/mediahost"
	"github.com/khoatrg/songboard/src/infra/picker"
	"github.com/khoatrg/songboard/src/infra/tag"
	"github.com/khoatrg/songboard/src/infra/watcher"
)

const configPath = "config.yaml"

func main() {
	// Load configuration
	cfgManager, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Setup default logger with slog
	logger := logging.SetupLogger(cfgManager)
	slog.SetDefault(logger)

	// Create the song catalog
	db, err := database.NewSqliteCatalog(cfgManager.Get().Database.Path)
	if err != nil {
		log.Fatalf("failed to create catalog: %v", err)
	}

	// Create the manage service and its collaborators
	uploader := mediahost.NewClient(cfgManager)
	intake := picker.NewIntake(cfgManager)
	tagReader := tag.NewReader()
	tagWriter := tag.NewWriter()
	recorder := metrics.NewRecorder()

	manageService := manage.NewService(db, uploader, intake, tagReader, tagWriter, cfgManager, recorder)
	if err := manageService.Refresh(context.Background()); err != nil {
		slog.Warn("Initial catalog fetch failed, starting with an empty list", "error", err)
	}

	// Reload the configuration when the file changes on disk
	configWatcher, err := watcher.NewWatcher(configPath, func() {
		reloaded, err := config.Load(configPath)
		if err != nil {
			slog.Error("Failed to reload configuration, keeping the old one", "error", err)
			return
		}
		cfgManager.Update(reloaded.Get())
	})
	if err != nil {
		slog.Error("Failed to create config watcher", "error", err)
	} else {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		if err := configWatcher.Start(ctx); err != nil {
			slog.Error("Failed to start config watcher", "error", err)
		} else {
			defer configWatcher.Stop()
		}
	}

	// Create and start the Telegram bot if enabled
	var telegramBot *hosting.TelegramBot
	if cfgManager.Get().Telegram.Enabled {
		var err error
		telegramBot, err = hosting.NewTelegramBot(cfgManager, manageService)
		if err != nil {
			slog.Error("Failed to initialize Telegram bot", "error", err)
		} else {
			manageService.SetNotifier(telegramBot)
			go telegramBot.Start()
			slog.Info("Telegram bot started")
		}
	}

	// Create and start the HTTP server
	server := hosting.NewServer(cfgManager, manageService, recorder)
	go func() {
		if err := server.Start(); err != nil {
			slog.Error("server stopped", "error", err)
		}
	}()
	slog.Info("Server started. Press Ctrl+C to shut down.", "port", cfgManager.Get().Server.Port)

	// Wait for a shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	slog.Info("Shutting down server...")

	// Shutdown the Telegram bot
	if telegramBot != nil {
		telegramBot.Stop()
		slog.Info("Telegram bot stopped")
	}

	// Shutdown the server
	if err := server.Shutdown(); err != nil {
		log.Fatalf("failed to shutdown server: %v", err)
	}
	slog.Info("Server gracefully shut down.")
}
