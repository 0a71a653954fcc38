package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Handler is the handler for the config feature.
type Handler struct {
	configManager *Manager
}

// NewHandler creates a new handler for the config feature.
func NewHandler(configManager *Manager) *Handler {
	return &Handler{
		configManager: configManager,
	}
}

// UpdateSettings handles the form submission to update configuration.
func (h *Handler) UpdateSettings(c *fiber.Ctx) error {
	slog.Info("Configuration update requested")

	// Get current config to preserve server settings
	currentConfig := h.configManager.Get()
	slog.Debug(h.configManager.GetJSON())
	newConfig := &Config{
		AddSongURL: c.FormValue("addSongURL"),
		MediaHost: MediaHost{
			BaseURL:             c.FormValue("media_host.base_url"),
			CloudName:           c.FormValue("media_host.cloud_name"),
			UploadPreset:        c.FormValue("media_host.upload_preset"),
			AudioTimeoutSeconds: parseInt(c.FormValue("media_host.audio_timeout_seconds")),
			ImageTimeoutSeconds: parseInt(c.FormValue("media_host.image_timeout_seconds")),
		},
		Uploads: Uploads{
			MaxAudioMB:        parseInt(c.FormValue("uploads.max_audio_mb")),
			MaxImageMB:        parseInt(c.FormValue("uploads.max_image_mb")),
			CoverSize:         parseInt(c.FormValue("uploads.cover_size")),
			RetagBeforeUpload: c.FormValue("uploads.retag_before_upload") == "true",
		},
		Telegram: Telegram{
			Enabled:      c.FormValue("telegram.enabled") == "true",
			Token:        currentConfig.Telegram.Token, // never round-tripped through the form

			ChatID:       parseInt64(c.FormValue("telegram.chat_id")),
			AllowedUsers: parseStringSlice(c.FormValue("telegram.allowedUsers")),
			BotHandle:    c.FormValue("telegram.bot_handle"),
		},
		// Preserve server settings from current config, no sense to be changed on runtime
		Server: Server{
			Port:        currentConfig.Server.Port,
			PrintRoutes: currentConfig.Server.PrintRoutes,
		},
		Database: Database{
			Path: currentConfig.Database.Path,
		},
		Logger: Logger{
			Enabled:   c.FormValue("logger.enabled") == "true",
			Level:     c.FormValue("logger.level"),
			Format:    c.FormValue("logger.format"),
			HTMXDebug: c.FormValue("logger.htmx_debug") == "true",
		},
	}

	// Update the configuration
	h.configManager.Update(newConfig)
	slog.Info("Configuration updated in memory")

	// Try to save to file (optional - may fail in containerized environments)
	if err := h.configManager.Save("config.yaml"); err != nil {
		slog.Warn("failed to save config to file (this is normal in containerized environments)", "error", err)
	} else {
		slog.Info("Configuration saved to file successfully")
	}

	return c.Render("toast/toastOk", fiber.Map{
		"Msg": "Configuration updated successfully!",
	})
}

// Helper functions for parsing form values
func parseInt(s string) int {
	var result int
	if s != "" {
		_, err := fmt.Sscanf(s, "%d", &result)
		if err != nil {
			return 0
		}
	}
	return result
}

func parseInt64(s string) int64 {
	if s == "" {
		return 0
	}
	result, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func parseStringSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	// Split by comma and trim spaces
	var result []string
	for part := range strings.SplitSeq(s, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func (h *Handler) GetConfigForm(c *fiber.Ctx) error {
	slog.Debug("GetSettingsForm handler called")
	config := h.configManager.Get()

	return c.Render("config/config_form", fiber.Map{
		"Config": config,
	})
}

// GetConfig returns the current configuration in the requested format.
func (h *Handler) GetConfig(c *fiber.Ctx) error {
	slog.Debug("GetConfig handler called", "format", c.Query("fmt", "json"))
	format := c.Query("fmt", "yaml")

	switch format {
	case "yaml":
		c.Set("Content-Type", "text/yaml")
		return c.SendString(h.configManager.GetYAML())
	case "json":
		c.Set("Content-Type", "application/json")
		return c.SendString(h.configManager.GetJSON())
	default:
		return c.Status(fiber.StatusBadRequest).SendString("Invalid format. Use 'json' or 'yaml'")
	}
}

// DownloadDatabase serves the database file for download.
func (h *Handler) DownloadDatabase(c *fiber.Ctx) error {
	slog.Debug("DownloadDatabase handler called")

	config := h.configManager.Get()
	dbPath := config.Database.Path

	if dbPath == "" {
		return c.Status(fiber.StatusBadRequest).SendString("Database path not configured")
	}

	// Extract filename from path for download
	filename := filepath.Base(dbPath)

	// Set headers for file download
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	c.Set("Content-Type", "application/octet-stream")

	// Send the file
	return c.SendFile(dbPath)
}
