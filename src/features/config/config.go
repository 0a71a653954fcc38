package config

// Config holds the application configuration.
type Config struct {
	AddSongURL string    `yaml:"addSongURL"`
	Server     Server    `yaml:"server"`
	Logger     Logger    `yaml:"logger"`
	Database   Database  `yaml:"database"`
	MediaHost  MediaHost `yaml:"media_host"`
	Uploads    Uploads   `yaml:"uploads"`
	Telegram   Telegram  `yaml:"telegram"`
}

// Database holds the configuration for the database
type Database struct {
	Path string `yaml:"path" validate:"required"`
}

// Server hold the configuration for the Fiber server Config
type Server struct {
	PrintRoutes bool   `yaml:"show_routes"`
	Port        uint32 `yaml:"port"`
}

// Logger holds the configuration for the app logging
type Logger struct {
	Enabled   bool   `yaml:"enabled"`
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	HTMXDebug bool   `yaml:"htmx_debug"`
}

// MediaHost holds the configuration for the external upload service.
type MediaHost struct {
	BaseURL             string `yaml:"base_url" validate:"required"`
	CloudName           string `yaml:"cloud_name" validate:"required"`
	UploadPreset        string `yaml:"upload_preset" validate:"required"`
	AudioTimeoutSeconds int    `yaml:"audio_timeout_seconds"`
	ImageTimeoutSeconds int    `yaml:"image_timeout_seconds"`
}

// Uploads holds the client-side limits applied before any upload.
type Uploads struct {
	MaxAudioMB        int  `yaml:"max_audio_mb"`
	MaxImageMB        int  `yaml:"max_image_mb"`
	CoverSize         int  `yaml:"cover_size"`
	RetagBeforeUpload bool `yaml:"retag_before_upload"`
}

type Telegram struct {
	Enabled      bool     `yaml:"enabled"`
	Token        string   `yaml:"token"`
	ChatID       int64    `yaml:"chat_id"`
	AllowedUsers []string `yaml:"allowedUsers"`
	BotHandle    string   `yaml:"bot_handle"`
}
