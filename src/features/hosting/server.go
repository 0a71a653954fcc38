package hosting

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
	"github.com/khoatrg/songboard/src/features/config"
	"github.com/khoatrg/songboard/src/features/manage"
	"github.com/khoatrg/songboard/src/features/metrics"
	"github.com/khoatrg/songboard/src/music"
)

// Server is the HTTP server for the application.
type Server struct {
	app  *fiber.App
	port uint32
}

// NewServer creates a new HTTP server.
func NewServer(cfg *config.Manager, manageService *manage.Service, recorder *metrics.Recorder) *Server {
	engine := html.New("./views", ".html")
	engine.Debug(cfg.Get().Logger.Level == "debug")
	// Add custom template functions
	engine.AddFunc("isDebug", func() bool {
		return cfg.Get().Logger.HTMXDebug
	})
	engine.AddFunc("add", func(a, b int) int {
		return a + b
	})
	engine.AddFunc("formatViews", func(views int64) string {
		return music.FormatViewCount(views)
	})
	engine.AddFunc("year", func(s *music.Song) string {
		if s.ReleaseYear == "" {
			return "-"
		}
		return s.ReleaseYear
	})

	// The body limit sits above the audio cap so oversized picks reach
	// the intake checks and get a proper rejection message.
	maxAudioMB := cfg.Get().Uploads.MaxAudioMB
	if maxAudioMB <= 0 {
		maxAudioMB = 50
	}

	app := fiber.New(fiber.Config{
		Views: engine,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("Internal Server Error", "error", err)
			return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
		},
		AppName:               "Songboard",
		DisableStartupMessage: true,
		EnablePrintRoutes:     cfg.Get().Server.PrintRoutes,
		BodyLimit:             (maxAudioMB + 15) * 1024 * 1024,
	})

	// Add middleware
	app.Use(HTMXMiddleware())
	app.Use(LogAllRequestsMiddleware())

	app.Static("/", "./public")
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Render("main", fiber.Map{
			"Genres": music.Genres,
		})
	})

	manage.RegisterRoutes(app, manageService, cfg)
	config.RegisterRoutes(app, cfg)
	metrics.RegisterRoutes(app, recorder)

	return &Server{app: app, port: cfg.Get().Server.Port}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.app.Listen(":" + fmt.Sprint(s.port))
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
