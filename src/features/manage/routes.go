package manage

import (
	"github.com/gofiber/fiber/v2"
	"github.com/khoatrg/songboard/src/features/config"
)

// RegisterRoutes registers the routes for the manage feature.
func RegisterRoutes(app *fiber.App, service *Service, cfgManager *config.Manager) {
	handler := NewHandler(service, cfgManager)

	ui := app.Group("/ui")
	ui.Get("/songs/table", handler.GetSongsTable)
	ui.Get("/songs/:id/edit", handler.RenderEditForm)
	ui.Get("/songs/:id/delete", handler.RenderDeleteConfirm)

	songs := app.Group("/songs")
	songs.Get("/count", handler.GetSongsCount)
	songs.Get("/session", handler.GetSession)
	songs.Post("/refresh", handler.RefreshSongs)
	songs.Post("/add", handler.AddSongRedirect)
	songs.Get("/", handler.GetSongs)
	songs.Post("/:id/save", handler.SubmitEdit)
	songs.Post("/:id/cancel", handler.CancelEdit)
	songs.Delete("/:id", handler.DeleteSong)
}
