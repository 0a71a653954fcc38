package manage

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/khoatrg/songboard/src/features/config"
	"github.com/khoatrg/songboard/src/infra/picker"
	"github.com/khoatrg/songboard/src/music"
)

// Handler is the handler for the manage feature.
type Handler struct {
	service       *Service
	configManager *config.Manager
}

// NewHandler creates a new handler for the manage feature.
func NewHandler(service *Service, cfgManager *config.Manager) *Handler {
	return &Handler{service: service, configManager: cfgManager}
}

func wantsHTML(c *fiber.Ctx) bool {
	return strings.Contains(c.Get("Accept"), "text/html") || c.Get("HX-Request") == "true"
}

// GetSongs is the handler for listing songs, filtered and sorted.
func (h *Handler) GetSongs(c *fiber.Ctx) error {
	query := c.Query("q")
	sortKey := music.ParseSortKey(c.Query("sort"))
	slog.Debug("GetSongs handler called", "q", query, "sort", sortKey)

	if sortKey != h.service.SortKey() {
		if err := h.service.SetSortKey(c.Context(), sortKey); err != nil {
			slog.Error("Error changing sort order", "error", err)
			return c.Status(fiber.StatusInternalServerError).SendString("Error loading songs")
		}
	}

	songs := h.service.Songs(query)
	if wantsHTML(c) {
		if len(songs) == 0 {
			return c.Render("songs/empty", fiber.Map{
				"Query": query,
			})
		}
		return c.Render("songs/rows", fiber.Map{
			"Songs": songs,
			"Query": query,
			"Sort":  string(sortKey),
		})
	}
	return c.JSON(fiber.Map{
		"songs": songs,
		"count": len(songs),
		"sort":  string(sortKey),
	})
}

// GetSongsTable renders the song table section.
func (h *Handler) GetSongsTable(c *fiber.Ctx) error {
	slog.Debug("GetSongsTable handler called")
	return c.Render("songs/table", fiber.Map{
		"Genres": music.Genres,
	})
}

// GetSongsCount returns the size of the collection.
func (h *Handler) GetSongsCount(c *fiber.Ctx) error {
	slog.Debug("GetSongsCount handler called")
	return c.SendString(fmt.Sprintf("%d", h.service.Count()))
}

// RefreshSongs re-fetches the collection from the store.
func (h *Handler) RefreshSongs(c *fiber.Ctx) error {
	slog.Debug("RefreshSongs handler called")
	if err := h.service.Refresh(c.Context()); err != nil {
		slog.Error("Error refreshing songs", "error", err)
		if wantsHTML(c) {
			return c.Render("toast/toastErr", fiber.Map{
				"Msg": "Failed to reload songs",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	c.Response().Header.Set("HX-Trigger", "songsChanged")
	if wantsHTML(c) {
		return c.Render("toast/toastOk", fiber.Map{
			"Msg": "Songs reloaded",
		})
	}
	return c.JSON(fiber.Map{"count": h.service.Count()})
}

// RenderEditForm opens an edit session and renders the modal form.
func (h *Handler) RenderEditForm(c *fiber.Ctx) error {
	id := c.Params("id")
	slog.Debug("RenderEditForm handler called", "id", id)
	if id == "" {
		return c.Status(fiber.StatusBadRequest).SendString("Song ID is required")
	}

	if err := h.service.OpenEdit(c.Context(), id); err != nil {
		slog.Error("Failed to open edit session", "error", err, "id", id)
		return c.Render("toast/toastErr", fiber.Map{
			"Msg": "Song not found",
		})
	}

	view := h.service.SessionView()
	return c.Render("songs/edit_form", fiber.Map{
		"Session": view,
		"Genres":  music.Genres,
	})
}

// SubmitEdit takes the posted form and picked files, runs the save and
// reports the outcome.
func (h *Handler) SubmitEdit(c *fiber.Ctx) error {
	slog.Debug("SubmitEdit handler called")

	draft := Draft{
		Title:       c.FormValue("title"),
		Artist:      c.FormValue("artist"),
		Album:       c.FormValue("album"),
		Genre:       c.FormValue("genre"),
		ReleaseYear: c.FormValue("release_year"),
	}
	if err := h.service.UpdateDraft(draft); err != nil {
		slog.Error("Failed to update draft", "error", err)
		return c.Render("toast/toastErr", fiber.Map{
			"Msg": err.Error(),
		})
	}

	if file, err := formPickedFile(c, "audio"); err != nil {
		slog.Error("Failed to read picked audio", "error", err)
		return c.Render("toast/toastErr", fiber.Map{
			"Msg": "Could not read the audio file",
		})
	} else if file != nil {
		if err := h.service.AttachAudio(file); err != nil {
			slog.Error("Picked audio rejected", "error", err, "name", file.Name)
			return c.Render("toast/toastErr", fiber.Map{
				"Msg": err.Error(),
			})
		}
	}

	if file, err := formPickedFile(c, "image"); err != nil {
		slog.Error("Failed to read picked image", "error", err)
		return c.Render("toast/toastErr", fiber.Map{
			"Msg": "Could not read the image file",
		})
	} else if file != nil {
		if err := h.service.AttachImage(file); err != nil {
			slog.Error("Picked image rejected", "error", err, "name", file.Name)
			return c.Render("toast/toastErr", fiber.Map{
				"Msg": err.Error(),
			})
		}
	}

	if err := h.service.Save(c.Context()); err != nil {
		view := h.service.SessionView()
		msg := view.LastError
		if msg == "" {
			msg = "Failed to save the song"
		}
		return c.Render("toast/toastErr", fiber.Map{
			"Msg": msg,
		})
	}

	c.Response().Header.Set("HX-Trigger", "songsChanged")
	c.Response().Header.Set("HX-Trigger-After-Settle", "closeEditModal")
	return c.Render("toast/toastOk", fiber.Map{
		"Msg": "Song saved!",
	})
}

// CancelEdit discards the edit session.
func (h *Handler) CancelEdit(c *fiber.Ctx) error {
	slog.Debug("CancelEdit handler called")
	if err := h.service.CancelEdit(); err != nil {
		return c.Render("toast/toastErr", fiber.Map{
			"Msg": err.Error(),
		})
	}
	c.Response().Header.Set("HX-Trigger-After-Settle", "closeEditModal")
	return c.SendStatus(fiber.StatusNoContent)
}

// GetSession reports the edit session state, mainly for progress polling.
func (h *Handler) GetSession(c *fiber.Ctx) error {
	view := h.service.SessionView()
	if wantsHTML(c) {
		return c.Render("songs/save_progress", fiber.Map{
			"Session": view,
		})
	}
	return c.JSON(fiber.Map{
		"state":    view.State.String(),
		"progress": view.Progress,
		"error":    view.LastError,
	})
}

// RenderDeleteConfirm renders the delete confirmation dialog.
func (h *Handler) RenderDeleteConfirm(c *fiber.Ctx) error {
	id := c.Params("id")
	slog.Debug("RenderDeleteConfirm handler called", "id", id)

	title := ""
	for _, song := range h.service.Songs("") {
		if song.ID == id {
			title = song.Title
			break
		}
	}
	if title == "" {
		return c.Render("toast/toastErr", fiber.Map{
			"Msg": "Song not found",
		})
	}
	return c.Render("songs/confirm_delete", fiber.Map{
		"ID":    id,
		"Title": title,
	})
}

// DeleteSong removes a song after confirmation.
func (h *Handler) DeleteSong(c *fiber.Ctx) error {
	id := c.Params("id")
	slog.Debug("DeleteSong handler called", "id", id)
	if err := h.service.Delete(c.Context(), id); err != nil {
		slog.Error("Failed to delete song", "error", err, "id", id)
		return c.Render("toast/toastErr", fiber.Map{
			"Msg": "Failed to delete the song",
		})
	}
	c.Response().Header.Set("HX-Trigger", "songsChanged")
	return c.Render("toast/toastOk", fiber.Map{
		"Msg": "Song deleted",
	})
}

// AddSongRedirect forwards to the external add-song flow.
func (h *Handler) AddSongRedirect(c *fiber.Ctx) error {
	url := h.configManager.Get().AddSongURL
	if url == "" {
		return c.Render("toast/toastInfo", fiber.Map{
			"Msg": "No add-song destination configured",
		})
	}
	if c.Get("HX-Request") == "true" {
		c.Response().Header.Set("HX-Redirect", url)
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.Redirect(url, fiber.StatusSeeOther)
}

// formPickedFile reads an optional multipart file field. A missing
// field is not an error.
func formPickedFile(c *fiber.Ctx, field string) (*picker.File, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, nil
	}
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &picker.File{
		Name: header.Filename,
		MIME: header.Header.Get("Content-Type"),
		Data: data,
	}, nil
}
