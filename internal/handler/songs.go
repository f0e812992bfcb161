package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/model"
	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/service"
	"github.com/taraldstorebrand/mixtape-studio-sub000/pkg/response"
)

type SongsHandler struct {
	library   *service.LibraryService
	validator *validator.Validate
}

func NewSongsHandler(library *service.LibraryService, v *validator.Validate) *SongsHandler {
	return &SongsHandler{
		library:   library,
		validator: v,
	}
}

// List handles GET /api/songs
func (h *SongsHandler) List(c *fiber.Ctx) error {
	songs, err := h.library.ListSongs(c.Context())
	if err != nil {
		return response.ServiceError(c, "Failed to list songs")
	}
	return response.OK(c, songs)
}

// Get handles GET /api/songs/:id
func (h *SongsHandler) Get(c *fiber.Ctx) error {
	song, err := h.library.GetSong(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, service.ErrSongNotFound) {
			return response.NotFound(c, "Song not found")
		}
		return response.ServiceError(c, "Failed to load song")
	}
	return response.OK(c, song)
}

// Create handles POST /api/songs
func (h *SongsHandler) Create(c *fiber.Ctx) error {
	var req model.SongCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	song, err := h.library.CreateSong(c.Context(), &req)
	if err != nil {
		return response.ServiceError(c, "Failed to create song")
	}
	return response.Created(c, song)
}

// Update handles PUT /api/songs/:id. Partial update, including feedback
func (h *SongsHandler) Update(c *fiber.Ctx) error {
	var req model.SongUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if req.Feedback != nil {
		switch *req.Feedback {
		case model.FeedbackUp, model.FeedbackDown, model.FeedbackNone:
		default:
			return response.ValidationError(c, "Feedback must be 'up', 'down' or empty", nil)
		}
	}

	song, err := h.library.UpdateSong(c.Context(), c.Params("id"), &req)
	if err != nil {
		if errors.Is(err, service.ErrSongNotFound) {
			return response.NotFound(c, "Song not found")
		}
		return response.ServiceError(c, "Failed to update song")
	}
	return response.OK(c, song)
}

// Delete handles DELETE /api/songs/:id
func (h *SongsHandler) Delete(c *fiber.Ctx) error {
	if err := h.library.DeleteSong(c.Context(), c.Params("id")); err != nil {
		if errors.Is(err, service.ErrSongNotFound) {
			return response.NotFound(c, "Song not found")
		}
		return response.ServiceError(c, "Failed to delete song")
	}
	return response.NoContent(c)
}
