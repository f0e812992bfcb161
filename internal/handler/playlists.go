package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/model"
	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/service"
	"github.com/taraldstorebrand/mixtape-studio-sub000/pkg/response"
)

type PlaylistsHandler struct {
	library   *service.LibraryService
	validator *validator.Validate
}

func NewPlaylistsHandler(library *service.LibraryService, v *validator.Validate) *PlaylistsHandler {
	return &PlaylistsHandler{
		library:   library,
		validator: v,
	}
}

// List handles GET /api/playlists
func (h *PlaylistsHandler) List(c *fiber.Ctx) error {
	playlists, err := h.library.ListPlaylists(c.Context())
	if err != nil {
		return response.ServiceError(c, "Failed to list playlists")
	}
	return response.OK(c, playlists)
}

// Get handles GET /api/playlists/:id
func (h *PlaylistsHandler) Get(c *fiber.Ctx) error {
	pl, err := h.library.GetPlaylist(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, service.ErrPlaylistNotFound) {
			return response.NotFound(c, "Playlist not found")
		}
		return response.ServiceError(c, "Failed to get playlist")
	}
	return response.OK(c, pl)
}

// Create handles POST /api/playlists
func (h *PlaylistsHandler) Create(c *fiber.Ctx) error {
	var req model.PlaylistCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	pl, err := h.library.CreatePlaylist(c.Context(), &req)
	if err != nil {
		return response.ServiceError(c, "Failed to create playlist")
	}
	return response.Created(c, pl)
}

// Update handles PUT /api/playlists/:id
func (h *PlaylistsHandler) Update(c *fiber.Ctx) error {
	var req model.PlaylistUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	pl, err := h.library.UpdatePlaylist(c.Context(), c.Params("id"), &req)
	if err != nil {
		if errors.Is(err, service.ErrPlaylistNotFound) {
			return response.NotFound(c, "Playlist not found")
		}
		return response.ServiceError(c, "Failed to update playlist")
	}
	return response.OK(c, pl)
}

// Delete handles DELETE /api/playlists/:id
func (h *PlaylistsHandler) Delete(c *fiber.Ctx) error {
	if err := h.library.DeletePlaylist(c.Context(), c.Params("id")); err != nil {
		if errors.Is(err, service.ErrPlaylistNotFound) {
			return response.NotFound(c, "Playlist not found")
		}
		return response.ServiceError(c, "Failed to delete playlist")
	}
	return response.NoContent(c)
}
