package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/model"
	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/service"
	"github.com/taraldstorebrand/mixtape-studio-sub000/pkg/response"
)

type GenresHandler struct {
	library   *service.LibraryService
	validator *validator.Validate
}

func NewGenresHandler(library *service.LibraryService, v *validator.Validate) *GenresHandler {
	return &GenresHandler{
		library:   library,
		validator: v,
	}
}

// List handles GET /api/genres
func (h *GenresHandler) List(c *fiber.Ctx) error {
	genres, err := h.library.ListGenres(c.Context())
	if err != nil {
		return response.ServiceError(c, "Failed to list genres")
	}
	return response.OK(c, genres)
}

// Create handles POST /api/genres
func (h *GenresHandler) Create(c *fiber.Ctx) error {
	var req model.GenreCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	genre, err := h.library.CreateGenre(c.Context(), &req)
	if err != nil {
		return response.ServiceError(c, "Failed to create genre")
	}
	return response.Created(c, genre)
}

// Delete handles DELETE /api/genres/:id
func (h *GenresHandler) Delete(c *fiber.Ctx) error {
	if err := h.library.DeleteGenre(c.Context(), c.Params("id")); err != nil {
		if errors.Is(err, service.ErrGenreNotFound) {
			return response.NotFound(c, "Genre not found")
		}
		return response.ServiceError(c, "Failed to delete genre")
	}
	return response.NoContent(c)
}
