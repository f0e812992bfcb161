package handler

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/model"
	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/service"
	"github.com/taraldstorebrand/mixtape-studio-sub000/pkg/response"
)

type MixtapeHandler struct {
	service    *service.MixtapeService
	validator  *validator.Validate
	mixtapeDir string
}

func NewMixtapeHandler(svc *service.MixtapeService, v *validator.Validate, mixtapeDir string) *MixtapeHandler {
	return &MixtapeHandler{
		service:    svc,
		validator:  v,
		mixtapeDir: mixtapeDir,
	}
}

// Liked handles POST /api/mixtape/liked. Starts assembly from all liked
// songs. The response carries only the task ID; the outcome arrives as a
// mixtape-ready event.
func (h *MixtapeHandler) Liked(c *fiber.Ctx) error {
	result, err := h.service.GenerateFromLiked(c.Context())
	if err != nil {
		return response.ServiceError(c, "Failed to start mixtape")
	}
	return response.Accepted(c, result)
}

// Custom handles POST /api/mixtape/custom. Starts assembly from an
// explicit ordered song list.
func (h *MixtapeHandler) Custom(c *fiber.Ctx) error {
	var req model.MixtapeCustomRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.GenerateCustom(c.Context(), req.SongIDs, req.Name)
	if err != nil {
		return response.ServiceError(c, "Failed to start mixtape")
	}
	return response.Accepted(c, result)
}

// Download handles GET /api/mixtape/download/:taskId. Streams a finished
// mixtape container.
func (h *MixtapeHandler) Download(c *fiber.Ctx) error {
	taskID := c.Params("taskId")
	if taskID == "" || strings.ContainsAny(taskID, "/\\.") {
		return response.ValidationError(c, "Invalid task ID", nil)
	}

	path := filepath.Join(h.mixtapeDir, taskID+".m4b")
	if _, err := os.Stat(path); err != nil {
		return response.NotFound(c, "Mixtape not found")
	}

	return c.Download(path, taskID+".m4b")
}
