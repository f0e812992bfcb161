package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/model"
	"github.com/taraldstorebrand/mixtape-studio-sub000/internal/service"
	"github.com/taraldstorebrand/mixtape-studio-sub000/pkg/response"
)

type GenerateHandler struct {
	service   *service.GenerationService
	validator *validator.Validate
}

func NewGenerateHandler(svc *service.GenerationService, v *validator.Validate) *GenerateHandler {
	return &GenerateHandler{
		service:   svc,
		validator: v,
	}
}

// Start handles POST /api/generate. Submits lyrics to the music
// generation API and registers the accepted job for polling.
func (h *GenerateHandler) Start(c *fiber.Ctx) error {
	var req model.GenerateStartRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Submit(c.Context(), &req)
	if err != nil {
		var submitErr *service.SubmitError
		if errors.As(err, &submitErr) {
			return response.GenerationError(c, submitErr.Message)
		}
		return response.ServiceError(c, "Failed to submit generation request")
	}

	return response.Accepted(c, result)
}

// Status handles GET /api/generate/status/:jobId. Returns the last
// normalized status for an in-flight job. Jobs that have reached a
// terminal status are no longer tracked and return 404.
func (h *GenerateHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	status, err := h.service.Status(jobID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, "Failed to load job status")
	}

	return response.OK(c, status)
}
