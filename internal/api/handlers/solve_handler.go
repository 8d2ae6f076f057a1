package handlers

import (
	"encoding/base64"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/quizzy-app/backend/internal/extraction"
	"github.com/quizzy-app/backend/internal/metrics"
	"github.com/quizzy-app/backend/internal/pipeline"
	"github.com/quizzy-app/backend/pkg/logger"
)

type SolveHandler struct {
	orchestrator *pipeline.Orchestrator
}

func NewSolveHandler(orchestrator *pipeline.Orchestrator) *SolveHandler {
	return &SolveHandler{
		orchestrator: orchestrator,
	}
}

func (h *SolveHandler) HandleSolve(c *fiber.Ctx) error {
	var req struct {
		ImageBase64 string `json:"image_base64"`
		MediaType   string `json:"media_type"`
		StartNumber int    `json:"start_number"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.ImageBase64 == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "image_base64 is required",
		})
	}

	image, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "image_base64 is not valid base64",
		})
	}

	mediaType := req.MediaType
	if mediaType == "" {
		mediaType = "image/jpeg"
	}

	start := time.Now()
	resp, err := h.orchestrator.Solve(c.Context(), pipeline.SolveRequest{
		Image:       image,
		MediaType:   mediaType,
		StartNumber: req.StartNumber,
	})
	metrics.SolveDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, extraction.ErrNoQuestions) {
			metrics.SolveTotal.WithLabelValues("no_questions").Inc()
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": "No questions could be read from the image",
			})
		}

		metrics.SolveTotal.WithLabelValues("error").Inc()
		logger.Error("Failed to solve quiz", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to process quiz image",
		})
	}

	metrics.SolveTotal.WithLabelValues("ok").Inc()
	return c.JSON(resp)
}
