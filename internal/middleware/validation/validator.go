package validation

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var allowedMediaTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

type Config struct {
	MaxImageBytes int
	Logger        *zap.Logger
}

// Middleware rejects malformed solve payloads before any LLM money is
// spent: wrong content type, unsupported image format, oversized image.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxImageBytes == 0 {
		cfg.MaxImageBytes = 8 * 1024 * 1024
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost || !strings.Contains(c.Path(), "/solve") {
			return c.Next()
		}

		if !strings.Contains(c.Get("Content-Type"), "application/json") {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
				"error": "Content-Type must be application/json",
			})
		}

		var req struct {
			ImageBase64 string `json:"image_base64"`
			MediaType   string `json:"media_type"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid JSON format",
			})
		}

		if req.ImageBase64 == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "image_base64 is required",
			})
		}

		// Base64 inflates by 4/3, so compare against the encoded length.
		if len(req.ImageBase64) > cfg.MaxImageBytes*4/3 {
			cfg.Logger.Warn("Oversized image rejected",
				zap.String("ip", c.IP()),
				zap.Int("encoded_bytes", len(req.ImageBase64)),
			)
			return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
				"error": "Image exceeds maximum size",
			})
		}

		if req.MediaType != "" {
			if _, ok := allowedMediaTypes[req.MediaType]; !ok {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Unsupported media type",
				})
			}
		}

		return c.Next()
	}
}
