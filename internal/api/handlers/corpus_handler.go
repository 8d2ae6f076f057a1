package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/quizzy-app/backend/internal/corpus"
	"github.com/quizzy-app/backend/pkg/logger"
)

type CorpusHandler struct {
	store *corpus.Store
}

func NewCorpusHandler(store *corpus.Store) *CorpusHandler {
	return &CorpusHandler{
		store: store,
	}
}

// HandleStatus reports what the loader has cached, triggering the initial
// load on first call. Useful to warm the cache after a deploy.
func (h *CorpusHandler) HandleStatus(c *fiber.Ctx) error {
	loaded, err := h.store.Load(c.Context())
	if err != nil {
		logger.Warn("Corpus status requested but load failed", zap.Error(err))
		return c.JSON(fiber.Map{
			"loaded": false,
			"error":  err.Error(),
		})
	}

	embedded := 0
	for i := range loaded.Chunks {
		if len(loaded.Chunks[i].Embedding) > 0 {
			embedded++
		}
	}

	return c.JSON(fiber.Map{
		"loaded":          true,
		"version":         loaded.Version,
		"course":          loaded.Metadata.Source,
		"chunks":          len(loaded.Chunks),
		"embedded_chunks": embedded,
		"has_embeddings":  loaded.HasEmbeddings,
	})
}
