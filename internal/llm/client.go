package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a provider reply carries no usable
// content. Structural problems like this are not retried.
var ErrEmptyResponse = errors.New("empty response content")

// TextGenerator produces a free-text completion for a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// VisionReader produces a free-text reply for a prompt plus one image.
type VisionReader interface {
	ReadImage(ctx context.Context, prompt, mediaType string, image []byte) (string, error)
}

// Embedder produces fixed-dimension embedding vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
