package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/quizzy-app/backend/pkg/logger"
	"github.com/quizzy-app/backend/pkg/retry"
)

// OpenAIEmbedder requests query embeddings. Chunk embeddings are
// precomputed offline with the same model and dimensions, so the two sides
// of the cosine comparison stay in the same space.
type OpenAIEmbedder struct {
	client      *openai.Client
	model       string
	dimensions  int
	retryConfig retry.Config
}

func NewOpenAIEmbedder(apiKey, model string, dimensions int) *OpenAIEmbedder {
	client := openai.NewClient(apiKey)

	retryConfig := retry.Config{
		MaxAttempts:   3,
		FixedDelay:    2 * time.Second,
		RateLimitBase: 2 * time.Second,
		RateLimitCap:  15 * time.Second,
		Classify:      classifyOpenAIErr,
		Logger:        logger.GetLogger(),
	}

	logger.Info("OpenAI embedder initialized",
		zap.String("model", model),
		zap.Int("dimensions", dimensions),
	)

	return &OpenAIEmbedder{
		client:      client,
		model:       model,
		dimensions:  dimensions,
		retryConfig: retryConfig,
	}
}

func (c *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var embeddings [][]float32

	err := retry.Do(ctx, c.retryConfig, func() error {
		resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input:      texts,
			Model:      openai.EmbeddingModel(c.model),
			Dimensions: c.dimensions,
		})
		if err != nil {
			return fmt.Errorf("failed to create embeddings: %w", err)
		}

		if len(resp.Data) != len(texts) {
			return fmt.Errorf("%w: got %d embeddings for %d inputs", ErrEmptyResponse, len(resp.Data), len(texts))
		}

		embeddings = make([][]float32, 0, len(resp.Data))
		for _, data := range resp.Data {
			embedding := make([]float32, len(data.Embedding))
			copy(embedding, data.Embedding)
			embeddings = append(embeddings, embedding)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	logger.Debug("Embeddings generated", zap.Int("count", len(embeddings)))

	return embeddings, nil
}

func classifyOpenAIErr(err error) retry.Class {
	if errors.Is(err, ErrEmptyResponse) {
		return retry.ClassFatal
	}
	return retry.StatusClassifier(openaiStatus)(err)
}

func openaiStatus(err error) (int, bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode, true
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode, true
	}

	return 0, false
}
