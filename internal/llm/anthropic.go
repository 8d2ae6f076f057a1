package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"

	"github.com/quizzy-app/backend/internal/metrics"
	"github.com/quizzy-app/backend/pkg/circuitbreaker"
	"github.com/quizzy-app/backend/pkg/logger"
	"github.com/quizzy-app/backend/pkg/retry"
)

// AnthropicClient covers both pipeline calls: question extraction from a
// quiz image and the grounded answering pass.
type AnthropicClient struct {
	client      *anthropic.Client
	model       string
	visionModel string
	temperature float32
	maxTokens   int
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

func NewAnthropicClient(apiKey, model, visionModel string, temperature float32, maxTokens int) *AnthropicClient {
	client := anthropic.NewClient(apiKey)

	cb := circuitbreaker.NewCircuitBreaker("anthropic", circuitbreaker.Config{
		MaxRequests:      2,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:   4,
		FixedDelay:    2 * time.Second,
		RateLimitBase: 2 * time.Second,
		RateLimitCap:  15 * time.Second,
		Classify:      classifyAnthropicErr,
		Logger:        logger.GetLogger(),
	}

	logger.Info("Anthropic client initialized",
		zap.String("model", model),
		zap.String("vision_model", visionModel),
	)

	return &AnthropicClient{
		client:      client,
		model:       model,
		visionModel: visionModel,
		temperature: temperature,
		maxTokens:   maxTokens,
		cb:          cb,
		retryConfig: retryConfig,
	}
}

func (c *AnthropicClient) Generate(ctx context.Context, prompt string) (string, error) {
	messages := []anthropic.Message{
		{
			Role: anthropic.RoleUser,
			Content: []anthropic.MessageContent{
				anthropic.NewTextMessageContent(prompt),
			},
		},
	}

	return c.send(ctx, anthropic.Model(c.model), messages)
}

func (c *AnthropicClient) ReadImage(ctx context.Context, prompt, mediaType string, image []byte) (string, error) {
	encoded := base64.StdEncoding.EncodeToString(image)

	messages := []anthropic.Message{
		{
			Role: anthropic.RoleUser,
			Content: []anthropic.MessageContent{
				anthropic.NewImageMessageContent(
					anthropic.NewMessageContentSource(anthropic.MessagesContentSourceTypeBase64, mediaType, encoded),
				),
				anthropic.NewTextMessageContent(prompt),
			},
		},
	}

	return c.send(ctx, anthropic.Model(c.visionModel), messages)
}

func (c *AnthropicClient) send(ctx context.Context, model anthropic.Model, messages []anthropic.Message) (string, error) {
	temperature := c.temperature

	var text string

	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
				Model:       model,
				Messages:    messages,
				MaxTokens:   c.maxTokens,
				Temperature: &temperature,
			})
			if err != nil {
				return fmt.Errorf("failed to create message: %w", err)
			}

			logger.Debug("Anthropic message generated",
				zap.Int("input_tokens", resp.Usage.InputTokens),
				zap.Int("output_tokens", resp.Usage.OutputTokens),
			)
			metrics.LLMTokensUsed.WithLabelValues(string(model), "input").Add(float64(resp.Usage.InputTokens))
			metrics.LLMTokensUsed.WithLabelValues(string(model), "output").Add(float64(resp.Usage.OutputTokens))

			if len(resp.Content) == 0 || resp.Content[0].Text == nil {
				return ErrEmptyResponse
			}

			text = *resp.Content[0].Text
			return nil
		})
	})

	if err != nil {
		return "", err
	}

	return text, nil
}

// classifyAnthropicErr maps provider errors onto the retry policy. A reply
// with no content is structural, so retrying will not fix it.
func classifyAnthropicErr(err error) retry.Class {
	if errors.Is(err, ErrEmptyResponse) {
		return retry.ClassFatal
	}
	return retry.StatusClassifier(anthropicStatus)(err)
}

func anthropicStatus(err error) (int, bool) {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.IsRateLimitErr():
			return 429, true
		case apiErr.IsAuthenticationErr():
			return 401, true
		case apiErr.IsOverloadedErr():
			return 429, true
		}
		return 500, true
	}

	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode, true
	}

	return 0, false
}
