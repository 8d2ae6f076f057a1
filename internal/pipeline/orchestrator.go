package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/quizzy-app/backend/internal/answer"
	"github.com/quizzy-app/backend/internal/corpus"
	"github.com/quizzy-app/backend/internal/extraction"
	"github.com/quizzy-app/backend/internal/llm"
	"github.com/quizzy-app/backend/internal/metrics"
	"github.com/quizzy-app/backend/internal/search"
	"github.com/quizzy-app/backend/pkg/logger"
)

// Orchestrator runs one quiz image through the full pipeline: vision
// extraction, per-question retrieval, the grounded answering call and
// reply parsing. External calls are sequential because each step feeds the
// next; the pacer spaces out LLM calls to stay under provider rate limits.
type Orchestrator struct {
	store     *corpus.Store
	retriever *search.Retriever
	vision    llm.VisionReader
	grounder  llm.TextGenerator
	pacer     *rate.Limiter
}

type SolveRequest struct {
	Image       []byte
	MediaType   string
	StartNumber int
}

type MatchInfo struct {
	ChunkID int     `json:"chunk_id"`
	Page    int     `json:"page"`
	Score   int     `json:"score"`
	Preview string  `json:"preview,omitempty"`
}

type QuestionResult struct {
	Number  int         `json:"number"`
	Text    string      `json:"text"`
	Method  string      `json:"method"`
	Matches []MatchInfo `json:"matches"`
}

type SolveResponse struct {
	ID            string           `json:"id"`
	Answers       []answer.Answer  `json:"answers"`
	Results       []QuestionResult `json:"results"`
	RawExtraction string           `json:"raw_extraction"`
	CorpusVersion string           `json:"corpus_version,omitempty"`
	LatencyMS     int              `json:"latency_ms"`
}

func NewOrchestrator(store *corpus.Store, retriever *search.Retriever, vision llm.VisionReader, grounder llm.TextGenerator, paceMS int) *Orchestrator {
	if paceMS <= 0 {
		paceMS = 1500
	}
	return &Orchestrator{
		store:     store,
		retriever: retriever,
		vision:    vision,
		grounder:  grounder,
		pacer:     rate.NewLimiter(rate.Every(time.Duration(paceMS)*time.Millisecond), 1),
	}
}

func (o *Orchestrator) Solve(ctx context.Context, req SolveRequest) (*SolveResponse, error) {
	startTime := time.Now()
	solveID := uuid.New().String()

	logger.Info("Solving quiz image",
		zap.String("solve_id", solveID),
		zap.Int("image_bytes", len(req.Image)),
		zap.Int("start_number", req.StartNumber),
	)

	if err := o.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	rawExtraction, err := o.vision.ReadImage(ctx, extractionPrompt, req.MediaType, req.Image)
	if err != nil {
		return nil, fmt.Errorf("vision call failed: %w", err)
	}

	questions, err := extraction.Parse(rawExtraction, req.StartNumber)
	if err != nil {
		return nil, err
	}
	metrics.QuestionsExtracted.Observe(float64(len(questions)))

	// A missing corpus degrades every question to ungrounded; it is not a
	// request failure.
	c, err := o.store.Load(ctx)
	if err != nil {
		logger.Warn("Corpus unavailable, answering without context",
			zap.String("solve_id", solveID),
			zap.Error(err),
		)
		c = nil
	}

	results := o.retriever.Retrieve(ctx, c, questions)
	for _, res := range results {
		metrics.RetrievalMethod.WithLabelValues(res.Method).Inc()
	}

	if err := o.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	reply, err := o.grounder.Generate(ctx, buildGroundingPrompt(results))
	if err != nil {
		return nil, fmt.Errorf("grounding call failed: %w", err)
	}

	numbers := make([]int, 0, len(questions))
	for _, q := range questions {
		numbers = append(numbers, q.Number)
	}
	parsed := answer.Parse(reply, numbers)

	resp := &SolveResponse{
		ID:            solveID,
		RawExtraction: rawExtraction,
		LatencyMS:     int(time.Since(startTime).Milliseconds()),
	}
	if c != nil {
		resp.CorpusVersion = c.Version
	}

	for _, res := range results {
		a := parsed[res.Question.Number]

		// No retrieved context and no explicit tag means the model was on
		// its own for this one.
		if len(res.Matches) == 0 && a.Source != answer.SourceAI {
			a.Source = answer.SourceAI
		}
		resp.Answers = append(resp.Answers, a)

		qr := QuestionResult{
			Number: res.Question.Number,
			Text:   res.Question.Text,
			Method: res.Method,
		}
		for _, m := range res.Matches {
			qr.Matches = append(qr.Matches, MatchInfo{
				ChunkID: m.Chunk.ID,
				Page:    m.Page,
				Score:   m.Score,
				Preview: preview(m.Chunk.Text, 120),
			})
		}
		resp.Results = append(resp.Results, qr)
	}

	logger.Info("Quiz solved",
		zap.String("solve_id", solveID),
		zap.Int("questions", len(questions)),
		zap.Int("latency_ms", resp.LatencyMS),
	)

	return resp, nil
}

func preview(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
