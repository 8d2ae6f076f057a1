package search

import (
	"context"

	"go.uber.org/zap"

	"github.com/quizzy-app/backend/internal/corpus"
	"github.com/quizzy-app/backend/internal/extraction"
	"github.com/quizzy-app/backend/pkg/logger"
)

// Retriever prefers semantic similarity and falls back to keyword
// matching. Every question gets exactly one Result, matches or not.
type Retriever struct {
	semantic *SemanticSearcher
	profile  Profile
	topK     int
}

func NewRetriever(semantic *SemanticSearcher, profile Profile, topK int) *Retriever {
	if topK <= 0 {
		topK = 3
	}
	return &Retriever{
		semantic: semantic,
		profile:  profile,
		topK:     topK,
	}
}

func (r *Retriever) Retrieve(ctx context.Context, c *corpus.Corpus, questions []extraction.Question) []Result {
	results := make([]Result, 0, len(questions))
	for _, q := range questions {
		results = append(results, r.retrieveOne(ctx, c, q))
	}
	return results
}

func (r *Retriever) retrieveOne(ctx context.Context, c *corpus.Corpus, q extraction.Question) Result {
	if c == nil {
		return Result{Question: q, Method: MethodKeyword}
	}

	matches, err := r.semantic.Search(ctx, c, q, r.topK)
	if err == nil && len(matches) > 0 {
		return Result{Question: q, Matches: matches, Method: MethodSemantic}
	}
	if err != nil {
		logger.Debug("Semantic search unavailable, using keywords",
			zap.Int("question", q.Number),
			zap.Error(err),
		)
	}

	matches = KeywordSearch(c, q, r.profile, r.topK)
	return Result{Question: q, Matches: matches, Method: MethodKeyword}
}
