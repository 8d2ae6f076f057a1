package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/quizzy-app/backend/internal/corpus"
	"github.com/quizzy-app/backend/internal/extraction"
	"github.com/quizzy-app/backend/internal/llm"
)

// ErrSemanticUnavailable signals the caller to fall back to the lexical
// scorer: no embedder configured, no chunk embeddings, or the provider
// call failed.
var ErrSemanticUnavailable = errors.New("semantic search unavailable")

// CosineSimilarity computes the cosine similarity between two vectors.
// Mismatched lengths or a zero-norm vector yield 0.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	denominator := float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB)))
	if denominator == 0 {
		return 0
	}

	return dot / denominator
}

// SemanticSearcher scores questions against precomputed chunk embeddings.
// Only the query embedding costs a provider call.
type SemanticSearcher struct {
	embedder llm.Embedder
}

func NewSemanticSearcher(embedder llm.Embedder) *SemanticSearcher {
	return &SemanticSearcher{embedder: embedder}
}

// Search embeds the question plus its options and ranks every embedded
// chunk by cosine similarity. No pruning: the corpus is small enough that
// a full scan per question is fine.
func (s *SemanticSearcher) Search(ctx context.Context, c *corpus.Corpus, q extraction.Question, topK int) ([]Match, error) {
	if s == nil || s.embedder == nil || !c.HasEmbeddings {
		return nil, ErrSemanticUnavailable
	}

	query, err := s.embedder.Embed(ctx, queryText(q))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSemanticUnavailable, err)
	}

	var matches []Match
	for i := range c.Chunks {
		chunk := &c.Chunks[i]
		if len(chunk.Embedding) == 0 {
			continue
		}
		sim := CosineSimilarity(query, chunk.Embedding)
		if sim <= 0 {
			continue
		}
		matches = append(matches, Match{
			Chunk:      chunk,
			Similarity: sim,
			Score:      int(math.Round(float64(sim) * 100)),
			Page:       chunk.Page,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func queryText(q extraction.Question) string {
	parts := append([]string{q.Text}, q.OptionList()...)
	return strings.Join(parts, " ")
}
