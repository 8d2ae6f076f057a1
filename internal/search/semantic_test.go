package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizzy-app/backend/internal/corpus"
)

type stubEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	return s.vector, s.err
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vector
	}
	return out, s.err
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero norm", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1, 2}, []float32{1, 2, 3}, 0},
		{"empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CosineSimilarity(tt.a, tt.b), 1e-6)
		})
	}
}

func embeddedCorpus() *corpus.Corpus {
	return &corpus.Corpus{
		HasEmbeddings: true,
		Chunks: []corpus.Chunk{
			{ID: 0, Text: "chunk quasi identico", Page: 3, Embedding: []float32{1, 0.1, 0}},
			{ID: 1, Text: "chunk ortogonale", Page: 7, Embedding: []float32{0, 0, 1}},
			{ID: 2, Text: "chunk opposto", Page: 9, Embedding: []float32{-1, 0, 0}},
			{ID: 3, Text: "chunk senza embedding", Page: 11},
		},
	}
}

func TestSemanticSearchRanking(t *testing.T) {
	embedder := &stubEmbedder{vector: []float32{1, 0, 0}}
	searcher := NewSemanticSearcher(embedder)

	matches, err := searcher.Search(context.Background(), embeddedCorpus(), sampleQuestion(), 3)
	require.NoError(t, err)

	// Orthogonal and opposite chunks score <= 0 and are dropped, as is the
	// chunk with no embedding.
	require.Len(t, matches, 1)
	assert.Equal(t, 0, matches[0].Chunk.ID)
	assert.Equal(t, 3, matches[0].Page)
	assert.Greater(t, matches[0].Similarity, float32(0.9))
	assert.Equal(t, int(matches[0].Similarity*100+0.5), matches[0].Score)
	assert.Equal(t, 1, embedder.calls)
}

func TestSemanticSearchTopK(t *testing.T) {
	c := &corpus.Corpus{
		HasEmbeddings: true,
		Chunks: []corpus.Chunk{
			{ID: 0, Embedding: []float32{1, 0}},
			{ID: 1, Embedding: []float32{0.9, 0.1}},
			{ID: 2, Embedding: []float32{0.5, 0.5}},
		},
	}

	searcher := NewSemanticSearcher(&stubEmbedder{vector: []float32{1, 0}})
	matches, err := searcher.Search(context.Background(), c, sampleQuestion(), 2)
	require.NoError(t, err)

	require.Len(t, matches, 2)
	assert.Equal(t, 0, matches[0].Chunk.ID)
	assert.Equal(t, 1, matches[1].Chunk.ID)
}

func TestSemanticSearchUnavailable(t *testing.T) {
	question := sampleQuestion()

	t.Run("no embedder", func(t *testing.T) {
		searcher := NewSemanticSearcher(nil)
		_, err := searcher.Search(context.Background(), embeddedCorpus(), question, 3)
		assert.ErrorIs(t, err, ErrSemanticUnavailable)
	})

	t.Run("nil searcher", func(t *testing.T) {
		var searcher *SemanticSearcher
		_, err := searcher.Search(context.Background(), embeddedCorpus(), question, 3)
		assert.ErrorIs(t, err, ErrSemanticUnavailable)
	})

	t.Run("corpus without embeddings", func(t *testing.T) {
		searcher := NewSemanticSearcher(&stubEmbedder{vector: []float32{1, 0}})
		c := &corpus.Corpus{Chunks: []corpus.Chunk{{ID: 0, Text: "testo"}}}
		_, err := searcher.Search(context.Background(), c, question, 3)
		assert.ErrorIs(t, err, ErrSemanticUnavailable)
	})

	t.Run("embed call fails", func(t *testing.T) {
		searcher := NewSemanticSearcher(&stubEmbedder{err: errors.New("provider down")})
		_, err := searcher.Search(context.Background(), embeddedCorpus(), question, 3)
		assert.ErrorIs(t, err, ErrSemanticUnavailable)
	})
}
