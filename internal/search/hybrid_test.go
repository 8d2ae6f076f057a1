package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizzy-app/backend/internal/corpus"
	"github.com/quizzy-app/backend/internal/extraction"
)

func TestRetrieveSemanticPreferred(t *testing.T) {
	retriever := NewRetriever(NewSemanticSearcher(&stubEmbedder{vector: []float32{1, 0, 0}}), Permissive, 3)

	results := retriever.Retrieve(context.Background(), embeddedCorpus(), []extraction.Question{sampleQuestion()})
	require.Len(t, results, 1)

	assert.Equal(t, MethodSemantic, results[0].Method)
	assert.NotEmpty(t, results[0].Matches)
}

func TestRetrieveKeywordFallbackOnError(t *testing.T) {
	c := &corpus.Corpus{
		HasEmbeddings: true,
		Chunks: []corpus.Chunk{
			{ID: 0, Text: "il valore aggiunto totale di un paese misura la produzione", Page: 12, Embedding: []float32{1, 0, 0}},
		},
	}

	retriever := NewRetriever(NewSemanticSearcher(&stubEmbedder{err: errors.New("quota exceeded")}), Permissive, 3)

	results := retriever.Retrieve(context.Background(), c, []extraction.Question{sampleQuestion()})
	require.Len(t, results, 1)

	assert.Equal(t, MethodKeyword, results[0].Method)
	require.NotEmpty(t, results[0].Matches)
	assert.Equal(t, 0, results[0].Matches[0].Chunk.ID)
}

func TestRetrieveKeywordFallbackOnZeroSemanticHits(t *testing.T) {
	// Every chunk embedding is orthogonal to the query so semantic search
	// returns nothing; lexical matching still finds the chunk.
	c := &corpus.Corpus{
		HasEmbeddings: true,
		Chunks: []corpus.Chunk{
			{ID: 0, Text: "il valore aggiunto totale di un paese misura la produzione", Page: 12, Embedding: []float32{0, 0, 1}},
		},
	}

	retriever := NewRetriever(NewSemanticSearcher(&stubEmbedder{vector: []float32{1, 0, 0}}), Permissive, 3)

	results := retriever.Retrieve(context.Background(), c, []extraction.Question{sampleQuestion()})
	require.Len(t, results, 1)
	assert.Equal(t, MethodKeyword, results[0].Method)
	assert.NotEmpty(t, results[0].Matches)
}

func TestRetrieveNilCorpus(t *testing.T) {
	retriever := NewRetriever(NewSemanticSearcher(nil), Permissive, 3)

	results := retriever.Retrieve(context.Background(), nil, []extraction.Question{sampleQuestion()})
	require.Len(t, results, 1)

	assert.Equal(t, MethodKeyword, results[0].Method)
	assert.Empty(t, results[0].Matches)
}

func TestRetrieveOneResultPerQuestion(t *testing.T) {
	questions := []extraction.Question{
		sampleQuestion(),
		{Number: 2, Text: "Argomento del tutto estraneo al corpus?", Options: map[extraction.OptionKey]string{
			extraction.OptionA: "Qualcosa",
			extraction.OptionB: "Altro",
		}},
	}

	c := &corpus.Corpus{
		Chunks: []corpus.Chunk{
			{ID: 0, Text: "il valore aggiunto totale di un paese misura la produzione", Page: 12},
		},
	}

	retriever := NewRetriever(NewSemanticSearcher(nil), Permissive, 3)
	results := retriever.Retrieve(context.Background(), c, questions)

	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].Question.Number)
	assert.NotEmpty(t, results[0].Matches)
	assert.Equal(t, 2, results[1].Question.Number)
	assert.Empty(t, results[1].Matches)
}
