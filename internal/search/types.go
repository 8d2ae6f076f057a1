package search

import (
	"github.com/quizzy-app/backend/internal/corpus"
	"github.com/quizzy-app/backend/internal/extraction"
)

// Search method tags carried through to the final response.
const (
	MethodSemantic = "semantic"
	MethodKeyword  = "keyword"
)

// Match is a scored association between one question and one chunk.
// Score is the lexical score, or round(similarity*100) for semantic hits;
// Similarity keeps the raw cosine value for downstream logic.
type Match struct {
	Chunk      *corpus.Chunk
	Score      int
	MatchCount int
	Similarity float32
	Page       int
}

// Result is the retrieval outcome for one question. Matches are ordered
// best first and capped at the retriever's top-K; an empty slice means the
// question goes to the model ungrounded.
type Result struct {
	Question extraction.Question
	Matches  []Match
	Method   string
}
