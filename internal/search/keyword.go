package search

import (
	"regexp"
	"sort"
	"strings"

	"github.com/quizzy-app/backend/internal/corpus"
	"github.com/quizzy-app/backend/internal/extraction"
)

// Profile is the lexical acceptance threshold pair. Which pair is right is
// a product decision, so it is configuration rather than a constant.
type Profile struct {
	MinMatches int
	MinScore   int
}

var (
	Permissive = Profile{MinMatches: 3, MinScore: 30}
	Strict     = Profile{MinMatches: 7, MinScore: 150}
)

func ProfileByName(name string) Profile {
	if strings.EqualFold(name, "strict") {
		return Strict
	}
	return Permissive
}

const (
	maxKeywords       = 10
	maxPerOption      = 3
	minQuestionTokLen = 4
	minOptionTokLen   = 5
	substringScore    = 10
	boundedBonus      = 5
)

var nonWordRe = regexp.MustCompile(`[^a-z0-9àèéìòù\s]+`)

// Short Italian function words that survive the length filter but carry no
// retrieval signal.
var stopWords = map[string]struct{}{
	"cosa": {}, "come": {}, "cosè": {}, "quale": {}, "quali": {},
	"sono": {}, "della": {}, "delle": {}, "degli": {}, "dello": {},
	"nella": {}, "nelle": {}, "questo": {}, "questa": {}, "quando": {},
	"perché": {}, "viene": {}, "essere": {}, "dalla": {}, "alla": {},
}

// BuildKeywords derives the lexical query for a question: tokens longer
// than three characters from the text, up to three tokens longer than four
// characters per option, deduplicated and capped at ten.
func BuildKeywords(q extraction.Question) []string {
	seen := make(map[string]struct{})
	var keywords []string

	add := func(tok string) {
		if _, dup := seen[tok]; dup || len(keywords) >= maxKeywords {
			return
		}
		seen[tok] = struct{}{}
		keywords = append(keywords, tok)
	}

	for _, tok := range tokenize(q.Text) {
		if len([]rune(tok)) < minQuestionTokLen {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		add(tok)
	}

	for _, key := range extraction.OptionKeys {
		text, ok := q.Options[key]
		if !ok {
			continue
		}
		taken := 0
		for _, tok := range tokenize(text) {
			if taken >= maxPerOption {
				break
			}
			if len([]rune(tok)) < minOptionTokLen {
				continue
			}
			add(tok)
			taken++
		}
	}

	return keywords
}

func tokenize(text string) []string {
	cleaned := nonWordRe.ReplaceAllString(strings.ToLower(text), " ")
	return strings.Fields(cleaned)
}

// ScoreChunk scores one chunk against a keyword set: 10 per keyword found
// as a substring, 5 more when the hit is bounded by spaces.
func ScoreChunk(keywords []string, text string) (score, matchCount int) {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if !strings.Contains(lower, kw) {
			continue
		}
		matchCount++
		score += substringScore
		if strings.Contains(lower, " "+kw+" ") {
			score += boundedBonus
		}
	}
	return score, matchCount
}

// KeywordSearch runs the lexical scorer over the whole corpus and returns
// the top-K candidates that clear the profile.
func KeywordSearch(c *corpus.Corpus, q extraction.Question, profile Profile, topK int) []Match {
	keywords := BuildKeywords(q)
	if len(keywords) == 0 {
		return nil
	}

	var matches []Match
	for i := range c.Chunks {
		chunk := &c.Chunks[i]
		score, count := ScoreChunk(keywords, chunk.Text)
		if count >= profile.MinMatches && score >= profile.MinScore {
			matches = append(matches, Match{
				Chunk:      chunk,
				Score:      score,
				MatchCount: count,
				Page:       chunk.Page,
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}
