package extraction

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/quizzy-app/backend/pkg/logger"
)

// ErrNoQuestions means neither parse strategy found a single question in
// the vision reply. The request cannot proceed.
var ErrNoQuestions = errors.New("no questions extracted")

var (
	separatorRe = regexp.MustCompile(`(?m)^-{3,}\s*$`)
	textLineRe  = regexp.MustCompile(`(?i)^TESTO:\s*`)

	optionRes = map[OptionKey]*regexp.Regexp{
		OptionA: regexp.MustCompile(`(?i)^A[:\)]\s*`),
		OptionB: regexp.MustCompile(`(?i)^B[:\)]\s*`),
		OptionC: regexp.MustCompile(`(?i)^C[:\)]\s*`),
		OptionD: regexp.MustCompile(`(?i)^D[:\)]\s*`),
	}

	// Fallback question boundaries: DOMANDA_1, DOMANDA 2, 3., 4), possibly
	// wrapped in markdown bold.
	boundaryRe = regexp.MustCompile(`(?i)^\*{0,2}(?:DOMANDA[_ ]?(\d+)|(\d+)[.\)])\*{0,2}\s*`)
)

// Parse turns the vision model's reply into an ordered question list.
// Question numbers restart at startNumber and follow parse order; any
// numbering present in the reply itself is ignored. The block format is
// tried first, then a line-scan fallback for replies that drifted from the
// requested layout.
func Parse(raw string, startNumber int) ([]Question, error) {
	if startNumber < 1 {
		startNumber = 1
	}

	questions := parseBlocks(raw, startNumber)
	if len(questions) == 0 {
		logger.Warn("Block parse found no questions, trying line scan")
		questions = parseLines(raw, startNumber)
	}

	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	logger.Info("Questions extracted", zap.Int("count", len(questions)))
	return questions, nil
}

func parseBlocks(raw string, startNumber int) []Question {
	var questions []Question

	for _, block := range separatorRe.Split(raw, -1) {
		upper := strings.ToUpper(block)
		if !strings.Contains(upper, "TESTO:") && !strings.Contains(upper, "DOMANDA") {
			continue
		}

		q := Question{Options: map[OptionKey]string{}}

		for _, line := range strings.Split(block, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			if q.Text == "" && textLineRe.MatchString(line) {
				q.Text = strings.TrimSpace(textLineRe.ReplaceAllString(line, ""))
				continue
			}

			for key, re := range optionRes {
				if re.MatchString(line) {
					q.Options[key] = strings.TrimSpace(re.ReplaceAllString(line, ""))
					break
				}
			}
		}

		if q.Valid() {
			q.Number = startNumber + len(questions)
			questions = append(questions, q)
		}
	}

	return questions
}

func parseLines(raw string, startNumber int) []Question {
	var questions []Question
	var current *Question

	flush := func() {
		if current != nil && current.Text != "" {
			current.Number = startNumber + len(questions)
			questions = append(questions, *current)
		}
		current = nil
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := boundaryRe.FindString(line); m != "" {
			flush()
			current = &Question{Options: map[OptionKey]string{}}

			// The boundary line often carries the question itself.
			rest := strings.TrimSpace(line[len(m):])
			if len(rest) > 10 && !isOptionLine(rest) {
				current.Text = rest
			}
			continue
		}

		if current == nil {
			continue
		}

		matched := false
		for key, re := range optionRes {
			if re.MatchString(line) {
				current.Options[key] = strings.TrimSpace(re.ReplaceAllString(line, ""))
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		if current.Text == "" && len(line) > 10 {
			current.Text = line
		}
	}
	flush()

	return questions
}

func isOptionLine(line string) bool {
	for _, re := range optionRes {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// Format renders questions back into the block layout Parse consumes.
// Used to build the grounding prompt, and parsing the output again yields
// the same question list.
func Format(questions []Question) string {
	var b strings.Builder

	for _, q := range questions {
		fmt.Fprintf(&b, "DOMANDA %d\n", q.Number)
		fmt.Fprintf(&b, "TESTO: %s\n", q.Text)
		for _, key := range OptionKeys {
			if text, ok := q.Options[key]; ok {
				fmt.Fprintf(&b, "%s: %s\n", key, text)
			}
		}
		b.WriteString("---\n")
	}

	return b.String()
}
