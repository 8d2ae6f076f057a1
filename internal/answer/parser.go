package answer

import (
	"regexp"
	"strconv"
	"strings"
)

// The grounding model is asked for a RISPOSTE block (one structured line
// per question) followed by an ANALISI block (free prose with per-question
// headers). Neither is fully reliable, so both are parsed leniently and
// reconciled: the analysis wins on conflict, unparseable lines are
// ignored, and a question missing from both blocks comes back as "?"/AI.

var (
	risposteMarkerRe = regexp.MustCompile(`(?i)^\*{0,2}RISPOSTE\*{0,2}\s*:`)
	analisiMarkerRe  = regexp.MustCompile(`(?i)^\*{0,2}ANALISI\*{0,2}\s*:`)

	structuredRe = regexp.MustCompile(`(?i)^\s*(\d+)[.\)]\s*([A-D?])\s*(?:\[(CITATO|VERIFICATO|AI)\])?`)

	headerRe       = regexp.MustCompile(`^\*{0,2}(\d+)[.\)]`)
	answerLineRe   = regexp.MustCompile(`(?i)Risposta\s*:\s*\*{0,2}([A-D])`)
	sourceTagRe    = regexp.MustCompile(`\[(CITATO|VERIFICATO|AI)\]`)
	pageCitationRe = regexp.MustCompile(`(?i)\[Pag\.?\s*\d+\]`)
)

type sections struct {
	risposte []string
	analisi  []string
}

type partial struct {
	letter string
	source Source
}

// Parse reconciles the model reply into one Answer per question number.
func Parse(raw string, questionNumbers []int) map[int]Answer {
	secs := splitSections(raw)
	structured := parseStructured(secs.risposte)
	analyzed := parseAnalysis(secs.analisi)

	answers := make(map[int]Answer, len(questionNumbers))
	for _, n := range questionNumbers {
		answers[n] = reconcile(n, structured[n], analyzed[n])
	}
	return answers
}

// splitSections is phase one: label each line by the section marker seen
// most recently. Lines before any marker are treated as structured answers
// since some replies omit the RISPOSTE header.
func splitSections(raw string) sections {
	var secs sections
	inAnalysis := false

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)

		switch {
		case analisiMarkerRe.MatchString(trimmed):
			inAnalysis = true
			continue
		case risposteMarkerRe.MatchString(trimmed):
			inAnalysis = false
			continue
		}

		if trimmed == "" {
			continue
		}
		if inAnalysis {
			secs.analisi = append(secs.analisi, trimmed)
		} else {
			secs.risposte = append(secs.risposte, trimmed)
		}
	}

	return secs
}

func parseStructured(lines []string) map[int]partial {
	out := make(map[int]partial)

	for _, line := range lines {
		m := structuredRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}

		p := partial{letter: strings.ToUpper(m[2])}
		if m[3] != "" {
			p.source = Source(strings.ToUpper(m[3]))
		}
		out[n] = p
	}

	return out
}

// parseAnalysis tracks the current question from the bold-numbered headers
// and collects, per question, the latest "Risposta:" letter and the first
// provenance tag. A page citation counts as CITATO.
func parseAnalysis(lines []string) map[int]partial {
	out := make(map[int]partial)
	current := 0

	for _, line := range lines {
		if m := headerRe.FindStringSubmatch(line); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				current = n
			}
		}
		if current == 0 {
			continue
		}

		p := out[current]

		if m := answerLineRe.FindStringSubmatch(line); m != nil {
			// Last write wins: models sometimes revise within a paragraph.
			p.letter = strings.ToUpper(m[1])
		}

		if p.source == "" {
			if m := sourceTagRe.FindStringSubmatch(line); m != nil {
				p.source = Source(strings.ToUpper(m[1]))
			} else if pageCitationRe.MatchString(line) {
				p.source = SourceCitato
			}
		}

		out[current] = p
	}

	return out
}

func reconcile(number int, structured, analyzed partial) Answer {
	a := Answer{Number: number, Letter: UnknownLetter, Source: SourceAI}

	if structured.letter != "" {
		a.Letter = structured.letter
	}
	if analyzed.letter != "" {
		a.Letter = analyzed.letter
	}

	if structured.source != "" {
		a.Source = structured.source
	}
	if analyzed.source != "" {
		a.Source = analyzed.source
	}

	return a
}
