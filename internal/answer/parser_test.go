package answer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStructuredBlock(t *testing.T) {
	raw := `RISPOSTE:
1. B [CITATO]
2. A [VERIFICATO]
3. D [AI]
`

	answers := Parse(raw, []int{1, 2, 3})
	require.Len(t, answers, 3)

	assert.Equal(t, Answer{Number: 1, Letter: "B", Source: SourceCitato}, answers[1])
	assert.Equal(t, Answer{Number: 2, Letter: "A", Source: SourceVerificato}, answers[2])
	assert.Equal(t, Answer{Number: 3, Letter: "D", Source: SourceAI}, answers[3])
}

func TestParseWithoutRisposteHeader(t *testing.T) {
	// Some replies skip the header entirely; leading lines still parse as
	// structured answers.
	answers := Parse("1. C [CITATO]\n", []int{1})

	assert.Equal(t, Answer{Number: 1, Letter: "C", Source: SourceCitato}, answers[1])
}

func TestParseAnalysisOverridesStructured(t *testing.T) {
	raw := `RISPOSTE:
1. A [AI]

ANALISI:
**1.** La definizione compare a pagina 12 [Pag. 12].
Risposta: B
`

	answers := Parse(raw, []int{1})

	a := answers[1]
	assert.Equal(t, "B", a.Letter)
	assert.Equal(t, SourceCitato, a.Source)
}

func TestParseAnalysisLastAnswerWins(t *testing.T) {
	raw := `ANALISI:
1. A prima vista la Risposta: A sembra corretta.
Rileggendo il testo la Risposta: C è quella giusta. [VERIFICATO]
`

	answers := Parse(raw, []int{1})
	assert.Equal(t, "C", answers[1].Letter)
	assert.Equal(t, SourceVerificato, answers[1].Source)
}

func TestParseFirstSourceWins(t *testing.T) {
	raw := `ANALISI:
1. Il passaggio è citato testualmente. [CITATO]
Risposta: A [AI]
`

	answers := Parse(raw, []int{1})
	assert.Equal(t, "A", answers[1].Letter)
	assert.Equal(t, SourceCitato, answers[1].Source)
}

func TestParseMissingQuestionDefaults(t *testing.T) {
	raw := `RISPOSTE:
1. B [CITATO]
`

	answers := Parse(raw, []int{1, 2})

	assert.Equal(t, "B", answers[1].Letter)
	assert.Equal(t, Answer{Number: 2, Letter: UnknownLetter, Source: SourceAI}, answers[2])
}

func TestParseGarbageReply(t *testing.T) {
	answers := Parse("Mi dispiace, non posso aiutarti con questo.", []int{1, 2})

	for _, n := range []int{1, 2} {
		assert.Equal(t, UnknownLetter, answers[n].Letter)
		assert.Equal(t, SourceAI, answers[n].Source)
	}
}

func TestParseUnknownLetterInStructured(t *testing.T) {
	answers := Parse("RISPOSTE:\n1. ?\n", []int{1})

	assert.Equal(t, UnknownLetter, answers[1].Letter)
	assert.Equal(t, SourceAI, answers[1].Source)
}

func TestParseMarkdownNoise(t *testing.T) {
	raw := `**RISPOSTE**:
1) b [citato]
2) D
`

	answers := Parse(raw, []int{1, 2})

	assert.Equal(t, "B", answers[1].Letter)
	assert.Equal(t, SourceCitato, answers[1].Source)
	assert.Equal(t, "D", answers[2].Letter)
	assert.Equal(t, SourceAI, answers[2].Source)
}
