package answer

// Source is the provenance label for an answer: quoted from the course
// text, verified against it, or the model's own knowledge.
type Source string

const (
	SourceCitato     Source = "CITATO"
	SourceVerificato Source = "VERIFICATO"
	SourceAI         Source = "AI"
)

// UnknownLetter marks a question the model never answered.
const UnknownLetter = "?"

// Answer is the reconciled verdict for one question.
type Answer struct {
	Number int    `json:"number"`
	Letter string `json:"letter"`
	Source Source `json:"source"`
}
