package extraction

// OptionKey is one of the four allowed option letters.
type OptionKey string

const (
	OptionA OptionKey = "A"
	OptionB OptionKey = "B"
	OptionC OptionKey = "C"
	OptionD OptionKey = "D"
)

// OptionKeys lists the letters in display order.
var OptionKeys = []OptionKey{OptionA, OptionB, OptionC, OptionD}

// Question is one quiz question read off the uploaded image. Numbers are
// assigned by extraction order, not by any numbering printed in the image.
type Question struct {
	Number  int
	Text    string
	Options map[OptionKey]string
}

// Valid reports whether the parsed block is usable: some question text and
// at least two options.
func (q Question) Valid() bool {
	return q.Text != "" && len(q.Options) >= 2
}

// OptionList returns the present options in letter order.
func (q Question) OptionList() []string {
	var out []string
	for _, key := range OptionKeys {
		if text, ok := q.Options[key]; ok {
			out = append(out, string(key)+": "+text)
		}
	}
	return out
}
