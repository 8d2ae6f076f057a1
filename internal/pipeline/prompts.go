package pipeline

import (
	"fmt"
	"strings"

	"github.com/quizzy-app/backend/internal/extraction"
	"github.com/quizzy-app/backend/internal/search"
)

const extractionPrompt = `Leggi l'immagine e trascrivi TUTTE le domande del quiz che contiene.
Rispondi SOLO nel seguente formato, un blocco per domanda:

TESTO: <testo completo della domanda>
A: <opzione A>
B: <opzione B>
C: <opzione C>
D: <opzione D>
---

Se una domanda ha solo tre opzioni, ometti la riga D. Non aggiungere commenti o altro testo.`

const groundingInstructions = `Sei un assistente che risponde a domande di un quiz universitario.
Per ogni domanda ti fornisco, quando disponibili, estratti del materiale del corso con il numero di pagina.

Regole:
- Se la risposta è presente negli estratti, usa il tag [CITATO] e cita la pagina con [Pag. N].
- Se gli estratti confermano la risposta senza contenerla testualmente, usa [VERIFICATO].
- Se devi rispondere con le tue conoscenze perché gli estratti non bastano, usa [AI].

Rispondi ESATTAMENTE in questo formato:

RISPOSTE:
1. A [CITATO]
2. C [AI]
...

ANALISI:
**1.** <breve spiegazione> [Pag. N]
Risposta: A
**2.** <breve spiegazione>
Risposta: C
...`

// buildGroundingPrompt renders the questions (in the canonical block
// layout) and their retrieved context into the answering prompt.
func buildGroundingPrompt(results []search.Result) string {
	var b strings.Builder

	b.WriteString(groundingInstructions)
	b.WriteString("\n\nDOMANDE:\n\n")

	for _, res := range results {
		b.WriteString(extraction.Format([]extraction.Question{res.Question}))

		if len(res.Matches) == 0 {
			b.WriteString("CONTESTO: nessun estratto rilevante trovato.\n\n")
			continue
		}

		b.WriteString("CONTESTO:\n")
		for _, m := range res.Matches {
			fmt.Fprintf(&b, "[Pag. %d] %s\n", m.Page, m.Chunk.Text)
		}
		b.WriteString("\n")
	}

	return b.String()
}
