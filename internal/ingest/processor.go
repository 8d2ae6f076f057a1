package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jdkato/prose/v2"
	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/quizzy-app/backend/internal/corpus"
	"github.com/quizzy-app/backend/internal/llm"
	"github.com/quizzy-app/backend/pkg/logger"
)

// Processor turns course material (PDF or HTML) into the chunk files the
// corpus loader consumes: chunks_<i>.json, metadata.json and optionally
// embeddings.json.
type Processor struct {
	chunkSize     int
	chunkOverlap  int
	chunksPerFile int
	embedder      llm.Embedder
}

type Page struct {
	Number int
	Text   string
}

func NewProcessor(chunkSize, chunkOverlap, chunksPerFile int, embedder llm.Embedder) *Processor {
	if chunkSize == 0 {
		chunkSize = 500
	}
	if chunkOverlap == 0 {
		chunkOverlap = 100
	}
	if chunksPerFile == 0 {
		chunksPerFile = 100
	}
	return &Processor{
		chunkSize:     chunkSize,
		chunkOverlap:  chunkOverlap,
		chunksPerFile: chunksPerFile,
		embedder:      embedder,
	}
}

func (p *Processor) ExtractPDF(path string) ([]Page, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	var pages []Page
	total := reader.NumPage()

	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			logger.Warn("Failed to extract page text",
				zap.String("file", path),
				zap.Int("page", i),
				zap.Error(err),
			)
			continue
		}
		pages = append(pages, Page{Number: i, Text: strings.TrimSpace(text)})
	}

	logger.Info("PDF extracted",
		zap.String("file", path),
		zap.Int("pages", len(pages)),
	)

	return pages, nil
}

// ExtractHTML treats one HTML document as a single page, stripped of
// boilerplate elements.
func (p *Processor) ExtractHTML(content string, pageNumber int) ([]Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	doc.Find("script, style, nav, footer, header, aside").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	text := strings.TrimSpace(doc.Find("body").Text())
	if text == "" {
		return nil, fmt.Errorf("no content extracted from HTML")
	}

	return []Page{{Number: pageNumber, Text: text}}, nil
}

var (
	controlCharsRe = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f-\x9f]`)
	multiSpaceRe   = regexp.MustCompile(`\s+`)
)

func cleanText(text string) string {
	text = controlCharsRe.ReplaceAllString(text, "")
	text = multiSpaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// BuildChunks splits pages into fixed-size overlapping chunks, breaking at
// the last sentence end when one falls in the second half of the window.
func (p *Processor) BuildChunks(pages []Page, sourceName string) []corpus.Chunk {
	var chunks []corpus.Chunk

	for _, page := range pages {
		text := cleanText(page.Text)
		if text == "" {
			continue
		}

		runes := []rune(text)
		start := 0
		for start < len(runes) {
			end := start + p.chunkSize
			if end > len(runes) {
				end = len(runes)
			}
			chunkText := string(runes[start:end])

			if end < len(runes) {
				breakPoint := strings.LastIndex(chunkText, ".")
				if breakPoint > p.chunkSize/2 {
					chunkText = chunkText[:breakPoint+1]
					end = start + len([]rune(chunkText))
				}
			}

			chunkText = strings.TrimSpace(chunkText)
			if chunkText != "" {
				chunks = append(chunks, corpus.Chunk{
					ID:       len(chunks),
					Text:     chunkText,
					Page:     page.Number,
					Keywords: extractKeywords(chunkText, 8),
					Source:   sourceName,
				})
			}

			if end >= len(runes) {
				break
			}
			start = end - p.chunkOverlap
		}
	}

	return chunks
}

var keywordStopWords = map[string]struct{}{
	"della": {}, "delle": {}, "degli": {}, "dello": {}, "nella": {},
	"nelle": {}, "questo": {}, "questa": {}, "sono": {}, "essere": {},
	"viene": {}, "vengono": {}, "anche": {}, "quindi": {}, "come": {},
}

// extractKeywords tokenizes with prose and keeps the first distinct
// content words. POS tags are tuned for English, so filtering is by
// length and stop list rather than tag.
func extractKeywords(text string, max int) []string {
	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var keywords []string

	for _, tok := range doc.Tokens() {
		if len(keywords) >= max {
			break
		}
		word := strings.ToLower(tok.Text)
		if len([]rune(word)) < 5 {
			continue
		}
		if _, stop := keywordStopWords[word]; stop {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
	}

	return keywords
}

// WriteChunks writes chunks_<i>.json files plus metadata.json in the
// layout version the loader probes first.
func (p *Processor) WriteChunks(outDir string, chunks []corpus.Chunk, pages []Page, sourceName string) error {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	old, _ := filepath.Glob(filepath.Join(outDir, "chunks_*.json"))
	for _, path := range old {
		os.Remove(path)
	}

	numFiles := (len(chunks) + p.chunksPerFile - 1) / p.chunksPerFile
	for i := 0; i < numFiles; i++ {
		start := i * p.chunksPerFile
		end := start + p.chunksPerFile
		if end > len(chunks) {
			end = len(chunks)
		}

		if err := writeJSON(filepath.Join(outDir, fmt.Sprintf("chunks_%d.json", i)), chunks[start:end]); err != nil {
			return err
		}
	}

	meta := corpus.Metadata{
		Version:      "4.0",
		Source:       sourceName,
		ProcessedAt:  time.Now().Format(time.RFC3339),
		TotalChunks:  len(chunks),
		TotalPages:   len(pages),
		ChunkSize:    p.chunkSize,
		ChunkOverlap: p.chunkOverlap,
		Stats: &corpus.Stats{
			TotalFiles:  numFiles,
			TotalChunks: len(chunks),
		},
	}
	if err := writeJSON(filepath.Join(outDir, "metadata.json"), meta); err != nil {
		return err
	}

	logger.Info("Chunk files written",
		zap.String("dir", outDir),
		zap.Int("chunks", len(chunks)),
		zap.Int("files", numFiles),
	)

	return nil
}

// WriteEmbeddings embeds every chunk in batches and writes embeddings.json
// next to the chunk files.
func (p *Processor) WriteEmbeddings(ctx context.Context, outDir string, chunks []corpus.Chunk, model string, dimensions int) error {
	if p.embedder == nil {
		return fmt.Errorf("no embedder configured")
	}

	file := corpus.EmbeddingsFile{
		Version:    "4.0",
		Model:      model,
		Dimensions: dimensions,
	}

	batchSize := 100
	for i := 0; i < len(chunks); i += batchSize {
		end := i + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[i:end]

		texts := make([]string, 0, len(batch))
		for _, c := range batch {
			texts = append(texts, c.Text)
		}

		vectors, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed batch at %d: %w", i, err)
		}

		for j, c := range batch {
			file.Chunks = append(file.Chunks, corpus.EmbeddedChunk{
				ID:        c.ID,
				Page:      c.Page,
				Keywords:  c.Keywords,
				Embedding: vectors[j],
			})
		}

		logger.Info("Embedded batch",
			zap.Int("done", end),
			zap.Int("total", len(chunks)),
		)
	}

	return writeJSON(filepath.Join(outDir, "embeddings.json"), file)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
