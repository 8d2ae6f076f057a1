package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/quizzy-app/backend/internal/ingest"
	"github.com/quizzy-app/backend/internal/llm"
	"github.com/quizzy-app/backend/pkg/config"
	appLogger "github.com/quizzy-app/backend/pkg/logger"
)

// Offline preprocessor: turns a course PDF (or HTML page) into the chunk
// files the API serves retrieval from. Run once per corpus revision and
// publish the output directory as v<N>.
func main() {
	input := flag.String("input", "", "path to the source PDF or HTML file")
	outDir := flag.String("out", "data/processed/v4", "output directory for chunk files")
	source := flag.String("source", "", "source name recorded in metadata (defaults to the input filename)")
	embed := flag.Bool("embed", false, "also generate embeddings.json (requires OPENAI_API_KEY)")
	chunkSize := flag.Int("chunk-size", 500, "chunk size in characters")
	overlap := flag.Int("overlap", 100, "overlap between consecutive chunks")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "usage: ingest -input course.pdf [-out dir] [-embed]")
		os.Exit(1)
	}

	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := appLogger.Init(cfg.Logging.Level, "console", "stdout"); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	sourceName := *source
	if sourceName == "" {
		sourceName = filepath.Base(*input)
	}

	var embedder llm.Embedder
	if *embed {
		if cfg.Embedding.APIKey == "" {
			appLogger.Fatal("OPENAI_API_KEY is required with -embed")
		}
		embedder = llm.NewOpenAIEmbedder(cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.Dimensions)
	}

	processor := ingest.NewProcessor(*chunkSize, *overlap, cfg.Corpus.ChunksPerFile, embedder)

	var pages []ingest.Page
	switch strings.ToLower(filepath.Ext(*input)) {
	case ".pdf":
		pages, err = processor.ExtractPDF(*input)
	case ".html", ".htm":
		var raw []byte
		raw, err = os.ReadFile(*input)
		if err == nil {
			pages, err = processor.ExtractHTML(string(raw), 1)
		}
	default:
		appLogger.Fatal("Unsupported input format", zap.String("file", *input))
	}
	if err != nil {
		appLogger.Fatal("Extraction failed", zap.Error(err))
	}
	if len(pages) == 0 {
		appLogger.Fatal("No pages extracted", zap.String("file", *input))
	}

	chunks := processor.BuildChunks(pages, sourceName)
	if len(chunks) == 0 {
		appLogger.Fatal("No chunks produced")
	}

	if err := processor.WriteChunks(*outDir, chunks, pages, sourceName); err != nil {
		appLogger.Fatal("Failed to write chunk files", zap.Error(err))
	}

	if *embed {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
		defer cancel()

		if err := processor.WriteEmbeddings(ctx, *outDir, chunks, cfg.Embedding.Model, cfg.Embedding.Dimensions); err != nil {
			appLogger.Fatal("Failed to write embeddings", zap.Error(err))
		}
	}

	appLogger.Info("Ingest complete",
		zap.String("out", *outDir),
		zap.Int("pages", len(pages)),
		zap.Int("chunks", len(chunks)),
		zap.Bool("embeddings", *embed),
	)
}
