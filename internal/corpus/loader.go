package corpus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/quizzy-app/backend/internal/metrics"
	"github.com/quizzy-app/backend/pkg/config"
	"github.com/quizzy-app/backend/pkg/logger"
)

// ErrUnavailable means every source in the fallback chain yielded zero
// chunks. Single-file failures never surface as this.
var ErrUnavailable = errors.New("corpus unavailable from all sources")

// Store loads the preprocessed corpus and caches it for the process
// lifetime. Concurrent first loads are collapsed through singleflight so a
// burst of requests triggers one fetch.
type Store struct {
	cfg        config.CorpusConfig
	httpClient *http.Client
	group      singleflight.Group

	mu     sync.RWMutex
	corpus *Corpus
}

// source is one location to try, in order. Probe sources have no
// metadata.json and are walked file by file up to a bounded count.
type source struct {
	name  string
	base  string
	probe bool
}

func NewStore(cfg config.CorpusConfig) *Store {
	return &Store{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSec) * time.Second,
		},
	}
}

// Cached returns the corpus if a previous Load populated it, else nil.
func (s *Store) Cached() *Corpus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.corpus
}

func (s *Store) Load(ctx context.Context) (*Corpus, error) {
	if c := s.Cached(); c != nil {
		return c, nil
	}

	v, err, _ := s.group.Do("corpus", func() (interface{}, error) {
		if c := s.Cached(); c != nil {
			return c, nil
		}

		c := s.loadSources(ctx)
		if c == nil {
			return nil, ErrUnavailable
		}

		s.mu.Lock()
		s.corpus = c
		s.mu.Unlock()

		return c, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*Corpus), nil
}

func (s *Store) sources() []source {
	versions := s.cfg.Versions
	if len(versions) == 0 {
		versions = []string{"v4"}
	}

	list := []source{
		{name: "primary-" + versions[0], base: s.cfg.PrimaryBaseURL + "/" + versions[0]},
	}
	for _, v := range versions {
		list = append(list, source{name: "fallback-" + v, base: s.cfg.FallbackBaseURL + "/" + v})
	}
	list = append(list, source{name: "default", base: s.cfg.PrimaryBaseURL, probe: true})

	return list
}

// loadSources tries each source in order until one yields chunks.
func (s *Store) loadSources(ctx context.Context) *Corpus {
	for _, src := range s.sources() {
		c, err := s.loadFrom(ctx, src)
		if err != nil {
			logger.Warn("Corpus source failed",
				zap.String("source", src.name),
				zap.Error(err),
			)
			continue
		}
		if len(c.Chunks) == 0 {
			logger.Warn("Corpus source empty", zap.String("source", src.name))
			continue
		}

		s.loadEmbeddings(ctx, src.base, c)
		metrics.CorpusChunks.Set(float64(len(c.Chunks)))

		logger.Info("Corpus loaded",
			zap.String("source", src.name),
			zap.String("version", c.Version),
			zap.Int("chunks", len(c.Chunks)),
			zap.Bool("embeddings", c.HasEmbeddings),
		)
		return c
	}

	return nil
}

func (s *Store) loadFrom(ctx context.Context, src source) (*Corpus, error) {
	c := &Corpus{}
	fileCount := s.cfg.MaxChunkFiles

	if !src.probe {
		var meta Metadata
		if err := s.fetchJSON(ctx, src.base+"/metadata.json", &meta); err != nil {
			return nil, fmt.Errorf("metadata: %w", err)
		}
		c.Metadata = meta
		c.Version = meta.Version
		fileCount = metadataFileCount(meta, s.cfg.ChunksPerFile, s.cfg.MaxChunkFiles)
	}

	for i := 0; i < fileCount; i++ {
		var chunks []Chunk
		err := s.fetchJSON(ctx, fmt.Sprintf("%s/chunks_%d.json", src.base, i), &chunks)
		if err != nil {
			// The first file failing means there is nothing here; a later
			// file failing loses only that slice of the corpus.
			if i == 0 {
				return nil, fmt.Errorf("chunk file 0: %w", err)
			}
			logger.Warn("Skipping chunk file",
				zap.String("source", src.name),
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		c.Chunks = append(c.Chunks, chunks...)
	}

	return c, nil
}

// loadEmbeddings attaches precomputed vectors when an embeddings.json sits
// next to the chunk files. Absence just downgrades retrieval to lexical.
func (s *Store) loadEmbeddings(ctx context.Context, base string, c *Corpus) {
	var file EmbeddingsFile
	if err := s.fetchJSON(ctx, base+"/embeddings.json", &file); err != nil {
		logger.Debug("No embeddings file", zap.Error(err))
		return
	}
	if len(file.Chunks) == 0 {
		return
	}

	byID := make(map[int][]float32, len(file.Chunks))
	for _, ec := range file.Chunks {
		if len(ec.Embedding) > 0 {
			byID[ec.ID] = ec.Embedding
		}
	}

	attached := 0
	for i := range c.Chunks {
		if vec, ok := byID[c.Chunks[i].ID]; ok {
			c.Chunks[i].Embedding = vec
			attached++
		}
	}

	c.HasEmbeddings = attached > 0

	logger.Info("Embeddings attached",
		zap.String("model", file.Model),
		zap.Int("dimensions", file.Dimensions),
		zap.Int("attached", attached),
	)
}

func (s *Store) fetchJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func metadataFileCount(meta Metadata, chunksPerFile, maxFiles int) int {
	if meta.Stats != nil && meta.Stats.TotalFiles > 0 {
		return meta.Stats.TotalFiles
	}

	total := meta.TotalChunks
	if total == 0 && meta.Stats != nil {
		total = meta.Stats.TotalChunks
	}
	if total > 0 && chunksPerFile > 0 {
		return (total + chunksPerFile - 1) / chunksPerFile
	}

	return maxFiles
}
