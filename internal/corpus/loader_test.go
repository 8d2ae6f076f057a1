package corpus

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizzy-app/backend/pkg/config"
)

// corpusServer serves an in-memory file map under /data/<path>, counting
// requests per path.
type corpusServer struct {
	mu    sync.Mutex
	files map[string][]byte
	hits  map[string]int
}

func newCorpusServer(files map[string]interface{}) (*corpusServer, *httptest.Server) {
	cs := &corpusServer{
		files: make(map[string][]byte),
		hits:  make(map[string]int),
	}
	for path, v := range files {
		data, err := json.Marshal(v)
		if err != nil {
			panic(err)
		}
		cs.files[path] = data
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.mu.Lock()
		cs.hits[r.URL.Path]++
		data, ok := cs.files[r.URL.Path]
		cs.mu.Unlock()

		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}))

	return cs, srv
}

func (cs *corpusServer) hitCount(path string) int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.hits[path]
}

func testConfig(primary, fallback string) config.CorpusConfig {
	return config.CorpusConfig{
		PrimaryBaseURL:  primary,
		FallbackBaseURL: fallback,
		Versions:        []string{"v4", "v3"},
		MaxChunkFiles:   5,
		ChunksPerFile:   2,
		TimeoutSec:      5,
	}
}

func TestLoadFromPrimary(t *testing.T) {
	_, srv := newCorpusServer(map[string]interface{}{
		"/v4/metadata.json": Metadata{Version: "4.0", Source: "economia.pdf", TotalChunks: 3},
		"/v4/chunks_0.json": []Chunk{{ID: 0, Text: "primo", Page: 1}, {ID: 1, Text: "secondo", Page: 2}},
		"/v4/chunks_1.json": []Chunk{{ID: 2, Text: "terzo", Page: 3}},
	})
	defer srv.Close()

	store := NewStore(testConfig(srv.URL, srv.URL+"/missing"))

	c, err := store.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "4.0", c.Version)
	assert.Equal(t, "economia.pdf", c.Metadata.Source)
	require.Len(t, c.Chunks, 3)
	assert.Equal(t, "terzo", c.Chunks[2].Text)
	assert.False(t, c.HasEmbeddings)
}

func TestLoadVersionFallback(t *testing.T) {
	cs, srv := newCorpusServer(map[string]interface{}{
		// Primary v4 and fallback v4 are gone; fallback v3 works.
		"/fb/v3/metadata.json": Metadata{Version: "3.0", TotalChunks: 1},
		"/fb/v3/chunks_0.json": []Chunk{{ID: 0, Text: "vecchia versione", Page: 1}},
	})
	defer srv.Close()

	store := NewStore(testConfig(srv.URL+"/pr", srv.URL+"/fb"))

	c, err := store.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "3.0", c.Version)
	require.Len(t, c.Chunks, 1)

	// Earlier sources in the chain were actually tried.
	assert.Equal(t, 1, cs.hitCount("/pr/v4/metadata.json"))
	assert.Equal(t, 1, cs.hitCount("/fb/v4/metadata.json"))
}

func TestLoadPartialChunkFailure(t *testing.T) {
	// Metadata promises three files but chunks_1.json is missing: the load
	// keeps the other two slices.
	cs, srv := newCorpusServer(map[string]interface{}{
		"/v4/metadata.json": Metadata{Version: "4.0", TotalChunks: 5},
		"/v4/chunks_0.json": []Chunk{{ID: 0, Text: "a"}, {ID: 1, Text: "b"}},
		"/v4/chunks_2.json": []Chunk{{ID: 4, Text: "e"}},
	})
	defer srv.Close()

	store := NewStore(testConfig(srv.URL, srv.URL+"/missing"))

	c, err := store.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, c.Chunks, 3)
	assert.Equal(t, 4, c.Chunks[2].ID)
	assert.Equal(t, 1, cs.hitCount("/v4/chunks_1.json"))
}

func TestLoadFirstChunkFileFailureSkipsSource(t *testing.T) {
	cs, srv := newCorpusServer(map[string]interface{}{
		// Primary has metadata but no chunk files at all.
		"/pr/v4/metadata.json": Metadata{Version: "4.0", TotalChunks: 2},
		"/fb/v4/metadata.json": Metadata{Version: "4.0", TotalChunks: 1},
		"/fb/v4/chunks_0.json": []Chunk{{ID: 0, Text: "dal fallback"}},
	})
	defer srv.Close()

	store := NewStore(testConfig(srv.URL+"/pr", srv.URL+"/fb"))

	c, err := store.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, c.Chunks, 1)
	assert.Equal(t, "dal fallback", c.Chunks[0].Text)
	assert.Equal(t, 1, cs.hitCount("/pr/v4/chunks_0.json"))
}

func TestLoadAttachesEmbeddings(t *testing.T) {
	_, srv := newCorpusServer(map[string]interface{}{
		"/v4/metadata.json": Metadata{Version: "4.0", TotalChunks: 2},
		"/v4/chunks_0.json": []Chunk{{ID: 0, Text: "a"}, {ID: 1, Text: "b"}},
		"/v4/embeddings.json": EmbeddingsFile{
			Version:    "4.0",
			Model:      "text-embedding-3-small",
			Dimensions: 3,
			Chunks: []EmbeddedChunk{
				{ID: 0, Embedding: []float32{1, 0, 0}},
			},
		},
	})
	defer srv.Close()

	store := NewStore(testConfig(srv.URL, srv.URL+"/missing"))

	c, err := store.Load(context.Background())
	require.NoError(t, err)

	assert.True(t, c.HasEmbeddings)
	assert.Equal(t, []float32{1, 0, 0}, c.Chunks[0].Embedding)
	assert.Empty(t, c.Chunks[1].Embedding)
}

func TestLoadAllSourcesFail(t *testing.T) {
	_, srv := newCorpusServer(nil)
	defer srv.Close()

	store := NewStore(testConfig(srv.URL+"/pr", srv.URL+"/fb"))

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Nil(t, store.Cached())
}

func TestLoadCachesResult(t *testing.T) {
	cs, srv := newCorpusServer(map[string]interface{}{
		"/v4/metadata.json": Metadata{Version: "4.0", TotalChunks: 1},
		"/v4/chunks_0.json": []Chunk{{ID: 0, Text: "unico"}},
	})
	defer srv.Close()

	store := NewStore(testConfig(srv.URL, srv.URL+"/missing"))

	first, err := store.Load(context.Background())
	require.NoError(t, err)

	second, err := store.Load(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, cs.hitCount("/v4/metadata.json"))
	assert.Same(t, first, store.Cached())
}

func TestLoadConcurrentSingleFetch(t *testing.T) {
	var metadataHits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload interface{}
		switch r.URL.Path {
		case "/v4/metadata.json":
			metadataHits.Add(1)
			payload = Metadata{Version: "4.0", TotalChunks: 1}
		case "/v4/chunks_0.json":
			payload = []Chunk{{ID: 0, Text: "unico"}}
		default:
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(payload)
	}))
	defer srv.Close()

	store := NewStore(testConfig(srv.URL, srv.URL+"/missing"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := store.Load(context.Background())
			assert.NoError(t, err)
			assert.NotNil(t, c)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), metadataHits.Load())
}

func TestMetadataFileCount(t *testing.T) {
	tests := []struct {
		name     string
		meta     Metadata
		expected int
	}{
		{"stats totalFiles wins", Metadata{Stats: &Stats{TotalFiles: 7}}, 7},
		{"flat totalChunks", Metadata{TotalChunks: 5}, 3},
		{"stats totalChunks", Metadata{Stats: &Stats{TotalChunks: 4}}, 2},
		{"nothing known", Metadata{}, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, metadataFileCount(tt.meta, 2, 10))
		})
	}
}
