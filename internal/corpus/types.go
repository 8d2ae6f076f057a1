package corpus

// Chunk is the unit of retrieval: a slice of the course document with page
// attribution, produced offline by the ingest tool.
type Chunk struct {
	ID        int       `json:"id"`
	Text      string    `json:"text"`
	Page      int       `json:"page"`
	Pages     []int     `json:"pages,omitempty"`
	Keywords  []string  `json:"keywords,omitempty"`
	Source    string    `json:"source,omitempty"`
	Embedding []float32 `json:"embedding,omitempty"`
}

type Stats struct {
	TotalFiles  int `json:"totalFiles,omitempty"`
	TotalChunks int `json:"totalChunks,omitempty"`
}

// Metadata mirrors metadata.json. Older layout versions carried the counts
// flat, newer ones nest them under stats, so both shapes are kept.
type Metadata struct {
	Version      string `json:"version"`
	Source       string `json:"source,omitempty"`
	CourseName   string `json:"courseName,omitempty"`
	ProcessedAt  string `json:"processedAt,omitempty"`
	TotalChunks  int    `json:"totalChunks,omitempty"`
	TotalPages   int    `json:"totalPages,omitempty"`
	ChunkSize    int    `json:"chunkSize,omitempty"`
	ChunkOverlap int    `json:"chunkOverlap,omitempty"`
	Stats        *Stats `json:"stats,omitempty"`
}

// EmbeddingsFile mirrors embeddings.json.
type EmbeddingsFile struct {
	Version    string          `json:"version"`
	Model      string          `json:"model"`
	Dimensions int             `json:"dimensions"`
	Chunks     []EmbeddedChunk `json:"chunks"`
}

type EmbeddedChunk struct {
	ID        int       `json:"id"`
	Text      string    `json:"text,omitempty"`
	Page      int       `json:"page,omitempty"`
	Pages     []int     `json:"pages,omitempty"`
	Keywords  []string  `json:"keywords,omitempty"`
	Embedding []float32 `json:"embedding"`
}

// Corpus is the full chunk set plus metadata for one course document.
type Corpus struct {
	Metadata      Metadata
	Chunks        []Chunk
	Version       string
	HasEmbeddings bool
}
