package domain

import "time"

// Namespace is a handle to the isolated vector partition of one document.
// A handle is only issued once ingestion has completed, so holders never
// observe a partially written namespace.
type Namespace struct {
	// ID is the namespace key. It equals the document ID.
	ID string

	// DocumentID is the document the namespace belongs to.
	DocumentID string

	// OwnerID is the user that owns the document.
	OwnerID string

	// ChunkCount is the number of vectors written during ingestion.
	ChunkCount int

	// Dimensions is the embedding vector size.
	Dimensions int

	// EmbeddingModel is the model the vectors were produced with.
	EmbeddingModel string

	// CompletedAt is when ingestion finished.
	CompletedAt time.Time
}

// VectorRecord is one embedded chunk stored inside a namespace.
type VectorRecord struct {
	// ID is opaque to the store. Upserting the same ID twice overwrites.
	ID string

	// Vector is the embedding.
	Vector []float32

	// Text is the original chunk text.
	Text string

	// Position is the chunk's order within its document.
	Position int

	// Metadata holds extra attributes such as the source document ID.
	Metadata map[string]any
}

// ScoredPassage is a query hit returned by a namespace store.
type ScoredPassage struct {
	// ID is the matched record ID.
	ID string

	// Text is the passage text.
	Text string

	// Score is the similarity to the query (cosine, higher is closer).
	Score float64

	// Position is the chunk position when the store recorded it, else -1.
	Position int
}

// IndexStatus is the lifecycle state of a document's ingestion.
type IndexStatus string

// Ingestion states.
const (
	// IndexStatusPending means ingestion has never started.
	IndexStatusPending IndexStatus = "pending"

	// IndexStatusIndexing means an ingestion is in progress.
	IndexStatusIndexing IndexStatus = "indexing"

	// IndexStatusComplete means every chunk of the document is stored.
	IndexStatusComplete IndexStatus = "complete"

	// IndexStatusFailed means the last ingestion attempt failed.
	IndexStatusFailed IndexStatus = "failed"
)

// IsValid returns true if the status is recognised.
func (s IndexStatus) IsValid() bool {
	switch s {
	case IndexStatusPending, IndexStatusIndexing, IndexStatusComplete, IndexStatusFailed:
		return true
	default:
		return false
	}
}

// IndexState is the completion marker stored alongside a namespace.
// Readers treat a namespace as usable only when Status is complete.
type IndexState struct {
	DocumentID     string
	Status         IndexStatus
	ChunkCount     int
	Dimensions     int
	EmbeddingModel string
	StartedAt      time.Time
	CompletedAt    time.Time
	Error          string
}

// IsComplete reports whether ingestion finished.
func (s *IndexState) IsComplete() bool {
	return s != nil && s.Status == IndexStatusComplete
}

// IndexResult is the presentation-facing outcome of an index request.
type IndexResult struct {
	Completed bool   `json:"completed"`
	ErrorText string `json:"error,omitempty"`
}
