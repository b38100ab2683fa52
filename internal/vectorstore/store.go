// Package vectorstore defines the storage contract for embedded chunks
// and the gateway that batches, retries, and guards index creation in
// front of any concrete backend.
package vectorstore

import "context"

// Entry is one embedded chunk ready for persistence.
type Entry struct {
	ID     string
	Vector []float32
	Meta   Metadata
}

// Metadata is the fixed-shape payload stored next to a vector. No open
// key-value maps: the shape is checked at compile time.
type Metadata struct {
	Text        string
	Source      string
	PageNumber  int
	ChunkIndex  int
	TotalChunks int
}

// Match is a retrieved chunk. Score is always higher-is-better cosine
// similarity regardless of backend; adapters that report distance must
// convert.
type Match struct {
	ChunkID    string
	Text       string
	Source     string
	PageNumber int
	Score      float32
}

// Stats describes the index without side effects.
type Stats struct {
	VectorCount int
	Dimension   int
	Namespaces  map[string]int
}

// Store is the backend capability the gateway wraps. EnsureIndex must be
// idempotent; Query returns matches in descending score order.
type Store interface {
	EnsureIndex(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, namespace string, entries []Entry) (int, error)
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Match, error)
	Stats(ctx context.Context, namespace string) (Stats, error)
	DeleteBySource(ctx context.Context, namespace, source string) error
}
