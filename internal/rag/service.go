// Package rag orchestrates the pipeline: ingestion (clean, chunk, embed,
// store) and grounded question answering (embed, retrieve, assemble,
// generate).
package rag

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"ragchat/backend/internal/fault"
	"ragchat/backend/internal/middleware"
	"ragchat/backend/internal/retry"
	"ragchat/backend/internal/text"
	"ragchat/backend/internal/vectorstore"
)

// InsufficientInfoAnswer is returned without calling the generation
// backend when retrieval finds nothing.
const InsufficientInfoAnswer = "I couldn't find any relevant information to answer your question."

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type VectorIndex interface {
	Upsert(ctx context.Context, namespace string, entries []vectorstore.Entry) (int, error)
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]vectorstore.Match, error)
	Stats(ctx context.Context, namespace string) (vectorstore.Stats, error)
	DeleteBySource(ctx context.Context, namespace, source string) error
}

// Options bound the retrieval and prompting behavior.
type Options struct {
	ChunkSize        int
	ChunkOverlap     int
	TopK             int
	ContextChunks    int
	DefaultNamespace string
	EmbedBatchSize   int
	BackendTimeout   time.Duration
	RetrySchedule    retry.Schedule
}

type Answer struct {
	Text    string
	Sources []vectorstore.Match
}

type IngestResult struct {
	ChunksCreated  int
	PagesProcessed int
}

type Service struct {
	embedder  Embedder
	generator Generator
	index     VectorIndex
	opts      Options
	logger    *QueryLogger

	// Last observed embedding backend outcome, reported by Health.
	embedErr atomic.Value
}

func NewService(e Embedder, g Generator, idx VectorIndex, opts Options, logger *QueryLogger) *Service {
	s := &Service{embedder: e, generator: g, index: idx, opts: opts, logger: logger}
	s.embedErr.Store("")
	return s
}

func (s *Service) namespace(ns string) string {
	if ns == "" {
		return s.opts.DefaultNamespace
	}
	return ns
}

// Ingest runs the write path for one document: clean and chunk every
// page, embed the chunks in order-preserving batches, and persist them
// under the namespace. Returns how many chunks were created.
func (s *Service) Ingest(ctx context.Context, pages []text.Page, source, namespace string) (IngestResult, error) {
	if source == "" {
		return IngestResult{}, fault.Input("source label is required")
	}

	chunks := text.SplitPages(pages, source, s.opts.ChunkSize, s.opts.ChunkOverlap)
	if len(chunks) == 0 {
		return IngestResult{}, fault.Input("document %q contains no usable text", source)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	embedCtx, cancel := context.WithTimeout(ctx, s.backendBudget(len(chunks)))
	defer cancel()
	vectors, err := s.embedder.EmbedBatch(embedCtx, texts)
	s.noteEmbedOutcome(err)
	if err != nil {
		return IngestResult{}, err
	}

	entries := make([]vectorstore.Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = vectorstore.Entry{
			ID:     c.ID,
			Vector: vectors[i],
			Meta: vectorstore.Metadata{
				Text:        c.Text,
				Source:      c.Source,
				PageNumber:  c.PageNumber,
				ChunkIndex:  c.Index,
				TotalChunks: c.Total,
			},
		}
	}

	ns := s.namespace(namespace)
	written, err := s.index.Upsert(ctx, ns, entries)
	if err != nil {
		return IngestResult{ChunksCreated: written}, err
	}

	slog.InfoContext(ctx, "document ingested",
		"source", source, "namespace", ns, "pages", len(pages), "chunks", written)
	return IngestResult{ChunksCreated: written, PagesProcessed: len(pages)}, nil
}

// Query answers a user message grounded in retrieved context. Terminal
// states: an answer, the canned insufficient-information response when
// retrieval is empty, or an error after the retry budget is spent.
func (s *Service) Query(ctx context.Context, message, namespace string) (Answer, error) {
	start := time.Now()
	message = strings.TrimSpace(message)
	if message == "" {
		return Answer{}, fault.Input("message must not be empty")
	}
	ns := s.namespace(namespace)

	// 1. Embed the query. Nothing can be retrieved without a vector, so
	// failure here is fatal for the request.
	embedCtx, cancel := context.WithTimeout(ctx, s.opts.BackendTimeout)
	vector, err := s.embedder.Embed(embedCtx, message)
	cancel()
	s.noteEmbedOutcome(err)
	if err != nil {
		return Answer{}, err
	}

	// 2. Retrieve, under the same backend budget as every other remote call.
	queryCtx, cancel := context.WithTimeout(ctx, s.opts.BackendTimeout)
	matches, err := s.index.Query(queryCtx, ns, vector, s.opts.TopK)
	cancel()
	if err != nil {
		return Answer{}, err
	}

	s.logQuery(ctx, message, ns, len(matches), time.Since(start))

	// 3. No context is a valid terminal state, not an error; the
	// generation backend is never consulted.
	if len(matches) == 0 {
		return Answer{Text: InsufficientInfoAnswer}, nil
	}

	// 4. Assemble context and generate. Ordering is re-affirmed here even
	// though the store gateway already sorts.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	prompt := BuildPrompt(message, matches, s.opts.ContextChunks)

	answer, err := retry.Do(ctx, s.opts.RetrySchedule, func(ctx context.Context) (string, error) {
		genCtx, cancel := context.WithTimeout(ctx, s.opts.BackendTimeout)
		defer cancel()
		return s.generator.Generate(genCtx, prompt)
	})
	if err != nil {
		if fault.IsAuth(err) || fault.IsInput(err) {
			return Answer{}, err
		}
		return Answer{}, fault.Degraded(err)
	}

	return Answer{Text: answer, Sources: matches}, nil
}

// RemoveSource destroys every chunk belonging to a document. This is the
// only way chunks are deleted; they are never updated in place.
func (s *Service) RemoveSource(ctx context.Context, namespace, source string) error {
	return s.index.DeleteBySource(ctx, s.namespace(namespace), source)
}

func (s *Service) Stats(ctx context.Context, namespace string) (vectorstore.Stats, error) {
	return s.index.Stats(ctx, namespace)
}

// ComponentStatus is "ok" or "error" per backend.
type ComponentStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type HealthReport struct {
	Status     string                     `json:"status"`
	Components map[string]ComponentStatus `json:"components"`
}

// Health probes the vector store and reports the last observed embedding
// backend outcome. The embedding backend is not probed live: a probe
// would spend quota, and the last real call is a truthful signal.
func (s *Service) Health(ctx context.Context) HealthReport {
	report := HealthReport{Status: "healthy", Components: map[string]ComponentStatus{}}

	if _, err := s.index.Stats(ctx, ""); err != nil {
		report.Components["vector_store"] = ComponentStatus{Status: "error", Error: err.Error()}
		report.Status = "degraded"
	} else {
		report.Components["vector_store"] = ComponentStatus{Status: "ok"}
	}

	if msg, _ := s.embedErr.Load().(string); msg != "" {
		report.Components["embedding"] = ComponentStatus{Status: "error", Error: msg}
		report.Status = "degraded"
	} else {
		report.Components["embedding"] = ComponentStatus{Status: "ok"}
	}

	return report
}

func (s *Service) noteEmbedOutcome(err error) {
	if err != nil {
		s.embedErr.Store(err.Error())
	} else {
		s.embedErr.Store("")
	}
}

// backendBudget scales the per-call timeout for batch work so large
// documents are not cut off by the single-call budget. One unit of
// budget per embedding batch the gateway will issue.
func (s *Service) backendBudget(items int) time.Duration {
	batchSize := s.opts.EmbedBatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	batches := (items + batchSize - 1) / batchSize
	if batches < 1 {
		batches = 1
	}
	budget := time.Duration(batches) * s.opts.BackendTimeout
	if budget < s.opts.BackendTimeout {
		budget = s.opts.BackendTimeout
	}
	return budget
}

func (s *Service) logQuery(ctx context.Context, query, namespace string, numResults int, elapsed time.Duration) {
	if s.logger == nil {
		return
	}
	s.logger.Log(QueryLogEntry{
		Query:         query,
		Namespace:     namespace,
		NumResults:    numResults,
		Duration:      elapsed,
		CorrelationID: middleware.GetCorrelationID(ctx),
	})
}
