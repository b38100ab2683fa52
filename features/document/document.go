package document

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"

	"ragchat/backend/internal/fault"
	"ragchat/backend/internal/rag"
	"ragchat/backend/internal/text"
)

// Document is a registry record for one ingested document. The text
// itself is not stored here; chunks live in the vector store keyed by the
// source label.
type Document struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Namespace   string    `json:"namespace"`
	ContentHash string    `json:"-"`
	PageCount   int       `json:"page_count"`
	ChunkCount  int       `json:"chunk_count"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

const (
	StatusIndexed = "indexed"
	StatusDeleted = "deleted"
)

type Repository interface {
	Save(ctx context.Context, doc *Document) error
	List(ctx context.Context) ([]Document, error)
	Get(ctx context.Context, id string) (*Document, error)
	SoftDelete(ctx context.Context, id string) error
	ExistsByHash(ctx context.Context, namespace, hash string) (bool, error)
	Count(ctx context.Context) (int, error)
}

// Ingestor is the pipeline capability this feature drives.
type Ingestor interface {
	Ingest(ctx context.Context, pages []text.Page, source, namespace string) (rag.IngestResult, error)
	RemoveSource(ctx context.Context, namespace, source string) error
}

type Service struct {
	repo     Repository
	ingestor Ingestor
}

func NewService(repo Repository, ingestor Ingestor) *Service {
	return &Service{repo: repo, ingestor: ingestor}
}

// IngestRequest carries one document. Either Text (non-paged, page 0) or
// Pages must be set.
type IngestRequest struct {
	Source    string
	Namespace string
	Text      string
	Pages     []text.Page
}

func contentHash(pages []text.Page) string {
	var sb strings.Builder
	for _, p := range pages {
		sb.WriteString(p.Text)
	}
	sum := md5.Sum([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

// Ingest runs the pipeline and records the document. Re-ingesting
// identical content into the same namespace is rejected; the caller must
// delete the old document first.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (*Document, error) {
	if strings.TrimSpace(req.Source) == "" {
		return nil, fault.Input("source label is required")
	}

	pages := req.Pages
	if len(pages) == 0 {
		if strings.TrimSpace(req.Text) == "" {
			return nil, fault.Input("document text is empty")
		}
		pages = []text.Page{{Text: req.Text, Number: 0}}
	}

	hash := contentHash(pages)
	exists, err := s.repo.ExistsByHash(ctx, req.Namespace, hash)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fault.Input("document with identical content already ingested")
	}

	result, err := s.ingestor.Ingest(ctx, pages, req.Source, req.Namespace)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Source:      req.Source,
		Namespace:   req.Namespace,
		ContentHash: hash,
		PageCount:   result.PagesProcessed,
		ChunkCount:  result.ChunksCreated,
		Status:      StatusIndexed,
	}
	if err := s.repo.Save(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Service) List(ctx context.Context) ([]Document, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*Document, error) {
	return s.repo.Get(ctx, id)
}

// Delete removes the document's chunks from the vector store, then soft
// deletes the registry record. This is the one chunk-destruction path.
func (s *Service) Delete(ctx context.Context, id string) error {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.ingestor.RemoveSource(ctx, doc.Namespace, doc.Source); err != nil {
		return err
	}
	return s.repo.SoftDelete(ctx, id)
}
