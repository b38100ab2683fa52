package document

import (
	"context"
	"database/sql"
	"errors"

	"ragchat/backend/internal/fault"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Save(ctx context.Context, doc *Document) error {
	query := `INSERT INTO documents (source, namespace, content_hash, page_count, chunk_count, status)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, query,
		doc.Source, doc.Namespace, doc.ContentHash, doc.PageCount, doc.ChunkCount, doc.Status).
		Scan(&doc.ID, &doc.CreatedAt)
}

func (r *PostgresRepo) List(ctx context.Context) ([]Document, error) {
	query := `SELECT id, source, namespace, content_hash, page_count, chunk_count, status, created_at
		FROM documents WHERE deleted_at IS NULL ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Source, &d.Namespace, &d.ContentHash,
			&d.PageCount, &d.ChunkCount, &d.Status, &d.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Document, error) {
	d := &Document{}
	query := `SELECT id, source, namespace, content_hash, page_count, chunk_count, status, created_at
		FROM documents WHERE id = $1 AND deleted_at IS NULL`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&d.ID, &d.Source, &d.Namespace,
		&d.ContentHash, &d.PageCount, &d.ChunkCount, &d.Status, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fault.NotFound("document %s", id)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *PostgresRepo) SoftDelete(ctx context.Context, id string) error {
	query := `UPDATE documents SET status = $1, deleted_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, StatusDeleted, id)
	return err
}

func (r *PostgresRepo) ExistsByHash(ctx context.Context, namespace, hash string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM documents WHERE namespace = $1 AND content_hash = $2 AND deleted_at IS NULL)`
	if err := r.db.QueryRowContext(ctx, query, namespace, hash).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM documents WHERE deleted_at IS NULL`
	if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
