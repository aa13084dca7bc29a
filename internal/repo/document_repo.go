package repo

import (
	"context"
	"database/sql"

	"github.com/parley-ai/parley/internal/model"
	appErr "github.com/parley-ai/parley/internal/pkg/errors"
)

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

const documentColumns = `id, project_id, filename, mime_type, file_size, char_count, status, error_message, chunk_count, ctime`

func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	const query = `
		INSERT INTO documents (project_id, filename, mime_type, file_size, char_count, status, ctime)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	return r.db.QueryRowContext(ctx, query,
		doc.ProjectID, doc.Filename, doc.MimeType, doc.FileSize, doc.CharCount, doc.Status, doc.Ctime,
	).Scan(&doc.ID)
}

func (r *DocumentRepo) Get(ctx context.Context, id int64) (*model.Document, error) {
	const query = `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)
	var item model.Document
	err := row.Scan(&item.ID, &item.ProjectID, &item.Filename, &item.MimeType, &item.FileSize,
		&item.CharCount, &item.Status, &item.ErrorMessage, &item.ChunkCount, &item.Ctime)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *DocumentRepo) ListByProject(ctx context.Context, projectID int64) ([]model.Document, error) {
	const query = `SELECT ` + documentColumns + ` FROM documents WHERE project_id = $1 ORDER BY ctime DESC`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.Document
	for rows.Next() {
		var item model.Document
		if err := rows.Scan(&item.ID, &item.ProjectID, &item.Filename, &item.MimeType, &item.FileSize,
			&item.CharCount, &item.Status, &item.ErrorMessage, &item.ChunkCount, &item.Ctime); err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	return results, rows.Err()
}

// MarkReady finalizes a successful ingestion with the persisted chunk count.
func (r *DocumentRepo) MarkReady(ctx context.Context, id int64, chunkCount int) error {
	const query = `UPDATE documents SET status = $1, chunk_count = $2, error_message = '' WHERE id = $3`
	return r.exec(ctx, query, model.DocumentStatusReady, chunkCount, id)
}

// MarkError finalizes a failed ingestion with the failure reason.
func (r *DocumentRepo) MarkError(ctx context.Context, id int64, message string) error {
	const query = `UPDATE documents SET status = $1, error_message = $2 WHERE id = $3`
	return r.exec(ctx, query, model.DocumentStatusError, message, id)
}

func (r *DocumentRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM documents WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *DocumentRepo) exec(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}
