package repo

import (
	"context"
	"database/sql"

	"github.com/pgvector/pgvector-go"

	"github.com/parley-ai/parley/internal/model"
)

type ChunkRepo struct {
	db *sql.DB
}

func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// SaveBatch inserts all chunks of a document in one transaction and fills in
// their generated ids. Chunks arrive with embeddings unset; vectors are
// attached afterwards one by one.
func (r *ChunkRepo) SaveBatch(ctx context.Context, chunks []*model.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	const query = `
		INSERT INTO document_chunks (document_id, project_id, chunk_index, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	for _, chunk := range chunks {
		if err := tx.QueryRowContext(ctx, query,
			chunk.DocumentID, chunk.ProjectID, chunk.ChunkIndex, chunk.Content,
		).Scan(&chunk.ID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *ChunkRepo) UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error {
	const query = `UPDATE document_chunks SET embedding = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, pgvector.NewVector(embedding), id)
	return err
}

// ListEmbeddedByProject returns all chunks of the project that already carry
// a vector, for similarity scanning.
func (r *ChunkRepo) ListEmbeddedByProject(ctx context.Context, projectID int64) ([]model.DocumentChunk, error) {
	const query = `
		SELECT id, document_id, project_id, chunk_index, content, embedding
		FROM document_chunks
		WHERE project_id = $1 AND embedding IS NOT NULL
		ORDER BY document_id ASC, chunk_index ASC
	`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.DocumentChunk
	for rows.Next() {
		var item model.DocumentChunk
		var embedding pgvector.Vector
		if err := rows.Scan(&item.ID, &item.DocumentID, &item.ProjectID, &item.ChunkIndex, &item.Content, &embedding); err != nil {
			return nil, err
		}
		item.Embedding = embedding.Slice()
		results = append(results, item)
	}
	return results, rows.Err()
}

// ListMissingEmbedding finds chunks whose embedding call failed during
// ingestion, so the backfill job can retry them.
func (r *ChunkRepo) ListMissingEmbedding(ctx context.Context, limit int) ([]model.DocumentChunk, error) {
	const query = `
		SELECT id, document_id, project_id, chunk_index, content
		FROM document_chunks
		WHERE embedding IS NULL
		ORDER BY id ASC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.DocumentChunk
	for rows.Next() {
		var item model.DocumentChunk
		if err := rows.Scan(&item.ID, &item.DocumentID, &item.ProjectID, &item.ChunkIndex, &item.Content); err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	return results, rows.Err()
}
