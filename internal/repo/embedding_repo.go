package repo

import (
	"context"
	"database/sql"

	"github.com/pgvector/pgvector-go"

	"github.com/parley-ai/parley/internal/model"
)

// EmbeddingRepo stores per-message embedding records. Rows ride on the
// cascade delete of their message, so removing a message removes its vector.
type EmbeddingRepo struct {
	db *sql.DB
}

func NewEmbeddingRepo(db *sql.DB) *EmbeddingRepo {
	return &EmbeddingRepo{db: db}
}

const embeddingColumns = `message_id, chat_id, project_id, content, embedding, ctime`

func (r *EmbeddingRepo) Save(ctx context.Context, emb *model.MessageEmbedding) error {
	const query = `
		INSERT INTO message_embeddings (message_id, chat_id, project_id, content, embedding, ctime)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (message_id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			ctime = EXCLUDED.ctime
	`
	_, err := r.db.ExecContext(ctx, query,
		emb.MessageID,
		emb.ChatID,
		emb.ProjectID,
		emb.Content,
		pgvector.NewVector(emb.Embedding),
		emb.Ctime,
	)
	return err
}

func (r *EmbeddingRepo) ListByChat(ctx context.Context, chatID int64) ([]model.MessageEmbedding, error) {
	const query = `SELECT ` + embeddingColumns + ` FROM message_embeddings WHERE chat_id = $1 ORDER BY message_id ASC`
	return r.list(ctx, query, chatID)
}

func (r *EmbeddingRepo) ListByProject(ctx context.Context, projectID int64) ([]model.MessageEmbedding, error) {
	const query = `SELECT ` + embeddingColumns + ` FROM message_embeddings WHERE project_id = $1 ORDER BY message_id ASC`
	return r.list(ctx, query, projectID)
}

func (r *EmbeddingRepo) list(ctx context.Context, query string, args ...interface{}) ([]model.MessageEmbedding, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.MessageEmbedding
	for rows.Next() {
		var item model.MessageEmbedding
		var embedding pgvector.Vector
		if err := rows.Scan(&item.MessageID, &item.ChatID, &item.ProjectID, &item.Content, &embedding, &item.Ctime); err != nil {
			return nil, err
		}
		item.Embedding = embedding.Slice()
		results = append(results, item)
	}
	return results, rows.Err()
}
