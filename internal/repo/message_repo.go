package repo

import (
	"context"
	"database/sql"

	"github.com/parley-ai/parley/internal/model"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

func (r *MessageRepo) Create(ctx context.Context, msg *model.Message) error {
	const query = `INSERT INTO messages (chat_id, role, content, ctime) VALUES ($1, $2, $3, $4) RETURNING id`
	return r.db.QueryRowContext(ctx, query, msg.ChatID, msg.Role, msg.Content, msg.Ctime).Scan(&msg.ID)
}

// ListByChat returns all messages ordered by id, the implicit ordering key.
func (r *MessageRepo) ListByChat(ctx context.Context, chatID int64) ([]model.Message, error) {
	const query = `SELECT id, chat_id, role, content, ctime FROM messages WHERE chat_id = $1 ORDER BY id ASC`
	return r.list(ctx, query, chatID)
}

// ListAfter returns messages strictly newer than afterID. A zero afterID
// returns everything.
func (r *MessageRepo) ListAfter(ctx context.Context, chatID, afterID int64) ([]model.Message, error) {
	const query = `SELECT id, chat_id, role, content, ctime FROM messages WHERE chat_id = $1 AND id > $2 ORDER BY id ASC`
	return r.list(ctx, query, chatID, afterID)
}

func (r *MessageRepo) CountAfter(ctx context.Context, chatID, afterID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM messages WHERE chat_id = $1 AND id > $2`
	var count int
	if err := r.db.QueryRowContext(ctx, query, chatID, afterID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *MessageRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM messages WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// ListWithoutEmbedding finds messages that have no embedding record yet, for
// the backfill job.
func (r *MessageRepo) ListWithoutEmbedding(ctx context.Context, limit int) ([]model.Message, error) {
	const query = `
		SELECT m.id, m.chat_id, m.role, m.content, m.ctime
		FROM messages m
		LEFT JOIN message_embeddings e ON m.id = e.message_id
		WHERE e.message_id IS NULL
		ORDER BY m.id ASC
		LIMIT $1
	`
	return r.list(ctx, query, limit)
}

func (r *MessageRepo) list(ctx context.Context, query string, args ...interface{}) ([]model.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.Message
	for rows.Next() {
		var item model.Message
		if err := rows.Scan(&item.ID, &item.ChatID, &item.Role, &item.Content, &item.Ctime); err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	return results, rows.Err()
}
