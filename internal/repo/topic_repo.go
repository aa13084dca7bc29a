package repo

import (
	"context"
	"database/sql"

	"github.com/parley-ai/parley/internal/model"
)

type TopicRepo struct {
	db *sql.DB
}

func NewTopicRepo(db *sql.DB) *TopicRepo {
	return &TopicRepo{db: db}
}

func (r *TopicRepo) SaveBatch(ctx context.Context, chatID int64, topics []model.ChatTopic) error {
	if len(topics) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	const query = `
		INSERT INTO chat_topics (chat_id, topic, confidence)
		VALUES ($1, $2, $3)
		ON CONFLICT (chat_id, topic) DO UPDATE SET confidence = EXCLUDED.confidence
	`
	for _, topic := range topics {
		if _, err := tx.ExecContext(ctx, query, chatID, topic.Topic, topic.Confidence); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *TopicRepo) ListByChat(ctx context.Context, chatID int64) ([]model.ChatTopic, error) {
	const query = `SELECT chat_id, topic, confidence FROM chat_topics WHERE chat_id = $1 ORDER BY confidence DESC`
	rows, err := r.db.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.ChatTopic
	for rows.Next() {
		var item model.ChatTopic
		if err := rows.Scan(&item.ChatID, &item.Topic, &item.Confidence); err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	return results, rows.Err()
}
