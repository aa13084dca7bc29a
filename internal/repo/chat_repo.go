package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/parley-ai/parley/internal/model"
	"github.com/parley-ai/parley/internal/pkg/dbutil"
	appErr "github.com/parley-ai/parley/internal/pkg/errors"
)

type ChatRepo struct {
	db *sql.DB
}

func NewChatRepo(db *sql.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

const chatColumns = `id, project_id, persona_id, title, system_prompt, summary, summary_up_to_message_id, archived, ctime`

func (r *ChatRepo) Create(ctx context.Context, chat *model.Chat) error {
	const query = `
		INSERT INTO chats (project_id, persona_id, title, system_prompt, ctime)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	return r.db.QueryRowContext(ctx, query,
		chat.ProjectID, chat.PersonaID, chat.Title, chat.SystemPrompt, chat.Ctime,
	).Scan(&chat.ID)
}

// GetWithContext loads the full chat row including the pieces the context
// assembler needs: system prompt, rolling summary and its cutoff marker.
func (r *ChatRepo) GetWithContext(ctx context.Context, id int64) (*model.Chat, error) {
	const query = `SELECT ` + chatColumns + ` FROM chats WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)
	return scanChat(row)
}

func (r *ChatRepo) List(ctx context.Context, projectID *int64, includeArchived bool) ([]model.Chat, error) {
	where := map[string]interface{}{"_orderby": "ctime desc"}
	if projectID != nil {
		where["project_id"] = *projectID
	}
	if !includeArchived {
		where["archived"] = false
	}
	sqlStr, args, err := builder.BuildSelect("chats", where, []string{chatColumns})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.Chat
	for rows.Next() {
		item, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *item)
	}
	return results, rows.Err()
}

func (r *ChatRepo) ListActive(ctx context.Context, limit int) ([]model.Chat, error) {
	const query = `SELECT ` + chatColumns + ` FROM chats WHERE archived = FALSE ORDER BY id ASC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.Chat
	for rows.Next() {
		item, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *item)
	}
	return results, rows.Err()
}

func (r *ChatRepo) Rename(ctx context.Context, id int64, title string) error {
	return r.update(ctx, id, map[string]interface{}{"title": title})
}

func (r *ChatRepo) UpdateSystemPrompt(ctx context.Context, id int64, prompt *string) error {
	return r.update(ctx, id, map[string]interface{}{"system_prompt": prompt})
}

func (r *ChatRepo) UpdatePersona(ctx context.Context, id int64, personaID *int64) error {
	return r.update(ctx, id, map[string]interface{}{"persona_id": personaID})
}

func (r *ChatRepo) SetArchived(ctx context.Context, id int64, archived bool) error {
	return r.update(ctx, id, map[string]interface{}{"archived": archived})
}

// UpdateSummary writes the rolling summary together with its cutoff marker.
// The pair is never half-set.
func (r *ChatRepo) UpdateSummary(ctx context.Context, id int64, summary string, upToMessageID int64) error {
	return r.update(ctx, id, map[string]interface{}{
		"summary":                  summary,
		"summary_up_to_message_id": upToMessageID,
	})
}

func (r *ChatRepo) ClearSummary(ctx context.Context, id int64) error {
	return r.update(ctx, id, map[string]interface{}{
		"summary":                  nil,
		"summary_up_to_message_id": nil,
	})
}

func (r *ChatRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM chats WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *ChatRepo) update(ctx context.Context, id int64, update map[string]interface{}) error {
	sqlStr, args, err := builder.BuildUpdate("chats", map[string]interface{}{"id": id}, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
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

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanChat(row rowScanner) (*model.Chat, error) {
	var item model.Chat
	err := row.Scan(
		&item.ID,
		&item.ProjectID,
		&item.PersonaID,
		&item.Title,
		&item.SystemPrompt,
		&item.Summary,
		&item.SummaryUpToMessageID,
		&item.Archived,
		&item.Ctime,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}
