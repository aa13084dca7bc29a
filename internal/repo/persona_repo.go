package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/parley-ai/parley/internal/model"
	"github.com/parley-ai/parley/internal/pkg/dbutil"
	appErr "github.com/parley-ai/parley/internal/pkg/errors"
)

type PersonaRepo struct {
	db *sql.DB
}

func NewPersonaRepo(db *sql.DB) *PersonaRepo {
	return &PersonaRepo{db: db}
}

func (r *PersonaRepo) Create(ctx context.Context, persona *model.Persona) error {
	const query = `INSERT INTO personas (name, system_prompt, ctime) VALUES ($1, $2, $3) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, persona.Name, persona.SystemPrompt, persona.Ctime).Scan(&persona.ID)
	if err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *PersonaRepo) Get(ctx context.Context, id int64) (*model.Persona, error) {
	where := map[string]interface{}{"id": id}
	sqlStr, args, err := builder.BuildSelect("personas", where, []string{"id", "name", "system_prompt", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	var item model.Persona
	if err := row.Scan(&item.ID, &item.Name, &item.SystemPrompt, &item.Ctime); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *PersonaRepo) List(ctx context.Context) ([]model.Persona, error) {
	where := map[string]interface{}{"_orderby": "ctime asc"}
	sqlStr, args, err := builder.BuildSelect("personas", where, []string{"id", "name", "system_prompt", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.Persona
	for rows.Next() {
		var item model.Persona
		if err := rows.Scan(&item.ID, &item.Name, &item.SystemPrompt, &item.Ctime); err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	return results, rows.Err()
}

func (r *PersonaRepo) Update(ctx context.Context, id int64, name, systemPrompt string) error {
	sqlStr, args, err := builder.BuildUpdate("personas",
		map[string]interface{}{"id": id},
		map[string]interface{}{"name": name, "system_prompt": systemPrompt},
	)
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

func (r *PersonaRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM personas WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
