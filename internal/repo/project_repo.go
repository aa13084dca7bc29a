package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/parley-ai/parley/internal/model"
	"github.com/parley-ai/parley/internal/pkg/dbutil"
	appErr "github.com/parley-ai/parley/internal/pkg/errors"
)

type ProjectRepo struct {
	db *sql.DB
}

func NewProjectRepo(db *sql.DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

func (r *ProjectRepo) Create(ctx context.Context, project *model.Project) error {
	const query = `INSERT INTO projects (name, icon, ctime) VALUES ($1, $2, $3) RETURNING id`
	return r.db.QueryRowContext(ctx, query, project.Name, project.Icon, project.Ctime).Scan(&project.ID)
}

func (r *ProjectRepo) Get(ctx context.Context, id int64) (*model.Project, error) {
	where := map[string]interface{}{"id": id}
	sqlStr, args, err := builder.BuildSelect("projects", where, []string{"id", "name", "icon", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	var item model.Project
	if err := row.Scan(&item.ID, &item.Name, &item.Icon, &item.Ctime); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *ProjectRepo) List(ctx context.Context) ([]model.Project, error) {
	where := map[string]interface{}{"_orderby": "ctime desc"}
	sqlStr, args, err := builder.BuildSelect("projects", where, []string{"id", "name", "icon", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.Project
	for rows.Next() {
		var item model.Project
		if err := rows.Scan(&item.ID, &item.Name, &item.Icon, &item.Ctime); err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	return results, rows.Err()
}

func (r *ProjectRepo) Rename(ctx context.Context, id int64, name string) error {
	sqlStr, args, err := builder.BuildUpdate("projects",
		map[string]interface{}{"id": id},
		map[string]interface{}{"name": name},
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

// Delete cascades to chats, messages, documents and their embeddings via the
// schema's foreign keys.
func (r *ProjectRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM projects WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
