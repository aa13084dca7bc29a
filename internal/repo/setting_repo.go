package repo

import (
	"context"
	"database/sql"
)

// SettingRepo holds user-editable overrides (embedding base URL and similar)
// that take precedence over the config file.
type SettingRepo struct {
	db *sql.DB
}

func NewSettingRepo(db *sql.DB) *SettingRepo {
	return &SettingRepo{db: db}
}

func (r *SettingRepo) Get(ctx context.Context, key string) (string, bool, error) {
	const query = `SELECT value FROM settings WHERE key = $1`
	var value string
	if err := r.db.QueryRowContext(ctx, query, key).Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (r *SettingRepo) Set(ctx context.Context, key, value string, now int64) error {
	const query = `
		INSERT INTO settings (key, value, mtime)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, mtime = EXCLUDED.mtime
	`
	_, err := r.db.ExecContext(ctx, query, key, value, now)
	return err
}

func (r *SettingRepo) List(ctx context.Context) (map[string]string, error) {
	const query = `SELECT key, value FROM settings`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	results := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		results[key] = value
	}
	return results, rows.Err()
}
