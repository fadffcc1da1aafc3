package presets

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const schema = `
CREATE TABLE IF NOT EXISTS presets (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	format     TEXT NOT NULL,
	quality    INTEGER NOT NULL,
	resolution TEXT NOT NULL,
	target_dir TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
)`

type sqliteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) (Repository, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}
	return &sqliteRepository{db: db}, nil
}

func (r *sqliteRepository) List(ctx context.Context) ([]Preset, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, format, quality, resolution, target_dir, created_at FROM presets ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	presets := make([]Preset, 0)
	for rows.Next() {
		var p Preset
		if err := rows.Scan(&p.Id, &p.Name, &p.Format, &p.Quality, &p.Resolution, &p.TargetDir, &p.CreatedAt); err != nil {
			return nil, err
		}
		presets = append(presets, p)
	}

	return presets, rows.Err()
}

func (r *sqliteRepository) Get(ctx context.Context, id string) (*Preset, error) {
	var p Preset
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, format, quality, resolution, target_dir, created_at FROM presets WHERE id = ?", id).
		Scan(&p.Id, &p.Name, &p.Format, &p.Quality, &p.Resolution, &p.TargetDir, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("preset %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Submit inserts or, when the id already exists, replaces the preset.
func (r *sqliteRepository) Submit(ctx context.Context, p *Preset) (*Preset, error) {
	if p.Id == "" {
		p.Id = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO presets (id, name, format, quality, resolution, target_dir, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Id, p.Name, p.Format, p.Quality, p.Resolution, p.TargetDir, p.CreatedAt)
	if err != nil {
		return nil, err
	}

	return p, nil
}

func (r *sqliteRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM presets WHERE id = ?", id)
	return err
}
