package postgres

import (
	"context"
	"database/sql"
	"errors"

	domain "github.com/bagaskara/sentrascan/internal/domain/scans"
)

type TargetRepository struct {
	db *sql.DB
}

func NewTargetRepository(db *sql.DB) *TargetRepository {
	return &TargetRepository{db: db}
}

func (r *TargetRepository) Create(ctx context.Context, t *domain.Target) error {
	const q = `
INSERT INTO targets (user_id, url, name, description, asset_value, created_at)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id;
`
	return r.db.QueryRowContext(ctx, q,
		t.UserID, t.URL, t.Name, t.Description, t.AssetValue, t.CreatedAt).Scan(&t.ID)
}

func (r *TargetRepository) GetByID(ctx context.Context, id int64) (*domain.Target, error) {
	const q = `
SELECT id, user_id, url, name, description, asset_value, created_at
FROM targets WHERE id=$1 LIMIT 1;
`
	t, err := scanTarget(r.db.QueryRowContext(ctx, q, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTargetNotFound
	}
	return t, err
}

func (r *TargetRepository) GetByURL(ctx context.Context, url string) (*domain.Target, error) {
	const q = `
SELECT id, user_id, url, name, description, asset_value, created_at
FROM targets WHERE url=$1 LIMIT 1;
`
	t, err := scanTarget(r.db.QueryRowContext(ctx, q, url).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

func (r *TargetRepository) List(ctx context.Context, limit int) ([]*domain.Target, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, user_id, url, name, description, asset_value, created_at
FROM targets ORDER BY created_at DESC LIMIT $1;
`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Target
	for rows.Next() {
		t, err := scanTarget(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTarget(scan func(dest ...any) error) (*domain.Target, error) {
	var t domain.Target
	if err := scan(&t.ID, &t.UserID, &t.URL, &t.Name, &t.Description, &t.AssetValue, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}
