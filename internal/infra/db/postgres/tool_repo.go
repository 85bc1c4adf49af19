package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/bagaskara/sentrascan/internal/domain/scans"
)

type ToolRepository struct {
	db *sql.DB
}

func NewToolRepository(db *sql.DB) *ToolRepository {
	return &ToolRepository{db: db}
}

func (r *ToolRepository) Create(ctx context.Context, t *domain.Tool) error {
	const q = `
INSERT INTO tools (name, display_name, image, category, enabled)
VALUES ($1,$2,$3,$4,$5) RETURNING id;
`
	err := r.db.QueryRowContext(ctx, q, t.Name, t.DisplayName, t.Image, t.Category, t.Enabled).Scan(&t.ID)
	if err != nil && isDuplicate(err) {
		return fmt.Errorf("tool %s: %w", t.Name, domain.ErrDuplicate)
	}
	return err
}

// GetByName returns (nil, nil) when the tool does not exist.
func (r *ToolRepository) GetByName(ctx context.Context, name string) (*domain.Tool, error) {
	const q = `
SELECT id, name, display_name, image, category, enabled
FROM tools WHERE name=$1 LIMIT 1;
`
	var t domain.Tool
	err := r.db.QueryRowContext(ctx, q, name).Scan(
		&t.ID, &t.Name, &t.DisplayName, &t.Image, &t.Category, &t.Enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
