package mysql

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
VALUES (?,?,?,?,?);
`
	res, err := r.db.ExecContext(ctx, q, t.Name, t.DisplayName, t.Image, t.Category, t.Enabled)
	if err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("tool %s: %w", t.Name, domain.ErrDuplicate)
		}
		return err
	}
	t.ID, _ = res.LastInsertId()
	return nil
}

// GetByName returns (nil, nil) when the tool does not exist.
func (r *ToolRepository) GetByName(ctx context.Context, name string) (*domain.Tool, error) {
	const q = `
SELECT id, name, display_name, image, category, enabled
FROM tools WHERE name=? LIMIT 1;
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
