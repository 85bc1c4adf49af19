package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/bagaskara/sentrascan/internal/domain/scans"
)

type VulnerabilityRepository struct {
	db *sql.DB
}

func NewVulnerabilityRepository(db *sql.DB) *VulnerabilityRepository {
	return &VulnerabilityRepository{db: db}
}

// Create returns ErrDuplicate when the name already exists; the catalog
// retries with a fetch in that case.
func (r *VulnerabilityRepository) Create(ctx context.Context, v *domain.VulnerabilityDefinition) error {
	const q = `
INSERT INTO vulnerability_definitions (name, description, recommendation)
VALUES (?,?,?);
`
	res, err := r.db.ExecContext(ctx, q, v.Name, v.Description, v.Recommendation)
	if err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("definition %s: %w", v.Name, domain.ErrDuplicate)
		}
		return err
	}
	v.ID, _ = res.LastInsertId()
	return nil
}

// GetByName returns (nil, nil) when the definition does not exist.
func (r *VulnerabilityRepository) GetByName(ctx context.Context, name string) (*domain.VulnerabilityDefinition, error) {
	const q = `
SELECT id, name, description, recommendation
FROM vulnerability_definitions WHERE name=? LIMIT 1;
`
	var v domain.VulnerabilityDefinition
	err := r.db.QueryRowContext(ctx, q, name).Scan(&v.ID, &v.Name, &v.Description, &v.Recommendation)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}
