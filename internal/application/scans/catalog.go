package scans

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/bagaskara/sentrascan/internal/domain/scans"
)

// Catalog is the get-or-create registry of vulnerability definitions.
// Concurrent creates for the same name converge on one row through the
// store's unique constraint: on conflict we re-fetch instead of erroring.
type Catalog struct {
	Vulns domain.VulnerabilityRepository
}

func NewCatalog(vulns domain.VulnerabilityRepository) *Catalog {
	return &Catalog{Vulns: vulns}
}

// GetOrCreate is idempotent by name. Description and recommendation are
// taken from the first occurrence and not updated afterwards.
func (c *Catalog) GetOrCreate(ctx context.Context, name, description, recommendation string) (*domain.VulnerabilityDefinition, error) {
	existing, err := c.Vulns.GetByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup %q: %w", name, err)
	}
	if existing != nil {
		return existing, nil
	}

	v := &domain.VulnerabilityDefinition{
		Name:           name,
		Description:    description,
		Recommendation: recommendation,
	}
	err = c.Vulns.Create(ctx, v)
	if err == nil {
		return v, nil
	}
	if errors.Is(err, domain.ErrDuplicate) {
		// Lost the race to a concurrent create; the winner's row is ours.
		winner, gerr := c.Vulns.GetByName(ctx, name)
		if gerr != nil {
			return nil, fmt.Errorf("catalog refetch %q: %w", name, gerr)
		}
		if winner == nil {
			return nil, fmt.Errorf("catalog %q: duplicate reported but row missing", name)
		}
		return winner, nil
	}
	return nil, fmt.Errorf("catalog create %q: %w", name, err)
}
