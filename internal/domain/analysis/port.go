package analysis

import (
	"context"

	scans "github.com/bagaskara/sentrascan/internal/domain/scans"
)

// Repository persists analyses and serves the latest one per job.
type Repository interface {
	Save(ctx context.Context, a *Analysis) error
	LatestByJob(ctx context.Context, jobID scans.JobID) (*Analysis, error)
}
