package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bagaskara/sentrascan/internal/domain/analysis"
	domain "github.com/bagaskara/sentrascan/internal/domain/scans"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

func (r *AnalysisRepository) Save(ctx context.Context, a *analysis.Analysis) error {
	const q = `
INSERT INTO ai_analyses (job_id, model, result, created_at)
VALUES ($1,$2,$3,$4) RETURNING id;
`
	return r.db.QueryRowContext(ctx, q, string(a.JobID), a.Model, a.Result, a.CreatedAt).Scan(&a.ID)
}

// LatestByJob returns (nil, nil) when the job has no stored analysis.
func (r *AnalysisRepository) LatestByJob(ctx context.Context, jobID domain.JobID) (*analysis.Analysis, error) {
	const q = `
SELECT id, job_id, model, result, created_at
FROM ai_analyses WHERE job_id=$1 ORDER BY created_at DESC, id DESC LIMIT 1;
`
	var a analysis.Analysis
	err := r.db.QueryRowContext(ctx, q, string(jobID)).Scan(&a.ID, &a.JobID, &a.Model, &a.Result, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
