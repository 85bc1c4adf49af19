package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domain "github.com/bagaskara/sentrascan/internal/domain/scans"
)

type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(ctx context.Context, j *domain.Job) error {
	const q = `
INSERT INTO scan_jobs (job_id, user_id, target_id, status, created_at)
VALUES ($1,$2,$3,$4,$5) RETURNING id;
`
	return r.db.QueryRowContext(ctx, q,
		string(j.JobID), nullInt(j.UserID), j.TargetID, string(j.Status), j.CreatedAt).Scan(&j.ID)
}

func (r *JobRepository) GetByJobID(ctx context.Context, id domain.JobID) (*domain.Job, error) {
	const q = `
SELECT id, job_id, user_id, target_id, status, created_at, completed_at
FROM scan_jobs WHERE job_id=$1 LIMIT 1;
`
	j, err := scanJob(r.db.QueryRowContext(ctx, q, string(id)).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrJobNotFound
	}
	return j, err
}

func (r *JobRepository) List(ctx context.Context, limit int) ([]*domain.Job, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, job_id, user_id, target_id, status, created_at, completed_at
FROM scan_jobs ORDER BY created_at DESC LIMIT $1;
`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Job
	for rows.Next() {
		j, err := scanJob(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *JobRepository) UpdateStatus(ctx context.Context, id domain.JobID, status domain.JobStatus, completedAt *time.Time) error {
	const q = `UPDATE scan_jobs SET status=$1, completed_at=$2 WHERE job_id=$3;`
	res, err := r.db.ExecContext(ctx, q, string(status), nullTime(completedAt), string(id))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func scanJob(scan func(dest ...any) error) (*domain.Job, error) {
	var j domain.Job
	var userID sql.NullInt64
	var completed sql.NullTime
	if err := scan(&j.ID, &j.JobID, &userID, &j.TargetID, &j.Status, &j.CreatedAt, &completed); err != nil {
		return nil, err
	}
	j.UserID = intPtr(userID)
	j.CompletedAt = timePtr(completed)
	return &j, nil
}
