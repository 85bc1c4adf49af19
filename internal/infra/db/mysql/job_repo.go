package mysql

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
VALUES (?,?,?,?,?);
`
	res, err := r.db.ExecContext(ctx, q,
		string(j.JobID), nullInt(j.UserID), j.TargetID, string(j.Status), j.CreatedAt)
	if err != nil {
		return err
	}
	j.ID, _ = res.LastInsertId()
	return nil
}

func (r *JobRepository) GetByJobID(ctx context.Context, id domain.JobID) (*domain.Job, error) {
	const q = `
SELECT id, job_id, user_id, target_id, status, created_at, completed_at
FROM scan_jobs WHERE job_id=? LIMIT 1;
`
	row := r.db.QueryRowContext(ctx, q, string(id))
	j, err := scanJob(row.Scan)
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
FROM scan_jobs ORDER BY created_at DESC LIMIT ?;
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
	const q = `UPDATE scan_jobs SET status=?, completed_at=? WHERE job_id=?;`
	res, err := r.db.ExecContext(ctx, q, string(status), nullTime(completedAt), string(id))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Either unknown job or a no-op status write; distinguish cheaply.
		var exists int
		if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM scan_jobs WHERE job_id=? LIMIT 1`, string(id)).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrJobNotFound
			}
			return err
		}
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
