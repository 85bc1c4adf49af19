package mysql

import (
	"context"
	"database/sql"

	domain "github.com/bagaskara/sentrascan/internal/domain/scans"
)

type ExecutionRepository struct {
	db *sql.DB
}

func NewExecutionRepository(db *sql.DB) *ExecutionRepository {
	return &ExecutionRepository{db: db}
}

func (r *ExecutionRepository) Insert(ctx context.Context, e *domain.ToolExecution) error {
	const q = `
INSERT INTO tool_executions
(job_id, tool_id, stage_number, stage_name, status, duration_seconds,
 started_at, completed_at, output, raw_output, error, input_data, artifact_url)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?);
`
	res, err := r.db.ExecContext(ctx, q,
		string(e.JobID), e.ToolID, e.StageNumber, e.StageName, string(e.Status), e.Duration,
		e.StartedAt, e.CompletedAt, e.Output, e.RawOutput, e.Error, e.InputData, e.ArtifactURL)
	if err != nil {
		return err
	}
	e.ID, _ = res.LastInsertId()
	return nil
}

func (r *ExecutionRepository) ListByJob(ctx context.Context, id domain.JobID) ([]*domain.ToolExecution, error) {
	const q = `
SELECT id, job_id, tool_id, stage_number, stage_name, status, duration_seconds,
       started_at, completed_at, output, raw_output, error, input_data, artifact_url
FROM tool_executions WHERE job_id=? ORDER BY stage_number, id;
`
	rows, err := r.db.QueryContext(ctx, q, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ToolExecution
	for rows.Next() {
		var e domain.ToolExecution
		if err := rows.Scan(
			&e.ID, &e.JobID, &e.ToolID, &e.StageNumber, &e.StageName, &e.Status, &e.Duration,
			&e.StartedAt, &e.CompletedAt, &e.Output, &e.RawOutput, &e.Error, &e.InputData, &e.ArtifactURL,
		); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
