package postgres

import (
	"context"
	"database/sql"

	domain "github.com/bagaskara/sentrascan/internal/domain/scans"
)

type FindingRepository struct {
	db *sql.DB
}

func NewFindingRepository(db *sql.DB) *FindingRepository {
	return &FindingRepository{db: db}
}

func (r *FindingRepository) Insert(ctx context.Context, f *domain.Finding) error {
	const q = `
INSERT INTO findings
(job_id, tool_id, definition_id, target_id, severity, status,
 first_seen_at, last_seen_at, location, evidence, confidence, assigned_to)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) RETURNING id;
`
	return r.db.QueryRowContext(ctx, q,
		string(f.JobID), f.ToolID, f.DefinitionID, f.TargetID, string(f.Severity), string(f.Status),
		f.FirstSeenAt, nullTime(f.LastSeenAt), f.Location, f.Evidence, f.Confidence, nullInt(f.AssignedTo)).Scan(&f.ID)
}

func (r *FindingRepository) ListByJob(ctx context.Context, id domain.JobID) ([]*domain.Finding, error) {
	const q = `
SELECT id, job_id, tool_id, definition_id, target_id, severity, status,
       first_seen_at, last_seen_at, location, evidence, confidence, assigned_to
FROM findings WHERE job_id=$1 ORDER BY id;
`
	rows, err := r.db.QueryContext(ctx, q, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Finding
	for rows.Next() {
		var f domain.Finding
		var lastSeen sql.NullTime
		var assigned sql.NullInt64
		if err := rows.Scan(
			&f.ID, &f.JobID, &f.ToolID, &f.DefinitionID, &f.TargetID, &f.Severity, &f.Status,
			&f.FirstSeenAt, &lastSeen, &f.Location, &f.Evidence, &f.Confidence, &assigned,
		); err != nil {
			return nil, err
		}
		f.LastSeenAt = timePtr(lastSeen)
		f.AssignedTo = intPtr(assigned)
		out = append(out, &f)
	}
	return out, rows.Err()
}
