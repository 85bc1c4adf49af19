package analysis

import (
	"time"

	scans "github.com/bagaskara/sentrascan/internal/domain/scans"
)

// Analysis is one AI-generated summary of a job's findings, stored for
// auditing and retrieval.
type Analysis struct {
	ID        int64       `json:"id"`
	JobID     scans.JobID `json:"job_id"`
	Model     string      `json:"model"`
	Result    string      `json:"result"` // JSON string from the provider
	CreatedAt time.Time   `json:"created_at"`
}
