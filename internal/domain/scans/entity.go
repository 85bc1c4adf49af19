package scans

import (
	"time"

	"github.com/google/uuid"
)

// JobID is the opaque external identifier of a scan job.
type JobID string

func NewJobID() JobID { return JobID(uuid.New().String()) }

// JobStatus enum
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job is one scan request. Status moves pending -> running -> {completed|failed}
// and is mutated only by the orchestrator once the job has been created.
type Job struct {
	ID          int64      `json:"-"`
	JobID       JobID      `json:"job_id"`
	UserID      *int64     `json:"user_id,omitempty"`
	TargetID    int64      `json:"target_id"`
	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Target is a URL under test. Read-only to the scan pipeline.
type Target struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	URL         string    `json:"url"`
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description,omitempty"`
	AssetValue  string    `json:"asset_value,omitempty"` // critical | high | low
	CreatedAt   time.Time `json:"created_at"`
}

// Tool is one row of the static adapter registry.
type Tool struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Image       string `json:"image"`
	Category    string `json:"category,omitempty"`
	Enabled     bool   `json:"enabled"`
}

// ExecStatus enum for tool executions.
type ExecStatus string

const (
	ExecPending   ExecStatus = "pending"
	ExecRunning   ExecStatus = "running"
	ExecCompleted ExecStatus = "completed"
	ExecFailed    ExecStatus = "failed"
)

// Truncation caps applied before a ToolExecution is persisted. Hard cuts,
// never an error.
const (
	MaxOutputLen    = 50000
	MaxRawOutputLen = 10000
	MaxErrorLen     = 5000
	MaxInputLen     = 10000
)

// ToolExecution is the audit record of one stage run for one job. Created
// once the stage finishes and never mutated afterward.
type ToolExecution struct {
	ID          int64      `json:"id"`
	JobID       JobID      `json:"job_id"`
	ToolID      int64      `json:"tool_id"`
	StageNumber int        `json:"stage_number"`
	StageName   string     `json:"stage_name"`
	Status      ExecStatus `json:"status"`
	Duration    int64      `json:"duration_seconds"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt time.Time  `json:"completed_at"`
	Output      string     `json:"output,omitempty"`     // serialized structured result
	RawOutput   string     `json:"raw_output,omitempty"` // truncated stdout+stderr
	Error       string     `json:"error,omitempty"`
	InputData   string     `json:"input_data,omitempty"` // serialized stage input
	ArtifactURL string     `json:"artifact_url,omitempty"`
}

// Truncate applies the persistence caps in place.
func (e *ToolExecution) Truncate() {
	e.Output = cut(e.Output, MaxOutputLen)
	e.RawOutput = cut(e.RawOutput, MaxRawOutputLen)
	e.Error = cut(e.Error, MaxErrorLen)
	e.InputData = cut(e.InputData, MaxInputLen)
}

func cut(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

// VulnerabilityDefinition is the deduplicated catalog entry findings
// classify against. Unique by name, created lazily, never deleted.
type VulnerabilityDefinition struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`
}

// Severity enum
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// FindingStatus enum. Transitions beyond "new" belong to the triage
// workflow, not to the scan pipeline.
type FindingStatus string

const (
	FindingNew           FindingStatus = "new"
	FindingReopened      FindingStatus = "reopened"
	FindingAcknowledged  FindingStatus = "acknowledged"
	FindingResolved      FindingStatus = "resolved"
	FindingFalsePositive FindingStatus = "false_positive"
)

// Finding is one normalized discovered issue.
type Finding struct {
	ID           int64         `json:"id"`
	JobID        JobID         `json:"job_id"`
	ToolID       int64         `json:"tool_id"`
	DefinitionID int64         `json:"definition_id"`
	TargetID     int64         `json:"target_id"`
	Severity     Severity      `json:"severity"`
	Status       FindingStatus `json:"status"`
	FirstSeenAt  time.Time     `json:"first_seen_at"`
	LastSeenAt   *time.Time    `json:"last_seen_at,omitempty"`
	Location     string        `json:"location,omitempty"`
	Evidence     string        `json:"evidence,omitempty"`
	Confidence   string        `json:"confidence,omitempty"` // high | medium | low
	AssignedTo   *int64        `json:"assigned_to,omitempty"`
}
