package scans

import (
	"context"
	"errors"
	"time"
)

// Setup faults. Stage faults never surface as errors; they are absorbed by
// the stage executor and recorded on the ToolExecution row.
var (
	ErrJobNotFound    = errors.New("scan job not found")
	ErrTargetNotFound = errors.New("target not found")
	ErrNotLocalhost   = errors.New("localhost testing only supports localhost or 127.0.0.1 targets")
)

// ErrDuplicate is returned by repositories on a unique-constraint violation.
// The vulnerability catalog relies on it for its retry-then-fetch path.
var ErrDuplicate = errors.New("duplicate row")

// JobRepository port
type JobRepository interface {
	Create(ctx context.Context, j *Job) error
	GetByJobID(ctx context.Context, id JobID) (*Job, error)
	List(ctx context.Context, limit int) ([]*Job, error)
	UpdateStatus(ctx context.Context, id JobID, status JobStatus, completedAt *time.Time) error
}

// TargetRepository port. GetByURL returns (nil, nil) when no row matches;
// GetByID returns ErrTargetNotFound.
type TargetRepository interface {
	Create(ctx context.Context, t *Target) error
	GetByID(ctx context.Context, id int64) (*Target, error)
	GetByURL(ctx context.Context, url string) (*Target, error)
	List(ctx context.Context, limit int) ([]*Target, error)
}

// ToolRepository port. GetByName returns (nil, nil) when no row matches.
type ToolRepository interface {
	Create(ctx context.Context, t *Tool) error
	GetByName(ctx context.Context, name string) (*Tool, error)
}

// ExecutionRepository port
type ExecutionRepository interface {
	Insert(ctx context.Context, e *ToolExecution) error
	ListByJob(ctx context.Context, id JobID) ([]*ToolExecution, error)
}

// FindingRepository port
type FindingRepository interface {
	Insert(ctx context.Context, f *Finding) error
	ListByJob(ctx context.Context, id JobID) ([]*Finding, error)
}

// VulnerabilityRepository port. Create must return ErrDuplicate (wrapped is
// fine) when the name already exists; GetByName returns (nil, nil) when no
// row matches.
type VulnerabilityRepository interface {
	Create(ctx context.Context, v *VulnerabilityDefinition) error
	GetByName(ctx context.Context, name string) (*VulnerabilityDefinition, error)
}

// ContainerRunner port (interface for tool execution). Errors mean the
// container could not run at all; tool-level failure is an exit code.
type ContainerRunner interface {
	Run(ctx context.Context, spec RunSpec) (RunOutput, error)
}

// ArtifactStore port (interface for raw-output archival).
type ArtifactStore interface {
	UploadText(ctx context.Context, key, body, contentType string) (string, error)
}
