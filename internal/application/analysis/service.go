package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/bagaskara/sentrascan/internal/application"
	"github.com/bagaskara/sentrascan/internal/domain/ai"
	"github.com/bagaskara/sentrascan/internal/domain/analysis"
	domain "github.com/bagaskara/sentrascan/internal/domain/scans"
)

// reportLimit caps how many findings go into the prompt.
const reportLimit = 100

// Service builds a compact report out of a job's persisted results, asks the
// AI client for a structured summary, and stores the answer.
type Service struct {
	Client   ai.Client
	Jobs     domain.JobRepository
	Targets  domain.TargetRepository
	Execs    domain.ExecutionRepository
	Findings domain.FindingRepository
	Analyses analysis.Repository
	Model    string
	Clock    application.Clock
}

type reportExecution struct {
	Stage  string `json:"stage"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type reportFinding struct {
	Severity   string `json:"severity"`
	Location   string `json:"location,omitempty"`
	Evidence   string `json:"evidence,omitempty"`
	Confidence string `json:"confidence,omitempty"`
}

type report struct {
	JobID      string            `json:"job_id"`
	TargetURL  string            `json:"target_url"`
	JobStatus  string            `json:"job_status"`
	Executions []reportExecution `json:"executions"`
	Findings   []reportFinding   `json:"findings"`
}

// AnalyzeJob summarizes a finished job. The summary is stored and returned;
// repeated calls produce fresh analyses, LatestByJob serves the newest.
func (s *Service) AnalyzeJob(ctx context.Context, jobID domain.JobID) (*analysis.Analysis, error) {
	job, err := s.Jobs.GetByJobID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	target, err := s.Targets.GetByID(ctx, job.TargetID)
	if err != nil {
		return nil, err
	}

	rep, err := s.buildReport(ctx, job, target)
	if err != nil {
		return nil, err
	}

	result, err := s.Client.Summarize(ctx, rep)
	if err != nil {
		return nil, err
	}

	a := &analysis.Analysis{
		JobID:     jobID,
		Model:     s.Model,
		Result:    result,
		CreatedAt: s.Clock.Now(),
	}
	if err := s.Analyses.Save(ctx, a); err != nil {
		return nil, fmt.Errorf("save analysis: %w", err)
	}
	log.Info().Str("job_id", string(jobID)).Msg("analysis stored")
	return a, nil
}

// LatestByJob returns the newest stored analysis for a job, or nil when the
// job has never been analyzed.
func (s *Service) LatestByJob(ctx context.Context, jobID domain.JobID) (*analysis.Analysis, error) {
	if _, err := s.Jobs.GetByJobID(ctx, jobID); err != nil {
		return nil, err
	}
	return s.Analyses.LatestByJob(ctx, jobID)
}

func (s *Service) buildReport(ctx context.Context, job *domain.Job, target *domain.Target) (string, error) {
	execs, err := s.Execs.ListByJob(ctx, job.JobID)
	if err != nil {
		return "", fmt.Errorf("list executions: %w", err)
	}
	findings, err := s.Findings.ListByJob(ctx, job.JobID)
	if err != nil {
		return "", fmt.Errorf("list findings: %w", err)
	}

	rep := report{
		JobID:      string(job.JobID),
		TargetURL:  target.URL,
		JobStatus:  string(job.Status),
		Executions: make([]reportExecution, 0, len(execs)),
		Findings:   make([]reportFinding, 0, len(findings)),
	}
	for _, e := range execs {
		rep.Executions = append(rep.Executions, reportExecution{
			Stage:  e.StageName,
			Status: string(e.Status),
			Error:  e.Error,
		})
	}
	for i, f := range findings {
		if i == reportLimit {
			break
		}
		rep.Findings = append(rep.Findings, reportFinding{
			Severity:   string(f.Severity),
			Location:   f.Location,
			Evidence:   f.Evidence,
			Confidence: f.Confidence,
		})
	}

	b, err := json.Marshal(rep)
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	return string(b), nil
}
