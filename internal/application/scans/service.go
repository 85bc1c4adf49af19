package scans

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/bagaskara/sentrascan/internal/application"
	domain "github.com/bagaskara/sentrascan/internal/domain/scans"
	"github.com/bagaskara/sentrascan/internal/infra/tools"
)

const maxProbeTargets = 50

// Service orchestrates the scan pipelines. One job runs its stages strictly
// in sequence because each stage's input is the previous stage's output;
// separate jobs are free to run concurrently on their own workers.
type Service struct {
	Jobs     domain.JobRepository
	Targets  domain.TargetRepository
	Tools    domain.ToolRepository
	Adapters tools.Registry
	Stages   *StageExecutor
	Clock    application.Clock
}

// FullScanResult is the terminal report of RunFullScan.
type FullScanResult struct {
	JobID  domain.JobID     `json:"job_id"`
	Status domain.JobStatus `json:"status"`
}

// LocalScanResult aggregates the localhost pipeline: per-tool raw results,
// the combined alert list, and the final job status.
type LocalScanResult struct {
	JobID      domain.JobID            `json:"job_id"`
	TargetURL  string                  `json:"target_url"`
	Status     domain.JobStatus        `json:"status"`
	Alerts     []tools.Alert           `json:"alerts"`
	AlertCount int                     `json:"alert_count"`
	Results    map[string]tools.Result `json:"results"`
}

// ZapScanResult is the response of the single-stage ZAP scan.
type ZapScanResult struct {
	JobID      domain.JobID     `json:"job_id"`
	Status     domain.JobStatus `json:"status"`
	Alerts     []tools.Alert    `json:"alerts"`
	AlertCount int              `json:"alert_count"`
	RawOutput  string           `json:"raw_output,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// EnsureTools idempotently populates the Tool rows from the immutable
// registry. Call once at startup, before any pipeline runs.
func (s *Service) EnsureTools(ctx context.Context) error {
	for name, info := range domain.Registry {
		existing, err := s.Tools.GetByName(ctx, string(name))
		if err != nil {
			return fmt.Errorf("tool lookup %s: %w", name, err)
		}
		if existing != nil {
			continue
		}
		t := &domain.Tool{
			Name:        string(name),
			DisplayName: info.DisplayName,
			Image:       info.Image,
			Category:    info.Category,
			Enabled:     true,
		}
		if err := s.Tools.Create(ctx, t); err != nil {
			// A concurrent worker may have just created it.
			if refetched, gerr := s.Tools.GetByName(ctx, string(name)); gerr == nil && refetched != nil {
				continue
			}
			return fmt.Errorf("tool create %s: %w", name, err)
		}
	}
	return nil
}

// RunFullScan executes the fixed six-stage pipeline for a job. Individual
// stage failures never fail the job; the job fails only on setup faults
// around the stage boundaries. Calling this twice for the same job re-runs
// the pipeline and appends duplicate execution rows; guarding against that
// is the API layer's job.
func (s *Service) RunFullScan(ctx context.Context, jobID domain.JobID) (FullScanResult, error) {
	job, target, err := s.loadJob(ctx, jobID)
	if err != nil {
		return FullScanResult{JobID: jobID}, err
	}

	if err := s.setStatus(ctx, job, domain.JobRunning, false); err != nil {
		return FullScanResult{JobID: jobID}, err
	}
	log.Info().Str("job_id", string(jobID)).Str("target", target.URL).Msg("full scan started")

	toolRows, err := s.toolRows(ctx, domain.FullScanStages)
	if err != nil {
		_ = s.setStatus(ctx, job, domain.JobFailed, true)
		return FullScanResult{JobID: jobID, Status: domain.JobFailed}, err
	}

	// Stage 1: subdomain enumeration on the target's hostname.
	var subdomains []string
	st := domain.FullScanStages[0]
	outcome := s.Stages.RunStage(ctx, job, target, toolRows[st.Tool], st,
		map[string]string{"target_url": target.URL, "domain": hostOf(target.URL)},
		func(ctx context.Context) tools.Result {
			return s.Adapters[st.Tool].Run(ctx, tools.Params{Target: target.URL})
		})
	if outcome.RanOK {
		subdomains = outcome.Result.Subdomains
	}
	log.Info().Str("job_id", string(jobID)).Int("subdomains", len(subdomains)).Msg("stage 1 done")

	// Stage 2: HTTP probing over the discovered subdomains, falling back to
	// the original target when none survive.
	probeTargets := probeList(subdomains, target.URL)
	st = domain.FullScanStages[1]
	outcome = s.Stages.RunStage(ctx, job, target, toolRows[st.Tool], st,
		map[string]any{"subdomains": subdomains, "targets": probeTargets},
		func(ctx context.Context) tools.Result {
			return s.Adapters[st.Tool].Run(ctx, tools.Params{Targets: probeTargets})
		})
	liveURLs := liveServiceURLs(outcome)
	if len(liveURLs) == 0 {
		liveURLs = []string{target.URL}
	}

	// Stages 3-6 all target the primary live URL.
	primaryURL := liveURLs[0]
	log.Info().Str("job_id", string(jobID)).Str("primary_url", primaryURL).Msg("primary url resolved")

	for _, st := range domain.FullScanStages[2:] {
		st := st
		s.Stages.RunStage(ctx, job, target, toolRows[st.Tool], st,
			map[string]string{"target_url": primaryURL},
			func(ctx context.Context) tools.Result {
				return s.Adapters[st.Tool].Run(ctx, tools.Params{
					Target:    primaryURL,
					Localhost: isLocalURL(primaryURL),
				})
			})
	}

	// The terminal status write is the one write that must land.
	if err := s.setStatus(ctx, job, domain.JobCompleted, true); err != nil {
		return FullScanResult{JobID: jobID, Status: domain.JobRunning}, err
	}
	log.Info().Str("job_id", string(jobID)).Msg("full scan completed")
	return FullScanResult{JobID: jobID, Status: domain.JobCompleted}, nil
}

// RunLocalhostScan executes the two-stage local pipeline. The target must
// resolve to localhost or 127.0.0.1; anything else is rejected before any
// stage runs and the job status is left untouched.
func (s *Service) RunLocalhostScan(ctx context.Context, jobID domain.JobID, sourcePath string) (*LocalScanResult, error) {
	job, target, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !isLocalURL(target.URL) {
		return nil, domain.ErrNotLocalhost
	}

	if err := s.setStatus(ctx, job, domain.JobRunning, false); err != nil {
		return nil, err
	}
	log.Info().Str("job_id", string(jobID)).Str("target", target.URL).Msg("localhost scan started")

	toolRows, err := s.toolRows(ctx, domain.LocalhostStages)
	if err != nil {
		_ = s.setStatus(ctx, job, domain.JobFailed, true)
		return nil, err
	}

	agg := &LocalScanResult{
		JobID:     jobID,
		TargetURL: target.URL,
		Results:   map[string]tools.Result{},
	}

	// Stage 1: memory safety analysis, optionally over mounted sources.
	st := domain.LocalhostStages[0]
	outcome := s.Stages.RunStage(ctx, job, target, toolRows[st.Tool], st,
		map[string]string{"target_url": target.URL, "source_path": sourcePath},
		func(ctx context.Context) tools.Result {
			return s.Adapters[st.Tool].Run(ctx, tools.Params{SourcePath: sourcePath})
		})
	agg.Results[string(st.Tool)] = outcome.Result
	for _, e := range outcome.Result.MemoryErrors {
		agg.Alerts = append(agg.Alerts, tools.Alert{
			Name:        "AddressSanitizer memory error",
			Risk:        "High",
			Description: "AddressSanitizer detected a memory safety violation.",
			Solution:    "Investigate the reported stack trace and fix the offending code.",
			Evidence:    clip(e.Raw, 500),
			URL:         target.URL,
		})
	}

	// Stage 2: blind SQL injection against the local target.
	st = domain.LocalhostStages[1]
	outcome = s.Stages.RunStage(ctx, job, target, toolRows[st.Tool], st,
		map[string]string{"target_url": target.URL},
		func(ctx context.Context) tools.Result {
			return s.Adapters[st.Tool].Run(ctx, tools.Params{Target: target.URL, Localhost: true})
		})
	agg.Results[string(st.Tool)] = outcome.Result
	if outcome.Result.Vulnerable {
		agg.Alerts = append(agg.Alerts, tools.Alert{
			Name:        "SQL Injection (Ghauri)",
			Risk:        "CRITICAL",
			Description: "Ghauri detected a possible SQL injection. Use parameterized queries and sanitize inputs.",
			Solution:    "Use parameterized queries/prepared statements and sanitize all user inputs.",
			Evidence:    clip(outcome.Result.RawOutput, 500),
			URL:         target.URL,
		})
	}

	if err := s.setStatus(ctx, job, domain.JobCompleted, true); err != nil {
		return nil, err
	}
	agg.Status = domain.JobCompleted
	agg.AlertCount = len(agg.Alerts)
	log.Info().Str("job_id", string(jobID)).Int("alerts", agg.AlertCount).Msg("localhost scan completed")
	return agg, nil
}

// RunZapScan runs stage 4 alone against the job's target. Unlike the full
// pipeline, the job fails when the ZAP run itself fails.
func (s *Service) RunZapScan(ctx context.Context, jobID domain.JobID) (*ZapScanResult, error) {
	job, target, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := s.setStatus(ctx, job, domain.JobRunning, false); err != nil {
		return nil, err
	}

	toolRow, err := s.Tools.GetByName(ctx, string(domain.ToolZAP))
	if err != nil || toolRow == nil {
		_ = s.setStatus(ctx, job, domain.JobFailed, true)
		return nil, fmt.Errorf("zap tool row missing: %w", err)
	}

	st := domain.StageSpec{Number: 1, Name: "ZAP Scan: Web Application Scanning", Tool: domain.ToolZAP}
	outcome := s.Stages.RunStage(ctx, job, target, toolRow, st,
		map[string]string{"target_url": target.URL},
		func(ctx context.Context) tools.Result {
			return s.Adapters[domain.ToolZAP].Run(ctx, tools.Params{
				Target:    target.URL,
				Localhost: isLocalURL(target.URL),
			})
		})

	status := domain.JobCompleted
	if outcome.Result.Failed() {
		status = domain.JobFailed
	}
	if err := s.setStatus(ctx, job, status, true); err != nil {
		return nil, err
	}
	return &ZapScanResult{
		JobID:      jobID,
		Status:     status,
		Alerts:     outcome.Result.Alerts,
		AlertCount: len(outcome.Result.Alerts),
		RawOutput:  outcome.Result.RawOutput,
		Error:      outcome.Result.Error,
	}, nil
}

func (s *Service) loadJob(ctx context.Context, jobID domain.JobID) (*domain.Job, *domain.Target, error) {
	job, err := s.Jobs.GetByJobID(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	target, err := s.Targets.GetByID(ctx, job.TargetID)
	if err != nil {
		return nil, nil, err
	}
	return job, target, nil
}

func (s *Service) setStatus(ctx context.Context, job *domain.Job, status domain.JobStatus, terminal bool) error {
	job.Status = status
	if terminal {
		now := s.Clock.Now()
		job.CompletedAt = &now
		return s.Jobs.UpdateStatus(ctx, job.JobID, status, &now)
	}
	return s.Jobs.UpdateStatus(ctx, job.JobID, status, nil)
}

func (s *Service) toolRows(ctx context.Context, stages []domain.StageSpec) (map[domain.ToolName]*domain.Tool, error) {
	rows := map[domain.ToolName]*domain.Tool{}
	for _, st := range stages {
		t, err := s.Tools.GetByName(ctx, string(st.Tool))
		if err != nil {
			return nil, fmt.Errorf("tool lookup %s: %w", st.Tool, err)
		}
		if t == nil {
			return nil, fmt.Errorf("tool %s not registered", st.Tool)
		}
		rows[st.Tool] = t
	}
	return rows, nil
}

// probeList caps the subdomain list and coerces every entry to an absolute
// URL, defaulting the scheme to http. With no subdomains the original
// target is probed instead.
func probeList(subdomains []string, targetURL string) []string {
	if len(subdomains) == 0 {
		return []string{targetURL}
	}
	if len(subdomains) > maxProbeTargets {
		subdomains = subdomains[:maxProbeTargets]
	}
	out := make([]string, 0, len(subdomains))
	for _, sub := range subdomains {
		if strings.Contains(sub, "://") {
			out = append(out, sub)
			continue
		}
		out = append(out, "http://"+sub)
	}
	return out
}

// liveServiceURLs picks the probe results that answered with a live status
// code. A failed stage yields nothing; the caller applies the fallback.
func liveServiceURLs(outcome StageOutcome) []string {
	if !outcome.RanOK {
		return nil
	}
	var live []string
	for _, p := range outcome.Result.Probes {
		if !liveStatusCodes[p.StatusCode] {
			continue
		}
		u := p.URL
		if u == "" {
			u = p.Input
		}
		if u != "" {
			live = append(live, u)
		}
	}
	return live
}

func isLocalURL(rawURL string) bool {
	h := hostOf(rawURL)
	return h == "localhost" || h == "127.0.0.1"
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	h := rawURL
	if i := strings.Index(h, "://"); i >= 0 {
		h = h[i+3:]
	}
	h = strings.SplitN(h, "/", 2)[0]
	return strings.SplitN(h, ":", 2)[0]
}
