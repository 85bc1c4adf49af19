package scans

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/bagaskara/sentrascan/internal/application"
	domain "github.com/bagaskara/sentrascan/internal/domain/scans"
	"github.com/bagaskara/sentrascan/internal/infra/tools"
)

// StageOutcome is what a stage hands back to the orchestrator.
type StageOutcome struct {
	RanOK           bool
	Result          tools.Result
	FindingsCreated int
}

// StageExecutor wraps one pipeline stage: run the tool inside a failure
// boundary, time it, persist the ToolExecution audit row, archive the full
// raw output, normalize findings. It never returns an error: stage isolation
// is by construction, not by caller-side handling. A persistence failure is
// logged and the stage still counts as run.
type StageExecutor struct {
	Execs      domain.ExecutionRepository
	Findings   domain.FindingRepository
	Normalizer *Normalizer
	Artifacts  domain.ArtifactStore // optional
	Clock      application.Clock
}

// RunStage executes run inside the stage boundary and records everything.
func (e *StageExecutor) RunStage(
	ctx context.Context,
	job *domain.Job,
	target *domain.Target,
	tool *domain.Tool,
	stage domain.StageSpec,
	input any,
	run func(context.Context) tools.Result,
) StageOutcome {
	start := e.Clock.Now()
	result := runSafely(ctx, stage.Tool, run)
	end := e.Clock.Now()

	logEvent := log.Info()
	if result.Failed() {
		logEvent = log.Warn()
	}
	logEvent.
		Str("job_id", string(job.JobID)).
		Int("stage", stage.Number).
		Str("tool", string(stage.Tool)).
		Str("status", string(result.Status)).
		Msg("stage finished")

	exec := &domain.ToolExecution{
		JobID:       job.JobID,
		ToolID:      tool.ID,
		StageNumber: stage.Number,
		StageName:   stage.Name,
		Status:      execStatus(result.Status),
		Duration:    int64(end.Sub(start).Seconds()),
		StartedAt:   start,
		CompletedAt: end,
		Output:      marshalLenient(result),
		RawOutput:   result.RawOutput,
		Error:       result.Error,
		InputData:   marshalLenient(input),
	}

	// Full raw output goes to the artifact store before truncation; the
	// database keeps only the capped copy.
	if e.Artifacts != nil && result.RawOutput != "" {
		key := fmt.Sprintf("%s/stage-%d-%s.log", job.JobID, stage.Number, stage.Tool)
		url, err := e.Artifacts.UploadText(ctx, key, result.RawOutput, "text/plain")
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("artifact upload failed")
		} else {
			exec.ArtifactURL = url
		}
	}

	exec.Truncate()
	if err := e.Execs.Insert(ctx, exec); err != nil {
		log.Error().Err(err).
			Str("job_id", string(job.JobID)).
			Int("stage", stage.Number).
			Msg("could not persist tool execution")
	}

	created := 0
	findings, err := e.Normalizer.Normalize(ctx, job, target, tool, result, end)
	if err != nil {
		log.Error().Err(err).
			Str("job_id", string(job.JobID)).
			Int("stage", stage.Number).
			Msg("normalization failed")
	}
	for _, f := range findings {
		if err := e.Findings.Insert(ctx, f); err != nil {
			log.Error().Err(err).
				Str("job_id", string(job.JobID)).
				Int("stage", stage.Number).
				Msg("could not persist finding")
			continue
		}
		created++
	}

	return StageOutcome{
		RanOK:           !result.Failed(),
		Result:          result,
		FindingsCreated: created,
	}
}

// runSafely converts anything the adapter let escape, panics included, into
// a synthetic failed result.
func runSafely(ctx context.Context, tool domain.ToolName, run func(context.Context) tools.Result) (result tools.Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("tool", string(tool)).Msg("tool adapter panicked")
			result = tools.Result{
				Tool:     tool,
				Status:   tools.StatusFailed,
				ExitCode: -1,
				Error:    fmt.Sprintf("panic: %v", r),
			}
		}
	}()
	return run(ctx)
}

// execStatus folds the adapter vocabulary into the persisted status set.
// "Completed with alerts" is still completed; the alerts live in findings.
func execStatus(s tools.Status) domain.ExecStatus {
	if s == tools.StatusFailed {
		return domain.ExecFailed
	}
	return domain.ExecCompleted
}

func marshalLenient(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
