package scans

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bagaskara/sentrascan/internal/application"
	domain "github.com/bagaskara/sentrascan/internal/domain/scans"
	"github.com/bagaskara/sentrascan/internal/infra/tools"
)

type serviceFixture struct {
	svc      *Service
	jobs     *memJobs
	execs    *memExecs
	findings *memFindings
	adapters map[domain.ToolName]*fakeAdapter
	job      *domain.Job
	target   *domain.Target
}

func newServiceFixture(t *testing.T, targetURL string) *serviceFixture {
	t.Helper()
	jobs := newMemJobs()
	targets := newMemTargets()
	toolRepo := newMemTools()
	execs := &memExecs{}
	findings := &memFindings{}

	adapters := map[domain.ToolName]*fakeAdapter{}
	registry := tools.Registry{}
	for name := range domain.Registry {
		fa := &fakeAdapter{name: name, result: tools.Result{Status: tools.StatusSuccess}}
		adapters[name] = fa
		registry[name] = fa
	}

	svc := &Service{
		Jobs:     jobs,
		Targets:  targets,
		Tools:    toolRepo,
		Adapters: registry,
		Stages: &StageExecutor{
			Execs:      execs,
			Findings:   findings,
			Normalizer: NewNormalizer(NewCatalog(newMemVulns())),
			Clock:      fixedClock{testNow},
		},
		Clock: fixedClock{testNow},
	}
	require.NoError(t, svc.EnsureTools(context.Background()))

	target := &domain.Target{URL: targetURL, CreatedAt: testNow}
	require.NoError(t, targets.Create(context.Background(), target))
	job := &domain.Job{JobID: domain.NewJobID(), TargetID: target.ID, Status: domain.JobPending, CreatedAt: testNow}
	require.NoError(t, jobs.Create(context.Background(), job))

	return &serviceFixture{svc: svc, jobs: jobs, execs: execs, findings: findings, adapters: adapters, job: job, target: target}
}

func (f *serviceFixture) jobNow(t *testing.T) *domain.Job {
	t.Helper()
	j, err := f.jobs.GetByJobID(context.Background(), f.job.JobID)
	require.NoError(t, err)
	return j
}

func TestRunFullScanThreadsStageOutputs(t *testing.T) {
	f := newServiceFixture(t, "http://example.com")
	f.adapters[domain.ToolSublist3r].result = tools.Result{
		Status:     tools.StatusSuccess,
		Subdomains: []string{"a.example.com", "b.example.com"},
	}
	f.adapters[domain.ToolHttpx].result = tools.Result{
		Status: tools.StatusSuccess,
		Probes: []tools.HTTPProbe{
			{URL: "http://a.example.com", StatusCode: 200},
			{URL: "http://b.example.com", StatusCode: 500},
		},
	}

	res, err := f.svc.RunFullScan(context.Background(), f.job.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, res.Status)

	// bare subdomains are coerced to http URLs for probing
	require.Len(t, f.adapters[domain.ToolHttpx].params, 1)
	assert.Equal(t, []string{"http://a.example.com", "http://b.example.com"},
		f.adapters[domain.ToolHttpx].params[0].Targets)

	// dead probes are skipped; the first live URL drives stages 3-6
	for _, name := range []domain.ToolName{domain.ToolGobuster, domain.ToolZAP, domain.ToolNuclei, domain.ToolSQLMap} {
		require.Len(t, f.adapters[name].params, 1, "tool %s", name)
		assert.Equal(t, "http://a.example.com", f.adapters[name].params[0].Target, "tool %s", name)
	}

	job := f.jobNow(t)
	assert.Equal(t, domain.JobCompleted, job.Status)
	require.NotNil(t, job.CompletedAt)

	execs, err := f.execs.ListByJob(context.Background(), f.job.JobID)
	require.NoError(t, err)
	assert.Len(t, execs, 6)
}

func TestRunFullScanFallsBackToTargetURL(t *testing.T) {
	f := newServiceFixture(t, "http://testphp.vulnweb.com")
	// stage 1 finds nothing, stage 2 probes nothing live
	f.adapters[domain.ToolSublist3r].result = tools.Result{Status: tools.StatusSuccess}
	f.adapters[domain.ToolHttpx].result = tools.Result{Status: tools.StatusFailed}

	res, err := f.svc.RunFullScan(context.Background(), f.job.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, res.Status)

	assert.Equal(t, []string{"http://testphp.vulnweb.com"}, f.adapters[domain.ToolHttpx].params[0].Targets)
	assert.Equal(t, "http://testphp.vulnweb.com", f.adapters[domain.ToolZAP].params[0].Target)
}

func TestRunFullScanStageFailureDoesNotFailJob(t *testing.T) {
	f := newServiceFixture(t, "http://example.com")
	f.adapters[domain.ToolZAP].panics = true

	res, err := f.svc.RunFullScan(context.Background(), f.job.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, res.Status)

	execs, err := f.execs.ListByJob(context.Background(), f.job.JobID)
	require.NoError(t, err)
	require.Len(t, execs, 6)

	var failedStages []int
	for _, e := range execs {
		if e.Status == domain.ExecFailed {
			failedStages = append(failedStages, e.StageNumber)
		}
	}
	assert.Equal(t, []int{4}, failedStages)
}

func TestRunFullScanUnknownJob(t *testing.T) {
	f := newServiceFixture(t, "http://example.com")
	_, err := f.svc.RunFullScan(context.Background(), domain.NewJobID())
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestRunFullScanCapsProbeTargets(t *testing.T) {
	f := newServiceFixture(t, "http://example.com")
	var subs []string
	for i := 0; i < 80; i++ {
		subs = append(subs, "s.example.com")
	}
	f.adapters[domain.ToolSublist3r].result = tools.Result{Status: tools.StatusSuccess, Subdomains: subs}

	_, err := f.svc.RunFullScan(context.Background(), f.job.JobID)
	require.NoError(t, err)
	assert.Len(t, f.adapters[domain.ToolHttpx].params[0].Targets, maxProbeTargets)
}

func TestRunLocalhostScanRejectsRemoteTarget(t *testing.T) {
	f := newServiceFixture(t, "http://example.com")

	_, err := f.svc.RunLocalhostScan(context.Background(), f.job.JobID, "")
	assert.ErrorIs(t, err, domain.ErrNotLocalhost)

	// gate fires before anything runs or transitions
	assert.Equal(t, domain.JobPending, f.jobNow(t).Status)
	execs, _ := f.execs.ListByJob(context.Background(), f.job.JobID)
	assert.Empty(t, execs)
}

func TestRunLocalhostScanAggregatesAlerts(t *testing.T) {
	f := newServiceFixture(t, "http://localhost:8000")
	f.adapters[domain.ToolASan].result = tools.Result{
		Status:       tools.StatusCompletedWithIssues,
		MemoryErrors: []tools.MemoryError{{Raw: "ERROR: AddressSanitizer: stack-buffer-overflow"}},
	}
	f.adapters[domain.ToolGhauri].result = tools.Result{
		Status:     tools.StatusCompletedWithIssues,
		Vulnerable: true,
		RawOutput:  "injection confirmed",
	}

	res, err := f.svc.RunLocalhostScan(context.Background(), f.job.JobID, "/tmp/project")
	require.NoError(t, err)

	assert.Equal(t, domain.JobCompleted, res.Status)
	assert.Equal(t, 2, res.AlertCount)
	assert.Equal(t, "High", res.Alerts[0].Risk)
	assert.Equal(t, "CRITICAL", res.Alerts[1].Risk)
	require.Len(t, res.Results, 2)

	// source path reaches the analyzer; localhost flag reaches ghauri
	assert.Equal(t, "/tmp/project", f.adapters[domain.ToolASan].params[0].SourcePath)
	assert.True(t, f.adapters[domain.ToolGhauri].params[0].Localhost)

	execs, _ := f.execs.ListByJob(context.Background(), f.job.JobID)
	assert.Len(t, execs, 2)
}

func TestRunZapScanFailsJobOnZapFailure(t *testing.T) {
	f := newServiceFixture(t, "http://example.com")
	f.adapters[domain.ToolZAP].result = tools.Result{Status: tools.StatusFailed, Error: "Failed to start ZAP"}

	res, err := f.svc.RunZapScan(context.Background(), f.job.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, res.Status)
	assert.Equal(t, domain.JobFailed, f.jobNow(t).Status)
}

func TestRunZapScanCompletes(t *testing.T) {
	f := newServiceFixture(t, "http://example.com")
	f.adapters[domain.ToolZAP].result = tools.Result{
		Status: tools.StatusCompletedWithAlerts,
		Alerts: []tools.Alert{{Name: "Missing Header", Risk: "Medium"}},
	}

	res, err := f.svc.RunZapScan(context.Background(), f.job.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, res.Status)
	assert.Equal(t, 1, res.AlertCount)
}

func TestEnsureToolsIdempotent(t *testing.T) {
	f := newServiceFixture(t, "http://example.com")
	// fixture already bootstrapped once
	require.NoError(t, f.svc.EnsureTools(context.Background()))

	seen := map[int64]bool{}
	for name := range domain.Registry {
		row, err := f.svc.Tools.GetByName(context.Background(), string(name))
		require.NoError(t, err)
		require.NotNil(t, row)
		assert.False(t, seen[row.ID], "duplicate tool row for %s", name)
		seen[row.ID] = true
	}
	assert.Len(t, seen, len(domain.Registry))
}

var _ application.Clock = fixedClock{}
