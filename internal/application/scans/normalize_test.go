package scans

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bagaskara/sentrascan/internal/domain/scans"
	"github.com/bagaskara/sentrascan/internal/infra/tools"
)

func normalizeFixture() (*Normalizer, *domain.Job, *domain.Target, *domain.Tool) {
	n := NewNormalizer(NewCatalog(newMemVulns()))
	job := &domain.Job{ID: 1, JobID: domain.NewJobID(), TargetID: 1}
	target := &domain.Target{ID: 1, URL: "http://example.com"}
	tool := &domain.Tool{ID: 7, Name: "zap"}
	return n, job, target, tool
}

func TestNormalizeZAPRiskAndConfidence(t *testing.T) {
	n, job, target, tool := normalizeFixture()
	res := tools.Result{
		Tool: domain.ToolZAP,
		Alerts: []tools.Alert{
			{Name: "SQL Injection", Risk: "High", Evidence: "ev1", URL: "http://example.com/a"},
			{Name: "Missing Header", Risk: "Medium"},
			{Name: "Server Banner", Risk: "Informational"},
			{Name: "Oddity", Risk: "Unmapped"},
		},
	}

	findings, err := n.Normalize(context.Background(), job, target, tool, res, testNow)
	require.NoError(t, err)
	require.Len(t, findings, 4)

	assert.Equal(t, domain.SeverityHigh, findings[0].Severity)
	assert.Equal(t, "high", findings[0].Confidence)
	assert.Equal(t, "http://example.com/a", findings[0].Location)

	assert.Equal(t, domain.SeverityMedium, findings[1].Severity)
	assert.Equal(t, "medium", findings[1].Confidence)
	// alert without URL falls back to the target
	assert.Equal(t, "http://example.com", findings[1].Location)

	assert.Equal(t, domain.SeverityInfo, findings[2].Severity)
	// unmapped risk words land on low
	assert.Equal(t, domain.SeverityLow, findings[3].Severity)
}

func TestNormalizeSubdomainCap(t *testing.T) {
	n, job, target, tool := normalizeFixture()
	var subs []string
	for i := 0; i < 25; i++ {
		subs = append(subs, strings.Repeat("a", i+1)+".example.com")
	}
	res := tools.Result{Tool: domain.ToolSublist3r, Subdomains: subs}

	findings, err := n.Normalize(context.Background(), job, target, tool, res, testNow)
	require.NoError(t, err)
	assert.Len(t, findings, maxSubdomainFindings)
	for _, f := range findings {
		assert.Equal(t, domain.SeverityInfo, f.Severity)
		assert.Equal(t, domain.FindingNew, f.Status)
	}
}

func TestNormalizeHttpxLiveCodesOnly(t *testing.T) {
	n, job, target, tool := normalizeFixture()
	res := tools.Result{
		Tool: domain.ToolHttpx,
		Probes: []tools.HTTPProbe{
			{URL: "http://a.example.com", StatusCode: 200, Title: "Home"},
			{URL: "http://b.example.com", StatusCode: 500},
			{URL: "http://c.example.com", StatusCode: 404},
			{URL: "http://d.example.com", StatusCode: 403},
		},
	}

	findings, err := n.Normalize(context.Background(), job, target, tool, res, testNow)
	require.NoError(t, err)
	require.Len(t, findings, 2)
	assert.Equal(t, "http://a.example.com", findings[0].Location)
	assert.Equal(t, "HTTP 200 - Home", findings[0].Evidence)
	assert.Equal(t, "http://d.example.com", findings[1].Location)
}

func TestNormalizeSQLMapCritical(t *testing.T) {
	n, job, target, tool := normalizeFixture()
	res := tools.Result{Tool: domain.ToolSQLMap, Vulnerable: true, RawOutput: "injection details"}

	findings, err := n.Normalize(context.Background(), job, target, tool, res, testNow)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, domain.SeverityCritical, findings[0].Severity)
	assert.Equal(t, "high", findings[0].Confidence)
	assert.Equal(t, target.URL, findings[0].Location)

	// no detection, no finding
	clean := tools.Result{Tool: domain.ToolSQLMap, Vulnerable: false}
	findings, err = n.Normalize(context.Background(), job, target, tool, clean, testNow)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestNormalizeGhauriWithDatabases(t *testing.T) {
	n, job, target, tool := normalizeFixture()
	res := tools.Result{
		Tool:       domain.ToolGhauri,
		Vulnerable: true,
		RawOutput:  strings.Repeat("x", 2000),
		Databases:  []string{"mysql", "app"},
	}

	findings, err := n.Normalize(context.Background(), job, target, tool, res, testNow)
	require.NoError(t, err)
	require.Len(t, findings, 2)

	assert.Equal(t, domain.SeverityCritical, findings[0].Severity)
	assert.Len(t, findings[0].Evidence, 500)

	assert.Equal(t, domain.SeverityInfo, findings[1].Severity)
	assert.Contains(t, findings[1].Evidence, "mysql, app")
}

func TestNormalizeSemgrepLocations(t *testing.T) {
	n, job, target, tool := normalizeFixture()
	res := tools.Result{
		Tool: domain.ToolSemgrep,
		StaticFindings: []tools.StaticFinding{
			{RuleID: "c.security.strcpy", Message: "no bounds check", Severity: "ERROR", Path: "/source/vulnerable.c", Line: 6},
			{RuleID: "py.hardcoded-password", Message: "hardcoded secret", Severity: "WARNING", Path: "/source/vulnerable.py", Line: 5},
		},
	}

	findings, err := n.Normalize(context.Background(), job, target, tool, res, testNow)
	require.NoError(t, err)
	require.Len(t, findings, 2)
	assert.Equal(t, domain.SeverityHigh, findings[0].Severity)
	assert.Equal(t, "/source/vulnerable.c:6", findings[0].Location)
	assert.Equal(t, domain.SeverityMedium, findings[1].Severity)
}

func TestNormalizeNucleiSeverities(t *testing.T) {
	n, job, target, tool := normalizeFixture()
	res := tools.Result{
		Tool: domain.ToolNuclei,
		Matches: []tools.TemplateMatch{
			{Name: "CVE-2021-0001", Severity: "CRITICAL", MatchedAt: "http://example.com/x"},
			{Name: "Tech Detect", Severity: "info"},
			{Name: "Unknown Scale", Severity: "weird"},
		},
	}

	findings, err := n.Normalize(context.Background(), job, target, tool, res, testNow)
	require.NoError(t, err)
	require.Len(t, findings, 3)
	assert.Equal(t, domain.SeverityCritical, findings[0].Severity)
	assert.Equal(t, "http://example.com/x", findings[0].Location)
	assert.Equal(t, domain.SeverityInfo, findings[1].Severity)
	assert.Equal(t, target.URL, findings[1].Location)
	assert.Equal(t, domain.SeverityLow, findings[2].Severity)
}
