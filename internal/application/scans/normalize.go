package scans

import (
	"context"
	"fmt"
	"strings"
	"time"

	domain "github.com/bagaskara/sentrascan/internal/domain/scans"
	"github.com/bagaskara/sentrascan/internal/infra/tools"
)

// Caps on findings created per stage, matching the pipeline's contract.
const (
	maxSubdomainFindings = 10
	maxPathFindings      = 20
)

// liveStatusCodes are the probe responses that count as a live service.
var liveStatusCodes = map[int]bool{
	200: true, 201: true, 301: true, 302: true, 401: true, 403: true,
}

// Normalizer maps tool-specific results into generic findings against the
// shared catalog. Pure apart from catalog get-or-create.
type Normalizer struct {
	Catalog *Catalog
}

func NewNormalizer(catalog *Catalog) *Normalizer {
	return &Normalizer{Catalog: catalog}
}

// Normalize returns the findings a result gives rise to. Every tool risk
// vocabulary maps totally onto the finding severity scale; unmapped values
// land on low.
func (n *Normalizer) Normalize(ctx context.Context, job *domain.Job, target *domain.Target, tool *domain.Tool, res tools.Result, now time.Time) ([]*domain.Finding, error) {
	newFinding := func(def *domain.VulnerabilityDefinition, sev domain.Severity, location, evidence, confidence string) *domain.Finding {
		return &domain.Finding{
			JobID:        job.JobID,
			ToolID:       tool.ID,
			DefinitionID: def.ID,
			TargetID:     target.ID,
			Severity:     sev,
			Status:       domain.FindingNew,
			FirstSeenAt:  now,
			Location:     location,
			Evidence:     evidence,
			Confidence:   confidence,
		}
	}

	var findings []*domain.Finding

	switch res.Tool {
	case domain.ToolSublist3r:
		if len(res.Subdomains) == 0 {
			return nil, nil
		}
		def, err := n.Catalog.GetOrCreate(ctx, "Subdomain Discovery", "Subdomains discovered during enumeration", "")
		if err != nil {
			return nil, err
		}
		for _, sub := range capSlice(res.Subdomains, maxSubdomainFindings) {
			findings = append(findings, newFinding(def, domain.SeverityInfo, sub, "Discovered subdomain: "+sub, ""))
		}

	case domain.ToolHttpx:
		for _, probe := range res.Probes {
			if !liveStatusCodes[probe.StatusCode] {
				continue
			}
			def, err := n.Catalog.GetOrCreate(ctx, "HTTP Service Detected", "Active HTTP service discovered", "")
			if err != nil {
				return nil, err
			}
			loc := probe.URL
			if loc == "" {
				loc = probe.Input
			}
			title := probe.Title
			if title == "" {
				title = "N/A"
			}
			evidence := fmt.Sprintf("HTTP %d - %s", probe.StatusCode, title)
			findings = append(findings, newFinding(def, domain.SeverityInfo, loc, evidence, ""))
		}

	case domain.ToolGobuster:
		if len(res.Paths) == 0 {
			return nil, nil
		}
		def, err := n.Catalog.GetOrCreate(ctx, "Directory/File Discovery", "Hidden directory or file discovered", "")
		if err != nil {
			return nil, err
		}
		for _, p := range capSlice(res.Paths, maxPathFindings) {
			findings = append(findings, newFinding(def, domain.SeverityLow, p, "Discovered: "+p, ""))
		}

	case domain.ToolZAP:
		for _, alert := range res.Alerts {
			name := alert.Name
			if name == "" {
				name = "Security Issue"
			}
			def, err := n.Catalog.GetOrCreate(ctx, name, alert.Description, alert.Solution)
			if err != nil {
				return nil, err
			}
			confidence := "medium"
			if alert.Risk == "High" {
				confidence = "high"
			}
			loc := alert.URL
			if loc == "" {
				loc = target.URL
			}
			findings = append(findings, newFinding(def, zapSeverity(alert.Risk), loc, alert.Evidence, confidence))
		}

	case domain.ToolNuclei:
		for _, m := range res.Matches {
			def, err := n.Catalog.GetOrCreate(ctx, m.Name, m.Description, m.Remediation)
			if err != nil {
				return nil, err
			}
			loc := m.MatchedAt
			if loc == "" {
				loc = target.URL
			}
			findings = append(findings, newFinding(def, templateSeverity(m.Severity), loc, m.Evidence, "high"))
		}

	case domain.ToolSQLMap:
		if !res.Vulnerable {
			return nil, nil
		}
		def, err := n.Catalog.GetOrCreate(ctx, "SQL Injection",
			"SQL injection vulnerability detected",
			"Sanitize all user inputs and use parameterized queries")
		if err != nil {
			return nil, err
		}
		findings = append(findings, newFinding(def, domain.SeverityCritical, target.URL, res.RawOutput, "high"))

	case domain.ToolGhauri:
		if !res.Vulnerable {
			return nil, nil
		}
		def, err := n.Catalog.GetOrCreate(ctx, "SQL Injection (Ghauri)",
			"Ghauri detected a possible SQL injection.",
			"Use parameterized queries/prepared statements and sanitize all user inputs.")
		if err != nil {
			return nil, err
		}
		findings = append(findings, newFinding(def, domain.SeverityCritical, target.URL, clip(res.RawOutput, 500), "high"))
		if len(res.Databases) > 0 {
			enumDef, err := n.Catalog.GetOrCreate(ctx, "Database Enumeration (Ghauri)",
				"Database names enumerated through blind SQL injection.",
				"Close the injection point; enumeration follows from it.")
			if err != nil {
				return nil, err
			}
			evidence := "Databases enumerated: " + strings.Join(res.Databases, ", ")
			findings = append(findings, newFinding(enumDef, domain.SeverityInfo, target.URL, evidence, "high"))
		}

	case domain.ToolSemgrep:
		for _, f := range res.StaticFindings {
			def, err := n.Catalog.GetOrCreate(ctx, f.RuleID, f.Message, "")
			if err != nil {
				return nil, err
			}
			loc := fmt.Sprintf("%s:%d", f.Path, f.Line)
			findings = append(findings, newFinding(def, semgrepSeverity(f.Severity), loc, f.Message, ""))
		}

	case domain.ToolASan:
		if len(res.MemoryErrors) == 0 {
			return nil, nil
		}
		def, err := n.Catalog.GetOrCreate(ctx, "AddressSanitizer memory error",
			"AddressSanitizer detected a memory safety violation.",
			"Investigate the reported stack trace and fix the offending code.")
		if err != nil {
			return nil, err
		}
		for _, e := range res.MemoryErrors {
			findings = append(findings, newFinding(def, domain.SeverityHigh, target.URL, clip(e.Raw, 500), ""))
		}
	}

	return findings, nil
}

func zapSeverity(risk string) domain.Severity {
	switch risk {
	case "High":
		return domain.SeverityHigh
	case "Medium":
		return domain.SeverityMedium
	case "Low":
		return domain.SeverityLow
	case "Informational":
		return domain.SeverityInfo
	}
	return domain.SeverityLow
}

func templateSeverity(severity string) domain.Severity {
	switch strings.ToLower(severity) {
	case "critical":
		return domain.SeverityCritical
	case "high":
		return domain.SeverityHigh
	case "medium":
		return domain.SeverityMedium
	case "low":
		return domain.SeverityLow
	case "info":
		return domain.SeverityInfo
	}
	return domain.SeverityLow
}

func semgrepSeverity(severity string) domain.Severity {
	switch strings.ToUpper(severity) {
	case "ERROR":
		return domain.SeverityHigh
	case "WARNING":
		return domain.SeverityMedium
	case "INFO":
		return domain.SeverityInfo
	}
	return domain.SeverityLow
}

func capSlice(xs []string, max int) []string {
	if len(xs) > max {
		return xs[:max]
	}
	return xs
}

func clip(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
