package tools

import (
	"context"
	"strings"

	domain "github.com/bagaskara/sentrascan/internal/domain/scans"
)

// Ghauri tests one URL for blind SQL injection. Used by the localhost
// pipeline, so the target hostname gets rewritten for in-container reach.
type Ghauri struct {
	runner domain.ContainerRunner
}

func NewGhauri(runner domain.ContainerRunner) *Ghauri {
	return &Ghauri{runner: runner}
}

func (g *Ghauri) Name() domain.ToolName { return domain.ToolGhauri }

func (g *Ghauri) Run(ctx context.Context, p Params) Result {
	scanURL := p.Target
	networkMode := ""
	if p.Localhost {
		scanURL, networkMode = rewriteLocal(p.Target)
	}

	out, err := g.runner.Run(ctx, domain.RunSpec{
		Image: image(g.Name()),
		Cmd: []string{
			"python3", "/app/ghauri/ghauri.py",
			"-u", scanURL,
			"--batch", "--level", "1", "--dbs",
		},
		NetworkMode: networkMode,
	})
	if err != nil {
		return failedResult(g.Name(), "", err)
	}

	full := combined(out)
	vulnerable := ghauriVulnerable(full)
	databases := parseGhauriDatabases(full)

	status := StatusSuccess
	if out.ExitCode != 0 {
		status = StatusFailed
	}
	if vulnerable && status == StatusSuccess {
		status = StatusCompletedWithIssues
	}
	return Result{
		Tool:       g.Name(),
		Status:     status,
		ExitCode:   out.ExitCode,
		RawOutput:  full,
		Error:      stderrIfFailed(out),
		Vulnerable: vulnerable,
		Databases:  databases,
	}
}

func ghauriVulnerable(output string) bool {
	lower := strings.ToLower(output)
	return strings.Contains(lower, "is vulnerable") ||
		strings.Contains(lower, "identified the following injection point") ||
		strings.Contains(lower, "injection confirmed")
}

// parseGhauriDatabases reads the "[*] db" lines following the available
// databases banner.
func parseGhauriDatabases(output string) []string {
	lower := strings.ToLower(output)
	idx := strings.Index(lower, "available databases")
	if idx < 0 {
		return nil
	}
	var dbs []string
	for _, line := range strings.Split(output[idx:], "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "[*]") {
			continue
		}
		name := strings.TrimSpace(strings.TrimPrefix(line, "[*]"))
		if name != "" {
			dbs = append(dbs, name)
		}
	}
	return dbs
}
