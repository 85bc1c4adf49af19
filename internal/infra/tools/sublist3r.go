package tools

import (
	"context"
	"strings"

	domain "github.com/bagaskara/sentrascan/internal/domain/scans"
)

// Sublist3r enumerates subdomains of the target's registered domain.
type Sublist3r struct {
	runner domain.ContainerRunner
}

func NewSublist3r(runner domain.ContainerRunner) *Sublist3r {
	return &Sublist3r{runner: runner}
}

func (s *Sublist3r) Name() domain.ToolName { return domain.ToolSublist3r }

func (s *Sublist3r) Run(ctx context.Context, p Params) Result {
	dom := domainOf(p.Target)

	out, err := s.runner.Run(ctx, domain.RunSpec{
		Image: image(s.Name()),
		Cmd:   []string{"python3", "/app/sublist3r/sublist3r.py", "-d", dom},
	})
	if err != nil {
		return failedResult(s.Name(), "", err)
	}

	subdomains := parseSubdomains(out.Stdout, dom)

	status := StatusSuccess
	if out.ExitCode != 0 {
		status = StatusFailed
	}
	return Result{
		Tool:       s.Name(),
		Status:     status,
		ExitCode:   out.ExitCode,
		RawOutput:  out.Stdout,
		Error:      stderrIfFailed(out),
		Subdomains: subdomains,
	}
}

// parseSubdomains keeps lines that look like hostnames under the scanned
// domain; sublist3r mixes banner and progress noise into stdout.
func parseSubdomains(stdout, dom string) []string {
	var subdomains []string
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, ".") {
			continue
		}
		if strings.ContainsAny(line, " \t[]") {
			continue
		}
		if dom != "" && !strings.HasSuffix(line, dom) {
			continue
		}
		subdomains = append(subdomains, line)
	}
	return subdomains
}
