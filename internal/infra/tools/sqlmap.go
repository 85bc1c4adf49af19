package tools

import (
	"context"
	"strings"

	domain "github.com/bagaskara/sentrascan/internal/domain/scans"
)

const sqlmapInjectionMarker = "sqlmap identified the following injection point"

// SQLMap tests one URL for SQL injection.
type SQLMap struct {
	runner domain.ContainerRunner
}

func NewSQLMap(runner domain.ContainerRunner) *SQLMap {
	return &SQLMap{runner: runner}
}

func (s *SQLMap) Name() domain.ToolName { return domain.ToolSQLMap }

func (s *SQLMap) Run(ctx context.Context, p Params) Result {
	out, err := s.runner.Run(ctx, domain.RunSpec{
		Image: image(s.Name()),
		Cmd: []string{
			"python3", "/app/sqlmap/sqlmap.py",
			"-u", p.Target,
			"--batch", "--level=1", "--risk=1",
		},
	})
	if err != nil {
		return failedResult(s.Name(), "", err)
	}

	vulnerable := strings.Contains(strings.ToLower(out.Stdout), sqlmapInjectionMarker)

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
		Vulnerable: vulnerable,
	}
}
