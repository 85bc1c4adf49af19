package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	domain "github.com/bagaskara/sentrascan/internal/domain/scans"
)

// Httpx probes a list of hosts for live HTTP services.
type Httpx struct {
	runner domain.ContainerRunner
}

func NewHttpx(runner domain.ContainerRunner) *Httpx {
	return &Httpx{runner: runner}
}

func (h *Httpx) Name() domain.ToolName { return domain.ToolHttpx }

func (h *Httpx) Run(ctx context.Context, p Params) Result {
	// The target list goes in through a read-only file mount rather than a
	// shell pipe, so hostnames never touch a shell.
	listPath, cleanup, err := writeTempFile("httpx-targets-*.txt", strings.Join(p.Targets, "\n"))
	if err != nil {
		return failedResult(h.Name(), "", err)
	}
	defer cleanup()

	out, err := h.runner.Run(ctx, domain.RunSpec{
		Image: image(h.Name()),
		Cmd:   []string{"/app/httpx", "-l", "/targets.txt", "-json", "-silent"},
		Mounts: []domain.Mount{
			{HostPath: listPath, ContainerPath: "/targets.txt", ReadOnly: true},
		},
	})
	if err != nil {
		return failedResult(h.Name(), "", err)
	}

	var probes []HTTPProbe
	for _, line := range strings.Split(out.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var probe HTTPProbe
		if err := json.Unmarshal([]byte(line), &probe); err != nil {
			continue
		}
		probes = append(probes, probe)
	}

	status := StatusSuccess
	if out.ExitCode != 0 {
		status = StatusFailed
	}
	return Result{
		Tool:      h.Name(),
		Status:    status,
		ExitCode:  out.ExitCode,
		RawOutput: out.Stdout,
		Error:     stderrIfFailed(out),
		Probes:    probes,
	}
}

// writeTempFile drops content under ./temp and returns the absolute path
// plus a cleanup func. Docker needs an absolute host path for the bind.
func writeTempFile(pattern, content string) (string, func(), error) {
	dir := filepath.Join(".", "temp")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("create temp dir: %w", err)
	}
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	name := f.Name()
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		os.Remove(name)
		return "", nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", nil, err
	}
	abs, err := filepath.Abs(name)
	if err != nil {
		os.Remove(name)
		return "", nil, err
	}
	return abs, func() { os.Remove(name) }, nil
}
