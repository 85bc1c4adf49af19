package tools

import (
	"context"
	"path/filepath"
	"strings"

	domain "github.com/bagaskara/sentrascan/internal/domain/scans"
)

const asanErrorMarker = "ERROR: AddressSanitizer"

// ASan compiles C/C++ sources with -fsanitize=address and runs the result.
// With no source directory the image builds a demo vulnerable program, so
// the detection path can be exercised against bare URLs too.
type ASan struct {
	runner domain.ContainerRunner
}

func NewASan(runner domain.ContainerRunner) *ASan {
	return &ASan{runner: runner}
}

func (a *ASan) Name() domain.ToolName { return domain.ToolASan }

func (a *ASan) Run(ctx context.Context, p Params) Result {
	spec := domain.RunSpec{
		Image: image(a.Name()),
		Cmd:   []string{"/app/run_asan.sh"},
		Env:   map[string]string{"USE_DEMO": "true"},
	}
	if strings.TrimSpace(p.SourcePath) != "" {
		host, err := filepath.Abs(p.SourcePath)
		if err != nil {
			return failedResult(a.Name(), "", err)
		}
		spec.Mounts = []domain.Mount{{HostPath: host, ContainerPath: "/source", ReadOnly: true}}
		spec.Env["USE_DEMO"] = "false"
	}

	out, err := a.runner.Run(ctx, spec)
	if err != nil {
		return failedResult(a.Name(), "", err)
	}

	full := combined(out)
	errors := parseASanBlocks(full)

	var status Status
	switch {
	case len(errors) > 0:
		status = StatusCompletedWithIssues
	case out.ExitCode == 0:
		status = StatusSuccess
	default:
		status = StatusFailed
	}
	return Result{
		Tool:         a.Name(),
		Status:       status,
		ExitCode:     out.ExitCode,
		RawOutput:    full,
		Error:        stderrIfFailed(out),
		MemoryErrors: errors,
	}
}

// parseASanBlocks collects each AddressSanitizer report, from its ERROR
// header down to the next blank line.
func parseASanBlocks(output string) []MemoryError {
	if !strings.Contains(output, asanErrorMarker) {
		return nil
	}
	var (
		blocks    []MemoryError
		current   []string
		capturing bool
	)
	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, asanErrorMarker) {
			if len(current) > 0 {
				blocks = append(blocks, MemoryError{Raw: strings.Join(current, "\n")})
				current = nil
			}
			capturing = true
		}
		if capturing {
			current = append(current, line)
			if strings.TrimSpace(line) == "" {
				capturing = false
			}
		}
	}
	if len(current) > 0 {
		blocks = append(blocks, MemoryError{Raw: strings.Join(current, "\n")})
	}
	return blocks
}
