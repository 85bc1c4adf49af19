package tools

import (
	"context"
	"encoding/json"
	"strings"

	domain "github.com/bagaskara/sentrascan/internal/domain/scans"
)

// Nuclei runs template-based vulnerability scanning against one URL.
type Nuclei struct {
	runner domain.ContainerRunner
}

func NewNuclei(runner domain.ContainerRunner) *Nuclei {
	return &Nuclei{runner: runner}
}

func (n *Nuclei) Name() domain.ToolName { return domain.ToolNuclei }

func (n *Nuclei) Run(ctx context.Context, p Params) Result {
	out, err := n.runner.Run(ctx, domain.RunSpec{
		Image: image(n.Name()),
		Cmd: []string{
			"/app/nuclei", "-u", p.Target,
			"-j", "-silent", "-nc",
			"-timeout", "30", "-rate-limit", "50",
		},
	})
	if err != nil {
		return failedResult(n.Name(), "", err)
	}

	matches := parseNucleiJSONL(out.Stdout)

	status := StatusSuccess
	if out.ExitCode != 0 {
		status = StatusFailed
	}
	return Result{
		Tool:      n.Name(),
		Status:    status,
		ExitCode:  out.ExitCode,
		RawOutput: out.Stdout,
		Error:     stderrIfFailed(out),
		Matches:   matches,
	}
}

// parseNucleiJSONL reads one finding per line; lines that are not JSON are
// dropped (nuclei occasionally interleaves warnings even with -silent).
func parseNucleiJSONL(stdout string) []TemplateMatch {
	var matches []TemplateMatch
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "{") {
			continue
		}
		var obj struct {
			Info struct {
				Name        string `json:"name"`
				Severity    string `json:"severity"`
				Description string `json:"description"`
				Remediation string `json:"remediation"`
			} `json:"info"`
			MatchedAt   string `json:"matched-at"`
			CurlCommand string `json:"curl-command"`
		}
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			continue
		}
		name := obj.Info.Name
		if name == "" {
			name = "Vulnerability"
		}
		matches = append(matches, TemplateMatch{
			Name:        name,
			Severity:    obj.Info.Severity,
			Description: obj.Info.Description,
			Remediation: obj.Info.Remediation,
			MatchedAt:   obj.MatchedAt,
			Evidence:    obj.CurlCommand,
		})
	}
	return matches
}
