// Package tools holds the per-tool adapters. Each adapter builds a container
// invocation from typed parameters, runs it through the ContainerRunner port,
// and parses the tool's native output into a structured Result. Adapters never
// return errors: every fault is folded into a failed Result so the pipeline
// boundary stays exception-free.
package tools

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	domain "github.com/bagaskara/sentrascan/internal/domain/scans"
)

// Status of one tool run.
type Status string

const (
	StatusSuccess             Status = "success"
	StatusFailed              Status = "failed"
	StatusCompletedWithAlerts Status = "completed_with_alerts"
	StatusCompletedWithIssues Status = "completed_with_issues"
)

// Params is the typed input of an adapter. Exactly the fields a stage
// threads in; adapters ignore what they do not use.
type Params struct {
	Target     string   // URL, or bare domain for subdomain enumeration
	Targets    []string // probe list for HTTP service detection
	SourcePath string   // host directory for source-level analysis
	Localhost  bool     // rewrite local hostnames so the container can reach the host
}

// HTTPProbe is one httpx probe record.
type HTTPProbe struct {
	URL        string `json:"url"`
	Input      string `json:"input"`
	StatusCode int    `json:"status_code"`
	Title      string `json:"title,omitempty"`
}

// Alert is one ZAP alert.
type Alert struct {
	Name        string `json:"name"`
	Risk        string `json:"risk"`
	Description string `json:"description,omitempty"`
	Solution    string `json:"solution,omitempty"`
	Evidence    string `json:"evidence,omitempty"`
	URL         string `json:"url,omitempty"`
}

// TemplateMatch is one nuclei finding.
type TemplateMatch struct {
	Name        string `json:"name"`
	Severity    string `json:"severity"`
	Description string `json:"description,omitempty"`
	Remediation string `json:"remediation,omitempty"`
	MatchedAt   string `json:"matched_at,omitempty"`
	Evidence    string `json:"evidence,omitempty"`
}

// StaticFinding is one semgrep rule match.
type StaticFinding struct {
	RuleID   string `json:"rule_id"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Path     string `json:"path"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Category string `json:"category,omitempty"`
}

// MemoryError is one AddressSanitizer error block.
type MemoryError struct {
	Raw string `json:"raw"`
}

// Result is the discriminated record every adapter returns. The common
// fields are always set; the payload fields are per tool.
type Result struct {
	Tool      domain.ToolName `json:"tool"`
	Status    Status          `json:"status"`
	ExitCode  int             `json:"exit_code"`
	RawOutput string          `json:"raw_output,omitempty"`
	Error     string          `json:"error,omitempty"`

	Subdomains     []string        `json:"subdomains,omitempty"`
	Probes         []HTTPProbe     `json:"results,omitempty"`
	Paths          []string        `json:"paths,omitempty"`
	Alerts         []Alert         `json:"alerts,omitempty"`
	Matches        []TemplateMatch `json:"findings,omitempty"`
	Vulnerable     bool            `json:"vulnerable,omitempty"`
	Databases      []string        `json:"databases,omitempty"`
	StaticFindings []StaticFinding `json:"static_findings,omitempty"`
	MemoryErrors   []MemoryError   `json:"errors,omitempty"`
}

func (r Result) Failed() bool { return r.Status == StatusFailed }

// Adapter is the closed polymorphic "run tool" capability.
type Adapter interface {
	Name() domain.ToolName
	Run(ctx context.Context, p Params) Result
}

// Registry maps tool name to adapter.
type Registry map[domain.ToolName]Adapter

// NewRegistry wires all nine adapters over one container runner.
func NewRegistry(runner domain.ContainerRunner) Registry {
	reg := Registry{}
	for _, a := range []Adapter{
		NewSublist3r(runner),
		NewHttpx(runner),
		NewGobuster(runner),
		NewZAP(runner),
		NewNuclei(runner),
		NewSQLMap(runner),
		NewSemgrep(runner),
		NewASan(runner),
		NewGhauri(runner),
	} {
		reg[a.Name()] = a
	}
	return reg
}

func image(name domain.ToolName) string { return domain.Registry[name].Image }

// failedResult folds an invocation error into a Result without dropping
// whatever output was captured before the failure.
func failedResult(tool domain.ToolName, raw string, err error) Result {
	log.Error().Err(err).Str("tool", string(tool)).Msg("tool run failed")
	return Result{
		Tool:      tool,
		Status:    StatusFailed,
		ExitCode:  -1,
		RawOutput: raw,
		Error:     err.Error(),
	}
}

func stderrIfFailed(out domain.RunOutput) string {
	if out.ExitCode != 0 && out.Stderr != "" {
		return out.Stderr
	}
	return ""
}

func combined(out domain.RunOutput) string {
	if out.Stderr == "" {
		return out.Stdout
	}
	if out.Stdout == "" {
		return out.Stderr
	}
	return out.Stdout + "\n" + out.Stderr
}

// rewriteLocal swaps localhost/127.0.0.1 for host.docker.internal so a tool
// running inside the sandbox can reach a service on the host, and picks the
// network mode that makes that name resolvable.
func rewriteLocal(rawURL string) (scanURL, networkMode string) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL, ""
	}
	host := u.Hostname()
	if host != "localhost" && host != "127.0.0.1" {
		return rawURL, ""
	}
	newHost := "host.docker.internal"
	if p := u.Port(); p != "" {
		newHost = fmt.Sprintf("%s:%s", newHost, p)
	}
	u.Host = newHost
	return u.String(), "bridge"
}

// domainOf strips scheme, path and port from a target so tools that expect a
// bare domain get one.
func domainOf(target string) string {
	u, err := url.Parse(target)
	host := ""
	if err == nil {
		host = u.Hostname()
	}
	if host == "" {
		host = target
		if i := strings.Index(host, "://"); i >= 0 {
			host = host[i+3:]
		}
		host = strings.SplitN(host, "/", 2)[0]
		host = strings.SplitN(host, ":", 2)[0]
	}
	return host
}
