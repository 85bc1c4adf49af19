package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	domain "github.com/bagaskara/sentrascan/internal/domain/scans"
)

// ZAP runs the OWASP ZAP baseline scan against one URL.
type ZAP struct {
	runner domain.ContainerRunner
}

func NewZAP(runner domain.ContainerRunner) *ZAP {
	return &ZAP{runner: runner}
}

func (z *ZAP) Name() domain.ToolName { return domain.ToolZAP }

func (z *ZAP) Run(ctx context.Context, p Params) Result {
	scanURL := p.Target
	networkMode := ""
	if p.Localhost {
		scanURL, networkMode = rewriteLocal(p.Target)
	}

	log.Info().Str("url", scanURL).Bool("localhost", p.Localhost).Msg("running zap baseline scan")

	// zap-baseline needs a writable /zap/wrk; a size-capped tmpfs keeps the
	// container free of bind mounts.
	out, err := z.runner.Run(ctx, domain.RunSpec{
		Image:       image(z.Name()),
		Cmd:         []string{"python3", "/app/zap-baseline.py", "-t", scanURL, "-I", "-J", "-j", "-m", "1", "-T", "2"},
		Tmpfs:       map[string]string{"/zap/wrk": "size=100m"},
		NetworkMode: networkMode,
	})
	if err != nil {
		return failedResult(z.Name(), "", err)
	}

	alerts := parseZAPJSON(out.Stdout, p.Target)
	if len(alerts) == 0 {
		alerts = parseZAPText(out.Stdout, p.Target)
	}

	return Result{
		Tool:      z.Name(),
		Status:    zapStatus(out, len(alerts)),
		ExitCode:  out.ExitCode,
		RawOutput: out.Stdout,
		Error:     stderrIfFailed(out),
		Alerts:    alerts,
	}
}

// zapStatus separates "could not run" from "ran and found things". The
// baseline script exits 2 on warnings and may exit non-zero whenever any
// alert fired, so the exit code alone is not trustworthy.
func zapStatus(out domain.RunOutput, alertCount int) Status {
	if out.ExitCode != 0 && out.ExitCode != 2 {
		if strings.Contains(out.Stdout, "Failed to start ZAP") ||
			strings.Contains(out.Stderr, "Failed to start ZAP") {
			return StatusFailed
		}
		if alertCount > 0 {
			return StatusCompletedWithAlerts
		}
		return StatusFailed
	}
	if alertCount > 0 {
		return StatusCompletedWithAlerts
	}
	return StatusSuccess
}

var zapJSONRe = regexp.MustCompile(`(?s)\{.*"@version".*\}`)

// parseZAPJSON pulls the report JSON out of the mixed stdout stream.
func parseZAPJSON(stdout, targetURL string) []Alert {
	match := zapJSONRe.FindString(stdout)
	if match == "" {
		return nil
	}

	var report struct {
		Site []struct {
			Alerts []struct {
				Name        string `json:"name"`
				Risk        string `json:"riskdesc"`
				RiskCode    string `json:"riskcode"`
				Alert       string `json:"alert"`
				Description string `json:"desc"`
				Solution    string `json:"solution"`
				Instances   []struct {
					URI      string `json:"uri"`
					Evidence string `json:"evidence"`
				} `json:"instances"`
			} `json:"alerts"`
		} `json:"site"`
	}
	if err := json.Unmarshal([]byte(match), &report); err != nil {
		log.Warn().Err(err).Msg("zap report json did not parse, falling back to text output")
		return nil
	}
	if len(report.Site) == 0 {
		return nil
	}

	var alerts []Alert
	for _, a := range report.Site[0].Alerts {
		name := a.Name
		if name == "" {
			name = a.Alert
		}
		if name == "" {
			name = "Security Issue"
		}
		al := Alert{
			Name:        name,
			Risk:        zapRiskWord(a.Risk, a.RiskCode),
			Description: a.Description,
			Solution:    a.Solution,
			URL:         targetURL,
		}
		if len(a.Instances) > 0 {
			al.Evidence = a.Instances[0].Evidence
			if a.Instances[0].URI != "" {
				al.URL = a.Instances[0].URI
			}
		}
		alerts = append(alerts, al)
	}
	return alerts
}

// zapRiskWord reduces "Medium (High)"-style riskdesc values, or a bare
// numeric riskcode, to the single risk word the normalizer maps on.
func zapRiskWord(riskdesc, riskcode string) string {
	if i := strings.IndexAny(riskdesc, " ("); i > 0 {
		riskdesc = riskdesc[:i]
	}
	if riskdesc != "" {
		return riskdesc
	}
	switch riskcode {
	case "3":
		return "High"
	case "2":
		return "Medium"
	case "1":
		return "Low"
	case "0":
		return "Informational"
	}
	return "Info"
}

var (
	zapWarnRe = regexp.MustCompile(`WARN-NEW:\s+(.+?)\s+\[(\d+)\]\s+x\s+(\d+)`)
	zapFailRe = regexp.MustCompile(`FAIL-NEW:\s+(.+?)\s+\[(\d+)\]\s+x\s+(\d+)`)
	zapURLRe  = regexp.MustCompile(`(https?://[^\s]+)`)
)

// parseZAPText extracts WARN-NEW / FAIL-NEW summary lines when the JSON
// report is absent, keeping one alert per affected URL.
func parseZAPText(stdout, targetURL string) []Alert {
	type pending struct {
		name, risk, id string
		count          int
		urls           []string
	}

	var order []string
	byName := map[string]*pending{}
	var current *pending

	for _, line := range strings.Split(stdout, "\n") {
		if m := zapWarnRe.FindStringSubmatch(line); m != nil {
			current = &pending{name: strings.TrimSpace(m[1]), risk: "Medium", id: m[2], count: atoiSafe(m[3])}
			byName[current.name] = current
			order = append(order, current.name)
			continue
		}
		if m := zapFailRe.FindStringSubmatch(line); m != nil {
			current = &pending{name: strings.TrimSpace(m[1]), risk: "High", id: m[2], count: atoiSafe(m[3])}
			byName[current.name] = current
			order = append(order, current.name)
			continue
		}
		if current != nil && strings.HasPrefix(strings.TrimSpace(line), "http") {
			if m := zapURLRe.FindStringSubmatch(line); m != nil && !contains(current.urls, m[1]) {
				current.urls = append(current.urls, m[1])
			}
		}
	}

	var alerts []Alert
	for _, name := range order {
		w := byName[name]
		if len(w.urls) == 0 {
			alerts = append(alerts, Alert{
				Name:        w.name,
				Risk:        w.risk,
				Description: fmt.Sprintf("ZAP detected %s (Alert ID: %s, Count: %d)", w.name, w.id, w.count),
				Solution:    "Review and fix the security issue identified by ZAP",
				Evidence:    fmt.Sprintf("Found %d instance(s)", w.count),
				URL:         targetURL,
			})
			continue
		}
		for _, u := range w.urls {
			alerts = append(alerts, Alert{
				Name:        w.name,
				Risk:        w.risk,
				Description: fmt.Sprintf("ZAP detected %s (Alert ID: %s)", w.name, w.id),
				Solution:    "Review and fix the security issue identified by ZAP",
				Evidence:    "Found on " + u,
				URL:         u,
			})
		}
	}
	return alerts
}

func atoiSafe(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return n
		}
		n = n*10 + int(c-'0')
	}
	return n
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
