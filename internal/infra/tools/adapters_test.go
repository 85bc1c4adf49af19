package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bagaskara/sentrascan/internal/domain/scans"
)

// fakeRunner records the RunSpec it receives and plays back a canned output.
type fakeRunner struct {
	spec domain.RunSpec
	out  domain.RunOutput
	err  error
}

func (f *fakeRunner) Run(ctx context.Context, spec domain.RunSpec) (domain.RunOutput, error) {
	f.spec = spec
	return f.out, f.err
}

func TestAdapterNeverErrorsOnRunnerFault(t *testing.T) {
	runner := &fakeRunner{err: errors.New("docker daemon unreachable")}
	for name, adapter := range NewRegistry(runner) {
		res := adapter.Run(context.Background(), Params{Target: "http://example.com", Targets: []string{"http://example.com"}})
		assert.Equal(t, StatusFailed, res.Status, "tool %s", name)
		assert.Equal(t, -1, res.ExitCode, "tool %s", name)
		assert.NotEmpty(t, res.Error, "tool %s", name)
	}
}

func TestSQLMapDetectsInjection(t *testing.T) {
	runner := &fakeRunner{out: domain.RunOutput{
		Stdout:   "...\nsqlmap identified the following injection point(s) with a total of 46 HTTP(s) requests:\n...",
		ExitCode: 0,
	}}
	res := NewSQLMap(runner).Run(context.Background(), Params{Target: "http://testphp.vulnweb.com/artists.php?artist=1"})

	assert.Equal(t, StatusSuccess, res.Status)
	assert.True(t, res.Vulnerable)
	assert.Equal(t, []string{"python3", "/app/sqlmap/sqlmap.py", "-u",
		"http://testphp.vulnweb.com/artists.php?artist=1", "--batch", "--level=1", "--risk=1"},
		runner.spec.Cmd)
}

func TestZAPLocalhostRewrite(t *testing.T) {
	runner := &fakeRunner{out: domain.RunOutput{ExitCode: 0}}
	res := NewZAP(runner).Run(context.Background(), Params{Target: "http://localhost:3000", Localhost: true})

	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "bridge", runner.spec.NetworkMode)
	assert.Contains(t, runner.spec.Cmd, "http://host.docker.internal:3000")
	assert.Equal(t, "size=100m", runner.spec.Tmpfs["/zap/wrk"])
}

func TestZAPKeepsOriginalURLInAlerts(t *testing.T) {
	runner := &fakeRunner{out: domain.RunOutput{
		Stdout:   "WARN-NEW: Missing Header [10020] x 1\n",
		ExitCode: 2,
	}}
	res := NewZAP(runner).Run(context.Background(), Params{Target: "http://localhost:3000", Localhost: true})

	require.Len(t, res.Alerts, 1)
	// alerts report the user's URL, not the rewritten one
	assert.Equal(t, "http://localhost:3000", res.Alerts[0].URL)
	assert.Equal(t, StatusCompletedWithAlerts, res.Status)
}

func TestGhauriVulnerableStatus(t *testing.T) {
	runner := &fakeRunner{out: domain.RunOutput{
		Stdout:   "Ghauri identified the following injection point(s)\navailable databases [1]:\n[*] app\n",
		ExitCode: 0,
	}}
	res := NewGhauri(runner).Run(context.Background(), Params{Target: "http://localhost:8000/item?id=1", Localhost: true})

	assert.Equal(t, StatusCompletedWithIssues, res.Status)
	assert.True(t, res.Vulnerable)
	assert.Equal(t, []string{"app"}, res.Databases)
	assert.Equal(t, "bridge", runner.spec.NetworkMode)
	assert.Contains(t, runner.spec.Cmd, "http://host.docker.internal:8000/item?id=1")
}

func TestSemgrepRanIfFindingsDespiteExit(t *testing.T) {
	runner := &fakeRunner{out: domain.RunOutput{
		Stdout:   `{"results":[{"check_id":"r1","path":"/source/a.py","start":{"line":1,"col":1},"extra":{"message":"m","severity":"WARNING"}}]}`,
		ExitCode: 1,
	}}
	res := NewSemgrep(runner).Run(context.Background(), Params{Target: "http://example.com"})

	assert.Equal(t, StatusSuccess, res.Status)
	require.Len(t, res.StaticFindings, 1)
	// URL-only target runs the demo script through sh -c
	assert.Equal(t, "sh", runner.spec.Cmd[0])
}

func TestSemgrepMountsSource(t *testing.T) {
	runner := &fakeRunner{out: domain.RunOutput{ExitCode: 0}}
	NewSemgrep(runner).Run(context.Background(), Params{SourcePath: "/tmp/project"})

	require.Len(t, runner.spec.Mounts, 1)
	assert.Equal(t, "/tmp/project", runner.spec.Mounts[0].HostPath)
	assert.Equal(t, "/source", runner.spec.Mounts[0].ContainerPath)
	assert.True(t, runner.spec.Mounts[0].ReadOnly)
	assert.Equal(t, "semgrep", runner.spec.Cmd[0])
}

func TestASanModes(t *testing.T) {
	runner := &fakeRunner{out: domain.RunOutput{ExitCode: 0}}
	NewASan(runner).Run(context.Background(), Params{})
	assert.Equal(t, "true", runner.spec.Env["USE_DEMO"])
	assert.Empty(t, runner.spec.Mounts)

	NewASan(runner).Run(context.Background(), Params{SourcePath: "/tmp/project"})
	assert.Equal(t, "false", runner.spec.Env["USE_DEMO"])
	require.Len(t, runner.spec.Mounts, 1)
	assert.Equal(t, "/source", runner.spec.Mounts[0].ContainerPath)
}

func TestASanErrorsMeanIssues(t *testing.T) {
	runner := &fakeRunner{out: domain.RunOutput{
		Stdout:   "==1==ERROR: AddressSanitizer: stack-buffer-overflow\n  #0 main\n",
		ExitCode: 1,
	}}
	res := NewASan(runner).Run(context.Background(), Params{})

	assert.Equal(t, StatusCompletedWithIssues, res.Status)
	require.Len(t, res.MemoryErrors, 1)
}

func TestHttpxParsesProbes(t *testing.T) {
	runner := &fakeRunner{out: domain.RunOutput{
		Stdout: `{"url":"http://www.example.com","input":"www.example.com","status_code":200,"title":"Example"}
{"url":"http://dead.example.com","input":"dead.example.com","status_code":503}
garbage line`,
		ExitCode: 0,
	}}
	res := NewHttpx(runner).Run(context.Background(), Params{Targets: []string{"http://www.example.com", "http://dead.example.com"}})

	assert.Equal(t, StatusSuccess, res.Status)
	require.Len(t, res.Probes, 2)
	assert.Equal(t, 200, res.Probes[0].StatusCode)
	assert.Equal(t, "Example", res.Probes[0].Title)

	// target list travels via a read-only file mount, never a shell pipe
	require.Len(t, runner.spec.Mounts, 1)
	assert.Equal(t, "/targets.txt", runner.spec.Mounts[0].ContainerPath)
	assert.True(t, runner.spec.Mounts[0].ReadOnly)
}

func TestGobusterWordlistMount(t *testing.T) {
	runner := &fakeRunner{out: domain.RunOutput{
		Stdout:   "/admin (Status: 301)\n/login (Status: 200)\n",
		ExitCode: 0,
	}}
	res := NewGobuster(runner).Run(context.Background(), Params{Target: "http://example.com"})

	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, []string{"/admin (Status: 301)", "/login (Status: 200)"}, res.Paths)
	require.Len(t, runner.spec.Mounts, 1)
	assert.Equal(t, "/wordlist.txt", runner.spec.Mounts[0].ContainerPath)
}

func TestSublist3rUsesBareDomain(t *testing.T) {
	runner := &fakeRunner{out: domain.RunOutput{
		Stdout:   "www.example.com\napi.example.com\n",
		ExitCode: 0,
	}}
	res := NewSublist3r(runner).Run(context.Background(), Params{Target: "https://example.com/app"})

	assert.Equal(t, []string{"www.example.com", "api.example.com"}, res.Subdomains)
	assert.Contains(t, runner.spec.Cmd, "example.com")
	assert.NotContains(t, runner.spec.Cmd, "https://example.com/app")
}
