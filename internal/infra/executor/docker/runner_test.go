package docker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domain "github.com/bagaskara/sentrascan/internal/domain/scans"
)

func TestBuildArgsMinimal(t *testing.T) {
	args := buildArgs(domain.RunSpec{
		Image: "security-tools:nuclei",
		Cmd:   []string{"/app/nuclei", "-u", "http://example.com"},
	})
	assert.Equal(t, []string{
		"run", "--rm",
		"security-tools:nuclei",
		"/app/nuclei", "-u", "http://example.com",
	}, args)
}

func TestBuildArgsFull(t *testing.T) {
	args := buildArgs(domain.RunSpec{
		Image:       "security-tools:zap",
		Cmd:         []string{"python3", "/app/zap-baseline.py", "-t", "http://host.docker.internal:3000"},
		NetworkMode: "bridge",
		Mounts: []domain.Mount{
			{HostPath: "/tmp/targets.txt", ContainerPath: "/targets.txt", ReadOnly: true},
		},
		Tmpfs: map[string]string{"/zap/wrk": "size=100m"},
	})

	assert.Equal(t, "run", args[0])
	assert.Equal(t, "--rm", args[1])
	assert.Contains(t, args, "--network")
	assert.Contains(t, args, "bridge")
	assert.Contains(t, args, "-v")
	assert.Contains(t, args, "/tmp/targets.txt:/targets.txt:ro")
	assert.Contains(t, args, "--tmpfs")
	assert.Contains(t, args, "/zap/wrk:size=100m")

	// image comes right before the command
	assert.Equal(t, "security-tools:zap", args[len(args)-5])
	assert.Equal(t, "python3", args[len(args)-4])
}

func TestBuildArgsEnv(t *testing.T) {
	args := buildArgs(domain.RunSpec{
		Image: "security-tools:addresssanitizer",
		Cmd:   []string{"/app/run_asan.sh"},
		Env:   map[string]string{"USE_DEMO": "true"},
	})
	assert.Contains(t, args, "-e")
	assert.Contains(t, args, "USE_DEMO=true")
}

func TestTargetDataIsDiscreteArgs(t *testing.T) {
	// A hostile target URL stays a single argv element, it is never joined
	// into a shell string.
	hostile := "http://example.com/;rm -rf /"
	args := buildArgs(domain.RunSpec{
		Image: "security-tools:sqlmap",
		Cmd:   []string{"python3", "/app/sqlmap/sqlmap.py", "-u", hostile, "--batch"},
	})
	assert.Contains(t, args, hostile)
}
