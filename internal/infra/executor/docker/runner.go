// Package docker executes tool containers through the docker CLI. The
// command line is assembled from a structured RunSpec; no caller data is
// ever interpolated into a shell string.
package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/rs/zerolog/log"

	domain "github.com/bagaskara/sentrascan/internal/domain/scans"
)

type Runner struct {
	timeout time.Duration
}

// NewRunner builds a runner that caps each container at timeout (zero means
// only the caller's context applies).
func NewRunner(timeout time.Duration) *Runner {
	return &Runner{timeout: timeout}
}

func (r *Runner) Run(ctx context.Context, spec domain.RunSpec) (domain.RunOutput, error) {
	if spec.Image == "" {
		return domain.RunOutput{}, errors.New("docker: empty image")
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	args := buildArgs(spec)
	log.Debug().Str("image", spec.Image).Strs("args", args).Msg("running container")

	cmd := exec.CommandContext(ctx, "docker", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	out := domain.RunOutput{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		var ee *exec.ExitError
		if !errors.As(err, &ee) {
			// docker missing, context expired before start, etc.
			return domain.RunOutput{}, fmt.Errorf("docker run %s: %w", spec.Image, err)
		}
		if ctx.Err() != nil {
			return domain.RunOutput{}, fmt.Errorf("docker run %s: %w", spec.Image, ctx.Err())
		}
		out.ExitCode = ee.ExitCode()
	}

	log.Info().
		Str("image", spec.Image).
		Int("exit_code", out.ExitCode).
		Dur("elapsed", elapsed).
		Msg("container finished")
	return out, nil
}

func buildArgs(spec domain.RunSpec) []string {
	args := []string{"run", "--rm"}
	if spec.NetworkMode != "" {
		args = append(args, "--network", spec.NetworkMode)
	}
	for _, m := range spec.Mounts {
		bind := fmt.Sprintf("%s:%s", m.HostPath, m.ContainerPath)
		if m.ReadOnly {
			bind += ":ro"
		}
		args = append(args, "-v", bind)
	}
	for k, v := range spec.Env {
		args = append(args, "-e", fmt.Sprintf("%s=%s", k, v))
	}
	for path, opts := range spec.Tmpfs {
		mount := path
		if opts != "" {
			mount += ":" + opts
		}
		args = append(args, "--tmpfs", mount)
	}
	args = append(args, spec.Image)
	args = append(args, spec.Cmd...)
	return args
}
