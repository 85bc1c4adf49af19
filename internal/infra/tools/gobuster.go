package tools

import (
	"context"
	"strings"

	domain "github.com/bagaskara/sentrascan/internal/domain/scans"
)

// commonPaths is the built-in wordlist used when the caller supplies none.
var commonPaths = []string{
	"admin", "api", "assets", "backup", "backups", "config", "configuration",
	"css", "database", "demo", "dev", "development", "docs", "documentation",
	"download", "example", "files", "help", "home", "images", "img", "index",
	"info.php", "install", "installer", "js", "login", "logout", "main", "new",
	"old", "page", "php", "phpinfo", "phpinfo.php", "phpmyadmin", "private",
	"prod", "production", "public", "register", "rest", "robots.txt", "sample",
	"scripts", "settings", "setup", "signin", "signup", "sitemap.xml",
	"staging", "static", "support", "test", "testing", "tmp", "upload",
	"uploads", "v1", "v2", "wordpress", "wp", "www", "xml", "json", "about",
	"contact", "administrator",
}

// Gobuster brute-forces directories and files on a live URL.
type Gobuster struct {
	runner domain.ContainerRunner
}

func NewGobuster(runner domain.ContainerRunner) *Gobuster {
	return &Gobuster{runner: runner}
}

func (g *Gobuster) Name() domain.ToolName { return domain.ToolGobuster }

func (g *Gobuster) Run(ctx context.Context, p Params) Result {
	wordlist, cleanup, err := writeTempFile("gobuster-words-*.txt", strings.Join(commonPaths, "\n"))
	if err != nil {
		return failedResult(g.Name(), "", err)
	}
	defer cleanup()

	out, err := g.runner.Run(ctx, domain.RunSpec{
		Image: image(g.Name()),
		Cmd:   []string{"/app/gobuster", "dir", "-u", p.Target, "-w", "/wordlist.txt", "-f", "-k", "-q"},
		Mounts: []domain.Mount{
			{HostPath: wordlist, ContainerPath: "/wordlist.txt", ReadOnly: true},
		},
	})
	if err != nil {
		return failedResult(g.Name(), "", err)
	}

	var paths []string
	for _, line := range strings.Split(out.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.Contains(line, "Status:") || strings.Contains(line, "/") {
			paths = append(paths, line)
		}
	}

	status := StatusSuccess
	if out.ExitCode != 0 {
		status = StatusFailed
	}
	return Result{
		Tool:      g.Name(),
		Status:    status,
		ExitCode:  out.ExitCode,
		RawOutput: out.Stdout,
		Error:     stderrIfFailed(out),
		Paths:     paths,
	}
}
