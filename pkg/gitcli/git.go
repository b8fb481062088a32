// Package gitcli wraps the git command line for clone and update
// operations. Everything runs through exec.CommandContext so cancelling
// the context kills the subprocess instead of abandoning it.
package gitcli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Non-interactive environment: never prompt for credentials and never
// smudge LFS pointers during clone.
var gitEnv = []string{
	"GIT_TERMINAL_PROMPT=0",
	"GIT_ASKPASS=echo",
	"GIT_LFS_SKIP_SMUDGE=1",
}

// Runner executes git subcommands with a fixed clone policy.
type Runner struct {
	depth      int
	lfsEnabled bool
}

// NewRunner builds a runner. depth 0 means full clones; lfsEnabled adds
// --filter=blob:none to clones when git-lfs is installed.
func NewRunner(depth int, lfsEnabled bool) *Runner {
	return &Runner{depth: depth, lfsEnabled: lfsEnabled}
}

func (r *Runner) run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), gitEnv...)
	cmd.Stdin = nil

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("git %s: %w", args[0], ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("git %s failed: %s", args[0], msg)
	}
	return stdout.String(), nil
}

// Clone clones url into path. The caller owns the timeout via ctx.
func (r *Runner) Clone(ctx context.Context, url, path string) error {
	args := []string{"clone"}
	if r.depth > 0 {
		args = append(args, "--depth", strconv.Itoa(r.depth))
	}
	if r.lfsEnabled && r.LFSAvailable() {
		args = append(args, "--filter=blob:none")
	}
	args = append(args, url, path)
	_, err := r.run(ctx, "", args...)
	return err
}

// Fetch runs git fetch in the repository at path.
func (r *Runner) Fetch(ctx context.Context, path string) error {
	_, err := r.run(ctx, path, "fetch")
	return err
}

// Pull runs git pull in the repository at path.
func (r *Runner) Pull(ctx context.Context, path string) error {
	_, err := r.run(ctx, path, "pull")
	return err
}

// StatusPorcelain returns the porcelain status output. Empty output means
// a clean worktree.
func (r *Runner) StatusPorcelain(ctx context.Context, path string) (string, error) {
	out, err := r.run(ctx, path, "status", "--porcelain")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// RevListBehind counts commits the local HEAD is behind the remote default
// branch. It tries origin/main first and falls back to origin/master.
func (r *Runner) RevListBehind(ctx context.Context, path string) (int, error) {
	for _, branch := range []string{"origin/main", "origin/master"} {
		out, err := r.run(ctx, path, "rev-list", "--count", "HEAD.."+branch)
		if err != nil {
			continue
		}
		n, convErr := strconv.Atoi(strings.TrimSpace(out))
		if convErr != nil {
			return 0, fmt.Errorf("unexpected rev-list output %q: %w", out, convErr)
		}
		return n, nil
	}
	return 0, fmt.Errorf("no origin/main or origin/master in %s", path)
}

// LFSAvailable reports whether the git-lfs binary is installed.
func (r *Runner) LFSAvailable() bool {
	_, err := exec.LookPath("git-lfs")
	return err == nil
}

// LFSInstall runs git lfs install in the repository at path.
func (r *Runner) LFSInstall(ctx context.Context, path string) error {
	_, err := r.run(ctx, path, "lfs", "install", "--local")
	return err
}

// LFSPull fetches LFS objects for the repository at path.
func (r *Runner) LFSPull(ctx context.Context, path string) error {
	_, err := r.run(ctx, path, "lfs", "pull")
	return err
}
