// Package gitcli wraps the git command line as the ledger's storage engine.
//
// Motions live on branches, ballots and delegations live on loose refs
// pointing at blobs, and debate entries live in notes. Every git invocation
// goes through the Executor interface so tests can script git behavior
// without a real repository.
package gitcli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Executor abstracts command execution for testability.
type Executor interface {
	// Run executes a command and returns its stdout.
	Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error)

	// RunInput executes a command with the given stdin and returns its stdout.
	RunInput(ctx context.Context, dir string, stdin string, name string, args ...string) ([]byte, error)

	// RunEnv executes a command with extra environment variables appended to
	// the inherited environment, returning its stdout.
	RunEnv(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error)
}

// CLIExecutor executes commands using os/exec.
type CLIExecutor struct{}

// NewCLIExecutor creates a new CLI executor.
func NewCLIExecutor() *CLIExecutor {
	return &CLIExecutor{}
}

// Run executes a command and returns its stdout.
func (e *CLIExecutor) Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	return e.run(ctx, dir, "", nil, name, args...)
}

// RunInput executes a command with the given stdin.
func (e *CLIExecutor) RunInput(ctx context.Context, dir string, stdin string, name string, args ...string) ([]byte, error) {
	return e.run(ctx, dir, stdin, nil, name, args...)
}

// RunEnv executes a command with extra environment variables.
func (e *CLIExecutor) RunEnv(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error) {
	return e.run(ctx, dir, "", env, name, args...)
}

func (e *CLIExecutor) run(ctx context.Context, dir, stdin string, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}
		if msg != "" {
			return stdout.Bytes(), fmt.Errorf("%w: %s", err, msg)
		}
		return stdout.Bytes(), err
	}
	return stdout.Bytes(), nil
}
