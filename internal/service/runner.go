package service

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes service-manager commands. Tests substitute a fake; the
// returned output is combined stdout+stderr with surrounding space trimmed,
// available even when the command exits non-zero.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
	RunInput(ctx context.Context, input, name string, args ...string) (string, error)
}

// ExecRunner runs commands on the host.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	return runCmd(exec.CommandContext(ctx, name, args...), "")
}

func (ExecRunner) RunInput(ctx context.Context, input, name string, args ...string) (string, error) {
	return runCmd(exec.CommandContext(ctx, name, args...), input)
}

func runCmd(cmd *exec.Cmd, input string) (string, error) {
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}
	out, err := cmd.CombinedOutput()
	text := strings.TrimSpace(string(out))
	if err != nil {
		label := strings.Join(cmd.Args, " ")
		if text == "" {
			return "", fmt.Errorf("%s: %w", label, err)
		}
		return text, fmt.Errorf("%s: %w: %s", label, err, text)
	}
	return text, nil
}
