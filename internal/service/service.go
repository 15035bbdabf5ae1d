// Package service installs, removes, and inspects the background processes
// this tool manages (the Telegram bot and the folder monitor) under whichever
// service manager the host provides: systemd, launchd, or plain crontab.
package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Kind identifies a service manager.
type Kind string

const (
	KindSystemd Kind = "systemd"
	KindLaunchd Kind = "launchd"
	KindCron    Kind = "cron"
)

// State is the lifecycle state a supervisor reports for a service.
type State string

const (
	StateRunning   State = "running"
	StateStopped   State = "stopped"
	StateScheduled State = "scheduled" // cron has no notion of running
	StateAbsent    State = "not installed"
)

// Descriptor describes one background process to keep running. Command is a
// shell command line resolved relative to WorkingDir; EnvFile is sourced (or
// passed to the manager natively) before the command starts.
type Descriptor struct {
	Name        string
	Description string
	Command     string
	WorkingDir  string
	EnvFile     string
	LogPath     string
	Restart     bool
}

// Status reports how one service looks to its supervisor.
type Status struct {
	Name    string
	Kind    Kind
	State   State
	Enabled bool
	Detail  string
}

// Supervisor manages services under one service manager. Install is
// idempotent: reinstalling an already-installed service replaces its
// definition. Uninstall of an absent service is not an error.
type Supervisor interface {
	Kind() Kind
	Install(ctx context.Context, desc Descriptor) error
	Uninstall(ctx context.Context, name string) error
	Status(ctx context.Context, name string) (Status, error)
}

// Options tunes supervisor construction. The zero value is a per-user
// supervisor running real commands.
type Options struct {
	Runner   Runner
	System   bool   // manage system-wide services instead of per-user ones
	UnitDir  string // systemd unit directory override
	AgentDir string // launchd plist directory override
	Schedule string // cron schedule, defaults to @reboot
}

// New builds the supervisor for the given manager kind.
func New(kind Kind, opts Options) (Supervisor, error) {
	if opts.Runner == nil {
		opts.Runner = ExecRunner{}
	}
	switch kind {
	case KindSystemd:
		return newSystemd(opts)
	case KindLaunchd:
		return newLaunchd(opts)
	case KindCron:
		return newCron(opts), nil
	default:
		return nil, fmt.Errorf("unsupported service manager %q", kind)
	}
}

func userHomePath(parts ...string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(append([]string{home}, parts...)...), nil
}
