package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nathanielng/kiro-telegram-bot/internal/logging"
)

// Systemd manages services through systemctl, per-user by default.
type Systemd struct {
	run     Runner
	system  bool
	unitDir string
}

func newSystemd(opts Options) (*Systemd, error) {
	dir := opts.UnitDir
	if dir == "" {
		if opts.System {
			dir = "/etc/systemd/system"
		} else {
			var err error
			dir, err = userHomePath(".config", "systemd", "user")
			if err != nil {
				return nil, err
			}
		}
	}
	return &Systemd{run: opts.Runner, system: opts.System, unitDir: dir}, nil
}

func (s *Systemd) Kind() Kind { return KindSystemd }

func (s *Systemd) Install(ctx context.Context, desc Descriptor) error {
	if err := os.MkdirAll(s.unitDir, 0o755); err != nil {
		return fmt.Errorf("create unit directory: %w", err)
	}
	path := s.unitPath(desc.Name)
	if err := os.WriteFile(path, []byte(s.unitText(desc)), 0o644); err != nil {
		return fmt.Errorf("write unit file: %w", err)
	}
	logging.Debug("wrote unit file", "path", path)

	if _, err := s.run.Run(ctx, "systemctl", s.args("daemon-reload")...); err != nil {
		return fmt.Errorf("reload systemd: %w", err)
	}
	if _, err := s.run.Run(ctx, "systemctl", s.args("enable", "--now", s.unitName(desc.Name))...); err != nil {
		return fmt.Errorf("enable %s: %w", desc.Name, err)
	}
	return nil
}

func (s *Systemd) Uninstall(ctx context.Context, name string) error {
	out, err := s.run.Run(ctx, "systemctl", s.args("disable", "--now", s.unitName(name))...)
	if err != nil && !benignSystemd(out) {
		return fmt.Errorf("disable %s: %w", name, err)
	}
	if err := os.Remove(s.unitPath(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove unit file: %w", err)
	}
	if _, err := s.run.Run(ctx, "systemctl", s.args("daemon-reload")...); err != nil {
		return fmt.Errorf("reload systemd: %w", err)
	}
	return nil
}

func (s *Systemd) Status(ctx context.Context, name string) (Status, error) {
	st := Status{Name: name, Kind: KindSystemd}
	if _, err := os.Stat(s.unitPath(name)); err != nil {
		if os.IsNotExist(err) {
			st.State = StateAbsent
			return st, nil
		}
		return st, err
	}

	// is-active exits non-zero for anything but "active"; the output still
	// names the state, so the error is not interesting.
	active, _ := s.run.Run(ctx, "systemctl", s.args("is-active", s.unitName(name))...)
	active = firstLine(active)
	if active == "active" {
		st.State = StateRunning
	} else {
		st.State = StateStopped
		st.Detail = active
	}

	enabled, _ := s.run.Run(ctx, "systemctl", s.args("is-enabled", s.unitName(name))...)
	st.Enabled = firstLine(enabled) == "enabled"
	return st, nil
}

func (s *Systemd) args(rest ...string) []string {
	if s.system {
		return rest
	}
	return append([]string{"--user"}, rest...)
}

func (s *Systemd) unitName(name string) string { return name + ".service" }

func (s *Systemd) unitPath(name string) string {
	return filepath.Join(s.unitDir, s.unitName(name))
}

func (s *Systemd) unitText(desc Descriptor) string {
	var b strings.Builder
	b.WriteString("[Unit]\n")
	fmt.Fprintf(&b, "Description=%s\n", desc.Description)
	b.WriteString("After=network-online.target\n")
	b.WriteString("\n[Service]\n")
	b.WriteString("Type=simple\n")
	if desc.WorkingDir != "" {
		fmt.Fprintf(&b, "WorkingDirectory=%s\n", desc.WorkingDir)
	}
	if desc.EnvFile != "" {
		// Leading dash keeps the unit startable before the first deploy
		// writes the env file.
		fmt.Fprintf(&b, "EnvironmentFile=-%s\n", desc.EnvFile)
	}
	fmt.Fprintf(&b, "ExecStart=/bin/sh -c 'exec %s'\n", desc.Command)
	if desc.LogPath != "" {
		fmt.Fprintf(&b, "StandardOutput=append:%s\n", desc.LogPath)
		fmt.Fprintf(&b, "StandardError=append:%s\n", desc.LogPath)
	}
	if desc.Restart {
		b.WriteString("Restart=always\nRestartSec=5\n")
	} else {
		b.WriteString("Restart=no\n")
	}
	b.WriteString("\n[Install]\n")
	if s.system {
		b.WriteString("WantedBy=multi-user.target\n")
	} else {
		b.WriteString("WantedBy=default.target\n")
	}
	return b.String()
}

// benignSystemd recognizes disable/stop failures that just mean the unit was
// never there.
func benignSystemd(out string) bool {
	low := strings.ToLower(out)
	return strings.Contains(low, "not loaded") ||
		strings.Contains(low, "does not exist") ||
		strings.Contains(low, "not-found") ||
		strings.Contains(low, "no such file")
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
