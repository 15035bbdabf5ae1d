package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nathanielng/kiro-telegram-bot/internal/logging"
)

// labelPrefix namespaces the launchd labels this tool owns.
const labelPrefix = "com.nathanielng."

// Launchd manages services through launchctl, as user agents by default and
// as system daemons with Options.System.
type Launchd struct {
	run      Runner
	system   bool
	agentDir string
	uid      int
}

func newLaunchd(opts Options) (*Launchd, error) {
	dir := opts.AgentDir
	if dir == "" {
		if opts.System {
			dir = "/Library/LaunchDaemons"
		} else {
			var err error
			dir, err = userHomePath("Library", "LaunchAgents")
			if err != nil {
				return nil, err
			}
		}
	}
	return &Launchd{run: opts.Runner, system: opts.System, agentDir: dir, uid: os.Getuid()}, nil
}

func (l *Launchd) Kind() Kind { return KindLaunchd }

func (l *Launchd) Install(ctx context.Context, desc Descriptor) error {
	if err := os.MkdirAll(l.agentDir, 0o755); err != nil {
		return fmt.Errorf("create agent directory: %w", err)
	}
	path := l.plistPath(desc.Name)
	if err := os.WriteFile(path, []byte(l.plistText(desc)), 0o644); err != nil {
		return fmt.Errorf("write plist: %w", err)
	}
	logging.Debug("wrote plist", "path", path)

	// Boot out any previous incarnation so bootstrap picks up the new plist.
	if out, err := l.run.Run(ctx, "launchctl", "bootout", l.target(desc.Name)); err != nil && !benignLaunchd(out) {
		return fmt.Errorf("boot out %s: %w", desc.Name, err)
	}
	if _, err := l.run.Run(ctx, "launchctl", "bootstrap", l.domain(), path); err != nil {
		return fmt.Errorf("bootstrap %s: %w", desc.Name, err)
	}
	if out, err := l.run.Run(ctx, "launchctl", "enable", l.target(desc.Name)); err != nil && !benignLaunchd(out) {
		return fmt.Errorf("enable %s: %w", desc.Name, err)
	}
	return nil
}

func (l *Launchd) Uninstall(ctx context.Context, name string) error {
	if out, err := l.run.Run(ctx, "launchctl", "bootout", l.target(name)); err != nil && !benignLaunchd(out) {
		return fmt.Errorf("boot out %s: %w", name, err)
	}
	if err := os.Remove(l.plistPath(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove plist: %w", err)
	}
	return nil
}

func (l *Launchd) Status(ctx context.Context, name string) (Status, error) {
	st := Status{Name: name, Kind: KindLaunchd}
	if _, err := os.Stat(l.plistPath(name)); err != nil {
		if os.IsNotExist(err) {
			st.State = StateAbsent
			return st, nil
		}
		return st, err
	}

	out, err := l.run.Run(ctx, "launchctl", "print", l.target(name))
	if err != nil {
		st.State = StateStopped
		st.Detail = "not loaded"
		return st, nil
	}
	st.Enabled = true
	if strings.Contains(out, "state = running") {
		st.State = StateRunning
	} else {
		st.State = StateStopped
	}
	return st, nil
}

func (l *Launchd) domain() string {
	if l.system {
		return "system"
	}
	return fmt.Sprintf("gui/%d", l.uid)
}

func (l *Launchd) target(name string) string {
	return l.domain() + "/" + label(name)
}

func label(name string) string { return labelPrefix + name }

func (l *Launchd) plistPath(name string) string {
	return filepath.Join(l.agentDir, label(name)+".plist")
}

func (l *Launchd) plistText(desc Descriptor) string {
	script := "exec " + desc.Command
	if desc.EnvFile != "" {
		script = fmt.Sprintf("set -a; . %s 2>/dev/null; %s", desc.EnvFile, script)
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">` + "\n")
	b.WriteString(`<plist version="1.0">` + "\n<dict>\n")
	writeKV(&b, "Label", label(desc.Name))
	b.WriteString("\t<key>ProgramArguments</key>\n\t<array>\n")
	for _, arg := range []string{"/bin/sh", "-c", script} {
		fmt.Fprintf(&b, "\t\t<string>%s</string>\n", xmlEscape(arg))
	}
	b.WriteString("\t</array>\n")
	if desc.WorkingDir != "" {
		writeKV(&b, "WorkingDirectory", desc.WorkingDir)
	}
	if desc.LogPath != "" {
		writeKV(&b, "StandardOutPath", desc.LogPath)
		writeKV(&b, "StandardErrorPath", desc.LogPath)
	}
	b.WriteString("\t<key>RunAtLoad</key>\n\t<true/>\n")
	if desc.Restart {
		b.WriteString("\t<key>KeepAlive</key>\n\t<true/>\n")
	}
	b.WriteString("</dict>\n</plist>\n")
	return b.String()
}

func writeKV(b *strings.Builder, key, value string) {
	fmt.Fprintf(b, "\t<key>%s</key>\n\t<string>%s</string>\n", key, xmlEscape(value))
}

func xmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}

// benignLaunchd recognizes bootout/enable failures against a service that is
// not loaded.
func benignLaunchd(out string) bool {
	low := strings.ToLower(out)
	return strings.Contains(low, "no such process") ||
		strings.Contains(low, "could not find") ||
		strings.Contains(low, "not find service")
}
