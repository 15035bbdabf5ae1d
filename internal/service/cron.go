package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// cronMarker tags the crontab lines this tool owns; everything else in the
// user's crontab is left untouched.
const cronMarker = "# kiroctl:"

// Cron manages services as crontab entries. It cannot keep a process
// running, only start it on the given schedule, so Status reports
// "scheduled" rather than "running".
type Cron struct {
	run      Runner
	schedule string
}

func newCron(opts Options) *Cron {
	schedule := opts.Schedule
	if schedule == "" {
		schedule = "@reboot"
	}
	return &Cron{run: opts.Runner, schedule: schedule}
}

func (c *Cron) Kind() Kind { return KindCron }

// ValidateSchedule accepts @reboot plus anything the cron library parses:
// the @-descriptors and standard 5-field expressions. @reboot is special
// because crontab implements it but the library has no equivalent.
func ValidateSchedule(expr string) error {
	e := strings.TrimSpace(expr)
	if e == "" {
		return fmt.Errorf("empty cron schedule")
	}
	if e == "@reboot" {
		return nil
	}
	if strings.HasPrefix(e, "@") {
		_, err := cron.ParseStandard(e)
		return err
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	_, err := parser.Parse(e)
	return err
}

func (c *Cron) Install(ctx context.Context, desc Descriptor) error {
	if err := ValidateSchedule(c.schedule); err != nil {
		return fmt.Errorf("cron schedule %q: %w", c.schedule, err)
	}
	entries, err := c.current(ctx)
	if err != nil {
		return err
	}
	entries = append(withoutEntry(entries, desc.Name), c.entry(desc))
	return c.write(ctx, entries)
}

func (c *Cron) Uninstall(ctx context.Context, name string) error {
	entries, err := c.current(ctx)
	if err != nil {
		return err
	}
	kept := withoutEntry(entries, name)
	if len(kept) == len(entries) {
		return nil // nothing of ours there, leave the crontab alone
	}
	return c.write(ctx, kept)
}

func (c *Cron) Status(ctx context.Context, name string) (Status, error) {
	st := Status{Name: name, Kind: KindCron, State: StateAbsent}
	entries, err := c.current(ctx)
	if err != nil {
		return st, err
	}
	for _, line := range entries {
		if strings.HasSuffix(line, cronMarker+name) {
			st.State = StateScheduled
			st.Enabled = true
			st.Detail = scheduleOf(line)
			return st, nil
		}
	}
	return st, nil
}

// current reads the crontab; a missing crontab is an empty one.
func (c *Cron) current(ctx context.Context) ([]string, error) {
	out, err := c.run.Run(ctx, "crontab", "-l")
	if err != nil {
		if strings.Contains(strings.ToLower(out), "no crontab") {
			return nil, nil
		}
		return nil, fmt.Errorf("read crontab: %w", err)
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

func (c *Cron) write(ctx context.Context, entries []string) error {
	if len(entries) == 0 {
		out, err := c.run.Run(ctx, "crontab", "-r")
		if err != nil && !strings.Contains(strings.ToLower(out), "no crontab") {
			return fmt.Errorf("clear crontab: %w", err)
		}
		return nil
	}
	if _, err := c.run.RunInput(ctx, strings.Join(entries, "\n")+"\n", "crontab", "-"); err != nil {
		return fmt.Errorf("write crontab: %w", err)
	}
	return nil
}

// entry renders one crontab line: change to the working directory, source
// the env file, run the command with output appended to the log, and tag the
// line with the ownership marker.
func (c *Cron) entry(desc Descriptor) string {
	cmd := desc.Command
	if desc.LogPath != "" {
		cmd += " >> " + desc.LogPath + " 2>&1"
	}
	steps := make([]string, 0, 4)
	if desc.WorkingDir != "" {
		steps = append(steps, "cd "+desc.WorkingDir)
	}
	if desc.EnvFile != "" {
		steps = append(steps, "set -a", ". "+desc.EnvFile)
	}
	steps = append(steps, cmd)
	return c.schedule + " " + strings.Join(steps, " && ") + " " + cronMarker + desc.Name
}

func withoutEntry(entries []string, name string) []string {
	kept := make([]string, 0, len(entries))
	for _, line := range entries {
		if strings.HasSuffix(line, cronMarker+name) {
			continue
		}
		kept = append(kept, line)
	}
	return kept
}

// scheduleOf extracts the schedule portion of a crontab line: the first
// field for @-descriptors, the first five otherwise.
func scheduleOf(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	if strings.HasPrefix(fields[0], "@") {
		return fields[0]
	}
	if len(fields) < 5 {
		return fields[0]
	}
	return strings.Join(fields[:5], " ")
}
