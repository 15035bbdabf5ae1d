package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const botEntry = "@reboot cd /srv/kiro && set -a && . /srv/kiro/.env && " +
	"python3 telegram_bot.py >> /srv/kiro/kiro-telegram-bot.log 2>&1 # kiroctl:kiro-telegram-bot"

func newTestCron(t *testing.T, run Runner, schedule string) *Cron {
	t.Helper()
	sup, err := New(KindCron, Options{Runner: run, Schedule: schedule})
	require.NoError(t, err)
	return sup.(*Cron)
}

func crontabWith(lines ...string) func(cmd, input string) (string, error) {
	return func(cmd, input string) (string, error) {
		if cmd == "crontab -l" {
			if len(lines) == 0 {
				return "no crontab for user", errors.New("exit status 1")
			}
			return strings.Join(lines, "\n"), nil
		}
		return "", nil
	}
}

func TestCron_InstallIntoEmptyCrontab(t *testing.T) {
	run := &fakeRunner{handler: crontabWith()}
	sup := newTestCron(t, run, "")

	require.NoError(t, sup.Install(context.Background(), testDescriptor()))

	assert.Equal(t, []string{"crontab -l", "crontab -"}, run.commands())
	assert.Equal(t, botEntry+"\n", run.lastInput())
}

func TestCron_InstallReplacesPreviousEntry(t *testing.T) {
	run := &fakeRunner{handler: crontabWith(
		"0 3 * * * /usr/local/bin/backup.sh",
		"@reboot old-command # kiroctl:kiro-telegram-bot",
	)}
	sup := newTestCron(t, run, "")

	require.NoError(t, sup.Install(context.Background(), testDescriptor()))

	input := run.lastInput()
	assert.Equal(t, "0 3 * * * /usr/local/bin/backup.sh\n"+botEntry+"\n", input)
	assert.NotContains(t, input, "old-command")
}

func TestCron_CustomSchedule(t *testing.T) {
	run := &fakeRunner{handler: crontabWith()}
	sup := newTestCron(t, run, "*/5 * * * *")

	require.NoError(t, sup.Install(context.Background(), testDescriptor()))
	assert.True(t, strings.HasPrefix(run.lastInput(), "*/5 * * * * cd /srv/kiro"))
}

func TestCron_InvalidScheduleRejectedBeforeAnyCall(t *testing.T) {
	run := &fakeRunner{}
	sup := newTestCron(t, run, "not a schedule")

	err := sup.Install(context.Background(), testDescriptor())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cron schedule")
	assert.Empty(t, run.calls)
}

func TestCron_UninstallKeepsForeignLines(t *testing.T) {
	run := &fakeRunner{handler: crontabWith(
		"0 3 * * * /usr/local/bin/backup.sh",
		botEntry,
	)}
	sup := newTestCron(t, run, "")

	require.NoError(t, sup.Uninstall(context.Background(), "kiro-telegram-bot"))
	assert.Equal(t, []string{"crontab -l", "crontab -"}, run.commands())
	assert.Equal(t, "0 3 * * * /usr/local/bin/backup.sh\n", run.lastInput())
}

func TestCron_UninstallAbsentEntryWritesNothing(t *testing.T) {
	run := &fakeRunner{handler: crontabWith("0 3 * * * /usr/local/bin/backup.sh")}
	sup := newTestCron(t, run, "")

	require.NoError(t, sup.Uninstall(context.Background(), "kiro-telegram-bot"))
	assert.Equal(t, []string{"crontab -l"}, run.commands(), "an untouched crontab is not rewritten")
}

func TestCron_UninstallLastEntryClearsCrontab(t *testing.T) {
	run := &fakeRunner{handler: crontabWith(botEntry)}
	sup := newTestCron(t, run, "")

	require.NoError(t, sup.Uninstall(context.Background(), "kiro-telegram-bot"))
	assert.Equal(t, []string{"crontab -l", "crontab -r"}, run.commands())
}

func TestCron_StatusScheduled(t *testing.T) {
	run := &fakeRunner{handler: crontabWith(botEntry)}
	sup := newTestCron(t, run, "")

	st, err := sup.Status(context.Background(), "kiro-telegram-bot")
	require.NoError(t, err)
	assert.Equal(t, StateScheduled, st.State)
	assert.True(t, st.Enabled)
	assert.Equal(t, "@reboot", st.Detail)
}

func TestCron_StatusNotInstalled(t *testing.T) {
	run := &fakeRunner{handler: crontabWith()}
	sup := newTestCron(t, run, "")

	st, err := sup.Status(context.Background(), "kiro-folder-monitor")
	require.NoError(t, err)
	assert.Equal(t, StateAbsent, st.State)
	assert.False(t, st.Enabled)
}

func TestValidateSchedule(t *testing.T) {
	for _, expr := range []string{"@reboot", "@daily", "@every 5m", "*/10 * * * *", "0 4 * * 1-5"} {
		assert.NoError(t, ValidateSchedule(expr), expr)
	}
	for _, expr := range []string{"", "61 * * * *", "* * * *", "words go here", "@sometimes"} {
		assert.Error(t, ValidateSchedule(expr), expr)
	}
}

func TestScheduleOf(t *testing.T) {
	assert.Equal(t, "@reboot", scheduleOf(botEntry))
	assert.Equal(t, "*/5 * * * *", scheduleOf("*/5 * * * * run-something # kiroctl:x"))
}
