package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathanielng/kiro-telegram-bot/internal/config"
	"github.com/nathanielng/kiro-telegram-bot/internal/service"
)

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		expected string
	}{
		{
			name:     "api key keeps short prefix",
			key:      "TELEGRAM_API_KEY",
			value:    "123456:AABBCCDD",
			expected: "1234***********",
		},
		{
			name:     "token is masked",
			key:      "GITHUB_TOKEN",
			value:    "ghp_abcdef",
			expected: "ghp_******",
		},
		{
			name:     "short secret is fully masked",
			key:      "API_KEY",
			value:    "abcd",
			expected: "****",
		},
		{
			name:     "empty value stays empty",
			key:      "TELEGRAM_API_KEY",
			value:    "",
			expected: "",
		},
		{
			name:     "plain key passes through",
			key:      "S3_BUCKET_NAME",
			value:    "my-bucket",
			expected: "my-bucket",
		},
		{
			name:     "region passes through",
			key:      "AWS_REGION",
			value:    "us-west-2",
			expected: "us-west-2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, maskSecret(tt.key, tt.value))
		})
	}
}

func TestSelectorArg(t *testing.T) {
	assert.Equal(t, "all", selectorArg(nil))
	assert.Equal(t, "all", selectorArg([]string{}))
	assert.Equal(t, "bot", selectorArg([]string{"bot"}))
}

func TestRenderStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   service.Status
		expected string
	}{
		{
			name:     "running and enabled",
			status:   service.Status{State: service.StateRunning, Enabled: true},
			expected: "running, enabled",
		},
		{
			name:     "stopped with detail",
			status:   service.Status{State: service.StateStopped, Detail: "inactive"},
			expected: "stopped (inactive)",
		},
		{
			name:     "scheduled cron job",
			status:   service.Status{State: service.StateScheduled, Enabled: true, Detail: "@reboot"},
			expected: "scheduled, enabled (@reboot)",
		},
		{
			name:     "not installed",
			status:   service.Status{State: service.StateAbsent},
			expected: "not installed",
		},
		{
			name:     "probe failure",
			status:   service.Status{Detail: "launchctl: exit status 1"},
			expected: "unknown (launchctl: exit status 1)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, renderStatus(tt.status))
		})
	}
}

func TestReadiness(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("S3_BUCKET_NAME=my-bucket\n"), 0o644))

	cfg, err := config.Load(path, func(string) (string, bool) { return "", false })
	require.NoError(t, err)

	assert.Equal(t, "ok", readiness(cfg, config.KeyBucketName))
	assert.Equal(t, "missing TELEGRAM_API_KEY, TELEGRAM_CHAT_ID",
		readiness(cfg, config.KeyTelegramAPIKey, config.KeyTelegramChatID))
}

func TestDescribeDir(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, dir, describeDir(dir))

	missing := filepath.Join(dir, "nope")
	assert.Contains(t, describeDir(missing), "missing")

	file := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	assert.Contains(t, describeDir(file), "not a directory")
}

func TestRunOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CLOUDFRONT_DISTRIBUTION_ID=E123ABC\n"), 0o644))

	prev := envFile
	envFile = path
	defer func() { envFile = prev }()

	assert.NoError(t, runOutput(nil, []string{"CLOUDFRONT_DISTRIBUTION_ID"}))

	err := runOutput(nil, []string{"NO_SUCH_OUTPUT"})
	assert.EqualError(t, err, `output "NO_SUCH_OUTPUT" not found`)
}

func TestCommandRegistration(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"deploy", "service", "check", "output", "version"} {
		assert.True(t, names[want], "command %s should be registered", want)
	}
}
