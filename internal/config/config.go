// Package config resolves the tool configuration once at startup. Values are
// looked up in the process environment first, then the env file, then the
// built-in defaults. Nothing reads ambient environment after Load returns.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nathanielng/kiro-telegram-bot/internal/envfile"
	"github.com/nathanielng/kiro-telegram-bot/internal/errdefs"
)

// Configuration keys recognized by the tool.
const (
	KeyBucketName     = "S3_BUCKET_NAME"
	KeyRegion         = "AWS_REGION"
	KeyStackName      = "STACK_NAME"
	KeyOutputDir      = "KIRO_OUTPUT_DIR"
	KeyPrefix         = "S3_PREFIX"
	KeyCacheTTL       = "CACHE_TTL_SECONDS"
	KeySyncExclude    = "SYNC_EXCLUDE"
	KeyTelegramAPIKey = "TELEGRAM_API_KEY"
	KeyTelegramChatID = "TELEGRAM_CHAT_ID"
	KeyBotCommand     = "BOT_COMMAND"
	KeyMonitorCommand = "MONITOR_COMMAND"
)

// Defaults for optional keys.
const (
	DefaultRegion         = "us-west-2"
	DefaultStackName      = "kiro-bot-cdn"
	DefaultOutputDir      = "kiro-output"
	DefaultCacheTTL       = 86400
	DefaultBotCommand     = "python3 telegram_bot.py"
	DefaultMonitorCommand = "python3 folder_monitor.py"
)

// Keys returns every recognized configuration key in display order.
func Keys() []string {
	return []string{
		KeyBucketName, KeyRegion, KeyStackName, KeyOutputDir, KeyPrefix,
		KeyCacheTTL, KeySyncExclude, KeyTelegramAPIKey, KeyTelegramChatID,
		KeyBotCommand, KeyMonitorCommand,
	}
}

// LookupFunc reports a value from the process environment. os.LookupEnv is
// the production implementation; tests inject a map-backed one.
type LookupFunc func(key string) (string, bool)

// Config is the resolved, immutable configuration.
type Config struct {
	BucketName     string
	Region         string
	StackName      string
	OutputDir      string // absolute path of the content root to sync
	Prefix         string
	CacheTTL       int
	SyncExclude    []string
	TelegramAPIKey string
	TelegramChatID string
	BotCommand     string
	MonitorCommand string

	EnvPath string // absolute path of the env file backing this config
	WorkDir string // directory of the env file; services run from here

	values map[string]string
}

// Load resolves the configuration against the env file at envPath. A missing
// env file is not an error; defaults and the environment still apply.
func Load(envPath string, lookup LookupFunc) (*Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	abs, err := filepath.Abs(envPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve env file path %s: %w", envPath, err)
	}
	file, err := envfile.Load(abs)
	if err != nil {
		return nil, err
	}

	r := resolver{file: file, lookup: lookup, values: make(map[string]string)}
	cfg := &Config{
		BucketName:     r.get(KeyBucketName, ""),
		Region:         r.get(KeyRegion, DefaultRegion),
		StackName:      r.get(KeyStackName, DefaultStackName),
		Prefix:         strings.Trim(r.get(KeyPrefix, ""), "/"),
		TelegramAPIKey: r.get(KeyTelegramAPIKey, ""),
		TelegramChatID: r.get(KeyTelegramChatID, ""),
		BotCommand:     r.get(KeyBotCommand, DefaultBotCommand),
		MonitorCommand: r.get(KeyMonitorCommand, DefaultMonitorCommand),
		EnvPath:        abs,
		WorkDir:        filepath.Dir(abs),
		values:         r.values,
	}

	outputDir := r.get(KeyOutputDir, DefaultOutputDir)
	if !filepath.IsAbs(outputDir) {
		outputDir = filepath.Join(cfg.WorkDir, outputDir)
	}
	cfg.OutputDir = outputDir

	ttl := r.get(KeyCacheTTL, strconv.Itoa(DefaultCacheTTL))
	cfg.CacheTTL, err = strconv.Atoi(ttl)
	if err != nil || cfg.CacheTTL < 0 {
		return nil, fmt.Errorf("invalid %s value %q: must be a non-negative integer", KeyCacheTTL, ttl)
	}

	for _, pat := range strings.Split(r.get(KeySyncExclude, ""), ",") {
		if pat = strings.TrimSpace(pat); pat != "" {
			cfg.SyncExclude = append(cfg.SyncExclude, pat)
		}
	}

	return cfg, nil
}

type resolver struct {
	file   *envfile.File
	lookup LookupFunc
	values map[string]string
}

// get resolves one key. Empty values count as unset at every level.
func (r *resolver) get(key, def string) string {
	if v, ok := r.lookup(key); ok && v != "" {
		r.values[key] = v
		return v
	}
	if v, ok := r.file.Get(key); ok && v != "" {
		r.values[key] = v
		return v
	}
	if def != "" {
		r.values[key] = def
	}
	return def
}

// Value returns the resolved raw value for key, or "" when unset.
func (c *Config) Value(key string) string {
	return c.values[key]
}

// Require fails with a MissingConfiguration error naming every key in keys
// that resolved to nothing. Callers run this before any mutation.
func (c *Config) Require(keys ...string) error {
	var missing []string
	for _, k := range keys {
		if c.values[k] == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return errdefs.Newf(errdefs.ClassMissingConfiguration, "check configuration",
		"missing required configuration: %s", strings.Join(missing, ", ")).
		WithHint(fmt.Sprintf("set %s in the environment or in %s", strings.Join(missing, ", "), c.EnvPath))
}
