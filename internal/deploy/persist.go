package deploy

import (
	"sort"

	"github.com/nathanielng/kiro-telegram-bot/internal/envfile"
	"github.com/nathanielng/kiro-telegram-bot/internal/logging"
)

// PersistedKeys are the env keys a successful deploy records, in the order
// they are appended to a fresh file.
var PersistedKeys = []string{
	"CLOUDFRONT_DISTRIBUTION_ID",
	"CLOUDFRONT_BASE_URL",
	"AWS_REGION",
	"STACK_NAME",
}

// PersistOutputs merges the deploy outputs into the env file at path under
// its advisory lock. Existing keys keep their position and comments; new
// keys are appended. Returns whether the file actually changed.
func PersistOutputs(path string, updates map[string]string) (bool, error) {
	holder, err := envfile.Load(path)
	if err != nil {
		return false, err
	}
	if err := holder.Lock(); err != nil {
		return false, err
	}
	defer holder.Unlock()

	// Re-read under the lock so we merge into the current content.
	file, err := envfile.Load(path)
	if err != nil {
		return false, err
	}

	rest := make(map[string]string, len(updates))
	for k, v := range updates {
		rest[k] = v
	}
	for _, k := range PersistedKeys {
		if v, ok := rest[k]; ok {
			file.Set(k, v)
			delete(rest, k)
		}
	}
	extra := make([]string, 0, len(rest))
	for k := range rest {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	for _, k := range extra {
		file.Set(k, rest[k])
	}

	changed, err := file.Save()
	if err != nil {
		return false, err
	}
	if changed {
		logging.Info("env file updated", "path", path)
	} else {
		logging.Debug("env file unchanged", "path", path)
	}
	return changed, nil
}
