package cli

import (
	"fmt"
	"strings"

	"github.com/nathanielng/kiro-telegram-bot/internal/config"
)

// secretMarkers flag configuration keys whose values must never be echoed
// in full.
var secretMarkers = []string{"KEY", "TOKEN", "SECRET", "PASSWORD"}

// loadConfig resolves the configuration against the --env-file flag.
func loadConfig() (*config.Config, error) {
	return config.Load(envFile, nil)
}

// promptYesNo prints the prompt and reports whether the operator approved.
// Prompts carry their own "(y/n): " suffix.
func promptYesNo(prompt string) bool {
	fmt.Print(prompt)
	var response string
	fmt.Scanln(&response)
	return response == "y" || response == "yes"
}

// maskSecret hides the value of secret-looking keys, keeping a short prefix
// so operators can still tell credentials apart.
func maskSecret(key, value string) string {
	if value == "" || !isSecretKey(key) {
		return value
	}
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return value[:4] + strings.Repeat("*", len(value)-4)
}

func isSecretKey(key string) bool {
	upper := strings.ToUpper(key)
	for _, marker := range secretMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}
