package service

import (
	"fmt"
	"os/exec"
)

// Detect picks the service manager for a host: launchd on macOS, systemd
// where systemctl is on the path, crontab as the fallback. The lookPath
// argument exists for tests; pass nil for the real one.
func Detect(goos string, lookPath func(string) (string, error)) (Kind, error) {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if goos == "darwin" {
		return KindLaunchd, nil
	}
	if _, err := lookPath("systemctl"); err == nil {
		return KindSystemd, nil
	}
	if _, err := lookPath("crontab"); err == nil {
		return KindCron, nil
	}
	return "", fmt.Errorf("no supported service manager found on %s (need systemd, launchd, or cron)", goos)
}
