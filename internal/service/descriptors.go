package service

import (
	"fmt"
	"path/filepath"

	"github.com/nathanielng/kiro-telegram-bot/internal/config"
)

// Names of the two services this tool manages.
const (
	BotService     = "kiro-telegram-bot"
	MonitorService = "kiro-folder-monitor"
)

// Descriptors returns every service this tool manages, configured from cfg.
func Descriptors(cfg *config.Config) []Descriptor {
	return []Descriptor{botDescriptor(cfg), monitorDescriptor(cfg)}
}

// Select resolves the selector accepted on the command line: bot, monitor,
// or all (the default).
func Select(cfg *config.Config, selector string) ([]Descriptor, error) {
	switch selector {
	case "", "all":
		return Descriptors(cfg), nil
	case "bot":
		return []Descriptor{botDescriptor(cfg)}, nil
	case "monitor":
		return []Descriptor{monitorDescriptor(cfg)}, nil
	default:
		return nil, fmt.Errorf("unknown service %q (expected bot, monitor, or all)", selector)
	}
}

func botDescriptor(cfg *config.Config) Descriptor {
	return Descriptor{
		Name:        BotService,
		Description: "Telegram bot relaying chat commands to Kiro",
		Command:     cfg.BotCommand,
		WorkingDir:  cfg.WorkDir,
		EnvFile:     cfg.EnvPath,
		LogPath:     filepath.Join(cfg.WorkDir, BotService+".log"),
		Restart:     true,
	}
}

func monitorDescriptor(cfg *config.Config) Descriptor {
	return Descriptor{
		Name:        MonitorService,
		Description: "Uploads new Kiro output to S3 and notifies Telegram",
		Command:     cfg.MonitorCommand,
		WorkingDir:  cfg.WorkDir,
		EnvFile:     cfg.EnvPath,
		LogPath:     filepath.Join(cfg.WorkDir, MonitorService+".log"),
		Restart:     true,
	}
}
