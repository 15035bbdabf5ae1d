package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/nathanielng/kiro-telegram-bot/internal/logging"
)

// InstallAll installs every descriptor, continuing past failures so one bad
// service does not block the others. The returned error joins every failure.
func InstallAll(ctx context.Context, sup Supervisor, descs []Descriptor) error {
	var errs []error
	for _, desc := range descs {
		if err := sup.Install(ctx, desc); err != nil {
			errs = append(errs, fmt.Errorf("install %s: %w", desc.Name, err))
			continue
		}
		logging.Info("service installed", "name", desc.Name, "manager", string(sup.Kind()))
	}
	return errors.Join(errs...)
}

// UninstallAll removes every descriptor's service, continuing past failures.
func UninstallAll(ctx context.Context, sup Supervisor, descs []Descriptor) error {
	var errs []error
	for _, desc := range descs {
		if err := sup.Uninstall(ctx, desc.Name); err != nil {
			errs = append(errs, fmt.Errorf("uninstall %s: %w", desc.Name, err))
			continue
		}
		logging.Info("service removed", "name", desc.Name, "manager", string(sup.Kind()))
	}
	return errors.Join(errs...)
}

// Statuses reports every descriptor's status. Probe failures surface in the
// joined error and the affected services still get a placeholder entry.
func Statuses(ctx context.Context, sup Supervisor, descs []Descriptor) ([]Status, error) {
	statuses := make([]Status, 0, len(descs))
	var errs []error
	for _, desc := range descs {
		st, err := sup.Status(ctx, desc.Name)
		if err != nil {
			errs = append(errs, fmt.Errorf("status %s: %w", desc.Name, err))
			st = Status{Name: desc.Name, Kind: sup.Kind(), Detail: err.Error()}
		}
		statuses = append(statuses, st)
	}
	return statuses, errors.Join(errs...)
}
