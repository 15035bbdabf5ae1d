package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/nathanielng/kiro-telegram-bot/internal/config"
	"github.com/nathanielng/kiro-telegram-bot/internal/logging"
	"github.com/nathanielng/kiro-telegram-bot/internal/service"
)

var (
	serviceSystem   bool
	serviceSchedule string
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage the bot and monitor background services",
	Long: `Service installs, removes, and inspects the Telegram bot and the folder
monitor as background services. The service manager is picked from the
host: launchd on macOS, systemd where available, crontab otherwise.`,
}

var serviceInstallCmd = &cobra.Command{
	Use:   "install [bot|monitor|all]",
	Short: "Install and start the services",
	Long: `Install writes the service definitions, enables them, and starts them.

TELEGRAM_API_KEY and TELEGRAM_CHAT_ID must be set in the environment or
the env file. BOT_COMMAND and MONITOR_COMMAND override the commands the
services run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServiceInstall,
}

var serviceUninstallCmd = &cobra.Command{
	Use:   "uninstall [bot|monitor|all]",
	Short: "Stop and remove the services",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runServiceUninstall,
}

var serviceStatusCmd = &cobra.Command{
	Use:   "status [bot|monitor|all]",
	Short: "Report the state of the services",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runServiceStatus,
}

func init() {
	serviceCmd.PersistentFlags().BoolVar(&serviceSystem, "system", false, "Manage system-wide services instead of per-user ones")
	serviceInstallCmd.Flags().StringVar(&serviceSchedule, "schedule", "", "Cron schedule for the jobs (cron manager only, default @reboot)")

	serviceCmd.AddCommand(serviceInstallCmd)
	serviceCmd.AddCommand(serviceUninstallCmd)
	serviceCmd.AddCommand(serviceStatusCmd)
}

// selectorArg returns the service selector from args, defaulting to all.
func selectorArg(args []string) string {
	if len(args) == 0 {
		return "all"
	}
	return args[0]
}

// newSupervisor builds the supervisor for whatever service manager the host
// offers.
func newSupervisor() (service.Supervisor, error) {
	kind, err := service.Detect(runtime.GOOS, nil)
	if err != nil {
		return nil, err
	}
	if serviceSchedule != "" && kind != service.KindCron {
		logging.Warn("schedule flag only applies to the cron manager", "manager", string(kind))
	}
	return service.New(kind, service.Options{System: serviceSystem, Schedule: serviceSchedule})
}

func runServiceInstall(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Require(config.KeyTelegramAPIKey, config.KeyTelegramChatID); err != nil {
		return err
	}
	descs, err := service.Select(cfg, selectorArg(args))
	if err != nil {
		return err
	}
	sup, err := newSupervisor()
	if err != nil {
		return err
	}

	fmt.Printf("Installing services via %s:\n", sup.Kind())
	if err := service.InstallAll(cmd.Context(), sup, descs); err != nil {
		return err
	}
	for _, desc := range descs {
		fmt.Printf("  %s: installed\n", desc.Name)
	}
	return nil
}

func runServiceUninstall(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	descs, err := service.Select(cfg, selectorArg(args))
	if err != nil {
		return err
	}
	sup, err := newSupervisor()
	if err != nil {
		return err
	}

	fmt.Printf("Removing services via %s:\n", sup.Kind())
	if err := service.UninstallAll(cmd.Context(), sup, descs); err != nil {
		return err
	}
	for _, desc := range descs {
		fmt.Printf("  %s: removed\n", desc.Name)
	}
	return nil
}

func runServiceStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	descs, err := service.Select(cfg, selectorArg(args))
	if err != nil {
		return err
	}
	sup, err := newSupervisor()
	if err != nil {
		return err
	}

	statuses, err := service.Statuses(cmd.Context(), sup, descs)
	fmt.Printf("Service manager: %s\n", sup.Kind())
	for _, st := range statuses {
		fmt.Printf("  %-24s %s\n", st.Name, renderStatus(st))
	}
	return err
}

// renderStatus formats one service status line. A status whose probe failed
// carries the failure text in Detail and no state.
func renderStatus(st service.Status) string {
	if st.State == "" {
		return "unknown (" + st.Detail + ")"
	}
	s := string(st.State)
	if st.Enabled && st.State != service.StateAbsent {
		s += ", enabled"
	}
	if st.Detail != "" {
		s += " (" + st.Detail + ")"
	}
	return s
}
