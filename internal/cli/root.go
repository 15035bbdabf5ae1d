package cli

import (
	"github.com/spf13/cobra"

	"github.com/nathanielng/kiro-telegram-bot/internal/logging"
)

var (
	envFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "kiroctl",
	Short: "Deploy and operate the Kiro Telegram bot stack",
	Long: `Kiroctl manages the cloud side of the Kiro Telegram bot.

It provisions the S3 bucket and CloudFront distribution that publish
Kiro's generated files, keeps the local .env file in sync with the
deployed outputs, and installs the Telegram bot and folder monitor
as background services under systemd, launchd, or cron.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.SetVerbose(verbose)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "path to the environment file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(serviceCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(outputCmd)
	rootCmd.AddCommand(versionCmd)
}
