package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configFlag string

var rootCmd = &cobra.Command{
	Use:   "birthdaybot",
	Short: "Birthday reminder chat service",
	Long: `birthdaybot tracks birthdays per user, answers chat commands over a
websocket/REST gateway and sends proactive reminders as dates approach.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to a YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(remindCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func newLogger() (*zap.Logger, error) {
	return zap.NewProduction()
}
