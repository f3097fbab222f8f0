package main

import (
	"os"

	"github.com/spf13/cobra"

	clientcmd "github.com/corbtastik/incident-visualizer/internal/cmd/client"
	serverrun "github.com/corbtastik/incident-visualizer/internal/cmd/server"
	logpkg "github.com/corbtastik/incident-visualizer/pkg/log"
)

func main() {
	// CLI logger; `server start` builds its own from config.
	level, err := logpkg.ParseLevel(os.Getenv("INCIDENTS_LOG_LEVEL"))
	if err != nil {
		level = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(level),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)
	logpkg.RedirectStdLog(logger)

	rootCmd := &cobra.Command{
		Use:           "incidents",
		Short:         "Live incident feeds",
		Long:          "incidents serves category collections as cursor-paged live feeds and tails them from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(serverrun.NewCommand())
	rootCmd.AddCommand(clientcmd.NewFeedCommand(clientcmd.EndpointFromEnv))
	rootCmd.AddCommand(clientcmd.NewDebugCommand(clientcmd.EndpointFromEnv))

	if err := rootCmd.Execute(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}
