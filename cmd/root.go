// Package cmd implements the buildlog command line interface.
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/newhook/buildlog/internal/config"
	"github.com/newhook/buildlog/internal/logging"
	buildsignal "github.com/newhook/buildlog/internal/signal"
)

var (
	// rootCtx holds the signal-cancellable context for the application
	rootCtx    context.Context
	rootCancel context.CancelFunc

	// cfg is the loaded configuration, available to all subcommands.
	cfg *config.Config

	flagConfig   string
	flagDebugLog string
)

var rootCmd = &cobra.Command{
	Use:   "buildlog",
	Short: "buildlog finds the failure that broke a build or test log",
	Long: `buildlog scans build and test logs for known failure signatures and
reports the line that broke the run together with a structured diagnosis.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		rootCtx, rootCancel = buildsignal.WithSignalCancel(context.Background())

		path := flagConfig
		if path == "" {
			path = config.DefaultPath()
		}
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return err
		}

		logPath := flagDebugLog
		if logPath == "" {
			logPath = cfg.Log.Path
		}
		return logging.Init(logPath)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if rootCancel != nil {
			rootCancel()
		}
		logging.Close()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

// GetContext returns the root context that is cancelled on SIGINT/SIGTERM.
// This should be used by all subcommands instead of context.Background().
func GetContext() context.Context {
	if rootCtx == nil {
		return context.Background()
	}
	return rootCtx
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config.toml")
	rootCmd.PersistentFlags().StringVar(&flagDebugLog, "debug-log", "", "append engine diagnostics to this file")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(sbuildCmd)
	rootCmd.AddCommand(aptCmd)
	rootCmd.AddCommand(autopkgtestCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
}
