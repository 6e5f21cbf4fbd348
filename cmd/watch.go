package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/newhook/buildlog/internal/classify"
	"github.com/newhook/buildlog/internal/lines"
	"github.com/newhook/buildlog/internal/logging"
	"github.com/newhook/buildlog/internal/watch"
)

var watchFlags outputFlags

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Watch a directory and classify logs as they change",
	Long: `Watch a directory for new or growing log files. Each file is classified
once it stops growing; repeated events for the same content are suppressed.
Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := GetContext()
		out := cmd.OutOrStdout()

		handler := func(path string) {
			data, err := os.ReadFile(path)
			if err != nil {
				logging.Warn("reading changed log failed", "file", path, "error", err)
				return
			}
			window := lines.Clean(string(data))
			m, p, err := classify.FindBuildFailureDescription(window)
			if err != nil {
				logging.Warn("classification failed", "file", path, "error", err)
				return
			}
			if m == nil && p == nil {
				logging.Debug("no failure signature", "file", path)
				return
			}
			fmt.Fprintf(out, "%s:\n", path)
			if err := watchFlags.emit(out, window, m, p); err != nil {
				logging.Warn("rendering diagnosis failed", "file", path, "error", err)
				return
			}
			if err := watchFlags.recordDiagnosis(ctx, path, "", m, p); err != nil {
				logging.Warn("recording diagnosis failed", "file", path, "error", err)
			}
		}

		w, err := watch.New(args[0], watch.Options{
			Patterns:  cfg.Watch.GetPatterns(),
			Settle:    cfg.Watch.GetSettleDelay(),
			DedupeTTL: cfg.Watch.GetDedupeTTL(),
		}, handler)
		if err != nil {
			return err
		}
		w.Start()
		defer w.Stop()

		fmt.Fprintf(out, "watching %s\n", args[0])
		<-ctx.Done()
		return nil
	},
}

func init() {
	watchFlags.register(watchCmd)
}
