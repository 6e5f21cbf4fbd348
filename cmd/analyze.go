package cmd

import (
	"github.com/spf13/cobra"

	"github.com/newhook/buildlog/internal/classify"
)

var analyzeFlags outputFlags

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Classify a plain build log",
	Long: `Scan the tail of a build log backward for known failure signatures and
report the matched line and diagnosis. Reads stdin when no file is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		window, path, err := readWindow(args)
		if err != nil {
			return err
		}
		m, p, err := classify.FindBuildFailureDescription(window)
		if err != nil {
			return err
		}
		if err := analyzeFlags.emit(cmd.OutOrStdout(), window, m, p); err != nil {
			return err
		}
		return analyzeFlags.recordDiagnosis(GetContext(), path, "", m, p)
	},
}

func init() {
	analyzeFlags.register(analyzeCmd)
}
