package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newhook/buildlog/internal/autopkgtest"
)

var autopkgtestFlags outputFlags

var autopkgtestCmd = &cobra.Command{
	Use:   "autopkgtest [file]",
	Short: "Localize a failed autopkgtest run",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		window, path, err := readWindow(args)
		if err != nil {
			return err
		}
		result, err := autopkgtest.FindFailureDescription(window)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !autopkgtestFlags.jsonOut() {
			if result.TestName != "" {
				fmt.Fprintf(out, "Failed test: %s\n", result.TestName)
			}
			if result.Description != "" {
				fmt.Fprintf(out, "%s\n", result.Description)
			}
		}
		if err := autopkgtestFlags.emit(out, window, result.Match, result.Problem); err != nil {
			return err
		}
		return autopkgtestFlags.recordDiagnosis(GetContext(), path, "autopkgtest", result.Match, result.Problem)
	},
}

func init() {
	autopkgtestFlags.register(autopkgtestCmd)
}
