package cmd

import (
	"github.com/spf13/cobra"

	"github.com/newhook/buildlog/internal/apt"
)

var aptFlags outputFlags

var aptCmd = &cobra.Command{
	Use:   "apt [file]",
	Short: "Classify apt-get output",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		window, path, err := readWindow(args)
		if err != nil {
			return err
		}
		m, p := apt.FindAptGetFailure(window)
		if err := aptFlags.emit(cmd.OutOrStdout(), window, m, p); err != nil {
			return err
		}
		return aptFlags.recordDiagnosis(GetContext(), path, "", m, p)
	},
}

func init() {
	aptFlags.register(aptCmd)
}
