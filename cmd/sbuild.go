package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/newhook/buildlog/internal/sbuild"
)

var (
	sbuildFlags    outputFlags
	sbuildSections bool
)

var sbuildCmd = &cobra.Command{
	Use:   "sbuild [file]",
	Short: "Analyze a full sbuild transcript",
	Long: `Parse an sbuild transcript into its sections, read the failed stage from
the summary, and run the matching per-stage finder. --sections lists the
section titles instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log, path, err := readSbuildLog(args)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if sbuildSections {
			for _, title := range log.Titles() {
				fmt.Fprintln(out, title)
			}
			return nil
		}

		failure, err := sbuild.FailureFromLog(log)
		if err != nil {
			return err
		}

		if sbuildFlags.jsonOut() {
			raw, err := json.MarshalIndent(failure, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(raw))
		} else {
			fmt.Fprintln(out, failure.String())
			if failure.Match != nil && failure.Section != nil {
				fmt.Fprint(out, sbuildFlags.renderer().Diagnosis(
					failure.Section.Lines, failure.Match, failure.Error))
			}
		}

		if failure.Error != nil || failure.Match != nil {
			return sbuildFlags.recordDiagnosis(GetContext(), path, failure.Stage,
				failure.Match, failure.Error)
		}
		return nil
	},
}

// readSbuildLog parses the transcript from the file argument or stdin.
// Section parsing needs raw lines with their terminators, so this does not
// go through readWindow.
func readSbuildLog(args []string) (*sbuild.Log, string, error) {
	if len(args) == 0 || args[0] == "-" {
		log, err := sbuild.Parse(os.Stdin)
		return log, "stdin", err
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	log, err := sbuild.Parse(f)
	return log, args[0], err
}

func init() {
	sbuildFlags.register(sbuildCmd)
	sbuildCmd.Flags().BoolVar(&sbuildSections, "sections", false, "list section titles and exit")
}
