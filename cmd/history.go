package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/newhook/buildlog/internal/history"
)

var (
	historyJSON  bool
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded diagnoses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open(cfg.History.GetPath())
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.List(GetContext(), historyLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if historyJSON {
			raw, err := json.MarshalIndent(runs, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(raw))
			return nil
		}

		w := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tPATH\tSTAGE\tKIND\tLINE")
		for _, run := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
				run.CreatedAt.Local().Format(time.DateTime),
				run.Path, run.Stage, run.Kind, run.Lineno)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "emit runs as JSON")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "maximum runs to list")
}
