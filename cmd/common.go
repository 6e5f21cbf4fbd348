package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/newhook/buildlog/internal/history"
	"github.com/newhook/buildlog/internal/lines"
	"github.com/newhook/buildlog/internal/match"
	"github.com/newhook/buildlog/internal/problem"
	"github.com/newhook/buildlog/internal/render"
)

// readWindow reads the log to analyze from the file argument, or stdin when
// no argument (or "-") is given. ANSI escapes are stripped before anything
// looks at the lines.
func readWindow(args []string) ([]string, string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, "", fmt.Errorf("reading stdin: %w", err)
		}
		return lines.Clean(string(data)), "stdin", nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, "", err
	}
	return lines.Clean(string(data)), args[0], nil
}

// outputFlags are the flags shared by every analyze-family command.
type outputFlags struct {
	json       bool
	record     bool
	contextArg int
}

func (f *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.json, "json", false, "emit the JSON envelope instead of text")
	cmd.Flags().BoolVar(&f.record, "record", false, "persist the diagnosis to the history database")
	cmd.Flags().IntVar(&f.contextArg, "context", -1, "log lines of context around the match")
}

func (f *outputFlags) jsonOut() bool {
	return f.json || cfg.Output.JSON
}

func (f *outputFlags) contextLines() int {
	if f.contextArg >= 0 {
		return f.contextArg
	}
	return cfg.Output.GetContextLines()
}

func (f *outputFlags) renderer() render.Renderer {
	return render.Renderer{
		Color:   cfg.Output.ShouldColor(),
		Context: f.contextLines(),
		Width:   cfg.Output.GetWrapWidth(),
	}
}

// emit prints a diagnosis in the selected format.
func (f *outputFlags) emit(out io.Writer, window []string, m match.Match, p problem.Problem) error {
	if f.jsonOut() {
		raw, err := render.JSON(m, p)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(raw))
		return nil
	}
	fmt.Fprint(out, f.renderer().Diagnosis(window, m, p))
	return nil
}

// recordDiagnosis persists a diagnosis when recording is requested and the
// store is enabled.
func (f *outputFlags) recordDiagnosis(ctx context.Context, path, stage string, m match.Match, p problem.Problem) error {
	if !f.record || !cfg.History.IsEnabled() {
		return nil
	}
	store, err := history.Open(cfg.History.GetPath())
	if err != nil {
		return err
	}
	defer store.Close()

	run := history.Run{Path: path, Stage: stage}
	if m != nil {
		run.Lineno = m.Lineno()
		run.Origin = string(m.Origin())
	}
	if p != nil {
		run.Kind = p.Kind()
		details, err := problem.MarshalJSON(p)
		if err != nil {
			return err
		}
		run.Details = string(details)
	}
	_, err = store.Record(ctx, run)
	return err
}
