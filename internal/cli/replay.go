package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"padel-scoring/internal/scenario"
	"padel-scoring/internal/scoring"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	SetsToWin int
	Trace     bool
	NoCheck   bool
}

// ReplayScenarioResult is the per-file outcome.
type ReplayScenarioResult struct {
	File     string             `json:"file"`
	Name     string             `json:"name"`
	Events   int                `json:"events"`
	Rejected int                `json:"rejected"`
	Sets     []scoring.SetScore `json:"sets"`
	SetsWon  scoring.SetScore   `json:"setsWon"`
	Winner   scoring.Side       `json:"winner"`
	Passed   bool               `json:"passed"`
	Failure  string             `json:"failure,omitempty"`

	report *scenario.Report
}

type ReplayResult struct {
	Scenarios []ReplayScenarioResult `json:"scenarios"`
	Passed    int                    `json:"passed"`
	Failed    int                    `json:"failed"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <scenario.yaml>...",
		Short: "Replay scoring scenarios through the match engine",
		Long: `Replay one or more scenario files and check their expectations.

Each file lists button presses in shorthand ("aaab", "undo a", "reset",
"finish") plus an optional starting snapshot and expected final state.

Exit codes:
  0 - All scenarios passed
  1 - At least one scenario failed its expectations
  2 - Command error (unreadable or invalid scenario file)

Examples:
  padelctl replay testdata/scenarios/deuce-advantage.yaml
  padelctl replay --trace match.yaml
  padelctl replay --format json scenarios/*.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd, args)
		},
	}

	cmd.Flags().IntVar(&opts.SetsToWin, "sets-to-win", 0, "override the scenario's sets-to-win threshold")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "print every event with the state after it")
	cmd.Flags().BoolVar(&opts.NoCheck, "no-check", false, "do not fail on unmet expectations")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command, files []string) error {
	out := opts.formatter(cmd)
	log := out.Logger()
	result := ReplayResult{}

	for _, file := range files {
		sc, err := scenario.Load(file)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load scenario", err)
		}
		if opts.SetsToWin > 0 {
			sc.SetsToWin = opts.SetsToWin
		}

		log.Debug("replaying", "file", file, "steps", len(sc.Steps), "setsToWin", sc.Engine().SetsToWin())
		rep, err := scenario.Run(sc.Engine(), sc)
		if err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("scenario %s aborted", sc.Name), err)
		}

		r := summarize(file, rep)
		if !opts.NoCheck {
			if err := rep.Check(); err != nil {
				r.Passed = false
				r.Failure = err.Error()
			}
		}
		if r.Passed {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Scenarios = append(result.Scenarios, r)
	}

	err := out.Success(result, func(w io.Writer) error {
		for _, r := range result.Scenarios {
			if err := renderScenario(out, w, r, opts.Trace); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, "%d passed, %d failed\n", result.Passed, result.Failed)
		return err
	})
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

func summarize(file string, rep *scenario.Report) ReplayScenarioResult {
	final := rep.Final
	r := ReplayScenarioResult{
		File:    file,
		Name:    rep.Scenario.Name,
		Events:  len(rep.Trace),
		Sets:    scoring.Snapshot{A: final.Games[0], B: final.Games[1]}.Sets(),
		SetsWon: scoring.SetScore{A: final.SetsWon(scoring.SideA), B: final.SetsWon(scoring.SideB)},
		Winner:  final.Winner,
		Passed:  true,
		report:  rep,
	}
	for _, line := range rep.Trace {
		if line.Rejected != "" {
			r.Rejected++
		}
	}
	return r
}

func renderScenario(out *OutputFormatter, w io.Writer, r ReplayScenarioResult, trace bool) error {
	status := "PASS"
	if !r.Passed {
		status = "FAIL"
	}
	fmt.Fprintf(w, "%s %s (%s, %d events)\n", status, r.Name, r.File, r.Events)
	if r.Failure != "" {
		fmt.Fprintf(w, "  %s\n", r.Failure)
	}

	if trace {
		rows := [][]string{{"#", "Event", "Points", "Games", "Notes"}}
		for _, line := range r.report.Trace {
			rows = append(rows, []string{
				strconv.Itoa(line.Seq),
				line.Event.String(),
				line.State.Points[0].String() + "/" + line.State.Points[1].String(),
				scenario.FormatGames(line.State.Games),
				line.Notes(),
			})
		}
		if err := out.Table(rows); err != nil {
			return err
		}
	}

	final := r.report.Final
	games := scoring.Snapshot{A: final.Games[0], B: final.Games[1]}
	header := []string{"Side"}
	for i := range r.Sets {
		header = append(header, fmt.Sprintf("Set %d", i+1))
	}
	header = append(header, "Points", "Sets")
	rows := [][]string{header}
	for _, side := range scoring.Sides {
		name := "A"
		if side == scoring.SideB {
			name = "B"
		}
		if final.Winner == side {
			name += " *"
		}
		row := []string{name}
		for _, g := range games.Games(side) {
			row = append(row, strconv.Itoa(g))
		}
		row = append(row, final.PointsOf(side).String(), strconv.Itoa(final.SetsWon(side)))
		rows = append(rows, row)
	}
	return out.Table(rows)
}
