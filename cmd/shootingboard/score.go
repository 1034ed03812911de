package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/poku-e/shootingboard/internal/scores"
)

func newScoreCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Correct or remove a stored score",
	}
	cmd.AddCommand(newScoreEditCmd(g), newScoreDeleteCmd(g))
	return cmd
}

type scoreEdit struct {
	shots    []float64
	total    float64
	date     string
	match    string
	event    string
	category string
}

// apply changes the fields whose flags were given on cmd.
func (e *scoreEdit) apply(cmd *cobra.Command, s *scores.Score) error {
	f := cmd.Flags()
	if f.Changed("shots") {
		if len(e.shots) != len(s.Shots) {
			return exitError(ExitInvalidArgs, "--shots needs %d values, got %d", len(s.Shots), len(e.shots))
		}
		var shots [6]float64
		copy(shots[:], e.shots)
		s.SetShots(shots)
	}
	if f.Changed("total") {
		if f.Changed("shots") {
			return exitError(ExitInvalidArgs, "--total and --shots cannot be combined")
		}
		s.Total = e.total
	}
	if f.Changed("date") {
		d, err := time.Parse(scores.DateLayout, e.date)
		if err != nil {
			return exitError(ExitInvalidArgs, "--date %q: want YYYY/MM/DD", e.date)
		}
		s.Date = d
	}
	if f.Changed("match") {
		s.Match = e.match
	}
	if f.Changed("event") {
		s.Event = e.event
	}
	if f.Changed("category") {
		s.Category = e.category
	}
	return nil
}

func newScoreEditCmd(g *globals) *cobra.Command {
	e := &scoreEdit{}
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of one score in the snapshot",
		Long: `Change fields of one score. Only the flags given are changed. --shots
replaces the six series scores and recomputes the total.`,
		Example: `  shootingboard score edit 42 --shots 101.2,102,100.5,99.8,101,100
  shootingboard score edit 42 --match 秋季関東大会 --date 2025/10/19`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := scoreID(args[0])
			if err != nil {
				return err
			}
			cfg, err := g.config()
			if err != nil {
				return err
			}
			var edited scores.Score
			err = editSnapshot(cfg, func(db *scores.DB) error {
				s, ok := db.Score(id)
				if !ok {
					return exitError(ExitInvalidArgs, "%v %d", scores.ErrUnknownScore, id)
				}
				if err := e.apply(cmd, &s); err != nil {
					return err
				}
				edited = s
				return db.UpdateScore(s)
			})
			if err != nil {
				return err
			}
			ok := color.New(color.FgGreen)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s score %d: %s %s %s %.1f\n", ok.Sprint("OK:"), edited.ID,
				edited.Date.Format(scores.DateLayout), edited.Match, edited.Event, edited.Total)
			return nil
		},
	}
	f := cmd.Flags()
	f.Float64SliceVar(&e.shots, "shots", nil, "the six series scores, comma separated")
	f.Float64Var(&e.total, "total", 0, "total (when no series scores are known)")
	f.StringVar(&e.date, "date", "", "date, YYYY/MM/DD")
	f.StringVar(&e.match, "match", "", "match name")
	f.StringVar(&e.event, "event", "", "event")
	f.StringVar(&e.category, "category", "", "category (Regular marks team members)")
	return cmd
}

func newScoreDeleteCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove one score from the snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := scoreID(args[0])
			if err != nil {
				return err
			}
			cfg, err := g.config()
			if err != nil {
				return err
			}
			var removed scores.Score
			err = editSnapshot(cfg, func(db *scores.DB) error {
				s, err := db.DeleteScore(id)
				if errors.Is(err, scores.ErrUnknownScore) {
					return exitError(ExitInvalidArgs, "%v", err)
				}
				removed = s
				return err
			})
			if err != nil {
				return err
			}
			ok := color.New(color.FgGreen)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s deleted score %d (%s %s %.1f)\n", ok.Sprint("OK:"), removed.ID,
				removed.Match, removed.Event, removed.Total)
			return nil
		},
	}
}

func scoreID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, exitError(ExitInvalidArgs, "bad score id %q", arg)
	}
	return id, nil
}
