package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/poku-e/shootingboard/internal/scores"
)

func newGoalsCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goals",
		Short: "Show or set the team goals drawn on score charts",
	}
	cmd.AddCommand(newGoalsListCmd(g), newGoalsSetCmd(g))
	return cmd
}

func newGoalsListCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the team goal of every target event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			db, err := load(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "EVENT\tGENDER\tTARGET")
			for _, gender := range scores.Genders {
				goals := db.TeamGoals(gender)
				for _, e := range scores.SortEvents(mapKeys(goals)) {
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%.1f\n", e, gender, goals[e])
				}
			}
			return tw.Flush()
		},
	}
}

func newGoalsSetCmd(g *globals) *cobra.Command {
	var (
		event  string
		gender string
		target float64
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set one team goal in the snapshot",
		Example: `  shootingboard goals set --event AR60 --gender 男 --target 625
  shootingboard goals set --event P60 --gender 女 --target 555.5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			err = editSnapshot(cfg, func(db *scores.DB) error {
				if err := db.SetTeamGoal(event, gender, target); err != nil {
					return exitError(ExitInvalidArgs, "%v", err)
				}
				return nil
			})
			if err != nil {
				return err
			}
			ok := color.New(color.FgGreen)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s team goal %s %s = %.1f -> %s\n", ok.Sprint("OK:"), event, gender, target, cfg.Data)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&event, "event", "", "event, e.g. AR60")
	f.StringVar(&gender, "gender", "", "division: "+scores.Male+" or "+scores.Female)
	f.Float64Var(&target, "target", 0, "goal total")
	_ = cmd.MarkFlagRequired("event")
	_ = cmd.MarkFlagRequired("gender")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func mapKeys(m map[string]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
