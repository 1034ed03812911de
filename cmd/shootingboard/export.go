package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/poku-e/shootingboard/internal/export"
	"github.com/poku-e/shootingboard/internal/rowfilter"
	"github.com/poku-e/shootingboard/internal/scores"
	"github.com/poku-e/shootingboard/internal/view"
)

func newExportCmd(g *globals) *cobra.Command {
	o := &tableOpts{}
	var (
		out    string
		target string
		index  int
	)
	cmd := &cobra.Command{
		Use:   "export players|history|ranking",
		Short: "Export the visible rows of a table to CSV or XLSX",
		Long: `Export the rows left visible by the filter. XLSX output also gets one sheet
per chart with its data grid and a native line chart: the player's event
charts for history, the monthly averages otherwise.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			db, err := load(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			t, err := o.table(db, args[0], time.Now())
			if err != nil {
				return err
			}
			vis := rowfilter.ComputeVisibility(t.records, o.state())

			switch strings.ToLower(filepath.Ext(out)) {
			case ".csv":
				err = writeCSVFile(out, t.records, vis)
			case ".xlsx":
				var charts []export.Chart
				charts, err = exportCharts(cmd.Context(), db, args[0], o.player, index, target)
				if err == nil {
					err = export.WriteXLSX(out, t.title, t.records, vis, charts)
				}
			default:
				return exitError(ExitInvalidArgs, "out must end with .csv or .xlsx")
			}
			if err != nil {
				return exitError(ExitDataError, "export: %v", err)
			}
			visible, _ := rowfilter.Counts(vis)
			ok := color.New(color.FgGreen)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %d rows -> %s\n", ok.Sprint("OK:"), visible, out)
			return nil
		},
	}
	o.register(cmd.Flags())
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (.csv or .xlsx)")
	cmd.Flags().StringVar(&target, "target", "", "personal goal for the history chart at --index")
	cmd.Flags().IntVar(&index, "index", 0, "history chart the --target applies to")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func writeCSVFile(path string, records []rowfilter.Record, vis []rowfilter.Visibility) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteCSV(f, records, vis); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func exportCharts(ctx context.Context, db *scores.DB, kind string, player int64, index int, target string) ([]export.Chart, error) {
	if kind == "history" {
		p, err := view.NewPlayerPage(db, player, nil)
		if err != nil {
			return nil, err
		}
		if err := p.Init(ctx); err != nil {
			return nil, err
		}
		if err := p.SetPersonalTarget(ctx, index, target); err != nil {
			return nil, err
		}
		var out []export.Chart
		for i, s := range p.Base {
			out = append(out, export.Chart{Title: s.Event, Labels: p.Labels, Series: p.Chart(i)})
		}
		return out, nil
	}
	var out []export.Chart
	for _, tr := range db.MonthlyAverages(scores.TargetEvents) {
		out = append(out, export.Chart{Title: tr.Title(), Labels: tr.Labels, Series: tr.Series})
	}
	return out, nil
}
