package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/poku-e/shootingboard/internal/export"
	"github.com/poku-e/shootingboard/internal/rowfilter"
	"github.com/poku-e/shootingboard/internal/scores"
	"github.com/poku-e/shootingboard/internal/view"
)

// tableOpts selects one filterable table and the filter applied to it.
type tableOpts struct {
	query  string
	attrs  map[string]string
	player int64
	mode   string
	event  string
	season bool
	all    bool
}

func (o *tableOpts) register(f *pflag.FlagSet) {
	f.StringVar(&o.query, "query", "", "text search (spaces and case ignored)")
	f.StringToStringVar(&o.attrs, "attr", nil, "attribute filter key=value (repeatable)")
	f.Int64Var(&o.player, "player", 0, "player ID for the history table")
	f.StringVar(&o.mode, "mode", view.ModeAvg, "ranking mode: avg or max")
	f.StringVar(&o.event, "event", scores.TargetEvents[0], "ranking event")
	f.BoolVar(&o.season, "season", false, "rank the current season only")
	f.BoolVar(&o.all, "all", false, "list hidden rows too")
}

func (o *tableOpts) state() rowfilter.FilterState {
	s := rowfilter.FilterState{Query: o.query}
	keys := make([]string, 0, len(o.attrs))
	for k := range o.attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s = s.With(k, o.attrs[k])
	}
	return s
}

// table is a named record set with optional values shown beside each row.
type table struct {
	title   string
	records []rowfilter.Record
	values  []string
}

// records builds the table named kind from db.
func (o *tableOpts) table(db *scores.DB, kind string, now time.Time) (table, error) {
	switch kind {
	case "players":
		return table{title: "players", records: db.PlayerRecords()}, nil
	case "history":
		if _, ok := db.Player(o.player); !ok {
			return table{}, exitError(ExitInvalidArgs, "history: unknown player %d (use --player)", o.player)
		}
		history := db.ScoresOf(o.player)
		t := table{title: fmt.Sprintf("history of player %d", o.player), records: scores.HistoryRecords(history)}
		for _, s := range history {
			t.values = append(t.values, strconv.FormatFloat(s.Total, 'f', 1, 64))
		}
		return t, nil
	case "ranking":
		var since time.Time
		if o.season {
			since = scores.SeasonStart(now)
		}
		p := view.NewRankingPage(db, since)
		if err := p.SwitchMode(o.mode); err != nil {
			return table{}, exitError(ExitInvalidArgs, "%v", err)
		}
		if err := p.SwitchEvent(o.event); err != nil {
			return table{}, exitError(ExitInvalidArgs, "%v", err)
		}
		t := table{title: p.ActivePanel(), records: p.Panels[p.ActivePanel()]}
		rk := db.Rankings(since)
		for _, g := range scores.Genders {
			entries := rk[o.event][g].ByAvg
			if o.mode == view.ModeMax {
				entries = rk[o.event][g].ByMax
			}
			for _, e := range entries {
				v := e.Avg
				if o.mode == view.ModeMax {
					v = e.Max
				}
				t.values = append(t.values, strconv.FormatFloat(v, 'f', 1, 64))
			}
		}
		return t, nil
	default:
		return table{}, exitError(ExitInvalidArgs, "unknown table %q (players, history or ranking)", kind)
	}
}

func newFilterCmd(g *globals) *cobra.Command {
	o := &tableOpts{}
	cmd := &cobra.Command{
		Use:   "filter players|history|ranking",
		Short: "Filter a results table and print the visible rows",
		Long: `Filter a results table the way the site does: the text query ignores spaces
(including full-width ones) and case, and every --attr must match exactly.
Rows whose text matched the query are highlighted.`,
		Example: `  shootingboard filter players --query "すずき" --attr year=2023
  shootingboard filter history --player 12 --attr event=AR60
  shootingboard filter ranking --mode max --event SB3x20 --query 田中`,
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
			return printTable(cmd.OutOrStdout(), t, vis, o.all)
		},
	}
	o.register(cmd.Flags())
	return cmd
}

func printTable(w io.Writer, t table, vis []rowfilter.Visibility, all bool) error {
	bold := color.New(color.Bold)
	hit := color.New(color.FgYellow, color.Bold)
	dim := color.New(color.Faint)

	keys := export.AttrKeys(t.records)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	head := []string{bold.Sprint("ID"), bold.Sprint("NAME")}
	for _, k := range keys {
		head = append(head, bold.Sprint(strings.ToUpper(k)))
	}
	if t.values != nil {
		head = append(head, bold.Sprint("SCORE"))
	}
	_, _ = fmt.Fprintln(tw, strings.Join(head, "\t"))

	for i, r := range t.records {
		v := vis[i]
		if !v.Visible && !all {
			continue
		}
		cells := []string{r.ID, r.Text}
		for _, k := range keys {
			cells = append(cells, r.Attrs[k])
		}
		if i < len(t.values) {
			cells = append(cells, t.values[i])
		}
		line := strings.Join(cells, "\t")
		switch {
		case !v.Visible:
			line = dim.Sprint(line)
		case v.Highlight:
			line = hit.Sprint(line)
		}
		_, _ = fmt.Fprintln(tw, line)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	visible, highlighted := rowfilter.Counts(vis)
	_, err := fmt.Fprintf(w, "%s: %d of %d rows shown, %d matched\n", t.title, visible, len(t.records), highlighted)
	return err
}
