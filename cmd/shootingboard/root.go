package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"slices"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/poku-e/shootingboard/internal/config"
	sblog "github.com/poku-e/shootingboard/internal/log"
	"github.com/poku-e/shootingboard/internal/scores"
	"github.com/poku-e/shootingboard/internal/store"
)

// globals are the persistent flags shared by every subcommand.
type globals struct {
	verbose    bool
	quiet      bool
	noColor    bool
	configPath string
	data       string
	database   string
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:   "shootingboard",
		Short: "Browse, filter and chart club shooting results",
		Long: `shootingboard serves the club's shooting results site and works with the
same data from the command line: filter players and rankings, render score
charts with team and personal goal lines, and export tables to CSV or XLSX.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			sblog.Setup(g.verbose, g.quiet)
			if g.noColor {
				color.NoColor = true
			}
		},
	}

	pf := root.PersistentFlags()
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "enable verbose output")
	pf.BoolVarP(&g.quiet, "quiet", "q", false, "suppress non-essential output")
	pf.BoolVar(&g.noColor, "no-color", false, "disable colored output")
	pf.StringVar(&g.configPath, "config", "", "config file (default: shootingboard.yaml or .toml in the working directory)")
	pf.StringVar(&g.data, "data", "", "results snapshot (JSON)")
	pf.StringVar(&g.database, "database", "", "read results from this SQLite database instead of the snapshot")

	root.AddCommand(
		newServeCmd(g),
		newFilterCmd(g),
		newChartCmd(g),
		newExportCmd(g),
		newImportCmd(g),
		newGoalsCmd(g),
		newScoreCmd(g),
		newVersionCmd(),
	)
	return root
}

// config loads and validates the config, then applies flag overrides.
func (g *globals) config() (config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if g.configPath != "" {
		cfg, err = config.LoadFile(g.configPath)
	} else {
		cfg, err = config.Load(".")
	}
	if err != nil {
		return config.Config{}, exitError(ExitInvalidArgs, "config: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, exitError(ExitInvalidArgs, "%v", err)
	}
	if g.data != "" {
		cfg.Data = g.data
	}
	if g.database != "" {
		cfg.Database = g.database
	}
	return cfg.WithDefaults(), nil
}

// load reads the results from the SQLite database when one is configured,
// otherwise from the snapshot.
func load(ctx context.Context, cfg config.Config) (*scores.DB, error) {
	if cfg.Database != "" {
		st, err := store.Open(cfg.Database)
		if err != nil {
			return nil, exitError(ExitDataError, "%v", err)
		}
		defer st.Close()
		db, err := st.Load(ctx)
		if err != nil {
			return nil, exitError(ExitDataError, "load %s: %v", cfg.Database, err)
		}
		slog.Debug("loaded database", "path", st.Path(), "players", len(db.Players), "scores", len(db.Scores))
		return db, nil
	}
	if _, err := os.Stat(cfg.Data); errors.Is(err, os.ErrNotExist) {
		slog.Warn("no results snapshot; starting empty", "path", cfg.Data)
	}
	snap, err := scores.OpenSnapshot(cfg.Data)
	if err != nil {
		return nil, exitError(ExitDataError, "load %s: %v", cfg.Data, err)
	}
	db := snap.DB()
	slog.Debug("loaded snapshot", "path", cfg.Data, "players", len(db.Players), "scores", len(db.Scores))
	return db, nil
}

// cloneDB copies db so it can be modified without touching the original.
func cloneDB(db *scores.DB) *scores.DB {
	return &scores.DB{
		Players: slices.Clone(db.Players),
		Scores:  slices.Clone(db.Scores),
		Goals:   slices.Clone(db.Goals),
	}
}

// editSnapshot applies fn to a copy of the snapshot and writes the result
// back. The SQLite database is read-only, so edits refuse --database.
func editSnapshot(cfg config.Config, fn func(*scores.DB) error) error {
	if cfg.Database != "" {
		return exitError(ExitInvalidArgs, "edits go to the snapshot; %s is read-only", cfg.Database)
	}
	snap, err := scores.OpenSnapshot(cfg.Data)
	if err != nil {
		return exitError(ExitDataError, "open %s: %v", cfg.Data, err)
	}
	db := cloneDB(snap.DB())
	if err := fn(db); err != nil {
		return err
	}
	if err := snap.Replace(db); err != nil {
		return exitError(ExitDataError, "write %s: %v", cfg.Data, err)
	}
	slog.Debug("snapshot updated", "path", cfg.Data, "players", len(db.Players), "scores", len(db.Scores))
	return nil
}
