package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/poku-e/shootingboard/internal/scores"
	"github.com/poku-e/shootingboard/internal/store"
)

func newImportCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "import [file.csv ...]",
		Short: "Build the results snapshot from score uploads or the database",
		Long: `Append score upload CSVs (選手名, 性別, 入部年度, 日付, 大会名, 識別, 種目,
S1..S6, 合計点) to the snapshot. Unknown players are created. Files may be
UTF-8 or Shift_JIS. With no files, the snapshot is rebuilt from --database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			snap, err := scores.OpenSnapshot(cfg.Data)
			if err != nil {
				return exitError(ExitDataError, "open %s: %v", cfg.Data, err)
			}
			w := cmd.OutOrStdout()
			ok := color.New(color.FgGreen)
			warn := color.New(color.FgYellow)

			if len(args) == 0 {
				if cfg.Database == "" {
					return exitError(ExitInvalidArgs, "nothing to import (pass CSV files or --database)")
				}
				st, err := store.Open(cfg.Database)
				if err != nil {
					return exitError(ExitDataError, "%v", err)
				}
				defer st.Close()
				db, err := st.Load(cmd.Context())
				if err != nil {
					return exitError(ExitDataError, "load %s: %v", cfg.Database, err)
				}
				if err := snap.Replace(db); err != nil {
					return exitError(ExitDataError, "write %s: %v", cfg.Data, err)
				}
				_, _ = fmt.Fprintf(w, "%s %d players, %d scores -> %s\n", ok.Sprint("OK:"), len(db.Players), len(db.Scores), cfg.Data)
				return nil
			}

			db := cloneDB(snap.DB())
			now := time.Now()
			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return exitError(ExitDataError, "open %s: %v", path, err)
				}
				stats, err := db.ImportCSV(f, now)
				_ = f.Close()
				if err != nil {
					return exitError(ExitDataError, "import %s: %v", path, err)
				}
				line := fmt.Sprintf("%s: %d imported, %d new players", path, stats.Imported, stats.NewPlayers)
				if stats.Skipped > 0 {
					line += warn.Sprintf(", %d skipped", stats.Skipped)
				}
				_, _ = fmt.Fprintln(w, line)
			}
			if err := snap.Replace(db); err != nil {
				return exitError(ExitDataError, "write %s: %v", cfg.Data, err)
			}
			_, _ = fmt.Fprintf(w, "%s %d players, %d scores -> %s\n", ok.Sprint("OK:"), len(db.Players), len(db.Scores), cfg.Data)
			return nil
		},
	}
}
