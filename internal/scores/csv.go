package scores

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// ErrMissingColumn is returned when an upload lacks a required header.
var ErrMissingColumn = errors.New("missing required column")

// ImportStats summarizes one upload.
type ImportStats struct {
	Rows       int
	Imported   int
	Skipped    int
	NewPlayers int
}

// Column headers of the upload sheet.
const (
	colName      = "選手名"
	colGender    = "性別"
	colEntryYear = "入部年度"
	colDate      = "日付"
	colMatch     = "大会名"
	colCategory  = "識別"
	colEvent     = "種目"
	colTotal     = "合計点"
	colTotalAlt  = "合計"
)

const defaultEntryYear = 2024

// ImportCSV appends the rows of an upload to db. The file may be UTF-8 or
// Shift_JIS (Excel's default on Japanese Windows). Rows that cannot be read
// are skipped; an unreadable date becomes now.
func (db *DB) ImportCSV(r io.Reader, now time.Time) (ImportStats, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return ImportStats{}, fmt.Errorf("read csv: %w", err)
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(raw) {
		raw, _, err = transform.Bytes(japanese.ShiftJIS.NewDecoder(), raw)
		if err != nil {
			return ImportStats{}, fmt.Errorf("decode shift_jis: %w", err)
		}
	}

	cr := csv.NewReader(bytes.NewReader(raw))
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return ImportStats{}, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return ImportStats{}, fmt.Errorf("csv has no rows")
	}

	headers := map[string]int{}
	for i, h := range records[0] {
		headers[strings.TrimSpace(h)] = i
	}
	if _, ok := headers[colName]; !ok {
		return ImportStats{}, fmt.Errorf("%w: %s", ErrMissingColumn, colName)
	}

	cell := func(row []string, name string) (string, bool) {
		i, ok := headers[name]
		if !ok || i >= len(row) {
			return "", false
		}
		return strings.TrimSpace(row[i]), true
	}

	nextPlayer, nextScore := db.nextIDs()
	var stats ImportStats
	for _, row := range records[1:] {
		stats.Rows++
		name, _ := cell(row, colName)
		if name == "" {
			stats.Skipped++
			continue
		}

		var shots [6]float64
		ok := true
		for i := range shots {
			v, present := cell(row, fmt.Sprintf("S%d", i+1))
			if !present || v == "" {
				continue
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				ok = false
				break
			}
			shots[i] = f
		}
		if !ok {
			stats.Skipped++
			continue
		}

		player, found := db.PlayerByName(name)
		if !found {
			gender, _ := cell(row, colGender)
			year := defaultEntryYear
			if v, present := cell(row, colEntryYear); present {
				if n, err := strconv.Atoi(v); err == nil {
					year = n
				}
			}
			player = Player{ID: nextPlayer, Name: name, Gender: gender, EntryYear: year}
			nextPlayer++
			db.Players = append(db.Players, player)
			stats.NewPlayers++
		}

		date := dateOnly(now)
		if v, _ := cell(row, colDate); v != "" {
			if d, err := parseDate(v); err == nil {
				date = d
			}
		}

		match, _ := cell(row, colMatch)
		category, _ := cell(row, colCategory)
		event, _ := cell(row, colEvent)
		db.Scores = append(db.Scores, Score{
			ID:       nextScore,
			PlayerID: player.ID,
			Date:     date,
			Match:    match,
			Category: category,
			Event:    event,
			Shots:    shots,
			Total:    rowTotal(row, cell, shots),
		})
		nextScore++
		stats.Imported++
	}
	return stats, nil
}

// rowTotal prefers the sheet's total column and falls back to the sum of
// the series when the total is blank or zero.
func rowTotal(row []string, cell func([]string, string) (string, bool), shots [6]float64) float64 {
	for _, col := range []string{colTotal, colTotalAlt} {
		v, _ := cell(row, col)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) {
			continue
		}
		if f != 0 {
			return f
		}
		break
	}
	var sum float64
	for _, s := range shots {
		sum += s
	}
	return sum
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{DateLayout, "2006-01-02", "2006/1/2"} {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func (db *DB) nextIDs() (player, score int64) {
	player, score = 1, 1
	for _, p := range db.Players {
		if p.ID >= player {
			player = p.ID + 1
		}
	}
	for _, s := range db.Scores {
		if s.ID >= score {
			score = s.ID + 1
		}
	}
	return player, score
}
