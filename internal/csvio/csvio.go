// Package csvio reads and writes injection history as Date,Site,Dose CSV.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/consequentlyvaluable/InjectionBuddy/internal/state"
)

// Header is the column row written on export and detected on import.
var Header = []string{"Date", "Site", "Dose"}

// Export writes history with a header row. Dates are calendar days in loc;
// a nil loc means UTC.
func Export(w io.Writer, history []state.HistoryEntry, loc *time.Location) error {
	loc = orUTC(loc)
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, h := range history {
		row := []string{h.Time().In(loc).Format(time.DateOnly), h.Site, h.Dose}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// Parse reads CSV rows into history entries. The header row is optional.
// Dates are midnight in loc (nil means UTC), so a row lands on the calendar
// day it names. Dates that cannot be parsed are stamped with now.
func Parse(r io.Reader, now time.Time, loc *time.Location) ([]state.HistoryEntry, error) {
	loc = orUTC(loc)
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil, nil
	}

	cr := csv.NewReader(strings.NewReader(text))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	if len(records) > 0 && hasHeader(records[0]) {
		records = records[1:]
	}

	out := make([]state.HistoryEntry, 0, len(records))
	for _, rec := range records {
		if blank(rec) {
			continue
		}
		date, site, dose := field(rec, 0), field(rec, 1), field(rec, 2)
		ts, ok := ParseDate(date, loc)
		if !ok {
			ts = now
		}
		out = append(out, state.HistoryEntry{
			TS:   state.EpochMillis(ts),
			Site: norm.NFC.String(site),
			Dose: dose,
		})
	}
	return out, nil
}

func hasHeader(row []string) bool {
	for _, want := range Header {
		found := false
		for _, col := range row {
			if col == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func orUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

var dayMonthYear = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{2,4})`)

// ParseDate reads an ISO YYYY-MM-DD date, or a D/M/YY or D/M/YYYY date, as
// midnight in loc (nil means UTC). Two-digit years are taken as 20YY.
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	loc = orUTC(loc)
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t, true
	}
	m := dayMonthYear.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	switch len(m[3]) {
	case 2:
		year += 2000
	case 3:
		return time.Time{}, false
	}
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// MergeResult counts the outcome of a merge.
type MergeResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// Merge appends the rows of incoming whose calendar day in loc has no entry
// in history yet, and returns the result sorted by timestamp. Days are taken
// from history before the merge, so rows of one batch never exclude each
// other.
func Merge(history, incoming []state.HistoryEntry, loc *time.Location) ([]state.HistoryEntry, MergeResult) {
	taken := make(map[string]bool, len(history))
	for _, h := range history {
		taken[state.DayKey(h.Time(), loc)] = true
	}

	out := make([]state.HistoryEntry, len(history), len(history)+len(incoming))
	copy(out, history)

	var res MergeResult
	for _, e := range incoming {
		if taken[state.DayKey(e.Time(), loc)] {
			res.Skipped++
			continue
		}
		out = append(out, e)
		res.Added++
	}
	state.SortHistory(out)
	return out, res
}
