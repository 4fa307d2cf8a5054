package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"ecotrack/internal/core"
)

// ExportedActivity is one row read back from an activities worksheet.
type ExportedActivity struct {
	UserID string
	core.ActivityRecord
}

func activityRow(userID string, rec core.ActivityRecord) []any {
	ts := rec.Timestamp.UTC()
	return []any{
		ts.Format("2006-01-02"),
		ts.Format("15:04:05"),
		userID,
		string(rec.Category),
		rec.Subtype,
		rec.Secondary,
		rec.Quantity,
		core.Round1(rec.ComputedCO2),
		string(rec.Source),
		rec.ID,
	}
}

// parseActivityRows converts a values matrix back into activities. The header
// row and rows that do not parse are skipped.
func parseActivityRows(values [][]any) []ExportedActivity {
	var out []ExportedActivity
	for _, raw := range values {
		row := toStrings(raw)
		if len(row) < 10 || strings.EqualFold(row[0], headerRowFirstCell) {
			continue
		}
		ts, err := time.Parse("2006-01-02 15:04:05", row[0]+" "+row[1])
		if err != nil {
			continue
		}
		qty, ok := parseDecimal(row[6])
		if !ok {
			continue
		}
		co2, ok := parseDecimal(row[7])
		if !ok {
			continue
		}
		out = append(out, ExportedActivity{
			UserID: row[2],
			ActivityRecord: core.ActivityRecord{
				ID:          row[9],
				Category:    core.Category(row[3]),
				Subtype:     row[4],
				Secondary:   row[5],
				Quantity:    qty,
				ComputedCO2: co2,
				Source:      core.Source(row[8]),
				Timestamp:   ts,
			},
		})
	}
	return out
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// parseDecimal accepts both decimal separators, as sheets in some locales
// render numbers with a comma.
func parseDecimal(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
