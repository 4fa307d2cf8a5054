package core

import "time"

// DailyTotal sums the CO2 of records whose calendar day, in now's location,
// equals now's calendar day. It is a fresh reduction on every call.
func DailyTotal(records []ActivityRecord, now time.Time) float64 {
	start := startOfDay(now)
	return totalBetween(records, start, start.AddDate(0, 0, 1))
}

// WeekTotal sums the CO2 logged since Monday 00:00 of now's week, up to the
// end of the week.
func WeekTotal(records []ActivityRecord, now time.Time) float64 {
	start := StartOfWeek(now)
	return totalBetween(records, start, start.AddDate(0, 0, 7))
}

// CategoryBreakdown returns one entry per category, in display order, for
// records with from <= timestamp < to.
func CategoryBreakdown(records []ActivityRecord, from, to time.Time) []CategoryAmount {
	sums := make(map[Category]float64, 4)
	for _, r := range records {
		if inRange(r.Timestamp, from, to) {
			sums[r.Category] += r.ComputedCO2
		}
	}
	out := make([]CategoryAmount, 0, 4)
	for _, c := range Categories() {
		out = append(out, CategoryAmount{Category: c, CO2: sums[c]})
	}
	return out
}

// WeekDays returns the Monday..Sunday totals of now's week.
func WeekDays(records []ActivityRecord, now time.Time) []DayTotal {
	start := StartOfWeek(now)
	days := make([]DayTotal, 7)
	for i := range days {
		d := start.AddDate(0, 0, i)
		days[i] = DayTotal{
			Day:   d.Format("Mon"),
			Date:  d.Format("2006-01-02"),
			Total: totalBetween(records, d, d.AddDate(0, 0, 1)),
		}
	}
	return days
}

// Summarize builds the dashboard view. weeklyProgress and weeklyGoal are
// independent scalars supplied by the caller.
func Summarize(records []ActivityRecord, now time.Time, weeklyProgress, weeklyGoal float64) Summary {
	today := startOfDay(now)
	yesterday := today.AddDate(0, 0, -1)
	week := StartOfWeek(now)

	s := Summary{
		Today:           totalBetween(records, today, today.AddDate(0, 0, 1)),
		Yesterday:       totalBetween(records, yesterday, today),
		TodayByCategory: CategoryBreakdown(records, today, today.AddDate(0, 0, 1)),
		WeekByCategory:  CategoryBreakdown(records, week, week.AddDate(0, 0, 7)),
		Week:            WeekDays(records, now),
		WeeklyProgress:  weeklyProgress,
		WeeklyGoal:      weeklyGoal,
		ActivityCount:   len(records),
	}
	if s.Yesterday > 0 {
		change := (s.Today - s.Yesterday) / s.Yesterday * 100
		s.ChangePercent = &change
	}
	s.ProgressRatio = ProgressRatio(weeklyProgress, weeklyGoal)
	s.ProgressPercent = min(max(s.ProgressRatio*100, 0), 100)
	s.Remaining = max(weeklyGoal-weeklyProgress, 0)
	return s
}

// ProgressRatio is progress/goal, or zero when no positive goal is set.
func ProgressRatio(progress, goal float64) float64 {
	if goal <= 0 {
		return 0
	}
	return progress / goal
}

// StartOfWeek returns Monday 00:00 of t's week in t's location.
func StartOfWeek(t time.Time) time.Time {
	d := startOfDay(t)
	offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
	return d.AddDate(0, 0, -offset)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func totalBetween(records []ActivityRecord, from, to time.Time) float64 {
	var total float64
	for _, r := range records {
		if inRange(r.Timestamp, from, to) {
			total += r.ComputedCO2
		}
	}
	return total
}

func inRange(ts, from, to time.Time) bool {
	return !ts.Before(from) && ts.Before(to)
}
