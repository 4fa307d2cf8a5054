package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(c Category, co2 float64, ts time.Time) ActivityRecord {
	return ActivityRecord{Category: c, Subtype: "x", Quantity: 1, ComputedCO2: co2, Timestamp: ts}
}

func TestDailyTotalUsesLocalCalendarDay(t *testing.T) {
	loc := time.FixedZone("CET", 2*60*60)
	now := time.Date(2025, 6, 11, 15, 0, 0, 0, loc) // Wednesday

	records := []ActivityRecord{
		rec(Transport, 3.45, time.Date(2025, 6, 11, 0, 0, 0, 0, loc)),
		rec(Energy, 1.5, time.Date(2025, 6, 11, 23, 59, 59, 0, loc)),
		// 23:30 UTC on the 10th is 01:30 on the 11th in CET
		rec(Food, 2.5, time.Date(2025, 6, 10, 23, 30, 0, 0, time.UTC)),
		// excluded: previous and next local day
		rec(Waste, 100, time.Date(2025, 6, 10, 23, 59, 59, 0, loc)),
		rec(Waste, 100, time.Date(2025, 6, 12, 0, 0, 0, 0, loc)),
	}

	assert.InDelta(t, 7.45, DailyTotal(records, now), 1e-9)
}

func TestDailyTotalEmpty(t *testing.T) {
	assert.Zero(t, DailyTotal(nil, time.Now()))
}

func TestStartOfWeek(t *testing.T) {
	cases := []struct {
		in   time.Time
		want time.Time
	}{
		{time.Date(2025, 6, 9, 10, 0, 0, 0, time.UTC), time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)},  // Monday
		{time.Date(2025, 6, 15, 23, 0, 0, 0, time.UTC), time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)}, // Sunday
		{time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC), time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC)}, // Wednesday across year
	}
	for _, tc := range cases {
		assert.True(t, tc.want.Equal(StartOfWeek(tc.in)), "StartOfWeek(%v) = %v", tc.in, StartOfWeek(tc.in))
	}
}

func TestCategoryBreakdownHasEveryCategory(t *testing.T) {
	now := time.Date(2025, 6, 11, 12, 0, 0, 0, time.UTC)
	records := []ActivityRecord{
		rec(Transport, 4, now),
		rec(Transport, 0.2, now),
		rec(Waste, 0.4, now),
	}
	got := CategoryBreakdown(records, now.Add(-time.Hour), now.Add(time.Hour))
	require.Len(t, got, 4)
	assert.Equal(t, Transport, got[0].Category)
	assert.InDelta(t, 4.2, got[0].CO2, 1e-9)
	assert.Zero(t, got[1].CO2)
	assert.Zero(t, got[2].CO2)
	assert.InDelta(t, 0.4, got[3].CO2, 1e-9)
}

func TestSummarize(t *testing.T) {
	now := time.Date(2025, 6, 11, 12, 0, 0, 0, time.UTC) // Wednesday
	records := []ActivityRecord{
		rec(Transport, 6, now.Add(-time.Hour)),
		rec(Food, 2, now.Add(-2*time.Hour)),
		rec(Energy, 4, now.AddDate(0, 0, -1)),
		rec(Waste, 10, now.AddDate(0, 0, -7)), // last week
	}

	s := Summarize(records, now, WeekTotal(records, now), 50)

	assert.InDelta(t, 8, s.Today, 1e-9)
	assert.InDelta(t, 4, s.Yesterday, 1e-9)
	require.NotNil(t, s.ChangePercent)
	assert.InDelta(t, 100, *s.ChangePercent, 1e-9)
	assert.InDelta(t, 12, s.WeeklyProgress, 1e-9)
	assert.InDelta(t, 0.24, s.ProgressRatio, 1e-9)
	assert.InDelta(t, 24, s.ProgressPercent, 1e-9)
	assert.InDelta(t, 38, s.Remaining, 1e-9)
	assert.Equal(t, 4, s.ActivityCount)

	require.Len(t, s.Week, 7)
	assert.Equal(t, "Mon", s.Week[0].Day)
	assert.Equal(t, "2025-06-09", s.Week[0].Date)
	assert.InDelta(t, 4, s.Week[1].Total, 1e-9)
	assert.InDelta(t, 8, s.Week[2].Total, 1e-9)
	assert.Zero(t, s.Week[6].Total)
}

func TestSummarizeGoalEdges(t *testing.T) {
	now := time.Now()

	s := Summarize(nil, now, 80, 50)
	assert.InDelta(t, 1.6, s.ProgressRatio, 1e-9)
	assert.Equal(t, 100.0, s.ProgressPercent)
	assert.Zero(t, s.Remaining)
	assert.Nil(t, s.ChangePercent)

	s = Summarize(nil, now, 10, 0)
	assert.Zero(t, s.ProgressRatio)
}
