package core

// CategoryAmount represents a CO2 mass aggregated by category.
type CategoryAmount struct {
	Category Category `json:"category"`
	CO2      float64  `json:"co2"`
}

// DayTotal is the CO2 logged on one calendar day.
type DayTotal struct {
	Day   string  `json:"day"`  // short weekday name, e.g. "Mon"
	Date  string  `json:"date"` // YYYY-MM-DD in the aggregation location
	Total float64 `json:"footprint"`
}

// Summary is the dashboard view of the activity log at a given instant.
type Summary struct {
	Today           float64          `json:"today"`
	Yesterday       float64          `json:"yesterday"`
	ChangePercent   *float64         `json:"changeVsYesterday,omitempty"`
	TodayByCategory []CategoryAmount `json:"todayByCategory"`
	WeekByCategory  []CategoryAmount `json:"weekByCategory"`
	Week            []DayTotal       `json:"week"`
	WeeklyProgress  float64          `json:"weeklyProgress"`
	WeeklyGoal      float64          `json:"weeklyGoal"`
	ProgressRatio   float64          `json:"progressRatio"`
	ProgressPercent float64          `json:"progressPercent"` // clamped to [0, 100]
	Remaining       float64          `json:"remaining"`       // never negative
	ActivityCount   int              `json:"activityCount"`
}
