package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

const (
	Transport Category = "transport"
	Energy    Category = "energy"
	Food      Category = "food"
	Waste     Category = "waste"
)

const (
	SourceForm  Source = "form"
	SourceVoice Source = "voice"
)

type (
	// Category is one of the four activity families with their own factor table.
	Category string

	// Source records how an activity entered the log.
	Source string

	// ActivityIntent is an unvalidated request to log an activity, as produced
	// by a form or the voice interpreter.
	ActivityIntent struct {
		Category  Category
		Subtype   string  // transport mode, energy type, food type or waste type
		Secondary string  // transport fuel; empty for other categories
		Quantity  float64 // km, units, portions or kg
		// QuantityOmitted is set when no amount was given, as opposed to 0.
		QuantityOmitted bool
	}

	// ActivityRecord is one logged activity. Records are immutable once created.
	ActivityRecord struct {
		ID          string    `json:"id"`
		Category    Category  `json:"type"`
		Subtype     string    `json:"subtype"`
		Secondary   string    `json:"secondary,omitempty"`
		Quantity    float64   `json:"quantity"`
		ComputedCO2 float64   `json:"co2"`
		Source      Source    `json:"source,omitempty"`
		Timestamp   time.Time `json:"timestamp"`
	}
)

var (
	ErrUnknownCategory  = errors.New("unknown activity category")
	ErrMissingSubtype   = errors.New("missing activity type")
	ErrMissingQuantity  = errors.New("missing activity quantity")
	ErrInvalidQuantity  = errors.New("invalid activity quantity")
	ErrInvalidGoal      = errors.New("weekly goal must be greater than zero")
	ErrInvalidTimestamp = errors.New("activity timestamp cannot be zero")
)

// Categories lists every category in display order.
func Categories() []Category {
	return []Category{Transport, Energy, Food, Waste}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case Transport, Energy, Food, Waste:
		return true
	default:
		return false
	}
}

// Label returns the capitalised display name.
func (c Category) Label() string {
	s := string(c)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Normalize lower-cases and trims the free-text fields of the intent.
func (in ActivityIntent) Normalize() ActivityIntent {
	in.Category = Category(strings.ToLower(strings.TrimSpace(string(in.Category))))
	in.Subtype = strings.ToLower(strings.TrimSpace(in.Subtype))
	in.Secondary = strings.ToLower(strings.TrimSpace(in.Secondary))
	return in
}

// Validate applies the per-category form rules. It never inspects the factor
// tables: unknown subtypes are allowed and estimated with the default factor.
func (in ActivityIntent) Validate() error {
	if !in.Category.Valid() {
		return ErrUnknownCategory
	}
	if strings.TrimSpace(in.Subtype) == "" {
		return ErrMissingSubtype
	}
	if math.IsNaN(in.Quantity) || math.IsInf(in.Quantity, 0) || in.Quantity < 0 {
		return ErrInvalidQuantity
	}
	// Food portions default to one, every other category needs an amount.
	// An explicit 0 is valid and estimates to 0 kg.
	if in.Category != Food && in.QuantityOmitted {
		return ErrMissingQuantity
	}
	return nil
}

// ValidationMessage returns the notice shown to the user for a validation error.
func ValidationMessage(c Category, err error) string {
	switch {
	case errors.Is(err, ErrUnknownCategory):
		return "Please choose an activity type"
	case errors.Is(err, ErrInvalidQuantity):
		return "Please enter a valid, non-negative amount"
	case errors.Is(err, ErrInvalidGoal):
		return "Please enter a goal greater than zero"
	}
	switch c {
	case Transport:
		return "Please fill all transport fields"
	case Energy:
		return "Please enter energy usage"
	case Food:
		return "Please select food type"
	case Waste:
		return "Please fill all waste fields"
	}
	return "Please fill all required fields"
}

// Validate checks the structural integrity of a stored record.
func (r ActivityRecord) Validate() error {
	if !r.Category.Valid() {
		return ErrUnknownCategory
	}
	if r.Timestamp.IsZero() {
		return ErrInvalidTimestamp
	}
	if r.Quantity < 0 || r.ComputedCO2 < 0 {
		return ErrInvalidQuantity
	}
	return nil
}
