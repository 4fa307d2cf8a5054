// Package voice turns transcribed speech into activity intents and drives the
// listen/respond loop of the voice assistant.
package voice

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"ecotrack/internal/core"
)

// Fallback quantities used when a command carries no number.
const (
	DefaultTransportKm  = 10
	DefaultEnergyHours  = 5
	ClarificationPrompt = "I didn't quite catch that activity. Try saying something like 'I drove 15 kilometers' or 'I used electricity for 3 hours'."
)

// Fixed food estimates for spoken meals. They do not come from the food
// factor table.
const (
	MeatMealCO2       = 2.5
	VegetarianMealCO2 = 0.8
	MixedMealCO2      = 1.5
)

var numberPattern = regexp.MustCompile(`\d+`)

// Outcome is the interpretation of one final transcript.
type Outcome struct {
	Transcript string              `json:"transcript"`
	Matched    bool                `json:"matched"`
	Intent     core.ActivityIntent `json:"-"`
	CO2        float64             `json:"co2"`
	Response   string              `json:"response"`
}

// Rule maps a family of keyword cues to an activity. Rules are evaluated in
// slice order and the first rule with a matching cue wins.
type Rule struct {
	Category core.Category
	Cues     []string
	Build    func(text string) Outcome
}

func (r Rule) matches(text string) bool {
	for _, cue := range r.Cues {
		if strings.Contains(text, cue) {
			return true
		}
	}
	return false
}

// DefaultRules returns transport, energy and food rules in that precedence.
func DefaultRules() []Rule {
	return []Rule{
		{Category: core.Transport, Cues: []string{"drove", "car", "drive"}, Build: transportCommand},
		{Category: core.Energy, Cues: []string{"electricity", "power", "energy"}, Build: energyCommand},
		{Category: core.Food, Cues: []string{"ate", "food", "meal"}, Build: foodCommand},
	}
}

type Interpreter struct {
	rules []Rule
}

// NewInterpreter uses DefaultRules when no rules are given.
func NewInterpreter(rules ...Rule) *Interpreter {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Interpreter{rules: rules}
}

// Interpret classifies a final transcript. Unmatched input yields the
// clarification prompt and no intent.
func (in *Interpreter) Interpret(transcript string) Outcome {
	text := strings.ToLower(transcript)
	for _, r := range in.rules {
		if !r.matches(text) {
			continue
		}
		out := r.Build(text)
		out.Transcript = transcript
		out.Matched = true
		return out
	}
	return Outcome{Transcript: transcript, Response: ClarificationPrompt}
}

// firstNumber returns the first integer literal in text. Zero counts as
// absent so that "0 km" falls back like a missing number.
func firstNumber(text string, fallback int) int {
	m := numberPattern.FindString(text)
	if m == "" {
		return fallback
	}
	n, err := strconv.Atoi(m)
	if err != nil || n == 0 {
		return fallback
	}
	return n
}

func transportCommand(text string) Outcome {
	km := firstNumber(text, DefaultTransportKm)
	intent := core.ActivityIntent{Category: core.Transport, Subtype: "car", Secondary: "petrol", Quantity: float64(km)}
	co2 := core.Estimate(intent.Category, intent.Subtype, intent.Quantity, intent.Secondary)
	return Outcome{
		Intent: intent,
		CO2:    co2,
		Response: fmt.Sprintf("Got it! I logged %d km of car travel. That's about %.1f kg of CO₂. "+
			"Next time, consider carpooling or public transport to reduce emissions!", km, co2),
	}
}

func energyCommand(text string) Outcome {
	hours := firstNumber(text, DefaultEnergyHours)
	intent := core.ActivityIntent{Category: core.Energy, Subtype: "electricity", Quantity: float64(hours)}
	co2 := core.Estimate(intent.Category, intent.Subtype, intent.Quantity)
	return Outcome{
		Intent: intent,
		CO2:    co2,
		Response: fmt.Sprintf("I've recorded %d hours of electricity usage, producing %.1f kg CO₂. "+
			"Great job tracking your energy! Try switching to LED bulbs to save more.", hours, co2),
	}
}

func foodCommand(text string) Outcome {
	meal, co2 := "mixed", MixedMealCO2
	switch {
	case strings.Contains(text, "meat"):
		meal, co2 = "meat", MeatMealCO2
	case strings.Contains(text, "vegetarian"):
		meal, co2 = "vegetarian", VegetarianMealCO2
	}
	tip := "Great choice with the plant-based option!"
	if meal == "meat" {
		tip = "Consider trying plant-based meals to reduce your food footprint!"
	}
	return Outcome{
		Intent:   core.ActivityIntent{Category: core.Food, Subtype: meal, Quantity: 1},
		CO2:      co2,
		Response: "Meal logged! That contributed " + strconv.FormatFloat(co2, 'f', -1, 64) + " kg CO₂. " + tip,
	}
}
