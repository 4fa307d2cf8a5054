package core

import "slices"

// Fallback coefficients used when a subtype (or transport mode/fuel pair) has
// no entry in its table.
const (
	DefaultTransportFactor = 0.2 // kg CO2 per km
	DefaultEnergyFactor    = 0.5 // kg CO2 per unit
	DefaultFoodFactor      = 5.0 // kg CO2 per portion
	DefaultWasteFactor     = 0.5 // kg CO2 per kg
)

// FuelNone is the fuel key for human-powered transport modes.
const FuelNone = "none"

var (
	transportFactors = map[string]map[string]float64{
		"car":        {"petrol": 0.23, "diesel": 0.27, "electric": 0.05},
		"bus":        {"diesel": 0.08},
		"train":      {"electric": 0.04},
		"motorcycle": {"petrol": 0.18},
		"bicycle":    {FuelNone: 0},
		"walking":    {FuelNone: 0},
	}

	energyFactors = map[string]float64{
		"electricity": 0.5,
		"gas":         0.2,
		"heating":     0.3,
	}

	foodFactors = map[string]float64{
		"beef":       27,
		"lamb":       20,
		"pork":       12,
		"chicken":    6.9,
		"fish":       6.1,
		"vegetarian": 3.8,
		"vegan":      2.3,
	}

	wasteFactors = map[string]float64{
		"general": 0.5,
		"plastic": 3.4,
		"food":    0.3,
		"paper":   0.9,
		"glass":   0.2,
	}
)

// Estimate returns the kg CO2-equivalent of quantity units of the given
// activity. For transport the subtype is the mode and the first secondary key
// the fuel. Unknown subtypes use the category default; an unknown category
// yields zero. Quantity validation belongs to the caller.
func Estimate(category Category, subtype string, quantity float64, secondary ...string) float64 {
	return quantity * Coefficient(category, subtype, secondary...)
}

// Coefficient looks up the emission factor for an activity.
func Coefficient(category Category, subtype string, secondary ...string) float64 {
	switch category {
	case Transport:
		fuel := ""
		if len(secondary) > 0 {
			fuel = secondary[0]
		}
		if f, ok := transportFactors[subtype][fuel]; ok {
			return f
		}
		return DefaultTransportFactor
	case Energy:
		return lookup(energyFactors, subtype, DefaultEnergyFactor)
	case Food:
		return lookup(foodFactors, subtype, DefaultFoodFactor)
	case Waste:
		return lookup(wasteFactors, subtype, DefaultWasteFactor)
	default:
		return 0
	}
}

// DefaultFuel returns the fuel assumed when a transport activity omits one:
// petrol for cars, otherwise the single fuel the mode is mapped with.
func DefaultFuel(mode string) string {
	if mode == "car" {
		return "petrol"
	}
	for fuel := range transportFactors[mode] {
		return fuel
	}
	return ""
}

// IsZeroEmissionMode reports whether the transport mode emits nothing.
func IsZeroEmissionMode(mode string) bool {
	fuels, ok := transportFactors[mode]
	if !ok {
		return false
	}
	f, ok := fuels[FuelNone]
	return ok && f == 0
}

func lookup(table map[string]float64, key string, fallback float64) float64 {
	if f, ok := table[key]; ok {
		return f
	}
	return fallback
}

// FactorEntry is one row of the published emission factor tables.
type FactorEntry struct {
	Category  Category `json:"category"`
	Subtype   string   `json:"subtype"`
	Secondary string   `json:"secondary,omitempty"`
	Factor    float64  `json:"factor"`
	Unit      string   `json:"unit"`
}

// FactorTable is a snapshot of every coefficient plus the category defaults.
type FactorTable struct {
	Entries  []FactorEntry        `json:"entries"`
	Defaults map[Category]float64 `json:"defaults"`
}

// Factors returns a copy of the emission tables, sorted by category then key.
func Factors() FactorTable {
	var entries []FactorEntry
	for _, mode := range sortedKeys(transportFactors) {
		for _, fuel := range sortedKeys(transportFactors[mode]) {
			entries = append(entries, FactorEntry{
				Category: Transport, Subtype: mode, Secondary: fuel,
				Factor: transportFactors[mode][fuel], Unit: "km",
			})
		}
	}
	add := func(c Category, table map[string]float64, unit string) {
		for _, k := range sortedKeys(table) {
			entries = append(entries, FactorEntry{Category: c, Subtype: k, Factor: table[k], Unit: unit})
		}
	}
	add(Energy, energyFactors, "unit")
	add(Food, foodFactors, "portion")
	add(Waste, wasteFactors, "kg")

	return FactorTable{
		Entries: entries,
		Defaults: map[Category]float64{
			Transport: DefaultTransportFactor,
			Energy:    DefaultEnergyFactor,
			Food:      DefaultFoodFactor,
			Waste:     DefaultWasteFactor,
		},
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
