package core

// EcoTip returns the encouragement shown after an activity is logged.
func EcoTip(r ActivityRecord) string {
	switch r.Category {
	case Transport:
		if IsZeroEmissionMode(r.Subtype) {
			return "Great eco-choice! Zero emissions transport!"
		}
		return "Consider trying public transport or cycling next time!"
	case Energy:
		return "Every bit of energy tracking helps! Try LED bulbs to reduce usage!"
	case Food:
		if r.Subtype == "vegan" || r.Subtype == "vegetarian" {
			return "Awesome plant-based choice!"
		}
		return "Plant-based meals can reduce your food footprint by up to 70%!"
	case Waste:
		return "Good job tracking waste! Recycling makes a difference!"
	}
	return "Great job tracking your footprint!"
}

// Describe renders the one-line confirmation for a logged activity,
// e.g. "12km by car = 2.8 kg CO2".
func Describe(r ActivityRecord) string {
	q := formatQuantity(r.Quantity)
	co2 := FormatKg(r.ComputedCO2) + " CO2"
	switch r.Category {
	case Transport:
		return q + "km by " + r.Subtype + " = " + co2
	case Energy:
		return q + " units of " + r.Subtype + " = " + co2
	case Food:
		return q + " portion(s) of " + r.Subtype + " = " + co2
	case Waste:
		return q + "kg of " + r.Subtype + " waste = " + co2
	}
	return co2
}
