package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimatePublishedCoefficients(t *testing.T) {
	cases := []struct {
		category  Category
		subtype   string
		secondary string
		factor    float64
	}{
		{Transport, "car", "petrol", 0.23},
		{Transport, "car", "diesel", 0.27},
		{Transport, "car", "electric", 0.05},
		{Transport, "bus", "diesel", 0.08},
		{Transport, "train", "electric", 0.04},
		{Transport, "motorcycle", "petrol", 0.18},
		{Transport, "bicycle", "none", 0},
		{Transport, "walking", "none", 0},
		{Energy, "electricity", "", 0.5},
		{Energy, "gas", "", 0.2},
		{Energy, "heating", "", 0.3},
		{Food, "beef", "", 27},
		{Food, "lamb", "", 20},
		{Food, "pork", "", 12},
		{Food, "chicken", "", 6.9},
		{Food, "fish", "", 6.1},
		{Food, "vegetarian", "", 3.8},
		{Food, "vegan", "", 2.3},
		{Waste, "general", "", 0.5},
		{Waste, "plastic", "", 3.4},
		{Waste, "food", "", 0.3},
		{Waste, "paper", "", 0.9},
		{Waste, "glass", "", 0.2},
	}
	for _, tc := range cases {
		t.Run(string(tc.category)+"/"+tc.subtype+"/"+tc.secondary, func(t *testing.T) {
			for _, q := range []float64{0, 1, 2.5, 15, 120} {
				got := Estimate(tc.category, tc.subtype, q, tc.secondary)
				assert.Equal(t, q*tc.factor, got)
			}
		})
	}
}

func TestEstimateFallsBackToCategoryDefault(t *testing.T) {
	assert.Equal(t, 10*DefaultTransportFactor, Estimate(Transport, "spaceship", 10, "petrol"))
	assert.Equal(t, 10*DefaultTransportFactor, Estimate(Transport, "bus", 10, "petrol"), "unmapped mode/fuel pair")
	assert.Equal(t, 10*DefaultTransportFactor, Estimate(Transport, "car", 10), "missing fuel")
	assert.Equal(t, 10*DefaultEnergyFactor, Estimate(Energy, "solar", 10))
	assert.Equal(t, 10*DefaultFoodFactor, Estimate(Food, "tofu", 10))
	assert.Equal(t, 10*DefaultWasteFactor, Estimate(Waste, "metal", 10))
}

func TestEstimateZeroQuantityIsZero(t *testing.T) {
	for _, e := range Factors().Entries {
		assert.Zero(t, Estimate(e.Category, e.Subtype, 0, e.Secondary), "%s/%s", e.Category, e.Subtype)
	}
	for _, c := range Categories() {
		assert.Zero(t, Estimate(c, "unknown", 0))
	}
}

func TestEstimateIsPure(t *testing.T) {
	first := Estimate(Food, "beef", 3)
	for i := 0; i < 100; i++ {
		require.Equal(t, first, Estimate(Food, "beef", 3))
	}
}

func TestEstimateUnknownCategory(t *testing.T) {
	assert.Zero(t, Estimate(Category("travel"), "car", 10, "petrol"))
}

func TestDefaultFuel(t *testing.T) {
	assert.Equal(t, "petrol", DefaultFuel("car"))
	assert.Equal(t, "diesel", DefaultFuel("bus"))
	assert.Equal(t, "electric", DefaultFuel("train"))
	assert.Equal(t, FuelNone, DefaultFuel("bicycle"))
	assert.Equal(t, "", DefaultFuel("rocket"))
}

func TestFactorsSnapshot(t *testing.T) {
	table := Factors()
	assert.Len(t, table.Entries, 23)
	assert.Equal(t, 0.2, table.Defaults[Transport])
	assert.Equal(t, 5.0, table.Defaults[Food])

	// mutating the snapshot does not leak into the estimator
	table.Entries[0].Factor = 99
	table.Defaults[Energy] = 99
	assert.Equal(t, 0.5, Coefficient(Energy, "nuclear"))
	assert.Equal(t, Transport, table.Entries[0].Category)
}
