package activity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmission(t *testing.T) {
	cases := []struct {
		category, activity string
		amount             float64
		unit               string
		want               float64
	}{
		{"transport", "Drove my car to work", 10, "km", 1.2},
		{"transport", "Bicycle commute", 5, "km", 0},
		{"transport", "walked", 10, "km", 1.5},
		{"transport", "car", 10, "miles", 1.9},
		{"energy", "gas heating", 100, "kwh", 30},
		{"energy", "gas", 2, "therms", 10.6},
		{"food", "meat", 2, "kg", 13.8},
		{"food", "snacks", 1, "kg", 2},
		{"travel", "flight", 1000, "km", 250},
		{"travel", "hotel stay", 8, "hours", 4},
		{"shopping", "general goods", 1, "kg", 2.1},
		{"transport", "car", 1, "kg", 0},
		{"gardening", "anything", 10, "km", 0},
	}
	for _, tc := range cases {
		t.Run(tc.category+"/"+tc.activity, func(t *testing.T) {
			assert.InDelta(t, tc.want, Emission(tc.category, tc.activity, tc.amount, tc.unit), 0.001)
		})
	}
}

func TestFootprintPoints(t *testing.T) {
	assert.Equal(t, 12, FootprintPoints(1.2, "transport"))
	assert.Equal(t, 12, FootprintPoints(0, "transport"))
	assert.Equal(t, 0, FootprintPoints(30, "energy"))
	assert.Equal(t, 4, FootprintPoints(13.8, "food"))
	assert.Equal(t, 8, FootprintPoints(2.1, "shopping"))
	assert.Equal(t, 6, FootprintPoints(4, "travel"))
	assert.Equal(t, 10, FootprintPoints(1, "unknown"))
}

func TestWaterRating(t *testing.T) {
	cases := []struct {
		category   string
		liters     float64
		duration   float64
		points     int
		efficiency string
	}{
		{"shower", 20, 0, 10, "excellent"},
		{"shower", 40, 10, 10, "average"},
		{"shower", 40, 0, 1, "average"},
		{"dishes", 15, 0, 5, "good"},
		{"laundry", 100, 0, 1, "average"},
		{"laundry", 75, 30, 3, "average"},
		{"drinking", 10, 0, 0, "poor"},
		{"other", 12, 0, 7, "good"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.points, WaterPoints(tc.category, tc.liters, tc.duration), "%s %v", tc.category, tc.liters)
		assert.Equal(t, tc.efficiency, Efficiency(tc.category, tc.liters), "%s %v", tc.category, tc.liters)
	}
}

func TestToLiters(t *testing.T) {
	assert.InDelta(t, 37.85, ToLiters(10, "gallons"), 0.001)
	assert.Equal(t, 10.0, ToLiters(10, "liters"))
}
