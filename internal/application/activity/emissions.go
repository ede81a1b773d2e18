package activity

import (
	"math"
	"strings"
)

type factor struct {
	activity string
	perUnit  map[string]float64
}

// kg CO2 per unit. Activities are matched as substrings of the logged
// activity; a later match overrides an earlier one.
var emissionFactors = map[string][]factor{
	"transport": {
		{"car", map[string]float64{"km": 0.12, "miles": 0.19}},
		{"bus", map[string]float64{"km": 0.05, "miles": 0.08}},
		{"train", map[string]float64{"km": 0.04, "miles": 0.06}},
		{"motorcycle", map[string]float64{"km": 0.08, "miles": 0.13}},
		{"bicycle", map[string]float64{"km": 0, "miles": 0}},
	},
	"energy": {
		{"electricity", map[string]float64{"kwh": 0.4}},
		{"gas", map[string]float64{"kwh": 0.2, "therms": 5.3}},
		{"heating", map[string]float64{"kwh": 0.3}},
		{"cooling", map[string]float64{"kwh": 0.5}},
	},
	"food": {
		{"meat", map[string]float64{"kg": 6.9}},
		{"dairy", map[string]float64{"kg": 1.9}},
		{"vegetables", map[string]float64{"kg": 0.4}},
		{"processed", map[string]float64{"kg": 2.1}},
	},
	"travel": {
		{"flight", map[string]float64{"km": 0.25, "miles": 0.4}},
		{"hotel", map[string]float64{"hours": 0.5}},
	},
	"shopping": {
		{"clothing", map[string]float64{"kg": 5.7}},
		{"electronics", map[string]float64{"kg": 15.2}},
		{"general", map[string]float64{"kg": 2.1}},
	},
}

var defaultFactors = map[string]map[string]float64{
	"transport": {"km": 0.15, "miles": 0.24},
	"energy":    {"kwh": 0.4, "therms": 5.3},
	"food":      {"kg": 2.0},
	"travel":    {"km": 0.2, "miles": 0.32, "hours": 0.3},
	"shopping":  {"kg": 3.0},
}

var pointMultipliers = map[string]float64{
	"transport": 1.2,
	"energy":    1.0,
	"food":      1.1,
	"travel":    0.8,
	"shopping":  0.9,
}

// Emission returns the kg of CO2 for an activity, rounded to two decimals.
// Unknown categories and units without a factor yield zero. An activity that
// matches a zero-emission factor (cycling) stays at zero.
func Emission(category, activity string, amount float64, unit string) float64 {
	factors, ok := emissionFactors[category]
	if !ok {
		return 0
	}
	act := strings.ToLower(activity)
	var f float64
	matched := false
	for _, candidate := range factors {
		if !strings.Contains(act, candidate.activity) {
			continue
		}
		if v, ok := candidate.perUnit[unit]; ok {
			f = v
			matched = true
		}
	}
	if !matched {
		f = defaultFactors[category][unit]
	}
	return round2(amount * f)
}

// FootprintPoints rewards low emissions: ten points minus one per two kg,
// scaled by the category multiplier.
func FootprintPoints(emission float64, category string) int {
	base := math.Max(0, 10-math.Floor(emission/2))
	m, ok := pointMultipliers[category]
	if !ok {
		m = 1
	}
	return int(math.Round(base * m))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
