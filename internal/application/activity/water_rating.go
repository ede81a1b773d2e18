package activity

const litersPerGallon = 3.78541

type usageBaseline struct {
	liters    float64
	perMinute float64
}

var waterBaselines = map[string]usageBaseline{
	"shower":   {30, 6},
	"dishes":   {15, 3},
	"laundry":  {60, 0},
	"garden":   {30, 5},
	"drinking": {3, 0},
	"other":    {15, 2},
}

// Upper bounds in liters for excellent, good and average; anything above is poor.
var efficiencyCeilings = map[string][3]float64{
	"shower":   {25, 35, 50},
	"dishes":   {10, 18, 30},
	"laundry":  {50, 70, 100},
	"garden":   {20, 35, 60},
	"drinking": {2, 3, 4},
	"other":    {10, 20, 35},
}

// ToLiters normalizes an amount in liters or gallons.
func ToLiters(amount float64, unit string) float64 {
	if unit == "gallons" {
		return round2(amount * litersPerGallon)
	}
	return amount
}

// WaterPoints compares usage with the category baseline. A duration raises
// the baseline for time-based usage.
func WaterPoints(category string, liters, durationMinutes float64) int {
	b, ok := waterBaselines[category]
	if !ok {
		b = waterBaselines["other"]
	}
	baseline := b.liters
	if durationMinutes > 0 && b.perMinute > 0 && durationMinutes*b.perMinute > baseline {
		baseline = durationMinutes * b.perMinute
	}
	if liters <= 0 {
		return 0
	}
	ratio := baseline / liters
	switch {
	case ratio >= 1.5:
		return 10
	case ratio >= 1.2:
		return 7
	case ratio >= 1.0:
		return 5
	case ratio >= 0.8:
		return 3
	case ratio >= 0.6:
		return 1
	}
	return 0
}

// Efficiency labels usage against the category ceilings.
func Efficiency(category string, liters float64) string {
	c, ok := efficiencyCeilings[category]
	if !ok {
		c = efficiencyCeilings["other"]
	}
	switch {
	case liters <= c[0]:
		return "excellent"
	case liters <= c[1]:
		return "good"
	case liters <= c[2]:
		return "average"
	}
	return "poor"
}
