package pricing

import (
	"math"

	"github.com/TheMarco/sora-renderer/internal/domain"
)

// Per-second USD rates by model and resolution.
var priceTable = map[domain.ModelID]map[string]float64{
	domain.ModelSora2: {
		"1280x720": 0.10,
		"720x1280": 0.10,
	},
	domain.ModelSora2Pro: {
		"1280x720":  0.30,
		"720x1280":  0.30,
		"1792x1024": 0.50,
		"1024x1792": 0.50,
	},
}

// Estimate is the cost projection shown to the user before submission and
// stored on the job record.
type Estimate struct {
	Rate    float64 `json:"rate"`
	Seconds int     `json:"seconds"`
	Cost    float64 `json:"cost"`
}

// RatePerSecond returns the per-second rate for a model/resolution pair, or 0
// when the pair is not priced.
func RatePerSecond(model domain.ModelID, resolution string) float64 {
	return priceTable[model][resolution]
}

// EstimateCost computes rate x duration, rounded to cents.
func EstimateCost(model domain.ModelID, resolution string, seconds int) Estimate {
	rate := RatePerSecond(model, resolution)
	cost := math.Round(rate*float64(seconds)*100) / 100
	return Estimate{Rate: rate, Seconds: seconds, Cost: cost}
}

// ResolutionAvailable reports whether the model supports the resolution.
func ResolutionAvailable(model domain.ModelID, resolution string) bool {
	_, ok := priceTable[model][resolution]
	return ok
}
