package pricing

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/TheMarco/sora-renderer/internal/domain"
)

// Model describes one entry of the model catalog exposed over the API.
type Model struct {
	ID          domain.ModelID `json:"id"`
	Name        string         `json:"name"`
	MaxDuration int            `json:"max_duration"`
	Resolutions []string       `json:"resolutions"`
}

// Duration constraints: the remote service only renders these lengths.
var AllowedDurations = []int{4, 8, 12}

const (
	DefaultDuration = 4
	MaxDuration     = 12
)

var titleCaser = cases.Title(language.English)

// DisplayName renders a model id as a human readable name ("sora-2" becomes
// "Sora 2").
func DisplayName(model domain.ModelID) string {
	parts := strings.Split(string(model), "-")
	for i, p := range parts {
		parts[i] = titleCaser.String(p)
	}
	return strings.Join(parts, " ")
}

// Models lists the catalog in a stable order.
func Models() []Model {
	ids := []domain.ModelID{domain.ModelSora2, domain.ModelSora2Pro}
	out := make([]Model, 0, len(ids))
	for _, id := range ids {
		resolutions := make([]string, 0, len(priceTable[id]))
		for _, res := range []string{"1280x720", "720x1280", "1792x1024", "1024x1792"} {
			if _, ok := priceTable[id][res]; ok {
				resolutions = append(resolutions, res)
			}
		}
		out = append(out, Model{
			ID:          id,
			Name:        DisplayName(id),
			MaxDuration: MaxDuration,
			Resolutions: resolutions,
		})
	}
	return out
}

// DurationAllowed reports whether the remote service renders this length.
func DurationAllowed(seconds int) bool {
	for _, d := range AllowedDurations {
		if d == seconds {
			return true
		}
	}
	return false
}
