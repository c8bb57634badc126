package pricing

import (
	"testing"

	"github.com/TheMarco/sora-renderer/internal/domain"
)

func TestEstimateCost(t *testing.T) {
	est := EstimateCost(domain.ModelSora2, "1280x720", 8)
	if est.Rate != 0.10 {
		t.Fatalf("rate = %v, want 0.10", est.Rate)
	}
	if est.Cost != 0.80 {
		t.Fatalf("cost = %v, want 0.80", est.Cost)
	}
	if est.Seconds != 8 {
		t.Fatalf("seconds = %d, want 8", est.Seconds)
	}
}

func TestEstimateCostProResolution(t *testing.T) {
	est := EstimateCost(domain.ModelSora2Pro, "1792x1024", 12)
	if est.Cost != 6.00 {
		t.Fatalf("cost = %v, want 6.00", est.Cost)
	}
}

func TestEstimateCostUnknownPair(t *testing.T) {
	est := EstimateCost(domain.ModelSora2, "1792x1024", 8)
	if est.Rate != 0 || est.Cost != 0 {
		t.Fatalf("unpriced pair should estimate zero, got %+v", est)
	}
}

func TestResolutionAvailable(t *testing.T) {
	if !ResolutionAvailable(domain.ModelSora2, "720x1280") {
		t.Fatal("sora-2 portrait 720p should be available")
	}
	if ResolutionAvailable(domain.ModelSora2, "1024x1792") {
		t.Fatal("sora-2 should not offer pro resolutions")
	}
}

func TestDisplayName(t *testing.T) {
	if name := DisplayName(domain.ModelSora2); name != "Sora 2" {
		t.Fatalf("DisplayName = %q, want Sora 2", name)
	}
	if name := DisplayName(domain.ModelSora2Pro); name != "Sora 2 Pro" {
		t.Fatalf("DisplayName = %q, want Sora 2 Pro", name)
	}
}

func TestDurationAllowed(t *testing.T) {
	for _, d := range []int{4, 8, 12} {
		if !DurationAllowed(d) {
			t.Fatalf("duration %d should be allowed", d)
		}
	}
	for _, d := range []int{0, 1, 5, 13} {
		if DurationAllowed(d) {
			t.Fatalf("duration %d should be rejected", d)
		}
	}
}
