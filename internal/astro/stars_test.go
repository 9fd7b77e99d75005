package astro

import (
	"math"
	"testing"
	"time"
)

func TestDefaultStarCatalog_KnownStars(t *testing.T) {
	cat := DefaultStarCatalog()

	knownStars := map[string]struct {
		minRA, maxRA   float64
		minDec, maxDec float64
		maxMag         float64
	}{
		"Sirius":     {100, 103, -18, -15, 0},
		"Vega":       {278, 281, 37, 40, 0.5},
		"Polaris":    {35, 40, 88, 90, 2.5},
		"Canopus":    {94, 98, -54, -51, 0},
		"Arcturus":   {212, 215, 18, 21, 0.5},
		"Betelgeuse": {87, 90, 6, 9, 1.0},
	}

	for name, expected := range knownStars {
		star, found := cat.Lookup(name)
		if !found {
			t.Errorf("Expected star %s not in catalog", name)
			continue
		}
		if star.RAdeg < expected.minRA || star.RAdeg > expected.maxRA {
			t.Errorf("%s RA=%v, expected %v-%v", name, star.RAdeg, expected.minRA, expected.maxRA)
		}
		if star.DecDeg < expected.minDec || star.DecDeg > expected.maxDec {
			t.Errorf("%s Dec=%v, expected %v-%v", name, star.DecDeg, expected.minDec, expected.maxDec)
		}
		if star.Mag > expected.maxMag {
			t.Errorf("%s Mag=%v, expected < %v", name, star.Mag, expected.maxMag)
		}
	}
}

func TestStarCatalog_Lookup(t *testing.T) {
	cat := DefaultStarCatalog()

	if _, ok := cat.Lookup("  vega "); !ok {
		t.Error("Lookup should ignore case and surrounding space")
	}
	if _, ok := cat.Lookup("Nibiru"); ok {
		t.Error("Lookup should fail for unknown names")
	}
}

func TestDefaultStarCatalog_ValidCoordinates(t *testing.T) {
	cat := DefaultStarCatalog()
	seen := make(map[string]bool)

	for _, star := range cat.Stars {
		if star.RAdeg < 0 || star.RAdeg >= 360 {
			t.Errorf("Star %s has invalid RA: %v", star.Name, star.RAdeg)
		}
		if star.DecDeg < -90 || star.DecDeg > 90 {
			t.Errorf("Star %s has invalid Dec: %v", star.Name, star.DecDeg)
		}
		if seen[star.Name] {
			t.Errorf("Duplicate star name: %s", star.Name)
		}
		seen[star.Name] = true
	}
}

func TestStar_Coordinates(t *testing.T) {
	ref := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	star, _ := DefaultStarCatalog().Lookup("Vega")

	c := star.Coordinates(ref)
	if c.Epoch != EpochJ2000 {
		t.Errorf("Epoch = %v, want J2000", c.Epoch)
	}
	if math.Abs(c.RA.Hours()-279.235/15) > 1e-12 {
		t.Errorf("RA = %v h, want %v", c.RA.Hours(), 279.235/15)
	}
	if !c.RefTime.Equal(ref) {
		t.Errorf("RefTime = %v, want %v", c.RefTime, ref)
	}
}
