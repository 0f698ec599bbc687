package congestion

import "testing"

func TestValidLabel(t *testing.T) {
	for _, label := range []string{"relaxed", "moderate", "crowded", "very_crowded"} {
		if !ValidLabel(label) {
			t.Errorf("expected %q to be valid", label)
		}
	}
	for _, label := range []string{"", "packed", "RELAXED", "very crowded"} {
		if ValidLabel(label) {
			t.Errorf("expected %q to be rejected", label)
		}
	}
}

func TestAverage(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		want   float64
		ok     bool
	}{
		{"empty window", nil, 0, false},
		{"single relaxed", []string{"relaxed"}, 0.2, true},
		{"single very_crowded", []string{"very_crowded"}, 1.0, true},
		{"mixed", []string{"relaxed", "moderate", "crowded"}, 0.5, true},
		{"rounded to two decimals", []string{"relaxed", "moderate", "very_crowded"}, 0.57, true},
		{"unknown labels skipped", []string{"bogus", "crowded"}, 0.8, true},
		{"all unknown", []string{"bogus", "nope"}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Average(tt.labels)
			if ok != tt.ok {
				t.Fatalf("Average(%v) ok = %v, want %v", tt.labels, ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("Average(%v) = %v, want %v", tt.labels, got, tt.want)
			}
		})
	}
}

func TestWeight(t *testing.T) {
	if w, ok := Weight("crowded"); !ok || w != 0.8 {
		t.Errorf("Weight(crowded) = %v, %v", w, ok)
	}
	if _, ok := Weight("busy"); ok {
		t.Error("Weight(busy) should not be known")
	}
}
