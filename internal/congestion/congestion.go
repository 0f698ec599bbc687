// Package congestion holds the crowd-level vocabulary and the aggregation
// rule used to maintain each gym's rolling congestion average.
package congestion

import (
	"math"
	"time"
)

// Labels reporters can submit. Each maps to a numeric weight on a 0..1 scale.
const (
	LabelRelaxed     = "relaxed"
	LabelModerate    = "moderate"
	LabelCrowded     = "crowded"
	LabelVeryCrowded = "very_crowded"
)

const (
	// WindowSize caps how many recent reports feed the average.
	WindowSize = 20
	// WindowAge is the maximum age of a report still counted.
	WindowAge = 2 * time.Hour
	// DuplicateWindow is how long an authenticated reporter is blocked from
	// re-reporting the same gym.
	DuplicateWindow = 30 * time.Minute
	// DefaultAverage is the starting average for gyms with no reports yet.
	DefaultAverage = 0.5
	// AnonymousReporter is the sentinel user ID stored for unauthenticated reports.
	AnonymousReporter = "anonymous"
)

var labelWeights = map[string]float64{
	LabelRelaxed:     0.2,
	LabelModerate:    0.5,
	LabelCrowded:     0.8,
	LabelVeryCrowded: 1.0,
}

// Labels returns the accepted label vocabulary.
func Labels() []string {
	return []string{LabelRelaxed, LabelModerate, LabelCrowded, LabelVeryCrowded}
}

// ValidLabel reports whether label is part of the vocabulary.
func ValidLabel(label string) bool {
	_, ok := labelWeights[label]
	return ok
}

// Weight returns the numeric weight for a label. Unknown labels return 0, false.
func Weight(label string) (float64, bool) {
	w, ok := labelWeights[label]
	return w, ok
}

// Average computes the mean weight of the given window of labels, rounded to
// two decimals. Labels outside the vocabulary are skipped. The second return
// is false when the window contributes nothing, in which case the caller must
// keep the previously stored average.
func Average(labels []string) (float64, bool) {
	var sum float64
	var n int
	for _, label := range labels {
		w, ok := labelWeights[label]
		if !ok {
			continue
		}
		sum += w
		n++
	}
	if n == 0 {
		return 0, false
	}
	return math.Round(sum/float64(n)*100) / 100, true
}
