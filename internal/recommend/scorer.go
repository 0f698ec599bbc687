// Package recommend implements the heuristic gym scoring used by the
// personalized recommendation endpoints. Scoring is pure and deterministic:
// the same profile, gym snapshot, and clock always produce the same result.
package recommend

import (
	"math"
	"strings"
	"time"
)

// Component weights. The four components sum to a 0..100 scale.
const (
	techniqueWeight = 40.0
	levelWeight     = 30.0
	realtimeWeight  = 20.0
	activityWeight  = 10.0

	// Flat fallbacks when the user has not declared the relevant profile field.
	defaultTechniqueScore = 20.0
	defaultLevelScore     = 15.0
)

// levelFactors maps a declared bouldering grade to a suitability factor.
// Lower grades score higher: commercial gyms set most problems in the
// beginner-to-intermediate range.
var levelFactors = map[string]float64{
	"V0": 1.0,
	"V1": 1.0,
	"V2": 0.9,
	"V3": 0.8,
	"V4": 0.7,
	"V5": 0.6,
	"V6": 0.5,
	"V7": 0.4,
	"V8": 0.3,
}

// Profile is the slice of a user that scoring needs.
type Profile struct {
	UserID     string
	Level      string // "" when undeclared
	Techniques []string
}

// Gym is the snapshot of a gym that scoring needs. Times are "HH:MM" wall
// clock strings; empty means unknown.
type Gym struct {
	ID            int64
	Name          string
	Techniques    []string
	OpenTime      string
	CloseTime     string
	AvgCongestion float64
	Rating        float64
	ReviewCount   int
}

// Breakdown carries the per-component contribution of a score.
type Breakdown struct {
	TechniqueMatch   float64 `json:"techniqueMatch"`
	LevelSuitability float64 `json:"levelSuitability"`
	RealtimeStatus   float64 `json:"realtimeStatus"`
	PastActivity     float64 `json:"pastActivity"`
}

// Score is the result of scoring one gym for one profile.
type Score struct {
	Total     float64   `json:"total"`
	Breakdown Breakdown `json:"breakdown"`
	Reason    string    `json:"reason"`
}

// ScoreGym rates how well a gym fits a profile at the given time.
func ScoreGym(p Profile, g Gym, now time.Time) Score {
	b := Breakdown{
		TechniqueMatch:   round1(techniqueScore(p.Techniques, g.Techniques)),
		LevelSuitability: round1(levelScore(p.Level)),
		RealtimeStatus:   round1(realtimeScore(g, now)),
		PastActivity:     round1(activityScore(g)),
	}

	total := round1(b.TechniqueMatch + b.LevelSuitability + b.RealtimeStatus + b.PastActivity)

	return Score{
		Total:     total,
		Breakdown: b,
		Reason:    reason(b),
	}
}

// techniqueScore rewards the fraction of the user's declared techniques the
// gym supports. Users with no declared techniques get a flat midpoint so they
// are neither favored nor punished.
func techniqueScore(userTechniques, gymTechniques []string) float64 {
	if len(userTechniques) == 0 {
		return defaultTechniqueScore
	}

	offered := make(map[string]bool, len(gymTechniques))
	for _, t := range gymTechniques {
		offered[t] = true
	}

	matched := 0
	for _, t := range userTechniques {
		if offered[t] {
			matched++
		}
	}

	return techniqueWeight * float64(matched) / float64(len(userTechniques))
}

func levelScore(level string) float64 {
	factor, ok := levelFactors[level]
	if !ok {
		return defaultLevelScore
	}
	return levelWeight * factor
}

// realtimeScore rewards gyms that are currently quiet, with a bonus for
// being open right now. The congestion average is on a 0..1 scale, so an
// empty gym that is open maxes the component.
func realtimeScore(g Gym, now time.Time) float64 {
	base := 1.0 - g.AvgCongestion
	if openNow(g.OpenTime, g.CloseTime, now) {
		base += 0.2
	}
	if base > 1.0 {
		base = 1.0
	}
	return realtimeWeight * base
}

// openNow does a same-day wall clock comparison. Zero-padded "HH:MM" strings
// order lexicographically, so no parsing is needed. Hours that cross midnight
// compare as always-closed here; see the gym listing for the same rule.
func openNow(open, close string, now time.Time) bool {
	if open == "" || close == "" {
		return false
	}
	clock := now.Format("15:04")
	return clock >= open && clock <= close
}

// activityScore folds the gym's review history in: the normalized rating,
// plus a small bump once it has a meaningful number of reviews. Gyms without
// any reviews sit at the midpoint rather than the bottom.
func activityScore(g Gym) float64 {
	act := 0.5
	if g.Rating > 0 {
		act = g.Rating / 5.0
	}
	if g.ReviewCount > 10 {
		act += 0.1
	}
	if act > 1.0 {
		act = 1.0
	}
	return activityWeight * act
}

// reason renders a short human explanation from whichever components scored
// well. Thresholds sit above each component's midpoint so the phrases only
// show up when the signal is real.
func reason(b Breakdown) string {
	var parts []string
	if b.TechniqueMatch > 25 {
		parts = append(parts, "matches your climbing style")
	}
	if b.LevelSuitability > 20 {
		parts = append(parts, "well suited to your level")
	}
	if b.RealtimeStatus > 15 {
		parts = append(parts, "not crowded right now")
	}
	if b.PastActivity > 7 {
		parts = append(parts, "highly rated by other climbers")
	}
	if len(parts) == 0 {
		return "a solid all-round pick"
	}
	return strings.Join(parts, ", ")
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
