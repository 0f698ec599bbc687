package recommend

import (
	"sort"
	"time"
)

// DefaultTopN is how many gyms a recommendation request returns when the
// caller does not ask for a specific count.
const DefaultTopN = 5

// Ranked pairs a gym with its score for one profile.
type Ranked struct {
	Gym   Gym
	Score Score
}

// Rank scores every candidate gym for the profile and returns the top n in
// descending score order. Ties keep the candidates' input order, which is
// the storage layer's listing order. n <= 0 falls back to DefaultTopN.
func Rank(p Profile, gyms []Gym, now time.Time, n int) []Ranked {
	if n <= 0 {
		n = DefaultTopN
	}

	ranked := make([]Ranked, 0, len(gyms))
	for _, g := range gyms {
		ranked = append(ranked, Ranked{Gym: g, Score: ScoreGym(p, g, now)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score.Total > ranked[j].Score.Total
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
