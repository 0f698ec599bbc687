package recommend

import (
	"testing"
	"time"
)

// 14:00 on an arbitrary day; inside 10:00-22:00 hours.
var noon = time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)

func TestScoreGymWorkedExample(t *testing.T) {
	p := Profile{Techniques: []string{"static", "dynamic"}}
	g := Gym{
		Techniques:    []string{"static"},
		OpenTime:      "10:00",
		CloseTime:     "22:00",
		AvgCongestion: 0.2,
		Rating:        4.5,
		ReviewCount:   15,
	}

	s := ScoreGym(p, g, noon)

	if s.Breakdown.TechniqueMatch != 20.0 {
		t.Errorf("techniqueMatch = %v, want 20.0", s.Breakdown.TechniqueMatch)
	}
	if s.Breakdown.LevelSuitability != 15.0 {
		t.Errorf("levelSuitability = %v, want 15.0", s.Breakdown.LevelSuitability)
	}
	if s.Breakdown.RealtimeStatus != 20.0 {
		t.Errorf("realtimeStatus = %v, want 20.0", s.Breakdown.RealtimeStatus)
	}
	if s.Breakdown.PastActivity != 10.0 {
		t.Errorf("pastActivity = %v, want 10.0", s.Breakdown.PastActivity)
	}
	if s.Total != 65.0 {
		t.Errorf("total = %v, want 65.0", s.Total)
	}
}

func TestTechniqueScore(t *testing.T) {
	tests := []struct {
		name string
		user []string
		gym  []string
		want float64
	}{
		{"no declared techniques", nil, []string{"static"}, 20.0},
		{"full overlap", []string{"static", "dynamic"}, []string{"static", "dynamic", "campus"}, 40.0},
		{"half overlap", []string{"static", "dynamic"}, []string{"static"}, 20.0},
		{"no overlap", []string{"lunge"}, []string{"static"}, 0.0},
		{"gym offers nothing", []string{"static"}, nil, 0.0},
		{"third overlap rounds", []string{"static", "dynamic", "campus"}, []string{"campus"}, 13.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ScoreGym(Profile{Techniques: tt.user}, Gym{Techniques: tt.gym}, noon)
			if s.Breakdown.TechniqueMatch != tt.want {
				t.Errorf("techniqueMatch = %v, want %v", s.Breakdown.TechniqueMatch, tt.want)
			}
		})
	}
}

func TestLevelScore(t *testing.T) {
	tests := []struct {
		level string
		want  float64
	}{
		{"V0", 30.0},
		{"V1", 30.0},
		{"V2", 27.0},
		{"V3", 24.0},
		{"V4", 21.0},
		{"V5", 18.0},
		{"V6", 15.0},
		{"V7", 12.0},
		{"V8", 9.0},
		{"", 15.0},
		{"V99", 15.0},
	}

	for _, tt := range tests {
		t.Run("level "+tt.level, func(t *testing.T) {
			s := ScoreGym(Profile{Level: tt.level}, Gym{}, noon)
			if s.Breakdown.LevelSuitability != tt.want {
				t.Errorf("levelSuitability = %v, want %v", s.Breakdown.LevelSuitability, tt.want)
			}
		})
	}
}

func TestRealtimeScore(t *testing.T) {
	tests := []struct {
		name string
		gym  Gym
		want float64
	}{
		{"quiet and open clamps at weight", Gym{AvgCongestion: 0.1, OpenTime: "10:00", CloseTime: "22:00"}, 20.0},
		{"quiet but closed", Gym{AvgCongestion: 0.1, OpenTime: "18:00", CloseTime: "22:00"}, 18.0},
		{"packed and open", Gym{AvgCongestion: 1.0, OpenTime: "10:00", CloseTime: "22:00"}, 4.0},
		{"packed and closed", Gym{AvgCongestion: 1.0}, 0.0},
		{"unknown hours never get the bonus", Gym{AvgCongestion: 0.5}, 10.0},
		{"default average, open", Gym{AvgCongestion: 0.5, OpenTime: "10:00", CloseTime: "22:00"}, 14.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ScoreGym(Profile{}, tt.gym, noon)
			if s.Breakdown.RealtimeStatus != tt.want {
				t.Errorf("realtimeStatus = %v, want %v", s.Breakdown.RealtimeStatus, tt.want)
			}
		})
	}
}

func TestOpenNow(t *testing.T) {
	tests := []struct {
		name        string
		open, close string
		clock       time.Time
		want        bool
	}{
		{"inside hours", "10:00", "22:00", noon, true},
		{"at opening", "14:00", "22:00", noon, true},
		{"at closing", "06:00", "14:00", noon, true},
		{"before opening", "15:00", "22:00", noon, false},
		{"missing open time", "", "22:00", noon, false},
		{"missing close time", "10:00", "", noon, false},
		// Overnight hours compare as closed; the same-day rule is kept on
		// purpose so listings and scoring agree.
		{"overnight hours treated as closed", "22:00", "02:00", noon, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := openNow(tt.open, tt.close, tt.clock); got != tt.want {
				t.Errorf("openNow(%q, %q) = %v, want %v", tt.open, tt.close, got, tt.want)
			}
		})
	}
}

func TestActivityScore(t *testing.T) {
	tests := []struct {
		name string
		gym  Gym
		want float64
	}{
		{"no reviews sits at midpoint", Gym{}, 5.0},
		{"rating only", Gym{Rating: 4.0, ReviewCount: 3}, 8.0},
		{"review bump", Gym{Rating: 4.0, ReviewCount: 11}, 9.0},
		{"exactly ten reviews, no bump", Gym{Rating: 4.0, ReviewCount: 10}, 8.0},
		{"clamped at weight", Gym{Rating: 5.0, ReviewCount: 50}, 10.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ScoreGym(Profile{}, tt.gym, noon)
			if s.Breakdown.PastActivity != tt.want {
				t.Errorf("pastActivity = %v, want %v", s.Breakdown.PastActivity, tt.want)
			}
		})
	}
}

func TestReason(t *testing.T) {
	t.Run("generic when nothing stands out", func(t *testing.T) {
		s := ScoreGym(Profile{Techniques: []string{"lunge"}}, Gym{AvgCongestion: 0.9}, noon)
		if s.Reason != "a solid all-round pick" {
			t.Errorf("reason = %q, want generic phrase", s.Reason)
		}
	})

	t.Run("strong components get named", func(t *testing.T) {
		p := Profile{Level: "V1", Techniques: []string{"static"}}
		g := Gym{
			Techniques:    []string{"static", "dynamic"},
			OpenTime:      "10:00",
			CloseTime:     "22:00",
			AvgCongestion: 0.2,
			Rating:        4.8,
			ReviewCount:   20,
		}
		s := ScoreGym(p, g, noon)
		want := "matches your climbing style, well suited to your level, not crowded right now, highly rated by other climbers"
		if s.Reason != want {
			t.Errorf("reason = %q, want %q", s.Reason, want)
		}
	})
}

func TestScoreGymDeterministic(t *testing.T) {
	p := Profile{Level: "V3", Techniques: []string{"static", "campus"}}
	g := Gym{
		Techniques:    []string{"campus", "dead_point"},
		OpenTime:      "09:00",
		CloseTime:     "23:00",
		AvgCongestion: 0.43,
		Rating:        3.7,
		ReviewCount:   8,
	}

	first := ScoreGym(p, g, noon)
	for i := 0; i < 10; i++ {
		if got := ScoreGym(p, g, noon); got != first {
			t.Fatalf("run %d differed: %+v vs %+v", i, got, first)
		}
	}
}
