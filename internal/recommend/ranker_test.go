package recommend

import (
	"testing"
	"time"
)

func rankNow() time.Time {
	return time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)
}

func TestRankOrdersByScoreDescending(t *testing.T) {
	p := Profile{Techniques: []string{"static"}}
	gyms := []Gym{
		{ID: 1, Name: "no match", Techniques: []string{"campus"}, AvgCongestion: 0.9},
		{ID: 2, Name: "full match", Techniques: []string{"static"}, AvgCongestion: 0.2, OpenTime: "10:00", CloseTime: "22:00", Rating: 4.5, ReviewCount: 12},
		{ID: 3, Name: "middling", Techniques: []string{"static"}, AvgCongestion: 0.8},
	}

	ranked := Rank(p, gyms, rankNow(), 10)

	if len(ranked) != 3 {
		t.Fatalf("got %d results, want 3", len(ranked))
	}
	if ranked[0].Gym.ID != 2 || ranked[1].Gym.ID != 3 || ranked[2].Gym.ID != 1 {
		t.Errorf("order = [%d %d %d], want [2 3 1]",
			ranked[0].Gym.ID, ranked[1].Gym.ID, ranked[2].Gym.ID)
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score.Total > ranked[i-1].Score.Total {
			t.Errorf("result %d out of order: %v > %v", i, ranked[i].Score.Total, ranked[i-1].Score.Total)
		}
	}
}

func TestRankTruncatesToTopN(t *testing.T) {
	gyms := make([]Gym, 8)
	for i := range gyms {
		gyms[i] = Gym{ID: int64(i + 1)}
	}

	if got := len(Rank(Profile{}, gyms, rankNow(), 3)); got != 3 {
		t.Errorf("len = %d, want 3", got)
	}
	if got := len(Rank(Profile{}, gyms, rankNow(), 0)); got != DefaultTopN {
		t.Errorf("len = %d, want default %d", got, DefaultTopN)
	}
	if got := len(Rank(Profile{}, gyms, rankNow(), 20)); got != 8 {
		t.Errorf("len = %d, want all 8", got)
	}
}

func TestRankTiesKeepInputOrder(t *testing.T) {
	// Identical gyms score identically; stable sort must keep listing order.
	gyms := []Gym{{ID: 7}, {ID: 8}, {ID: 9}}

	ranked := Rank(Profile{}, gyms, rankNow(), 5)

	for i, want := range []int64{7, 8, 9} {
		if ranked[i].Gym.ID != want {
			t.Errorf("position %d = gym %d, want %d", i, ranked[i].Gym.ID, want)
		}
	}
}

func TestRankEmptyCandidates(t *testing.T) {
	if got := Rank(Profile{}, nil, rankNow(), 5); len(got) != 0 {
		t.Errorf("expected empty result, got %d", len(got))
	}
}
