package main

import (
	"net/http"
	"strconv"
	"time"

	"holdme/internal/recommend"
	"holdme/internal/store"
)

// RecommendedGym is one ranked entry: the gym with its score attached.
type RecommendedGym struct {
	store.Gym
	RecommendationScore  float64             `json:"recommendationScore"`
	ScoreBreakdown       recommend.Breakdown `json:"scoreBreakdown"`
	RecommendationReason string              `json:"recommendationReason"`
}

// RecommendationProfile echoes back the profile slice the ranking used.
type RecommendationProfile struct {
	UserID     string   `json:"userId"`
	Level      *string  `json:"level,omitempty"`
	Techniques []string `json:"techniques"`
}

type RecommendationsResponse struct {
	Success         bool                  `json:"success"`
	Recommendations []RecommendedGym      `json:"recommendations"`
	UserProfile     RecommendationProfile `json:"userProfile"`
	Message         string                `json:"message"`
}

func (app *application) recommendGymsHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	resp, err := app.buildRecommendations(r, user, limit)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		app.internalServerError(w, r, err)
	}
}

// refreshRecommendationsHandler re-ranks against the live congestion state.
// Scoring is stateless, so a refresh is just a recompute at the current time.
func (app *application) refreshRecommendationsHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	resp, err := app.buildRecommendations(r, user, 0)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	resp.Message = "recommendations refreshed"

	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) buildRecommendations(r *http.Request, user *store.User, limit int) (*RecommendationsResponse, error) {
	gyms, err := app.store.Gyms.List(r.Context(), store.GymFilter{})
	if err != nil {
		return nil, err
	}

	profile := recommend.Profile{
		UserID:     user.UserID,
		Techniques: user.Techniques,
	}
	if user.Level != nil {
		profile.Level = *user.Level
	}

	candidates := make([]recommend.Gym, 0, len(gyms))
	byID := make(map[int64]store.Gym, len(gyms))
	for _, g := range gyms {
		byID[g.ID] = g
		c := recommend.Gym{
			ID:            g.ID,
			Name:          g.Name,
			Techniques:    g.Techniques,
			AvgCongestion: g.AvgCongestion,
			Rating:        g.Rating,
			ReviewCount:   g.ReviewCount,
		}
		if g.OpenTime != nil {
			c.OpenTime = *g.OpenTime
		}
		if g.CloseTime != nil {
			c.CloseTime = *g.CloseTime
		}
		candidates = append(candidates, c)
	}

	ranked := recommend.Rank(profile, candidates, time.Now(), limit)

	recommendations := make([]RecommendedGym, 0, len(ranked))
	for _, entry := range ranked {
		recommendations = append(recommendations, RecommendedGym{
			Gym:                  byID[entry.Gym.ID],
			RecommendationScore:  entry.Score.Total,
			ScoreBreakdown:       entry.Score.Breakdown,
			RecommendationReason: entry.Score.Reason,
		})
	}

	techniques := user.Techniques
	if techniques == nil {
		techniques = []string{}
	}

	message := "personalized recommendations"
	if user.Level == nil && len(user.Techniques) == 0 {
		message = "set your level and techniques for better recommendations"
	}

	return &RecommendationsResponse{
		Success:         true,
		Recommendations: recommendations,
		UserProfile: RecommendationProfile{
			UserID:     user.UserID,
			Level:      user.Level,
			Techniques: techniques,
		},
		Message: message,
	}, nil
}

// RecommendationStats is the public shape of what the scorer looks at.
type RecommendationStats struct {
	TotalGyms             int            `json:"totalGyms"`
	TechniqueDistribution map[string]int `json:"techniqueDistribution"`
	ScoringWeights        map[string]int `json:"scoringWeights"`
}

func (app *application) recommendationStatsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	total, err := app.store.Gyms.Count(ctx)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	dist, err := app.store.Gyms.TechniqueDistribution(ctx)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	stats := RecommendationStats{
		TotalGyms:             total,
		TechniqueDistribution: dist,
		ScoringWeights: map[string]int{
			"techniqueMatch":   40,
			"levelSuitability": 30,
			"realtimeStatus":   20,
			"pastActivity":     10,
		},
	}

	if err := app.jsonResponse(w, http.StatusOK, stats); err != nil {
		app.internalServerError(w, r, err)
	}
}
