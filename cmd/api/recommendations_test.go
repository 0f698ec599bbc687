package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRecommendGyms_Personalized(t *testing.T) {
	app := buildTestApp(t)
	mustCreateGym(t, app, "Boulder Base", []string{"static", "dynamic"})
	mustCreateGym(t, app, "Crux Corner", []string{"campus"})

	level := "V4"
	user := mustCreateUser(t, app, "send_it", "Sender")
	user.Level = &level
	user.Techniques = []string{"static", "dynamic"}

	req := httptest.NewRequest(http.MethodGet, "/api/recommendations/gyms", nil)
	req = withUser(req, user)
	rec := httptest.NewRecorder()

	app.recommendGymsHandler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}

	var resp RecommendationsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Error("success = false, want true")
	}
	if len(resp.Recommendations) != 2 {
		t.Fatalf("got %d recommendations, want 2", len(resp.Recommendations))
	}
	if resp.Message != "personalized recommendations" {
		t.Errorf("message = %q", resp.Message)
	}
	if resp.UserProfile.UserID != "send_it" {
		t.Errorf("userProfile.userId = %q", resp.UserProfile.UserID)
	}

	// Matching techniques must rank the first gym ahead of the mismatch.
	if resp.Recommendations[0].Name != "Boulder Base" {
		t.Errorf("top recommendation = %q, want %q", resp.Recommendations[0].Name, "Boulder Base")
	}
	if resp.Recommendations[0].RecommendationScore < resp.Recommendations[1].RecommendationScore {
		t.Error("recommendations not sorted by score")
	}
	if resp.Recommendations[0].RecommendationReason == "" {
		t.Error("top recommendation has no reason")
	}
}

func TestRecommendGyms_EmptyProfile(t *testing.T) {
	app := buildTestApp(t)
	mustCreateGym(t, app, "Boulder Base", []string{"static"})

	user := mustCreateUser(t, app, "fresh_face", "Newbie")

	req := httptest.NewRequest(http.MethodGet, "/api/recommendations/gyms", nil)
	req = withUser(req, user)
	rec := httptest.NewRecorder()

	app.recommendGymsHandler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}

	var resp RecommendationsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Message != "set your level and techniques for better recommendations" {
		t.Errorf("message = %q", resp.Message)
	}
	if len(resp.Recommendations) != 1 {
		t.Fatalf("got %d recommendations, want 1", len(resp.Recommendations))
	}
	if resp.UserProfile.Techniques == nil {
		t.Error("userProfile.techniques should marshal as an empty array, not null")
	}
}

func TestRecommendGyms_LimitHonored(t *testing.T) {
	app := buildTestApp(t)
	for _, name := range []string{"Gym One", "Gym Two", "Gym Three"} {
		mustCreateGym(t, app, name, []string{"static"})
	}
	user := mustCreateUser(t, app, "send_it", "Sender")

	req := httptest.NewRequest(http.MethodGet, "/api/recommendations/gyms?limit=2", nil)
	req = withUser(req, user)
	rec := httptest.NewRecorder()

	app.recommendGymsHandler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp RecommendationsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Recommendations) != 2 {
		t.Fatalf("got %d recommendations, want 2", len(resp.Recommendations))
	}
}

func TestRecommendationStats(t *testing.T) {
	app := buildTestApp(t)
	mustCreateGym(t, app, "Boulder Base", []string{"static", "dynamic"})
	mustCreateGym(t, app, "Crux Corner", []string{"static"})

	req := httptest.NewRequest(http.MethodGet, "/api/recommendations/stats", nil)
	rec := httptest.NewRecorder()

	app.recommendationStatsHandler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data RecommendationStats `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.TotalGyms != 2 {
		t.Errorf("totalGyms = %d, want 2", envelope.Data.TotalGyms)
	}
	if envelope.Data.TechniqueDistribution["static"] != 2 {
		t.Errorf("static distribution = %d, want 2", envelope.Data.TechniqueDistribution["static"])
	}
	if envelope.Data.ScoringWeights["techniqueMatch"] != 40 {
		t.Errorf("techniqueMatch weight = %d, want 40", envelope.Data.ScoringWeights["techniqueMatch"])
	}
}
