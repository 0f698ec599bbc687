package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"holdme/internal/store"
)

func postReview(app *application, gym *store.Gym, user *store.User, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/gyms/%d/reviews", gym.ID), bytes.NewBufferString(body))
	req = withGymID(req, gym.ID)
	req = withUser(req, user)
	rec := httptest.NewRecorder()
	app.createGymReviewHandler(rec, req)
	return rec
}

func TestCreateReview_UpdatesGymRating(t *testing.T) {
	app := buildTestApp(t)
	gym := mustCreateGym(t, app, "Boulder Base", nil)
	user := mustCreateUser(t, app, "send_it", "Sender")

	rec := postReview(app, gym, user, `{"rating":4,"content":"Great setting, chalky holds.","difficulty":"moderate"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data ReviewWithRating `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.UpdatedGymRating != 4.0 {
		t.Errorf("updatedGymRating = %v, want 4.0", envelope.Data.UpdatedGymRating)
	}
	if envelope.Data.Review == nil || envelope.Data.Review.ID == 0 {
		t.Error("review missing from response")
	}

	second := mustCreateUser(t, app, "beta_spray", "Beta")
	rec = postReview(app, gym, second, `{"rating":5,"content":"Best walls in the district."}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("second review: status = %d, body %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	// (4 + 5) / 2, rounded to one decimal.
	if envelope.Data.UpdatedGymRating != 4.5 {
		t.Errorf("updatedGymRating = %v, want 4.5", envelope.Data.UpdatedGymRating)
	}
}

func TestCreateReview_OnePerGym(t *testing.T) {
	app := buildTestApp(t)
	gym := mustCreateGym(t, app, "Boulder Base", nil)
	user := mustCreateUser(t, app, "send_it", "Sender")

	rec := postReview(app, gym, user, `{"rating":4,"content":"Great setting."}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first review: status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = postReview(app, gym, user, `{"rating":2,"content":"Changed my mind."}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second review: status = %d, want 409", rec.Code)
	}
}

func TestUpdateReview_NotOwner(t *testing.T) {
	app := buildTestApp(t)
	gym := mustCreateGym(t, app, "Boulder Base", nil)
	owner := mustCreateUser(t, app, "send_it", "Sender")
	other := mustCreateUser(t, app, "beta_spray", "Beta")

	rec := postReview(app, gym, owner, `{"rating":4,"content":"Great setting."}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create review: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data ReviewWithRating `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	reviewID := envelope.Data.Review.ID

	body := `{"rating":1,"content":"Hijacked."}`
	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/api/gyms/%d/reviews/%d", gym.ID, reviewID), bytes.NewBufferString(body))
	req = withURLParams(req, map[string]string{
		"gymID":    strconv.FormatInt(gym.ID, 10),
		"reviewID": strconv.FormatInt(reviewID, 10),
	})
	req = withUser(req, other)
	rec2 := httptest.NewRecorder()

	app.updateGymReviewHandler(rec2, req)
	if rec2.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec2.Code)
	}
}

func TestDeleteReview_WrongGym(t *testing.T) {
	app := buildTestApp(t)
	gymA := mustCreateGym(t, app, "Boulder Base", nil)
	gymB := mustCreateGym(t, app, "Crux Corner", nil)
	user := mustCreateUser(t, app, "send_it", "Sender")

	rec := postReview(app, gymA, user, `{"rating":4,"content":"Great setting."}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create review: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data ReviewWithRating `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	reviewID := envelope.Data.Review.ID

	// The review belongs to gym A; addressing it under gym B is a 404.
	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/gyms/%d/reviews/%d", gymB.ID, reviewID), nil)
	req = withURLParams(req, map[string]string{
		"gymID":    strconv.FormatInt(gymB.ID, 10),
		"reviewID": strconv.FormatInt(reviewID, 10),
	})
	req = withUser(req, user)
	rec2 := httptest.NewRecorder()

	app.deleteGymReviewHandler(rec2, req)
	if rec2.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec2.Code)
	}
}

func TestGetGymReviews_UnknownGym(t *testing.T) {
	app := buildTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/gyms/999/reviews", nil)
	req = withGymID(req, 999)
	rec := httptest.NewRecorder()

	app.getGymReviewsHandler(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
