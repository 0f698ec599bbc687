package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestReportCongestion_UnknownLevel(t *testing.T) {
	app := buildTestApp(t)
	gym := mustCreateGym(t, app, "Boulder Base", nil)

	body := `{"congestionLevel":"packed"}`
	req := httptest.NewRequest(http.MethodPost, "/api/gyms/1/congestion", bytes.NewBufferString(body))
	req = withGymID(req, gym.ID)
	rec := httptest.NewRecorder()

	app.reportCongestionHandler(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestReportCongestion_GymNotFound(t *testing.T) {
	app := buildTestApp(t)

	body := `{"congestionLevel":"crowded"}`
	req := httptest.NewRequest(http.MethodPost, "/api/gyms/999/congestion", bytes.NewBufferString(body))
	req = withGymID(req, 999)
	rec := httptest.NewRecorder()

	app.reportCongestionHandler(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestReportCongestion_Anonymous(t *testing.T) {
	app := buildTestApp(t)
	gym := mustCreateGym(t, app, "Boulder Base", nil)

	body := `{"congestionLevel":"crowded","peopleCount":25}`
	req := httptest.NewRequest(http.MethodPost, "/api/gyms/1/congestion", bytes.NewBufferString(body))
	req = withGymID(req, gym.ID)
	rec := httptest.NewRecorder()

	app.reportCongestionHandler(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data CongestionResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.IsDuplicate {
		t.Error("isDuplicate = true, want false")
	}
	if envelope.Data.CurrentCongestion != "crowded" {
		t.Errorf("currentCongestion = %q, want %q", envelope.Data.CurrentCongestion, "crowded")
	}
	// A single "crowded" report in the window weighs 0.8.
	if envelope.Data.AvgCongestion != 0.8 {
		t.Errorf("avgCongestion = %v, want 0.8", envelope.Data.AvgCongestion)
	}

	report := envelope.Data.CongestionReport
	if report == nil {
		t.Fatal("congestionReport missing from response")
	}
	if report.ID == 0 {
		t.Error("congestionReport.id not set")
	}
	if report.Level != "crowded" {
		t.Errorf("congestionReport.level = %q, want %q", report.Level, "crowded")
	}
	if report.UserID != "anonymous" {
		t.Errorf("congestionReport.userId = %q, want %q", report.UserID, "anonymous")
	}
	if report.PeopleCount == nil || *report.PeopleCount != 25 {
		t.Errorf("congestionReport.peopleCount = %v, want 25", report.PeopleCount)
	}
	if report.ReportedAt.IsZero() {
		t.Error("congestionReport.reportedAt not set")
	}
}

func TestReportCongestion_DuplicateSuppressed(t *testing.T) {
	app := buildTestApp(t)
	gym := mustCreateGym(t, app, "Boulder Base", nil)
	user := mustCreateUser(t, app, "send_it", "Sender")

	report := func() *httptest.ResponseRecorder {
		body := `{"congestionLevel":"relaxed"}`
		req := httptest.NewRequest(http.MethodPost, "/api/gyms/1/congestion", bytes.NewBufferString(body))
		req = withGymID(req, gym.ID)
		req = withUser(req, user)
		rec := httptest.NewRecorder()
		app.reportCongestionHandler(rec, req)
		return rec
	}

	first := report()
	if first.Code != http.StatusCreated {
		t.Fatalf("first report: status = %d, want 201, body %s", first.Code, first.Body.String())
	}

	var created struct {
		Data CongestionResponse `json:"data"`
	}
	if err := json.Unmarshal(first.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode first response: %v", err)
	}
	if created.Data.CongestionReport == nil {
		t.Fatal("first report: congestionReport missing from response")
	}

	second := report()
	if second.Code != http.StatusOK {
		t.Fatalf("second report: status = %d, want 200, body %s", second.Code, second.Body.String())
	}

	var envelope struct {
		Data CongestionResponse `json:"data"`
	}
	if err := json.Unmarshal(second.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.IsDuplicate {
		t.Error("isDuplicate = false, want true")
	}
	// The suppressed report must not move the stored aggregate.
	if envelope.Data.AvgCongestion != 0.2 {
		t.Errorf("avgCongestion = %v, want 0.2", envelope.Data.AvgCongestion)
	}
	if envelope.Data.CurrentCongestion != "relaxed" {
		t.Errorf("currentCongestion = %q, want %q", envelope.Data.CurrentCongestion, "relaxed")
	}
	// The duplicate path echoes the earlier report back, not a new one.
	if envelope.Data.CongestionReport == nil {
		t.Fatal("congestionReport missing from duplicate response")
	}
	if envelope.Data.CongestionReport.ID != created.Data.CongestionReport.ID {
		t.Errorf("duplicate congestionReport.id = %d, want %d",
			envelope.Data.CongestionReport.ID, created.Data.CongestionReport.ID)
	}
}

func TestReportCongestion_AnonymousNotSuppressed(t *testing.T) {
	app := buildTestApp(t)
	gym := mustCreateGym(t, app, "Boulder Base", nil)

	for i := 0; i < 2; i++ {
		body := `{"congestionLevel":"moderate"}`
		req := httptest.NewRequest(http.MethodPost, "/api/gyms/1/congestion", bytes.NewBufferString(body))
		req = withGymID(req, gym.ID)
		rec := httptest.NewRecorder()

		app.reportCongestionHandler(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("report %d: status = %d, want 201, body %s", i, rec.Code, rec.Body.String())
		}
	}
}
