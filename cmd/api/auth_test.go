package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"holdme/internal/store"
)

func TestSignup_SetsSessionCookie(t *testing.T) {
	app := buildTestApp(t)

	body := `{"userId":"crimp_master","password":"climbon123","nickname":"Crimpy","level":"V4","techniques":["static","dynamic"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	app.signupHandler(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body.String())
	}

	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatal("no session cookie set")
	}
	if !sessionCookie.HttpOnly {
		t.Error("session cookie is not HttpOnly")
	}

	// The cookie must resolve back to the new account.
	user, err := app.store.Sessions.GetUser(req.Context(), sessionCookie.Value)
	if err != nil {
		t.Fatalf("resolve session: %v", err)
	}
	if user.UserID != "crimp_master" {
		t.Errorf("session user = %q, want %q", user.UserID, "crimp_master")
	}

	var envelope struct {
		Data store.User `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Nickname != "Crimpy" {
		t.Errorf("nickname = %q, want %q", envelope.Data.Nickname, "Crimpy")
	}
}

func TestSignup_DuplicateUserID(t *testing.T) {
	app := buildTestApp(t)
	mustCreateUser(t, app, "crimp_master", "Original")

	body := `{"userId":"crimp_master","password":"climbon123","nickname":"Impostor"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	app.signupHandler(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409, body %s", rec.Code, rec.Body.String())
	}
}

func TestSignup_InvalidUserID(t *testing.T) {
	app := buildTestApp(t)

	cases := []string{"ab", "UPPERCASE", "has spaces", "way_too_long_for_a_login_id"}
	for _, id := range cases {
		payload, _ := json.Marshal(map[string]string{
			"userId":   id,
			"password": "climbon123",
			"nickname": "Nick",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewBuffer(payload))
		rec := httptest.NewRecorder()

		app.signupHandler(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("userId %q: status = %d, want 400", id, rec.Code)
		}
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	app := buildTestApp(t)
	mustCreateUser(t, app, "crimp_master", "Crimpy")

	body := `{"userId":"crimp_master","password":"wrong-password"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	app.loginHandler(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestLogin_UnknownUser(t *testing.T) {
	app := buildTestApp(t)

	body := `{"userId":"nobody_here","password":"climbon123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	app.loginHandler(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCheckUserID(t *testing.T) {
	app := buildTestApp(t)
	mustCreateUser(t, app, "crimp_master", "Crimpy")

	check := func(userID string) (*httptest.ResponseRecorder, bool) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/check-id/"+userID, nil)
		req = withURLParams(req, map[string]string{"userID": userID})
		rec := httptest.NewRecorder()
		app.checkUserIDHandler(rec, req)

		var envelope struct {
			Data map[string]bool `json:"data"`
		}
		_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
		return rec, envelope.Data["available"]
	}

	rec, available := check("crimp_master")
	if rec.Code != http.StatusOK || available {
		t.Errorf("taken id: status = %d, available = %v, want 200/false", rec.Code, available)
	}

	rec, available = check("fresh_login")
	if rec.Code != http.StatusOK || !available {
		t.Errorf("free id: status = %d, available = %v, want 200/true", rec.Code, available)
	}
}

func TestRefreshToken_Rotation(t *testing.T) {
	app := buildTestApp(t)
	user := mustCreateUser(t, app, "crimp_master", "Crimpy")

	_, refreshToken, err := app.authenticator.GenerateTokens(user.UserID)
	if err != nil {
		t.Fatalf("generate tokens: %v", err)
	}
	if err := app.store.Users.SaveRefreshToken(httptest.NewRequest(http.MethodGet, "/", nil).Context(), user.UserID, refreshToken); err != nil {
		t.Fatalf("save refresh token: %v", err)
	}

	payload, _ := json.Marshal(map[string]string{"refresh_token": refreshToken})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", bytes.NewBuffer(payload))
	rec := httptest.NewRecorder()

	app.refreshTokenHandler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data["access_token"] == "" || envelope.Data["refresh_token"] == "" {
		t.Fatal("missing tokens in response")
	}

	// The rotated token is what the database now holds.
	saved, err := app.store.Users.GetRefreshToken(req.Context(), user.UserID)
	if err != nil {
		t.Fatalf("get refresh token: %v", err)
	}
	if saved != envelope.Data["refresh_token"] {
		t.Error("stored refresh token does not match the rotated one")
	}
}

func TestRefreshToken_NotSaved(t *testing.T) {
	app := buildTestApp(t)
	user := mustCreateUser(t, app, "crimp_master", "Crimpy")

	// A validly signed refresh token that was never persisted is rejected.
	_, refreshToken, err := app.authenticator.GenerateTokens(user.UserID)
	if err != nil {
		t.Fatalf("generate tokens: %v", err)
	}

	payload, _ := json.Marshal(map[string]string{"refresh_token": refreshToken})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", bytes.NewBuffer(payload))
	rec := httptest.NewRecorder()

	app.refreshTokenHandler(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
