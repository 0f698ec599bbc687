package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"holdme/internal/mailer"
	"holdme/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type SignupPayload struct {
	UserID               string   `json:"userId" validate:"required,loginid"`
	Password             string   `json:"password" validate:"required,min=8,max=72"`
	Nickname             string   `json:"nickname" validate:"required,min=2,max=30"`
	Email                *string  `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Level                *string  `json:"level,omitempty" validate:"omitempty,oneof=V0 V1 V2 V3 V4 V5 V6 V7 V8"`
	Techniques           []string `json:"techniques,omitempty"`
	HasInstructorLicense bool     `json:"hasInstructorLicense"`
}

func (app *application) signupHandler(w http.ResponseWriter, r *http.Request) {
	var payload SignupPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if !store.ValidTechniques(payload.Techniques) {
		app.badRequestResponse(w, r, errors.New("unknown technique"))
		return
	}

	user := &store.User{
		UserID:               payload.UserID,
		Nickname:             payload.Nickname,
		Email:                payload.Email,
		Level:                payload.Level,
		Techniques:           payload.Techniques,
		HasInstructorLicense: payload.HasInstructorLicense,
	}
	// hash the user password.
	if err := user.Password.Set(payload.Password); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	ctx := r.Context()

	if err := app.store.Users.Create(ctx, user); err != nil {
		switch err {
		case store.ErrDuplicateUserID:
			app.conflictResponse(w, r, err)
		case store.ErrDuplicateNickname:
			app.conflictResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	// The welcome email is best effort; a mail outage must not block signup.
	if user.Email != nil {
		email := *user.Email
		profileURL := fmt.Sprintf("%s/mypage", app.config.frontendURL)
		go func() {
			vars := struct {
				Username   string
				ProfileURL string
			}{
				Username:   user.Nickname,
				ProfileURL: profileURL,
			}

			status, err := app.mailer.Send(mailer.UserWelcomeTemplate, user.Nickname, email, vars)
			if err != nil {
				app.logger.Errorw("error sending welcome email", "error", err)
				return
			}
			app.logger.Infow("Email sent", "status code", status)
		}()
	}

	if err := app.setSession(w, r, user.UserID); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, user); err != nil {
		app.internalServerError(w, r, err)
	}
}

type LoginPayload struct {
	UserID   string `json:"userId" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (app *application) loginHandler(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user, err := app.store.Users.GetByID(r.Context(), payload.UserID)
	if err != nil {
		switch err {
		case store.ErrNotFound:
			app.unauthorizedErrorResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := user.Password.Compare(payload.Password); err != nil {
		app.unauthorizedErrorResponse(w, r, err)
		return
	}

	if err := app.setSession(w, r, user.UserID); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, user); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) logoutHandler(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil {
		if err := app.store.Sessions.Delete(r.Context(), cookie.Value); err != nil {
			app.internalServerError(w, r, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   app.config.env == "production",
	})

	w.WriteHeader(http.StatusNoContent)
}

func (app *application) currentUserHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	if err := app.jsonResponse(w, http.StatusOK, user); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) checkUserIDHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if !userIDPattern.MatchString(userID) {
		app.badRequestResponse(w, r, errors.New("invalid user id format"))
		return
	}

	taken, err := app.store.Users.IDTaken(r.Context(), userID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, map[string]bool{"available": !taken}); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) checkNicknameHandler(w http.ResponseWriter, r *http.Request) {
	nickname := chi.URLParam(r, "nickname")
	if len(nickname) < 2 || len(nickname) > 30 {
		app.badRequestResponse(w, r, errors.New("invalid nickname length"))
		return
	}

	taken, err := app.store.Users.NicknameTaken(r.Context(), nickname)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, map[string]bool{"available": !taken}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// setSession issues a fresh session token and sets the session cookie. Only
// the SHA-256 of the token ever reaches the database.
func (app *application) setSession(w http.ResponseWriter, r *http.Request, userID string) error {
	token := uuid.New().String()
	expiry := time.Now().Add(app.config.auth.session.exp)

	if err := app.store.Sessions.Create(r.Context(), token, userID, expiry); err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiry,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   app.config.env == "production",
	})

	return nil
}

type CreateUserTokenPayload struct {
	UserID   string `json:"userId" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// createTokenHandler issues an access/refresh token pair for mobile clients.
func (app *application) createTokenHandler(w http.ResponseWriter, r *http.Request) {
	var payload CreateUserTokenPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user, err := app.store.Users.GetByID(r.Context(), payload.UserID)
	if err != nil {
		switch err {
		case store.ErrNotFound:
			app.unauthorizedErrorResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := user.Password.Compare(payload.Password); err != nil {
		app.unauthorizedErrorResponse(w, r, err)
		return
	}

	accessToken, refreshToken, err := app.authenticator.GenerateTokens(user.UserID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	// Save refresh token in the database
	err = app.store.Users.SaveRefreshToken(r.Context(), user.UserID, refreshToken)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	response := map[string]string{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user_id":       user.UserID,
	}

	if err := app.jsonResponse(w, http.StatusOK, response); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) refreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}

	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	token, err := app.authenticator.ValidateRefreshToken(payload.RefreshToken)
	if err != nil || !token.Valid {
		app.unauthorizedErrorResponse(w, r, fmt.Errorf("invalid refresh token"))
		return
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		app.unauthorizedErrorResponse(w, r, fmt.Errorf("invalid claims"))
		return
	}

	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		app.unauthorizedErrorResponse(w, r, fmt.Errorf("invalid sub claim"))
		return
	}

	// Ensure refresh token exists in DB
	savedToken, err := app.store.Users.GetRefreshToken(r.Context(), userID)
	if err != nil || savedToken != payload.RefreshToken {
		app.unauthorizedErrorResponse(w, r, fmt.Errorf("refresh token mismatch"))
		return
	}

	// Generate new tokens
	accessToken, newRefreshToken, err := app.authenticator.GenerateTokens(userID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	// Update refresh token in DB
	err = app.store.Users.SaveRefreshToken(r.Context(), userID, newRefreshToken)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	response := map[string]string{
		"access_token":  accessToken,
		"refresh_token": newRefreshToken,
		"user_id":       userID,
	}

	if err := app.jsonResponse(w, http.StatusOK, response); err != nil {
		app.internalServerError(w, r, err)
	}
}
