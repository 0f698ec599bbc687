package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"holdme/internal/store"
)

type userKey string

const userCtx userKey = "user"

func getUserFromContext(r *http.Request) *store.User {
	user, _ := r.Context().Value(userCtx).(*store.User)
	return user
}

// maybeUserFromContext is for routes behind OptionalAuthMiddleware, where an
// anonymous request carries no user at all.
func maybeUserFromContext(r *http.Request) (*store.User, bool) {
	user, ok := r.Context().Value(userCtx).(*store.User)
	return user, ok
}

// MyPage is the profile page payload: the account plus activity counters.
type MyPage struct {
	*store.User
	Activity *store.ActivityCounts `json:"activity"`
}

func (app *application) myPageHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	counts, err := app.store.Users.ActivityCounts(r.Context(), user.UserID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	page := MyPage{User: user, Activity: counts}
	if err := app.jsonResponse(w, http.StatusOK, page); err != nil {
		app.internalServerError(w, r, err)
	}
}

type UpdateProfilePayload struct {
	Nickname             *string  `json:"nickname,omitempty" validate:"omitempty,min=2,max=30"`
	Email                *string  `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Level                *string  `json:"level,omitempty" validate:"omitempty,oneof=V0 V1 V2 V3 V4 V5 V6 V7 V8"`
	Techniques           []string `json:"techniques,omitempty"`
	HasInstructorLicense *bool    `json:"hasInstructorLicense,omitempty"`

	// Password change rides along on the profile update and requires the
	// current password.
	CurrentPassword *string `json:"currentPassword,omitempty"`
	NewPassword     *string `json:"newPassword,omitempty" validate:"omitempty,min=8,max=72"`
}

func (app *application) updateProfileHandler(w http.ResponseWriter, r *http.Request) {
	var payload UpdateProfilePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx := r.Context()
	user := getUserFromContext(r)

	updates := map[string]interface{}{}
	if payload.Nickname != nil {
		updates["nickname"] = *payload.Nickname
	}
	if payload.Email != nil {
		updates["email"] = *payload.Email
	}
	if payload.Level != nil {
		updates["level"] = *payload.Level
	}
	if payload.Techniques != nil {
		if !store.ValidTechniques(payload.Techniques) {
			app.badRequestResponse(w, r, errors.New("unknown technique"))
			return
		}
		updates["techniques"] = payload.Techniques
	}
	if payload.HasInstructorLicense != nil {
		updates["has_instructor_license"] = *payload.HasInstructorLicense
	}

	if payload.NewPassword != nil {
		if payload.CurrentPassword == nil {
			app.badRequestResponse(w, r, errors.New("currentPassword is required to change the password"))
			return
		}
		if err := user.Password.Compare(*payload.CurrentPassword); err != nil {
			app.unauthorizedErrorResponse(w, r, errors.New("current password does not match"))
			return
		}
		if err := user.Password.Set(*payload.NewPassword); err != nil {
			app.internalServerError(w, r, err)
			return
		}
		if err := app.store.Users.UpdatePassword(ctx, user.UserID, user); err != nil {
			app.internalServerError(w, r, err)
			return
		}
	}

	if len(updates) > 0 {
		if err := app.store.Users.UpdateProfile(ctx, user.UserID, updates); err != nil {
			switch {
			case errors.Is(err, store.ErrDuplicateNickname):
				app.conflictResponse(w, r, err)
			case errors.Is(err, store.ErrNotFound):
				app.notFoundResponse(w, r, err)
			default:
				app.internalServerError(w, r, err)
			}
			return
		}
	} else if payload.NewPassword == nil {
		app.badRequestResponse(w, r, errors.New("no fields to update"))
		return
	}

	updated, err := app.store.Users.GetByID(ctx, user.UserID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, updated); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) deleteAccountHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	if err := app.store.Users.Delete(r.Context(), user.UserID); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
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

func (app *application) myPostsHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	posts, err := app.store.Posts.GetByUser(r.Context(), user.UserID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if posts == nil {
		posts = []store.Post{}
	}

	if err := app.jsonResponse(w, http.StatusOK, posts); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) myReviewsHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	reviews, err := app.store.Reviews.GetByUser(r.Context(), user.UserID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if reviews == nil {
		reviews = []store.Review{}
	}

	if err := app.jsonResponse(w, http.StatusOK, reviews); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) myCongestionReportsHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	reports, err := app.store.Congestion.ListByUser(r.Context(), user.UserID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if reports == nil {
		reports = []store.CongestionReport{}
	}

	if err := app.jsonResponse(w, http.StatusOK, reports); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) myBookmarksHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	gyms, err := app.store.Bookmarks.ListByUser(r.Context(), user.UserID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if gyms == nil {
		gyms = []store.Gym{}
	}

	if err := app.jsonResponse(w, http.StatusOK, gyms); err != nil {
		app.internalServerError(w, r, err)
	}
}

type PushTokenPayload struct {
	Token      string          `json:"token" validate:"required"`
	DeviceInfo json.RawMessage `json:"deviceInfo,omitempty"`
}

func (app *application) registerPushTokenHandler(w http.ResponseWriter, r *http.Request) {
	var payload PushTokenPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user := getUserFromContext(r)

	if err := app.store.PushTokens.AddOrUpdate(r.Context(), user.UserID, payload.Token, payload.DeviceInfo); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (app *application) removePushTokenHandler(w http.ResponseWriter, r *http.Request) {
	var payload PushTokenPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user := getUserFromContext(r)

	if err := app.store.PushTokens.Remove(r.Context(), user.UserID, payload.Token); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
