package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"holdme/internal/store"

	"github.com/go-chi/chi/v5"
)

type CreateGymPayload struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Address     string   `json:"address" validate:"required,max=255"`
	District    string   `json:"district" validate:"required,max=50"`
	DayPrice    int      `json:"dayPrice" validate:"gte=0"`
	MonthPrice  *int     `json:"monthPrice,omitempty" validate:"omitempty,gte=0"`
	Phone       *string  `json:"phone,omitempty" validate:"omitempty,max=20"`
	Website     *string  `json:"website,omitempty" validate:"omitempty,url"`
	OpenTime    *string  `json:"openTime,omitempty" validate:"omitempty,len=5"`
	CloseTime   *string  `json:"closeTime,omitempty" validate:"omitempty,len=5"`
	RestDay     *string  `json:"restDay,omitempty" validate:"omitempty,max=50"`
	Techniques  []string `json:"techniques,omitempty"`
	Description string   `json:"description" validate:"max=2000"`
}

func (app *application) createGymHandler(w http.ResponseWriter, r *http.Request) {
	var payload CreateGymPayload
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

	user := getUserFromContext(r)

	gym := &store.Gym{
		Name:        payload.Name,
		Address:     payload.Address,
		District:    payload.District,
		DayPrice:    payload.DayPrice,
		MonthPrice:  payload.MonthPrice,
		Phone:       payload.Phone,
		Website:     payload.Website,
		OpenTime:    payload.OpenTime,
		CloseTime:   payload.CloseTime,
		RestDay:     payload.RestDay,
		Techniques:  payload.Techniques,
		Description: payload.Description,
		AddedBy:     &user.UserID,
	}

	if err := app.store.Gyms.Create(r.Context(), gym); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, gym); err != nil {
		app.internalServerError(w, r, err)
	}
}

// GymSummary is one listing row with the computed open flag attached.
type GymSummary struct {
	store.Gym
	IsOpen bool `json:"isOpen"`
}

// gymOpenNow does a same-day wall clock comparison. Zero-padded "HH:MM"
// strings order lexicographically; unknown or midnight-crossing hours count
// as closed. The recommendation scorer applies the same rule.
func gymOpenNow(g *store.Gym, now time.Time) bool {
	if g.OpenTime == nil || g.CloseTime == nil {
		return false
	}
	clock := now.Format("15:04")
	return clock >= *g.OpenTime && clock <= *g.CloseTime
}

func (app *application) listGymsHandler(w http.ResponseWriter, r *http.Request) {
	filter := store.GymFilter{
		Search:   r.URL.Query().Get("search"),
		District: r.URL.Query().Get("district"),
		Sort:     r.URL.Query().Get("sort"),
	}

	gyms, err := app.store.Gyms.List(r.Context(), filter)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	now := time.Now()
	summaries := make([]GymSummary, 0, len(gyms))
	for _, g := range gyms {
		summaries = append(summaries, GymSummary{Gym: g, IsOpen: gymOpenNow(&g, now)})
	}

	if err := app.jsonResponse(w, http.StatusOK, summaries); err != nil {
		app.internalServerError(w, r, err)
	}
}

// GymDetail bundles everything the gym page shows in one response.
type GymDetail struct {
	*store.Gym
	IsOpen          bool                     `json:"isOpen"`
	RecentReports   []store.CongestionReport `json:"recentReports"`
	Reviews         []store.Review           `json:"reviews"`
	UpcomingMeetups []store.Post             `json:"upcomingMeetups"`
}

func (app *application) getGymHandler(w http.ResponseWriter, r *http.Request) {
	gymID, err := gymIDFromRequest(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx := r.Context()

	gym, err := app.store.Gyms.GetByID(ctx, gymID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.store.Gyms.IncrementViewCount(ctx, gymID); err != nil {
		app.logger.Errorw("error incrementing gym view count", "gymID", gymID, "error", err)
	}

	reports, err := app.store.Congestion.RecentByGym(ctx, gymID, 10)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if reports == nil {
		reports = []store.CongestionReport{}
	}

	reviews, err := app.store.Reviews.GetByGym(ctx, gymID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if reviews == nil {
		reviews = []store.Review{}
	}

	meetups, err := app.store.Posts.UpcomingMeetupsByGym(ctx, gymID, 5)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if meetups == nil {
		meetups = []store.Post{}
	}

	detail := GymDetail{
		Gym:             gym,
		IsOpen:          gymOpenNow(gym, time.Now()),
		RecentReports:   reports,
		Reviews:         reviews,
		UpcomingMeetups: meetups,
	}

	if err := app.jsonResponse(w, http.StatusOK, detail); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) deleteGymHandler(w http.ResponseWriter, r *http.Request) {
	gymID, err := gymIDFromRequest(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user := getUserFromContext(r)

	gym, err := app.store.Gyms.GetByID(r.Context(), gymID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	// Only the user who listed the gym may remove it.
	if gym.AddedBy == nil || *gym.AddedBy != user.UserID {
		app.forbiddenResponse(w, r)
		return
	}

	if err := app.store.Gyms.Delete(r.Context(), gymID); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (app *application) toggleBookmarkHandler(w http.ResponseWriter, r *http.Request) {
	gymID, err := gymIDFromRequest(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user := getUserFromContext(r)

	exists, err := app.store.Gyms.Exists(r.Context(), gymID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if !exists {
		app.notFoundResponse(w, r, store.ErrNotFound)
		return
	}

	bookmarked, err := app.store.Bookmarks.Toggle(r.Context(), user.UserID, gymID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, map[string]bool{"bookmarked": bookmarked}); err != nil {
		app.internalServerError(w, r, err)
	}
}

func gymIDFromRequest(r *http.Request) (int64, error) {
	gymID, err := strconv.ParseInt(chi.URLParam(r, "gymID"), 10, 64)
	if err != nil {
		return 0, errors.New("invalid gym id")
	}
	return gymID, nil
}
