package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"holdme/internal/store"

	"github.com/go-chi/chi/v5"
)

type ReviewPayload struct {
	Rating     int     `json:"rating" validate:"required,gte=1,lte=5"`
	Content    string  `json:"content" validate:"required,max=2000"`
	VisitDate  *string `json:"visitDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Difficulty *string `json:"difficulty,omitempty" validate:"omitempty,oneof=easy moderate hard"`
	CrowdLevel *string `json:"crowdLevel,omitempty" validate:"omitempty,oneof=relaxed moderate crowded"`
}

// ReviewWithRating pairs the review with the gym rating it produced, so the
// client can refresh the gym header without another round trip.
type ReviewWithRating struct {
	Review           *store.Review `json:"review,omitempty"`
	UpdatedGymRating float64       `json:"updatedGymRating"`
}

func (p *ReviewPayload) visitDate() (*time.Time, error) {
	if p.VisitDate == nil {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", *p.VisitDate)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (app *application) createGymReviewHandler(w http.ResponseWriter, r *http.Request) {
	gymID, err := gymIDFromRequest(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payload ReviewPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	visitDate, err := payload.visitDate()
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx := r.Context()
	user := getUserFromContext(r)

	exists, err := app.store.Gyms.Exists(ctx, gymID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if !exists {
		app.notFoundResponse(w, r, store.ErrNotFound)
		return
	}

	// One review per user per gym.
	hasReview, err := app.store.Reviews.HasReview(ctx, gymID, user.UserID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if hasReview {
		app.conflictResponse(w, r, errors.New("you have already reviewed this gym"))
		return
	}

	review := &store.Review{
		GymID:      gymID,
		UserID:     user.UserID,
		Rating:     payload.Rating,
		Content:    payload.Content,
		VisitDate:  visitDate,
		Difficulty: payload.Difficulty,
		CrowdLevel: payload.CrowdLevel,
	}

	updatedRating, err := app.store.Reviews.Create(ctx, review)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	resp := ReviewWithRating{Review: review, UpdatedGymRating: updatedRating}
	if err := app.jsonResponse(w, http.StatusCreated, resp); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) getGymReviewsHandler(w http.ResponseWriter, r *http.Request) {
	gymID, err := gymIDFromRequest(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	exists, err := app.store.Gyms.Exists(r.Context(), gymID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if !exists {
		app.notFoundResponse(w, r, store.ErrNotFound)
		return
	}

	reviews, err := app.store.Reviews.GetByGym(r.Context(), gymID)
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

func (app *application) updateGymReviewHandler(w http.ResponseWriter, r *http.Request) {
	gymID, err := gymIDFromRequest(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	reviewID, err := strconv.ParseInt(chi.URLParam(r, "reviewID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid review id"))
		return
	}

	var payload ReviewPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	visitDate, err := payload.visitDate()
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx := r.Context()
	user := getUserFromContext(r)

	review, err := app.store.Reviews.GetByID(ctx, reviewID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if review.GymID != gymID {
		app.notFoundResponse(w, r, store.ErrNotFound)
		return
	}
	if review.UserID != user.UserID {
		app.forbiddenResponse(w, r)
		return
	}

	review.Rating = payload.Rating
	review.Content = payload.Content
	review.VisitDate = visitDate
	review.Difficulty = payload.Difficulty
	review.CrowdLevel = payload.CrowdLevel

	updatedRating, err := app.store.Reviews.Update(ctx, review)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	resp := ReviewWithRating{Review: review, UpdatedGymRating: updatedRating}
	if err := app.jsonResponse(w, http.StatusOK, resp); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) deleteGymReviewHandler(w http.ResponseWriter, r *http.Request) {
	gymID, err := gymIDFromRequest(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	reviewID, err := strconv.ParseInt(chi.URLParam(r, "reviewID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid review id"))
		return
	}

	ctx := r.Context()
	user := getUserFromContext(r)

	review, err := app.store.Reviews.GetByID(ctx, reviewID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if review.GymID != gymID {
		app.notFoundResponse(w, r, store.ErrNotFound)
		return
	}
	if review.UserID != user.UserID {
		app.forbiddenResponse(w, r)
		return
	}

	updatedRating, err := app.store.Reviews.Delete(ctx, reviewID, gymID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	resp := ReviewWithRating{UpdatedGymRating: updatedRating}
	if err := app.jsonResponse(w, http.StatusOK, resp); err != nil {
		app.internalServerError(w, r, err)
	}
}
