package main

import (
	"errors"
	"net/http"
	"strconv"

	"holdme/internal/store"
)

const defaultSearchLimit = 20

// SearchResults is the cross-entity search response: gyms, posts, and users
// matching the same query.
type SearchResults struct {
	Gyms  []store.Gym  `json:"gyms"`
	Posts []store.Post `json:"posts"`
	Users []store.User `json:"users"`
}

func (app *application) searchHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if len(q) < 2 {
		app.badRequestResponse(w, r, errors.New("q must be at least 2 characters"))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = defaultSearchLimit
	}

	ctx := r.Context()

	gyms, err := app.store.Gyms.Search(ctx, q, limit)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	posts, err := app.store.Posts.Search(ctx, q, limit)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	users, err := app.store.Users.Search(ctx, q, limit)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	results := SearchResults{Gyms: gyms, Posts: posts, Users: users}
	if results.Gyms == nil {
		results.Gyms = []store.Gym{}
	}
	if results.Posts == nil {
		results.Posts = []store.Post{}
	}
	if results.Users == nil {
		results.Users = []store.User{}
	}

	if err := app.jsonResponse(w, http.StatusOK, results); err != nil {
		app.internalServerError(w, r, err)
	}
}
