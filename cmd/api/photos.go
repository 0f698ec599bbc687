package main

import (
	"errors"
	"net/http"

	"holdme/internal/store"
)

const maxPhotoUploadBytes = 10 << 20 // 10mb across the whole form

func (app *application) uploadGymPhotoHandler(w http.ResponseWriter, r *http.Request) {
	gymID, err := gymIDFromRequest(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx := r.Context()

	exists, err := app.store.Gyms.Exists(ctx, gymID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if !exists {
		app.notFoundResponse(w, r, store.ErrNotFound)
		return
	}

	if err := r.ParseMultipartForm(maxPhotoUploadBytes); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	files := r.MultipartForm.File["photos"]
	if len(files) == 0 {
		app.badRequestResponse(w, r, errors.New("no photos in request"))
		return
	}

	urls, err := app.uploadImagesWithGymID(files, gymID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	for _, u := range urls {
		if err := app.store.Gyms.AddPhotoURL(ctx, gymID, u); err != nil {
			app.internalServerError(w, r, err)
			return
		}
	}

	if err := app.jsonResponse(w, http.StatusCreated, map[string][]string{"photoUrls": urls}); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) deleteGymPhotoHandler(w http.ResponseWriter, r *http.Request) {
	gymID, err := gymIDFromRequest(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	photoURL := r.URL.Query().Get("photo_url")
	if photoURL == "" {
		app.badRequestResponse(w, r, errors.New("photo_url is required"))
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

	found := false
	for _, u := range gym.ImageURLs {
		if u == photoURL {
			found = true
			break
		}
	}
	if !found {
		app.notFoundResponse(w, r, errors.New("photo not found on this gym"))
		return
	}

	if err := app.deletePhotoFromCloudinary(photoURL); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.store.Gyms.RemovePhotoURL(ctx, gymID, photoURL); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
