package main

import (
	"errors"
	"net/http"

	"holdme/internal/congestion"
	"holdme/internal/store"
)

type ReportCongestionPayload struct {
	CongestionLevel string `json:"congestionLevel" validate:"required"`
	PeopleCount     *int   `json:"peopleCount,omitempty" validate:"omitempty,gte=0,lte=500"`
}

// CongestionResponse is the submit result. On a suppressed duplicate the
// stored aggregates come back untouched, isDuplicate is set, and the report
// echoed back is the reporter's earlier one.
type CongestionResponse struct {
	IsDuplicate       bool                    `json:"isDuplicate"`
	CongestionReport  *store.CongestionReport `json:"congestionReport"`
	AvgCongestion     float64                 `json:"avgCongestion"`
	CurrentCongestion string                  `json:"currentCongestion"`
}

func (app *application) reportCongestionHandler(w http.ResponseWriter, r *http.Request) {
	gymID, err := gymIDFromRequest(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payload ReportCongestionPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if !congestion.ValidLabel(payload.CongestionLevel) {
		app.badRequestResponse(w, r, errors.New("unknown congestion level"))
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

	reporterID := congestion.AnonymousReporter
	if user, ok := maybeUserFromContext(r); ok {
		reporterID = user.UserID

		// Suppress rapid-fire reports from the same user; the stored
		// aggregates are returned unchanged.
		prev, err := app.store.Congestion.LastReportBy(ctx, gymID, reporterID, congestion.DuplicateWindow)
		if err == nil {
			resp := CongestionResponse{
				IsDuplicate:       true,
				CongestionReport:  prev,
				AvgCongestion:     gym.AvgCongestion,
				CurrentCongestion: currentLabel(gym),
			}
			if err := app.jsonResponse(w, http.StatusOK, resp); err != nil {
				app.internalServerError(w, r, err)
			}
			return
		}
		if !errors.Is(err, store.ErrNotFound) {
			app.internalServerError(w, r, err)
			return
		}
	}

	report := &store.CongestionReport{
		GymID:       gymID,
		UserID:      reporterID,
		Level:       payload.CongestionLevel,
		PeopleCount: payload.PeopleCount,
	}

	avg, err := app.store.Congestion.Submit(ctx, report)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	resp := CongestionResponse{
		IsDuplicate:       false,
		CongestionReport:  report,
		AvgCongestion:     avg,
		CurrentCongestion: payload.CongestionLevel,
	}

	if err := app.jsonResponse(w, http.StatusCreated, resp); err != nil {
		app.internalServerError(w, r, err)
	}
}

func currentLabel(gym *store.Gym) string {
	if gym.CurrentCongestion != nil {
		return *gym.CurrentCongestion
	}
	return ""
}
