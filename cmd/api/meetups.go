package main

import (
	"context"
	"errors"
	"net/http"

	"holdme/internal/notifications"
	"holdme/internal/store"
)

type JoinMeetupPayload struct {
	Message *string `json:"message,omitempty" validate:"omitempty,max=500"`
}

func (app *application) joinMeetupHandler(w http.ResponseWriter, r *http.Request) {
	postID, err := postIDFromRequest(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payload JoinMeetupPayload
	if r.ContentLength > 0 {
		if err := readJSON(w, r, &payload); err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
		if err := Validate.Struct(payload); err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
	}

	ctx := r.Context()
	user := getUserFromContext(r)

	post, err := app.meetupFromRequest(w, r, postID)
	if post == nil {
		return
	}

	if post.UserID == user.UserID {
		app.badRequestResponse(w, r, errors.New("you are hosting this meetup"))
		return
	}

	if post.MeetingStatus != nil && *post.MeetingStatus != store.MeetingStatusOpen {
		app.conflictResponse(w, r, errors.New("this meetup is not open for joining"))
		return
	}

	participant := &store.MeetingParticipant{
		PostID:  postID,
		UserID:  user.UserID,
		Message: payload.Message,
	}

	if err := app.store.Participants.Join(ctx, participant); err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			app.conflictResponse(w, r, errors.New("you have already asked to join this meetup"))
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	hostID := post.UserID
	nickname := user.Nickname
	notifications.CallAsync(app.logger, func(ctx context.Context) error {
		return notifications.SendJoinRequestToHost(ctx, app.push, app.store, hostID, postID, nickname)
	})

	if err := app.jsonResponse(w, http.StatusCreated, participant); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) cancelMeetupJoinHandler(w http.ResponseWriter, r *http.Request) {
	postID, err := postIDFromRequest(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user := getUserFromContext(r)

	post, err := app.meetupFromRequest(w, r, postID)
	if post == nil {
		return
	}

	if err := app.store.Participants.Cancel(r.Context(), postID, user.UserID); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	hostID := post.UserID
	nickname := user.Nickname
	notifications.CallAsync(app.logger, func(ctx context.Context) error {
		return notifications.SendJoinWithdrawnToHost(ctx, app.push, app.store, hostID, postID, nickname)
	})

	w.WriteHeader(http.StatusNoContent)
}

type ModerateParticipantPayload struct {
	UserID string `json:"userId" validate:"required"`
}

func (app *application) approveMeetupJoinHandler(w http.ResponseWriter, r *http.Request) {
	app.moderateParticipant(w, r, store.ParticipantApproved)
}

func (app *application) rejectMeetupJoinHandler(w http.ResponseWriter, r *http.Request) {
	app.moderateParticipant(w, r, store.ParticipantRejected)
}

func (app *application) moderateParticipant(w http.ResponseWriter, r *http.Request, status string) {
	postID, err := postIDFromRequest(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payload ModerateParticipantPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx := r.Context()
	host := getUserFromContext(r)

	post, err := app.meetupFromRequest(w, r, postID)
	if post == nil {
		return
	}

	// Only the host moderates join requests.
	if post.UserID != host.UserID {
		app.forbiddenResponse(w, r)
		return
	}

	if status == store.ParticipantApproved && post.MeetingStatus != nil && *post.MeetingStatus == store.MeetingStatusFull {
		app.conflictResponse(w, r, errors.New("this meetup is already full"))
		return
	}

	if err := app.store.Participants.SetStatus(ctx, postID, payload.UserID, status); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, errors.New("no pending request from that user"))
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	requesterID := payload.UserID
	if status == store.ParticipantApproved {
		notifications.CallAsync(app.logger, func(ctx context.Context) error {
			return notifications.SendJoinApprovedToUser(ctx, app.push, app.store, requesterID, postID)
		})
	} else {
		notifications.CallAsync(app.logger, func(ctx context.Context) error {
			return notifications.SendJoinRejectedToUser(ctx, app.push, app.store, requesterID, postID)
		})
	}

	participant, err := app.store.Participants.Get(ctx, postID, payload.UserID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, participant); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) getParticipantsHandler(w http.ResponseWriter, r *http.Request) {
	postID, err := postIDFromRequest(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	post, err := app.meetupFromRequest(w, r, postID)
	if post == nil {
		return
	}

	participants, err := app.store.Participants.GetByPost(r.Context(), postID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if participants == nil {
		participants = []store.MeetingParticipant{}
	}

	if err := app.jsonResponse(w, http.StatusOK, participants); err != nil {
		app.internalServerError(w, r, err)
	}
}

// meetupFromRequest loads the post and writes the error response itself when
// the post is missing or not a meetup; callers bail out on nil.
func (app *application) meetupFromRequest(w http.ResponseWriter, r *http.Request, postID int64) (*store.Post, error) {
	post, err := app.store.Posts.GetByID(r.Context(), postID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return nil, err
	}

	if post.Category != store.CategoryMeetup {
		app.badRequestResponse(w, r, errors.New("this post is not a meetup"))
		return nil, errors.New("not a meetup")
	}

	return post, nil
}

// notifyMeetupCanceled builds the fan-out now and publishes it async; by the
// time the push goes out the participant rows may already be gone.
func (app *application) notifyMeetupCanceled(ctx context.Context, postID int64) {
	msgs, err := notifications.BuildMeetupCanceledMessages(ctx, app.store, postID)
	if err != nil {
		app.logger.Errorw("error building cancellation notifications", "postID", postID, "error", err)
		return
	}
	if len(msgs) == 0 {
		return
	}

	notifications.CallAsync(app.logger, func(ctx context.Context) error {
		_, err := app.push.Publish(ctx, msgs)
		return err
	})
}
