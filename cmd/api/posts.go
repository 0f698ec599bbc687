package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"holdme/internal/store"

	"github.com/go-chi/chi/v5"
)

type CreatePostPayload struct {
	Title        string  `json:"title" validate:"required,max=200"`
	Content      string  `json:"content" validate:"required,max=5000"`
	Category     string  `json:"category" validate:"required,oneof=review question meetup"`
	MeetingDate  *string `json:"meetingDate,omitempty" validate:"omitempty"`
	MeetingGymID *int64  `json:"meetingGymId,omitempty"`
	MaxPeople    *int    `json:"maxPeople,omitempty" validate:"omitempty,gte=2,lte=50"`
	ImageURL     *string `json:"imageUrl,omitempty" validate:"omitempty,url"`
}

func (app *application) createPostHandler(w http.ResponseWriter, r *http.Request) {
	var payload CreatePostPayload
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

	post := &store.Post{
		UserID:   user.UserID,
		Title:    payload.Title,
		Content:  payload.Content,
		Category: payload.Category,
		ImageURL: payload.ImageURL,
	}

	if payload.Category == store.CategoryMeetup {
		if payload.MeetingDate == nil || payload.MeetingGymID == nil || payload.MaxPeople == nil {
			app.badRequestResponse(w, r, errors.New("meetup posts need meetingDate, meetingGymId and maxPeople"))
			return
		}

		meetingDate, err := time.Parse(time.RFC3339, *payload.MeetingDate)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
		if meetingDate.Before(time.Now()) {
			app.badRequestResponse(w, r, errors.New("meeting date must be in the future"))
			return
		}

		exists, err := app.store.Gyms.Exists(ctx, *payload.MeetingGymID)
		if err != nil {
			app.internalServerError(w, r, err)
			return
		}
		if !exists {
			app.notFoundResponse(w, r, store.ErrNotFound)
			return
		}

		shareCode, err := app.newShareCode()
		if err != nil {
			app.internalServerError(w, r, err)
			return
		}

		status := store.MeetingStatusOpen
		post.MeetingDate = &meetingDate
		post.MeetingGymID = payload.MeetingGymID
		post.MaxPeople = payload.MaxPeople
		post.MeetingStatus = &status
		post.ShareCode = &shareCode
	}

	if err := app.store.Posts.Create(ctx, post); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, post); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) listPostsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	category := q.Get("category")
	if category != "" && !store.ValidCategory(category) {
		app.badRequestResponse(w, r, errors.New("unknown category"))
		return
	}

	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))

	posts, total, err := app.store.Posts.List(r.Context(), store.PostFilter{
		Category: category,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if posts == nil {
		posts = []store.Post{}
	}

	resp := map[string]any{
		"posts": posts,
		"total": total,
	}
	if err := app.jsonResponse(w, http.StatusOK, resp); err != nil {
		app.internalServerError(w, r, err)
	}
}

// PostDetail is the post page: the post plus its threaded comments.
type PostDetail struct {
	*store.Post
	Comments []store.Comment `json:"comments"`
}

func (app *application) getPostHandler(w http.ResponseWriter, r *http.Request) {
	postID, err := postIDFromRequest(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx := r.Context()

	post, err := app.store.Posts.GetByID(ctx, postID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.store.Posts.IncrementViews(ctx, postID); err != nil {
		app.logger.Errorw("error incrementing post views", "postID", postID, "error", err)
	}

	comments, err := app.store.Comments.GetByPost(ctx, postID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if comments == nil {
		comments = []store.Comment{}
	}

	detail := PostDetail{Post: post, Comments: comments}
	if err := app.jsonResponse(w, http.StatusOK, detail); err != nil {
		app.internalServerError(w, r, err)
	}
}

type UpdatePostPayload struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Content     string  `json:"content" validate:"required,max=5000"`
	MeetingDate *string `json:"meetingDate,omitempty"`
	MaxPeople   *int    `json:"maxPeople,omitempty" validate:"omitempty,gte=2,lte=50"`
	ImageURL    *string `json:"imageUrl,omitempty" validate:"omitempty,url"`
}

func (app *application) updatePostHandler(w http.ResponseWriter, r *http.Request) {
	postID, err := postIDFromRequest(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payload UpdatePostPayload
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

	post, err := app.store.Posts.GetByID(ctx, postID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if post.UserID != user.UserID {
		app.forbiddenResponse(w, r)
		return
	}

	post.Title = payload.Title
	post.Content = payload.Content
	post.ImageURL = payload.ImageURL

	if post.Category == store.CategoryMeetup {
		if payload.MeetingDate != nil {
			meetingDate, err := time.Parse(time.RFC3339, *payload.MeetingDate)
			if err != nil {
				app.badRequestResponse(w, r, err)
				return
			}
			post.MeetingDate = &meetingDate
		}
		if payload.MaxPeople != nil {
			if *payload.MaxPeople < post.CurrentPeople {
				app.badRequestResponse(w, r, errors.New("maxPeople cannot be below the current participant count"))
				return
			}
			post.MaxPeople = payload.MaxPeople
		}
	}

	if err := app.store.Posts.Update(ctx, post); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, post); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) deletePostHandler(w http.ResponseWriter, r *http.Request) {
	postID, err := postIDFromRequest(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx := r.Context()
	user := getUserFromContext(r)

	post, err := app.store.Posts.GetByID(ctx, postID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if post.UserID != user.UserID {
		app.forbiddenResponse(w, r)
		return
	}

	// Canceling a live meetup notifies everyone who joined, before the
	// participant rows disappear with the post.
	isLiveMeetup := post.Category == store.CategoryMeetup && post.MeetingStatus != nil &&
		(*post.MeetingStatus == store.MeetingStatusOpen || *post.MeetingStatus == store.MeetingStatusFull)
	if isLiveMeetup {
		app.notifyMeetupCanceled(ctx, postID)
	}

	if err := app.store.Posts.Delete(ctx, postID); err != nil {
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

func (app *application) togglePostLikeHandler(w http.ResponseWriter, r *http.Request) {
	postID, err := postIDFromRequest(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user := getUserFromContext(r)

	liked, likes, err := app.store.Posts.ToggleLike(r.Context(), postID, user.UserID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	resp := map[string]any{
		"liked": liked,
		"likes": likes,
	}
	if err := app.jsonResponse(w, http.StatusOK, resp); err != nil {
		app.internalServerError(w, r, err)
	}
}

type CreateCommentPayload struct {
	Content  string `json:"content" validate:"required,max=1000"`
	ParentID *int64 `json:"parentId,omitempty"`
}

func (app *application) createCommentHandler(w http.ResponseWriter, r *http.Request) {
	postID, err := postIDFromRequest(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payload CreateCommentPayload
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

	if _, err := app.store.Posts.GetByID(ctx, postID); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if payload.ParentID != nil {
		parent, err := app.store.Comments.GetByID(ctx, *payload.ParentID)
		if err != nil {
			switch {
			case errors.Is(err, store.ErrNotFound):
				app.notFoundResponse(w, r, err)
			default:
				app.internalServerError(w, r, err)
			}
			return
		}
		if parent.PostID != postID {
			app.badRequestResponse(w, r, errors.New("parent comment belongs to another post"))
			return
		}
		// One level of nesting only.
		if parent.ParentID != nil {
			app.badRequestResponse(w, r, errors.New("cannot reply to a reply"))
			return
		}
	}

	comment := &store.Comment{
		PostID:   postID,
		UserID:   user.UserID,
		Content:  payload.Content,
		ParentID: payload.ParentID,
	}
	comment.Nickname = user.Nickname

	if err := app.store.Comments.Create(ctx, comment); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, comment); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) deleteCommentHandler(w http.ResponseWriter, r *http.Request) {
	postID, err := postIDFromRequest(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	commentID, err := strconv.ParseInt(chi.URLParam(r, "commentID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid comment id"))
		return
	}

	ctx := r.Context()
	user := getUserFromContext(r)

	comment, err := app.store.Comments.GetByID(ctx, commentID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if comment.PostID != postID {
		app.notFoundResponse(w, r, store.ErrNotFound)
		return
	}
	if comment.UserID != user.UserID {
		app.forbiddenResponse(w, r)
		return
	}

	if err := app.store.Comments.Delete(ctx, commentID); err != nil {
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

func postIDFromRequest(r *http.Request) (int64, error) {
	postID, err := strconv.ParseInt(chi.URLParam(r, "postID"), 10, 64)
	if err != nil {
		return 0, errors.New("invalid post id")
	}
	return postID, nil
}
