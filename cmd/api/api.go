package main

import (
	"context"
	"errors"
	"expvar"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"holdme/internal/auth"
	"holdme/internal/mailer"
	"holdme/internal/notifications"
	"holdme/internal/ratelimiter"
	"holdme/internal/store"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/speps/go-hashids/v2"
	"go.uber.org/zap"
)

type application struct {
	config        config
	store         store.Storage
	logger        *zap.SugaredLogger
	cld           *cloudinary.Cloudinary
	mailer        mailer.Client
	authenticator auth.Authenticator
	push          notifications.PushSender
	rateLimiter   ratelimiter.Limiter
	shareCodes    *hashids.HashID
}

type config struct {
	addr        string
	db          dbConfig
	env         string
	apiURL      string
	mail        mailConfig
	frontendURL string
	auth        authConfig
	rateLimiter ratelimiter.Config
}

type authConfig struct {
	basic   basicConfig
	token   tokenConfig
	session sessionConfig
}

type tokenConfig struct {
	refreshSecret   string
	secret          string
	accessTokenExp  time.Duration
	refreshTokenExp time.Duration
	iss             string
}

type sessionConfig struct {
	exp time.Duration
}

type basicConfig struct {
	user string
	pass string
}

type mailConfig struct {
	fromEmail string
	mailtrap  mailTrapConfig
}

type mailTrapConfig struct {
	apiKey string
}

type dbConfig struct {
	addr        string
	maxConns    int
	maxIdleTime string
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(app.RateLimiterMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	// Set a timeout value on the request context (ctx), that will signal
	// through ctx.Done() that the request has timed out.
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", app.healthCheckHandler)
		r.With(app.BasicAuthMiddleware()).Get("/debug/vars", expvar.Handler().ServeHTTP)

		r.Get("/search", app.searchHandler)
		r.Get("/dashboard/stats", app.dashboardStatsHandler)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", app.signupHandler)
			r.Post("/login", app.loginHandler)
			r.Post("/logout", app.logoutHandler)
			r.Get("/check-id/{userID}", app.checkUserIDHandler)
			r.Get("/check-nickname/{nickname}", app.checkNicknameHandler)
			r.With(app.AuthTokenMiddleware).Get("/me", app.currentUserHandler)

			// Mobile clients keep tokens instead of cookies.
			r.Post("/token", app.createTokenHandler)
			r.Post("/refresh", app.refreshTokenHandler)
		})

		r.Route("/gyms", func(r chi.Router) {
			r.Get("/", app.listGymsHandler)
			r.With(app.AuthTokenMiddleware).Post("/", app.createGymHandler)

			r.Route("/{gymID}", func(r chi.Router) {
				r.Get("/", app.getGymHandler)
				r.With(app.AuthTokenMiddleware).Delete("/", app.deleteGymHandler)

				// Congestion reports accept anonymous submissions.
				r.With(app.OptionalAuthMiddleware).Post("/congestion", app.reportCongestionHandler)

				r.Get("/reviews", app.getGymReviewsHandler)
				r.With(app.AuthTokenMiddleware).Post("/reviews", app.createGymReviewHandler)
				r.With(app.AuthTokenMiddleware).Put("/reviews/{reviewID}", app.updateGymReviewHandler)
				r.With(app.AuthTokenMiddleware).Delete("/reviews/{reviewID}", app.deleteGymReviewHandler)

				r.With(app.AuthTokenMiddleware).Post("/bookmark", app.toggleBookmarkHandler)

				r.With(app.AuthTokenMiddleware).Post("/photos", app.uploadGymPhotoHandler)
				// DELETE /gyms/{gymID}/photos?photo_url={url}
				r.With(app.AuthTokenMiddleware).Delete("/photos", app.deleteGymPhotoHandler)
			})
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", app.listPostsHandler)
			r.With(app.AuthTokenMiddleware).Post("/", app.createPostHandler)

			r.Route("/{postID}", func(r chi.Router) {
				r.Get("/", app.getPostHandler)
				r.With(app.AuthTokenMiddleware).Put("/", app.updatePostHandler)
				r.With(app.AuthTokenMiddleware).Delete("/", app.deletePostHandler)
				r.With(app.AuthTokenMiddleware).Post("/like", app.togglePostLikeHandler)

				r.With(app.AuthTokenMiddleware).Post("/comments", app.createCommentHandler)
				r.With(app.AuthTokenMiddleware).Delete("/comments/{commentID}", app.deleteCommentHandler)

				r.Route("/meeting", func(r chi.Router) {
					r.Use(app.AuthTokenMiddleware)
					r.Get("/participants", app.getParticipantsHandler)
					r.Post("/join", app.joinMeetupHandler)
					r.Post("/cancel", app.cancelMeetupJoinHandler)
					r.Post("/approve", app.approveMeetupJoinHandler)
					r.Post("/reject", app.rejectMeetupJoinHandler)
				})
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Get("/mypage", app.myPageHandler)
			r.Put("/profile", app.updateProfileHandler)
			r.Delete("/", app.deleteAccountHandler)
			r.Get("/my-posts", app.myPostsHandler)
			r.Get("/my-reviews", app.myReviewsHandler)
			r.Get("/my-congestion-reports", app.myCongestionReportsHandler)
			r.Get("/bookmarks", app.myBookmarksHandler)
			r.Post("/push-token", app.registerPushTokenHandler)
			r.Delete("/push-token", app.removePushTokenHandler)
		})

		r.Route("/recommendations", func(r chi.Router) {
			r.Get("/stats", app.recommendationStatsHandler)
			r.With(app.AuthTokenMiddleware).Get("/gyms", app.recommendGymsHandler)
			r.With(app.AuthTokenMiddleware).Post("/refresh", app.refreshRecommendationsHandler)
		})
	})
	return r
}

func (app *application) run(mux http.Handler) error {
	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	// Implementing graceful shutdown
	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", app.config.addr, "env", app.config.env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", app.config.addr, "env", app.config.env)

	return nil
}
