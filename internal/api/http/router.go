package http

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/config"
	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

type Deps struct {
	Config  config.Config
	DB      *sql.DB
	Quizzes *quiz.Service
	Users   *auth.UserStore
	Auth    *auth.AuthService
	Events  *syncx.EventRepo
	Log     *logger.Logger
}

func NewRouter(d Deps) http.Handler {
	cfg, log, svc := d.Config, d.Log, d.Quizzes

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, RequestLogger(log), middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.EnableGuestAuth {
		r.Post("/auth/guest", auth.GuestLoginHandler(d.Auth, d.Users))
	}
	if cfg.EnableLocalAuth {
		r.Post("/auth/login", auth.LoginHandler(d.Auth, d.Users))
		if cfg.EnableRegistration {
			r.Post("/auth/register", auth.RegisterHandler(d.Auth, d.Users))
		}
	}

	// Protected API (JWT -> stored role -> RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Auth))
		pr.Use(auth.AttachRoleFromDB(d.Users, cfg.Mode == config.ModeOffline))

		pr.With(rbac.Require(rbac.PermQuizView)).Get("/quizzes", ListQuizzesHandler(svc, log))
		pr.With(rbac.Require(rbac.PermQuizCreate)).Post("/quizzes", CreateQuizHandler(svc, log))
		pr.With(rbac.Require(rbac.PermQuizView)).Get("/quizzes/{quizID}", GetQuizHandler(svc, log))
		pr.With(rbac.Require(rbac.PermQuizEdit)).Patch("/quizzes/{quizID}", UpdateQuizHandler(svc, log))
		pr.With(rbac.Require(rbac.PermQuizEdit)).Post("/quizzes/{quizID}/questions", AddQuestionHandler(svc, log))
		pr.With(rbac.Require(rbac.PermQuizEdit)).Put("/questions/{questionID}", UpdateQuestionHandler(svc, log))
		pr.With(rbac.Require(rbac.PermQuizEdit)).Delete("/questions/{questionID}", DeleteQuestionHandler(svc, log))

		pr.With(rbac.Require(rbac.PermAttemptSubmit)).Post("/quizzes/{quizID}/attempts", SubmitAttemptHandler(svc, log))
		pr.With(rbac.RequireAny(rbac.PermAttemptViewOwn, rbac.PermAttemptViewAll)).
			Get("/quizzes/{quizID}/attempts/latest", LatestAttemptHandler(svc, log))
		pr.With(rbac.RequireAny(rbac.PermAttemptViewOwn, rbac.PermAttemptViewAll)).
			Get("/attempts", ListAttemptsHandler(svc, log))
		pr.With(rbac.RequireAny(rbac.PermAttemptViewOwn, rbac.PermAttemptViewAll)).
			Get("/attempts/{attemptID}/results", AttemptResultsHandler(svc, log))
		pr.With(rbac.Require(rbac.PermReportView)).Get("/quizzes/{quizID}/report", QuizReportHandler(svc, log))

		pr.With(rbac.Require(rbac.PermUsersList)).Get("/users", ListUsersHandler(d.Users, log))
		pr.With(rbac.Require(rbac.PermUsersImport)).Post("/users/bulk", BulkUpsertUsersHandler(d.Users, log))
		pr.With(rbac.Require(rbac.PermUsersManage)).Put("/users/{userID}/role", AdminUpdateUserRoleHandler(d.Users, log))
		pr.With(rbac.Require(rbac.PermChangePassword)).Post("/users/change-password", ChangePasswordHandler(d.Users, log))

		pr.With(rbac.Require(rbac.PermEventsView)).Get("/admin/events", ListEventsHandler(d.Events, log))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.DB != nil {
			if err := d.DB.PingContext(r.Context()); err != nil {
				http.Error(w, "db unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	return r
}
