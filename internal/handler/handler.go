package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/sjlee-edu/mathtutor/internal/handler/views"
	appI18n "github.com/sjlee-edu/mathtutor/internal/i18n"
	"github.com/sjlee-edu/mathtutor/internal/model"
	"github.com/sjlee-edu/mathtutor/internal/sheets"
	"github.com/sjlee-edu/mathtutor/internal/store"
	"github.com/sjlee-edu/mathtutor/internal/workflow"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store        *store.Store
	resolver     *sheets.Resolver
	solver       *workflow.Solver
	survey       *workflow.Survey
	passwordHash []byte
	config       model.ServerConfig
}

// New creates a new Handler. passwordHash is the bcrypt hash of the shared
// login password.
func New(st *store.Store, gw sheets.Gateway, llm workflow.Inference, passwordHash []byte, cfg model.ServerConfig) *Handler {
	return &Handler{
		store:        st,
		resolver:     sheets.NewResolver(gw),
		solver:       workflow.NewSolver(gw, gw, llm, cfg.QuestionLabel),
		survey:       workflow.NewSurvey(gw),
		passwordHash: passwordHash,
		config:       cfg,
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(limitBody)
		r.Use(h.csrfMiddleware)
		r.Get("/login", h.handleLoginPage)
		r.Post("/login", h.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Get("/", h.handleMenu)
			r.Post("/logout", h.handleLogout)
			r.Get("/survey", h.handleSurveyPage)
			r.Post("/survey", h.handleSurveySubmit)
			r.Get("/solve", h.handleSolvePage)
			r.Post("/solve/feedback", h.handleFeedback)
			r.Post("/solve/hint", h.handleHint)
			r.Post("/solve/submit", h.handleFinalSubmit)
		})
	})
}

// BasePathMiddleware exposes the configured URL prefix to views.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

func (h *Handler) handleMenu(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())

	// Returning to the menu leaves any workflow page.
	if err := h.store.SetPage(sess.Token, model.PageNone); err != nil {
		slog.Error("failed to reset page", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	render(w, r, views.MenuPage(sess.StudentID))
}

// errorMessage maps workflow errors onto localized inline messages.
func errorMessage(r *http.Request, err error) string {
	ctx := r.Context()
	switch {
	case errors.Is(err, workflow.ErrNoActiveQuestion):
		return appI18n.T(ctx, "NoActiveQuestion")
	case errors.Is(err, workflow.ErrTemplateMissing):
		return appI18n.T(ctx, "ErrTemplateMissing")
	case errors.Is(err, workflow.ErrLikertOutOfRange):
		return appI18n.T(ctx, "ErrLikertRange")
	}
	var gwErr *workflow.GatewayError
	if errors.As(err, &gwErr) {
		slog.Error("gateway call failed", "op", gwErr.Op, "error", gwErr.Err)
	} else {
		slog.Error("unexpected workflow error", "error", err)
	}
	return appI18n.T(ctx, "ErrGateway")
}

func render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}
