// Package http wires the router, session handling and page/API handlers.
package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"spend/internal/auth"
	"spend/internal/config"
	"spend/internal/core"
	"spend/internal/log"
	"spend/internal/middleware/ratelimit"
	"spend/internal/middleware/security"
	"spend/internal/middleware/trace"
	"spend/internal/services"
	"spend/web"
)

// Store is the persistence surface the server needs.
type Store interface {
	core.UserStore
	core.CategoryStore
}

// Server serves the rendered pages and the JSON API.
type Server struct {
	http.Server

	cfg       *config.Config
	store     Store
	auth      *auth.Service
	expenses  *services.ExpenseService
	templates *template.Template
	logger    *log.Logger

	limiter *ratelimit.Limiter
}

func NewServer(cfg *config.Config, store Store, authService *auth.Service, expenses *services.ExpenseService, logger *log.Logger) (*Server, error) {
	templates, err := template.New("").Funcs(template.FuncMap{
		"euros": formatEuros,
	}).ParseFS(web.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		store:     store,
		auth:      authService,
		expenses:  expenses,
		templates: templates,
		logger:    logger.WithComponent(log.ComponentHTTP),
		limiter:   ratelimit.NewLimiter(ratelimit.DefaultConfig()),
	}

	s.Server = http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.Server.Handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	tracer := trace.NewMiddleware(trace.ClientIP)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	r.Use(tracer.Middleware)
	r.Use(headers.Middleware)
	r.Use(log.Middleware(s.logger))

	// Static assets, no session needed.
	staticFS, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		panic(fmt.Sprintf("static assets missing from embed: %v", err))
	}
	r.With(security.StaticAssetMiddleware(3600)).
		Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	r.Get("/healthz", s.handleHealth)

	// Logout only clears the cookie, so it works with or without a session.
	r.Post("/logout", s.handleLogout)

	// Credential endpoints are rate limited per client IP.
	r.Group(func(r chi.Router) {
		r.Use(s.limiter.Middleware(trace.ClientIP))
		r.Get("/signup", s.handleSignupPage)
		r.Post("/signup", s.handleSignup)
		r.Get("/login", s.handleLoginPage)
		r.Post("/login", s.handleLogin)
	})

	// Everything else requires a valid session cookie.
	r.Group(func(r chi.Router) {
		r.Use(s.sessionMiddleware)

		r.Get("/", s.handleIndex)
		r.Get("/expenses", s.handleExpensesPage)
		r.Get("/expenses/new", s.handleExpenseFormPage)
		r.Post("/expenses", s.handleExpenseCreate)
		r.Post("/expenses/{id}/delete", s.handleExpenseDelete)
		r.Get("/categories", s.handleCategoriesPage)

		r.Route("/api", func(r chi.Router) {
			r.Get("/categories", s.handleAPICategories)
			r.Get("/expenses/{id}", s.handleAPIExpenseGet)
			r.Put("/expenses/{id}", s.handleAPIExpenseUpdate)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Shutdown stops the limiter cleanup goroutine and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to render template",
			"error", err,
			"template", name)
	}
}

func (s *Server) renderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to render template",
			"error", err,
			"template", name)
	}
}
