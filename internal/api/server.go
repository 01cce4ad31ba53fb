// Package api serves the preprocessor over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/mdbook-jinja/internal/book"
	"github.com/dgallion1/mdbook-jinja/internal/config"
)

// Preprocessor is what the server needs from pipeline.Preprocessor. The
// server passes it untrusted templates, so it should be confined.
type Preprocessor interface {
	Run(ctx context.Context, pctx *book.Context, b *book.Book) (*book.Book, error)
	RenderString(root, source string, vars map[string]any) (string, error)
}

// Server is the HTTP front end for the preprocessor.
type Server struct {
	router   chi.Router
	pre      Preprocessor
	log      *slog.Logger
	settings config.Settings
}

// NewServer creates and configures the HTTP server.
func NewServer(pre Preprocessor, log *slog.Logger, settings config.Settings) *Server {
	s := &Server{
		pre:      pre,
		log:      log,
		settings: settings,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.settings.APIKey))
		r.Use(LimitBody(s.settings.MaxBodyBytes))

		r.Post("/api/preprocess", s.handlePreprocess)
		r.Post("/api/render", s.handleRender)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
