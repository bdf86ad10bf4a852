// Package api exposes the directory service over HTTP.
//
// Every /directories route requires a bearer JWT whose username claim names
// the caller. Service errors are mapped to statuses and returned as
// {"error", "message"} JSON bodies.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/jacentio/directories/directory"
)

// Options configures the HTTP server.
type Options struct {
	// CORSOrigins lists the allowed origins. Empty allows any origin.
	CORSOrigins []string

	// RateLimitPerMinute caps requests per client IP. Zero disables it.
	RateLimitPerMinute int

	// ConflictRetries is how many times an operation whose transaction was
	// cancelled by a concurrent write is retried.
	ConflictRetries uint64

	// RetryBase is the first backoff delay between retries.
	RetryBase time.Duration
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		RateLimitPerMinute: 120,
		ConflictRetries:    3,
		RetryBase:          25 * time.Millisecond,
	}
}

// Server serves the directory API.
type Server struct {
	directories *directory.Service
	auth        *Authenticator
	opts        Options
	logger      *slog.Logger
}

// NewServer creates a Server.
func NewServer(svc *directory.Service, auth *Authenticator, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = DefaultOptions().RetryBase
	}
	return &Server{
		directories: svc,
		auth:        auth,
		opts:        opts,
		logger:      logger,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	origins := s.opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	if s.opts.RateLimitPerMinute > 0 {
		r.Use(httprate.LimitByIP(s.opts.RateLimitPerMinute, time.Minute))
	}

	r.Get("/health", s.health)

	r.Route("/directories", func(r chi.Router) {
		r.Use(s.auth.RequireAuth)

		r.Get("/", s.listDirectories)
		r.Post("/", s.createDirectory)
		r.Put("/items/move", s.moveItems)
		r.Get("/{owner}/{id}", s.getDirectory)
		r.Put("/{id}", s.updateDirectory)
		r.Delete("/{id}", s.deleteDirectory)
		r.Put("/{id}/items", s.addItem)
		r.Delete("/{id}/items/{itemId}", s.removeItem)
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"requestId", middleware.GetReqID(r.Context()),
		)
	})
}

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, healthResponse{
		Status:  "ok",
		Message: "Directories API is running",
	}, http.StatusOK)
}
