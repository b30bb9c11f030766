// Package server exposes the conversion pipeline over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gnemet/SlideLens/internal/config"
	"github.com/gnemet/SlideLens/internal/history"
	"github.com/gnemet/SlideLens/internal/pipeline"
)

type Server struct {
	cfg     config.ApplicationConfig
	conv    pipeline.Converter
	history *history.Recorder
	log     *zap.Logger
}

func New(cfg config.ApplicationConfig, conv pipeline.Converter, hist *history.Recorder, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if hist == nil {
		hist = history.NewRecorder(nil, nil, log)
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 100
	}
	return &Server{cfg: cfg, conv: conv, history: hist, log: log}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Accept-Language", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(s.requestID, s.recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/models", s.handleModels)
	r.Get("/conversions", s.handleListConversions)

	r.Group(func(r chi.Router) {
		if s.cfg.RateLimit > 0 {
			r.Use(httprate.LimitByIP(s.cfg.RateLimit, time.Minute))
		}
		r.Post("/convert", s.handleConvert)
	})

	return r
}

type ctxKey struct{}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("handler panic",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
					zap.String("request_id", requestIDFrom(r.Context())),
				)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
