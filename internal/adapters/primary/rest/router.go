package rest

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/jupiterclapton/socialfeed/internal/auth"
	"github.com/jupiterclapton/socialfeed/internal/core/ports"
)

// Deps : tout ce que le routeur branche. Les champs optionnels peuvent rester nil.
type Deps struct {
	Feed     ports.FeedService
	Posts    ports.PostService
	Identity ports.IdentityService

	Uploads   http.Handler // fichiers /uploads/*
	PublicDir string       // images par défaut, servies à la racine

	Limiter        Limiter  // optionnel
	Metrics        *Metrics // optionnel
	CORSOrigins    []string
	MaxUploadBytes int64

	// Ready est appelé par /readyz (ping des dépendances)
	Ready func(ctx context.Context) error
}

func NewRouter(d Deps) http.Handler {
	h := NewHandler(d.Feed, d.Posts, d.Identity, d.MaxUploadBytes)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "baggage", "traceparent"},
		AllowCredentials: true,
	}).Handler)
	r.Use(auth.Middleware(d.Identity))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.Ready(ctx); err != nil {
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.register)
			r.Post("/login", h.login)
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", h.listPosts)
			r.Get("/{id}", h.getPost)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireUser)
				if d.Limiter != nil {
					r.Use(rateLimit(d.Limiter))
				}
				r.Post("/", h.createPost)
				r.Post("/{id}/comments", h.addComment)
				r.Put("/{id}/like", h.setLike)
				r.Post("/{id}/like", h.like)
				r.Delete("/{id}/like", h.unlike)
			})
		})
	})

	if d.Uploads != nil {
		r.Handle("/uploads/*", http.StripPrefix("/uploads", d.Uploads))
	}
	if d.PublicDir != "" {
		if st, err := os.Stat(d.PublicDir); err == nil && st.IsDir() {
			r.Handle("/*", http.FileServer(http.Dir(d.PublicDir)))
		}
	}

	return r
}
