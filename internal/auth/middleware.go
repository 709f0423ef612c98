package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jupiterclapton/socialfeed/internal/core/domain"
)

// Clé privée pour le contexte (évite les collisions)
type contextKey struct{ name string }

var identityCtxKey = &contextKey{"identity"}

// TokenValidator est implémenté par le service d'identité.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*domain.Identity, error)
}

// Middleware décode le header Authorization et attache l'identité au contexte.
// Sans header, la requête passe anonyme (lecture du feed, login) ; un header
// présent mais invalide est rejeté en 401.
func Middleware(v TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			tokenStr, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(tokenStr) == "" {
				unauthorized(w, "invalid token format")
				return
			}

			id, err := v.ValidateToken(r.Context(), strings.TrimSpace(tokenStr))
			if err != nil {
				slog.DebugContext(r.Context(), "token rejected", "error", err)
				unauthorized(w, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireUser bloque les requêtes anonymes. À chaîner après Middleware.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ForContext(r.Context()) == nil {
			unauthorized(w, domain.ErrUnauthenticated.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithIdentity(ctx context.Context, id *domain.Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, id)
}

// ForContext retourne l'identité authentifiée, nil si anonyme.
func ForContext(ctx context.Context) *domain.Identity {
	id, _ := ctx.Value(identityCtxKey).(*domain.Identity)
	return id
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="socialfeed"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg, "code": "unauthorized"})
}
