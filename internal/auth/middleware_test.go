package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jupiterclapton/socialfeed/internal/core/domain"
)

type staticValidator map[string]*domain.Identity

func (v staticValidator) ValidateToken(_ context.Context, token string) (*domain.Identity, error) {
	if id, ok := v[token]; ok {
		return id, nil
	}
	return nil, errors.New("unknown token")
}

func TestMiddleware(t *testing.T) {
	alice := &domain.Identity{UserID: "1", Username: "alice"}
	v := staticValidator{"good": alice}

	var seen *domain.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ForContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := Middleware(v)(next)

	tests := []struct {
		name     string
		header   string
		status   int
		identity *domain.Identity
	}{
		{"anonymous", "", http.StatusNoContent, nil},
		{"valid bearer", "Bearer good", http.StatusNoContent, alice},
		{"padded token", "Bearer  good ", http.StatusNoContent, alice},
		{"unknown token", "Bearer bad", http.StatusUnauthorized, nil},
		{"wrong scheme", "Token good", http.StatusUnauthorized, nil},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if seen != tt.identity {
				t.Fatalf("identity = %+v, want %+v", seen, tt.identity)
			}
			if tt.status == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
				t.Fatal("401 without WWW-Authenticate")
			}
		})
	}
}

func TestRequireUser(t *testing.T) {
	h := RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(WithIdentity(req.Context(), &domain.Identity{UserID: "1", Username: "a"}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated: %d", rec.Code)
	}
}
