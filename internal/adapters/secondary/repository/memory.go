package repository

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/jupiterclapton/socialfeed/internal/core/domain"
	"github.com/jupiterclapton/socialfeed/internal/core/ports"
)

// MemoryPostRepo est un store en mémoire (APP_ENV=local sans Mongo, tests).
// Même contrat que MongoPostRepo, ids au format ObjectID.
type MemoryPostRepo struct {
	mu    sync.RWMutex
	posts []*domain.Post // ordre d'insertion
	byID  map[string]*domain.Post
}

func NewMemoryPostRepo() *MemoryPostRepo {
	return &MemoryPostRepo{byID: make(map[string]*domain.Post)}
}

var _ ports.PostRepository = (*MemoryPostRepo)(nil)

func (r *MemoryPostRepo) Save(ctx context.Context, post *domain.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	post.ID = bson.NewObjectID().Hex()
	stored := post.Clone()
	r.posts = append(r.posts, stored)
	r.byID[stored.ID] = stored
	return nil
}

func (r *MemoryPostRepo) FindByID(ctx context.Context, postID string) (*domain.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[postID]
	if !ok {
		return nil, domain.ErrPostNotFound
	}
	return p.Clone(), nil
}

func (r *MemoryPostRepo) List(ctx context.Context, offset, limit int) ([]*domain.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sorted := slices.Clone(r.posts)

	// Tri stable sur l'ordre d'insertion inversé : à date égale, le plus récent inséré d'abord
	slices.Reverse(sorted)
	slices.SortStableFunc(sorted, func(a, b *domain.Post) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	out := []*domain.Post{}
	if offset < 0 || offset >= len(sorted) || limit <= 0 {
		return out, nil
	}
	end := offset + min(limit, len(sorted)-offset)
	for _, p := range sorted[offset:end] {
		out = append(out, p.Clone())
	}
	return out, nil
}

func (r *MemoryPostRepo) AppendComment(ctx context.Context, postID string, c domain.Comment) (*domain.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[postID]
	if !ok {
		return nil, domain.ErrPostNotFound
	}
	p.Comments = append(p.Comments, c)
	p.UpdatedAt = time.Now().UTC()
	return p.Clone(), nil
}

func (r *MemoryPostRepo) SetLike(ctx context.Context, postID, username string, liked bool) (*domain.Post, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[postID]
	if !ok {
		return nil, false, domain.ErrPostNotFound
	}
	changed := p.SetLike(username, liked)
	p.UpdatedAt = time.Now().UTC()
	return p.Clone(), changed, nil
}

// MemoryUserRepo : pendant en mémoire de PostgresUserRepo.
type MemoryUserRepo struct {
	mu    sync.RWMutex
	users map[string]*domain.User // par ID
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{users: make(map[string]*domain.User)}
}

var _ ports.UserRepository = (*MemoryUserRepo)(nil)

func (r *MemoryUserRepo) Save(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email {
			return domain.ErrEmailAlreadyExists
		}
		if strings.EqualFold(u.Username, user.Username) {
			return domain.ErrUsernameAlreadyExists
		}
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *MemoryUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Email == email })
}

func (r *MemoryUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return strings.EqualFold(u.Username, username) })
}

func (r *MemoryUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.ID == id })
}

func (r *MemoryUserRepo) find(match func(*domain.User) bool) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}
