package ports

import (
	"context"
	"time"

	"github.com/jupiterclapton/socialfeed/internal/core/domain"
)

// --- PERSISTANCE ---

// PostRepository est le Post Record Store.
// Les mutations sont atomiques par document : pas de read-modify-write côté service.
type PostRepository interface {
	// Save attribue post.ID.
	Save(ctx context.Context, post *domain.Post) error
	FindByID(ctx context.Context, postID string) (*domain.Post, error)
	// List trie par createdAt décroissant (insertion décroissante à égalité).
	List(ctx context.Context, offset, limit int) ([]*domain.Post, error)
	AppendComment(ctx context.Context, postID string, c domain.Comment) (*domain.Post, error)
	// SetLike ajoute/retire username de l'ensemble et indique si l'état a changé.
	SetLike(ctx context.Context, postID, username string, liked bool) (*domain.Post, bool, error)
}

type UserRepository interface {
	Save(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// --- MEDIA ---

// MediaStorage stocke un upload et retourne une référence stable.
type MediaStorage interface {
	Stage(ctx context.Context, upload MediaUpload) (string, error)
	Remove(ctx context.Context, ref string) error
}

// --- CACHE ---

// CachedPage est le résultat d'une lecture de cache.
// Generation doit être repassée à Set : une page lue avant une invalidation
// n'est jamais écrite sous la génération suivante.
type CachedPage struct {
	Posts      []*domain.Post
	Hit        bool
	Generation int64
}

type FeedCache interface {
	Get(ctx context.Context, page domain.Page) (CachedPage, error)
	Set(ctx context.Context, page domain.Page, generation int64, posts []*domain.Post) error
	// Invalidate rend toutes les pages en cache inaccessibles.
	Invalidate(ctx context.Context) error
}

// --- MESSAGERIE (BROKER) ---

type EventPublisher interface {
	Publish(ctx context.Context, event domain.PostEvent) error
}

// --- SÉCURITÉ ---

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type TokenProvider interface {
	Generate(user *domain.User) (string, error)
	Validate(token string) (*domain.Identity, error)
	TTL() time.Duration
}
