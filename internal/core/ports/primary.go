package ports

import (
	"context"
	"io"
	"time"

	"github.com/jupiterclapton/socialfeed/internal/core/domain"
)

// --- INPUTS (Command Pattern) ---

// MediaUpload est un fichier en cours d'upload, lu une seule fois.
type MediaUpload struct {
	Filename    string
	ContentType string
	Size        int64 // -1 si inconnue
	Body        io.Reader
}

type CreatePostCmd struct {
	Author  string
	Content string
	Song    string
	Media   *MediaUpload // nil = post texte seul
}

type RegisterCmd struct {
	Email    string
	Username string
	Password string
}

type LoginCmd struct {
	Email    string
	Password string
}

// --- OUTPUTS ---

type AuthResponse struct {
	User        *domain.User
	AccessToken string
	ExpiresIn   time.Duration
}

// --- PORTS PRIMAIRES (Driving) ---

type FeedService interface {
	// ListPosts retourne la page demandée, plus récent d'abord. Jamais nil.
	ListPosts(ctx context.Context, page, limit int) ([]*domain.Post, error)
}

type PostService interface {
	CreatePost(ctx context.Context, cmd CreatePostCmd) (*domain.Post, error)
	GetPost(ctx context.Context, postID string) (*domain.Post, error)
	AddComment(ctx context.Context, postID, author, text string) ([]domain.Comment, error)
	ToggleLike(ctx context.Context, postID, author string, liked bool) (*domain.LikeState, error)
}

type IdentityService interface {
	Register(ctx context.Context, cmd RegisterCmd) (*AuthResponse, error)
	Login(ctx context.Context, cmd LoginCmd) (*AuthResponse, error)
	ValidateToken(ctx context.Context, token string) (*domain.Identity, error)
	GetUser(ctx context.Context, userID string) (*domain.User, error)
}
