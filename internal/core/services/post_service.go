package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jupiterclapton/socialfeed/internal/core/domain"
	"github.com/jupiterclapton/socialfeed/internal/core/ports"
)

// Limits regroupe les bornes configurables des mutations.
type Limits struct {
	CommentMaxLength int
	MaxUploadBytes   int64
}

type postService struct {
	repo      ports.PostRepository
	media     ports.MediaStorage
	publisher ports.EventPublisher
	cache     ports.FeedCache // optionnel
	limits    Limits
}

func NewPostService(
	repo ports.PostRepository,
	media ports.MediaStorage,
	pub ports.EventPublisher,
	cache ports.FeedCache,
	limits Limits,
) ports.PostService {
	return &postService{repo: repo, media: media, publisher: pub, cache: cache, limits: limits}
}

func (s *postService) CreatePost(ctx context.Context, cmd ports.CreatePostCmd) (*domain.Post, error) {
	if cmd.Author == "" {
		return nil, domain.ErrUnauthenticated
	}

	// 1. Validation du brouillon AVANT de toucher au stockage
	post, err := domain.NewPost(cmd.Author, cmd.Content, cmd.Song, cmd.Media != nil)
	if err != nil {
		return nil, err
	}

	// 2. Staging du média : on ne persiste que la référence
	if cmd.Media != nil {
		if err := domain.ValidateMedia(cmd.Media.ContentType, cmd.Media.Size, s.limits.MaxUploadBytes); err != nil {
			return nil, err
		}
		ref, err := s.media.Stage(ctx, *cmd.Media)
		if err != nil {
			return nil, fmt.Errorf("stage media: %w", err)
		}
		post.Image = ref
	}

	// 3. Sauvegarde DB (Source of Truth)
	if err := s.repo.Save(ctx, post); err != nil {
		if post.Image != "" {
			if rmErr := s.media.Remove(ctx, post.Image); rmErr != nil {
				slog.WarnContext(ctx, "orphan media not removed", "ref", post.Image, "error", rmErr)
			}
		}
		return nil, fmt.Errorf("save post: %w", err)
	}

	s.afterMutation(ctx, domain.PostEvent{
		Type:   domain.EventPostCreated,
		PostID: post.ID,
		Author: post.Username,
		Actor:  post.Username,
		At:     post.CreatedAt,
	})
	return post, nil
}

func (s *postService) GetPost(ctx context.Context, postID string) (*domain.Post, error) {
	return s.repo.FindByID(ctx, postID)
}

func (s *postService) AddComment(ctx context.Context, postID, author, text string) ([]domain.Comment, error) {
	if author == "" {
		return nil, domain.ErrUnauthenticated
	}
	c, err := domain.NewComment(author, text, s.limits.CommentMaxLength)
	if err != nil {
		return nil, err
	}

	post, err := s.repo.AppendComment(ctx, postID, c)
	if err != nil {
		return nil, err
	}

	s.afterMutation(ctx, domain.PostEvent{
		Type:   domain.EventPostCommented,
		PostID: post.ID,
		Author: post.Username,
		Actor:  author,
		At:     time.Now().UTC(),
	})
	return post.Comments, nil
}

// ToggleLike fixe l'état "author aime postID" à liked. Rejouer la même requête ne change rien.
func (s *postService) ToggleLike(ctx context.Context, postID, author string, liked bool) (*domain.LikeState, error) {
	if author == "" {
		return nil, domain.ErrUnauthenticated
	}

	post, changed, err := s.repo.SetLike(ctx, postID, author, liked)
	if err != nil {
		return nil, err
	}

	state := &domain.LikeState{
		PostID:  post.ID,
		Liked:   liked,
		Likes:   post.Likes,
		Changed: changed,
	}

	// Pas d'event ni d'invalidation si rien n'a bougé
	if changed {
		evType := domain.EventPostLiked
		if !liked {
			evType = domain.EventPostUnliked
		}
		s.afterMutation(ctx, domain.PostEvent{
			Type:   evType,
			PostID: post.ID,
			Author: post.Username,
			Actor:  author,
			At:     time.Now().UTC(),
		})
	}
	return state, nil
}

// afterMutation : invalidation du cache + publication. La donnée est déjà sauvée,
// un échec ici est loggé mais ne fait pas échouer la requête utilisateur.
func (s *postService) afterMutation(ctx context.Context, ev domain.PostEvent) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			slog.WarnContext(ctx, "feed cache invalidation failed", "error", err)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, ev); err != nil {
			slog.WarnContext(ctx, "event publish failed", "type", ev.Type, "post_id", ev.PostID, "error", err)
		}
	}
}
