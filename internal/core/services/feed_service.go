package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jupiterclapton/socialfeed/internal/core/domain"
	"github.com/jupiterclapton/socialfeed/internal/core/ports"
)

type feedService struct {
	repo     ports.PostRepository
	cache    ports.FeedCache // optionnel
	maxLimit int
}

// NewFeedService construit le Feed Query Service. cache peut être nil.
func NewFeedService(repo ports.PostRepository, cache ports.FeedCache, maxLimit int) ports.FeedService {
	return &feedService{repo: repo, cache: cache, maxLimit: maxLimit}
}

func (s *feedService) ListPosts(ctx context.Context, page, limit int) ([]*domain.Post, error) {
	p := domain.NewPage(page, limit, s.maxLimit)

	// 1. Cache (best effort : une panne Redis ne doit pas casser le feed)
	var (
		cached   ports.CachedPage
		cacheErr error
	)
	if s.cache != nil {
		cached, cacheErr = s.cache.Get(ctx, p)
		switch {
		case cacheErr != nil:
			slog.WarnContext(ctx, "feed cache read failed", "error", cacheErr, "page", p.Number, "limit", p.Limit)
		case cached.Hit:
			return cached.Posts, nil
		}
	}

	// 2. Source of Truth
	posts, err := s.repo.List(ctx, p.Offset(), p.Limit)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	if posts == nil {
		posts = []*domain.Post{}
	}

	if s.cache != nil && cacheErr == nil {
		if err := s.cache.Set(ctx, p, cached.Generation, posts); err != nil {
			slog.WarnContext(ctx, "feed cache write failed", "error", err)
		}
	}
	return posts, nil
}
