package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jupiterclapton/socialfeed/internal/core/domain"
	"github.com/jupiterclapton/socialfeed/internal/core/ports"
)

const generationKey = "feed:gen"

// DTO JSON du cache, indépendant du JSON de l'API.
type cachedComment struct {
	Username string `json:"u"`
	Text     string `json:"t"`
}

type cachedPost struct {
	ID        string          `json:"id"`
	Username  string          `json:"username"`
	Content   string          `json:"content"`
	Song      string          `json:"song,omitempty"`
	Image     string          `json:"image,omitempty"`
	Likes     []string        `json:"likes"`
	Comments  []cachedComment `json:"comments"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// RedisFeedCache met en cache les pages du feed.
// Les clés portent un numéro de génération : un INCR sur feed:gen invalide
// toutes les pages d'un coup, les anciennes expirent via leur TTL.
type RedisFeedCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisFeedCache(client *redis.Client, ttl time.Duration) *RedisFeedCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisFeedCache{client: client, ttl: ttl}
}

var _ ports.FeedCache = (*RedisFeedCache)(nil)

func pageKey(gen int64, p domain.Page) string {
	return fmt.Sprintf("feed:v%d:p%d:l%d", gen, p.Number, p.Limit)
}

func (c *RedisFeedCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisFeedCache) Get(ctx context.Context, page domain.Page) (ports.CachedPage, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return ports.CachedPage{}, fmt.Errorf("redis: read generation: %w", err)
	}

	data, err := c.client.Get(ctx, pageKey(gen, page)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ports.CachedPage{Generation: gen}, nil
	}
	if err != nil {
		return ports.CachedPage{}, fmt.Errorf("redis: get page: %w", err)
	}

	var dtos []cachedPost
	if err := json.Unmarshal(data, &dtos); err != nil {
		// Entrée corrompue : traitée comme un miss, elle sera réécrite
		return ports.CachedPage{Generation: gen}, nil
	}

	posts := make([]*domain.Post, 0, len(dtos))
	for _, d := range dtos {
		posts = append(posts, d.toDomain())
	}
	return ports.CachedPage{Posts: posts, Hit: true, Generation: gen}, nil
}

func (c *RedisFeedCache) Set(ctx context.Context, page domain.Page, generation int64, posts []*domain.Post) error {
	dtos := make([]cachedPost, 0, len(posts))
	for _, p := range posts {
		dtos = append(dtos, fromDomain(p))
	}
	data, err := json.Marshal(dtos)
	if err != nil {
		return fmt.Errorf("marshalling error: %w", err)
	}
	return c.client.Set(ctx, pageKey(generation, page), data, c.ttl).Err()
}

func (c *RedisFeedCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, generationKey).Err()
}

func fromDomain(p *domain.Post) cachedPost {
	d := cachedPost{
		ID:        p.ID,
		Username:  p.Username,
		Content:   p.Content,
		Song:      p.Song,
		Image:     p.Image,
		Likes:     p.Likes,
		Comments:  make([]cachedComment, len(p.Comments)),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	for i, c := range p.Comments {
		d.Comments[i] = cachedComment{Username: c.Username, Text: c.Text}
	}
	return d
}

func (d cachedPost) toDomain() *domain.Post {
	p := &domain.Post{
		ID:        d.ID,
		Username:  d.Username,
		Content:   d.Content,
		Song:      d.Song,
		Image:     d.Image,
		Likes:     d.Likes,
		Comments:  make([]domain.Comment, len(d.Comments)),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if p.Likes == nil {
		p.Likes = []string{}
	}
	for i, c := range d.Comments {
		p.Comments[i] = domain.Comment{Username: c.Username, Text: c.Text}
	}
	return p
}
