package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jupiterclapton/socialfeed/internal/core/domain"
	"github.com/jupiterclapton/socialfeed/internal/core/ports"
)

// --- MEDIA ---

type fakeMedia struct {
	mu      sync.Mutex
	objects map[string][]byte
	removed []string
	err     error
}

func newFakeMedia() *fakeMedia { return &fakeMedia{objects: map[string][]byte{}} }

func (m *fakeMedia) Stage(ctx context.Context, up ports.MediaUpload) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	data, err := io.ReadAll(up.Body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ref := fmt.Sprintf("%d-%s", len(m.objects)+1, up.Filename)
	m.objects[ref] = data
	return ref, nil
}

func (m *fakeMedia) Remove(ctx context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, ref)
	m.removed = append(m.removed, ref)
	return nil
}

// --- CACHE ---

type fakeCache struct {
	mu            sync.Mutex
	gen           int64
	pages         map[string][]*domain.Post
	gets, sets    int
	invalidations int
	getErr        error
}

func newFakeCache() *fakeCache { return &fakeCache{pages: map[string][]*domain.Post{}} }

func (c *fakeCache) key(gen int64, p domain.Page) string {
	return fmt.Sprintf("%d:%d:%d", gen, p.Number, p.Limit)
}

func (c *fakeCache) Get(ctx context.Context, p domain.Page) (ports.CachedPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.getErr != nil {
		return ports.CachedPage{}, c.getErr
	}
	posts, ok := c.pages[c.key(c.gen, p)]
	return ports.CachedPage{Posts: posts, Hit: ok, Generation: c.gen}, nil
}

func (c *fakeCache) Set(ctx context.Context, p domain.Page, gen int64, posts []*domain.Post) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.pages[c.key(gen, p)] = posts
	return nil
}

func (c *fakeCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.invalidations++
	return nil
}

// --- EVENTS ---

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.PostEvent
	err    error
}

func (p *fakePublisher) Publish(ctx context.Context, ev domain.PostEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *fakePublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

// --- SECURITY ---

// plainHasher préfixe le mot de passe : suffisant pour tester le flux.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "plain$" + password, nil }

func (plainHasher) Compare(hash, password string) error {
	if hash != "plain$"+password {
		return errors.New("mismatch")
	}
	return nil
}

type fakeTokens struct{}

func (fakeTokens) Generate(u *domain.User) (string, error) {
	return "tok:" + u.ID + ":" + u.Username, nil
}

func (fakeTokens) Validate(token string) (*domain.Identity, error) {
	var id, name string
	if _, err := fmt.Sscanf(token, "tok:%s", &id); err != nil {
		return nil, errors.New("malformed")
	}
	for i := range id {
		if id[i] == ':' {
			id, name = id[:i], id[i+1:]
			break
		}
	}
	return &domain.Identity{UserID: id, Username: name}, nil
}

func (fakeTokens) TTL() time.Duration { return time.Hour }

// --- REPOSITORY ---

// failingPostRepo fait échouer Save ou List.
type failingPostRepo struct {
	ports.PostRepository
	saveErr error
	listErr error
}

func (r failingPostRepo) Save(ctx context.Context, p *domain.Post) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	return r.PostRepository.Save(ctx, p)
}

func (r failingPostRepo) List(ctx context.Context, offset, limit int) ([]*domain.Post, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.PostRepository.List(ctx, offset, limit)
}
