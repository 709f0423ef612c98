// Package feedview holds the client-side state of the feed: paginated
// fetching, local search, optimistic likes/comments and the post composer.
// It has no UI dependency; a terminal or graphical front end renders Snapshot.
package feedview

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/jupiterclapton/socialfeed/pkg/api"
	"github.com/jupiterclapton/socialfeed/pkg/client"
	"github.com/jupiterclapton/socialfeed/pkg/postrules"
)

// FeedAPI est le sous-ensemble du client REST utilisé par le contrôleur.
type FeedAPI interface {
	ListPosts(ctx context.Context, page, limit int) ([]api.Post, error)
	SetLike(ctx context.Context, creds client.Credentials, postID string, liked bool) (*api.LikeResponse, error)
	AddComment(ctx context.Context, creds client.Credentials, postID, text string) (*api.CommentsResponse, error)
}

type State int

const (
	StateIdle State = iota
	StateLoading
	// StateDegraded : le dernier fetch a échoué, le feed affiché est incomplet.
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateDegraded:
		return "degraded"
	default:
		return "idle"
	}
}

// ErrStale est retourné par LoadNext quand le fetch a été annulé ou remplacé.
// Son résultat a été ignoré.
var ErrStale = errors.New("feedview: fetch superseded")

const DefaultPageSize = 6

type Option func(*Controller)

// WithPageSize fixe la taille de page, bornée au plafond du serveur :
// une page plus courte que demandé signifie la fin du feed.
func WithPageSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.limit = min(n, postrules.MaxPageLimit)
		}
	}
}

// WithFallback fournit des posts d'exemple affichés UNIQUEMENT en état dégradé
// et sans aucun post réel chargé. Snapshot.FromFallback le signale.
func WithFallback(posts []api.Post) Option {
	return func(c *Controller) { c.fallback = slices.Clone(posts) }
}

// WithOnChange est appelé (hors verrou) après chaque changement d'état.
func WithOnChange(fn func()) Option {
	return func(c *Controller) { c.onChange = fn }
}

// Controller gère le working set du feed. Sûr pour un usage concurrent.
type Controller struct {
	api      FeedAPI
	limit    int
	fallback []api.Post
	onChange func()

	mu       sync.Mutex
	posts    []api.Post // état confirmé par le serveur, ordre d'affichage
	nextPage int
	hasMore  bool
	state    State
	lastErr  error
	query    string

	// Garde contre les réponses périmées : seul le fetch de génération courante s'applique
	gen    uint64
	cancel context.CancelFunc

	mutations
}

func NewController(feed FeedAPI, opts ...Option) *Controller {
	c := &Controller{
		api:      feed,
		limit:    DefaultPageSize,
		nextPage: 1,
		hasMore:  true,
	}
	c.mutations.init()
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// --- PAGINATION ---

func (c *Controller) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasMore
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LoadNext charge la page suivante et l'ajoute au working set.
// Un fetch en cours est annulé et remplacé. Sans page restante, ne fait rien.
func (c *Controller) LoadNext(ctx context.Context) error {
	c.mu.Lock()
	if !c.hasMore {
		c.mu.Unlock()
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	gen, page := c.gen, c.nextPage
	fctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state = StateLoading
	c.mu.Unlock()
	c.notify()

	posts, err := c.api.ListPosts(fctx, page, c.limit)
	cancel()

	c.mu.Lock()
	if gen != c.gen {
		// Annulé ou remplacé entre-temps : on jette le résultat
		c.mu.Unlock()
		return ErrStale
	}
	c.cancel = nil
	if err != nil {
		c.state = StateDegraded
		c.lastErr = err
		c.hasMore = false
		c.mu.Unlock()
		c.notify()
		return err
	}

	c.appendPage(posts)
	c.nextPage++
	c.hasMore = len(posts) == c.limit
	c.state = StateIdle
	c.lastErr = nil
	c.mu.Unlock()
	c.notify()
	return nil
}

// appendPage ignore les posts déjà présents (décalage d'offset après une création).
func (c *Controller) appendPage(posts []api.Post) {
	seen := make(map[string]struct{}, len(c.posts))
	for _, p := range c.posts {
		seen[p.ID] = struct{}{}
	}
	for _, p := range posts {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		c.posts = append(c.posts, p)
	}
}

// Cancel abandonne le fetch en cours ; son résultat sera ignoré.
func (c *Controller) Cancel() {
	c.mu.Lock()
	if c.cancel == nil {
		c.mu.Unlock()
		return
	}
	c.cancel()
	c.cancel = nil
	c.gen++
	if c.state == StateLoading {
		c.state = StateIdle
	}
	c.mu.Unlock()
	c.notify()
}

// Retry relance la pagination après un état dégradé, sans vider le working set.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateDegraded {
		c.hasMore = true
		c.state = StateIdle
	}
	c.mu.Unlock()
	return c.LoadNext(ctx)
}

// Refresh repart de la page 1.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	c.posts = nil
	c.nextPage = 1
	c.hasMore = true
	c.state = StateIdle
	c.lastErr = nil
	c.mu.Unlock()
	return c.LoadNext(ctx)
}

// NearBottom : le bas du viewport est à moins de threshold du bas du contenu.
func NearBottom(scrollTop, viewportHeight, contentHeight, threshold float64) bool {
	return scrollTop+viewportHeight >= contentHeight-threshold
}

// MaybeLoadMore déclenche LoadNext si l'on est proche du bas, qu'aucun fetch
// n'est en cours et qu'il reste des pages. Retourne true si un fetch a eu lieu.
func (c *Controller) MaybeLoadMore(ctx context.Context, scrollTop, viewportHeight, contentHeight, threshold float64) (bool, error) {
	if !NearBottom(scrollTop, viewportHeight, contentHeight, threshold) {
		return false, nil
	}
	c.mu.Lock()
	ready := c.state != StateLoading && c.hasMore
	c.mu.Unlock()
	if !ready {
		return false, nil
	}
	return true, c.LoadNext(ctx)
}

// Prepend ajoute un post fraîchement créé en tête du feed.
func (c *Controller) Prepend(p api.Post) {
	c.mu.Lock()
	if slices.IndexFunc(c.posts, func(x api.Post) bool { return x.ID == p.ID }) < 0 {
		c.posts = append([]api.Post{p}, c.posts...)
	}
	c.mu.Unlock()
	c.notify()
}

// --- SEARCH ---

func (c *Controller) SetQuery(q string) {
	c.mu.Lock()
	c.query = q
	c.mu.Unlock()
	c.notify()
}

// --- SNAPSHOT ---

// Snapshot est ce qu'un front affiche.
type Snapshot struct {
	Posts        []api.Post // filtrés par Query, mutations en attente appliquées
	Total        int        // taille du working set avant filtrage
	State        State
	Err          error
	HasMore      bool
	Query        string
	FromFallback bool
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	working := c.overlay(c.posts)
	fromFallback := false
	if c.state == StateDegraded && len(working) == 0 && len(c.fallback) > 0 {
		working = slices.Clone(c.fallback)
		fromFallback = true
	}

	return Snapshot{
		Posts:        Filter(working, c.query),
		Total:        len(working),
		State:        c.state,
		Err:          c.lastErr,
		HasMore:      c.hasMore,
		Query:        c.query,
		FromFallback: fromFallback,
	}
}

// Visible est un raccourci pour Snapshot().Posts.
func (c *Controller) Visible() []api.Post { return c.Snapshot().Posts }

func (c *Controller) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}

// findPost retourne l'index du post dans le working set, -1 sinon. Verrou requis.
func (c *Controller) findPost(id string) int {
	return slices.IndexFunc(c.posts, func(p api.Post) bool { return p.ID == id })
}
