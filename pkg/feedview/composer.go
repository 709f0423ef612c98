package feedview

import (
	"context"
	"errors"
	"sync"

	"github.com/jupiterclapton/socialfeed/pkg/api"
	"github.com/jupiterclapton/socialfeed/pkg/client"
	"github.com/jupiterclapton/socialfeed/pkg/postrules"
)

// Publisher est implémenté par *client.Client.
type Publisher interface {
	CreatePost(ctx context.Context, creds client.Credentials, d client.Draft, progress client.ProgressFunc) (*api.Post, error)
}

var ErrSubmitting = errors.New("feedview: a post is already being submitted")

// Composer est l'état du formulaire de création.
type Composer struct {
	pub  Publisher
	feed *Controller // optionnel : reçoit le post créé en tête

	mu         sync.Mutex
	submitting bool
	progress   int
	lastErr    error
}

func NewComposer(pub Publisher, feed *Controller) *Composer {
	return &Composer{pub: pub, feed: feed}
}

// Validate applique les mêmes règles que le serveur.
func (c *Composer) Validate(d client.Draft) error {
	return postrules.ValidateDraft(d.Content, d.Song, d.Image != nil)
}

// Remaining : caractères encore disponibles pour le contenu, espaces de bord exclus.
func Remaining(content string) int {
	return postrules.Remaining(content)
}

// Progress retourne le pourcentage envoyé (0..100) du submit en cours ou du dernier.
func (c *Composer) Progress() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

func (c *Composer) Submitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitting
}

func (c *Composer) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Submit valide puis envoie le brouillon. onProgress (optionnel) reçoit un
// pourcentage croissant. Un seul submit à la fois.
func (c *Composer) Submit(ctx context.Context, creds client.Credentials, d client.Draft, onProgress func(pct int)) (*api.Post, error) {
	if !creds.Valid() {
		return nil, client.ErrNoCredentials
	}
	if err := c.Validate(d); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return nil, ErrSubmitting
	}
	c.submitting, c.progress, c.lastErr = true, 0, nil
	c.mu.Unlock()

	post, err := c.pub.CreatePost(ctx, creds, d, func(sent, total int64) {
		pct := client.Percent(sent, total)
		c.mu.Lock()
		changed := pct > c.progress
		if changed {
			c.progress = pct
		}
		c.mu.Unlock()
		if changed && onProgress != nil {
			onProgress(pct)
		}
	})

	c.mu.Lock()
	c.submitting = false
	c.lastErr = err
	if err == nil {
		c.progress = 100
	}
	c.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if c.feed != nil {
		c.feed.Prepend(*post)
	}
	return post, nil
}
