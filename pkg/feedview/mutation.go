package feedview

import (
	"context"
	"errors"
	"slices"

	"github.com/jupiterclapton/socialfeed/pkg/api"
	"github.com/jupiterclapton/socialfeed/pkg/client"
	"github.com/jupiterclapton/socialfeed/pkg/postrules"
)

var ErrUnknownPost = errors.New("feedview: post not in feed")

type MutationKind string

const (
	KindLike    MutationKind = "like"
	KindUnlike  MutationKind = "unlike"
	KindComment MutationKind = "comment"
)

// MutationStatus : Pending -> Confirmed | Failed. Pas d'autre transition.
type MutationStatus int

const (
	Pending MutationStatus = iota
	Confirmed
	Failed
)

func (s MutationStatus) String() string {
	switch s {
	case Confirmed:
		return "confirmed"
	case Failed:
		return "failed"
	default:
		return "pending"
	}
}

// Mutation est une action locale envoyée au serveur.
// Tant qu'elle est Pending, elle est rejouée par-dessus l'état confirmé ;
// un échec la retire, ce qui vaut rollback.
type Mutation struct {
	ID       uint64
	Kind     MutationKind
	PostID   string
	Username string
	Text     string
	Status   MutationStatus
	Err      error
}

type mutations struct {
	seq     uint64
	pending []*Mutation
	byID    map[uint64]*Mutation
}

func (m *mutations) init() { m.byID = make(map[uint64]*Mutation) }

func (m *mutations) add(kind MutationKind, postID, username, text string) *Mutation {
	m.seq++
	mut := &Mutation{ID: m.seq, Kind: kind, PostID: postID, Username: username, Text: text, Status: Pending}
	m.pending = append(m.pending, mut)
	m.byID[mut.ID] = mut
	return mut
}

func (m *mutations) settle(id uint64, err error) {
	mut, ok := m.byID[id]
	if !ok || mut.Status != Pending {
		return
	}
	if err != nil {
		mut.Status, mut.Err = Failed, err
	} else {
		mut.Status = Confirmed
	}
	m.pending = slices.DeleteFunc(m.pending, func(x *Mutation) bool { return x.ID == id })
}

// overlay applique les mutations en attente sur une copie des posts. Verrou requis.
func (m *mutations) overlay(posts []api.Post) []api.Post {
	out := make([]api.Post, len(posts))
	for i, p := range posts {
		out[i] = m.overlayOne(p)
	}
	return out
}

func (m *mutations) overlayOne(p api.Post) api.Post {
	p.Likes = slices.Clone(p.Likes)
	p.Comments = slices.Clone(p.Comments)
	if p.Likes == nil {
		p.Likes = []string{}
	}
	if p.Comments == nil {
		p.Comments = []api.Comment{}
	}
	for _, mut := range m.pending {
		if mut.PostID != p.ID {
			continue
		}
		switch mut.Kind {
		case KindLike:
			p.Likes = postrules.ApplyLike(p.Likes, mut.Username, true)
		case KindUnlike:
			p.Likes = postrules.ApplyLike(p.Likes, mut.Username, false)
		case KindComment:
			p.Comments = append(p.Comments, api.Comment{Username: mut.Username, Text: mut.Text})
		}
	}
	p.LikeCount = len(p.Likes)
	return p
}

// Mutation retourne l'état courant d'une mutation.
func (c *Controller) Mutation(id uint64) (Mutation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	mut, ok := c.byID[id]
	if !ok {
		return Mutation{}, false
	}
	return *mut, true
}

func (c *Controller) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// ToggleLike inverse le like de creds.Username sur le post, localement puis
// côté serveur. Bloque jusqu'à confirmation ou échec.
func (c *Controller) ToggleLike(ctx context.Context, creds client.Credentials, postID string) (Mutation, error) {
	if !creds.Valid() || creds.Username == "" {
		return Mutation{}, client.ErrNoCredentials
	}

	c.mu.Lock()
	idx := c.findPost(postID)
	if idx < 0 {
		c.mu.Unlock()
		return Mutation{}, ErrUnknownPost
	}
	current := c.overlayOne(c.posts[idx])
	liked := !slices.Contains(current.Likes, creds.Username)
	kind := KindUnlike
	if liked {
		kind = KindLike
	}
	mut := c.add(kind, postID, creds.Username, "")
	c.mu.Unlock()
	c.notify()

	res, err := c.api.SetLike(ctx, creds, postID, liked)

	c.mu.Lock()
	if err == nil {
		if i := c.findPost(postID); i >= 0 {
			c.posts[i].Likes = res.Likes
			c.posts[i].LikeCount = res.LikeCount
		}
	}
	c.settle(mut.ID, err)
	out := *mut
	c.mu.Unlock()
	c.notify()
	return out, err
}

// Comment ajoute un commentaire, affiché immédiatement en Pending.
func (c *Controller) Comment(ctx context.Context, creds client.Credentials, postID, text string) (Mutation, error) {
	if !creds.Valid() || creds.Username == "" {
		return Mutation{}, client.ErrNoCredentials
	}
	text, err := postrules.CommentText(text, 0)
	if err != nil {
		return Mutation{}, err
	}

	c.mu.Lock()
	if c.findPost(postID) < 0 {
		c.mu.Unlock()
		return Mutation{}, ErrUnknownPost
	}
	mut := c.add(KindComment, postID, creds.Username, text)
	c.mu.Unlock()
	c.notify()

	res, err := c.api.AddComment(ctx, creds, postID, text)

	c.mu.Lock()
	if err == nil {
		if i := c.findPost(postID); i >= 0 {
			c.posts[i].Comments = res.Comments
		}
	}
	c.settle(mut.ID, err)
	out := *mut
	c.mu.Unlock()
	c.notify()
	return out, err
}
