package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/jupiterclapton/socialfeed/pkg/postrules"
)

const (
	MaxContentLength        = postrules.MaxContentLength
	MaxSongLength           = postrules.MaxSongLength
	DefaultCommentMaxLength = postrules.DefaultCommentMaxLength
)

type Comment struct {
	Username string
	Text     string
}

// Post est l'agrégat du feed.
// Likes est un ensemble d'usernames : pas de doublon, l'ordre n'a pas de sens.
type Post struct {
	ID        string
	Username  string
	Content   string
	Song      string
	Image     string // référence retournée par le MediaStorage, "" si absente
	Likes     []string
	Comments  []Comment
	CreatedAt time.Time
	UpdatedAt time.Time
}

// --- FACTORY ---

// NewPost valide un brouillon et prépare l'agrégat.
// L'ID est attribué par le store au moment du Save.
func NewPost(author, content, song string, hasMedia bool) (*Post, error) {
	content = strings.TrimSpace(content)
	song = strings.TrimSpace(song)

	if err := ValidateDraft(content, song, hasMedia); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Post{
		Username:  author,
		Content:   content,
		Song:      song,
		Likes:     []string{},
		Comments:  []Comment{},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ValidateDraft applique les règles de création, côté serveur comme côté composer.
func ValidateDraft(content, song string, hasMedia bool) error {
	return postrules.ValidateDraft(content, song, hasMedia)
}

// ValidateMedia vérifie le type et la taille d'un upload. size < 0 = inconnue.
func ValidateMedia(contentType string, size, maxBytes int64) error {
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return ErrInvalidMedia
	}
	if maxBytes > 0 && size > maxBytes {
		return ErrMediaTooLarge
	}
	return nil
}

// NewComment valide un commentaire. maxLen <= 0 prend la valeur par défaut.
func NewComment(author, text string, maxLen int) (Comment, error) {
	text, err := postrules.CommentText(text, maxLen)
	if err != nil {
		return Comment{}, err
	}
	return Comment{Username: author, Text: text}, nil
}

// --- COMPORTEMENTS ---

func (p *Post) LikeCount() int { return len(p.Likes) }

func (p *Post) HasLiked(username string) bool {
	return slices.Contains(p.Likes, username)
}

// SetLike applique la sémantique d'ensemble et indique si l'état a changé.
func (p *Post) SetLike(username string, liked bool) bool {
	changed := p.HasLiked(username) != liked
	p.Likes = ApplyLike(p.Likes, username, liked)
	return changed
}

// ApplyLike retourne une copie de likes avec username ajouté ou retiré.
func ApplyLike(likes []string, username string, liked bool) []string {
	return postrules.ApplyLike(likes, username, liked)
}

// Clone retourne une copie profonde (les slices ne sont pas partagés).
func (p *Post) Clone() *Post {
	c := *p
	c.Likes = slices.Clone(p.Likes)
	c.Comments = slices.Clone(p.Comments)
	if c.Likes == nil {
		c.Likes = []string{}
	}
	if c.Comments == nil {
		c.Comments = []Comment{}
	}
	return &c
}

// LikeState est le résultat d'un ToggleLike.
type LikeState struct {
	PostID  string
	Liked   bool
	Likes   []string
	Changed bool
}

func (s *LikeState) Count() int { return len(s.Likes) }
