package domain

import "time"

type EventType string

const (
	EventPostCreated   EventType = "post.created"
	EventPostCommented EventType = "post.commented"
	EventPostLiked     EventType = "post.liked"
	EventPostUnliked   EventType = "post.unliked"
)

// PostEvent est publié après chaque mutation réussie.
// Author est l'auteur du post, Actor celui qui a déclenché l'action.
type PostEvent struct {
	Type   EventType
	PostID string
	Author string
	Actor  string
	At     time.Time
}
