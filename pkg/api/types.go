// Package api holds the JSON contract shared by the REST server and its Go clients.
package api

import "time"

type Comment struct {
	Username string `json:"username"`
	Text     string `json:"text"`
}

// Post : image vaut null quand le post n'a pas de média.
type Post struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	Song      string    `json:"song,omitempty"`
	Image     *string   `json:"image"`
	Likes     []string  `json:"likes"`
	LikeCount int       `json:"likeCount"`
	Comments  []Comment `json:"comments"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=32"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type AuthResponse struct {
	Token     string `json:"token"`
	Username  string `json:"username"`
	User      User   `json:"user"`
	ExpiresIn int64  `json:"expiresIn"` // secondes
}

type CommentRequest struct {
	Text string `json:"text" validate:"required"`
}

type CommentsResponse struct {
	PostID   string    `json:"postId"`
	Comments []Comment `json:"comments"`
}

type LikeRequest struct {
	Liked *bool `json:"liked" validate:"required"`
}

type LikeResponse struct {
	PostID    string   `json:"postId"`
	Liked     bool     `json:"liked"`
	Likes     []string `json:"likes"`
	LikeCount int      `json:"likeCount"`
}

type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Codes d'erreur stables exposés aux clients.
const (
	CodeValidation      = "validation_error"
	CodeUnauthorized    = "unauthorized"
	CodeNotFound        = "not_found"
	CodeConflict        = "conflict"
	CodePayloadTooLarge = "payload_too_large"
	CodeRateLimited     = "rate_limited"
	CodeInternal        = "internal"
)
