package domain

import (
	"errors"

	"github.com/jupiterclapton/socialfeed/pkg/postrules"
)

// --- CLASSES D'ERREURS ---
// Les adapters primaires traduisent ces classes en codes de transport.
var (
	ErrValidation = postrules.ErrValidation
	ErrNotFound   = errors.New("not found")
)

// ValidationError est une erreur métier "input invalide".
// errors.Is(err, ErrValidation) est vrai pour toutes ses instances.
// Le type est partagé avec les clients Go (pkg/postrules).
type ValidationError = postrules.ValidationError

func NewValidationError(msg string) *ValidationError {
	return postrules.NewValidationError(msg)
}

type notFoundError struct {
	msg string
}

func (e *notFoundError) Error() string { return e.msg }

func (e *notFoundError) Is(target error) bool { return target == ErrNotFound }

// --- ERREURS DU DOMAINE ---
var (
	ErrPostNotFound = &notFoundError{"post not found"}
	ErrUserNotFound = &notFoundError{"user not found"}

	ErrEmptyPost      = postrules.ErrEmptyPost
	ErrContentTooLong = postrules.ErrContentTooLong
	ErrSongTooLong    = postrules.ErrSongTooLong
	ErrEmptyComment   = postrules.ErrEmptyComment
	ErrCommentTooLong = postrules.ErrCommentTooLong
	ErrInvalidMedia   = NewValidationError("media must be an image")
	ErrMediaTooLarge  = NewValidationError("media is too large")

	ErrInvalidEmail    = NewValidationError("invalid email format")
	ErrInvalidUsername = NewValidationError("username must be at least 3 characters")
	ErrWeakPassword    = NewValidationError("password must be at least 6 characters")

	ErrEmailAlreadyExists    = errors.New("email already exists")
	ErrUsernameAlreadyExists = errors.New("username already exists")

	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
)
