// Package postrules regroupe les règles de saisie partagées par le serveur
// et les clients Go : limites de longueur, brouillons, commentaires, likes.
package postrules

import (
	"errors"
	"slices"
	"strings"
	"unicode/utf8"
)

const (
	MaxContentLength        = 280
	MaxSongLength           = 200
	DefaultCommentMaxLength = 500

	// MaxPageLimit est le plafond par défaut de limit côté serveur.
	MaxPageLimit = 100
)

// ErrValidation : errors.Is est vrai pour toute ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError est une erreur "input invalide".
type ValidationError struct {
	msg string
}

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{msg: msg}
}

func (e *ValidationError) Error() string { return e.msg }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

var (
	ErrEmptyPost      = NewValidationError("post needs content or an image")
	ErrContentTooLong = NewValidationError("content is too long")
	ErrSongTooLong    = NewValidationError("song reference is too long")
	ErrEmptyComment   = NewValidationError("comment text is required")
	ErrCommentTooLong = NewValidationError("comment is too long")
)

// ValidateDraft applique les règles de création d'un post.
func ValidateDraft(content, song string, hasMedia bool) error {
	content = strings.TrimSpace(content)
	if content == "" && !hasMedia {
		return ErrEmptyPost
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return ErrContentTooLong
	}
	if utf8.RuneCountInString(strings.TrimSpace(song)) > MaxSongLength {
		return ErrSongTooLong
	}
	return nil
}

// Remaining : caractères encore disponibles, calculés sur le contenu tel qu'il sera enregistré.
func Remaining(content string) int {
	return MaxContentLength - utf8.RuneCountInString(strings.TrimSpace(content))
}

// CommentText retourne le texte normalisé. maxLen <= 0 prend la valeur par défaut.
func CommentText(text string, maxLen int) (string, error) {
	if maxLen <= 0 {
		maxLen = DefaultCommentMaxLength
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyComment
	}
	if utf8.RuneCountInString(text) > maxLen {
		return "", ErrCommentTooLong
	}
	return text, nil
}

// ApplyLike retourne une copie de likes avec username ajouté ou retiré.
func ApplyLike(likes []string, username string, liked bool) []string {
	out := make([]string, 0, len(likes)+1)
	for _, u := range likes {
		if u != username {
			out = append(out, u)
		}
	}
	if liked {
		if i := slices.Index(likes, username); i >= 0 {
			// déjà présent : on garde la position d'origine
			return slices.Insert(out, min(i, len(out)), username)
		}
		out = append(out, username)
	}
	return out
}
