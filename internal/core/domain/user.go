package domain

import (
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const MinPasswordLength = 6

// --- ENTITÉ ---

type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity est ce que l'Auth Gate attache au contexte d'une requête.
// Username est la valeur inscrite dans Post.Username, Likes et Comments.
type Identity struct {
	UserID   string
	Username string
	Email    string
}

// --- FACTORY ---

// NewUser crée une instance valide. L'ID est généré ici, pas en base.
func NewUser(email, username, passwordHash string) (*User, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(strings.TrimSpace(username)) < 3 {
		return nil, ErrInvalidUsername
	}

	now := time.Now().UTC()
	return &User{
		ID:           uuid.NewString(),
		Email:        NormalizeEmail(email),
		Username:     strings.TrimSpace(username),
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (u *User) Identity() *Identity {
	return &Identity{UserID: u.ID, Username: u.Username, Email: u.Email}
}

// --- VALIDATEURS ---

func ValidateEmail(email string) error {
	if _, err := mail.ParseAddress(strings.TrimSpace(email)); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
