package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jupiterclapton/socialfeed/internal/core/domain"
	"github.com/jupiterclapton/socialfeed/internal/core/ports"
)

// IdentityService implémente ports.IdentityService.
type IdentityService struct {
	repo          ports.UserRepository
	hasher        ports.PasswordHasher
	tokenProvider ports.TokenProvider
}

func NewIdentityService(repo ports.UserRepository, hasher ports.PasswordHasher, token ports.TokenProvider) *IdentityService {
	return &IdentityService{repo: repo, hasher: hasher, tokenProvider: token}
}

func (s *IdentityService) Register(ctx context.Context, cmd ports.RegisterCmd) (*ports.AuthResponse, error) {
	// 1. Validation des invariants avant le hachage (coûteux)
	if err := domain.ValidatePassword(cmd.Password); err != nil {
		return nil, err
	}
	if err := domain.ValidateEmail(cmd.Email); err != nil {
		return nil, err
	}

	// 2. Fail Fast sur l'unicité. La contrainte UNIQUE en base reste la vraie garantie.
	if _, err := s.repo.GetByEmail(ctx, domain.NormalizeEmail(cmd.Email)); err == nil {
		return nil, domain.ErrEmailAlreadyExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if _, err := s.repo.GetByUsername(ctx, cmd.Username); err == nil {
		return nil, domain.ErrUsernameAlreadyExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("lookup username: %w", err)
	}

	hashedPassword, err := s.hasher.Hash(cmd.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing failed: %w", err)
	}

	user, err := domain.NewUser(cmd.Email, cmd.Username, hashedPassword)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("repository save failed: %w", err)
	}

	return s.issue(user)
}

func (s *IdentityService) Login(ctx context.Context, cmd ports.LoginCmd) (*ports.AuthResponse, error) {
	user, err := s.repo.GetByEmail(ctx, domain.NormalizeEmail(cmd.Email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// On ne dit pas si c'est l'email ou le mot de passe qui est faux
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, cmd.Password); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return s.issue(user)
}

func (s *IdentityService) ValidateToken(ctx context.Context, token string) (*domain.Identity, error) {
	id, err := s.tokenProvider.Validate(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	return id, nil
}

func (s *IdentityService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.GetByID(ctx, userID)
}

func (s *IdentityService) issue(user *domain.User) (*ports.AuthResponse, error) {
	token, err := s.tokenProvider.Generate(user)
	if err != nil {
		return nil, fmt.Errorf("token generation failed: %w", err)
	}
	return &ports.AuthResponse{
		User:        user,
		AccessToken: token,
		ExpiresIn:   s.tokenProvider.TTL(),
	}, nil
}
