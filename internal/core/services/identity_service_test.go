package services

import (
	"context"
	"errors"
	"testing"

	"github.com/jupiterclapton/socialfeed/internal/adapters/secondary/repository"
	"github.com/jupiterclapton/socialfeed/internal/core/domain"
	"github.com/jupiterclapton/socialfeed/internal/core/ports"
)

func newIdentity() *IdentityService {
	return NewIdentityService(repository.NewMemoryUserRepo(), plainHasher{}, fakeTokens{})
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newIdentity()
	ctx := context.Background()

	reg, err := svc.Register(ctx, ports.RegisterCmd{Email: "Alice@Example.com", Username: "alice", Password: "secret1"})
	if err != nil {
		t.Fatal(err)
	}
	if reg.AccessToken == "" || reg.User.Email != "alice@example.com" || reg.ExpiresIn <= 0 {
		t.Fatalf("register = %+v", reg)
	}
	if reg.User.PasswordHash == "secret1" {
		t.Fatal("password stored in clear")
	}

	login, err := svc.Login(ctx, ports.LoginCmd{Email: "ALICE@example.com", Password: "secret1"})
	if err != nil {
		t.Fatal(err)
	}
	if login.User.ID != reg.User.ID {
		t.Fatalf("login user = %s, want %s", login.User.ID, reg.User.ID)
	}

	id, err := svc.ValidateToken(ctx, login.AccessToken)
	if err != nil {
		t.Fatal(err)
	}
	if id.UserID != reg.User.ID || id.Username != "alice" {
		t.Fatalf("identity = %+v", id)
	}

	u, err := svc.GetUser(ctx, reg.User.ID)
	if err != nil || u.Username != "alice" {
		t.Fatalf("get user = %+v, %v", u, err)
	}
}

func TestRegisterRejects(t *testing.T) {
	svc := newIdentity()
	ctx := context.Background()
	if _, err := svc.Register(ctx, ports.RegisterCmd{Email: "a@x.io", Username: "alice", Password: "secret1"}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		cmd     ports.RegisterCmd
		wantErr error
	}{
		{"weak password", ports.RegisterCmd{Email: "b@x.io", Username: "bob", Password: "123"}, domain.ErrWeakPassword},
		{"bad email", ports.RegisterCmd{Email: "nope", Username: "bob", Password: "secret1"}, domain.ErrInvalidEmail},
		{"short username", ports.RegisterCmd{Email: "b@x.io", Username: "bo", Password: "secret1"}, domain.ErrInvalidUsername},
		{"email taken", ports.RegisterCmd{Email: "A@X.io", Username: "bob", Password: "secret1"}, domain.ErrEmailAlreadyExists},
		{"username taken", ports.RegisterCmd{Email: "b@x.io", Username: "ALICE", Password: "secret1"}, domain.ErrUsernameAlreadyExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Register(ctx, tt.cmd); !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc := newIdentity()
	ctx := context.Background()
	if _, err := svc.Register(ctx, ports.RegisterCmd{Email: "a@x.io", Username: "alice", Password: "secret1"}); err != nil {
		t.Fatal(err)
	}

	// Même erreur pour un email inconnu et un mauvais mot de passe
	if _, err := svc.Login(ctx, ports.LoginCmd{Email: "a@x.io", Password: "wrong!"}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("wrong password: err = %v", err)
	}
	if _, err := svc.Login(ctx, ports.LoginCmd{Email: "ghost@x.io", Password: "secret1"}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("unknown email: err = %v", err)
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	if _, err := newIdentity().ValidateToken(context.Background(), "garbage"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("err = %v", err)
	}
}
