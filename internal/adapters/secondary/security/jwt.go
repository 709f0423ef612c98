package security

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jupiterclapton/socialfeed/internal/core/domain"
	"github.com/jupiterclapton/socialfeed/internal/core/ports"
)

const issuer = "socialfeed"

// UserClaims : l'Auth Gate n'a besoin que de l'identité portée par le token,
// sans aller-retour en base.
type UserClaims struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// JWTProvider signe en HS256 (secret partagé) ou RS256 (paire de clés).
type JWTProvider struct {
	method  jwt.SigningMethod
	signKey any
	verKey  any
	ttl     time.Duration
}

func NewHMACProvider(secret []byte, ttl time.Duration) (*JWTProvider, error) {
	if len(secret) < 16 {
		return nil, errors.New("jwt: secret must be at least 16 bytes")
	}
	return &JWTProvider{method: jwt.SigningMethodHS256, signKey: secret, verKey: secret, ttl: orDefault(ttl)}, nil
}

// NewRSAProvider charge les clés RSA depuis du PEM.
func NewRSAProvider(privateKeyPEM, publicKeyPEM []byte, ttl time.Duration) (*JWTProvider, error) {
	privKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	var pubKey *rsa.PublicKey
	if len(publicKeyPEM) > 0 {
		if pubKey, err = jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM); err != nil {
			return nil, fmt.Errorf("failed to parse public key: %w", err)
		}
	} else {
		pubKey = &privKey.PublicKey
	}
	return &JWTProvider{method: jwt.SigningMethodRS256, signKey: privKey, verKey: pubKey, ttl: orDefault(ttl)}, nil
}

var _ ports.TokenProvider = (*JWTProvider)(nil)

func orDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 24 * time.Hour
	}
	return ttl
}

func (j *JWTProvider) TTL() time.Duration { return j.ttl }

func (j *JWTProvider) Generate(user *domain.User) (string, error) {
	now := time.Now()
	claims := UserClaims{
		UserID:   user.ID,
		Email:    user.Email,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   user.ID,
		},
	}
	return jwt.NewWithClaims(j.method, claims).SignedString(j.signKey)
}

// Validate vérifie signature, algorithme et expiration.
func (j *JWTProvider) Validate(tokenString string) (*domain.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(t *jwt.Token) (any, error) {
		// L'algorithme vient du header : on refuse tout ce qui n'est pas celui configuré
		if t.Method.Alg() != j.method.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return j.verKey, nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid || claims.Subject == "" || claims.Username == "" {
		return nil, errors.New("invalid token claims")
	}
	return &domain.Identity{UserID: claims.Subject, Username: claims.Username, Email: claims.Email}, nil
}
