package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/meridian-sis/meridian-sis/internal/shared"
	"github.com/meridian-sis/meridian-sis/internal/users"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
	issuer           = "meridian-sis"
)

// Authenticator verifies account credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (users.User, error)
	Get(ctx context.Context, id uuid.UUID) (users.User, error)
}

// TokenPair is the issued access/refresh token bundle.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// Claims are the signed statements carried by both token kinds.
type Claims struct {
	SchoolID  uuid.UUID `json:"sid"`
	Email     string    `json:"email"`
	TokenType string    `json:"typ"`
	jwt.RegisteredClaims
}

// Service issues and verifies JWT token pairs. Token plumbing only; it knows
// nothing about menus or permissions.
type Service struct {
	users      Authenticator
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewService builds a Service instance.
func NewService(users Authenticator, secret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		users:      users,
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Login verifies credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, email, password string) (TokenPair, error) {
	u, err := s.users.Authenticate(ctx, email, password)
	if err != nil {
		return TokenPair{}, err
	}
	return s.issuePair(u)
}

// Refresh rotates a refresh token into a fresh pair. The account is
// re-loaded so a deactivation since issuance invalidates the rotation.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.parse(refreshToken, tokenTypeRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return TokenPair{}, shared.ErrUnauthorized
	}
	u, err := s.users.Get(ctx, userID)
	if err != nil || !u.IsActive {
		return TokenPair{}, shared.ErrUnauthorized
	}
	return s.issuePair(u)
}

// VerifyAccess parses an access token into the caller's identity.
func (s *Service) VerifyAccess(token string) (shared.Identity, error) {
	claims, err := s.parse(token, tokenTypeAccess)
	if err != nil {
		return shared.Identity{}, err
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return shared.Identity{}, shared.ErrUnauthorized
	}
	return shared.Identity{UserID: userID, SchoolID: claims.SchoolID, Email: claims.Email}, nil
}

func (s *Service) issuePair(u users.User) (TokenPair, error) {
	access, err := s.sign(u, tokenTypeAccess, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.sign(u, tokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

func (s *Service) sign(u users.User, tokenType string, ttl time.Duration) (string, error) {
	now := s.now().UTC()
	claims := Claims{
		SchoolID:  u.SchoolID,
		Email:     u.Email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Service) parse(token, wantType string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil || !parsed.Valid {
		return nil, shared.ErrUnauthorized
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.TokenType != wantType {
		return nil, shared.ErrUnauthorized
	}
	return claims, nil
}
