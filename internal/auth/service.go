package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"

	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/auth/repo"
	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/identity"
	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/identity/entity"
	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/validation"
	"github.com/ovaphlow/pitchfork/service-task-tracker/pkg/utilities"
)

var (
	ErrInvalidCredentials = errors.New("invalid login or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token expired")
	ErrRevokedToken       = errors.New("token revoked")
)

// Service registers identities, checks passwords and issues and verifies
// access tokens.
type Service struct {
	cfg         Config
	identities  *identity.Service
	revocations *repo.RevocationRepo
	Clock       clockwork.Clock
}

// NewService builds an authenticator. revocations may be nil, which turns
// logout into a client-side-only operation.
func NewService(cfg Config, identities *identity.Service, revocations *repo.RevocationRepo) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &Service{cfg: cfg, identities: identities, revocations: revocations, Clock: clockwork.NewRealClock()}, nil
}

// Register creates the identity and returns a token for it.
func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (string, *Claims, error) {
	u, err := s.identities.Create(ctx, cmd.Identity, cmd.Password)
	if err != nil {
		if errors.Is(err, identity.ErrManagerNotFound) {
			return "", nil, validation.Field("managerId", "manager not found")
		}
		if errors.Is(err, identity.ErrManagerNotRoot) {
			return "", nil, validation.Field("managerId", "manager must not have a manager")
		}
		return "", nil, err
	}
	return s.Issue(u)
}

// Login checks a login/password pair. Unknown logins and wrong passwords
// fail with the same error.
func (s *Service) Login(ctx context.Context, login, password string) (string, *Claims, error) {
	if login == "" || password == "" {
		return "", nil, ErrInvalidCredentials
	}
	u, err := s.identities.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			s.identities.SpendVerify(password)
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("lookup identity: %w", err)
	}
	ok, err := s.identities.VerifyPassword(ctx, u, password)
	if err != nil {
		return "", nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return "", nil, ErrInvalidCredentials
	}
	return s.Issue(u)
}

// Issue signs a token for u.
func (s *Service) Issue(u *entity.Identity) (string, *Claims, error) {
	now := s.Clock.Now()
	claims := &Claims{
		UserID:     u.ID,
		Login:      u.Login,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		MiddleName: u.MiddleNameOrEmpty(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        utilities.NewKSUID(),
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TTL)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.cfg.Secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Verify checks signature and expiry and returns the embedded claims.
// It performs no I/O.
func (s *Service) Verify(token string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.Clock.Now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}
	claims := &Claims{}
	_, err := jwt.NewParser(opts...).ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Logout revokes the token described by c until it would have expired.
func (s *Service) Logout(ctx context.Context, c *Claims) error {
	if s.revocations == nil || c.ID == "" {
		return nil
	}
	return s.revocations.Save(ctx, c.ID, c.UserID, c.ExpiresAtTime().UTC(), s.Clock.Now().UTC().Truncate(time.Microsecond))
}

// IsRevoked reports whether the token with id jti was logged out.
func (s *Service) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if s.revocations == nil || jti == "" {
		return false, nil
	}
	return s.revocations.IsRevoked(ctx, jti)
}
