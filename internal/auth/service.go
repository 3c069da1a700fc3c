package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/dialadrink/backend/pkg/auth"
	"github.com/dialadrink/backend/pkg/config"
	"github.com/dialadrink/backend/pkg/errors"
	"github.com/dialadrink/backend/pkg/logger"
	"github.com/dialadrink/backend/pkg/security"
)

// ErrInvalidCredentials is returned for a bad phone/password pair. The same
// error covers both cases so callers cannot enumerate accounts.
var ErrInvalidCredentials = errors.New(errors.CodeUnauthorized, "invalid phone or password")

// LoginResult is the issued session.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
}

// Service authenticates staff and issues access tokens.
type Service interface {
	Login(ctx context.Context, phone, password string) (*LoginResult, error)
}

type service struct {
	repo Repository
	jwt  config.JWTConfig
	logg *logger.Logger
}

// NewService wires the auth service.
func NewService(repo Repository, jwtCfg config.JWTConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("auth service requires a repository")
	}
	if logg == nil {
		return nil, fmt.Errorf("auth service requires a logger")
	}
	return &service{repo: repo, jwt: jwtCfg, logg: logg}, nil
}

func (s *service) Login(ctx context.Context, phone, password string) (*LoginResult, error) {
	user, err := s.repo.FindByPhone(ctx, phone)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "looking up account")
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	token, err := auth.MintAccessToken(s.jwt, now, auth.AccessTokenPayload{
		UserID: user.ID,
		Name:   user.Name,
		Role:   user.Role,
	})
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "minting access token")
	}

	ctx = s.logg.WithUserID(ctx, user.ID.String())
	s.logg.Info(ctx, "staff login")

	return &LoginResult{
		Token:     token,
		ExpiresAt: now.Add(s.jwt.AccessTokenTTL()),
		Name:      user.Name,
		Role:      user.Role,
	}, nil
}
