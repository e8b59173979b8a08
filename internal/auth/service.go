package auth

import (
	"context"
	"errors"
	"slices"

	"github.com/geocoder89/taskhub/internal/domain/user"
)

// ErrUnauthenticated is deliberately generic; it never says whether the
// signature, the user lookup or the revocation check failed.
var ErrUnauthenticated = errors.New("please authenticate")

// TokenStore is the slice of the user store the session service needs.
// It reads and writes the token list owned by the user record.
type TokenStore interface {
	GetByID(ctx context.Context, id string) (user.User, error)
	AddToken(ctx context.Context, userID, token string) error
	RemoveToken(ctx context.Context, userID, token string) error
	ClearTokens(ctx context.Context, userID string) error
}

// Service issues and validates session tokens against the per-user token list.
type Service struct {
	jwt   *Manager
	store TokenStore
}

func NewService(jwt *Manager, store TokenStore) *Service {
	return &Service{jwt: jwt, store: store}
}

// Issue signs a fresh token for userID and appends it to the user's live
// sessions. The raw string returned here is the only time the token leaves
// the service.
func (s *Service) Issue(ctx context.Context, userID string) (string, error) {
	raw, err := s.jwt.Sign(userID)

	if err != nil {
		return "", err
	}

	err = s.store.AddToken(ctx, userID, raw)

	if err != nil {
		return "", err
	}

	return raw, nil
}

// Validate checks the signature, resolves the subject to a live user and then
// requires the presented token to still be in that user's token list. A valid
// signature alone is not enough; that is what makes revocation work.
func (s *Service) Validate(ctx context.Context, raw string) (user.User, error) {
	claims, err := s.jwt.Parse(raw)

	if err != nil {
		return user.User{}, ErrUnauthenticated
	}

	u, err := s.store.GetByID(ctx, claims.UserID)

	if err != nil {
		return user.User{}, ErrUnauthenticated
	}

	if !slices.Contains(u.Tokens, raw) {
		return user.User{}, ErrUnauthenticated
	}

	return u, nil
}

// RevokeOne drops exactly the presented token. Idempotent if already gone.
func (s *Service) RevokeOne(ctx context.Context, userID, raw string) error {
	return s.store.RemoveToken(ctx, userID, raw)
}

// RevokeAll ends every session for the user at once.
func (s *Service) RevokeAll(ctx context.Context, userID string) error {
	return s.store.ClearTokens(ctx, userID)
}
