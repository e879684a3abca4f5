// Package sessions manages the lifecycle of refresh credentials: at most one
// active credential per user, deleted when found expired or revoked.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/dbx"
	"github.com/dmitrijs2005/passvault/internal/logging"
	"github.com/dmitrijs2005/passvault/internal/server/models"
	"github.com/dmitrijs2005/passvault/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/passvault/internal/timex"
	"github.com/google/uuid"
)

const (
	// TokenBytes is the entropy of a refresh value; it is hex-encoded.
	TokenBytes = 32

	defaultMaxAttempts = 3
)

// Repositories vends a refresh token repository bound to a DBTX.
type Repositories interface {
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}

type Store struct {
	db          dbx.DBTX
	tx          dbx.Transactor
	repos       Repositories
	ttl         time.Duration
	now         timex.Clock
	maxAttempts int
	logger      logging.Logger
}

type Option func(*Store)

func WithClock(clock timex.Clock) Option {
	return func(s *Store) { s.now = clock }
}

// WithMaxAttempts bounds how many times Issue runs its transaction when it
// loses a race on the uniqueness constraint.
func WithMaxAttempts(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func NewStore(db dbx.DBTX, tx dbx.Transactor, repos Repositories, ttl time.Duration, logger logging.Logger, opts ...Option) *Store {
	s := &Store{
		db:          db,
		tx:          tx,
		repos:       repos,
		ttl:         ttl,
		now:         timex.SystemClock,
		maxAttempts: defaultMaxAttempts,
		logger:      logger.With("module", "sessions"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL is the refresh credential lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Issue replaces any credential of userID with a fresh one.
func (s *Store) Issue(ctx context.Context, userID string) (*models.RefreshToken, error) {
	for attempt := 1; ; attempt++ {
		token, err := s.issueOnce(ctx, userID)
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, common.ErrorAlreadyExists) || attempt >= s.maxAttempts {
			return nil, err
		}
		s.logger.Warn(ctx, "refresh token conflict, retrying", "user_id", userID, "attempt", attempt)
	}
}

func (s *Store) issueOnce(ctx context.Context, userID string) (*models.RefreshToken, error) {
	value, err := common.MakeRandHexString(TokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	now := s.now()
	token := &models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     value,
		Expires:   now.Add(s.ttl),
		CreatedAt: now,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.RefreshTokens(tx)
		if err := repo.DeleteByUser(ctx, userID); err != nil {
			return err
		}
		return repo.Create(ctx, token)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug(ctx, "refresh token issued", "user_id", userID, "token", Fingerprint(value))
	return token, nil
}

// Verify returns the stored credential for value. A revoked or expired
// credential is deleted before its error is returned.
func (s *Store) Verify(ctx context.Context, value string) (*models.RefreshToken, error) {
	repo := s.repos.RefreshTokens(s.db)

	token, err := repo.Find(ctx, value)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrTokenNotFound
		}
		return nil, err
	}

	var reason error
	switch {
	case token.Revoked:
		reason = common.ErrTokenRevoked
	case s.now().After(token.Expires):
		reason = common.ErrTokenExpired
	default:
		return token, nil
	}

	if err := repo.Delete(ctx, value); err != nil {
		s.logger.Warn(ctx, "failed to delete stale refresh token", "token", Fingerprint(value), "error", err)
	}
	return nil, reason
}

// RevokeAll marks the active credential of userID revoked. No credential is not an error.
func (s *Store) RevokeAll(ctx context.Context, userID string) error {
	n, err := s.repos.RefreshTokens(s.db).RevokeByUser(ctx, userID)
	if err != nil {
		return err
	}
	s.logger.Debug(ctx, "refresh tokens revoked", "user_id", userID, "count", n)
	return nil
}

// Fingerprint shortens a refresh value for logs.
func Fingerprint(value string) string {
	if len(value) <= 8 {
		return "****"
	}
	return value[:8] + "..."
}
