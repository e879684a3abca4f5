// Package services contains server-side business logic. AuthService handles
// registration, login, access-token refresh, logout and remote validation.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/logging"
	"github.com/dmitrijs2005/passvault/internal/server/auth"
	"github.com/dmitrijs2005/passvault/internal/server/models"
	"github.com/dmitrijs2005/passvault/internal/server/repositories/users"
	"github.com/dmitrijs2005/passvault/internal/server/sessions"
	"golang.org/x/crypto/bcrypt"
)

const (
	MessageTokenMissing = "Token is missing"
	MessageTokenInvalid = "Token is invalid or expired"
)

// TokenCodec mints and verifies access tokens.
type TokenCodec interface {
	Mint(p auth.Principal) (string, error)
	Verify(token string) (auth.Principal, error)
	TTL() time.Duration
}

// SessionStore manages refresh credentials.
type SessionStore interface {
	Issue(ctx context.Context, userID string) (*models.RefreshToken, error)
	Verify(ctx context.Context, value string) (*models.RefreshToken, error)
	RevokeAll(ctx context.Context, userID string) error
}

// TokenResponse is returned by register, login and refresh.
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
	Username     string `json:"username"`
}

// ValidationResult is the outcome of Validate. It is a value, never an error,
// because it crosses a network boundary.
type ValidationResult struct {
	Valid       bool     `json:"valid"`
	Username    string   `json:"username,omitempty"`
	PrincipalID string   `json:"principalId,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Message     string   `json:"message,omitempty"`
}

// TokenRefreshError reports a rejected refresh value. Reason is for logs only.
type TokenRefreshError struct {
	Token  string
	Reason error
}

func (e *TokenRefreshError) Error() string {
	return "refresh token is invalid or expired"
}

func (e *TokenRefreshError) Unwrap() error {
	return e.Reason
}

type AuthService struct {
	users      users.Repository
	sessions   SessionStore
	codec      TokenCodec
	logger     logging.Logger
	bcryptCost int
	dummyHash  []byte
}

type AuthOption func(*AuthService)

// WithBcryptCost overrides bcrypt.DefaultCost.
func WithBcryptCost(cost int) AuthOption {
	return func(s *AuthService) { s.bcryptCost = cost }
}

func NewAuthService(u users.Repository, ss SessionStore, codec TokenCodec, logger logging.Logger, opts ...AuthOption) (*AuthService, error) {
	s := &AuthService{
		users:      u,
		sessions:   ss,
		codec:      codec,
		logger:     logger.With("module", "auth"),
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}

	// compared against when the username is unknown, so both paths cost the same
	hash, err := bcrypt.GenerateFromPassword([]byte("passvault-dummy-password"), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("init password hasher: %w", err)
	}
	s.dummyHash = hash
	return s, nil
}

// Register creates a user with the default role and logs them in.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*TokenResponse, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", common.ErrorValidation)
	}

	taken, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return nil, fmt.Errorf("%w: username is already taken", common.ErrorAlreadyExists)
	}
	taken, err = s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, fmt.Errorf("%w: email is already in use", common.ErrorAlreadyExists)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}

	user, err := s.users.Create(ctx, &models.User{
		UserName:     username,
		Email:        email,
		PasswordHash: hash,
		Roles:        []string{common.DefaultRole},
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, fmt.Errorf("%w: username or email is already in use", common.ErrorAlreadyExists)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID, "username", user.UserName)
	return s.issueTokens(ctx, user)
}

// Login checks the credentials and returns a fresh token pair. Any credential
// mismatch is common.ErrorUnauthorized.
func (s *AuthService) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	user, err := s.users.GetUserByLogin(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			s.logger.Info(ctx, "login failed", "username", username, "reason", "unknown user")
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		s.logger.Info(ctx, "login failed", "username", username, "reason", "bad password")
		return nil, common.ErrorUnauthorized
	}

	return s.issueTokens(ctx, user)
}

// Refresh mints a new access token for a valid refresh value. The refresh
// value itself is returned unchanged.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	stored, err := s.sessions.Verify(ctx, refreshToken)
	if err != nil {
		s.logger.Info(ctx, "refresh rejected", "token", sessions.Fingerprint(refreshToken), "reason", err)
		return nil, &TokenRefreshError{Token: refreshToken, Reason: err}
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		s.logger.Warn(ctx, "refresh for missing user", "user_id", stored.UserID, "error", err)
		return nil, &TokenRefreshError{Token: refreshToken, Reason: err}
	}

	access, err := s.codec.Mint(principalOf(user))
	if err != nil {
		return nil, fmt.Errorf("mint access token: %w", err)
	}

	return s.envelope(access, stored.Token, user.UserName), nil
}

// Logout revokes the refresh credential of userID.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}
	if err := s.sessions.RevokeAll(ctx, userID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	s.logger.Info(ctx, "user logged out", "user_id", userID)
	return nil
}

// Validate checks a raw Authorization header value.
func (s *AuthService) Validate(ctx context.Context, header string) ValidationResult {
	if auth.StripBearer(header) == "" {
		return ValidationResult{Valid: false, Message: MessageTokenMissing}
	}

	p, err := s.codec.Verify(header)
	if err != nil {
		s.logger.Debug(ctx, "token rejected", "reason", err)
		return ValidationResult{Valid: false, Message: MessageTokenInvalid}
	}

	return ValidationResult{
		Valid:       true,
		Username:    p.Username,
		PrincipalID: p.ID,
		Roles:       p.Roles,
	}
}

// Principal verifies an access token, for endpoints that act on the caller.
func (s *AuthService) Principal(header string) (auth.Principal, error) {
	return s.codec.Verify(header)
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*TokenResponse, error) {
	access, err := s.codec.Mint(principalOf(user))
	if err != nil {
		return nil, fmt.Errorf("mint access token: %w", err)
	}
	refresh, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	return s.envelope(access, refresh.Token, user.UserName), nil
}

func (s *AuthService) envelope(access, refresh, username string) *TokenResponse {
	return &TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    common.TokenType,
		ExpiresIn:    int64(s.codec.TTL() / time.Second),
		Username:     username,
	}
}

func principalOf(u *models.User) auth.Principal {
	return auth.Principal{ID: u.ID, Username: u.UserName, Roles: u.Roles}
}
