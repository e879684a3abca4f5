// Package auth mints and verifies signed access tokens. Verification is a
// pure function of the token, the signing secret and the current time; it
// performs no I/O.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/timex"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func init() {
	// NumericDate truncates to TimePrecision; whole seconds would let a
	// token minted at x.9s expire 900ms before now+ttl.
	jwt.TimePrecision = time.Millisecond
}

// Principal is the identity carried by an access token.
type Principal struct {
	ID       string
	Username string
	Roles    []string
}

// Claims is the signed claim set. Subject holds the username.
type Claims struct {
	UserID string   `json:"uid"`
	Roles  []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Principal returns the identity embedded in the claims.
func (c *Claims) Principal() Principal {
	return Principal{ID: c.UserID, Username: c.Subject, Roles: c.Roles}
}

// Codec signs and verifies access tokens with HS256.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    timex.Clock
}

// Option customizes a Codec.
type Option func(*Codec)

// WithClock overrides the time source used for issuedAt/expiresAt and expiry checks.
func WithClock(clock timex.Clock) Option {
	return func(c *Codec) {
		c.now = clock
	}
}

// NewCodec returns a Codec. The secret must be non-empty and ttl positive.
func NewCodec(secret []byte, ttl time.Duration, opts ...Option) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("signing secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("access token ttl must be greater than zero")
	}
	c := &Codec{secret: secret, ttl: ttl, now: timex.SystemClock}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL is the configured access-token lifetime.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Mint signs a token for p, valid from now until now+TTL.
func (c *Codec) Mint(p Principal) (string, error) {
	if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.Username) == "" {
		return "", errors.New("principal id and username are required")
	}

	now := c.now()
	claims := Claims{
		UserID: p.ID,
		Roles:  NormalizeRoles(p.Roles),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the token and returns its principal.
//
// An optional "Bearer " prefix is stripped. Bad encoding, bad signature,
// an unexpected algorithm or missing claims yield common.ErrTokenMalformed;
// a token whose expiresAt lies before the current time yields
// common.ErrTokenExpired.
func (c *Codec) Verify(token string) (Principal, error) {
	claims, err := c.VerifyClaims(token)
	if err != nil {
		return Principal{}, err
	}
	return claims.Principal(), nil
}

// VerifyClaims is Verify returning the full claim set.
func (c *Codec) VerifyClaims(token string) (*Claims, error) {
	token = StripBearer(token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", common.ErrTokenMalformed)
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		// expiry is checked below against c.now with millisecond semantics
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", common.ErrTokenMalformed, err)
	}

	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return nil, fmt.Errorf("%w: timestamps missing", common.ErrTokenMalformed)
	}
	if strings.TrimSpace(claims.Subject) == "" || strings.TrimSpace(claims.UserID) == "" {
		return nil, fmt.Errorf("%w: subject missing", common.ErrTokenMalformed)
	}

	if c.now().After(claims.ExpiresAt.Time) {
		return nil, common.ErrTokenExpired
	}

	return claims, nil
}

// StripBearer trims whitespace and a leading "Bearer " scheme, if present.
func StripBearer(header string) string {
	header = strings.TrimSpace(header)
	scheme := strings.TrimSpace(common.BearerPrefix)
	if strings.EqualFold(header, scheme) {
		return ""
	}
	if first, rest, ok := strings.Cut(header, " "); ok && strings.EqualFold(first, scheme) {
		return strings.TrimSpace(rest)
	}
	return header
}

// NormalizeRoles trims and de-duplicates roles, keeping first-seen order.
func NormalizeRoles(roles []string) []string {
	if len(roles) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(roles))
	var out []string
	for _, role := range roles {
		role = strings.TrimSpace(role)
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	return out
}
