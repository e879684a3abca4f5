package sessions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/dbx"
	"github.com/dmitrijs2005/passvault/internal/logging"
	"github.com/dmitrijs2005/passvault/internal/server/models"
	"github.com/dmitrijs2005/passvault/internal/server/repositories/refreshtokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memTokens is an in-memory refresh token table with the partial unique
// index on (user_id) WHERE NOT revoked.
type memTokens struct {
	mu         sync.Mutex
	rows       map[string]models.RefreshToken
	failCreate int
	findErr    error
	creates    int
}

func newMemTokens() *memTokens {
	return &memTokens{rows: map[string]models.RefreshToken{}}
}

func (m *memTokens) snapshot() map[string]models.RefreshToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make(map[string]models.RefreshToken, len(m.rows))
	for k, v := range m.rows {
		cp[k] = v
	}
	return cp
}

func (m *memTokens) restore(rows map[string]models.RefreshToken) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = rows
}

func (m *memTokens) Create(_ context.Context, t *models.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.failCreate > 0 {
		m.failCreate--
		return fmt.Errorf("%w: simulated unique violation", common.ErrorAlreadyExists)
	}
	for _, r := range m.rows {
		if r.Token == t.Token || (r.UserID == t.UserID && !r.Revoked) {
			return fmt.Errorf("%w: duplicate", common.ErrorAlreadyExists)
		}
	}
	m.rows[t.Token] = *t
	return nil
}

func (m *memTokens) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	r, ok := m.rows[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &r, nil
}

func (m *memTokens) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, token)
	return nil
}

func (m *memTokens) DeleteByUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, r := range m.rows {
		if r.UserID == userID {
			delete(m.rows, k)
		}
	}
	return nil
}

func (m *memTokens) RevokeByUser(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, r := range m.rows {
		if r.UserID == userID && !r.Revoked {
			r.Revoked = true
			m.rows[k] = r
			n++
		}
	}
	return n, nil
}

func (m *memTokens) active(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.rows {
		if r.UserID == userID && !r.Revoked {
			n++
		}
	}
	return n
}

type fakeRepos struct{ tokens *memTokens }

func (f fakeRepos) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return f.tokens }

// fakeTx serializes units of work and rolls back the table on error.
type fakeTx struct {
	mu     sync.Mutex
	tokens *memTokens
	calls  int
}

func (f *fakeTx) WithinTx(ctx context.Context, fn dbx.TxFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	before := f.tokens.snapshot()
	if err := fn(ctx, nil); err != nil {
		f.tokens.restore(before)
		return err
	}
	return nil
}

type fixture struct {
	store  *Store
	tokens *memTokens
	tx     *fakeTx
	now    time.Time
}

func newFixture(t *testing.T, ttl time.Duration, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{tokens: newMemTokens(), now: time.Unix(1_700_000_000, 0)}
	f.tx = &fakeTx{tokens: f.tokens}
	opts = append([]Option{WithClock(func() time.Time { return f.now })}, opts...)
	f.store = NewStore(nil, f.tx, fakeRepos{tokens: f.tokens}, ttl, logging.Nop{}, opts...)
	return f
}

func TestIssue(t *testing.T) {
	f := newFixture(t, time.Hour)

	tok, err := f.store.Issue(context.Background(), "u1")
	require.NoError(t, err)

	assert.Len(t, tok.Token, 2*TokenBytes)
	assert.Equal(t, "u1", tok.UserID)
	assert.NotEmpty(t, tok.ID)
	assert.False(t, tok.Revoked)
	assert.True(t, tok.Expires.Equal(f.now.Add(time.Hour)))

	got, err := f.store.Verify(context.Background(), tok.Token)
	require.NoError(t, err)
	assert.Equal(t, tok.Token, got.Token)
}

func TestIssueTwice_DisplacesPrevious(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()

	first, err := f.store.Issue(ctx, "u1")
	require.NoError(t, err)
	second, err := f.store.Issue(ctx, "u1")
	require.NoError(t, err)

	assert.NotEqual(t, first.Token, second.Token)
	assert.Equal(t, 1, f.tokens.active("u1"))

	_, err = f.store.Verify(ctx, first.Token)
	assert.ErrorIs(t, err, common.ErrTokenNotFound)
	_, err = f.store.Verify(ctx, second.Token)
	assert.NoError(t, err)
}

func TestIssue_ReplacesRevoked(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()

	old, err := f.store.Issue(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, f.store.RevokeAll(ctx, "u1"))

	_, err = f.store.Issue(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, f.tokens.active("u1"))

	_, err = f.store.Verify(ctx, old.Token)
	assert.ErrorIs(t, err, common.ErrTokenNotFound)
}

func TestIssue_ConcurrentSameUser(t *testing.T) {
	f := newFixture(t, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.store.Issue(context.Background(), "u1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.tokens.active("u1"))
}

func TestIssue_RetriesOnConflict(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.tokens.failCreate = 2

	tok, err := f.store.Issue(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotNil(t, tok)
	assert.Equal(t, 3, f.tx.calls)
	assert.Equal(t, 1, f.tokens.active("u1"))
}

func TestIssue_GivesUpAfterMaxAttempts(t *testing.T) {
	f := newFixture(t, time.Hour, WithMaxAttempts(2))
	f.tokens.failCreate = 5

	_, err := f.store.Issue(context.Background(), "u1")
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
	assert.Equal(t, 2, f.tx.calls)
	assert.Equal(t, 0, f.tokens.active("u1"))
}

func TestVerify_ExpiredIsDeleted(t *testing.T) {
	f := newFixture(t, 1000*time.Millisecond)
	ctx := context.Background()

	tok, err := f.store.Issue(ctx, "u1")
	require.NoError(t, err)

	f.now = f.now.Add(1500 * time.Millisecond)

	_, err = f.store.Verify(ctx, tok.Token)
	assert.ErrorIs(t, err, common.ErrTokenExpired)

	_, err = f.store.Verify(ctx, tok.Token)
	assert.ErrorIs(t, err, common.ErrTokenNotFound)
}

func TestVerify_AtExpiryInstant(t *testing.T) {
	f := newFixture(t, time.Second)
	ctx := context.Background()

	tok, err := f.store.Issue(ctx, "u1")
	require.NoError(t, err)

	f.now = tok.Expires
	_, err = f.store.Verify(ctx, tok.Token)
	assert.NoError(t, err)
}

func TestVerify_RevokedIsDeleted(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()

	tok, err := f.store.Issue(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, f.store.RevokeAll(ctx, "u1"))

	_, err = f.store.Verify(ctx, tok.Token)
	assert.ErrorIs(t, err, common.ErrTokenRevoked)

	_, err = f.store.Verify(ctx, tok.Token)
	assert.ErrorIs(t, err, common.ErrTokenNotFound)
}

func TestVerify_Unknown(t *testing.T) {
	f := newFixture(t, time.Hour)

	_, err := f.store.Verify(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrTokenNotFound)
}

func TestVerify_StorageError(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.tokens.findErr = errors.New("db error: boom")

	_, err := f.store.Verify(context.Background(), "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrTokenNotFound)
}

func TestRevokeAll_Idempotent(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()

	assert.NoError(t, f.store.RevokeAll(ctx, "nobody"))

	_, err := f.store.Issue(ctx, "u1")
	require.NoError(t, err)
	assert.NoError(t, f.store.RevokeAll(ctx, "u1"))
	assert.NoError(t, f.store.RevokeAll(ctx, "u1"))
	assert.Equal(t, 0, f.tokens.active("u1"))
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, "****", Fingerprint("short"))
	assert.Equal(t, "abcdef01...", Fingerprint("abcdef0123456789"))
}
