package token

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/store/memory"
)

type fakeRefresher struct {
	calls atomic.Int32
	err   error
	delay time.Duration
}

func (f *fakeRefresher) Refresh(ctx context.Context, set *models.OAuthTokenSet) (*models.OAuthTokenSet, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &models.OAuthTokenSet{
		TenantID:     set.TenantID,
		AccessToken:  "refreshed-access",
		RefreshToken: set.RefreshToken,
		Expiry:       time.Now().Add(time.Hour),
	}, nil
}

func seedTokenSet(t *testing.T, tokens *memory.TokenStore, expiry time.Time) {
	t.Helper()
	err := tokens.SaveTokenSet(context.Background(), &models.OAuthTokenSet{
		TenantID:     7,
		AccessToken:  "old-access",
		RefreshToken: "refresh-1",
		Expiry:       expiry,
	})
	require.NoError(t, err)
	tokens.SaveCount = 0
}

func TestGetValidToken_noRefreshWhenFresh(t *testing.T) {
	ctx := context.Background()
	tokens := memory.NewTokenStore()
	seedTokenSet(t, tokens, time.Now().Add(time.Hour))

	refresher := &fakeRefresher{}
	m := NewManager(tokens, refresher, 60*time.Second)

	got, err := m.GetValidToken(ctx, 7, 0)
	require.NoError(t, err)
	require.Equal(t, "old-access", got)
	require.Equal(t, int32(0), refresher.calls.Load())
}

func TestGetValidToken_refreshInsideMargin(t *testing.T) {
	ctx := context.Background()
	tokens := memory.NewTokenStore()
	// Still valid, but inside the 60s safety margin
	seedTokenSet(t, tokens, time.Now().Add(30*time.Second))

	refresher := &fakeRefresher{}
	m := NewManager(tokens, refresher, 60*time.Second)

	got, err := m.GetValidToken(ctx, 7, 0)
	require.NoError(t, err)
	require.Equal(t, "refreshed-access", got)
	require.Equal(t, int32(1), refresher.calls.Load())

	// Persisted before return
	set, err := tokens.GetTokenSet(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, "refreshed-access", set.AccessToken)
	require.Equal(t, 1, tokens.SaveCount)
}

func TestGetValidToken_perCallMarginOverridesDefault(t *testing.T) {
	ctx := context.Background()
	tokens := memory.NewTokenStore()
	// Expires in five minutes: fresh under the default margin
	seedTokenSet(t, tokens, time.Now().Add(5*time.Minute))

	refresher := &fakeRefresher{}
	m := NewManager(tokens, refresher, 60*time.Second)

	got, err := m.GetValidToken(ctx, 7, 0)
	require.NoError(t, err)
	require.Equal(t, "old-access", got)
	require.Equal(t, int32(0), refresher.calls.Load())

	// A tenant with a ten-minute margin refreshes the same set
	got, err = m.GetValidToken(ctx, 7, 10*time.Minute)
	require.NoError(t, err)
	require.Equal(t, "refreshed-access", got)
	require.Equal(t, int32(1), refresher.calls.Load())
}

func TestGetValidToken_concurrentCallersSingleRefresh(t *testing.T) {
	ctx := context.Background()
	tokens := memory.NewTokenStore()
	seedTokenSet(t, tokens, time.Now().Add(-time.Minute))

	refresher := &fakeRefresher{delay: 10 * time.Millisecond}
	m := NewManager(tokens, refresher, 60*time.Second)

	const callers = 16
	results := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = m.GetValidToken(ctx, 7, 0)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, "refreshed-access", results[i])
	}
	require.Equal(t, int32(1), refresher.calls.Load())
	require.Equal(t, 1, tokens.SaveCount)
}

func TestGetValidToken_revokedIsTerminal(t *testing.T) {
	ctx := context.Background()
	tokens := memory.NewTokenStore()
	seedTokenSet(t, tokens, time.Now().Add(-time.Minute))

	refresher := &fakeRefresher{err: ErrTokenRevoked}
	m := NewManager(tokens, refresher, 60*time.Second)

	_, err := m.GetValidToken(ctx, 7, 0)
	require.ErrorIs(t, err, ErrTokenRevoked)
	require.Equal(t, int32(1), refresher.calls.Load())

	// The revoked refresh token is latched: no repeated refresh attempts
	_, err = m.GetValidToken(ctx, 7, 0)
	require.ErrorIs(t, err, ErrTokenRevoked)
	require.Equal(t, int32(1), refresher.calls.Load())
}

func TestGetValidToken_transientFailureRetriesLater(t *testing.T) {
	ctx := context.Background()
	tokens := memory.NewTokenStore()
	seedTokenSet(t, tokens, time.Now().Add(-time.Minute))

	refresher := &fakeRefresher{err: ErrTokenRefreshTimeout}
	m := NewManager(tokens, refresher, 60*time.Second)

	_, err := m.GetValidToken(ctx, 7, 0)
	require.ErrorIs(t, err, ErrTokenRefreshTimeout)

	// A later call tries again instead of latching
	refresher.err = nil
	got, err := m.GetValidToken(ctx, 7, 0)
	require.NoError(t, err)
	require.Equal(t, "refreshed-access", got)
	require.Equal(t, int32(2), refresher.calls.Load())
}

func TestGetValidToken_unknownTenant(t *testing.T) {
	ctx := context.Background()
	m := NewManager(memory.NewTokenStore(), &fakeRefresher{}, 0)

	_, err := m.GetValidToken(ctx, 99, 0)
	require.Error(t, err)
}
