// Package token owns the calendar-provider credential lifecycle per
// tenant. Renewal is an explicit state machine (valid → expiring →
// refreshing → valid/revoked) guarded by a per-tenant mutual-exclusion
// region, so concurrent events needing a token never trigger duplicate
// refresh calls.
package token

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/store"
	"golang.org/x/oauth2"
)

// Sentinel errors for token refresh outcomes
var (
	// ErrTokenRevoked means the refresh token was rejected by the provider.
	// Terminal for the tenant's calendar integration until re-authorized
	// out-of-band.
	ErrTokenRevoked = errors.New("refresh token revoked")

	// ErrTokenRefreshTimeout is a transient refresh failure. Retryable.
	ErrTokenRefreshTimeout = errors.New("token refresh timed out")
)

// Refresher exchanges a refresh token for a new token set.
type Refresher interface {
	Refresh(ctx context.Context, set *models.OAuthTokenSet) (*models.OAuthTokenSet, error)
}

// OAuth2Refresher implements Refresher against the calendar provider's
// token endpoint using the standard refresh-token grant.
type OAuth2Refresher struct {
	conf *oauth2.Config
}

// NewOAuth2Refresher creates a refresher for the given OAuth client.
func NewOAuth2Refresher(clientID, clientSecret, tokenURL string) *OAuth2Refresher {
	return &OAuth2Refresher{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL: tokenURL,
			},
		},
	}
}

// Refresh performs the refresh-token exchange. Provider rejections (4xx)
// map to ErrTokenRevoked; transport failures map to
// ErrTokenRefreshTimeout.
func (r *OAuth2Refresher) Refresh(ctx context.Context, set *models.OAuthTokenSet) (*models.OAuthTokenSet, error) {
	src := r.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: set.RefreshToken})

	tok, err := src.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			if retrieveErr.Response != nil && retrieveErr.Response.StatusCode >= http.StatusBadRequest &&
				retrieveErr.Response.StatusCode < http.StatusInternalServerError {
				return nil, fmt.Errorf("%w: %s", ErrTokenRevoked, retrieveErr.ErrorCode)
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrTokenRefreshTimeout, err)
	}

	refreshed := &models.OAuthTokenSet{
		TenantID:     set.TenantID,
		AccessToken:  tok.AccessToken,
		RefreshToken: set.RefreshToken,
		Expiry:       tok.Expiry,
	}
	// Providers may rotate the refresh token on exchange
	if tok.RefreshToken != "" {
		refreshed.RefreshToken = tok.RefreshToken
	}

	return refreshed, nil
}

type tenantLock struct {
	mu sync.Mutex

	// refresh token observed to be revoked; cleared when the stored set
	// changes (out-of-band re-authorization)
	revokedRefreshToken string
}

// Manager hands out valid access tokens, refreshing on expiry. The
// refreshed set is persisted before any caller sees it (write-before-use).
type Manager struct {
	tokens    store.TokenStore
	refresher Refresher
	margin    time.Duration

	mu    sync.Mutex
	locks map[models.TenantID]*tenantLock
}

// NewManager creates a token manager. margin is the default expiry safety
// margin; a non-positive value falls back to the documented default.
func NewManager(tokens store.TokenStore, refresher Refresher, margin time.Duration) *Manager {
	if margin <= 0 {
		margin = models.DefaultTokenRefreshMargin
	}
	return &Manager{
		tokens:    tokens,
		refresher: refresher,
		margin:    margin,
		locks:     make(map[models.TenantID]*tenantLock),
	}
}

// GetValidToken returns a valid access token, refreshing when less than
// margin remains before expiry. A non-positive margin falls back to the
// manager's default. Concurrent callers for the same tenant serialize on
// a per-tenant lock: exactly one performs the refresh and every waiter
// reads the refreshed set.
func (m *Manager) GetValidToken(ctx context.Context, tenantID models.TenantID, margin time.Duration) (string, error) {
	if margin <= 0 {
		margin = m.margin
	}

	set, err := m.tokens.GetTokenSet(ctx, tenantID)
	if err != nil {
		return "", fmt.Errorf("failed to load token set: %w", err)
	}

	if !set.ExpiresWithin(time.Now(), margin) {
		return set.AccessToken, nil
	}

	lock := m.lockFor(tenantID)
	lock.mu.Lock()
	defer lock.mu.Unlock()

	// Re-read under the lock: a concurrent caller may have refreshed while
	// we waited
	set, err = m.tokens.GetTokenSet(ctx, tenantID)
	if err != nil {
		return "", fmt.Errorf("failed to load token set: %w", err)
	}
	if !set.ExpiresWithin(time.Now(), margin) {
		return set.AccessToken, nil
	}

	if lock.revokedRefreshToken != "" && lock.revokedRefreshToken == set.RefreshToken {
		return "", ErrTokenRevoked
	}

	log.Debug().
		Int64("tenant_id", int64(tenantID)).
		Time("expiry", set.Expiry).
		Msg("Access token expiring, refreshing")

	refreshed, err := m.refresher.Refresh(ctx, set)
	if err != nil {
		if errors.Is(err, ErrTokenRevoked) {
			lock.revokedRefreshToken = set.RefreshToken
			log.Warn().
				Int64("tenant_id", int64(tenantID)).
				Msg("Refresh token revoked, calendar integration needs re-authorization")
		}
		return "", err
	}

	// Persist before returning so no dependent calendar call can succeed
	// against an unsaved credential
	if err := m.tokens.SaveTokenSet(ctx, refreshed); err != nil {
		return "", fmt.Errorf("failed to persist refreshed token set: %w", err)
	}

	lock.revokedRefreshToken = ""

	log.Info().
		Int64("tenant_id", int64(tenantID)).
		Time("expiry", refreshed.Expiry).
		Msg("Refreshed calendar access token")

	return refreshed.AccessToken, nil
}

func (m *Manager) lockFor(tenantID models.TenantID) *tenantLock {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[tenantID]
	if !ok {
		lock = &tenantLock{}
		m.locks[tenantID] = lock
	}
	return lock
}
