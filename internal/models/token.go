package models

import "time"

// OAuthTokenSet holds a tenant's calendar-provider credentials. The set is
// mutated in place by the token manager on refresh and must be persisted
// before any dependent calendar call returns success.
type OAuthTokenSet struct {
	TenantID     TenantID
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	UpdatedAt    time.Time
}

// ExpiresWithin reports whether the access token expires within margin of
// now, i.e. whether a refresh is due.
func (t OAuthTokenSet) ExpiresWithin(now time.Time, margin time.Duration) bool {
	return !t.Expiry.After(now.Add(margin))
}
