package core

import (
	"strings"
	"time"
)

// TokenState captures the lifecycle flags derived from a token record at a
// given instant.
type TokenState struct {
	ExpiresAt       time.Time
	HasAccessToken  bool
	HasRefreshToken bool
	CanRefresh      bool
	IsExpired       bool
}

// ResolveTokenState evaluates expiry and refreshability for a record. Expiry
// is strict: the record is expired at exactly issued_at + expires_in, with no
// lead window and no clock skew allowance.
func ResolveTokenState(now time.Time, record TokenRecord) TokenState {
	if now.IsZero() {
		now = time.Now().UTC()
	} else {
		now = now.UTC()
	}

	state := TokenState{
		ExpiresAt:       record.ExpiresAt(),
		HasAccessToken:  strings.TrimSpace(record.AccessToken) != "",
		HasRefreshToken: strings.TrimSpace(record.RefreshToken) != "",
	}
	state.CanRefresh = state.HasRefreshToken
	state.IsExpired = !record.FreshAt(now)
	return state
}

// MergeGrant folds a token-endpoint response into the previous record. Fields
// the provider omitted keep their stored values; issued_at always resets to
// the grant instant.
func MergeGrant(previous TokenRecord, grant TokenGrant, now time.Time) TokenRecord {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	merged := previous
	merged.AccessToken = grant.AccessToken
	if strings.TrimSpace(grant.RefreshToken) != "" {
		merged.RefreshToken = grant.RefreshToken
	}
	if grant.ExpiresIn != nil {
		merged.ExpiresIn = *grant.ExpiresIn
	}
	merged.IssuedAt = now.UTC()
	return merged
}
