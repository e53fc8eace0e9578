package core

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidRecordStatusTransition = errors.New("core: invalid token record status transition")

type RecordStatus string

const (
	RecordStatusActive  RecordStatus = "active"
	RecordStatusRevoked RecordStatus = "revoked"
)

// TokenRecord is the logical per-user credential: the tokens obtained from the
// provider plus the capture instant the expiry countdown starts from.
type TokenRecord struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	IssuedAt     time.Time
	Metadata     map[string]any
}

// ExpiresAt returns the instant the access token stops being servable:
// issued_at + expires_in seconds.
func (r TokenRecord) ExpiresAt() time.Time {
	return r.IssuedAt.UTC().Add(time.Duration(r.ExpiresIn) * time.Second)
}

// FreshAt reports whether the access token may still be served at the given
// instant. The comparison is strict: at exactly issued_at + expires_in the
// record is already stale.
func (r TokenRecord) FreshAt(now time.Time) bool {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return now.UTC().Before(r.ExpiresAt())
}

// StoredRecord is the persisted shape of one token record version: token
// material sealed into EncryptedPayload, lifecycle metadata in the clear.
type StoredRecord struct {
	ID               string
	UserID           string
	Version          int
	EncryptedPayload []byte
	PayloadFormat    string
	PayloadVersion   int
	ExpiresAt        time.Time
	Refreshable      bool
	Status           RecordStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (r *StoredRecord) TransitionTo(status RecordStatus, now time.Time) error {
	if r == nil {
		return nil
	}
	if r.Status == status {
		r.UpdatedAt = now
		return nil
	}
	if !recordTransitionAllowed(r.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidRecordStatusTransition, r.Status, status)
	}
	r.Status = status
	r.UpdatedAt = now
	return nil
}

func recordTransitionAllowed(current, next RecordStatus) bool {
	allowed := map[RecordStatus]map[RecordStatus]struct{}{
		RecordStatusActive: {
			RecordStatusRevoked: {},
		},
		RecordStatusRevoked: {},
	}
	_, ok := allowed[current][next]
	return ok
}
