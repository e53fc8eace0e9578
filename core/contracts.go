package core

import (
	"context"
	"errors"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

var ErrRecordNotFound = errors.New("core: token record not found")

// TokenGrant is the normalized token-endpoint response. RefreshToken empty and
// ExpiresIn nil mean the provider omitted the field; callers merge those with
// the previously stored values.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    *int64
	TokenType    string
	Scope        string
	Raw          map[string]any
}

type ExchangeCodeRequest struct {
	Code        string
	RedirectURI string
}

type RefreshTokenRequest struct {
	RefreshToken string
}

// TokenEndpointClient talks to the provider's token endpoint. Both calls are
// bounded by the client's configured timeout and never retried.
type TokenEndpointClient interface {
	ExchangeCode(ctx context.Context, req ExchangeCodeRequest) (TokenGrant, error)
	RefreshToken(ctx context.Context, req RefreshTokenRequest) (TokenGrant, error)
}

type SaveRecordInput struct {
	UserID           string
	EncryptedPayload []byte
	PayloadFormat    string
	PayloadVersion   int
	ExpiresAt        time.Time
	Refreshable      bool
	Status           RecordStatus
}

// RecordStore persists token record versions keyed by user. Get resolves the
// highest active version and returns ErrRecordNotFound (possibly wrapped) when
// the user has none. SaveNewVersion revokes the current active version and
// inserts the next one atomically.
type RecordStore interface {
	Get(ctx context.Context, userID string) (StoredRecord, error)
	SaveNewVersion(ctx context.Context, in SaveRecordInput) (StoredRecord, error)
	RevokeAll(ctx context.Context, userID string, reason string) error
	ListActive(ctx context.Context) ([]StoredRecord, error)
}

type StoreProvider interface {
	RecordStore() RecordStore
}

type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

// TokenCodec serializes token records into the payload sealed by the secret
// provider before persistence.
type TokenCodec interface {
	Format() string
	Version() int
	Encode(record TokenRecord) ([]byte, error)
	Decode(payload []byte) (TokenRecord, error)
}

type SecretProvider interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

type LockHandle interface {
	Unlock(ctx context.Context) error
}

// UserLocker serializes read-modify-write sequences per user id. Locks for
// distinct users never contend.
type UserLocker interface {
	Acquire(ctx context.Context, userID string, ttl time.Duration) (LockHandle, error)
}

// MetricsRecorder receives the vault's operation outcome counters and
// duration observations, tagged with the operation name and status.
type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type StoreTokenRequest struct {
	UserID   string
	Code     string
	Metadata map[string]any
}

// StoreTokenResult acknowledges a completed exchange. It never carries token
// material; callers obtain the token through GetValidToken.
type StoreTokenResult struct {
	UserID    string
	ExpiresAt time.Time
}

type AccessTokenResult struct {
	UserID      string
	AccessToken string
	ExpiresAt   time.Time
	Refreshed   bool
}

type RefreshResult struct {
	Record    TokenRecord
	Refreshed bool
}

type AdminListRequest struct {
	AdminSecret string
}

type AdminListResult struct {
	Records []TokenRecord
}

type AdminRefreshRequest struct {
	AdminSecret string
	UserID      string
}

type AdminRemoveRequest struct {
	AdminSecret string
	UserID      string
}
