// Package tokenvault manages per-user OAuth2 token lifecycles: exchanging
// authorization codes, serving fresh access tokens, refreshing stale ones on
// demand, and guarding admin operations behind a shared secret.
package tokenvault

import "github.com/goliatone/go-token-vault/core"

type Config = core.Config

type ProviderConfig = core.ProviderConfig

type AdminConfig = core.AdminConfig

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies
type RecordStore = core.RecordStore
type TokenEndpointClient = core.TokenEndpointClient
type TokenCodec = core.TokenCodec
type SecretProvider = core.SecretProvider
type UserLocker = core.UserLocker
type AdminGuard = core.AdminGuard

type TokenRecord = core.TokenRecord
type StoredRecord = core.StoredRecord
type TokenState = core.TokenState

type StoreTokenRequest = core.StoreTokenRequest
type StoreTokenResult = core.StoreTokenResult
type AccessTokenResult = core.AccessTokenResult
type RefreshResult = core.RefreshResult
type AdminListRequest = core.AdminListRequest
type AdminListResult = core.AdminListResult
type AdminRefreshRequest = core.AdminRefreshRequest
type AdminRemoveRequest = core.AdminRemoveRequest

var (
	WithLogger              = core.WithLogger
	WithLoggerProvider      = core.WithLoggerProvider
	WithMetricsRecorder     = core.WithMetricsRecorder
	WithErrorFactory        = core.WithErrorFactory
	WithErrorMapper         = core.WithErrorMapper
	WithSecretProvider      = core.WithSecretProvider
	WithPersistenceClient   = core.WithPersistenceClient
	WithRepositoryFactory   = core.WithRepositoryFactory
	WithConfigProvider      = core.WithConfigProvider
	WithOptionsResolver     = core.WithOptionsResolver
	WithUserLocker          = core.WithUserLocker
	WithRecordStore         = core.WithRecordStore
	WithTokenEndpointClient = core.WithTokenEndpointClient
	WithTokenCodec          = core.WithTokenCodec
	WithAdminGuard          = core.WithAdminGuard
	WithClock               = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}
