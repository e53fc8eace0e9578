package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Service coordinates the token lifecycle: authorization-code exchange, read
// driven refresh, and the administrative surface. Every read-modify-write
// sequence runs under the per-user lock so concurrent callers for the same
// user serialize, while distinct users proceed independently.
type Service struct {
	config            Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	secretProvider    SecretProvider
	persistenceClient any
	repositoryFactory any
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	userLocker        UserLocker
	recordStore       RecordStore
	tokenClient       TokenEndpointClient
	tokenCodec        TokenCodec
	adminGuard        *AdminGuard
	nowFn             func() time.Time
}

type ServiceDependencies struct {
	Logger            Logger
	LoggerProvider    LoggerProvider
	MetricsRecorder   MetricsRecorder
	ErrorFactory      ErrorFactory
	ErrorMapper       ErrorMapper
	SecretProvider    SecretProvider
	PersistenceClient any
	RepositoryFactory any
	ConfigProvider    ConfigProvider
	OptionsResolver   OptionsResolver
	UserLocker        UserLocker
	RecordStore       RecordStore
	TokenClient       TokenEndpointClient
	TokenCodec        TokenCodec
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("tokenvault", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("tokenvault"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.tokenCodec == nil {
		builder.tokenCodec = JSONTokenCodec{}
	}
	if builder.userLocker == nil {
		builder.userLocker = NewMemoryUserLocker()
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.recordStore == nil && builder.repositoryFactory != nil {
		if storeFactory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
			storeProvider, buildErr := storeFactory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			if storeProvider != nil {
				builder.recordStore = storeProvider.RecordStore()
			}
		} else if storeProvider, ok := builder.repositoryFactory.(StoreProvider); ok {
			builder.recordStore = storeProvider.RecordStore()
		}
	}

	if builder.adminGuard == nil && strings.TrimSpace(finalConfig.Admin.Secret) != "" {
		builder.adminGuard = NewAdminGuard(finalConfig.Admin.Secret)
	}

	return &Service{
		config:            finalConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorFactory:      builder.errorFactory,
		errorMapper:       builder.errorMapper,
		secretProvider:    builder.secretProvider,
		persistenceClient: builder.persistenceClient,
		repositoryFactory: builder.repositoryFactory,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		userLocker:        builder.userLocker,
		recordStore:       builder.recordStore,
		tokenClient:       builder.tokenClient,
		tokenCodec:        builder.tokenCodec,
		adminGuard:        builder.adminGuard,
		nowFn:             builder.nowFn,
	}, nil
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		mapper = defaultErrorMapper
	}
	if mapped := mapper(err); mapped != nil {
		return mapped
	}
	return err
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:            s.logger,
		LoggerProvider:    s.loggerProvider,
		MetricsRecorder:   s.metricsRecorder,
		ErrorFactory:      s.errorFactory,
		ErrorMapper:       s.errorMapper,
		SecretProvider:    s.secretProvider,
		PersistenceClient: s.persistenceClient,
		RepositoryFactory: s.repositoryFactory,
		ConfigProvider:    s.configProvider,
		OptionsResolver:   s.optionsResolver,
		UserLocker:        s.userLocker,
		RecordStore:       s.recordStore,
		TokenClient:       s.tokenClient,
		TokenCodec:        s.tokenCodec,
	}
}

func (s *Service) now() time.Time {
	if s != nil && s.nowFn != nil {
		return s.nowFn().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	mapper := s.errorMapper
	if mapper == nil {
		mapper = defaultErrorMapper
	}
	if mapped := mapper(err); mapped != nil {
		return mapped
	}
	return err
}

// StoreNewToken exchanges a one-time authorization code and persists the
// resulting record, replacing any prior record for the user. The result only
// acknowledges the store; the token itself is served through GetValidToken.
func (s *Service) StoreNewToken(ctx context.Context, req StoreTokenRequest) (result StoreTokenResult, err error) {
	if s == nil {
		return StoreTokenResult{}, fmt.Errorf("core: service is nil")
	}
	startedAt := time.Now()
	userID := strings.TrimSpace(req.UserID)
	defer func() {
		s.observeOperation(ctx, startedAt, "store_new_token", err, map[string]any{
			"user_id": userID,
		})
	}()

	if userID == "" {
		return StoreTokenResult{}, s.mapError(fmt.Errorf("core: user id is required"))
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return StoreTokenResult{}, s.mapError(fmt.Errorf("core: authorization code is required"))
	}
	if s.tokenClient == nil {
		return StoreTokenResult{}, s.mapError(fmt.Errorf("core: token endpoint client is not configured"))
	}

	unlock, err := s.lockUser(ctx, userID)
	if err != nil {
		return StoreTokenResult{}, s.mapError(err)
	}
	defer unlock()

	grant, err := s.tokenClient.ExchangeCode(ctx, ExchangeCodeRequest{
		Code:        code,
		RedirectURI: s.config.Provider.RedirectURI,
	})
	if err != nil {
		return StoreTokenResult{}, s.exchangeError(err)
	}

	now := s.now()
	record := TokenRecord{
		UserID:       userID,
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		IssuedAt:     now,
		Metadata:     copyAnyMap(req.Metadata),
	}
	if grant.ExpiresIn != nil {
		record.ExpiresIn = *grant.ExpiresIn
	}

	if err = s.persistRecord(ctx, record); err != nil {
		return StoreTokenResult{}, err
	}
	return StoreTokenResult{UserID: userID, ExpiresAt: record.ExpiresAt()}, nil
}

// GetValidToken returns a servable access token for the user, refreshing the
// stored record first when it has gone stale. This read is the only trigger
// for lifecycle transitions.
func (s *Service) GetValidToken(ctx context.Context, userID string) (result AccessTokenResult, err error) {
	if s == nil {
		return AccessTokenResult{}, fmt.Errorf("core: service is nil")
	}
	startedAt := time.Now()
	userID = strings.TrimSpace(userID)
	refreshed := false
	defer func() {
		s.observeOperation(ctx, startedAt, "get_valid_token", err, map[string]any{
			"user_id":   userID,
			"refreshed": refreshed,
		})
	}()

	if userID == "" {
		return AccessTokenResult{}, s.mapError(fmt.Errorf("core: user id is required"))
	}

	unlock, err := s.lockUser(ctx, userID)
	if err != nil {
		return AccessTokenResult{}, s.mapError(err)
	}
	defer unlock()

	record, err := s.loadRecord(ctx, userID)
	if err != nil {
		return AccessTokenResult{}, err
	}

	now := s.now()
	if record.FreshAt(now) {
		return AccessTokenResult{
			UserID:      userID,
			AccessToken: record.AccessToken,
			ExpiresAt:   record.ExpiresAt(),
		}, nil
	}

	merged, err := s.refreshRecord(ctx, record, now)
	if err != nil {
		return AccessTokenResult{}, err
	}
	refreshed = true
	return AccessTokenResult{
		UserID:      userID,
		AccessToken: merged.AccessToken,
		ExpiresAt:   merged.ExpiresAt(),
		Refreshed:   true,
	}, nil
}

// TokenState reports lifecycle flags for a stored record without decrypting
// token material and without triggering a refresh.
func (s *Service) TokenState(ctx context.Context, userID string) (TokenState, error) {
	if s == nil {
		return TokenState{}, fmt.Errorf("core: service is nil")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return TokenState{}, s.mapError(fmt.Errorf("core: user id is required"))
	}
	if s.recordStore == nil {
		return TokenState{}, s.mapError(fmt.Errorf("core: record store is not configured"))
	}

	stored, err := s.recordStore.Get(ctx, userID)
	if err != nil {
		return TokenState{}, s.storeReadError(userID, err)
	}
	now := s.now()
	return TokenState{
		ExpiresAt:       stored.ExpiresAt.UTC(),
		HasAccessToken:  true,
		HasRefreshToken: stored.Refreshable,
		CanRefresh:      stored.Refreshable,
		IsExpired:       !stored.ExpiresAt.UTC().After(now),
	}, nil
}

// AdminListAll dumps every active record, token material included. The
// secret check runs before any store access.
func (s *Service) AdminListAll(ctx context.Context, req AdminListRequest) (result AdminListResult, err error) {
	if s == nil {
		return AdminListResult{}, fmt.Errorf("core: service is nil")
	}
	startedAt := time.Now()
	defer func() {
		s.observeOperation(ctx, startedAt, "admin_list_all", err, map[string]any{})
	}()

	if err = s.authorizeAdmin(req.AdminSecret); err != nil {
		return AdminListResult{}, err
	}
	if s.recordStore == nil {
		return AdminListResult{}, s.mapError(fmt.Errorf("core: record store is not configured"))
	}

	stored, err := s.recordStore.ListActive(ctx)
	if err != nil {
		return AdminListResult{}, s.storageError("core: list token records", err)
	}

	records := make([]TokenRecord, 0, len(stored))
	for _, item := range stored {
		record, decodeErr := s.decodeStored(ctx, item)
		if decodeErr != nil {
			err = decodeErr
			return AdminListResult{}, err
		}
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].UserID < records[j].UserID
	})
	return AdminListResult{Records: records}, nil
}

// AdminForceRefresh refreshes a user's record immediately, fresh or not.
func (s *Service) AdminForceRefresh(ctx context.Context, req AdminRefreshRequest) (result RefreshResult, err error) {
	if s == nil {
		return RefreshResult{}, fmt.Errorf("core: service is nil")
	}
	startedAt := time.Now()
	userID := strings.TrimSpace(req.UserID)
	defer func() {
		s.observeOperation(ctx, startedAt, "admin_force_refresh", err, map[string]any{
			"user_id": userID,
		})
	}()

	if err = s.authorizeAdmin(req.AdminSecret); err != nil {
		return RefreshResult{}, err
	}
	if userID == "" {
		return RefreshResult{}, s.mapError(fmt.Errorf("core: user id is required"))
	}

	unlock, err := s.lockUser(ctx, userID)
	if err != nil {
		return RefreshResult{}, s.mapError(err)
	}
	defer unlock()

	record, err := s.loadRecord(ctx, userID)
	if err != nil {
		return RefreshResult{}, err
	}

	merged, err := s.refreshRecord(ctx, record, s.now())
	if err != nil {
		return RefreshResult{}, err
	}
	return RefreshResult{Record: merged, Refreshed: true}, nil
}

// AdminRemove drops the user's record. A later GetValidToken for the same
// user reports the user as unknown.
func (s *Service) AdminRemove(ctx context.Context, req AdminRemoveRequest) (err error) {
	if s == nil {
		return fmt.Errorf("core: service is nil")
	}
	startedAt := time.Now()
	userID := strings.TrimSpace(req.UserID)
	defer func() {
		s.observeOperation(ctx, startedAt, "admin_remove", err, map[string]any{
			"user_id": userID,
		})
	}()

	if err = s.authorizeAdmin(req.AdminSecret); err != nil {
		return err
	}
	if userID == "" {
		return s.mapError(fmt.Errorf("core: user id is required"))
	}
	if s.recordStore == nil {
		return s.mapError(fmt.Errorf("core: record store is not configured"))
	}

	unlock, err := s.lockUser(ctx, userID)
	if err != nil {
		return s.mapError(err)
	}
	defer unlock()

	if _, err = s.recordStore.Get(ctx, userID); err != nil {
		return s.storeReadError(userID, err)
	}
	if err = s.recordStore.RevokeAll(ctx, userID, "removed by admin"); err != nil {
		return s.storageError("core: remove token record", err)
	}
	return nil
}

func (s *Service) authorizeAdmin(secret string) error {
	if s.adminGuard == nil {
		return s.mapError(adminUnauthorizedError("core: admin secret is not configured"))
	}
	if err := s.adminGuard.Authorize(secret); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *Service) lockUser(ctx context.Context, userID string) (func(), error) {
	if s.userLocker == nil {
		return func() {}, nil
	}
	ttl := s.config.LockTTL
	if ttl <= 0 {
		ttl = defaultUserLockTTL
	}
	handle, err := s.userLocker.Acquire(ctx, userID, ttl)
	if err != nil {
		return nil, err
	}
	return func() { _ = handle.Unlock(ctx) }, nil
}

func (s *Service) loadRecord(ctx context.Context, userID string) (TokenRecord, error) {
	if s.recordStore == nil {
		return TokenRecord{}, s.mapError(fmt.Errorf("core: record store is not configured"))
	}
	stored, err := s.recordStore.Get(ctx, userID)
	if err != nil {
		return TokenRecord{}, s.storeReadError(userID, err)
	}
	return s.decodeStored(ctx, stored)
}

// refreshRecord runs the provider refresh and persists the merged outcome.
// Callers hold the user lock. The stored record is untouched when either the
// provider call or the persist fails.
func (s *Service) refreshRecord(ctx context.Context, record TokenRecord, now time.Time) (TokenRecord, error) {
	if s.tokenClient == nil {
		return TokenRecord{}, s.mapError(fmt.Errorf("core: token endpoint client is not configured"))
	}
	if strings.TrimSpace(record.RefreshToken) == "" {
		return TokenRecord{}, s.mapError(
			goerrors.New("core: no refresh token on record", goerrors.CategoryExternal).
				WithTextCode(VaultErrorRefreshFailed),
		)
	}

	grant, err := s.tokenClient.RefreshToken(ctx, RefreshTokenRequest{
		RefreshToken: record.RefreshToken,
	})
	if err != nil {
		return TokenRecord{}, s.refreshError(err)
	}

	merged := MergeGrant(record, grant, now)
	if err := s.persistRecord(ctx, merged); err != nil {
		return TokenRecord{}, err
	}
	return merged, nil
}

func (s *Service) persistRecord(ctx context.Context, record TokenRecord) error {
	if s.recordStore == nil {
		return s.mapError(fmt.Errorf("core: record store is not configured"))
	}
	codec := s.tokenCodec
	if codec == nil {
		codec = JSONTokenCodec{}
	}
	payload, err := codec.Encode(record)
	if err != nil {
		return s.mapError(err)
	}
	if s.secretProvider != nil {
		payload, err = s.secretProvider.Encrypt(ctx, payload)
		if err != nil {
			return s.mapError(fmt.Errorf("core: encrypt token payload: %w", err))
		}
	}

	_, err = s.recordStore.SaveNewVersion(ctx, SaveRecordInput{
		UserID:           record.UserID,
		EncryptedPayload: payload,
		PayloadFormat:    codec.Format(),
		PayloadVersion:   codec.Version(),
		ExpiresAt:        record.ExpiresAt(),
		Refreshable:      strings.TrimSpace(record.RefreshToken) != "",
		Status:           RecordStatusActive,
	})
	if err != nil {
		return s.storageError("core: persist token record", err)
	}
	return nil
}

func (s *Service) decodeStored(ctx context.Context, stored StoredRecord) (TokenRecord, error) {
	payload := stored.EncryptedPayload
	var err error
	if s.secretProvider != nil {
		payload, err = s.secretProvider.Decrypt(ctx, payload)
		if err != nil {
			return TokenRecord{}, s.mapError(fmt.Errorf("core: decrypt token payload: %w", err))
		}
	}
	codec := s.tokenCodec
	if codec == nil {
		codec = JSONTokenCodec{}
	}
	record, err := codec.Decode(payload)
	if err != nil {
		return TokenRecord{}, s.mapError(err)
	}
	if strings.TrimSpace(record.UserID) == "" {
		record.UserID = stored.UserID
	}
	return record, nil
}

func (s *Service) storeReadError(userID string, err error) error {
	if errors.Is(err, ErrRecordNotFound) {
		return s.mapError(
			goerrors.New(fmt.Sprintf("core: token record not found for user %q", userID), goerrors.CategoryNotFound).
				WithTextCode(VaultErrorNotFound),
		)
	}
	return s.storageError("core: read token record", err)
}

func (s *Service) storageError(message string, err error) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return s.mapError(richErr)
	}
	return s.mapError(
		goerrors.Wrap(err, goerrors.CategoryOperation, message).
			WithTextCode(VaultErrorStorageUnavailable),
	)
}

func (s *Service) exchangeError(err error) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return s.mapError(richErr)
	}
	return s.mapError(
		goerrors.Wrap(err, goerrors.CategoryExternal, "core: authorization code exchange failed").
			WithTextCode(VaultErrorExchangeFailed),
	)
}

func (s *Service) refreshError(err error) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return s.mapError(richErr)
	}
	return s.mapError(
		goerrors.Wrap(err, goerrors.CategoryExternal, "core: token refresh failed").
			WithTextCode(VaultErrorRefreshFailed),
	)
}
