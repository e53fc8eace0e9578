package core

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ErrorFactory func(message string, category ...goerrors.Category) *goerrors.Error

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type serviceBuilder struct {
	runtimeConfig     Config
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

type Option func(*serviceBuilder)

func WithLogger(logger Logger) Option {
	return func(b *serviceBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *serviceBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *serviceBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorFactory(factory ErrorFactory) Option {
	return func(b *serviceBuilder) {
		b.errorFactory = factory
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *serviceBuilder) {
		b.errorMapper = mapper
	}
}

func WithSecretProvider(provider SecretProvider) Option {
	return func(b *serviceBuilder) {
		b.secretProvider = provider
	}
}

func WithPersistenceClient(client any) Option {
	return func(b *serviceBuilder) {
		b.persistenceClient = client
	}
}

func WithRepositoryFactory(factory any) Option {
	return func(b *serviceBuilder) {
		b.repositoryFactory = factory
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *serviceBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *serviceBuilder) {
		b.optionsResolver = resolver
	}
}

func WithUserLocker(locker UserLocker) Option {
	return func(b *serviceBuilder) {
		b.userLocker = locker
	}
}

func WithRecordStore(store RecordStore) Option {
	return func(b *serviceBuilder) {
		b.recordStore = store
	}
}

func WithTokenEndpointClient(client TokenEndpointClient) Option {
	return func(b *serviceBuilder) {
		b.tokenClient = client
	}
}

func WithTokenCodec(codec TokenCodec) Option {
	return func(b *serviceBuilder) {
		b.tokenCodec = codec
	}
}

func WithAdminGuard(guard *AdminGuard) Option {
	return func(b *serviceBuilder) {
		b.adminGuard = guard
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *serviceBuilder) {
		b.nowFn = now
	}
}

func defaultServiceBuilder(runtime Config) serviceBuilder {
	loggerProvider, logger := glog.Resolve("tokenvault", nil, nil)
	return serviceBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		errorFactory:    goerrors.New,
		errorMapper:     defaultErrorMapper,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
		tokenCodec:      JSONTokenCodec{},
	}
}

func defaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return vaultErrorMapper(err)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

// EnvRawConfigLoader maps TOKEN_VAULT_* environment variables into the raw
// configuration tree consumed by the cfgx provider.
type EnvRawConfigLoader struct {
	Lookup func(key string) (string, bool)
}

func (l EnvRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	lookup := l.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	raw := map[string]any{}
	set := func(path []string, value any) {
		node := raw
		for _, key := range path[:len(path)-1] {
			child, ok := node[key].(map[string]any)
			if !ok {
				child = map[string]any{}
				node[key] = child
			}
			node = child
		}
		node[path[len(path)-1]] = value
	}

	strVars := map[string][]string{
		"TOKEN_VAULT_SERVICE_NAME":           {"service_name"},
		"TOKEN_VAULT_ADMIN_SECRET":           {"admin", "secret"},
		"TOKEN_VAULT_PROVIDER_TOKEN_URL":     {"provider", "token_url"},
		"TOKEN_VAULT_PROVIDER_CLIENT_ID":     {"provider", "client_id"},
		"TOKEN_VAULT_PROVIDER_CLIENT_SECRET": {"provider", "client_secret"},
		"TOKEN_VAULT_PROVIDER_REDIRECT_URI":  {"provider", "redirect_uri"},
	}
	for name, path := range strVars {
		if value, ok := lookup(name); ok && strings.TrimSpace(value) != "" {
			set(path, strings.TrimSpace(value))
		}
	}

	if value, ok := lookup("TOKEN_VAULT_PROVIDER_CLIENT_SECRET_IN_BODY"); ok {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			set([]string{"provider", "client_secret_in_body"}, parsed)
		}
	}
	durVars := map[string][]string{
		"TOKEN_VAULT_PROVIDER_REQUEST_TIMEOUT": {"provider", "request_timeout"},
		"TOKEN_VAULT_LOCK_TTL":                 {"lock_ttl"},
	}
	for name, path := range durVars {
		value, ok := lookup(name)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("core: parse %s: %w", name, err)
		}
		set(path, parsed)
	}
	return raw, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}
	if includeZero || strings.TrimSpace(cfg.Admin.Secret) != "" {
		layer["admin"] = map[string]any{
			"secret": cfg.Admin.Secret,
		}
	}

	provider := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Provider.TokenURL) != "" {
		provider["token_url"] = cfg.Provider.TokenURL
	}
	if includeZero || strings.TrimSpace(cfg.Provider.ClientID) != "" {
		provider["client_id"] = cfg.Provider.ClientID
	}
	if includeZero || strings.TrimSpace(cfg.Provider.ClientSecret) != "" {
		provider["client_secret"] = cfg.Provider.ClientSecret
	}
	if includeZero || strings.TrimSpace(cfg.Provider.RedirectURI) != "" {
		provider["redirect_uri"] = cfg.Provider.RedirectURI
	}
	if includeZero || cfg.Provider.ClientSecretInBody {
		provider["client_secret_in_body"] = cfg.Provider.ClientSecretInBody
	}
	if includeZero || cfg.Provider.RequestTimeout > 0 {
		provider["request_timeout"] = cfg.Provider.RequestTimeout
	}
	if len(provider) > 0 {
		layer["provider"] = provider
	}

	if includeZero || cfg.LockTTL > 0 {
		layer["lock_ttl"] = cfg.LockTTL
	}
	return layer
}
