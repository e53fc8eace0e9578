package core

import (
	"fmt"
	"strings"
	"time"
)

type ProviderConfig struct {
	TokenURL           string        `koanf:"token_url" mapstructure:"token_url"`
	ClientID           string        `koanf:"client_id" mapstructure:"client_id"`
	ClientSecret       string        `koanf:"client_secret" mapstructure:"client_secret"`
	RedirectURI        string        `koanf:"redirect_uri" mapstructure:"redirect_uri"`
	ClientSecretInBody bool          `koanf:"client_secret_in_body" mapstructure:"client_secret_in_body"`
	RequestTimeout     time.Duration `koanf:"request_timeout" mapstructure:"request_timeout"`
}

type AdminConfig struct {
	Secret string `koanf:"secret" mapstructure:"secret"`
}

type Config struct {
	ServiceName string         `koanf:"service_name" mapstructure:"service_name"`
	Admin       AdminConfig    `koanf:"admin" mapstructure:"admin"`
	Provider    ProviderConfig `koanf:"provider" mapstructure:"provider"`
	LockTTL     time.Duration  `koanf:"lock_ttl" mapstructure:"lock_ttl"`
}

const DefaultProviderRequestTimeout = 10 * time.Second

func DefaultConfig() Config {
	return Config{
		ServiceName: "tokenvault",
		Provider: ProviderConfig{
			RequestTimeout: DefaultProviderRequestTimeout,
		},
		LockTTL: defaultUserLockTTL,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Provider.RequestTimeout < 0 {
		return fmt.Errorf("core: provider.request_timeout must not be negative")
	}
	if c.LockTTL < 0 {
		return fmt.Errorf("core: lock_ttl must not be negative")
	}
	return nil
}
