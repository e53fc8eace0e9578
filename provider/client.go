// Package provider implements the OAuth2 token-endpoint client used for
// authorization-code exchange and refresh-token grants.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-token-vault/core"
)

const maxTokenResponseBodyBytes = int64(1 << 20)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	TokenURL           string
	ClientID           string
	ClientSecret       string
	RedirectURI        string
	ClientSecretInBody bool
	RequestTimeout     time.Duration
	Now                func() time.Time
	HTTPClient         HTTPDoer
}

// Client posts form-urlencoded grants to the provider's token endpoint.
// Client credentials travel as HTTP Basic auth unless ClientSecretInBody is
// set. Every call is bounded by RequestTimeout and never retried.
type Client struct {
	cfg        Config
	httpClient HTTPDoer
}

type tokenEndpointPayload struct {
	AccessToken      string
	TokenType        string
	RefreshToken     string
	Scope            string
	ExpiresIn        *int64
	ErrorCode        string
	ErrorDescription string
}

func NewClient(cfg Config) (*Client, error) {
	cfg.TokenURL = strings.TrimSpace(cfg.TokenURL)
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	cfg.ClientSecret = strings.TrimSpace(cfg.ClientSecret)
	cfg.RedirectURI = strings.TrimSpace(cfg.RedirectURI)

	if cfg.TokenURL == "" {
		return nil, fmt.Errorf("provider: token url is required")
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("provider: client id is required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = core.DefaultProviderRequestTimeout
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	return &Client{cfg: cfg, httpClient: httpClient}, nil
}

func NewClientFromConfig(cfg core.ProviderConfig) (*Client, error) {
	return NewClient(Config{
		TokenURL:           cfg.TokenURL,
		ClientID:           cfg.ClientID,
		ClientSecret:       cfg.ClientSecret,
		RedirectURI:        cfg.RedirectURI,
		ClientSecretInBody: cfg.ClientSecretInBody,
		RequestTimeout:     cfg.RequestTimeout,
	})
}

// ExchangeCode redeems a one-time authorization code for a token grant.
func (c *Client) ExchangeCode(ctx context.Context, req core.ExchangeCodeRequest) (core.TokenGrant, error) {
	if c == nil {
		return core.TokenGrant{}, fmt.Errorf("provider: client is nil")
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return core.TokenGrant{}, exchangeError(fmt.Errorf("provider: auth code is required"), goerrors.CategoryBadInput, core.VaultErrorBadInput)
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	redirectURI := strings.TrimSpace(req.RedirectURI)
	if redirectURI == "" {
		redirectURI = c.cfg.RedirectURI
	}
	if redirectURI != "" {
		form.Set("redirect_uri", redirectURI)
	}

	payload, err := c.fetchToken(ctx, form)
	if err != nil {
		return core.TokenGrant{}, exchangeError(err, goerrors.CategoryExternal, core.VaultErrorExchangeFailed)
	}
	return payloadToGrant(payload), nil
}

// RefreshToken trades a refresh token for a new grant. Providers are free to
// omit refresh_token and expires_in from the response; the returned grant
// reports those as absent so the caller can keep its stored values.
func (c *Client) RefreshToken(ctx context.Context, req core.RefreshTokenRequest) (core.TokenGrant, error) {
	if c == nil {
		return core.TokenGrant{}, fmt.Errorf("provider: client is nil")
	}
	refreshToken := strings.TrimSpace(req.RefreshToken)
	if refreshToken == "" {
		return core.TokenGrant{}, exchangeError(fmt.Errorf("provider: refresh token is required"), goerrors.CategoryBadInput, core.VaultErrorBadInput)
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	payload, err := c.fetchToken(ctx, form)
	if err != nil {
		return core.TokenGrant{}, exchangeError(err, goerrors.CategoryExternal, core.VaultErrorRefreshFailed)
	}
	return payloadToGrant(payload), nil
}

func exchangeError(err error, category goerrors.Category, textCode string) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return goerrors.Wrap(err, category, "provider: token endpoint call failed").
		WithTextCode(textCode)
}

func payloadToGrant(payload tokenEndpointPayload) core.TokenGrant {
	raw := map[string]any{
		"token_type": payload.TokenType,
		"scope":      payload.Scope,
	}
	return core.TokenGrant{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		ExpiresIn:    payload.ExpiresIn,
		TokenType:    payload.TokenType,
		Scope:        payload.Scope,
		Raw:          raw,
	}
}

func (c *Client) fetchToken(ctx context.Context, form url.Values) (tokenEndpointPayload, error) {
	if c.httpClient == nil {
		return tokenEndpointPayload{}, fmt.Errorf("provider: http client is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	values := url.Values{}
	for key, items := range form {
		if strings.TrimSpace(key) == "" {
			continue
		}
		for _, item := range items {
			values.Add(key, strings.TrimSpace(item))
		}
	}
	values.Set("client_id", c.cfg.ClientID)
	if c.cfg.ClientSecretInBody && c.cfg.ClientSecret != "" {
		values.Set("client_secret", c.cfg.ClientSecret)
	}

	requestCtx := ctx
	cancel := func() {}
	if c.cfg.RequestTimeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
	}
	defer cancel()

	httpReq, err := http.NewRequestWithContext(
		requestCtx,
		http.MethodPost,
		c.cfg.TokenURL,
		strings.NewReader(values.Encode()),
	)
	if err != nil {
		return tokenEndpointPayload{}, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	if !c.cfg.ClientSecretInBody && c.cfg.ClientSecret != "" {
		httpReq.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	}

	response, err := c.httpClient.Do(httpReq)
	if err != nil {
		return tokenEndpointPayload{}, fmt.Errorf("provider: token request failed: %w", err)
	}
	defer response.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(response.Body, maxTokenResponseBodyBytes+1))
	if readErr != nil {
		return tokenEndpointPayload{}, fmt.Errorf("provider: read token response: %w", readErr)
	}
	if int64(len(body)) > maxTokenResponseBodyBytes {
		return tokenEndpointPayload{}, fmt.Errorf("provider: token response exceeds %d bytes", maxTokenResponseBodyBytes)
	}

	payload, parseErr := parseTokenPayload(body, response.Header.Get("Content-Type"))
	if parseErr != nil {
		return tokenEndpointPayload{}, fmt.Errorf("provider: decode token response: %w", parseErr)
	}
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return tokenEndpointPayload{}, fmt.Errorf(
			"provider: token endpoint error (%d): %s",
			response.StatusCode,
			describeTokenError(payload),
		)
	}
	if payload.ErrorCode != "" {
		return tokenEndpointPayload{}, fmt.Errorf("provider: token endpoint error: %s", describeTokenError(payload))
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return tokenEndpointPayload{}, fmt.Errorf("provider: token endpoint response missing access token")
	}
	return payload, nil
}

func describeTokenError(payload tokenEndpointPayload) string {
	if strings.TrimSpace(payload.ErrorDescription) != "" {
		return strings.TrimSpace(payload.ErrorDescription)
	}
	if strings.TrimSpace(payload.ErrorCode) != "" {
		return strings.TrimSpace(payload.ErrorCode)
	}
	return "unknown error"
}

func parseTokenPayload(body []byte, contentType string) (tokenEndpointPayload, error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if strings.Contains(contentType, "json") {
		return parseTokenPayloadJSON(body)
	}
	if strings.Contains(contentType, "x-www-form-urlencoded") || strings.Contains(contentType, "text/plain") {
		return parseTokenPayloadForm(body)
	}
	if payload, err := parseTokenPayloadJSON(body); err == nil {
		return payload, nil
	}
	return parseTokenPayloadForm(body)
}

func parseTokenPayloadJSON(body []byte) (tokenEndpointPayload, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return tokenEndpointPayload{}, fmt.Errorf("empty payload")
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return tokenEndpointPayload{}, err
	}
	payload := tokenEndpointPayload{
		AccessToken:      readAnyString(decoded["access_token"]),
		TokenType:        readAnyString(decoded["token_type"]),
		RefreshToken:     readAnyString(decoded["refresh_token"]),
		Scope:            readAnyString(decoded["scope"]),
		ErrorCode:        readAnyString(decoded["error"]),
		ErrorDescription: readAnyString(decoded["error_description"]),
	}
	if value, ok := decoded["expires_in"]; ok {
		expiresIn := readAnyInt64(value)
		payload.ExpiresIn = &expiresIn
	}
	return payload, nil
}

func parseTokenPayloadForm(body []byte) (tokenEndpointPayload, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return tokenEndpointPayload{}, fmt.Errorf("empty payload")
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return tokenEndpointPayload{}, err
	}
	payload := tokenEndpointPayload{
		AccessToken:      strings.TrimSpace(values.Get("access_token")),
		TokenType:        strings.TrimSpace(values.Get("token_type")),
		RefreshToken:     strings.TrimSpace(values.Get("refresh_token")),
		Scope:            strings.TrimSpace(values.Get("scope")),
		ErrorCode:        strings.TrimSpace(values.Get("error")),
		ErrorDescription: strings.TrimSpace(values.Get("error_description")),
	}
	if values.Has("expires_in") {
		expiresIn, _ := strconv.ParseInt(strings.TrimSpace(values.Get("expires_in")), 10, 64)
		payload.ExpiresIn = &expiresIn
	}
	return payload, nil
}

func readAnyString(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case fmt.Stringer:
		return strings.TrimSpace(typed.String())
	default:
		return ""
	}
}

func readAnyInt64(value any) int64 {
	switch typed := value.(type) {
	case int64:
		return typed
	case int:
		return int64(typed)
	case float64:
		return int64(typed)
	case json.Number:
		parsed, err := typed.Int64()
		if err != nil {
			return 0
		}
		return parsed
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

var _ core.TokenEndpointClient = (*Client)(nil)
