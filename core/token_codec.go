package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	RecordPayloadFormatJSONV1 = "vault_token_json"
	RecordPayloadVersionV1    = 1
)

type JSONTokenCodec struct{}

func (JSONTokenCodec) Format() string {
	return RecordPayloadFormatJSONV1
}

func (JSONTokenCodec) Version() int {
	return RecordPayloadVersionV1
}

type jsonTokenPayload struct {
	UserID       string         `json:"user_id,omitempty"`
	AccessToken  string         `json:"access_token,omitempty"`
	RefreshToken string         `json:"refresh_token,omitempty"`
	ExpiresIn    int64          `json:"expires_in"`
	IssuedAtMS   int64          `json:"issued_at"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

func (JSONTokenCodec) Encode(record TokenRecord) ([]byte, error) {
	payload := jsonTokenPayload{
		UserID:       strings.TrimSpace(record.UserID),
		AccessToken:  strings.TrimSpace(record.AccessToken),
		RefreshToken: strings.TrimSpace(record.RefreshToken),
		ExpiresIn:    record.ExpiresIn,
		IssuedAtMS:   record.IssuedAt.UTC().UnixMilli(),
		Metadata:     copyAnyMap(record.Metadata),
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("core: encode token payload: %w", err)
	}
	return encoded, nil
}

func (JSONTokenCodec) Decode(payload []byte) (TokenRecord, error) {
	if len(payload) == 0 {
		return TokenRecord{}, fmt.Errorf("core: token payload is empty")
	}
	decoded := jsonTokenPayload{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return TokenRecord{}, fmt.Errorf("core: decode token payload: %w", err)
	}
	return TokenRecord{
		UserID:       strings.TrimSpace(decoded.UserID),
		AccessToken:  strings.TrimSpace(decoded.AccessToken),
		RefreshToken: strings.TrimSpace(decoded.RefreshToken),
		ExpiresIn:    decoded.ExpiresIn,
		IssuedAt:     time.UnixMilli(decoded.IssuedAtMS).UTC(),
		Metadata:     copyAnyMap(decoded.Metadata),
	}, nil
}

func copyAnyMap(input map[string]any) map[string]any {
	if len(input) == 0 {
		return nil
	}
	out := make(map[string]any, len(input))
	for key, value := range input {
		out[key] = value
	}
	return out
}

var _ TokenCodec = JSONTokenCodec{}
