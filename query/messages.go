package query

import (
	"strings"

	"github.com/goliatone/go-token-vault/core"
)

const (
	TypeListRecords = "tokenvault.query.records.list"
	TypeTokenState  = "tokenvault.query.token_state"
)

// ListRecordsMessage carries the admin secret untouched; authorization happens
// inside the service before any record access.
type ListRecordsMessage struct {
	Request core.AdminListRequest
}

func (ListRecordsMessage) Type() string { return TypeListRecords }

func (m ListRecordsMessage) Validate() error {
	return nil
}

type TokenStateMessage struct {
	UserID string
}

func (TokenStateMessage) Type() string { return TypeTokenState }

func (m TokenStateMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return queryValidationError("user_id", "user id is required")
	}
	return nil
}
