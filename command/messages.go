package command

import (
	"strings"

	"github.com/goliatone/go-token-vault/core"
)

const (
	TypeExchangeCode = "tokenvault.command.exchange_code"
	TypeResolveToken = "tokenvault.command.resolve_token"
	TypeForceRefresh = "tokenvault.command.admin.force_refresh"
	TypeRemoveUser   = "tokenvault.command.admin.remove_user"
)

type ExchangeCodeMessage struct {
	Request core.StoreTokenRequest
}

func (ExchangeCodeMessage) Type() string { return TypeExchangeCode }

func (m ExchangeCodeMessage) Validate() error {
	if strings.TrimSpace(m.Request.UserID) == "" {
		return commandValidationError("user_id", "user id is required")
	}
	if strings.TrimSpace(m.Request.Code) == "" {
		return commandValidationError("code", "authorization code is required")
	}
	return nil
}

type ResolveTokenMessage struct {
	UserID string
}

func (ResolveTokenMessage) Type() string { return TypeResolveToken }

func (m ResolveTokenMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return commandValidationError("user_id", "user id is required")
	}
	return nil
}

type ForceRefreshMessage struct {
	Request core.AdminRefreshRequest
}

func (ForceRefreshMessage) Type() string { return TypeForceRefresh }

func (m ForceRefreshMessage) Validate() error {
	if strings.TrimSpace(m.Request.UserID) == "" {
		return commandValidationError("user_id", "user id is required")
	}
	return nil
}

type RemoveUserMessage struct {
	Request core.AdminRemoveRequest
}

func (RemoveUserMessage) Type() string { return TypeRemoveUser }

func (m RemoveUserMessage) Validate() error {
	if strings.TrimSpace(m.Request.UserID) == "" {
		return commandValidationError("user_id", "user id is required")
	}
	return nil
}
