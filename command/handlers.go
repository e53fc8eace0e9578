// Package command exposes token lifecycle mutations as go-command message
// handlers. Admin secrets pass through untouched so authorization stays in the
// service, ahead of any record lookup.
package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-token-vault/core"
)

type MutatingService interface {
	StoreNewToken(ctx context.Context, req core.StoreTokenRequest) (core.StoreTokenResult, error)
	GetValidToken(ctx context.Context, userID string) (core.AccessTokenResult, error)
	AdminForceRefresh(ctx context.Context, req core.AdminRefreshRequest) (core.RefreshResult, error)
	AdminRemove(ctx context.Context, req core.AdminRemoveRequest) error
}

type ExchangeCodeCommand struct {
	service MutatingService
}

func NewExchangeCodeCommand(service MutatingService) *ExchangeCodeCommand {
	return &ExchangeCodeCommand{service: service}
}

func (c *ExchangeCodeCommand) Execute(ctx context.Context, msg ExchangeCodeMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: exchange code service is required")
	}
	out, err := c.service.StoreNewToken(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ResolveTokenCommand struct {
	service MutatingService
}

func NewResolveTokenCommand(service MutatingService) *ResolveTokenCommand {
	return &ResolveTokenCommand{service: service}
}

func (c *ResolveTokenCommand) Execute(ctx context.Context, msg ResolveTokenMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: resolve token service is required")
	}
	out, err := c.service.GetValidToken(ctx, msg.UserID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ForceRefreshCommand struct {
	service MutatingService
}

func NewForceRefreshCommand(service MutatingService) *ForceRefreshCommand {
	return &ForceRefreshCommand{service: service}
}

func (c *ForceRefreshCommand) Execute(ctx context.Context, msg ForceRefreshMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: force refresh service is required")
	}
	out, err := c.service.AdminForceRefresh(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RemoveUserCommand struct {
	service MutatingService
}

func NewRemoveUserCommand(service MutatingService) *RemoveUserCommand {
	return &RemoveUserCommand{service: service}
}

func (c *RemoveUserCommand) Execute(ctx context.Context, msg RemoveUserMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: remove user service is required")
	}
	return c.service.AdminRemove(ctx, msg.Request)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
