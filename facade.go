package tokenvault

import (
	"fmt"

	vaultcommand "github.com/goliatone/go-token-vault/command"
	vaultquery "github.com/goliatone/go-token-vault/query"
)

type CommandQueryService interface {
	vaultcommand.MutatingService
	vaultquery.AdminReader
	vaultquery.TokenStateReader
}

type Commands struct {
	ExchangeCode *vaultcommand.ExchangeCodeCommand
	ResolveToken *vaultcommand.ResolveTokenCommand
	ForceRefresh *vaultcommand.ForceRefreshCommand
	RemoveUser   *vaultcommand.RemoveUserCommand
}

type Queries struct {
	ListRecords *vaultquery.ListRecordsQuery
	TokenState  *vaultquery.TokenStateQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

func NewFacade(service CommandQueryService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("tokenvault: command/query service is required")
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		ExchangeCode: vaultcommand.NewExchangeCodeCommand(service),
		ResolveToken: vaultcommand.NewResolveTokenCommand(service),
		ForceRefresh: vaultcommand.NewForceRefreshCommand(service),
		RemoveUser:   vaultcommand.NewRemoveUserCommand(service),
	}
	facade.queries = Queries{
		ListRecords: vaultquery.NewListRecordsQuery(service),
		TokenState:  vaultquery.NewTokenStateQuery(service),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}
