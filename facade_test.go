package tokenvault

import (
	"context"
	"testing"
	"time"

	vaultcommand "github.com/goliatone/go-token-vault/command"
	"github.com/goliatone/go-token-vault/core"
	vaultquery "github.com/goliatone/go-token-vault/query"
)

func TestNewFacade_WiresCommandsAndQueries(t *testing.T) {
	svc := &stubFacadeService{}

	facade, err := NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	commands := facade.Commands()
	if commands.ExchangeCode == nil || commands.ResolveToken == nil || commands.ForceRefresh == nil || commands.RemoveUser == nil {
		t.Fatalf("expected command handlers to be wired")
	}
	queries := facade.Queries()
	if queries.ListRecords == nil || queries.TokenState == nil {
		t.Fatalf("expected query handlers to be wired")
	}
	if facade.Service() == nil {
		t.Fatalf("expected service accessor")
	}
}

func TestFacade_CommandAndQueryDelegation(t *testing.T) {
	svc := &stubFacadeService{}

	facade, err := NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	if err := facade.Commands().RemoveUser.Execute(context.Background(), vaultcommand.RemoveUserMessage{
		Request: core.AdminRemoveRequest{AdminSecret: "sekret", UserID: "alice"},
	}); err != nil {
		t.Fatalf("execute remove user command: %v", err)
	}
	if svc.lastRemovedUserID != "alice" {
		t.Fatalf("unexpected remove delegation payload: %q", svc.lastRemovedUserID)
	}

	listing, err := facade.Queries().ListRecords.Query(context.Background(), vaultquery.ListRecordsMessage{
		Request: core.AdminListRequest{AdminSecret: "sekret"},
	})
	if err != nil {
		t.Fatalf("query list records: %v", err)
	}
	if len(listing.Records) != 1 || listing.Records[0].UserID != "bob" {
		t.Fatalf("unexpected list records result: %#v", listing)
	}

	state, err := facade.Queries().TokenState.Query(context.Background(), vaultquery.TokenStateMessage{UserID: "bob"})
	if err != nil {
		t.Fatalf("query token state: %v", err)
	}
	if !state.HasAccessToken {
		t.Fatalf("unexpected token state result: %#v", state)
	}
}

func TestNewFacade_RequiresService(t *testing.T) {
	facade, err := NewFacade(nil)
	if err == nil {
		t.Fatalf("expected nil service error")
	}
	if facade != nil {
		t.Fatalf("expected nil facade on error")
	}
}

func TestCoreServiceSatisfiesCommandQueryService(t *testing.T) {
	var service *core.Service
	var _ CommandQueryService = service
}

type stubFacadeService struct {
	lastRemovedUserID string
}

func (s *stubFacadeService) StoreNewToken(context.Context, core.StoreTokenRequest) (core.StoreTokenResult, error) {
	return core.StoreTokenResult{}, nil
}

func (s *stubFacadeService) GetValidToken(context.Context, string) (core.AccessTokenResult, error) {
	return core.AccessTokenResult{}, nil
}

func (s *stubFacadeService) AdminForceRefresh(context.Context, core.AdminRefreshRequest) (core.RefreshResult, error) {
	return core.RefreshResult{Refreshed: true}, nil
}

func (s *stubFacadeService) AdminRemove(_ context.Context, req core.AdminRemoveRequest) error {
	s.lastRemovedUserID = req.UserID
	return nil
}

func (s *stubFacadeService) AdminListAll(context.Context, core.AdminListRequest) (core.AdminListResult, error) {
	return core.AdminListResult{Records: []core.TokenRecord{{
		UserID:      "bob",
		AccessToken: "at-1",
		ExpiresIn:   3600,
		IssuedAt:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}}}, nil
}

func (s *stubFacadeService) TokenState(context.Context, string) (core.TokenState, error) {
	return core.TokenState{HasAccessToken: true}, nil
}
