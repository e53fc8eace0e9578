// Package query exposes read-only vault lookups as go-command query handlers.
package query

import (
	"context"

	"github.com/goliatone/go-token-vault/core"
)

type AdminReader interface {
	AdminListAll(ctx context.Context, req core.AdminListRequest) (core.AdminListResult, error)
}

type TokenStateReader interface {
	TokenState(ctx context.Context, userID string) (core.TokenState, error)
}

type ListRecordsQuery struct {
	reader AdminReader
}

func NewListRecordsQuery(reader AdminReader) *ListRecordsQuery {
	return &ListRecordsQuery{reader: reader}
}

func (q *ListRecordsQuery) Query(ctx context.Context, msg ListRecordsMessage) (core.AdminListResult, error) {
	if q == nil || q.reader == nil {
		return core.AdminListResult{}, queryDependencyError("query: admin reader is required")
	}
	return q.reader.AdminListAll(ctx, msg.Request)
}

type TokenStateQuery struct {
	reader TokenStateReader
}

func NewTokenStateQuery(reader TokenStateReader) *TokenStateQuery {
	return &TokenStateQuery{reader: reader}
}

func (q *TokenStateQuery) Query(ctx context.Context, msg TokenStateMessage) (core.TokenState, error) {
	if q == nil || q.reader == nil {
		return core.TokenState{}, queryDependencyError("query: token state reader is required")
	}
	return q.reader.TokenState(ctx, msg.UserID)
}
