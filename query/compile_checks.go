package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-token-vault/core"
)

var (
	_ gocmd.Querier[ListRecordsMessage, core.AdminListResult] = (*ListRecordsQuery)(nil)
	_ gocmd.Querier[TokenStateMessage, core.TokenState]       = (*TokenStateQuery)(nil)
)
