package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[ExchangeCodeMessage] = (*ExchangeCodeCommand)(nil)
	_ gocmd.Commander[ResolveTokenMessage] = (*ResolveTokenCommand)(nil)
	_ gocmd.Commander[ForceRefreshMessage] = (*ForceRefreshCommand)(nil)
	_ gocmd.Commander[RemoveUserMessage]   = (*RemoveUserCommand)(nil)
)
