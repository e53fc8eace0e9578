package core

import (
	"crypto/subtle"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// AdminGuard authorizes administrative calls against a shared secret. The
// comparison runs in constant time; an empty configured secret fails closed
// and rejects every caller.
type AdminGuard struct {
	secret []byte
}

func NewAdminGuard(secret string) *AdminGuard {
	return &AdminGuard{secret: []byte(strings.TrimSpace(secret))}
}

func (g *AdminGuard) Authorize(presented string) error {
	if g == nil || len(g.secret) == 0 {
		return adminUnauthorizedError("core: admin secret is not configured")
	}
	if subtle.ConstantTimeCompare(g.secret, []byte(presented)) != 1 {
		return adminUnauthorizedError("core: admin secret mismatch")
	}
	return nil
}

func adminUnauthorizedError(message string) error {
	return goerrors.New(message, goerrors.CategoryAuth).
		WithTextCode(VaultErrorUnauthorized).
		WithCode(VaultHTTPStatus(goerrors.CategoryAuth))
}

// String keeps the secret out of logs when a guard value ends up in a
// formatted field.
func (g *AdminGuard) String() string { return "[REDACTED]" }

var _ fmt.Stringer = (*AdminGuard)(nil)
