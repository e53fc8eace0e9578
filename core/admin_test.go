package core

import (
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestAdminGuardAuthorize(t *testing.T) {
	guard := NewAdminGuard("sekret")

	if err := guard.Authorize("sekret"); err != nil {
		t.Fatalf("matching secret should authorize: %v", err)
	}

	err := guard.Authorize("wrong")
	if err == nil {
		t.Fatalf("expected mismatch to fail")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected go-errors type, got %T", err)
	}
	if richErr.Category != goerrors.CategoryAuth {
		t.Fatalf("expected auth category, got %q", richErr.Category)
	}
	if richErr.TextCode != VaultErrorUnauthorized {
		t.Fatalf("expected unauthorized text code, got %q", richErr.TextCode)
	}
}

func TestAdminGuardFailsClosedWithoutSecret(t *testing.T) {
	cases := []struct {
		name  string
		guard *AdminGuard
	}{
		{name: "empty_secret", guard: NewAdminGuard("  ")},
		{name: "nil_guard", guard: nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.guard.Authorize(""); err == nil {
				t.Fatalf("unconfigured guard must reject every caller")
			}
		})
	}
}

func TestAdminGuardStringRedacts(t *testing.T) {
	guard := NewAdminGuard("sekret")
	if got := guard.String(); got != "[REDACTED]" {
		t.Fatalf("expected redacted string, got %q", got)
	}
}
