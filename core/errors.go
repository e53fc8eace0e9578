package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	VaultErrorBadInput           = "VAULT_BAD_INPUT"
	VaultErrorUnauthorized       = "VAULT_UNAUTHORIZED"
	VaultErrorNotFound           = "VAULT_NOT_FOUND"
	VaultErrorExchangeFailed     = "VAULT_EXCHANGE_FAILED"
	VaultErrorRefreshFailed      = "VAULT_REFRESH_FAILED"
	VaultErrorStorageUnavailable = "VAULT_STORAGE_UNAVAILABLE"
	VaultErrorRefreshLocked      = "VAULT_REFRESH_LOCKED"
	VaultErrorInternal           = "VAULT_INTERNAL_ERROR"
)

func vaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureVaultErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "record not found"), strings.Contains(msg, "no active record"):
		return newVaultError(err.Error(), goerrors.CategoryNotFound, VaultErrorNotFound)
	case strings.Contains(msg, "admin secret"):
		return newVaultError(err.Error(), goerrors.CategoryAuth, VaultErrorUnauthorized)
	case strings.Contains(msg, "lock already held"), strings.Contains(msg, "refresh lock"):
		return newVaultError(err.Error(), goerrors.CategoryConflict, VaultErrorRefreshLocked)
	case strings.Contains(msg, "storage"), strings.Contains(msg, "database"):
		return newVaultError(err.Error(), goerrors.CategoryOperation, VaultErrorStorageUnavailable)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "mismatch"):
		return newVaultError(err.Error(), goerrors.CategoryBadInput, VaultErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureVaultErrorEnvelope(mapped)
}

func newVaultError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureVaultErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureVaultErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = VaultHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultVaultTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultVaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return VaultErrorBadInput
	case goerrors.CategoryNotFound:
		return VaultErrorNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return VaultErrorUnauthorized
	case goerrors.CategoryConflict:
		return VaultErrorRefreshLocked
	case goerrors.CategoryExternal:
		return VaultErrorExchangeFailed
	case goerrors.CategoryOperation:
		return VaultErrorStorageUnavailable
	default:
		return VaultErrorInternal
	}
}

// VaultHTTPStatus maps error categories to status codes for callers embedding
// the vault behind an HTTP surface.
func VaultHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	case goerrors.CategoryOperation:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
