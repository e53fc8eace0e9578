package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-token-vault/core"
)

const tokenRecordCacheKeyPrefix = "go-token-vault::token_record::v1"

// CachedRecordStore caches per-user active-record reads in front of a base
// store. Writes go to the base store first and then drop the cached entry, so
// the next read refetches the new version.
type CachedRecordStore struct {
	base  core.RecordStore
	cache repositorycache.CacheService
}

func NewCachedRecordStore(
	base core.RecordStore,
	cacheService repositorycache.CacheService,
) (*CachedRecordStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base token record store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: token record cache service is required")
	}
	return &CachedRecordStore{base: base, cache: cacheService}, nil
}

// TokenRecordCacheKey returns the deterministic cache key for a user's active
// record: go-token-vault::token_record::v1::<user_id> with the user segment
// URL-path escaped after trimming.
func TokenRecordCacheKey(userID string) (string, error) {
	trimmed := strings.TrimSpace(userID)
	if trimmed == "" {
		return "", fmt.Errorf("sqlstore: user id is required")
	}
	return tokenRecordCacheKeyPrefix + "::" + url.PathEscape(trimmed), nil
}

func (s *CachedRecordStore) Get(ctx context.Context, userID string) (core.StoredRecord, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.StoredRecord{}, fmt.Errorf("sqlstore: cached token record store is not configured")
	}
	cacheKey, err := TokenRecordCacheKey(userID)
	if err != nil {
		return core.StoredRecord{}, err
	}

	record, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.StoredRecord, error) {
		fetched, fetchErr := s.base.Get(ctx, strings.TrimSpace(userID))
		if fetchErr != nil {
			return core.StoredRecord{}, fetchErr
		}
		return cloneStoredRecord(fetched), nil
	})
	if err != nil {
		return core.StoredRecord{}, err
	}
	return cloneStoredRecord(record), nil
}

func (s *CachedRecordStore) SaveNewVersion(ctx context.Context, in core.SaveRecordInput) (core.StoredRecord, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.StoredRecord{}, fmt.Errorf("sqlstore: cached token record store is not configured")
	}
	created, err := s.base.SaveNewVersion(ctx, in)
	if err != nil {
		return core.StoredRecord{}, err
	}
	if err := s.invalidate(ctx, created.UserID); err != nil {
		return core.StoredRecord{}, err
	}
	return created, nil
}

func (s *CachedRecordStore) RevokeAll(ctx context.Context, userID string, reason string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached token record store is not configured")
	}
	if err := s.base.RevokeAll(ctx, userID, reason); err != nil {
		return err
	}
	return s.invalidate(ctx, userID)
}

// ListActive always hits the base store; the cache only holds per-user reads.
func (s *CachedRecordStore) ListActive(ctx context.Context) ([]core.StoredRecord, error) {
	if s == nil || s.base == nil {
		return nil, fmt.Errorf("sqlstore: cached token record store is not configured")
	}
	return s.base.ListActive(ctx)
}

func (s *CachedRecordStore) invalidate(ctx context.Context, userID string) error {
	cacheKey, err := TokenRecordCacheKey(userID)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

func cloneStoredRecord(record core.StoredRecord) core.StoredRecord {
	cloned := record
	cloned.EncryptedPayload = append([]byte(nil), record.EncryptedPayload...)
	return cloned
}

var _ core.RecordStore = (*CachedRecordStore)(nil)
