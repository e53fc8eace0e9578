package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-token-vault/core"
	"github.com/uptrace/bun"
)

type TokenRecordStore struct {
	db   *bun.DB
	repo repository.Repository[*tokenRecordRow]
}

func (s *TokenRecordStore) Get(ctx context.Context, userID string) (core.StoredRecord, error) {
	if s == nil || s.repo == nil {
		return core.StoredRecord{}, fmt.Errorf("sqlstore: token record store is not configured")
	}
	trimmed := strings.TrimSpace(userID)
	if trimmed == "" {
		return core.StoredRecord{}, fmt.Errorf("sqlstore: user id is required")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("user_id", "=", trimmed),
		repository.SelectBy("status", "=", string(core.RecordStatusActive)),
		repository.OrderBy("version DESC"),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.StoredRecord{}, err
	}
	if len(records) == 0 {
		return core.StoredRecord{}, fmt.Errorf("%w: user %q", core.ErrRecordNotFound, trimmed)
	}
	return records[0].toDomain(), nil
}

func (s *TokenRecordStore) SaveNewVersion(ctx context.Context, in core.SaveRecordInput) (core.StoredRecord, error) {
	if s == nil || s.repo == nil || s.db == nil {
		return core.StoredRecord{}, fmt.Errorf("sqlstore: token record store is not configured")
	}
	trimmed := strings.TrimSpace(in.UserID)
	if trimmed == "" {
		return core.StoredRecord{}, fmt.Errorf("sqlstore: user id is required")
	}

	status := in.Status
	if strings.TrimSpace(string(status)) == "" {
		status = core.RecordStatusActive
	}
	in.UserID = trimmed
	in.Status = status
	now := time.Now().UTC()

	var created core.StoredRecord
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		nextVersion, versionErr := s.nextVersion(ctx, tx, trimmed)
		if versionErr != nil {
			return versionErr
		}

		if status == core.RecordStatusActive {
			_, updateErr := tx.NewUpdate().
				Model((*tokenRecordRow)(nil)).
				Set("status = ?", string(core.RecordStatusRevoked)).
				Set("revocation_reason = ?", "rotated").
				Set("updated_at = ?", now).
				Where("user_id = ?", trimmed).
				Where("status = ?", string(core.RecordStatusActive)).
				Exec(ctx)
			if updateErr != nil {
				return updateErr
			}
		}

		record := newTokenRecordRow(in, nextVersion, now)
		inserted, createErr := s.repo.CreateTx(ctx, tx, record)
		if createErr != nil {
			return createErr
		}
		created = inserted.toDomain()
		return nil
	})
	if err != nil {
		return core.StoredRecord{}, err
	}

	return created, nil
}

func (s *TokenRecordStore) RevokeAll(ctx context.Context, userID string, reason string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: token record store is not configured")
	}
	trimmed := strings.TrimSpace(userID)
	if trimmed == "" {
		return fmt.Errorf("sqlstore: user id is required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "revoked"
	}

	_, err := s.db.NewUpdate().
		Model((*tokenRecordRow)(nil)).
		Set("status = ?", string(core.RecordStatusRevoked)).
		Set("revocation_reason = ?", reason).
		Set("updated_at = ?", time.Now().UTC()).
		Where("user_id = ?", trimmed).
		Where("status = ?", string(core.RecordStatusActive)).
		Exec(ctx)
	return err
}

func (s *TokenRecordStore) ListActive(ctx context.Context) ([]core.StoredRecord, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: token record store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("status", "=", string(core.RecordStatusActive)),
		repository.OrderBy("user_id ASC"),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.StoredRecord, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (s *TokenRecordStore) nextVersion(ctx context.Context, tx bun.Tx, userID string) (int, error) {
	var maxVersion int
	if err := tx.NewSelect().
		Model((*tokenRecordRow)(nil)).
		ColumnExpr("COALESCE(MAX(version), 0)").
		Where("?TableAlias.user_id = ?", userID).
		Scan(ctx, &maxVersion); err != nil {
		return 0, err
	}
	return maxVersion + 1, nil
}

var _ core.RecordStore = (*TokenRecordStore)(nil)
