package sqlstore

import (
	"time"

	"github.com/goliatone/go-token-vault/core"
)

func newTokenRecordRow(in core.SaveRecordInput, version int, now time.Time) *tokenRecordRow {
	payloadFormat := in.PayloadFormat
	if payloadFormat == "" {
		payloadFormat = core.RecordPayloadFormatJSONV1
	}
	payloadVersion := in.PayloadVersion
	if payloadVersion <= 0 {
		payloadVersion = core.RecordPayloadVersionV1
	}
	return &tokenRecordRow{
		UserID:           in.UserID,
		Version:          version,
		EncryptedPayload: append([]byte(nil), in.EncryptedPayload...),
		PayloadFormat:    payloadFormat,
		PayloadVersion:   payloadVersion,
		ExpiresAt:        in.ExpiresAt.UTC(),
		Refreshable:      in.Refreshable,
		Status:           string(in.Status),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func (r *tokenRecordRow) toDomain() core.StoredRecord {
	if r == nil {
		return core.StoredRecord{}
	}
	return core.StoredRecord{
		ID:               r.ID,
		UserID:           r.UserID,
		Version:          r.Version,
		EncryptedPayload: append([]byte(nil), r.EncryptedPayload...),
		PayloadFormat:    r.PayloadFormat,
		PayloadVersion:   r.PayloadVersion,
		ExpiresAt:        r.ExpiresAt,
		Refreshable:      r.Refreshable,
		Status:           core.RecordStatus(r.Status),
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}
