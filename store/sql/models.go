package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type tokenRecordRow struct {
	bun.BaseModel `bun:"table:vault_token_records,alias:vtr"`

	ID               string    `bun:"id,pk"`
	UserID           string    `bun:"user_id,notnull"`
	Version          int       `bun:"version,notnull"`
	EncryptedPayload []byte    `bun:"encrypted_payload,notnull"`
	PayloadFormat    string    `bun:"payload_format,notnull"`
	PayloadVersion   int       `bun:"payload_version,notnull"`
	ExpiresAt        time.Time `bun:"expires_at,notnull"`
	Refreshable      bool      `bun:"refreshable,notnull"`
	Status           string    `bun:"status,notnull"`
	RevocationReason string    `bun:"revocation_reason"`
	CreatedAt        time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt        time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
