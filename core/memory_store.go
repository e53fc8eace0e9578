package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryRecordStore keeps token record versions in process memory. It backs
// tests and single-process deployments; the SQL store is the durable option.
type MemoryRecordStore struct {
	mu      sync.Mutex
	records map[string][]StoredRecord
	nowFn   func() time.Time
	nextID  int
}

func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{
		records: make(map[string][]StoredRecord),
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryRecordStore) Get(_ context.Context, userID string) (StoredRecord, error) {
	if s == nil {
		return StoredRecord{}, fmt.Errorf("core: memory record store is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return StoredRecord{}, fmt.Errorf("core: user id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	versions := s.records[userID]
	for i := len(versions) - 1; i >= 0; i-- {
		if versions[i].Status == RecordStatusActive {
			return cloneStoredRecord(versions[i]), nil
		}
	}
	return StoredRecord{}, fmt.Errorf("%w: user %q", ErrRecordNotFound, userID)
}

func (s *MemoryRecordStore) SaveNewVersion(_ context.Context, in SaveRecordInput) (StoredRecord, error) {
	if s == nil {
		return StoredRecord{}, fmt.Errorf("core: memory record store is not configured")
	}
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return StoredRecord{}, fmt.Errorf("core: user id is required")
	}
	if len(in.EncryptedPayload) == 0 {
		return StoredRecord{}, fmt.Errorf("core: encrypted payload is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFn()
	versions := s.records[userID]
	maxVersion := 0
	for i := range versions {
		if versions[i].Version > maxVersion {
			maxVersion = versions[i].Version
		}
		if versions[i].Status == RecordStatusActive {
			versions[i].Status = RecordStatusRevoked
			versions[i].UpdatedAt = now
		}
	}

	status := in.Status
	if status == "" {
		status = RecordStatusActive
	}
	s.nextID++
	record := StoredRecord{
		ID:               fmt.Sprintf("mem-%d", s.nextID),
		UserID:           userID,
		Version:          maxVersion + 1,
		EncryptedPayload: append([]byte(nil), in.EncryptedPayload...),
		PayloadFormat:    in.PayloadFormat,
		PayloadVersion:   in.PayloadVersion,
		ExpiresAt:        in.ExpiresAt.UTC(),
		Refreshable:      in.Refreshable,
		Status:           status,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.records[userID] = append(versions, record)
	return cloneStoredRecord(record), nil
}

func (s *MemoryRecordStore) RevokeAll(_ context.Context, userID string, _ string) error {
	if s == nil {
		return fmt.Errorf("core: memory record store is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("core: user id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFn()
	versions := s.records[userID]
	for i := range versions {
		if versions[i].Status == RecordStatusActive {
			versions[i].Status = RecordStatusRevoked
			versions[i].UpdatedAt = now
		}
	}
	return nil
}

func (s *MemoryRecordStore) ListActive(_ context.Context) ([]StoredRecord, error) {
	if s == nil {
		return nil, fmt.Errorf("core: memory record store is not configured")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]StoredRecord, 0, len(s.records))
	for _, versions := range s.records {
		for i := len(versions) - 1; i >= 0; i-- {
			if versions[i].Status == RecordStatusActive {
				out = append(out, cloneStoredRecord(versions[i]))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func cloneStoredRecord(in StoredRecord) StoredRecord {
	out := in
	out.EncryptedPayload = append([]byte(nil), in.EncryptedPayload...)
	return out
}

var _ RecordStore = (*MemoryRecordStore)(nil)
