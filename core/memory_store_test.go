package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMemoryRecordStoreSaveNewVersionReplacesActive(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRecordStore()
	expires := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)

	first, err := store.SaveNewVersion(ctx, SaveRecordInput{
		UserID:           "alice",
		EncryptedPayload: []byte("v1"),
		PayloadFormat:    RecordPayloadFormatJSONV1,
		PayloadVersion:   RecordPayloadVersionV1,
		ExpiresAt:        expires,
		Refreshable:      true,
	})
	if err != nil {
		t.Fatalf("save v1: %v", err)
	}
	if first.Version != 1 || first.Status != RecordStatusActive {
		t.Fatalf("unexpected first version: %+v", first)
	}

	second, err := store.SaveNewVersion(ctx, SaveRecordInput{
		UserID:           "alice",
		EncryptedPayload: []byte("v2"),
		PayloadFormat:    RecordPayloadFormatJSONV1,
		PayloadVersion:   RecordPayloadVersionV1,
		ExpiresAt:        expires.Add(time.Hour),
		Refreshable:      true,
	})
	if err != nil {
		t.Fatalf("save v2: %v", err)
	}
	if second.Version != 2 {
		t.Fatalf("expected version 2, got %d", second.Version)
	}

	active, err := store.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(active.EncryptedPayload) != "v2" {
		t.Fatalf("expected latest payload, got %q", active.EncryptedPayload)
	}
}

func TestMemoryRecordStoreGetUnknownUser(t *testing.T) {
	store := NewMemoryRecordStore()
	_, err := store.Get(context.Background(), "nobody")
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestMemoryRecordStoreRevokeAll(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRecordStore()
	if _, err := store.SaveNewVersion(ctx, SaveRecordInput{
		UserID:           "alice",
		EncryptedPayload: []byte("v1"),
		ExpiresAt:        time.Now().Add(time.Hour),
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := store.RevokeAll(ctx, "alice", "removed by admin"); err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	if _, err := store.Get(ctx, "alice"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected not found after revoke, got %v", err)
	}

	listed, err := store.ListActive(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("expected no active records, got %d", len(listed))
	}
}

func TestMemoryRecordStoreConcurrentDistinctUsers(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRecordStore()
	users := []string{"alice", "bob", "carol", "dave"}

	var wg sync.WaitGroup
	for _, user := range users {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			if _, err := store.SaveNewVersion(ctx, SaveRecordInput{
				UserID:           user,
				EncryptedPayload: []byte("payload-" + user),
				ExpiresAt:        time.Now().Add(time.Hour),
			}); err != nil {
				t.Errorf("save %s: %v", user, err)
			}
		}(user)
	}
	wg.Wait()

	listed, err := store.ListActive(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != len(users) {
		t.Fatalf("expected %d records, got %d", len(users), len(listed))
	}
}
