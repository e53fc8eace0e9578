package sqlstore_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"testing"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-token-vault/core"
	vaultmigrations "github.com/goliatone/go-token-vault/migrations"
	sqlstore "github.com/goliatone/go-token-vault/store/sql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type testPersistenceConfig struct {
	driver string
	server string
}

func (c testPersistenceConfig) GetDebug() bool {
	return false
}

func (c testPersistenceConfig) GetDriver() string {
	return c.driver
}

func (c testPersistenceConfig) GetServer() string {
	return c.server
}

func (c testPersistenceConfig) GetPingTimeout() time.Duration {
	return time.Second
}

func (c testPersistenceConfig) GetOtelIdentifier() string {
	return "go-token-vault-tests"
}

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	var tableName string
	if err := client.DB().NewRaw(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
		"vault_token_records",
	).Scan(context.Background(), &tableName); err != nil {
		t.Fatalf("query sqlite master: %v", err)
	}
	if tableName != "vault_token_records" {
		t.Fatalf("expected vault_token_records table, got %q", tableName)
	}
}

func TestTokenRecordStore_VersioningAndActiveLookup(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}

	store := factory.RecordStore()
	if store == nil {
		t.Fatalf("expected record store from factory")
	}

	if _, err := store.Get(ctx, "alice"); !errors.Is(err, core.ErrRecordNotFound) {
		t.Fatalf("expected not found before first save, got %v", err)
	}

	first, err := store.SaveNewVersion(ctx, core.SaveRecordInput{
		UserID:           "alice",
		EncryptedPayload: []byte("cipher-v1"),
		PayloadFormat:    core.RecordPayloadFormatJSONV1,
		PayloadVersion:   core.RecordPayloadVersionV1,
		ExpiresAt:        time.Now().UTC().Add(time.Hour),
		Refreshable:      true,
		Status:           core.RecordStatusActive,
	})
	if err != nil {
		t.Fatalf("save first record: %v", err)
	}
	if first.Version != 1 {
		t.Fatalf("expected first record version=1, got %d", first.Version)
	}

	second, err := store.SaveNewVersion(ctx, core.SaveRecordInput{
		UserID:           "alice",
		EncryptedPayload: []byte("cipher-v2"),
		PayloadFormat:    core.RecordPayloadFormatJSONV1,
		PayloadVersion:   core.RecordPayloadVersionV1,
		ExpiresAt:        time.Now().UTC().Add(2 * time.Hour),
		Refreshable:      true,
		Status:           core.RecordStatusActive,
	})
	if err != nil {
		t.Fatalf("save second record: %v", err)
	}
	if second.Version != 2 {
		t.Fatalf("expected second record version=2, got %d", second.Version)
	}

	active, err := store.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("get active record: %v", err)
	}
	if active.Version != 2 {
		t.Fatalf("expected active record version=2, got %d", active.Version)
	}
	if string(active.EncryptedPayload) != "cipher-v2" {
		t.Fatalf("expected latest payload cipher-v2, got %q", active.EncryptedPayload)
	}
	if active.Status != core.RecordStatusActive {
		t.Fatalf("expected active status, got %q", active.Status)
	}
}

func TestTokenRecordStore_RevokeAllRemovesActiveLookup(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.RecordStore()

	if _, err := store.SaveNewVersion(ctx, core.SaveRecordInput{
		UserID:           "bob",
		EncryptedPayload: []byte("cipher-v1"),
		ExpiresAt:        time.Now().UTC().Add(time.Hour),
		Refreshable:      true,
		Status:           core.RecordStatusActive,
	}); err != nil {
		t.Fatalf("save record: %v", err)
	}

	if err := store.RevokeAll(ctx, "bob", "removed by admin"); err != nil {
		t.Fatalf("revoke all: %v", err)
	}

	if _, err := store.Get(ctx, "bob"); !errors.Is(err, core.ErrRecordNotFound) {
		t.Fatalf("expected not found after revoke, got %v", err)
	}

	active, err := store.ListActive(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected no active records after revoke, got %d", len(active))
	}
}

func TestTokenRecordStore_ListActiveReturnsLatestPerUser(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.RecordStore()

	for _, userID := range []string{"carol", "alice", "bob"} {
		for i := 0; i < 2; i++ {
			if _, err := store.SaveNewVersion(ctx, core.SaveRecordInput{
				UserID:           userID,
				EncryptedPayload: []byte(fmt.Sprintf("cipher-%s-%d", userID, i+1)),
				ExpiresAt:        time.Now().UTC().Add(time.Hour),
				Refreshable:      true,
				Status:           core.RecordStatusActive,
			}); err != nil {
				t.Fatalf("save record for %s: %v", userID, err)
			}
		}
	}

	active, err := store.ListActive(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 3 {
		t.Fatalf("expected 3 active records, got %d", len(active))
	}
	expectedOrder := []string{"alice", "bob", "carol"}
	for i, record := range active {
		if record.UserID != expectedOrder[i] {
			t.Fatalf("expected user %q at index %d, got %q", expectedOrder[i], i, record.UserID)
		}
		if record.Version != 2 {
			t.Fatalf("expected latest version 2 for %s, got %d", record.UserID, record.Version)
		}
	}
}

func TestTokenRecordStore_ConcurrentDistinctUsersPersistIndependently(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.RecordStore()

	userIDs := []string{"user-1", "user-2", "user-3", "user-4"}
	var wg sync.WaitGroup
	errCh := make(chan error, len(userIDs))
	for _, userID := range userIDs {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			_, saveErr := store.SaveNewVersion(ctx, core.SaveRecordInput{
				UserID:           userID,
				EncryptedPayload: []byte("cipher-" + userID),
				ExpiresAt:        time.Now().UTC().Add(time.Hour),
				Refreshable:      true,
				Status:           core.RecordStatusActive,
			})
			errCh <- saveErr
		}(userID)
	}
	wg.Wait()
	close(errCh)
	for saveErr := range errCh {
		if saveErr != nil {
			t.Fatalf("concurrent save: %v", saveErr)
		}
	}

	active, err := store.ListActive(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != len(userIDs) {
		t.Fatalf("expected %d active records, got %d", len(userIDs), len(active))
	}
}

func TestTokenRecordStore_PostgresRoundTrip(t *testing.T) {
	dsn := os.Getenv("TOKEN_VAULT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TOKEN_VAULT_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open postgres db: %v", err)
	}
	defer func() { _ = sqlDB.Close() }()

	cfg := testPersistenceConfig{driver: "postgres", server: dsn}
	client, err := persistence.New(cfg, sqlDB, pgdialect.New())
	if err != nil {
		t.Fatalf("new persistence client: %v", err)
	}
	defer func() { _ = client.Close() }()

	if _, err := vaultmigrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != vaultmigrations.DialectPostgres {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, vaultmigrations.WithValidationTargets(vaultmigrations.DialectPostgres)); err != nil {
		t.Fatalf("register migrations: %v", err)
	}
	if err := client.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.RecordStore()

	userID := fmt.Sprintf("pg-user-%d", time.Now().UnixNano())
	created, err := store.SaveNewVersion(ctx, core.SaveRecordInput{
		UserID:           userID,
		EncryptedPayload: []byte("pg-cipher-v1"),
		ExpiresAt:        time.Now().UTC().Add(time.Hour),
		Refreshable:      true,
		Status:           core.RecordStatusActive,
	})
	if err != nil {
		t.Fatalf("save record: %v", err)
	}
	if created.Version != 1 {
		t.Fatalf("expected version=1, got %d", created.Version)
	}

	fetched, err := store.Get(ctx, userID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if string(fetched.EncryptedPayload) != "pg-cipher-v1" {
		t.Fatalf("expected persisted payload, got %q", fetched.EncryptedPayload)
	}

	if err := store.RevokeAll(ctx, userID, "test cleanup"); err != nil {
		t.Fatalf("revoke all: %v", err)
	}
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:token-vault-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := testPersistenceConfig{
		driver: "sqlite3",
		server: dsn,
	}
	client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}

	ctx := context.Background()
	_, err = vaultmigrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != vaultmigrations.DialectSQLite {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, vaultmigrations.WithValidationTargets(vaultmigrations.DialectSQLite))
	if err != nil {
		_ = client.Close()
		t.Fatalf("register migrations: %v", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		t.Fatalf("migrate: %v", err)
	}

	return client, func() {
		_ = client.Close()
	}
}
