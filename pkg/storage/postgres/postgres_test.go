package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rhuss/vzero/pkg/storage"
	"github.com/rhuss/vzero/pkg/tree"
)

func init() {
	// Point testcontainers at a podman machine when no Docker host is set.
	if os.Getenv("DOCKER_HOST") == "" {
		out, err := exec.Command("podman", "machine", "inspect", "--format", "{{.ConnectionInfo.PodmanSocket.Path}}").Output()
		if err == nil {
			if sock := strings.TrimSpace(string(out)); sock != "" {
				os.Setenv("DOCKER_HOST", "unix://"+sock)
			}
		}
	}
	if os.Getenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED") == "" {
		os.Setenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED", "true")
	}
}

// setupTestDB starts a PostgreSQL container and returns a migrated Store.
// Tests are skipped when no container runtime is available.
func setupTestDB(t *testing.T) *Store {
	t.Helper()

	if os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("SKIP_INTEGRATION=true, skipping PostgreSQL integration tests")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("vzero_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("skipping: could not start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("getting connection string: %v", err)
	}

	store, err := New(ctx, Config{DSN: connStr, MaxConns: 4, MigrateOnStart: true})
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

var base = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func makeTestMessage(id, chatID string, offset int) *storage.Message {
	return &storage.Message{
		ID:        id,
		ChatID:    chatID,
		Title:     "Greeting",
		Content:   tree.MustParse(`[[0,[["p",{},"Hello"]]],[1,"go","fmt.Println(1)"]]`),
		Complete:  true,
		CreatedAt: base.Add(time.Duration(offset) * time.Second),
	}
}

func TestPostgres_SaveAndGet(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	msg := makeTestMessage("msg_pg1", "chat_1", 0)
	if err := store.SaveMessage(ctx, msg); err != nil {
		t.Fatalf("SaveMessage: %v", err)
	}

	got, err := store.GetMessage(ctx, "msg_pg1")
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if diff := cmp.Diff(msg, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestPostgres_SaveErrored(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	msg := &storage.Message{ID: "msg_err", ChatID: "chat_1", Error: "reading stream: EOF", CreatedAt: base}
	if err := store.SaveMessage(ctx, msg); err != nil {
		t.Fatalf("SaveMessage: %v", err)
	}
	got, err := store.GetMessage(ctx, "msg_err")
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if got.Complete || got.Error != msg.Error {
		t.Errorf("Complete = %v, Error = %q", got.Complete, got.Error)
	}
	if got.Content == nil || got.Content.Len() != 0 {
		t.Errorf("Content = %#v, want empty tree", got.Content)
	}
}

func TestPostgres_Errors(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	if _, err := store.GetMessage(ctx, "msg_missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get missing: expected ErrNotFound, got %v", err)
	}
	if err := store.DeleteMessage(ctx, "msg_missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Delete missing: expected ErrNotFound, got %v", err)
	}

	store.SaveMessage(ctx, makeTestMessage("msg_dup", "chat_1", 0))
	if err := store.SaveMessage(ctx, makeTestMessage("msg_dup", "chat_1", 1)); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("duplicate save: expected ErrConflict, got %v", err)
	}

	if err := store.DeleteMessage(ctx, "msg_dup"); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	if _, err := store.GetMessage(ctx, "msg_dup"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("after delete: expected ErrNotFound, got %v", err)
	}
}

func TestPostgres_ListMessages(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	for i := range 5 {
		if err := store.SaveMessage(ctx, makeTestMessage(fmt.Sprintf("msg_%d", i), "chat_1", i)); err != nil {
			t.Fatal(err)
		}
	}
	store.SaveMessage(ctx, makeTestMessage("msg_other", "chat_2", 10))

	list, err := store.ListMessages(ctx, storage.ListOptions{ChatID: "chat_1", After: "msg_1", Limit: 2})
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	var ids []string
	for _, m := range list.Data {
		ids = append(ids, m.ID)
	}
	if diff := cmp.Diff([]string{"msg_2", "msg_3"}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	if !list.HasMore || list.FirstID != "msg_2" || list.LastID != "msg_3" {
		t.Errorf("page = %+v", list)
	}

	desc, err := store.ListMessages(ctx, storage.ListOptions{ChatID: "chat_1", Order: storage.OrderDesc, Limit: 10})
	if err != nil {
		t.Fatalf("ListMessages desc: %v", err)
	}
	if len(desc.Data) != 5 || desc.Data[0].ID != "msg_4" || desc.HasMore {
		t.Errorf("desc page = %d items, first %q, more %v", len(desc.Data), desc.FirstID, desc.HasMore)
	}

	none, err := store.ListMessages(ctx, storage.ListOptions{After: "msg_nope"})
	if err != nil {
		t.Fatalf("ListMessages unknown cursor: %v", err)
	}
	if len(none.Data) != 0 {
		t.Errorf("unknown cursor returned %d items", len(none.Data))
	}
}

func TestPostgres_MigrateIdempotent(t *testing.T) {
	store := setupTestDB(t)
	if err := store.migrate(context.Background()); err != nil {
		t.Errorf("second migrate: %v", err)
	}
	if err := store.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck: %v", err)
	}
}

func TestPendingMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/010_add_index.sql":       {Data: []byte("SELECT 1")},
		"migrations/002_add_column.sql":      {Data: []byte("SELECT 1")},
		"migrations/001_create_messages.sql": {Data: []byte("SELECT 1")},
		"migrations/README.md":               {Data: []byte("notes")},
		"migrations/nover.sql":               {Data: []byte("SELECT 1")},
		"migrations/abc_bad.sql":             {Data: []byte("SELECT 1")},
	}
	got, err := pendingMigrations(fsys)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, m := range got {
		names = append(names, m.name)
	}
	want := []string{"001_create_messages.sql", "002_add_column.sql", "010_add_index.sql"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestPendingMigrations_Embedded(t *testing.T) {
	got, err := pendingMigrations(migrationFiles)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) == 0 || got[0].version != 1 {
		t.Errorf("embedded migrations = %+v", got)
	}
}

func TestConfigDefaults(t *testing.T) {
	c := Config{MinConns: 10}
	c.defaults()
	if c.MaxConns != 5 || c.MinConns != 0 || c.MaxConnLifetime != 30*time.Minute {
		t.Errorf("defaults = %+v", c)
	}
}
