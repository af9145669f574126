package persistence

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
)

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "state", "records.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()

	if _, ok, err := store.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected clean miss, ok=%v err=%v", ok, err)
	}

	payload := json.RawMessage(`{"name":"Ana"}`)
	if err := store.Set(ctx, "prof:u1", payload); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, ok, err := store.Get(ctx, "prof:u1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if string(got) != string(payload) {
		t.Fatalf("unexpected payload: %s", got)
	}

	// Overwrite replaces in place.
	if err := store.Set(ctx, "prof:u1", json.RawMessage(`{"name":"Bia"}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, _, _ = store.Get(ctx, "prof:u1")
	if string(got) != `{"name":"Bia"}` {
		t.Fatalf("expected overwrite, got %s", got)
	}

	if err := store.Delete(ctx, "prof:u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "prof:u1"); ok {
		t.Fatalf("expected miss after delete")
	}
}

func TestSQLiteStore_ListKeysWithPrefix(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()

	for _, key := range []string{"sess:u1:a", "sess:u1:b", "sess:u2:a", "prof:u1"} {
		if err := store.Set(ctx, key, json.RawMessage(`{}`)); err != nil {
			t.Fatalf("set %s: %v", key, err)
		}
	}

	keys, err := store.ListKeysWithPrefix(ctx, "sess:u1:")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(keys) != 2 || keys[0] != "sess:u1:a" || keys[1] != "sess:u1:b" {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "records.db")

	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Set(ctx, "behav:u1", json.RawMessage(`{"topics":1}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	store2, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store2.Close()
	got, ok, err := store2.Get(ctx, "behav:u1")
	if err != nil || !ok {
		t.Fatalf("get after reopen: ok=%v err=%v", ok, err)
	}
	if string(got) != `{"topics":1}` {
		t.Fatalf("unexpected payload after reopen: %s", got)
	}
}

func TestMemoryStore_PrefixAndIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	payload := json.RawMessage(`{"v":1}`)
	if err := store.Set(ctx, "sess:u1:a", payload); err != nil {
		t.Fatalf("set: %v", err)
	}
	// Mutating the caller's slice must not corrupt the stored copy.
	payload[5] = '9'

	got, ok, _ := store.Get(ctx, "sess:u1:a")
	if !ok || string(got) != `{"v":1}` {
		t.Fatalf("stored value was not isolated: %s", got)
	}

	keys, _ := store.ListKeysWithPrefix(ctx, "sess:")
	if len(keys) != 1 {
		t.Fatalf("unexpected keys: %v", keys)
	}
}
