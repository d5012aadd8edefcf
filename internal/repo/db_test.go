package repo

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zbx-rc.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer Close(db)

	if err := CreateReply(db, "msg-1", 1, 2, "room-1"); err != nil {
		t.Fatalf("CreateReply on fresh store: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("store file missing: %v", err)
	}
}

func TestOpen_RecoversFromCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zbx-rc.db")
	if err := os.WriteFile(path, []byte("this is not a database"), 0o600); err != nil {
		t.Fatalf("write garbage: %v", err)
	}

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open should self-heal a corrupt store: %v", err)
	}
	defer Close(db)

	// The recreated store is empty and writable.
	if _, err := FindByTriggerEvent(db, 1, 2); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound in recreated store, got %v", err)
	}
	if err := CreateReply(db, "msg-1", 1, 2, "room-1"); err != nil {
		t.Fatalf("CreateReply after recovery: %v", err)
	}
}

func TestOpen_ReopensExistingStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zbx-rc.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := CreateReply(db, "msg-1", 1, 2, "room-1"); err != nil {
		t.Fatalf("CreateReply: %v", err)
	}
	Close(db)

	db2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer Close(db2)

	r, err := FindByTriggerEvent(db2, 1, 2)
	if err != nil {
		t.Fatalf("FindByTriggerEvent after reopen: %v", err)
	}
	if r.ID != "msg-1" {
		t.Fatalf("unexpected record after reopen: %+v", r)
	}
}
