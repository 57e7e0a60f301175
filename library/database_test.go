package library

import (
	"path/filepath"
	"reflect"
	"testing"
)

func tempDB(t *testing.T) (*Database, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := NewDatabase(path)
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, path
}

func TestDatabaseEmptyLoad(t *testing.T) {
	db, _ := tempDB(t)
	snap, err := db.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.Books) != 0 || len(snap.Members) != 0 {
		t.Fatalf("want empty snapshot, got %d books %d members", len(snap.Books), len(snap.Members))
	}
}

func TestDatabaseRoundTrip(t *testing.T) {
	db, path := tempDB(t)
	original := populate(t, db)
	want := original.Snapshot()
	db.Close()

	reopened, err := NewDatabase(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	store, err := NewStore(reopened)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := store.Snapshot(); !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestDatabaseSaveReplacesState(t *testing.T) {
	db, _ := tempDB(t)
	populate(t, db)

	if err := db.Save(&Snapshot{}); err != nil {
		t.Fatalf("save: %v", err)
	}
	snap, err := db.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.Books) != 0 || len(snap.Members) != 0 {
		t.Fatalf("old rows survived a replace")
	}
}

func TestDatabaseRejectsBrokenInvariant(t *testing.T) {
	db, _ := tempDB(t)
	bad := &Snapshot{Books: []*Book{{ISBN: "1", Title: "T", TotalCopies: 1, AvailableCopies: 2}}}
	if err := db.Save(bad); err == nil {
		t.Fatalf("expected CHECK constraint failure")
	}
	snap, err := db.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.Books) != 0 {
		t.Fatalf("failed save must roll back")
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	_, path := tempDB(t)
	for i := 0; i < 2; i++ {
		db, err := NewDatabase(path)
		if err != nil {
			t.Fatalf("open #%d: %v", i, err)
		}
		db.Close()
	}
}
