package localstate

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "parley.db"))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNextIncrementsWithinDay(t *testing.T) {
	db := openTestDB(t)

	for want := 1; want <= 3; want++ {
		got, err := db.Next("3Feb26")
		if err != nil {
			t.Fatalf("next failed: %v", err)
		}
		if got != want {
			t.Errorf("Next = %d, want %d", got, want)
		}
	}
}

func TestNextResetsOnNewDay(t *testing.T) {
	db := openTestDB(t)

	for i := 0; i < 5; i++ {
		if _, err := db.Next("3Feb26"); err != nil {
			t.Fatalf("next failed: %v", err)
		}
	}

	got, err := db.Next("4Feb26")
	if err != nil {
		t.Fatalf("next failed: %v", err)
	}
	if got != 1 {
		t.Errorf("counter did not reset on new day: got %d", got)
	}
}

func TestCounterSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parley.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if _, err := db.Next("3Feb26"); err != nil {
		t.Fatalf("next failed: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db.Close()

	got, err := db.Next("3Feb26")
	if err != nil {
		t.Fatalf("next failed: %v", err)
	}
	if got != 2 {
		t.Errorf("counter lost across reopen: got %d", got)
	}
}
