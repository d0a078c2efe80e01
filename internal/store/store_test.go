package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_ReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		if _, err := s.db.Exec(`INSERT INTO runs (id, kind, status, started_at) VALUES (?, 'export', 'running', 0)`, "r"+string(rune('0'+i))); err != nil {
			t.Fatalf("insert iteration %d: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("runs = %d, want 3", n)
	}

	var index string
	err = s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name='idx_runs_kind_status'").Scan(&index)
	if err != nil {
		t.Errorf("v1 index not found: %v", err)
	}

	if v, err := s.pragmaValue("user_version"); err != nil || v != "1" {
		t.Errorf("user_version = %q (%v), want 1", v, err)
	}
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatal(err)
	}
	db.Close()

	_, err = Open(path)
	if err == nil {
		t.Fatal("expected error for newer schema, got nil")
	}
	if !strings.Contains(err.Error(), "newer than this build") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestOpen_MissingParentDirectory(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "state.db"))
	if err == nil {
		t.Error("expected error for missing parent directory, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name string
		want string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.pragmaValue(tt.name)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("%s = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

// createTestStore opens a fresh store in a temp dir with sequential ids.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.db")
	s, err := Open(path, WithIDGenerator(&counterIDs{}))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

type counterIDs struct{ n int }

func (c *counterIDs) Generate() string {
	c.n++
	return "run-" + string(rune('a'+c.n-1))
}
