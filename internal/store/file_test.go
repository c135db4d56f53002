package store

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	fs := NewFileStore(WithBaseDir(t.TempDir()))
	if err := fs.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return fs
}

func TestFileStoreRoundTrip(t *testing.T) {
	fs := newTestStore(t)

	want := record{Name: "lint-fix-agent", Count: 3}
	if err := fs.Put("repo-a", KindTrust, "lint-fix-agent", want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var got record
	if err := fs.Get("repo-a", KindTrust, "lint-fix-agent", &got); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != want {
		t.Errorf("Get = %+v, want %+v", got, want)
	}
}

func TestFileStoreMissingIsNotFound(t *testing.T) {
	fs := newTestStore(t)

	var got record
	err := fs.Get("repo-a", KindWork, "missing", &got)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing = %v, want ErrNotFound", err)
	}
}

func TestFileStoreMalformedIsNotFound(t *testing.T) {
	fs := newTestStore(t)

	dir := filepath.Join(fs.BaseDir, "repo-a", "work")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	var got record
	if err := fs.Get("repo-a", KindWork, "bad", &got); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get malformed = %v, want ErrNotFound", err)
	}
}

func TestFileStoreInvalidID(t *testing.T) {
	fs := newTestStore(t)

	cases := []struct {
		id   string
		want error
	}{
		{"", ErrEmptyID},
		{"../escape", ErrIDInvalidChars},
		{"a/b", ErrIDInvalidChars},
	}

	for _, tc := range cases {
		if err := fs.Put("repo-a", KindWork, tc.id, record{}); !errors.Is(err, tc.want) {
			t.Errorf("Put(%q) = %v, want %v", tc.id, err, tc.want)
		}
	}
}

func TestFileStoreList(t *testing.T) {
	fs := newTestStore(t)

	for _, id := range []string{"charlie", "alpha", "bravo"} {
		if err := fs.Put("repo-a", KindImpact, id, record{Name: id}); err != nil {
			t.Fatalf("Put(%q): %v", id, err)
		}
	}

	ids, err := fs.List("repo-a", KindImpact)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	want := []string{"alpha", "bravo", "charlie"}
	if len(ids) != len(want) {
		t.Fatalf("List = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("List[%d] = %q, want %q", i, ids[i], want[i])
		}
	}

	// List of an empty kind is empty, not an error.
	empty, err := fs.List("repo-a", KindWork)
	if err != nil || empty != nil {
		t.Errorf("List empty = %v, %v, want nil, nil", empty, err)
	}
}

func TestFileStoreUpdateCreatesAndMutates(t *testing.T) {
	fs := newTestStore(t)

	var rec record
	err := fs.Update("repo-a", KindTrust, "agent", &rec, func(exists bool) error {
		if exists {
			t.Error("expected exists=false on first update")
		}
		rec.Name = "agent"
		rec.Count = 1
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	var again record
	err = fs.Update("repo-a", KindTrust, "agent", &again, func(exists bool) error {
		if !exists {
			t.Error("expected exists=true on second update")
		}
		again.Count++
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	var got record
	if err := fs.Get("repo-a", KindTrust, "agent", &got); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Count != 2 {
		t.Errorf("Count = %d, want 2", got.Count)
	}
}

func TestFileStoreUpdateSerializesWriters(t *testing.T) {
	fs := newTestStore(t)

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var rec record
			_ = fs.Update("repo-a", KindTrust, "agent", &rec, func(exists bool) error {
				rec.Count++
				return nil
			})
		}()
	}
	wg.Wait()

	var got record
	if err := fs.Get("repo-a", KindTrust, "agent", &got); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Count != writers {
		t.Errorf("Count = %d, want %d (lost updates)", got.Count, writers)
	}
}

func TestFileStoreDelete(t *testing.T) {
	fs := newTestStore(t)

	if err := fs.Put("repo-a", KindWork, "doc", record{}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := fs.Delete("repo-a", KindWork, "doc"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	// Deleting again is a no-op.
	if err := fs.Delete("repo-a", KindWork, "doc"); err != nil {
		t.Errorf("Delete missing = %v, want nil", err)
	}
}
