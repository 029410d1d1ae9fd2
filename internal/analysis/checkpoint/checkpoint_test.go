package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type testState struct {
	Names []string `json:"names"`
}

func newTestManager(t *testing.T, opts ...Option) *Manager[testState] {
	t.Helper()
	m, err := NewManager[testState](t.TempDir(), opts...)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m := newTestManager(t)

	saved := Checkpoint[testState]{
		BookID:      1,
		ChapterID:   2,
		ContentHash: "abc123",
		Timestamp:   time.Now().UnixMilli(),
		BatchCursor: 3,
		State:       testState{Names: []string{"Alice", "Bob"}},
	}
	if out := m.Save(saved); !out.OK {
		t.Fatalf("save failed: %v", out.Err)
	}

	loaded := m.Load(1, 2, "abc123")
	if loaded == nil {
		t.Fatal("expected checkpoint, got nil")
	}
	if loaded.BatchCursor != 3 {
		t.Errorf("expected cursor 3, got %d", loaded.BatchCursor)
	}
	if len(loaded.State.Names) != 2 || loaded.State.Names[0] != "Alice" {
		t.Errorf("unexpected state: %+v", loaded.State)
	}
}

func TestLoadMissing(t *testing.T) {
	m := newTestManager(t)
	if cp := m.Load(9, 9, "abc123"); cp != nil {
		t.Errorf("expected nil for missing checkpoint, got %+v", cp)
	}
}

func TestLoadHashMismatchDeletes(t *testing.T) {
	m := newTestManager(t)

	m.Save(Checkpoint[testState]{
		BookID: 1, ChapterID: 2,
		ContentHash: "abc123",
		Timestamp:   time.Now().UnixMilli(),
	})

	if cp := m.Load(1, 2, "xyz999"); cp != nil {
		t.Fatalf("expected nil on hash mismatch, got %+v", cp)
	}
	if m.Exists(1, 2) {
		t.Error("expected mismatched checkpoint file to be deleted")
	}
}

func TestLoadExpiredDeletes(t *testing.T) {
	m := newTestManager(t, WithExpiry(24*time.Hour))

	// Saved 25 hours ago.
	m.Save(Checkpoint[testState]{
		BookID: 1, ChapterID: 2,
		ContentHash: "abc123",
		Timestamp:   time.Now().Add(-25 * time.Hour).UnixMilli(),
	})

	if cp := m.Load(1, 2, "abc123"); cp != nil {
		t.Fatalf("expected nil for expired checkpoint, got %+v", cp)
	}
	if m.Exists(1, 2) {
		t.Error("expected expired checkpoint file to be deleted")
	}
}

func TestLoadWithinExpiry(t *testing.T) {
	m := newTestManager(t, WithExpiry(24*time.Hour))

	m.Save(Checkpoint[testState]{
		BookID: 1, ChapterID: 2,
		ContentHash: "abc123",
		Timestamp:   time.Now().Add(-1 * time.Hour).UnixMilli(),
	})

	if cp := m.Load(1, 2, "abc123"); cp == nil {
		t.Fatal("expected checkpoint saved 1h ago with matching hash")
	}
}

func TestLoadCorruptDeletes(t *testing.T) {
	m := newTestManager(t)

	path := filepath.Join(m.Dir(), "book_1_chapter_2.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if cp := m.Load(1, 2, "abc123"); cp != nil {
		t.Fatalf("expected nil for corrupt checkpoint, got %+v", cp)
	}
	if m.Exists(1, 2) {
		t.Error("expected corrupt checkpoint file to be deleted")
	}
}

func TestSaveIsAtomic(t *testing.T) {
	m := newTestManager(t)

	m.Save(Checkpoint[testState]{
		BookID: 1, ChapterID: 2,
		ContentHash: "abc123",
		Timestamp:   time.Now().UnixMilli(),
	})

	// No temp artifact left behind and the file is complete JSON.
	entries, err := os.ReadDir(m.Dir())
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}

	data, err := os.ReadFile(filepath.Join(m.Dir(), "book_1_chapter_2.json"))
	if err != nil {
		t.Fatal(err)
	}
	var cp Checkpoint[testState]
	if err := json.Unmarshal(data, &cp); err != nil {
		t.Errorf("checkpoint file is not valid JSON: %v", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	m := newTestManager(t)

	m.Save(Checkpoint[testState]{
		BookID: 1, ChapterID: 2,
		ContentHash: "abc123",
		Timestamp:   time.Now().UnixMilli(),
	})
	m.Delete(1, 2)
	if m.Exists(1, 2) {
		t.Error("expected checkpoint gone after delete")
	}
	// Second delete is a no-op.
	m.Delete(1, 2)
}

func TestList(t *testing.T) {
	m := newTestManager(t)

	for i := int64(0); i < 3; i++ {
		m.Save(Checkpoint[testState]{
			BookID: 1, ChapterID: i,
			ContentHash: "abc123",
			Timestamp:   time.Now().UnixMilli(),
		})
	}

	if got := len(m.List()); got != 3 {
		t.Errorf("expected 3 checkpoints, got %d", got)
	}
}

func TestComputeContentHash(t *testing.T) {
	h1 := ComputeContentHash([]string{"para one", "para two"})
	h2 := ComputeContentHash([]string{"para one", "para two"})
	h3 := ComputeContentHash([]string{"para one", "changed"})

	if len(h1) != 16 {
		t.Errorf("expected 16-char hash, got %d chars", len(h1))
	}
	if h1 != h2 {
		t.Error("hash is not deterministic")
	}
	if h1 == h3 {
		t.Error("different content produced the same hash")
	}
}
