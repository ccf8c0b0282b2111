package session_test

import (
	"errors"
	"os"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/fakeyudi/syllabus/internal/session"
)

// generateTime truncates to seconds so the JSON form round-trips exactly.
func generateTime(t *rapid.T) time.Time {
	sec := rapid.Int64Range(0, 1_700_000_000).Draw(t, "unix_sec")
	return time.Unix(sec, 0).UTC()
}

func TestStatePersistenceRoundTrip(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	store, err := session.NewStateStore()
	if err != nil {
		t.Fatalf("NewStateStore: %v", err)
	}

	rapid.Check(t, func(t *rapid.T) {
		original := &session.State{
			CurrentSessionID: rapid.StringN(1, 36, -1).Draw(t, "id"),
			BackendURL:       rapid.SampledFrom([]string{"", "http://127.0.0.1:8000"}).Draw(t, "url"),
			UpdatedAt:        generateTime(t),
		}
		if err := store.Save(original); err != nil {
			t.Fatalf("Save: %v", err)
		}
		loaded, err := store.Load()
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if loaded.CurrentSessionID != original.CurrentSessionID {
			t.Errorf("CurrentSessionID: got %q, want %q", loaded.CurrentSessionID, original.CurrentSessionID)
		}
		if loaded.BackendURL != original.BackendURL {
			t.Errorf("BackendURL: got %q, want %q", loaded.BackendURL, original.BackendURL)
		}
		if !loaded.UpdatedAt.Equal(original.UpdatedAt) {
			t.Errorf("UpdatedAt: got %v, want %v", loaded.UpdatedAt, original.UpdatedAt)
		}
	})
}

func TestLoadReturnsErrNoState(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	store, err := session.NewStateStore()
	if err != nil {
		t.Fatalf("NewStateStore: %v", err)
	}
	if _, err := store.Load(); !errors.Is(err, session.ErrNoState) {
		t.Errorf("expected ErrNoState, got: %v", err)
	}

	if err := store.Save(&session.State{CurrentSessionID: "x"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Load(); !errors.Is(err, session.ErrNoState) {
		t.Errorf("expected ErrNoState after Delete, got: %v", err)
	}
	if err := store.Delete(); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestNewStateStoreUnwritableDir(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("running as root; permission checks are ineffective")
	}
	tmp := t.TempDir()
	if err := os.Chmod(tmp, 0o000); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { os.Chmod(tmp, 0o755) })
	t.Setenv("XDG_DATA_HOME", tmp)

	if _, err := session.NewStateStore(); err == nil {
		t.Fatal("expected error creating store in unwritable directory, got nil")
	}
}
