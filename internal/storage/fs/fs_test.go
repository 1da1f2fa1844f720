package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/any-hub/any-cache/internal/content"
	"github.com/any-hub/any-cache/internal/key"
	"github.com/any-hub/any-cache/internal/storage"
	"github.com/any-hub/any-cache/internal/storage/storagetest"
)

func TestFSStorageContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage {
		return newTestStorage(t)
	})
}

func TestStorageIgnoresDirectories(t *testing.T) {
	s := newTestStorage(t)
	k := key.From("ghcr", "v2")

	filePath, err := s.entryPath(k)
	if err != nil {
		t.Fatalf("path error: %v", err)
	}
	if err := os.MkdirAll(filePath, 0o755); err != nil {
		t.Fatalf("mkdir error: %v", err)
	}

	if _, err := s.Value(context.Background(), k); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for directory, got %v", err)
	}
	if ok, err := s.Exists(context.Background(), k); err != nil || ok {
		t.Fatalf("directory must not count as existing value, got %v, %v", ok, err)
	}
}

func TestSaveFailureLeavesPreviousValue(t *testing.T) {
	s := newTestStorage(t)
	k := key.From("maven", "lib.jar")
	if err := s.Save(context.Background(), k, content.FromBytes([]byte("stable"))); err != nil {
		t.Fatalf("save error: %v", err)
	}

	broken := content.FromReader(failingReader{}, -1)
	if err := s.Save(context.Background(), k, broken); err == nil {
		t.Fatalf("expected save error from broken content")
	}

	if got := storagetest.ReadValue(t, s, k); string(got) != "stable" {
		t.Fatalf("failed save must not touch existing value, got %q", got)
	}
	entries, err := os.ReadDir(filepath.Dir(mustPath(t, s, k)))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files must be cleaned up, got %d entries", len(entries))
	}
}

func TestEntryPathRejectsTraversal(t *testing.T) {
	s := newTestStorage(t)
	if _, err := s.entryPath(key.From("hub", "..", "etc")); err == nil {
		t.Fatalf("expected traversal to be rejected")
	}
}

func TestEntryPathRejectsReservedNames(t *testing.T) {
	s := newTestStorage(t)
	for _, k := range []key.Key{key.From("npm", ".body"), key.From("npm", ".cache-123", "x")} {
		if _, err := s.entryPath(k); err == nil {
			t.Fatalf("expected %s to be rejected", k)
		}
	}
}

func TestListSkipsTempFiles(t *testing.T) {
	s := newTestStorage(t)
	k := key.From("npm", "pkg")
	if err := s.Save(context.Background(), k, content.FromBytes([]byte("v1"))); err != nil {
		t.Fatalf("save error: %v", err)
	}
	stray := filepath.Join(filepath.Dir(mustPath(t, s, k)), ".cache-leftover")
	if err := os.WriteFile(stray, []byte("partial"), 0o644); err != nil {
		t.Fatalf("write stray: %v", err)
	}
	keys, err := s.List(context.Background(), key.Root)
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if len(keys) != 1 || keys[0] != k {
		t.Fatalf("unexpected listing %v", keys)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func mustPath(t *testing.T, s *Storage, k key.Key) string {
	t.Helper()
	p, err := s.entryPath(k)
	if err != nil {
		t.Fatalf("path error: %v", err)
	}
	return p
}

// newTestStorage returns a Storage backed by a temporary directory.
func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	return s
}
