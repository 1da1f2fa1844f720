// Package storagetest 提供所有 storage.Storage 实现共用的契约测试。
package storagetest

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/any-hub/any-cache/internal/content"
	"github.com/any-hub/any-cache/internal/key"
	"github.com/any-hub/any-cache/internal/storage"
)

// Factory 为每个子测试构建一个全新的空存储。
type Factory func(t *testing.T) storage.Storage

// Run 针对 newStorage 产出的实现执行完整契约测试。
func Run(t *testing.T, newStorage Factory) {
	t.Helper()
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Storage)
	}{
		{"SaveAndValue", testSaveAndValue},
		{"ValueMissing", testValueMissing},
		{"ExistsReflectsSave", testExists},
		{"SaveOverwrites", testOverwrite},
		{"SaveEmpty", testSaveEmpty},
		{"ValueIsFreshPerCall", testValueFresh},
		{"Delete", testDelete},
		{"List", testList},
		{"ParentAndChildCoexist", testParentAndChild},
		{"RootKeyRejected", testRootKey},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			s := newStorage(t)
			t.Cleanup(func() { _ = storage.Close(s) })
			tc.fn(t, s)
		})
	}
}

func mustSave(t *testing.T, s storage.Storage, k key.Key, data []byte) {
	t.Helper()
	if err := s.Save(context.Background(), k, content.FromBytes(data)); err != nil {
		t.Fatalf("save %s: %v", k, err)
	}
}

// ReadValue 读出 k 下的全部字节，失败时终止测试。
func ReadValue(t *testing.T, s storage.Storage, k key.Key) []byte {
	t.Helper()
	c, err := s.Value(context.Background(), k)
	if err != nil {
		t.Fatalf("value %s: %v", k, err)
	}
	data, err := content.ReadAll(context.Background(), c)
	if err != nil {
		t.Fatalf("read %s: %v", k, err)
	}
	return data
}

func testSaveAndValue(t *testing.T, s storage.Storage) {
	k := key.From("hub", "org/lib/1.0/lib.jar")
	mustSave(t, s, k, []byte("payload"))
	if got := ReadValue(t, s, k); !bytes.Equal(got, []byte("payload")) {
		t.Fatalf("payload mismatch: %q", got)
	}
	c, err := s.Value(context.Background(), k)
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	size, err := c.Size()
	if err != nil {
		t.Fatalf("size: %v", err)
	}
	if size != content.UnknownSize && size != int64(len("payload")) {
		t.Fatalf("declared size %d does not match payload", size)
	}
}

func testValueMissing(t *testing.T, s storage.Storage) {
	if _, err := s.Value(context.Background(), key.From("missing")); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testExists(t *testing.T, s storage.Storage) {
	k := key.From("exists")
	ok, err := s.Exists(context.Background(), k)
	if err != nil || ok {
		t.Fatalf("expected absent key, got %v, %v", ok, err)
	}
	mustSave(t, s, k, []byte("1"))
	ok, err = s.Exists(context.Background(), k)
	if err != nil || !ok {
		t.Fatalf("expected present key, got %v, %v", ok, err)
	}
}

func testOverwrite(t *testing.T, s storage.Storage) {
	k := key.From("overwrite")
	mustSave(t, s, k, []byte("first-longer"))
	mustSave(t, s, k, []byte("second"))
	if got := ReadValue(t, s, k); string(got) != "second" {
		t.Fatalf("save must overwrite, got %q", got)
	}
}

func testSaveEmpty(t *testing.T, s storage.Storage) {
	k := key.From("any")
	if err := s.Save(context.Background(), k, content.Empty()); err != nil {
		t.Fatalf("save empty: %v", err)
	}
	ok, err := s.Exists(context.Background(), k)
	if err != nil || !ok {
		t.Fatalf("empty value must exist, got %v, %v", ok, err)
	}
	if got := ReadValue(t, s, k); len(got) != 0 {
		t.Fatalf("expected empty payload, got %q", got)
	}
}

func testValueFresh(t *testing.T, s storage.Storage) {
	k := key.From("fresh")
	mustSave(t, s, k, []byte("abc"))
	for i := 0; i < 2; i++ {
		if got := ReadValue(t, s, k); string(got) != "abc" {
			t.Fatalf("read %d: got %q", i, got)
		}
	}
}

func testDelete(t *testing.T, s storage.Storage) {
	k := key.From("delete/me")
	mustSave(t, s, k, []byte("x"))
	if err := s.Delete(context.Background(), k); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := s.Exists(context.Background(), k); ok {
		t.Fatalf("key should be gone after delete")
	}
	if err := s.Delete(context.Background(), k); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second delete should report ErrNotFound, got %v", err)
	}
}

func testList(t *testing.T, s storage.Storage) {
	for _, name := range []string{"a/b/1", "a/b/2", "a/bc", "z"} {
		mustSave(t, s, key.From(name), []byte(name))
	}
	keys, err := s.List(context.Background(), key.From("a/b"))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(keys) != 2 || keys[0] != key.From("a/b/1") || keys[1] != key.From("a/b/2") {
		t.Fatalf("unexpected listing %v", keys)
	}
	all, err := s.List(context.Background(), key.Root)
	if err != nil {
		t.Fatalf("list root: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 keys under root, got %v", all)
	}
}

func testParentAndChild(t *testing.T, s storage.Storage) {
	// 先父后子、先子后父两种顺序都要能落盘。
	mustSave(t, s, key.From("npm/pkg"), []byte("parent"))
	mustSave(t, s, key.From("npm/pkg/__qs/1"), []byte("child"))
	mustSave(t, s, key.From("pypi/simple/x"), []byte("child"))
	mustSave(t, s, key.From("pypi/simple"), []byte("parent"))

	for name, want := range map[string]string{
		"npm/pkg":        "parent",
		"npm/pkg/__qs/1": "child",
		"pypi/simple":    "parent",
		"pypi/simple/x":  "child",
	} {
		if got := ReadValue(t, s, key.From(name)); string(got) != want {
			t.Fatalf("%s: expected %q, got %q", name, want, got)
		}
	}

	if err := s.Delete(context.Background(), key.From("npm/pkg")); err != nil {
		t.Fatalf("delete parent: %v", err)
	}
	if got := ReadValue(t, s, key.From("npm/pkg/__qs/1")); string(got) != "child" {
		t.Fatalf("deleting parent must keep child, got %q", got)
	}
	keys, err := s.List(context.Background(), key.From("pypi"))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(keys) != 2 || keys[0] != key.From("pypi/simple") || keys[1] != key.From("pypi/simple/x") {
		t.Fatalf("unexpected listing %v", keys)
	}
}

func testRootKey(t *testing.T, s storage.Storage) {
	if err := s.Save(context.Background(), key.Root, content.Empty()); !errors.Is(err, storage.ErrEmptyKey) {
		t.Fatalf("expected ErrEmptyKey, got %v", err)
	}
}
