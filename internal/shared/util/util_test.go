package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSortedStringKeys(t *testing.T) {
	t.Parallel()

	keys := SortedStringKeys(map[string][]byte{"y.py": nil, "pkg/a.py": nil, "x.py": nil})
	expected := []string{"pkg/a.py", "x.py", "y.py"}
	if len(keys) != len(expected) {
		t.Fatalf("expected %d keys, got %d", len(expected), len(keys))
	}
	for i, key := range expected {
		if keys[i] != key {
			t.Fatalf("expected %q at %d, got %q", key, i, keys[i])
		}
	}
	if got := SortedStringKeys(map[string]int(nil)); len(got) != 0 {
		t.Fatalf("expected no keys for nil map, got %v", got)
	}
}

func TestWriteFileWithDirs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "mod.py")
	content := []byte("x = 1\n")

	if err := WriteFileWithDirs(path, content, 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(got) != string(content) {
		t.Fatalf("expected %q, got %q", string(content), string(got))
	}
}

func TestHeapAllocMB(t *testing.T) {
	_ = make([]byte, 2<<20)
	if HeapAllocMB() > 1<<20 {
		t.Fatal("heap reading is implausible")
	}
}
