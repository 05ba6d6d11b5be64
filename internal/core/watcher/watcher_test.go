// # internal/core/watcher/watcher_test.go
package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(100*time.Millisecond, nil, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrInvalid))
	assert.Nil(t, w)
}

func TestNewWatcher_RejectsBadPattern(t *testing.T) {
	_, err := NewWatcher(time.Millisecond, []string{"[unclosed"}, nil, func([]string) {})
	assert.Error(t, err)
}

func waitFor(t *testing.T, changes <-chan []string, want string) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case paths := <-changes:
			for _, p := range paths {
				if p == want {
					return
				}
			}
		case <-timeout:
			t.Fatalf("timed out waiting for change to %s", want)
		}
	}
}

func TestWatcher(t *testing.T) {
	tmpDir := t.TempDir()
	changes := make(chan []string, 8)
	w, err := NewWatcher(50*time.Millisecond, []string{"exclude_dir"}, []string{"*_generated.py"}, func(paths []string) {
		changes <- paths
	})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch([]string{tmpDir}))

	testFile := filepath.Join(tmpDir, "mod.py")
	require.NoError(t, os.WriteFile(testFile, []byte("x = 1\n"), 0o644))
	waitFor(t, changes, testFile)

	// Excluded and non-Python files never show up.
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "api_generated.py"), []byte("y = 1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "notes.txt"), []byte("hi"), 0o644))
	select {
	case paths := <-changes:
		t.Fatalf("unexpected change batch %v", paths)
	case <-time.After(300 * time.Millisecond):
	}

	// New directories are watched recursively.
	subdir := filepath.Join(tmpDir, "pkg")
	require.NoError(t, os.MkdirAll(subdir, 0o755))
	nested := filepath.Join(subdir, "nested.py")
	require.NoError(t, os.WriteFile(nested, []byte("z = 1\n"), 0o644))
	waitFor(t, changes, nested)
}

func TestWatcher_SkipsUnchangedContent(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "same.py")
	require.NoError(t, os.WriteFile(target, []byte("a = 1\n"), 0o644))

	changes := make(chan []string, 8)
	w, err := NewWatcher(50*time.Millisecond, nil, nil, func(paths []string) {
		changes <- paths
	})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch([]string{tmpDir}))

	require.NoError(t, os.WriteFile(target, []byte("a = 1\n"), 0o644))
	select {
	case paths := <-changes:
		t.Fatalf("rewrite with identical content reported %v", paths)
	case <-time.After(300 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(target, []byte("a = 2\n"), 0o644))
	waitFor(t, changes, target)
}

func TestWatcher_RemoveTriggersChange(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "gone.py")
	require.NoError(t, os.WriteFile(target, []byte("a = 1\n"), 0o644))

	changes := make(chan []string, 8)
	w, err := NewWatcher(50*time.Millisecond, nil, nil, func(paths []string) {
		changes <- paths
	})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch([]string{tmpDir}))

	require.NoError(t, os.Remove(target))
	waitFor(t, changes, target)
}

func TestWatcher_ShouldExcludeFile(t *testing.T) {
	w, err := NewWatcher(time.Millisecond, nil, []string{"conftest.py"}, func([]string) {})
	require.NoError(t, err)
	defer w.Close()

	assert.False(t, w.shouldExcludeFile("pkg/mod.py"))
	assert.False(t, w.shouldExcludeFile("pkg/MOD.PY"))
	assert.True(t, w.shouldExcludeFile("pkg/main.go"))
	assert.True(t, w.shouldExcludeFile("tests/conftest.py"))
}
