package app

import (
	"fmt"
	"os"
	"path/filepath"

	"pyrefactor/internal/core/errors"
	"pyrefactor/internal/engine/parser"
	"pyrefactor/internal/shared/util"
)

type staged struct {
	path     string
	disk     string
	temp     string
	original []byte
}

// writeAll replaces the on-disk content of every analyzed path in files.
// All new contents are staged into temp files first; a failure while
// swapping them in restores the files already replaced.
func (a *App) writeAll(files map[string][]byte) ([]string, error) {
	a.mu.RLock()
	disk, b := a.disk, a.bundle
	a.mu.RUnlock()

	var stages []staged
	cleanup := func() {
		for _, s := range stages {
			if s.temp != "" {
				_ = os.Remove(s.temp)
			}
		}
	}

	for _, path := range util.SortedStringKeys(files) {
		target, ok := disk[path]
		if !ok {
			cleanup()
			return nil, errors.AddContext(errors.New(errors.CodeNotFound, "no file on disk for analyzed path"), errors.CtxPath, path)
		}
		current, err := os.ReadFile(target)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("read %s: %w", target, err)
		}
		if f, ok := b.DB().FileByPath(path); ok && f.Hash != parser.ContentHash(current) {
			cleanup()
			err := errors.New(errors.CodeValidationError, "file changed on disk since analysis")
			return nil, errors.AddContext(err, errors.CtxPath, path)
		}
		temp, err := stage(target, files[path])
		if err != nil {
			cleanup()
			return nil, err
		}
		stages = append(stages, staged{path: path, disk: target, temp: temp, original: current})
	}

	for i := range stages {
		if err := os.Rename(stages[i].temp, stages[i].disk); err != nil {
			for _, done := range stages[:i] {
				_ = util.WriteFileWithDirs(done.disk, done.original, 0o644)
			}
			for _, rest := range stages[i:] {
				_ = os.Remove(rest.temp)
			}
			return nil, fmt.Errorf("replace %s: %w", stages[i].disk, err)
		}
	}

	written := make([]string, 0, len(stages))
	for _, s := range stages {
		written = append(written, s.path)
	}
	return written, nil
}

func stage(target string, content []byte) (string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return "", err
	}
	f, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".pyrefactor-*")
	if err != nil {
		return "", fmt.Errorf("stage %s: %w", target, err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("stage %s: %w", target, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("stage %s: %w", target, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("stage %s: %w", target, err)
	}
	if err := os.Chmod(f.Name(), info.Mode().Perm()); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("stage %s: %w", target, err)
	}
	return f.Name(), nil
}
