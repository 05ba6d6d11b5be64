package resolver

import (
	"strings"

	"pyrefactor/internal/engine/symbols"
)

// ModuleIndex maps dotted module names to workspace files. A plain module
// file wins over a package's __init__.py of the same name, and among equals
// the first file in path order wins.
type ModuleIndex struct {
	files map[string]symbols.File
}

func NewModuleIndex(files []symbols.File) *ModuleIndex {
	idx := &ModuleIndex{files: make(map[string]symbols.File, len(files))}
	for _, f := range files {
		if f.Module == "" {
			continue
		}
		existing, ok := idx.files[f.Module]
		if !ok || (existing.Package && !f.Package) {
			idx.files[f.Module] = f
		}
	}
	return idx
}

func (m *ModuleIndex) Lookup(module string) (symbols.FileID, bool) {
	f, ok := m.files[module]
	if !ok {
		return 0, false
	}
	return f.ID, true
}

func (m *ModuleIndex) Len() int {
	return len(m.files)
}

// packageOf returns the package a relative import in f is anchored at.
func packageOf(f symbols.File) []string {
	parts := splitModule(f.Module)
	if f.Package || len(parts) == 0 {
		return parts
	}
	return parts[:len(parts)-1]
}

// RelativeBase resolves the module of a relative import with the given
// number of leading dots. ok is false when the import escapes the top level.
func RelativeBase(f symbols.File, depth int, module string) (string, bool) {
	pkg := packageOf(f)
	drop := depth - 1
	if drop > len(pkg) {
		return "", false
	}
	parts := append(append([]string(nil), pkg[:len(pkg)-drop]...), splitModule(module)...)
	return strings.Join(parts, "."), true
}

func splitModule(module string) []string {
	if module == "" {
		return nil
	}
	return strings.Split(module, ".")
}

func joinModule(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}
