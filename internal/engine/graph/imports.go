// # internal/engine/graph/imports.go
package graph

import (
	"errors"
	"fmt"
	"sort"

	"pyrefactor/internal/engine/symbols"
)

var ErrFileNotFound = errors.New("file not found")

// ImpactReport lists the files that import a file directly or through other
// workspace files.
type ImpactReport struct {
	TargetPath          string
	TargetModule        string
	DirectImporters     []string
	TransitiveImporters []string
}

// ImportGraph is the file-level import graph of the workspace. Imports that
// resolve outside the workspace contribute no edge.
type ImportGraph struct {
	paths      map[symbols.FileID]string
	modules    map[symbols.FileID]string
	byPath     map[string]symbols.FileID
	imports    map[symbols.FileID][]symbols.FileID
	importedBy map[symbols.FileID][]symbols.FileID
}

func NewImportGraph(db *symbols.Database) *ImportGraph {
	g := &ImportGraph{
		paths:      make(map[symbols.FileID]string),
		modules:    make(map[symbols.FileID]string),
		byPath:     make(map[string]symbols.FileID),
		imports:    make(map[symbols.FileID][]symbols.FileID),
		importedBy: make(map[symbols.FileID][]symbols.FileID),
	}
	for _, f := range db.Files() {
		g.paths[f.ID] = f.Path
		g.modules[f.ID] = f.Module
		g.byPath[f.Path] = f.ID

		seen := make(map[symbols.FileID]bool)
		for _, imp := range db.ImportsOf(f.ID) {
			to := imp.ResolvedFile
			if to == 0 || to == f.ID || seen[to] {
				continue
			}
			seen[to] = true
			g.imports[f.ID] = append(g.imports[f.ID], to)
			g.importedBy[to] = append(g.importedBy[to], f.ID)
		}
	}
	for _, edges := range g.imports {
		sort.Slice(edges, func(i, j int) bool { return edges[i] < edges[j] })
	}
	for _, edges := range g.importedBy {
		sort.Slice(edges, func(i, j int) bool { return edges[i] < edges[j] })
	}
	return g
}

func (g *ImportGraph) EdgeCount() int {
	n := 0
	for _, edges := range g.imports {
		n += len(edges)
	}
	return n
}

// DetectCycles returns each import cycle found by a depth-first walk from
// every file in path order, as a list of paths.
func (g *ImportGraph) DetectCycles() [][]string {
	var cycles [][]string
	visited := make(map[symbols.FileID]bool)
	onStack := make(map[symbols.FileID]bool)

	for _, id := range g.sortedFiles() {
		if !visited[id] {
			g.findCycles(id, visited, onStack, nil, &cycles)
		}
	}
	return cycles
}

func (g *ImportGraph) findCycles(curr symbols.FileID, visited, onStack map[symbols.FileID]bool, path []symbols.FileID, cycles *[][]string) {
	visited[curr] = true
	onStack[curr] = true
	path = append(path, curr)

	for _, next := range g.imports[curr] {
		if onStack[next] {
			for i, id := range path {
				if id == next {
					cycle := make([]string, 0, len(path)-i)
					for _, c := range path[i:] {
						cycle = append(cycle, g.paths[c])
					}
					*cycles = append(*cycles, cycle)
					break
				}
			}
		} else if !visited[next] {
			g.findCycles(next, visited, onStack, path, cycles)
		}
	}

	onStack[curr] = false
}

// FindImportChain returns the shortest import path from one file to another.
func (g *ImportGraph) FindImportChain(from, to string) ([]string, bool) {
	src, ok := g.byPath[from]
	if !ok {
		return nil, false
	}
	dst, ok := g.byPath[to]
	if !ok {
		return nil, false
	}
	if src == dst {
		return []string{from}, true
	}

	queue := []symbols.FileID{src}
	prev := map[symbols.FileID]symbols.FileID{}
	visited := map[symbols.FileID]bool{src: true}
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		for _, next := range g.imports[curr] {
			if visited[next] {
				continue
			}
			visited[next] = true
			prev[next] = curr
			if next == dst {
				path := []string{to}
				for node := dst; node != src; node = prev[node] {
					path = append(path, g.paths[prev[node]])
				}
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path, true
			}
			queue = append(queue, next)
		}
	}
	return nil, false
}

// Importers reports who depends on the file at path.
func (g *ImportGraph) Importers(path string) (ImpactReport, error) {
	target, ok := g.byPath[path]
	if !ok {
		return ImpactReport{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	report := ImpactReport{TargetPath: path, TargetModule: g.modules[target]}

	seen := map[symbols.FileID]bool{target: true}
	for _, id := range g.importedBy[target] {
		seen[id] = true
		report.DirectImporters = append(report.DirectImporters, g.paths[id])
	}

	queue := append([]symbols.FileID(nil), g.importedBy[target]...)
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		for _, next := range g.importedBy[curr] {
			if seen[next] {
				continue
			}
			seen[next] = true
			queue = append(queue, next)
			report.TransitiveImporters = append(report.TransitiveImporters, g.paths[next])
		}
	}
	sort.Strings(report.DirectImporters)
	sort.Strings(report.TransitiveImporters)
	return report, nil
}

func (g *ImportGraph) sortedFiles() []symbols.FileID {
	ids := make([]symbols.FileID, 0, len(g.paths))
	for id := range g.paths {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return g.paths[ids[i]] < g.paths[ids[j]] })
	return ids
}
