package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"pyrefactor/internal/core/app"
	"pyrefactor/internal/core/errors"
	"pyrefactor/internal/engine/parser"
	"pyrefactor/internal/engine/pipeline"
	"pyrefactor/internal/engine/rename"
	"pyrefactor/internal/engine/symbols"
	"pyrefactor/internal/ui/report"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	title   lipgloss.Style
	ok      lipgloss.Style
	failure lipgloss.Style
	warn    lipgloss.Style
	dim     lipgloss.Style
}

// newStyles binds styles to w so colors are dropped when w is not a terminal.
func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:   r.NewStyle().Foreground(lipgloss.Color("#3B82F6")).Bold(true),
		ok:      r.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true),
		failure: r.NewStyle().Foreground(lipgloss.Color("#F87171")).Bold(true),
		warn:    r.NewStyle().Foreground(lipgloss.Color("#FBBF24")),
		dim:     r.NewStyle().Foreground(lipgloss.Color("#64748B")).Italic(true),
	}
}

type bundleView struct {
	RunID       string            `json:"run_id"`
	Complete    bool              `json:"complete"`
	Files       int               `json:"files"`
	Symbols     int               `json:"symbols"`
	References  int               `json:"references"`
	Imports     int               `json:"imports"`
	ImportEdges int               `json:"import_edges"`
	Cycles      [][]string        `json:"import_cycles,omitempty"`
	Statuses    map[string]int    `json:"reference_statuses"`
	Failed      map[string]string `json:"failed,omitempty"`
	DurationMS  int64             `json:"duration_ms,omitempty"`
}

type symbolView struct {
	ID     uint32 `json:"id"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Path   string `json:"path"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
}

type siteView struct {
	Path   string `json:"path"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Kind   string `json:"kind"`
	Text   string `json:"text,omitempty"`
}

type reportView struct {
	Symbol     symbolView `json:"symbol"`
	Sites      []siteView `json:"sites"`
	Dependents []string   `json:"dependents"`
}

type renameView struct {
	Symbol  symbolView `json:"symbol"`
	NewName string     `json:"new_name"`
	Edits   []siteView `json:"edits"`
	Written []string   `json:"written,omitempty"`
	Diff    string     `json:"diff,omitempty"`
}

type errorView struct {
	Kind    string         `json:"error_kind"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

func (e *env) writeJSON(v any) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (e *env) renderBundle(b *pipeline.Bundle, took time.Duration) error {
	view := bundleView{
		RunID:      b.RunID,
		Complete:   b.IsComplete(),
		Files:      b.SuccessCount(),
		Symbols:    len(b.Symbols()),
		References: len(b.References()),
		Imports:    len(b.Imports()),
		Statuses:   make(map[string]int),
		DurationMS: took.Milliseconds(),
	}
	if g := b.ImportGraph(); g != nil {
		view.ImportEdges = g.EdgeCount()
		view.Cycles = g.DetectCycles()
	}
	for _, r := range b.References() {
		view.Statuses[r.Status.String()]++
	}
	if !b.IsComplete() {
		view.Failed = make(map[string]string, b.FailureCount())
		for _, f := range b.Failed() {
			view.Failed[f.Path] = f.Err.Error()
		}
	}
	if e.opts.json {
		return e.writeJSON(view)
	}

	s := e.styles
	fmt.Fprintln(e.out, s.title.Render("Analysis "+view.RunID))
	fmt.Fprintf(e.out, "  files %d  symbols %d  references %d  imports %d\n", view.Files, view.Symbols, view.References, view.Imports)
	statuses := make([]string, 0, len(view.Statuses))
	for status, n := range view.Statuses {
		statuses = append(statuses, fmt.Sprintf("%s %d", status, n))
	}
	sort.Strings(statuses)
	fmt.Fprintln(e.out, s.dim.Render("  "+strings.Join(statuses, "  ")))
	for _, cycle := range view.Cycles {
		fmt.Fprintln(e.out, s.warn.Render("  import cycle: "+strings.Join(append(cycle, cycle[0]), " -> ")))
	}
	if view.Complete {
		fmt.Fprintln(e.out, s.ok.Render("  complete"))
		return nil
	}
	fmt.Fprintln(e.out, s.failure.Render(fmt.Sprintf("  incomplete: %d file(s) failed", b.FailureCount())))
	for _, f := range b.Failed() {
		fmt.Fprintf(e.out, "    %s: %v\n", f.Path, f.Err)
	}
	return nil
}

func (e *env) symbolView(sym symbols.Symbol) symbolView {
	view := symbolView{
		ID:    uint32(sym.ID),
		Name:  sym.Name,
		Kind:  sym.Kind.String(),
		Start: sym.Ident.Start,
		End:   sym.Ident.End,
	}
	if b := e.app.Bundle(); b != nil {
		if f, ok := b.DB().File(sym.File); ok {
			view.Path = f.Path
			loc := parser.LocationOf(f.Content, sym.Ident.Start)
			view.Line, view.Column = loc.Line, loc.Column
		}
	}
	return view
}

func (e *env) renderSymbol(sym symbols.Symbol) error {
	view := e.symbolView(sym)
	if e.opts.json {
		return e.writeJSON(view)
	}
	fmt.Fprintf(e.out, "%s %s\n", e.styles.title.Render(view.Name), e.styles.dim.Render("("+view.Kind+")"))
	fmt.Fprintf(e.out, "  %s:%d:%d\n", view.Path, view.Line, view.Column)
	return nil
}

func sitesOf(sites []rename.Site) []siteView {
	out := make([]siteView, 0, len(sites))
	for _, s := range sites {
		out = append(out, siteView{Path: s.Path, Line: s.Line, Column: s.Column, Start: s.Span.Start, End: s.Span.End, Kind: string(s.Kind), Text: s.Text})
	}
	return out
}

func (e *env) renderReport(r *rename.Report) error {
	view := reportView{Symbol: e.symbolView(r.Symbol), Sites: sitesOf(r.References), Dependents: r.Dependents}
	if e.opts.json {
		return e.writeJSON(view)
	}
	fmt.Fprintf(e.out, "%s %s\n", e.styles.title.Render(view.Symbol.Name), e.styles.dim.Render(fmt.Sprintf("(%s, %d sites in %d files)", view.Symbol.Kind, len(view.Sites), len(r.Files()))))
	for _, s := range view.Sites {
		fmt.Fprintf(e.out, "  %s:%d:%d  %s\n", s.Path, s.Line, s.Column, e.styles.dim.Render(s.Kind))
	}
	if len(view.Dependents) > 0 {
		fmt.Fprintln(e.out, e.styles.warn.Render("  dependents: "+strings.Join(view.Dependents, ", ")))
	}
	return nil
}

func (e *env) renderRename(res *app.RenameResult, newName string) error {
	view := renameView{Symbol: e.symbolView(res.Symbol), NewName: newName, Written: res.Written, Diff: string(res.Diff)}
	for _, ed := range res.Edits {
		view.Edits = append(view.Edits, siteView{Path: ed.Path, Line: ed.Line, Column: ed.Column, Start: ed.Span.Start, End: ed.Span.End, Kind: string(ed.Kind), Text: ed.OldText})
	}
	if e.opts.json {
		return e.writeJSON(view)
	}
	if len(res.Diff) > 0 {
		fmt.Fprint(e.out, string(res.Diff))
	}
	summary := fmt.Sprintf("%s -> %s: %d edit(s)", view.Symbol.Name, newName, len(view.Edits))
	switch {
	case len(res.Written) > 0:
		fmt.Fprintln(e.out, e.styles.ok.Render(summary+fmt.Sprintf(", wrote %d file(s)", len(res.Written))))
	case len(view.Edits) == 0:
		fmt.Fprintln(e.out, e.styles.dim.Render(summary))
	default:
		fmt.Fprintln(e.out, e.styles.warn.Render(summary+" (dry run, pass --write to apply)"))
		if len(res.Diff) == 0 {
			for _, ed := range view.Edits {
				fmt.Fprintf(e.out, "  %s:%d:%d  %s\n", ed.Path, ed.Line, ed.Column, e.styles.dim.Render(ed.Kind))
			}
		}
	}
	return nil
}

func (e *env) renderExport(b *pipeline.Bundle, path string) error {
	if e.opts.json {
		return e.writeJSON(map[string]any{"run_id": b.RunID, "path": path, "complete": b.IsComplete()})
	}
	fmt.Fprintln(e.out, e.styles.ok.Render(fmt.Sprintf("exported run %s to %s", b.RunID, path)))
	return nil
}

func (e *env) renderSARIF(b *pipeline.Bundle) error {
	data, err := report.AnalysisSARIF(b, versionString)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(e.out, string(data))
	return err
}

func (e *env) renderMarkdown(r *rename.Report) error {
	b := e.app.Bundle()
	source := func(path string) ([]byte, bool) {
		f, ok := b.DB().FileByPath(path)
		return f.Content, ok
	}
	md := report.ImpactMarkdown(r, source, report.MarkdownOptions{
		ProjectName:         projectName(e.cfg.Workspace.Roots),
		Version:             versionString,
		CollapsibleSections: true,
	})
	_, err := fmt.Fprint(e.out, md)
	return err
}

func projectName(roots []string) string {
	if len(roots) == 0 {
		return ""
	}
	abs, err := filepath.Abs(roots[0])
	if err != nil {
		return ""
	}
	return filepath.Base(abs)
}

func (e *env) printError(err error) {
	code := errors.CodeOf(err)
	if code == "" {
		code = errors.CodeInternal
		if isUsageError(err) {
			code = errors.CodeValidationError
		}
	}
	if e.opts.json {
		view := errorView{Kind: string(code), Message: err.Error()}
		var de *errors.DomainError
		if errors.As(err, &de) && len(de.Context) > 0 {
			view.Context = de.Context
		}
		enc := json.NewEncoder(e.errOut)
		enc.SetIndent("", "  ")
		_ = enc.Encode(view)
		return
	}
	fmt.Fprintln(e.errOut, e.styles.failure.Render("error: ")+err.Error())
}
