package report

import (
	"fmt"
	"strings"
	"time"

	"pyrefactor/internal/engine/rename"
)

// collapseAfter is the row count above which tables fold into <details>.
const collapseAfter = 20

type MarkdownOptions struct {
	ProjectName         string
	Version             string
	GeneratedAt         time.Time
	CollapsibleSections bool
	ContextRadius       int
}

// ImpactMarkdown renders an impact report as a Markdown document with front
// matter, a site table, source context per site and the dependent files.
func ImpactMarkdown(r *rename.Report, source func(path string) ([]byte, bool), opts MarkdownOptions) string {
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now().UTC()
	}
	sym := r.Symbol

	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString("title: Rename Impact Report\n")
	b.WriteString("project: " + nonEmpty(opts.ProjectName, "unknown") + "\n")
	b.WriteString("symbol: " + sym.Name + "\n")
	b.WriteString("generated_at: " + opts.GeneratedAt.UTC().Format(time.RFC3339) + "\n")
	b.WriteString("version: " + nonEmpty(opts.Version, "unknown") + "\n")
	b.WriteString("---\n\n")

	fmt.Fprintf(&b, "# Impact of `%s`\n\n", sym.Name)

	b.WriteString("## Summary\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("| --- | --- |\n")
	fmt.Fprintf(&b, "| Kind | %s |\n", sym.Kind)
	fmt.Fprintf(&b, "| Defined in | `%s` |\n", r.Path)
	fmt.Fprintf(&b, "| Sites | %d |\n", len(r.References))
	fmt.Fprintf(&b, "| Files | %d |\n", len(r.Files()))
	fmt.Fprintf(&b, "| Dependent files | %d |\n\n", len(r.Dependents))

	b.WriteString("## Sites\n")
	if len(r.References) == 0 {
		b.WriteString("No sites.\n\n")
	} else {
		rows := make([]string, 0, len(r.References))
		for _, s := range r.References {
			rows = append(rows, fmt.Sprintf("| `%s` | %d | %d | %s |\n", s.Path, s.Line, s.Column, s.Kind))
		}
		writeTable(&b,
			fmt.Sprintf("%d sites", len(rows)),
			opts.CollapsibleSections && len(rows) > collapseAfter,
			[]string{"| File | Line | Column | Kind |\n", "| --- | --- | --- | --- |\n"},
			rows,
		)
	}

	radius := opts.ContextRadius
	if radius == 0 {
		radius = DefaultContextRadius
	}
	snippets := SiteSnippets(r.References, source, radius)
	if len(snippets) > 0 {
		b.WriteString("## Context\n")
		for _, sn := range snippets {
			fmt.Fprintf(&b, "### %s:%d:%d (%s)\n", sn.Path, sn.Line, sn.Column, sn.Kind)
			b.WriteString("```\n")
			for _, line := range sn.Context {
				b.WriteString(line)
				b.WriteString("\n")
			}
			b.WriteString("```\n\n")
		}
	}

	b.WriteString("## Dependents\n")
	if len(r.Dependents) == 0 {
		b.WriteString("No other file imports the defining module.\n")
	}
	for _, dep := range r.Dependents {
		fmt.Fprintf(&b, "- `%s`\n", dep)
	}
	return b.String()
}

func writeTable(b *strings.Builder, summary string, collapse bool, header, rows []string) {
	if collapse {
		b.WriteString("<details>\n<summary>")
		b.WriteString(summary)
		b.WriteString("</summary>\n\n")
	}
	for _, line := range header {
		b.WriteString(line)
	}
	for _, line := range rows {
		b.WriteString(line)
	}
	b.WriteString("\n")
	if collapse {
		b.WriteString("</details>\n\n")
	}
}

func nonEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
