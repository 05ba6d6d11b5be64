// # internal/ui/report/context.go
package report

import (
	"bytes"
	"fmt"

	"pyrefactor/internal/engine/rename"
)

// DefaultContextRadius is the number of lines shown on each side of a site.
const DefaultContextRadius = 2

// Snippet is one rename site with the surrounding source lines.
type Snippet struct {
	Path   string
	Line   int
	Column int
	Kind   rename.SiteKind
	// Context holds the lines around the site, each formatted as
	// "<linenum>: <source>". The site line is marked with '>'.
	Context []string
}

// SiteSnippets builds a snippet for every site. Sites whose file is unknown
// to source are skipped.
func SiteSnippets(sites []rename.Site, source func(path string) ([]byte, bool), radius int) []Snippet {
	if radius < 0 {
		radius = 0
	}
	lines := make(map[string][]string)
	out := make([]Snippet, 0, len(sites))
	for _, s := range sites {
		file, ok := lines[s.Path]
		if !ok {
			content, found := source(s.Path)
			if !found {
				continue
			}
			file = splitLines(content)
			lines[s.Path] = file
		}
		if s.Line < 1 || s.Line > len(file) {
			continue
		}
		out = append(out, Snippet{
			Path:    s.Path,
			Line:    s.Line,
			Column:  s.Column,
			Kind:    s.Kind,
			Context: buildContext(file, s.Line-1, radius),
		})
	}
	return out
}

func buildContext(lines []string, hit, radius int) []string {
	start := max(hit-radius, 0)
	end := min(hit+radius+1, len(lines))
	out := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		marker := ' '
		if i == hit {
			marker = '>'
		}
		out = append(out, fmt.Sprintf("%c%5d: %s", marker, i+1, lines[i]))
	}
	return out
}

// splitLines splits content on newlines, dropping the empty element a final
// newline produces.
func splitLines(content []byte) []string {
	raw := bytes.Split(content, []byte("\n"))
	if len(raw) > 0 && len(raw[len(raw)-1]) == 0 {
		raw = raw[:len(raw)-1]
	}
	lines := make([]string, len(raw))
	for i, b := range raw {
		lines[i] = string(bytes.TrimSuffix(b, []byte("\r")))
	}
	return lines
}
