package rename

import (
	"bytes"
	"fmt"

	"pyrefactor/internal/shared/util"

	"github.com/sourcegraph/go-diff/diff"
)

const diffContext = 3

// Diff renders res as a unified diff against the analyzed contents, one
// file section per touched path in path order.
func (e *Engine) Diff(res *Result) ([]byte, error) {
	var fds []*diff.FileDiff
	for _, path := range util.SortedStringKeys(res.Files) {
		f, ok := e.db.FileByPath(path)
		if !ok {
			return nil, fmt.Errorf("diff: %s is not part of the analysis", path)
		}
		hunks, err := lineHunks(splitLines(f.Content), splitLines(res.Files[path]))
		if err != nil {
			return nil, fmt.Errorf("diff %s: %w", path, err)
		}
		if len(hunks) == 0 {
			continue
		}
		fds = append(fds, &diff.FileDiff{OrigName: "a/" + path, NewName: "b/" + path, Hunks: hunks})
	}
	if len(fds) == 0 {
		return nil, nil
	}
	return diff.PrintMultiFileDiff(fds)
}

func splitLines(content []byte) [][]byte {
	lines := bytes.SplitAfter(content, []byte{'\n'})
	if n := len(lines); n > 0 && len(lines[n-1]) == 0 {
		lines = lines[:n-1]
	}
	return lines
}

// lineHunks builds hunks for two versions with the same number of lines,
// which holds for renames since identifiers never span lines.
func lineHunks(before, after [][]byte) ([]*diff.Hunk, error) {
	if len(before) != len(after) {
		return nil, fmt.Errorf("line count changed from %d to %d", len(before), len(after))
	}
	var changed []int
	for i := range before {
		if !bytes.Equal(before[i], after[i]) {
			changed = append(changed, i)
		}
	}

	var hunks []*diff.Hunk
	for i := 0; i < len(changed); {
		start := max(changed[i]-diffContext, 0)
		end := min(changed[i]+diffContext+1, len(before))
		j := i + 1
		for j < len(changed) && changed[j]-diffContext <= end {
			end = min(changed[j]+diffContext+1, len(before))
			j++
		}
		hunks = append(hunks, &diff.Hunk{
			OrigStartLine: int32(start + 1),
			OrigLines:     int32(end - start),
			NewStartLine:  int32(start + 1),
			NewLines:      int32(end - start),
			Body:          hunkBody(before[start:end], after[start:end]),
		})
		i = j
	}
	return hunks, nil
}

func hunkBody(before, after [][]byte) []byte {
	var buf bytes.Buffer
	for i := 0; i < len(before); {
		if bytes.Equal(before[i], after[i]) {
			writeLine(&buf, ' ', before[i])
			i++
			continue
		}
		j := i
		for j < len(before) && !bytes.Equal(before[j], after[j]) {
			j++
		}
		for _, line := range before[i:j] {
			writeLine(&buf, '-', line)
		}
		for _, line := range after[i:j] {
			writeLine(&buf, '+', line)
		}
		i = j
	}
	return buf.Bytes()
}

func writeLine(buf *bytes.Buffer, prefix byte, line []byte) {
	buf.WriteByte(prefix)
	buf.Write(line)
	if !bytes.HasSuffix(line, []byte{'\n'}) {
		buf.WriteString("\n\\ No newline at end of file\n")
	}
}
