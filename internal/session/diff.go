package session

import (
	"log/slog"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/nadzzz/cutline/internal/daw"
	"github.com/nadzzz/cutline/internal/dispatch"
	"github.com/nadzzz/cutline/internal/tool"
)

// dryRun executes calls against a detached copy of the host and returns a
// line diff of the project description. Hosts that cannot clone or
// describe themselves get no diff.
func (s *Session) dryRun(command string, calls []tool.Call) string {
	cloner, ok := s.host.(daw.Cloner)
	if !ok {
		return ""
	}
	before, ok := s.host.(daw.Describer)
	if !ok {
		return ""
	}
	clone := cloner.CloneHost()
	after, ok := clone.(daw.Describer)
	if !ok {
		return ""
	}
	if _, err := dispatch.New(clone).Execute(undoName(command), calls); err != nil {
		slog.Warn("dry run failed", "error", err)
		return ""
	}
	return LineDiff(before.Describe(), after.Describe())
}

// LineDiff renders the changed lines between two texts, "-" for removed and
// "+" for added. Unchanged lines are omitted.
func LineDiff(before, after string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		default:
			continue
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(prefix)
			sb.WriteString(strings.TrimRight(line, "\n"))
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
