package scope

import (
	"fmt"
	"io"
	"strings"

	"github.com/monkey2000/spicy/pkg/util"
)

// TableWriter prints frames as text rows as they arrive.
type TableWriter struct {
	w       io.Writer
	labels  []string
	started bool
}

func NewTableWriter(w io.Writer, labels []string) *TableWriter {
	return &TableWriter{w: w, labels: labels}
}

func (t *TableWriter) header() error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%-12s", "Time")
	for _, label := range t.labels {
		fmt.Fprintf(&sb, "  %-12s", label)
	}
	line := sb.String()
	_, err := fmt.Fprintf(t.w, "%s\n%s\n", line, strings.Repeat("-", len(line)))
	return err
}

func (t *TableWriter) Emit(time float64, values []float64) error {
	if !t.started {
		t.started = true
		if err := t.header(); err != nil {
			return err
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%-12s", util.FormatValueFactor(time, "s"))
	for _, v := range values {
		fmt.Fprintf(&sb, "  %-12s", util.FormatValueFactor(v, "V"))
	}
	sb.WriteByte('\n')
	_, err := io.WriteString(t.w, sb.String())
	return err
}
