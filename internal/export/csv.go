package export

import (
	"io"
	"strings"

	"socios/internal/core"
)

// WriteCSV writes a header row of labels followed by one row per entry.
// Every data value is double-quoted with inner quotes doubled; rows are
// separated by "\n" with no trailing newline.
func WriteCSV(w io.Writer, entries []core.RosterEntry, keys []string) error {
	if len(entries) == 0 {
		return ErrNoRows
	}
	fields, err := Resolve(keys)
	if err != nil {
		return err
	}

	var b strings.Builder
	labels := make([]string, len(fields))
	for i, f := range fields {
		labels[i] = f.Label
	}
	b.WriteString(strings.Join(labels, ","))

	cells := make([]string, len(fields))
	for _, e := range entries {
		for i, f := range fields {
			cells[i] = quote(f.Value(e))
		}
		b.WriteByte('\n')
		b.WriteString(strings.Join(cells, ","))
	}

	_, err = io.WriteString(w, b.String())
	return err
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
