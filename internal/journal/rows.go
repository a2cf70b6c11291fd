// internal/journal/rows.go
package journal

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/user/vaultscribe/internal/types"
)

// columns is the fixed column order of every log period file.
var columns = []string{"id", "timestamp", "eventType", "filePath", "fileName", "vaultName", "hostname", "metadata"}

// HeaderBlock returns the markdown table header and delimiter rows written
// at the top of a new period file.
func HeaderBlock() string {
	var b strings.Builder
	b.WriteString("| ")
	b.WriteString(strings.Join(columns, " | "))
	b.WriteString(" |\n| ")
	for i := range columns {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString("---")
	}
	b.WriteString(" |\n")
	return b.String()
}

// EncodeRow renders one record as a markdown table row. Cell content is
// escaped so pipes and newlines in untrusted fields (paths, names) can never
// break the table structure; ParseRow reverses the escaping exactly.
func EncodeRow(rec *types.EventRecord) (string, error) {
	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	cells := []string{
		string(rec.ID),
		rec.Timestamp.Format(types.TimestampLayout),
		string(rec.Type),
		rec.FilePath,
		rec.FileName,
		rec.VaultName,
		rec.Hostname,
		string(meta),
	}
	var b strings.Builder
	b.WriteString("|")
	for _, c := range cells {
		b.WriteString(" ")
		b.WriteString(escapeCell(c))
		b.WriteString(" |")
	}
	b.WriteString("\n")
	return b.String(), nil
}

// ParseRow decodes one table row back into a record. Header and delimiter
// rows, blank lines, and rows with the wrong column count (including a
// truncated trailing row after a crash) are rejected with an error.
func ParseRow(line string) (*types.EventRecord, error) {
	line = strings.TrimRight(line, "\n")
	if line == "" || !strings.HasPrefix(line, "|") || !strings.HasSuffix(line, "|") {
		return nil, fmt.Errorf("not a table row: %q", line)
	}
	cells := splitCells(line)
	if len(cells) != len(columns) {
		return nil, fmt.Errorf("expected %d cells, got %d", len(columns), len(cells))
	}
	if cells[0] == columns[0] || strings.Trim(cells[0], "-") == "" {
		return nil, fmt.Errorf("header or delimiter row")
	}

	ts, err := time.Parse(types.TimestampLayout, cells[1])
	if err != nil {
		return nil, fmt.Errorf("parse timestamp: %w", err)
	}
	rec := &types.EventRecord{
		ID:        types.EventID(cells[0]),
		Timestamp: ts,
		Type:      types.EventKind(cells[2]),
		FilePath:  cells[3],
		FileName:  cells[4],
		VaultName: cells[5],
		Hostname:  cells[6],
	}
	if err := json.Unmarshal([]byte(cells[7]), &rec.Metadata); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	return rec, nil
}

// splitCells splits a row on unescaped pipes and unescapes each cell. The
// leading and trailing pipe produce empty fragments that are discarded, and
// the single space of padding around each cell is stripped.
func splitCells(line string) []string {
	var cells []string
	var cur strings.Builder
	escaped := false
	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune('\\')
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '|':
			cells = append(cells, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		cells = append(cells, cur.String())
	}
	// Drop the fragments outside the leading and trailing pipe.
	if len(cells) > 0 && strings.TrimSpace(cells[0]) == "" {
		cells = cells[1:]
	}
	out := make([]string, 0, len(cells))
	for _, c := range cells {
		c = strings.TrimPrefix(c, " ")
		c = strings.TrimSuffix(c, " ")
		out = append(out, unescapeCell(c))
	}
	return out
}

func escapeCell(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '|':
			b.WriteString(`\|`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func unescapeCell(s string) string {
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if !escaped {
			if r == '\\' {
				escaped = true
			} else {
				b.WriteRune(r)
			}
			continue
		}
		switch r {
		case '\\':
			b.WriteRune('\\')
		case '|':
			b.WriteRune('|')
		case 'n':
			b.WriteRune('\n')
		case 'r':
			b.WriteRune('\r')
		default:
			b.WriteRune('\\')
			b.WriteRune(r)
		}
		escaped = false
	}
	return b.String()
}
