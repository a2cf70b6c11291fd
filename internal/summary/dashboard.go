// internal/summary/dashboard.go
package summary

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/user/vaultscribe/internal/types"
)

const (
	markerBegin = "<!-- vaultscribe:begin -->"
	markerEnd   = "<!-- vaultscribe:end -->"
)

// renderGenerated renders the generated dashboard region from the stats.
// The output is a pure function of the stats, so incremental updates and
// full rebuilds over the same log produce identical bytes.
func renderGenerated(stats Stats) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Total events: **%d**\n\n", stats.Total)
	if stats.Total > 0 {
		fmt.Fprintf(&b, "First event: %s\n", stats.First.Format(types.TimestampLayout))
		fmt.Fprintf(&b, "Last event: %s\n\n", stats.Last.Format(types.TimestampLayout))
	}

	if len(stats.ByKind) > 0 {
		b.WriteString("## Events by type\n\n| eventType | count |\n| --- | --- |\n")
		kinds := make([]string, 0, len(stats.ByKind))
		for k := range stats.ByKind {
			kinds = append(kinds, string(k))
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Fprintf(&b, "| %s | %d |\n", k, stats.ByKind[types.EventKind(k)])
		}
		b.WriteString("\n")
	}

	if len(stats.Periods) > 0 {
		b.WriteString("## Events by period\n\n| period | count |\n| --- | --- |\n")
		keys := make([]string, 0, len(stats.Periods))
		for k := range stats.Periods {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "| %s | %d |\n", k, stats.Periods[k].Count)
		}
		b.WriteString("\n")
	}

	if len(stats.Recent) > 0 {
		b.WriteString("## Recent activity\n\n| timestamp | eventType | file |\n| --- | --- | --- |\n")
		// Newest first.
		for i := len(stats.Recent) - 1; i >= 0; i-- {
			rec := stats.Recent[i]
			fmt.Fprintf(&b, "| %s | %s | %s |\n",
				rec.Timestamp.Format(types.TimestampLayout), rec.Type, dashboardCell(rec.FileName))
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// dashboardCell keeps untrusted names from breaking the dashboard tables.
func dashboardCell(s string) string {
	s = strings.ReplaceAll(s, "\\", `\\`)
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return s
}

// initialDashboard is the file written when no dashboard exists yet.
func initialDashboard(vaultName string, stats Stats) string {
	title := "# Vault Activity Dashboard"
	if vaultName != "" {
		title = fmt.Sprintf("# %s Activity Dashboard", vaultName)
	}
	return fmt.Sprintf("%s\n\n%s\n%s%s\n", title, markerBegin, renderGenerated(stats), markerEnd)
}

// replaceGenerated swaps the marked region of an existing dashboard for
// fresh content, preserving everything outside the markers byte for byte.
// If the user removed the markers, the region is appended at the end and
// their text is left alone.
func replaceGenerated(existing string, stats Stats) string {
	region := fmt.Sprintf("%s\n%s%s", markerBegin, renderGenerated(stats), markerEnd)

	begin := strings.Index(existing, markerBegin)
	end := strings.Index(existing, markerEnd)
	if begin < 0 || end < 0 || end < begin {
		if !strings.HasSuffix(existing, "\n") && existing != "" {
			existing += "\n"
		}
		return existing + "\n" + region + "\n"
	}
	return existing[:begin] + region + existing[end+len(markerEnd):]
}

// writeDashboard writes the dashboard atomically.
func writeDashboard(path, content string) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write dashboard: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename dashboard: %w", err)
	}
	return nil
}
