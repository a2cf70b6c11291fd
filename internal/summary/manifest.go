// internal/summary/manifest.go
package summary

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/user/vaultscribe/internal/types"
)

// Manifest is the structured "base" artifact enumerating the log periods
// for query-tool consumption. It is fully owned by the maintainer and
// rewritten whole on every update.
type Manifest struct {
	Vault   string          `yaml:"vault"`
	Total   int             `yaml:"total"`
	Periods []PeriodSummary `yaml:"periods"`
}

type PeriodSummary struct {
	File   string `yaml:"file"`
	Period string `yaml:"period"`
	Events int    `yaml:"events"`
	First  string `yaml:"first,omitempty"`
	Last   string `yaml:"last,omitempty"`
}

// buildManifest derives the manifest from the stats, with periods in sorted
// (chronological) order so the encoding is deterministic.
func buildManifest(vaultName string, stats Stats) Manifest {
	m := Manifest{
		Vault:   vaultName,
		Total:   stats.Total,
		Periods: []PeriodSummary{},
	}
	keys := make([]string, 0, len(stats.Periods))
	for k := range stats.Periods {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p := stats.Periods[k]
		m.Periods = append(m.Periods, PeriodSummary{
			File:   "Events-" + k + ".md",
			Period: k,
			Events: p.Count,
			First:  p.First.Format(types.TimestampLayout),
			Last:   p.Last.Format(types.TimestampLayout),
		})
	}
	return m
}

// writeManifest writes the manifest atomically as YAML.
func writeManifest(path string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename manifest: %w", err)
	}
	return nil
}

// readManifest parses an existing manifest file.
func readManifest(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse manifest: %w", err)
	}
	return m, nil
}
