// internal/types/metadata_test.go
package types

import (
	"encoding/json"
	"testing"
)

func TestMetadataRoundTrip(t *testing.T) {
	m := Metadata{
		OldPath:      "old/path.md",
		LastModified: "2026-08-30T12:00:00.000Z",
		SizeBytes:    2048,
		QuitMethod:   "window-close",
	}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}

	var decoded Metadata
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if !decoded.Equal(m) {
		t.Errorf("round-trip mismatch: %+v != %+v", decoded, m)
	}
}

func TestMetadataUnknownKeysPreserved(t *testing.T) {
	input := `{"lastModified":"2026-08-30T12:00:00.000Z","futureField":"kept","answer":42}`

	var m Metadata
	if err := json.Unmarshal([]byte(input), &m); err != nil {
		t.Fatal(err)
	}

	if m.LastModified != "2026-08-30T12:00:00.000Z" {
		t.Errorf("known key lost: %q", m.LastModified)
	}
	if m.Extra["futureField"] != "kept" {
		t.Errorf("unknown key dropped: %v", m.Extra)
	}
	if m.Extra["answer"] != "42" {
		t.Errorf("non-string unknown value not preserved: %v", m.Extra)
	}

	// Re-encoding keeps the unknown keys.
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	var again Metadata
	if err := json.Unmarshal(data, &again); err != nil {
		t.Fatal(err)
	}
	if !again.Equal(m) {
		t.Errorf("unknown keys lost across re-encode: %+v != %+v", again, m)
	}
}

func TestMetadataDeterministicEncoding(t *testing.T) {
	m := Metadata{
		Source: "watcher",
		Extra:  map[string]string{"b": "2", "a": "1", "c": "3"},
	}

	first, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		next, err := json.Marshal(m)
		if err != nil {
			t.Fatal(err)
		}
		if string(next) != string(first) {
			t.Fatalf("encoding not deterministic: %s != %s", next, first)
		}
	}
}

func TestMetadataIsEmpty(t *testing.T) {
	if !(Metadata{}).IsEmpty() {
		t.Error("zero metadata should be empty")
	}
	if (Metadata{Source: "x"}).IsEmpty() {
		t.Error("metadata with a field set should not be empty")
	}
}
