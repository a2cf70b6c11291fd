// internal/types/metadata.go
package types

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Metadata carries kind-specific extra fields for an EventRecord. The known
// fields cover the kinds this system emits itself; anything else arriving
// from an external adapter lands in Extra and is preserved through
// decode/encode rather than dropped.
type Metadata struct {
	OldPath       string
	LastModified  string
	SizeBytes     int64
	PluginVersion string
	QuitMethod    string
	Source        string
	Extra         map[string]string
}

// flat returns the metadata as a single key/value map, the shape it takes in
// the persisted row. All values are strings.
func (m Metadata) flat() map[string]string {
	out := make(map[string]string)
	if m.OldPath != "" {
		out["oldPath"] = m.OldPath
	}
	if m.LastModified != "" {
		out["lastModified"] = m.LastModified
	}
	if m.SizeBytes > 0 {
		out["sizeBytes"] = strconv.FormatInt(m.SizeBytes, 10)
	}
	if m.PluginVersion != "" {
		out["pluginVersion"] = m.PluginVersion
	}
	if m.QuitMethod != "" {
		out["quitMethod"] = m.QuitMethod
	}
	if m.Source != "" {
		out["source"] = m.Source
	}
	for k, v := range m.Extra {
		out[k] = v
	}
	return out
}

// IsEmpty reports whether no metadata field is set.
func (m Metadata) IsEmpty() bool {
	return len(m.flat()) == 0
}

// MarshalJSON encodes the metadata as one flat JSON object. encoding/json
// sorts map keys, so the encoding is deterministic for a given value.
func (m Metadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.flat())
}

// UnmarshalJSON decodes a flat JSON object, routing known keys to their
// struct fields and everything else into Extra. Non-string values are kept
// as their literal JSON text.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Metadata{}
	for k, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			s = strings.TrimSpace(string(v))
		}
		switch k {
		case "oldPath":
			m.OldPath = s
		case "lastModified":
			m.LastModified = s
		case "sizeBytes":
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				// Unparseable size is preserved rather than dropped.
				m.setExtra(k, s)
				continue
			}
			m.SizeBytes = n
		case "pluginVersion":
			m.PluginVersion = s
		case "quitMethod":
			m.QuitMethod = s
		case "source":
			m.Source = s
		default:
			m.setExtra(k, s)
		}
	}
	return nil
}

func (m *Metadata) setExtra(k, v string) {
	if m.Extra == nil {
		m.Extra = make(map[string]string)
	}
	m.Extra[k] = v
}

// Equal compares two metadata values field for field, including Extra.
func (m Metadata) Equal(other Metadata) bool {
	a, b := m.flat(), other.flat()
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
