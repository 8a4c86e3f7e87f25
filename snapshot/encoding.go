package snapshot

import (
	"encoding/json"
	"fmt"

	"sigs.k8s.io/yaml"
)

// MarshalYAML encodes a snapshot as YAML with sorted keys.
func MarshalYAML(s Snapshot) ([]byte, error) {
	out, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("snapshot: marshal yaml: %w", err)
	}
	return out, nil
}

// UnmarshalYAML decodes YAML (or JSON) into a plain snapshot. Numbers decode
// as json.Number, as in Get. Empty input yields an empty snapshot.
func UnmarshalYAML(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := yaml.Unmarshal(data, &s, useNumber); err != nil {
		return nil, fmt.Errorf("snapshot: unmarshal yaml: %w", err)
	}
	if s == nil {
		s = Snapshot{}
	}
	return s, nil
}

func useNumber(d *json.Decoder) *json.Decoder {
	d.UseNumber()
	return d
}
