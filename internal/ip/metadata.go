package ip

import (
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

// Metadata is the sidecar record written next to installed copies that
// carry extra state. The installer never treats a dynamic slot as a fresh
// install candidate.
type Metadata struct {
	Dynamic bool `toml:"dynamic"`
	// Mapping records the identifier renames that produced a dynamic
	// copy, keyed by the original identifier's rendered form.
	Mapping map[string]string `toml:"mapping,omitempty"`
}

// ReadMetadataFile loads a metadata file; a missing file yields (nil, nil).
func ReadMetadataFile(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var meta Metadata
	if err := toml.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// WriteMetadataFile persists the record as TOML.
func WriteMetadataFile(path string, meta *Metadata) error {
	data, err := toml.Marshal(meta)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// SortedMappingKeys returns the rename keys in deterministic order.
func (m *Metadata) SortedMappingKeys() []string {
	keys := make([]string, 0, len(m.Mapping))
	for k := range m.Mapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
