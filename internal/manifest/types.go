package manifest

import (
	"encoding/json"
	"fmt"
	"slices"
)

// FileName is the package metadata file name.
const FileName = "package.json"

// Manifest is the subset of package.json read and written by kb-plugins.
type Manifest struct {
	Name         string            `json:"name"`
	Version      string            `json:"version,omitempty"`
	Description  string            `json:"description,omitempty"`
	Bin          Bin               `json:"bin,omitzero"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
	KB           *PluginConfig     `json:"kb,omitempty"`
	Private      bool              `json:"private,omitempty"`
}

// PluginConfig is the "kb" section. In a plugin package it marks the package
// as a plugin; in the plugin root it lists the installed plugins.
type PluginConfig struct {
	Commands string   `json:"commands,omitempty"`
	Plugins  []Plugin `json:"plugins,omitempty"`
	Schema   int      `json:"schema,omitempty"`
}

// Plugin is one entry of the plugin root.
type Plugin struct {
	Name string `json:"name"`
	Type string `json:"type"` // "user" or "link"
	Tag  string `json:"tag,omitempty"`
	URL  string `json:"url,omitempty"`
}

// IsPlugin reports whether the package declares plugin metadata.
func (m *Manifest) IsPlugin() bool {
	return m.KB != nil
}

// PluginNames returns the names of the plugins recorded in the root.
func (m *Manifest) PluginNames() []string {
	if m.KB == nil {
		return nil
	}
	names := make([]string, len(m.KB.Plugins))
	for i, p := range m.KB.Plugins {
		names[i] = p.Name
	}
	return names
}

// Bin is the package.json "bin" field: either a single path, which is
// installed under the package name, or a map of command name to path.
type Bin struct {
	Single string
	Named  map[string]string
}

// IsZero reports whether no bin entry is declared.
func (b Bin) IsZero() bool {
	return b.Single == "" && len(b.Named) == 0
}

// Entry returns the script path declared for command name.
func (b Bin) Entry(name string) (string, bool) {
	if b.Single != "" {
		return b.Single, true
	}
	p, ok := b.Named[name]
	return p, ok
}

// Names returns the declared command names in sorted order.
func (b Bin) Names() []string {
	names := make([]string, 0, len(b.Named))
	for n := range b.Named {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

func (b Bin) MarshalJSON() ([]byte, error) {
	if b.Single != "" {
		return json.Marshal(b.Single)
	}
	return json.Marshal(b.Named)
}

func (b *Bin) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*b = Bin{Single: single}
		return nil
	}
	var named map[string]string
	if err := json.Unmarshal(data, &named); err != nil {
		return fmt.Errorf("bin: want string or object: %w", err)
	}
	*b = Bin{Named: named}
	return nil
}
