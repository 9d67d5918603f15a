// Package manifest reads and writes package.json files: the metadata of
// installed packages and the plugin root kept in the data directory.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Load reads and parses the package.json at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(data)
}

// LoadDir reads <dir>/package.json.
func LoadDir(dir string) (*Manifest, error) {
	return Load(filepath.Join(dir, FileName))
}

// Parse decodes package.json bytes.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse package.json: %w", err)
	}
	return &m, nil
}

// Write persists m to <dir>/package.json, creating dir if needed.
func Write(dir string, m *Manifest) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	data, err := encode(m)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), data, 0o644); err != nil {
		return fmt.Errorf("write package.json: %w", err)
	}
	return nil
}

// Ensure creates a minimal private package.json named name in dir if none
// exists. An existing file is left untouched.
func Ensure(dir, name string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return Write(dir, &Manifest{
		Name:    name,
		Version: "1.0.0",
		Private: true,
		KB:      &PluginConfig{Schema: 1},
	})
}

// UpdatePlugins rereads <dir>/package.json, applies fn to its "kb" section and
// writes the file back. Every other top-level field is kept as found on disk,
// including ones Manifest does not model, so dependencies written by the
// package manager survive.
func UpdatePlugins(dir string, fn func(*PluginConfig)) error {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("parse package.json: %w", err)
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}

	cfg := &PluginConfig{Schema: 1}
	if raw, ok := fields["kb"]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, cfg); err != nil {
			return fmt.Errorf("parse package.json kb: %w", err)
		}
	}
	fn(cfg)

	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal package.json kb: %w", err)
	}
	fields["kb"] = raw
	out, err := encode(fields)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write package.json: %w", err)
	}
	return nil
}

// encode renders v with npm's two-space indent, leaving version ranges such
// as ">=1.0.0" unescaped.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("marshal package.json: %w", err)
	}
	return buf.Bytes(), nil
}
