package plugins

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kb-labs/plugins/internal/pm"
)

// Info is registry metadata for a package.
type Info struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Description string            `json:"description"`
	DistTags    map[string]string `json:"dist-tags"`
	Versions    versions          `json:"versions"`
}

// View queries the registry for spec. npm prints the metadata object itself
// while yarn wraps it in {"type":"inspect","data":...}.
func (mgr *Manager) View(ctx context.Context, spec string) (*Info, error) {
	out, err := mgr.PM.View(ctx, []string{spec, "--json"}, pm.ExecOptions{Cwd: mgr.DataDir})
	if err != nil {
		return nil, fmt.Errorf("view %s: %w", spec, err)
	}
	return parseInfo([]byte(out.Stdout))
}

func parseInfo(data []byte) (*Info, error) {
	if strings.TrimSpace(string(data)) == "" {
		return nil, fmt.Errorf("view: empty response")
	}
	var envelope struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Type == "inspect" {
		data = envelope.Data
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("view: parse metadata: %w", err)
	}
	return &info, nil
}

// versions accepts npm's single string for a one-version package as well as
// the usual array.
type versions []string

func (v *versions) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*v = versions{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("versions: %w", err)
	}
	*v = many
	return nil
}
