// Package cardspec is the single source of truth for which fields belong to
// which card variant. The table lives as embedded YAML so the pruning rule
// applied on create and update can never drift between the two paths.
package cardspec

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed config/cards.yaml
var configFiles embed.FS

// VariantSpec describes one card type: its persistable fields and which of
// them must be present on create.
type VariantSpec struct {
	ID       string   `yaml:"id"`
	Fields   []string `yaml:"fields"`
	Required []string `yaml:"required"`
}

type specFile struct {
	Types []VariantSpec `yaml:"types"`
}

// Registry maps card types to their variant specs. Read-only after load.
type Registry struct {
	variants map[string]VariantSpec
}

// NewRegistry loads the embedded variant table.
func NewRegistry() (*Registry, error) {
	data, err := configFiles.ReadFile("config/cards.yaml")
	if err != nil {
		return nil, fmt.Errorf("read card variant table: %w", err)
	}

	var file specFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshal card variant table: %w", err)
	}
	if len(file.Types) == 0 {
		return nil, fmt.Errorf("card variant table is empty")
	}

	variants := make(map[string]VariantSpec, len(file.Types))
	for _, v := range file.Types {
		variants[v.ID] = v
	}
	return &Registry{variants: variants}, nil
}

// Known reports whether typ is a registered card type.
func (r *Registry) Known(typ string) bool {
	_, ok := r.variants[typ]
	return ok
}

// Normalize returns a copy of fields keeping only the keys belonging to the
// variant of typ. Unknown types normalize to an empty payload.
func (r *Registry) Normalize(typ string, fields map[string]any) map[string]any {
	spec, ok := r.variants[typ]
	out := make(map[string]any)
	if !ok {
		return out
	}
	for _, key := range spec.Fields {
		if value, present := fields[key]; present {
			out[key] = value
		}
	}
	return out
}

// MissingRequired lists required variant fields that are absent or empty.
func (r *Registry) MissingRequired(typ string, fields map[string]any) []string {
	spec, ok := r.variants[typ]
	if !ok {
		return nil
	}
	var missing []string
	for _, key := range spec.Required {
		value, present := fields[key]
		if !present {
			missing = append(missing, key)
			continue
		}
		if s, isString := value.(string); isString && s == "" {
			missing = append(missing, key)
		}
	}
	return missing
}
