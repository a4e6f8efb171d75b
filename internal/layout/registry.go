package layout

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Definition is the serializable form of a user-defined layout: a flat
// character mapping relative to US-QWERTY plus metadata. This is what the
// layouts import/export files and the preference store hold.
type Definition struct {
	Name           string            `json:"name" yaml:"name"`
	Description    string            `json:"description,omitempty" yaml:"description,omitempty"`
	AllowConflicts bool              `json:"allow_conflicts,omitempty" yaml:"allow_conflicts,omitempty"`
	Mapping        map[string]string `json:"mapping" yaml:"mapping"`
}

// Translation derives the bidirectional translation from the flat mapping.
func (d Definition) Translation() Translation {
	return FromMap(d.Mapping)
}

// Validate checks the definition: a non-empty name, every mapped character
// on a remappable key, and a bijective mapping unless conflicts are
// explicitly allowed.
func (d Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("layout name is empty")
	}
	remappable := make(map[string]bool, len(RemappableKeys))
	for _, k := range RemappableKeys {
		remappable[k] = true
	}
	for in, out := range d.Mapping {
		if !remappable[in] {
			return fmt.Errorf("layout %s: %q is not a remappable key", d.Name, in)
		}
		if !remappable[out] {
			return fmt.Errorf("layout %s: %q is not a remappable character", d.Name, out)
		}
	}
	if t := d.Translation(); !d.AllowConflicts && !t.IsValid() {
		return fmt.Errorf("layout %s: conflicting keys %s (set allow_conflicts to accept)",
			d.Name, strings.Join(t.Conflicts(), ", "))
	}
	return nil
}

// Registry holds the built-in layouts plus user-defined ones, resolved by
// name. Built-ins can never be shadowed or removed.
type Registry struct {
	custom map[string]Definition
}

// NewRegistry returns a registry with only the built-ins.
func NewRegistry() *Registry {
	return &Registry{custom: make(map[string]Definition)}
}

// Add registers a user-defined layout. Built-in names and names already
// registered are rejected.
func (r *Registry) Add(def Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if IsBuiltIn(def.Name) {
		return fmt.Errorf("layout %s: cannot shadow a built-in layout", def.Name)
	}
	if _, exists := r.custom[def.Name]; exists {
		return fmt.Errorf("layout %s: already registered", def.Name)
	}
	r.custom[def.Name] = def
	return nil
}

// Remove deletes a user-defined layout.
func (r *Registry) Remove(name string) error {
	if IsBuiltIn(name) {
		return fmt.Errorf("layout %s: built-in layouts cannot be removed", name)
	}
	if _, exists := r.custom[name]; !exists {
		return fmt.Errorf("layout %s: not registered", name)
	}
	delete(r.custom, name)
	return nil
}

// Resolve returns the translation for a layout name, built-in or custom.
func (r *Registry) Resolve(name string) (Translation, error) {
	if t, ok := builtIn[name]; ok {
		return t, nil
	}
	if def, ok := r.custom[name]; ok {
		return def.Translation(), nil
	}
	return Translation{}, fmt.Errorf("unknown layout %q", name)
}

// AllowConflicts reports whether a layout tolerates non-bijective mappings.
// Built-ins never do.
func (r *Registry) AllowConflicts(name string) bool {
	if def, ok := r.custom[name]; ok {
		return def.AllowConflicts
	}
	return false
}

// Definition returns the serializable form of a layout. Built-ins are
// synthesized from their translation so they can be exported too.
func (r *Registry) Definition(name string) (Definition, error) {
	if t, ok := builtIn[name]; ok {
		return Definition{
			Name:        name,
			Description: builtInDescriptions[name],
			Mapping:     t.InOut(),
		}, nil
	}
	if def, ok := r.custom[name]; ok {
		return def, nil
	}
	return Definition{}, fmt.Errorf("unknown layout %q", name)
}

// Names lists all layouts: built-ins in presentation order, then custom
// layouts sorted by name.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(BuiltInNames)+len(r.custom))
	names = append(names, BuiltInNames...)
	custom := make([]string, 0, len(r.custom))
	for name := range r.custom {
		custom = append(custom, name)
	}
	sort.Strings(custom)
	return append(names, custom...)
}

// CustomDefinitions returns the user-defined layouts sorted by name, for
// persistence.
func (r *Registry) CustomDefinitions() []Definition {
	defs := make([]Definition, 0, len(r.custom))
	for _, def := range r.custom {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Import parses a layout file (YAML, which subsumes JSON), validates it
// against the layout schema, and registers it.
func (r *Registry) Import(data []byte) (Definition, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Definition{}, fmt.Errorf("parse layout file: %w", err)
	}
	if err := validateDefinitionSchema(raw); err != nil {
		return Definition{}, err
	}
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, fmt.Errorf("decode layout file: %w", err)
	}
	if err := r.Add(def); err != nil {
		return Definition{}, err
	}
	return def, nil
}

// Export serializes a layout to YAML.
func (r *Registry) Export(name string) ([]byte, error) {
	def, err := r.Definition(name)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(def)
}
