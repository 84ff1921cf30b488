// Package typemap maps native type names to target-language types.
package typemap

import (
	"log/slog"
	"slices"

	"github.com/Alia5/bindgen/internal/codegen/failure"
	"github.com/Alia5/bindgen/internal/codegen/symtab"
)

type Strategy string

const (
	// Opaque types cross the boundary as an untyped handle.
	Opaque Strategy = "opaque"
	// BuiltinEquivalent types are ABI-compatible with a target built-in type.
	BuiltinEquivalent Strategy = "builtin-equivalent"
	// Value types are blittable structs copied by value.
	Value Strategy = "value"
)

func Strategies() []Strategy { return []Strategy{Opaque, BuiltinEquivalent, Value} }

type Mapping struct {
	Target   string   `yaml:"target" json:"target" toml:"target"`
	Strategy Strategy `yaml:"strategy" json:"strategy" toml:"strategy"`
	// Marshal is an optional interop marshaling hint, e.g. LPWStr.
	Marshal string `yaml:"marshal,omitempty" json:"marshal,omitempty" toml:"marshal,omitempty"`
}

// Validate reports an incomplete target descriptor.
func (m Mapping) Validate() error {
	switch {
	case m.Target == "":
		return failure.Configurationf("type mapping target must not be empty")
	case m.Strategy == "":
		return failure.Configurationf("type mapping to %q has no strategy", m.Target)
	case !slices.Contains(Strategies(), m.Strategy):
		return failure.Configurationf("type mapping to %q has unknown strategy %q (supported: %v)", m.Target, m.Strategy, Strategies())
	}
	return nil
}

// Registry holds at most one mapping per native name.
type Registry struct {
	logger  *slog.Logger
	entries map[string]Mapping
	order   []string
}

func New(logger *slog.Logger) *Registry {
	return &Registry{
		logger:  logger,
		entries: make(map[string]Mapping),
	}
}

// Register stores m for nativeName. A later registration replaces an earlier
// one and is logged.
func (r *Registry) Register(nativeName string, m Mapping) error {
	if nativeName == "" {
		return failure.Configurationf("type mapping for %q has an empty native name", m.Target)
	}
	if err := m.Validate(); err != nil {
		return err
	}
	if prev, ok := r.entries[nativeName]; ok {
		r.logger.Warn("Type mapping overridden", "native", nativeName, "previous", prev.Target, "target", m.Target)
	} else {
		r.order = append(r.order, nativeName)
	}
	r.entries[nativeName] = m
	r.logger.Debug("Registered type mapping", "native", nativeName, "target", m.Target, "strategy", m.Strategy)
	return nil
}

// Resolve looks up typeName exactly; there is no partial or fuzzy matching.
func (r *Registry) Resolve(typeName string) (Mapping, bool) {
	m, ok := r.entries[typeName]
	return m, ok
}

// Names lists registered native names in first-registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

func (r *Registry) Len() int { return len(r.entries) }

// Annotate sets ResolvedType on every declaration whose qualified name has a
// mapping and returns the native names that matched nothing in the table.
func Annotate(t *symtab.Table, r *Registry) (unused []string) {
	hit := make(map[string]bool, r.Len())
	t.Walk(func(d *symtab.Declaration) bool {
		m, ok := r.Resolve(d.QualifiedName)
		if !ok {
			return true
		}
		hit[d.QualifiedName] = true
		d.ResolvedType = &symtab.TargetType{Name: m.Target, Strategy: string(m.Strategy), Marshal: m.Marshal}
		return true
	})
	for _, name := range r.order {
		if !hit[name] {
			unused = append(unused, name)
		}
	}
	return unused
}
