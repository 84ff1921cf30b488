package passes

import (
	"github.com/Alia5/bindgen/internal/codegen/symtab"
)

const StaticConversionName = "static-conversion"

// StaticConversion moves every remaining free function into the holder class
// of its namespace as a static method. Holders missing from the table are
// synthesized where the first function they absorb used to be.
type StaticConversion struct {
	opts Options
}

func NewStaticConversion(opts Options) StaticConversion {
	if opts.HolderSuffix == "" {
		opts.HolderSuffix = DefaultHolderSuffix
	}
	if opts.GlobalHolder == "" {
		opts.GlobalHolder = DefaultGlobalHolder
	}
	return StaticConversion{opts: opts}
}

func (StaticConversion) Name() string { return StaticConversionName }

// HolderName is the holder class name for functions of namespace ns.
func (p StaticConversion) HolderName(ns string) string {
	if ns == "" {
		return p.opts.GlobalHolder
	}
	return symtab.Last(ns) + p.opts.HolderSuffix
}

func (p StaticConversion) Run(t *symtab.Table, r *Report) error {
	classes := t.Classes()
	holders := map[string]*symtab.Declaration{}
	out := make([]*symtab.Declaration, 0, len(t.Decls))
	for _, d := range t.Decls {
		if d.Kind != symtab.KindFunction {
			out = append(out, d)
			continue
		}
		h, ok := holders[d.Namespace]
		if !ok {
			qn := symtab.Join(d.Namespace, p.HolderName(d.Namespace))
			h = classes[qn]
			if h == nil {
				h = &symtab.Declaration{
					Name:          p.HolderName(d.Namespace),
					QualifiedName: qn,
					Header:        d.Header,
					Kind:          symtab.KindClass,
					Namespace:     d.Namespace,
					Access:        symtab.AccessPublic,
					Synthesized:   true,
				}
				classes[qn] = h
				out = append(out, h)
			} else if h.Excluded {
				r.Warn(p.Name(), d.QualifiedName, "holder class %s is excluded; its static methods will not be emitted", qn)
			}
			holders[d.Namespace] = h
		}
		d.Kind = symtab.KindStaticMethod
		d.Owner = h.QualifiedName
		d.QualifiedName = symtab.Join(h.QualifiedName, d.Name)
		h.Members = append(h.Members, d)
	}
	t.Decls = out
	return nil
}
