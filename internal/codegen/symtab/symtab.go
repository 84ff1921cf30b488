// Package symtab holds the declarations parsed from native headers.
//
// A Table keeps top-level declarations in source order, headers in the
// configured order. Classes own their members. The table is created by the
// header front-end and then annotated and restructured in place by the
// exclusion engine, the type mapping registry and the transform passes.
package symtab

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrDuplicate is returned by Add when a header already declares the same key.
var ErrDuplicate = errors.New("duplicate declaration")

type Kind string

const (
	KindNamespace      Kind = "namespace"
	KindClass          Kind = "class"
	KindFunction       Kind = "function"
	KindTypedef        Kind = "typedef"
	KindField          Kind = "field"
	KindEnum           Kind = "enum"
	KindMethod         Kind = "method"
	KindConstructor    Kind = "constructor"
	KindInstanceMethod Kind = "instance-method"
	KindStaticMethod   Kind = "static-method"
)

// Callable reports whether declarations of this kind can be invoked.
func (k Kind) Callable() bool {
	switch k {
	case KindFunction, KindMethod, KindConstructor, KindInstanceMethod, KindStaticMethod:
		return true
	}
	return false
}

type Access string

const (
	AccessPublic    Access = "public"
	AccessProtected Access = "protected"
	AccessPrivate   Access = "private"
)

// TypeRef is a type as referenced by a declaration. Name is spelled as in the
// header, without cv-qualifiers or declarators.
type TypeRef struct {
	Name      string `yaml:"name" json:"name"`
	Const     bool   `yaml:"const,omitempty" json:"const,omitempty"`
	Pointer   int    `yaml:"pointer,omitempty" json:"pointer,omitempty"`
	Reference bool   `yaml:"reference,omitempty" json:"reference,omitempty"`
}

func (t TypeRef) String() string {
	var b strings.Builder
	if t.Const {
		b.WriteString("const ")
	}
	b.WriteString(t.Name)
	b.WriteString(strings.Repeat("*", t.Pointer))
	if t.Reference {
		b.WriteString("&")
	}
	return b.String()
}

// IsVoid reports a plain void, not a void pointer.
func (t TypeRef) IsVoid() bool {
	return t.Name == "void" && t.Pointer == 0 && !t.Reference
}

type Param struct {
	Name    string  `yaml:"name,omitempty" json:"name,omitempty"`
	Type    TypeRef `yaml:"type" json:"type"`
	Default string  `yaml:"default,omitempty" json:"default,omitempty"`
}

type Enumerator struct {
	Name  string `yaml:"name" json:"name"`
	Value string `yaml:"value,omitempty" json:"value,omitempty"`
}

// TargetType is the target-language type a declaration resolves to.
type TargetType struct {
	Name     string `yaml:"name" json:"name"`
	Strategy string `yaml:"strategy" json:"strategy"`
	Marshal  string `yaml:"marshal,omitempty" json:"marshal,omitempty"`
}

// Declaration is one named entity found in a header.
type Declaration struct {
	Name          string `yaml:"name" json:"name"`
	QualifiedName string `yaml:"qualifiedName" json:"qualifiedName"`
	// Native is the qualified name as declared in the header. Passes never rewrite it.
	Native    string `yaml:"native,omitempty" json:"native,omitempty"`
	Header    string `yaml:"header" json:"header"`
	Kind      Kind   `yaml:"kind" json:"kind"`
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`
	Owner     string `yaml:"owner,omitempty" json:"owner,omitempty"`
	Access    Access `yaml:"access,omitempty" json:"access,omitempty"`

	Type        TypeRef        `yaml:"type,omitempty" json:"type,omitempty"`
	Params      []Param        `yaml:"params,omitempty" json:"params,omitempty"`
	Receiver    *Param         `yaml:"receiver,omitempty" json:"receiver,omitempty"`
	Variadic    bool           `yaml:"variadic,omitempty" json:"variadic,omitempty"`
	Static      bool           `yaml:"static,omitempty" json:"static,omitempty"`
	Virtual     bool           `yaml:"virtual,omitempty" json:"virtual,omitempty"`
	Const       bool           `yaml:"const,omitempty" json:"const,omitempty"`
	Abstract    bool           `yaml:"abstract,omitempty" json:"abstract,omitempty"`
	Bases       []string       `yaml:"bases,omitempty" json:"bases,omitempty"`
	Enumerators []Enumerator   `yaml:"enumerators,omitempty" json:"enumerators,omitempty"`
	Members     []*Declaration `yaml:"members,omitempty" json:"members,omitempty"`

	Synthesized bool   `yaml:"synthesized,omitempty" json:"synthesized,omitempty"`
	Unsupported string `yaml:"unsupported,omitempty" json:"unsupported,omitempty"`

	Excluded     bool        `yaml:"excluded,omitempty" json:"excluded,omitempty"`
	ResolvedType *TargetType `yaml:"resolvedType,omitempty" json:"resolvedType,omitempty"`
}

// Key identifies a declaration within its header. Callables include their
// parameter types so overloads stay distinct.
func (d *Declaration) Key() string {
	if !d.Kind.Callable() {
		return d.QualifiedName
	}
	types := make([]string, 0, len(d.Params)+1)
	if d.Receiver != nil {
		types = append(types, d.Receiver.Type.String())
	}
	for _, p := range d.Params {
		types = append(types, p.Type.String())
	}
	if d.Variadic {
		types = append(types, "...")
	}
	key := d.QualifiedName + "(" + strings.Join(types, ",") + ")"
	if d.Const {
		key += " const"
	}
	return key
}

// Scope is the name lookups inside the declaration start from.
func (d *Declaration) Scope() string {
	switch d.Kind {
	case KindMethod, KindConstructor, KindField:
		return d.Owner
	case KindClass:
		return d.QualifiedName
	}
	return d.Namespace
}

// AddMember appends m to a class. Members with the same key are rejected.
func (d *Declaration) AddMember(m *Declaration) error {
	key := m.Key()
	for _, existing := range d.Members {
		if existing.Key() == key {
			return errors.Wrapf(ErrDuplicate, "%s", key)
		}
	}
	d.Members = append(d.Members, m)
	return nil
}

// Table is the ordered symbol table of one generation run.
type Table struct {
	Triple  string         `yaml:"triple,omitempty" json:"triple,omitempty"`
	Headers []string       `yaml:"headers,omitempty" json:"headers,omitempty"`
	Decls   []*Declaration `yaml:"declarations" json:"declarations"`

	keys map[string]struct{}
}

func New(triple string, headers ...string) *Table {
	return &Table{Triple: triple, Headers: headers}
}

func headerKey(d *Declaration) string {
	return d.Header + "\x00" + d.Key()
}

// Add appends a top-level declaration. A header may not declare the same key twice.
func (t *Table) Add(d *Declaration) error {
	if t.keys == nil {
		t.keys = make(map[string]struct{}, len(t.Decls))
		for _, existing := range t.Decls {
			t.keys[headerKey(existing)] = struct{}{}
		}
	}
	k := headerKey(d)
	if _, ok := t.keys[k]; ok {
		return errors.Wrapf(ErrDuplicate, "%s in %s", d.Key(), d.Header)
	}
	t.keys[k] = struct{}{}
	t.Decls = append(t.Decls, d)
	return nil
}

// Walk visits every declaration depth first in table order. Members of d are
// skipped when fn returns false.
func (t *Table) Walk(fn func(d *Declaration) bool) {
	var walk func(ds []*Declaration)
	walk = func(ds []*Declaration) {
		for _, d := range ds {
			if fn(d) {
				walk(d.Members)
			}
		}
	}
	walk(t.Decls)
}

func (t *Table) index(kind Kind) map[string]*Declaration {
	out := map[string]*Declaration{}
	t.Walk(func(d *Declaration) bool {
		if d.Kind == kind {
			if _, ok := out[d.QualifiedName]; !ok {
				out[d.QualifiedName] = d
			}
		}
		return true
	})
	return out
}

// Classes indexes every class, nested ones included, by qualified name.
func (t *Table) Classes() map[string]*Declaration { return t.index(KindClass) }

func (t *Table) Typedefs() map[string]*Declaration { return t.index(KindTypedef) }

func (t *Table) Enums() map[string]*Declaration { return t.index(KindEnum) }

// Lookup resolves name the way C++ does for unqualified names: first inside
// scope, then in each enclosing scope out to the global namespace.
func Lookup(index map[string]*Declaration, name, scope string) *Declaration {
	name = strings.TrimPrefix(name, "::")
	for {
		if d, ok := index[Join(scope, name)]; ok {
			return d
		}
		if scope == "" {
			return nil
		}
		scope = Parent(scope)
	}
}

// Join builds a qualified name.
func Join(scope, name string) string {
	if scope == "" {
		return name
	}
	return scope + "::" + name
}

// Parent strips the last segment of a qualified name.
func Parent(qualified string) string {
	if i := strings.LastIndex(qualified, "::"); i >= 0 {
		return qualified[:i]
	}
	return ""
}

// Last returns the last segment of a qualified name.
func Last(qualified string) string {
	if i := strings.LastIndex(qualified, "::"); i >= 0 {
		return qualified[i+2:]
	}
	return qualified
}

type Stats struct {
	Total    int `yaml:"total" json:"total"`
	Excluded int `yaml:"excluded" json:"excluded"`
}

// Stats counts declarations other than namespaces.
func (t *Table) Stats() Stats {
	var s Stats
	t.Walk(func(d *Declaration) bool {
		if d.Kind == KindNamespace {
			return true
		}
		s.Total++
		if d.Excluded {
			s.Excluded++
		}
		return true
	})
	return s
}

// Bindable counts the declarations left for emission.
func (t *Table) Bindable() int {
	s := t.Stats()
	return s.Total - s.Excluded
}

// FreeFunctions returns the top-level functions not yet claimed by a class.
func (t *Table) FreeFunctions() []*Declaration {
	var out []*Declaration
	for _, d := range t.Decls {
		if d.Kind == KindFunction {
			out = append(out, d)
		}
	}
	return out
}

// Find returns the first declaration with the given qualified name.
func (t *Table) Find(qualified string) *Declaration {
	var found *Declaration
	t.Walk(func(d *Declaration) bool {
		if found == nil && d.QualifiedName == qualified {
			found = d
		}
		return found == nil
	})
	return found
}

func (t *Table) Clone() *Table {
	out := &Table{Triple: t.Triple, Headers: append([]string(nil), t.Headers...)}
	out.Decls = cloneAll(t.Decls)
	return out
}

func cloneAll(ds []*Declaration) []*Declaration {
	if ds == nil {
		return nil
	}
	out := make([]*Declaration, len(ds))
	for i, d := range ds {
		out[i] = d.Clone()
	}
	return out
}

// Clone deep-copies a declaration and its members.
func (d *Declaration) Clone() *Declaration {
	c := *d
	if d.Params != nil {
		c.Params = append([]Param(nil), d.Params...)
	}
	if d.Receiver != nil {
		r := *d.Receiver
		c.Receiver = &r
	}
	if d.Bases != nil {
		c.Bases = append([]string(nil), d.Bases...)
	}
	if d.Enumerators != nil {
		c.Enumerators = append([]Enumerator(nil), d.Enumerators...)
	}
	if d.ResolvedType != nil {
		rt := *d.ResolvedType
		c.ResolvedType = &rt
	}
	c.Members = cloneAll(d.Members)
	return &c
}
