package common

import (
	"strconv"

	"github.com/Alia5/bindgen/internal/codegen/symtab"
	"github.com/Alia5/bindgen/internal/codegen/typemap"
)

// TypeClass says how a native type crosses the C shim boundary.
type TypeClass int

const (
	TypeUnresolved TypeClass = iota
	TypeVoid
	// TypePrimitive is a built-in arithmetic type or a pointer to one.
	TypePrimitive
	// TypeString is const char* or const wchar_t*.
	TypeString
	TypeEnum
	// TypeHandle is a class from the table, passed as void*.
	TypeHandle
	TypeMapped
)

// Type is a parameter or return type resolved against the table.
type Type struct {
	Class TypeClass
	// Ref has typedefs expanded; Name is fully qualified for declarations
	// from the table and canonical for primitives.
	Ref     symtab.TypeRef
	Decl    *symtab.Declaration
	Mapping typemap.Mapping
}

// Handle reports a type passed as an untyped pointer.
func (t Type) Handle() bool {
	return t.Class == TypeHandle || (t.Class == TypeMapped && t.Mapping.Strategy == typemap.Opaque)
}

// Owned reports a handle the shim allocates and the caller must delete.
func (t Type) Owned() bool {
	return t.Handle() && t.Ref.Pointer == 0 && !t.Ref.Reference
}

var primitives = map[string]string{
	"void":                   "void",
	"bool":                   "bool",
	"char":                   "char",
	"signed char":            "signed char",
	"unsigned char":          "unsigned char",
	"wchar_t":                "wchar_t",
	"char16_t":               "char16_t",
	"char32_t":               "char32_t",
	"short":                  "short",
	"short int":              "short",
	"signed short":           "short",
	"unsigned short":         "unsigned short",
	"unsigned short int":     "unsigned short",
	"int":                    "int",
	"signed":                 "int",
	"signed int":             "int",
	"unsigned":               "unsigned int",
	"unsigned int":           "unsigned int",
	"long":                   "long",
	"long int":               "long",
	"signed long":            "long",
	"unsigned long":          "unsigned long",
	"unsigned long int":      "unsigned long",
	"long long":              "long long",
	"long long int":          "long long",
	"unsigned long long":     "unsigned long long",
	"unsigned long long int": "unsigned long long",
	"float":                  "float",
	"double":                 "double",
	"long double":            "long double",
	"size_t":                 "size_t",
	"ssize_t":                "ssize_t",
	"ptrdiff_t":              "ptrdiff_t",
	"intptr_t":               "intptr_t",
	"uintptr_t":              "uintptr_t",
	"int8_t":                 "int8_t",
	"int16_t":                "int16_t",
	"int32_t":                "int32_t",
	"int64_t":                "int64_t",
	"uint8_t":                "uint8_t",
	"uint16_t":               "uint16_t",
	"uint32_t":               "uint32_t",
	"uint64_t":               "uint64_t",
}

// CanonicalPrimitive returns the canonical spelling of a built-in type.
func CanonicalPrimitive(name string) (string, bool) {
	p, ok := primitives[name]
	return p, ok
}

const maxTypedefDepth = 16

// Index answers the questions every emitter asks about a transformed table:
// which classes and callables are bindable, how their types resolve and
// which shim symbol each callable is exported as.
type Index struct {
	library  string
	table    *symtab.Table
	types    *typemap.Registry
	classes  map[string]*symtab.Declaration
	enums    map[string]*symtab.Declaration
	typedefs map[string]*symtab.Declaration

	bindable map[*symtab.Declaration]bool
	shims    map[*symtab.Declaration]string
	skipped  []Skipped
}

// Skipped is a callable left out of the bindings.
type Skipped struct {
	Declaration string `yaml:"declaration" json:"declaration"`
	Reason      string `yaml:"reason" json:"reason"`
}

func NewIndex(library string, t *symtab.Table, types *typemap.Registry) *Index {
	if types == nil {
		types = typemap.New(nil)
	}
	ix := &Index{
		library:  library,
		table:    t,
		types:    types,
		classes:  t.Classes(),
		enums:    t.Enums(),
		typedefs: t.Typedefs(),
		bindable: map[*symtab.Declaration]bool{},
		shims:    map[*symtab.Declaration]string{},
	}
	ix.build()
	return ix
}

func (ix *Index) Library() string { return ix.library }

func (ix *Index) Table() *symtab.Table { return ix.table }

func (ix *Index) build() {
	used := map[string]int{}
	name := func(base string) string {
		n := used[base]
		used[base] = n + 1
		if n == 0 {
			return base
		}
		return base + "_" + strconv.Itoa(n)
	}

	var visit func(ds []*symtab.Declaration, owner *symtab.Declaration)
	visit = func(ds []*symtab.Declaration, owner *symtab.Declaration) {
		for _, d := range ds {
			switch {
			case d.Kind == symtab.KindClass:
				visit(d.Members, d)
			case d.Kind.Callable():
				if reason := ix.callableProblem(d, owner); reason != "" {
					if !d.Excluded {
						ix.skipped = append(ix.skipped, Skipped{Declaration: d.Key(), Reason: reason})
					}
					continue
				}
				ix.bindable[d] = true
				if d.Kind == symtab.KindConstructor {
					ix.shims[d] = name(ix.library + "_" + FlatName(owner.QualifiedName) + "_new")
				} else {
					ix.shims[d] = name(ix.library + "_" + FlatName(d.QualifiedName))
				}
			}
		}
	}
	visit(ix.table.Decls, nil)

	// Classes are decided after their members so synthesized holders with
	// nothing left to bind disappear.
	ix.table.Walk(func(d *symtab.Declaration) bool {
		if d.Kind != symtab.KindClass || !ix.classUsable(d) {
			return true
		}
		if d.Synthesized && len(ix.Callables(d)) == 0 {
			return true
		}
		ix.bindable[d] = true
		if !d.Synthesized {
			ix.shims[d] = ix.library + "_" + FlatName(d.QualifiedName) + "_delete"
		}
		return true
	})
}

func (ix *Index) classUsable(d *symtab.Declaration) bool {
	return !d.Excluded && d.ResolvedType == nil && (d.Access == "" || d.Access == symtab.AccessPublic)
}

func (ix *Index) callableProblem(d, owner *symtab.Declaration) string {
	switch {
	case d.Excluded:
		return "excluded"
	case d.Access != "" && d.Access != symtab.AccessPublic:
		return "not public"
	case d.Unsupported != "":
		return d.Unsupported
	case owner != nil && !ix.classUsable(owner):
		return "owner not bindable"
	case d.Kind == symtab.KindConstructor && owner != nil && owner.Abstract:
		return "abstract class"
	}
	scope := ResolveScope(d)
	if d.Receiver != nil {
		r := ix.Resolve(d.Receiver.Type, scope)
		if !r.Handle() || r.Ref.Pointer > 1 {
			return "receiver " + d.Receiver.Type.String() + " is not a class handle"
		}
	}
	if d.Kind != symtab.KindConstructor {
		if p := ix.problem(ix.Resolve(d.Type, scope), true); p != "" {
			return "return " + p
		}
	}
	for _, param := range d.Params {
		if p := ix.problem(ix.Resolve(param.Type, scope), false); p != "" {
			return "parameter " + param.Name + ": " + p
		}
	}
	return ""
}

func (ix *Index) problem(t Type, ret bool) string {
	switch t.Class {
	case TypeUnresolved:
		return "unresolved type " + t.Ref.String()
	case TypeVoid:
		if !ret {
			return "void parameter"
		}
	case TypeEnum:
		if t.Ref.Pointer > 0 || (t.Ref.Reference && !t.Ref.Const) {
			return "enum passed by address"
		}
	case TypeHandle:
		if t.Ref.Pointer > 1 {
			return "pointer to pointer of " + t.Ref.Name
		}
		if ret && t.Owned() && t.Decl != nil && t.Decl.Abstract {
			return "abstract class returned by value"
		}
	case TypeMapped:
		if t.Ref.Pointer > 1 {
			return "pointer to pointer of " + t.Ref.Name
		}
	}
	return ""
}

// Resolve resolves ref as seen from scope, expanding typedefs and applying
// type mappings.
func (ix *Index) Resolve(ref symtab.TypeRef, scope string) Type {
	for depth := 0; ; depth++ {
		if ref.IsVoid() {
			return Type{Class: TypeVoid, Ref: ref}
		}

		qualified := ref.Name
		decl := ix.lookup(ref.Name, scope)
		if decl != nil {
			qualified = decl.QualifiedName
		}
		if m, ok := ix.types.Resolve(qualified); ok {
			ref.Name = qualified
			return Type{Class: TypeMapped, Ref: ref, Decl: decl, Mapping: m}
		}
		if m, ok := ix.types.Resolve(ref.Name); ok {
			return Type{Class: TypeMapped, Ref: ref, Decl: decl, Mapping: m}
		}

		if p, ok := CanonicalPrimitive(ref.Name); ok {
			ref.Name = p
			if (p == "char" || p == "wchar_t") && ref.Const && ref.Pointer == 1 && !ref.Reference {
				return Type{Class: TypeString, Ref: ref}
			}
			return Type{Class: TypePrimitive, Ref: ref}
		}

		if decl == nil {
			return Type{Class: TypeUnresolved, Ref: ref}
		}
		ref.Name = decl.QualifiedName
		switch decl.Kind {
		case symtab.KindTypedef:
			if decl.Unsupported != "" || depth >= maxTypedefDepth {
				return Type{Class: TypeUnresolved, Ref: ref}
			}
			next := decl.Type
			next.Const = next.Const || ref.Const
			next.Pointer += ref.Pointer
			next.Reference = next.Reference || ref.Reference
			ref, scope = next, symtab.Parent(decl.QualifiedName)
		case symtab.KindEnum:
			return Type{Class: TypeEnum, Ref: ref, Decl: decl}
		case symtab.KindClass:
			return Type{Class: TypeHandle, Ref: ref, Decl: decl}
		default:
			return Type{Class: TypeUnresolved, Ref: ref}
		}
	}
}

func (ix *Index) lookup(name, scope string) *symtab.Declaration {
	if d := symtab.Lookup(ix.typedefs, name, scope); d != nil {
		return d
	}
	if d := symtab.Lookup(ix.enums, name, scope); d != nil {
		return d
	}
	return symtab.Lookup(ix.classes, name, scope)
}

// Bindable reports whether a class or callable is emitted.
func (ix *Index) Bindable(d *symtab.Declaration) bool {
	return ix.bindable[d]
}

// Shim is the exported C symbol of a callable, or the delete function of a class.
func (ix *Index) Shim(d *symtab.Declaration) string {
	return ix.shims[d]
}

// HasDelete reports whether a bindable class owns native instances.
func (ix *Index) HasDelete(d *symtab.Declaration) bool {
	_, ok := ix.shims[d]
	return ok && d.Kind == symtab.KindClass
}

// Classes lists bindable classes, nested ones included, in table order.
func (ix *Index) Classes() []*symtab.Declaration {
	var out []*symtab.Declaration
	ix.table.Walk(func(d *symtab.Declaration) bool {
		if d.Kind == symtab.KindClass && ix.bindable[d] {
			out = append(out, d)
		}
		return true
	})
	return out
}

// Callables lists the bindable callables of a class.
func (ix *Index) Callables(cls *symtab.Declaration) []*symtab.Declaration {
	var out []*symtab.Declaration
	for _, m := range cls.Members {
		if m.Kind.Callable() && ix.bindable[m] {
			out = append(out, m)
		}
	}
	return out
}

// FreeFunctions lists bindable functions no pass moved into a class.
func (ix *Index) FreeFunctions() []*symtab.Declaration {
	var out []*symtab.Declaration
	for _, d := range ix.table.Decls {
		if d.Kind == symtab.KindFunction && ix.bindable[d] {
			out = append(out, d)
		}
	}
	return out
}

// Enums lists non-excluded enums in table order.
func (ix *Index) Enums() []*symtab.Declaration {
	var out []*symtab.Declaration
	ix.table.Walk(func(d *symtab.Declaration) bool {
		if d.Excluded {
			return false
		}
		if d.Kind == symtab.KindEnum && (d.Access == "" || d.Access == symtab.AccessPublic) {
			out = append(out, d)
		}
		return true
	})
	return out
}

// Skipped lists non-excluded callables that could not be bound.
func (ix *Index) Skipped() []Skipped {
	return append([]Skipped(nil), ix.skipped...)
}

// ResolveScope is the scope types of d are looked up from.
func ResolveScope(d *symtab.Declaration) string {
	if d.Kind == symtab.KindInstanceMethod || d.Kind == symtab.KindStaticMethod {
		return d.Namespace
	}
	return d.Scope()
}
