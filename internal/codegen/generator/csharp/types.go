package csharp

import (
	"strings"

	"github.com/Alia5/bindgen/internal/codegen/common"
	"github.com/Alia5/bindgen/internal/codegen/symtab"
	"github.com/Alia5/bindgen/internal/codegen/typemap"
)

var keywords = map[string]bool{
	"abstract": true, "as": true, "base": true, "bool": true, "break": true, "byte": true,
	"case": true, "catch": true, "char": true, "checked": true, "class": true, "const": true,
	"continue": true, "decimal": true, "default": true, "delegate": true, "do": true,
	"double": true, "else": true, "enum": true, "event": true, "explicit": true, "extern": true,
	"false": true, "finally": true, "fixed": true, "float": true, "for": true, "foreach": true,
	"goto": true, "if": true, "implicit": true, "in": true, "int": true, "interface": true,
	"internal": true, "is": true, "lock": true, "long": true, "namespace": true, "new": true,
	"null": true, "object": true, "operator": true, "out": true, "override": true, "params": true,
	"private": true, "protected": true, "public": true, "readonly": true, "ref": true,
	"return": true, "sbyte": true, "sealed": true, "short": true, "sizeof": true,
	"stackalloc": true, "static": true, "string": true, "struct": true, "switch": true,
	"this": true, "throw": true, "true": true, "try": true, "typeof": true, "uint": true,
	"ulong": true, "unchecked": true, "unsafe": true, "ushort": true, "using": true,
	"virtual": true, "void": true, "volatile": true, "while": true,
}

// ident escapes C# keywords.
func ident(name string) string {
	if keywords[name] {
		return "@" + name
	}
	return name
}

// mapper spells resolved native types in C#.
type mapper struct {
	ix        *common.Index
	root      string
	lp64      bool
	wideChars bool
}

func newMapper(ix *common.Index, root, triple string) *mapper {
	parts := strings.Split(triple, "-")
	arch := parts[0]
	windows := strings.Contains(triple, "windows") || strings.Contains(triple, "mingw")
	return &mapper{
		ix:        ix,
		root:      root,
		lp64:      strings.Contains(arch, "64") && !windows,
		wideChars: windows,
	}
}

// namespaceOf is the C# namespace for a C++ namespace.
func (m *mapper) namespaceOf(ns string) string {
	parts := make([]string, 0, 2)
	if m.root != "" {
		parts = append(parts, m.root)
	}
	if ns != "" {
		for _, seg := range strings.Split(ns, "::") {
			parts = append(parts, ident(seg))
		}
	}
	return strings.Join(parts, ".")
}

// typeName is the fully qualified C# name of a class or enum.
func (m *mapper) typeName(d *symtab.Declaration) string {
	segs := strings.Split(d.QualifiedName, "::")
	for i, s := range segs {
		segs[i] = ident(s)
	}
	if m.root != "" {
		segs = append([]string{m.root}, segs...)
	}
	return "global::" + strings.Join(segs, ".")
}

func (m *mapper) rootName(name string) string {
	if m.root == "" {
		return "global::" + name
	}
	return "global::" + m.root + "." + name
}

func (m *mapper) primitive(name string) string {
	switch name {
	case "bool":
		return "bool"
	case "char", "signed char", "int8_t":
		return "sbyte"
	case "unsigned char", "uint8_t":
		return "byte"
	case "wchar_t":
		if m.wideChars {
			return "char"
		}
		return "uint"
	case "char16_t":
		return "char"
	case "char32_t":
		return "uint"
	case "short", "int16_t":
		return "short"
	case "unsigned short", "uint16_t":
		return "ushort"
	case "int", "int32_t":
		return "int"
	case "unsigned int", "uint32_t":
		return "uint"
	case "long":
		if m.lp64 {
			return "long"
		}
		return "int"
	case "unsigned long":
		if m.lp64 {
			return "ulong"
		}
		return "uint"
	case "long long", "int64_t":
		return "long"
	case "unsigned long long", "uint64_t":
		return "ulong"
	case "float":
		return "float"
	case "double", "long double":
		return "double"
	case "size_t", "uintptr_t":
		return "nuint"
	case "ssize_t", "ptrdiff_t", "intptr_t":
		return "nint"
	}
	return "IntPtr"
}

// wrapsClass reports a handle the public API exposes as a wrapper class.
func (m *mapper) wrapsClass(t common.Type) bool {
	return t.Class == common.TypeHandle && t.Decl != nil && m.ix.Bindable(t.Decl) && !t.Decl.Synthesized
}

// utf32 reports wide strings on targets where wchar_t is 4 bytes. Those need
// Utf32StringMarshaler; LPWStr is UTF-16.
func (m *mapper) utf32(t common.Type) bool {
	return t.Class == common.TypeString && t.Ref.Name == "wchar_t" && !m.wideChars
}

func stringMarshal(t common.Type) string {
	if t.Ref.Name == "wchar_t" {
		return "LPWStr"
	}
	return "LPUTF8Str"
}

func byAddress(t common.Type) bool {
	return t.Class == common.TypeMapped && t.Mapping.Strategy != typemap.Opaque && t.Ref.Reference && !t.Ref.Const
}

// interopParam spells a P/Invoke parameter.
func (m *mapper) interopParam(t common.Type, name string) string {
	switch {
	case m.utf32(t):
		return "[MarshalAs(UnmanagedType.CustomMarshaler, MarshalTypeRef = typeof(" + m.rootName("Utf32StringMarshaler") + "))] string " + name
	case t.Class == common.TypeString:
		return "[MarshalAs(UnmanagedType." + stringMarshal(t) + ")] string " + name
	case t.Class == common.TypePrimitive && t.Ref.Pointer == 0 && t.Ref.Reference:
		return "ref " + m.primitive(t.Ref.Name) + " " + name
	case t.Class == common.TypePrimitive && t.Ref.Pointer == 0 && t.Ref.Name == "bool":
		return "[MarshalAs(UnmanagedType.I1)] bool " + name
	case t.Class == common.TypeMapped && !t.Handle():
		s := t.Mapping.Target + " " + name
		if byAddress(t) {
			s = "ref " + s
		}
		if t.Mapping.Marshal != "" {
			s = "[MarshalAs(UnmanagedType." + t.Mapping.Marshal + ")] " + s
		}
		return s
	}
	return m.interopType(t) + " " + name
}

// interopType spells a P/Invoke return or by-value parameter type.
func (m *mapper) interopType(t common.Type) string {
	switch {
	case t.Class == common.TypeVoid:
		return "void"
	case t.Class == common.TypeEnum:
		return m.typeName(t.Decl)
	case t.Class == common.TypePrimitive:
		if t.Ref.Pointer > 0 || t.Ref.Reference {
			return "IntPtr"
		}
		return m.primitive(t.Ref.Name)
	case t.Class == common.TypeMapped && !t.Handle():
		if byAddress(t) {
			return "IntPtr"
		}
		return t.Mapping.Target
	}
	// strings are returned as pointers and converted by the wrapper
	return "IntPtr"
}

// returnAttr is the marshaling attribute of a P/Invoke return value.
func (m *mapper) returnAttr(t common.Type) string {
	switch {
	case t.Class == common.TypePrimitive && t.Ref.Pointer == 0 && !t.Ref.Reference && t.Ref.Name == "bool":
		return "[return: MarshalAs(UnmanagedType.I1)]"
	case t.Class == common.TypeMapped && !t.Handle() && !byAddress(t) && t.Mapping.Marshal != "":
		return "[return: MarshalAs(UnmanagedType." + t.Mapping.Marshal + ")]"
	}
	return ""
}

// publicType spells a type in the wrapper API.
func (m *mapper) publicType(t common.Type) string {
	switch {
	case m.wrapsClass(t):
		return m.typeName(t.Decl)
	case t.Class == common.TypeString:
		return "string"
	case t.Class == common.TypeMapped && t.Handle():
		return t.Mapping.Target
	}
	return m.interopType(t)
}

// publicParam spells a wrapper parameter.
func (m *mapper) publicParam(t common.Type, name string) string {
	switch {
	case m.wrapsClass(t):
		return m.typeName(t.Decl) + " " + name
	case t.Class == common.TypeMapped && t.Handle():
		return t.Mapping.Target + " " + name
	case t.Class == common.TypeString:
		return "string " + name
	case t.Class == common.TypePrimitive && t.Ref.Pointer == 0 && t.Ref.Reference:
		return "ref " + m.primitive(t.Ref.Name) + " " + name
	case t.Class == common.TypeMapped && byAddress(t):
		return "ref " + t.Mapping.Target + " " + name
	}
	return m.interopType(t) + " " + name
}

// argument converts a wrapper parameter for the P/Invoke call.
func (m *mapper) argument(t common.Type, name string) string {
	switch {
	case m.wrapsClass(t):
		return name + "?.__Instance ?? IntPtr.Zero"
	case t.Class == common.TypePrimitive && t.Ref.Pointer == 0 && t.Ref.Reference:
		return "ref " + name
	case t.Class == common.TypeMapped && byAddress(t):
		return "ref " + name
	}
	return name
}

// result converts a P/Invoke return value for the wrapper.
func (m *mapper) result(t common.Type, expr string) string {
	switch {
	case m.wrapsClass(t):
		owns := "false"
		if t.Owned() {
			owns = "true"
		}
		return m.rootName("NativeObject") + ".__Wrap(" + expr + ", static (h, o) => new " + m.typeName(t.Decl) + "(h, o), " + owns + ")"
	case m.utf32(t):
		return m.rootName("Utf32StringMarshaler") + ".FromNative(" + expr + ")"
	case t.Class == common.TypeString && stringMarshal(t) == "LPWStr":
		return "Marshal.PtrToStringUni(" + expr + ")"
	case t.Class == common.TypeString:
		return "Marshal.PtrToStringUTF8(" + expr + ")"
	}
	return expr
}
