package csharp

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Alia5/bindgen/internal/codegen/common"
	"github.com/Alia5/bindgen/internal/codegen/symtab"
)

// reserved are members every wrapper already has.
var reserved = map[string]bool{
	"Dispose": true, "Delete": true, "Handle": true, "Equals": true, "GetHashCode": true,
	"ToString": true, "GetType": true, "Finalize": true, "MemberwiseClone": true,
}

var (
	hexRe        = regexp.MustCompile(`^[-+]?0[xX][0-9a-fA-F]+[uUlL]*$`)
	numberRe     = regexp.MustCompile(`^[-+]?\d+\.?\d*([eE][-+]?\d+)?[uUlLfF]*$`)
	intSuffixRe  = regexp.MustCompile(`\b(0[xX][0-9a-fA-F]+|\d+)[uUlL]+\b`)
	qualifierRe  = regexp.MustCompile(`\b(?:\w+::)+`)
	identifierRe = regexp.MustCompile(`\b[A-Za-z_]\w*`)
	shiftRe      = regexp.MustCompile(`^1\s*<<\s*(\d+)$`)
	combinedRe   = regexp.MustCompile(`^\w+(\s*\|\s*\w+)+$`)
)

func instance(d *symtab.Declaration) bool {
	return (d.Kind == symtab.KindMethod && !d.Static) || d.Kind == symtab.KindInstanceMethod
}

func paramName(p symtab.Param, i int) string {
	switch p.Name {
	case "":
		return fmt.Sprintf("arg%d", i)
	case "self":
		return "self_"
	}
	return ident(p.Name)
}

func memberName(name, class string) string {
	n := common.SanitizeLeadingDigit(common.ToPascalCase(name))
	if reserved[n] || n == class {
		n += "_"
	}
	return ident(n)
}

func (g *generator) class(w *csWriter, cls *symtab.Declaration) {
	name := ident(cls.Name)
	w.line("/// <summary>Native <c>%s</c>.</summary>", escapeXML(cls.QualifiedName))
	if cls.Synthesized {
		w.open("public static partial class %s", name)
	} else {
		w.open("public partial class %s : %s", name, g.baseOf(cls))
		w.line("internal %s(IntPtr handle, bool ownsHandle) : base(handle, ownsHandle)", name)
		w.line("{")
		w.line("}")
		if g.ix.HasDelete(cls) {
			w.line("")
			w.line("protected override void Delete(IntPtr handle) => %s.%s(handle);", g.m.rootName("NativeMethods"), g.ix.Shim(cls))
		}
	}

	seen := map[string]bool{"ctor(IntPtr,bool)": true}
	inherited := g.inherited(cls)
	for _, d := range g.ix.Callables(cls) {
		g.method(w, cls, d, seen, inherited)
	}

	for _, m := range cls.Members {
		if m.Kind != symtab.KindClass && m.Kind != symtab.KindEnum {
			continue
		}
		if !g.emits(m) {
			continue
		}
		w.line("")
		g.declaration(w, m)
	}
	w.close()
}

// baseDecl is the first bindable C++ base, which becomes the wrapper's base class.
func (g *generator) baseDecl(cls *symtab.Declaration) *symtab.Declaration {
	for _, b := range cls.Bases {
		t := g.ix.Resolve(symtab.TypeRef{Name: b}, symtab.Parent(cls.QualifiedName))
		if g.m.wrapsClass(t) && t.Decl != cls {
			return t.Decl
		}
	}
	return nil
}

func (g *generator) baseOf(cls *symtab.Declaration) string {
	if base := g.baseDecl(cls); base != nil {
		return g.m.typeName(base)
	}
	return g.m.rootName("NativeObject")
}

// inherited collects the method signatures of the wrapper's base chain.
func (g *generator) inherited(cls *symtab.Declaration) map[string]bool {
	out := map[string]bool{}
	visited := map[*symtab.Declaration]bool{cls: true}
	for base := g.baseDecl(cls); base != nil && !visited[base]; base = g.baseDecl(base) {
		visited[base] = true
		for _, d := range g.ix.Callables(base) {
			if d.Kind == symtab.KindConstructor {
				continue
			}
			_, types, _ := joinParams(g.params(d))
			out[memberName(d.Name, base.Name)+"("+types+")"] = true
		}
	}
	return out
}

type param struct {
	decl    string
	typ     string
	arg     string
	deflt   string
	hasDflt bool
}

func (g *generator) params(d *symtab.Declaration) []param {
	scope := common.ResolveScope(d)
	out := make([]param, len(d.Params))
	for i, p := range d.Params {
		t := g.ix.Resolve(p.Type, scope)
		name := paramName(p, i)
		out[i] = param{
			decl: g.m.publicParam(t, name),
			typ:  strings.TrimSuffix(g.m.publicParam(t, "x"), " x"),
			arg:  g.m.argument(t, name),
		}
		if p.Default != "" {
			out[i].deflt, out[i].hasDflt = g.defaultValue(t, p.Default)
		}
	}
	// only trailing defaults are legal
	trailing := true
	for i := len(out) - 1; i >= 0; i-- {
		if !out[i].hasDflt || strings.HasPrefix(out[i].typ, "ref ") {
			trailing = false
		}
		if !trailing {
			out[i].hasDflt = false
		}
	}
	return out
}

func joinParams(ps []param) (decls, types, args string) {
	d := make([]string, len(ps))
	t := make([]string, len(ps))
	a := make([]string, len(ps))
	for i, p := range ps {
		d[i] = p.decl
		if p.hasDflt {
			d[i] += " = " + p.deflt
		}
		t[i] = p.typ
		a[i] = p.arg
	}
	return strings.Join(d, ", "), strings.Join(t, ","), strings.Join(a, ", ")
}

func (g *generator) method(w *csWriter, cls, d *symtab.Declaration, seen, inherited map[string]bool) {
	ps := g.params(d)
	decls, types, args := joinParams(ps)
	native := g.m.rootName("NativeMethods") + "." + g.ix.Shim(d)

	if d.Kind == symtab.KindConstructor {
		key := "ctor(" + types + ")"
		if seen[key] {
			g.logger.Debug("Skipping overload with identical C# signature", "declaration", d.Key())
			return
		}
		seen[key] = true
		w.line("")
		w.line("/// <summary><c>%s</c></summary>", escapeXML(d.Key()))
		w.line("public %s(%s) : this(%s(%s), true)", ident(cls.Name), decls, native, args)
		w.line("{")
		w.line("}")
		return
	}

	name := memberName(d.Name, cls.Name)
	key := name + "(" + types + ")"
	if seen[key] {
		g.logger.Debug("Skipping overload with identical C# signature", "declaration", d.Key())
		return
	}
	seen[key] = true

	modifiers := "public static"
	if inherited[key] {
		modifiers = "public new static"
	}
	if instance(d) {
		modifiers = strings.Replace(modifiers, " static", "", 1)
		if args == "" {
			args = "__Instance"
		} else {
			args = "__Instance, " + args
		}
	}
	ret := g.ix.Resolve(d.Type, common.ResolveScope(d))
	call := native + "(" + args + ")"

	w.line("")
	w.line("/// <summary><c>%s</c></summary>", escapeXML(d.Key()))
	w.open("%s %s %s(%s)", modifiers, g.m.publicType(ret), name, decls)
	if ret.Class == common.TypeVoid {
		w.line("%s;", call)
	} else {
		w.line("return %s;", g.m.result(ret, call))
	}
	w.close()
}

// defaultValue converts a C++ default argument when C# can express it.
func (g *generator) defaultValue(t common.Type, v string) (string, bool) {
	v = strings.TrimSpace(v)
	pub := g.m.publicType(t)
	switch {
	case v == "true" || v == "false":
		return v, pub == "bool"
	case v == "NULL" || v == "nullptr" || (v == "0" && (t.Ref.Pointer > 0 || t.Handle() || t.Class == common.TypeString)):
		if g.m.wrapsClass(t) || t.Class == common.TypeString {
			return "null", true
		}
		if pub == "IntPtr" || pub == "nint" || pub == "nuint" {
			return "default", true
		}
		return "", false
	case t.Class == common.TypeEnum:
		for _, e := range t.Decl.Enumerators {
			if e.Name == v || strings.HasSuffix(v, "::"+e.Name) {
				return g.m.typeName(t.Decl) + "." + enumMembers(t.Decl)[e.Name], true
			}
		}
		return "", false
	case t.Class == common.TypePrimitive && t.Ref.Pointer == 0 && !t.Ref.Reference:
		var lit string
		switch {
		case hexRe.MatchString(v):
			lit = strings.TrimRight(v, "uUlL")
		case numberRe.MatchString(v):
			lit = strings.TrimRight(v, "uUlLfF")
		default:
			return "", false
		}
		isFloat := !hexRe.MatchString(v) && strings.ContainsAny(lit, ".eE")
		switch pub {
		case "float":
			if hexRe.MatchString(v) {
				return "", false
			}
			return lit + "f", true
		case "double":
			return lit, !hexRe.MatchString(v)
		case "bool", "IntPtr":
			return "", false
		case "byte", "ushort", "uint", "ulong", "nuint":
			if strings.HasPrefix(lit, "-") {
				return "", false
			}
		}
		return lit, !isFloat
	}
	return "", false
}

// enumMembers maps C++ enumerator names to C# member names: the common
// prefix is dropped and the rest PascalCased, unless that would collide.
func enumMembers(e *symtab.Declaration) map[string]string {
	names := make([]string, len(e.Enumerators))
	for i, en := range e.Enumerators {
		names[i] = en.Name
	}
	prefix := common.CommonPrefix(names)
	out := make(map[string]string, len(names))
	used := map[string]bool{}
	for _, n := range names {
		m := common.TrimPrefixAndSanitize(n, prefix)
		if m == "" || used[m] {
			out = nil
			break
		}
		used[m] = true
		out[n] = ident(m)
	}
	if out == nil {
		out = make(map[string]string, len(names))
		for _, n := range names {
			out[n] = ident(n)
		}
	}
	return out
}

// enumValue rewrites an enumerator initializer in C# terms. References to
// other enumerators of the same enum are renamed; anything else that is not
// a literal makes the value untranslatable.
func enumValue(expr string, members map[string]string) (string, bool) {
	ok := true
	out := intSuffixRe.ReplaceAllString(expr, "$1")
	out = qualifierRe.ReplaceAllString(out, "")
	out = identifierRe.ReplaceAllStringFunc(out, func(id string) string {
		if m, found := members[id]; found {
			return m
		}
		ok = false
		return id
	})
	return out, ok
}

// isFlags reports enums whose explicit values are distinct single bits.
func isFlags(e *symtab.Declaration) bool {
	bits := 0
	seen := map[uint64]bool{}
	for _, en := range e.Enumerators {
		if en.Value == "" {
			return false
		}
		if combinedRe.MatchString(en.Value) {
			continue
		}
		v, err := strconv.ParseUint(strings.TrimRight(en.Value, "uUlL"), 0, 64)
		if m := shiftRe.FindStringSubmatch(en.Value); m != nil {
			var shift uint64
			shift, err = strconv.ParseUint(m[1], 10, 6)
			v = 1 << shift
		}
		if err != nil {
			return false
		}
		if v == 0 {
			continue
		}
		if v&(v-1) != 0 || seen[v] {
			return false
		}
		seen[v] = true
		bits++
	}
	return bits >= 2
}

func (g *generator) enum(w *csWriter, e *symtab.Declaration) {
	members := enumMembers(e)
	w.line("/// <summary>Native <c>%s</c>.</summary>", escapeXML(e.QualifiedName))
	if isFlags(e) {
		w.line("[Flags]")
	}
	w.open("public enum %s", ident(e.Name))
	for i, en := range e.Enumerators {
		sep := ","
		if i == len(e.Enumerators)-1 {
			sep = ""
		}
		if en.Value == "" {
			w.line("%s%s", members[en.Name], sep)
			continue
		}
		if v, ok := enumValue(en.Value, members); ok {
			w.line("%s = %s%s", members[en.Name], v, sep)
			continue
		}
		g.logger.Debug("Enumerator value not translatable", "enum", e.QualifiedName, "enumerator", en.Name, "value", en.Value)
		w.line("%s%s // native value: %s", members[en.Name], sep, en.Value)
	}
	w.close()
}
