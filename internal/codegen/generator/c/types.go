package cgen

import (
	"fmt"
	"strings"

	"github.com/Alia5/bindgen/internal/codegen/common"
	"github.com/Alia5/bindgen/internal/codegen/symtab"
	"github.com/Alia5/bindgen/internal/codegen/typemap"
)

// cType spells t in the shim's C signature.
func cType(t common.Type) string {
	switch {
	case t.Class == common.TypeVoid:
		return "void"
	case t.Class == common.TypeString:
		return "const " + t.Ref.Name + "*"
	case t.Class == common.TypeEnum:
		return "int"
	case t.Handle():
		return "void*"
	case t.Class == common.TypePrimitive:
		stars := t.Ref.Pointer
		if t.Ref.Reference {
			stars++
		}
		if stars == 0 {
			return t.Ref.Name
		}
		s := t.Ref.Name + strings.Repeat("*", stars)
		if t.Ref.Const {
			s = "const " + s
		}
		return s
	case t.Class == common.TypeMapped:
		stars := t.Ref.Pointer
		if byAddress(t) {
			stars++
		}
		s := t.Ref.Name + strings.Repeat("*", stars)
		if t.Ref.Const && stars > 0 {
			s = "const " + s
		}
		return s
	}
	return "void*"
}

// byAddress reports a mapped value type that must cross the boundary as a
// pointer because the callee may modify it.
func byAddress(t common.Type) bool {
	return t.Class == common.TypeMapped && t.Mapping.Strategy != typemap.Opaque && t.Ref.Reference && !t.Ref.Const
}

func qualified(name string) string {
	return "::" + strings.TrimPrefix(name, "::")
}

func handleCast(t common.Type, name string) string {
	target := qualified(t.Ref.Name) + "*"
	if t.Ref.Const {
		target = "const " + target
	}
	return fmt.Sprintf("static_cast<%s>(%s)", target, name)
}

// argExpr converts a shim parameter back to what the native callee expects.
func argExpr(t common.Type, name string) string {
	switch {
	case t.Class == common.TypeEnum:
		return fmt.Sprintf("static_cast<%s>(%s)", qualified(t.Ref.Name), name)
	case t.Handle():
		if t.Ref.Pointer == 1 {
			return handleCast(t, name)
		}
		return "*" + handleCast(t, name)
	case t.Class == common.TypePrimitive && t.Ref.Reference:
		return "*" + name
	case byAddress(t):
		return "*" + name
	}
	return name
}

// returnStmt converts the native result of expr for the shim caller.
func returnStmt(t common.Type, expr string) string {
	switch {
	case t.Class == common.TypeVoid:
		return expr + ";"
	case t.Class == common.TypeEnum:
		return fmt.Sprintf("return static_cast<int>(%s);", expr)
	case t.Handle():
		switch {
		case t.Owned():
			return fmt.Sprintf("return new %s(%s);", qualified(t.Ref.Name), expr)
		case t.Ref.Reference:
			return fmt.Sprintf("return const_cast<void*>(static_cast<const void*>(&(%s)));", expr)
		default:
			return fmt.Sprintf("return const_cast<void*>(static_cast<const void*>(%s));", expr)
		}
	case t.Class == common.TypePrimitive && t.Ref.Reference:
		return fmt.Sprintf("return &(%s);", expr)
	case byAddress(t):
		return fmt.Sprintf("return &(%s);", expr)
	}
	return fmt.Sprintf("return %s;", expr)
}

type shimParam struct {
	CType string
	Name  string
}

type shimFunc struct {
	Symbol    string
	Signature string
	Return    string
	Params    []shimParam
	Body      string
}

func (f shimFunc) ParamList() string {
	if len(f.Params) == 0 {
		return "void"
	}
	parts := make([]string, len(f.Params))
	for i, p := range f.Params {
		parts[i] = p.CType + " " + p.Name
	}
	return strings.Join(parts, ", ")
}

func paramName(p symtab.Param, i int) string {
	switch p.Name {
	case "":
		return fmt.Sprintf("arg%d", i)
	case "self":
		return "self_"
	}
	return p.Name
}

// buildShim lowers one bindable callable of owner (nil for free functions).
func buildShim(ix *common.Index, owner, d *symtab.Declaration) shimFunc {
	scope := common.ResolveScope(d)
	f := shimFunc{Symbol: ix.Shim(d), Signature: d.Key()}

	var self string
	switch {
	case d.Kind == symtab.KindMethod && !d.Static:
		f.Params = append(f.Params, shimParam{CType: "void*", Name: "self"})
		cast := qualified(owner.Native) + "*"
		if d.Const {
			cast = "const " + cast
		}
		self = fmt.Sprintf("static_cast<%s>(self)->", cast)
	case d.Kind == symtab.KindInstanceMethod:
		f.Params = append(f.Params, shimParam{CType: "void*", Name: "self"})
	}

	args := make([]string, 0, len(d.Params)+1)
	if d.Receiver != nil {
		args = append(args, argExpr(ix.Resolve(d.Receiver.Type, scope), "self"))
	}
	for i, p := range d.Params {
		t := ix.Resolve(p.Type, scope)
		name := paramName(p, i)
		f.Params = append(f.Params, shimParam{CType: cType(t), Name: name})
		args = append(args, argExpr(t, name))
	}
	call := strings.Join(args, ", ")

	switch d.Kind {
	case symtab.KindConstructor:
		f.Return = "void*"
		f.Body = fmt.Sprintf("return new %s(%s);", qualified(owner.Native), call)
		return f
	case symtab.KindMethod:
		ret := ix.Resolve(d.Type, scope)
		f.Return = cType(ret)
		if d.Static {
			f.Body = returnStmt(ret, fmt.Sprintf("%s::%s(%s)", qualified(owner.Native), d.Name, call))
		} else {
			f.Body = returnStmt(ret, fmt.Sprintf("%s%s(%s)", self, d.Name, call))
		}
		return f
	default:
		ret := ix.Resolve(d.Type, scope)
		f.Return = cType(ret)
		f.Body = returnStmt(ret, fmt.Sprintf("%s(%s)", qualified(d.Native), call))
		return f
	}
}

func deleteShim(ix *common.Index, cls *symtab.Declaration) shimFunc {
	return shimFunc{
		Symbol:    ix.Shim(cls),
		Signature: "delete " + cls.Native,
		Return:    "void",
		Params:    []shimParam{{CType: "void*", Name: "self"}},
		Body:      fmt.Sprintf("delete static_cast<%s*>(self);", qualified(cls.Native)),
	}
}

// shims lowers every bindable callable in emission order: class members
// first, then the delete function of each class, then free functions.
func shims(ix *common.Index) []shimFunc {
	var out []shimFunc
	for _, cls := range ix.Classes() {
		for _, m := range ix.Callables(cls) {
			out = append(out, buildShim(ix, cls, m))
		}
		if ix.HasDelete(cls) {
			out = append(out, deleteShim(ix, cls))
		}
	}
	for _, fn := range ix.FreeFunctions() {
		out = append(out, buildShim(ix, nil, fn))
	}
	return out
}
