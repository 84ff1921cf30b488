// Package testing provides symbol tables shaped like the output of the
// transform stage, for emitter and driver tests.
package testing

import (
	"io"
	"log/slog"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/bindgen/internal/codegen/meta"
	"github.com/Alia5/bindgen/internal/codegen/symtab"
	"github.com/Alia5/bindgen/internal/codegen/typemap"
)

const (
	Header    = "FBaseDouble.h"
	Namespace = "Tizen::Base"
)

func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ref(name string) symtab.TypeRef { return symtab.TypeRef{Name: name} }

func member(owner string, kind symtab.Kind, name string, ret symtab.TypeRef, params ...symtab.Param) *symtab.Declaration {
	return &symtab.Declaration{
		Name:          name,
		QualifiedName: owner + "::" + name,
		Native:        owner + "::" + name,
		Header:        Header,
		Kind:          kind,
		Namespace:     Namespace,
		Owner:         owner,
		Access:        symtab.AccessPublic,
		Type:          ret,
		Params:        params,
	}
}

// DoubleTable is FBaseDouble.h after receiver promotion and static conversion:
//
//	namespace Tizen { namespace Base {
//	typedef int result;
//	enum DoubleStyle { DOUBLE_STYLE_PLAIN, DOUBLE_STYLE_SCIENTIFIC = 4 };
//	enum NumberFlags { NUMBER_FLAG_NONE = 0, NUMBER_FLAG_SIGNED = 0x1, NUMBER_FLAG_FLOAT = 1 << 1, NUMBER_FLAG_ALL = NUMBER_FLAG_SIGNED | NUMBER_FLAG_FLOAT };
//	class Number { public: virtual int ToInt() const = 0; };
//	class Double : public Number {
//	public:
//	    Double(double value);
//	    int CompareTo(const Double& other) const;
//	    int CompareTo(double other) const;
//	    static Double Parse(const char* s);
//	    DoubleStyle GetStyle() const;
//	    void SetStyle(DoubleStyle style = DOUBLE_STYLE_PLAIN);
//	    const wchar_t* ToString() const;
//	    virtual int ToInt() const;
//	};
//	double Clamp(Double* self, double lo, double hi = 1.0);
//	result Round(double d, int digits = 2);
//	void Attach(Widget* w);
//	}}
func DoubleTable(t *testing.T) *symtab.Table {
	t.Helper()
	double := Namespace + "::Double"
	number := Namespace + "::Number"
	holder := Namespace + "::BaseFunctions"

	toInt := member(number, symtab.KindMethod, "ToInt", ref("int"))
	toInt.Const, toInt.Virtual = true, true

	ctor := member(double, symtab.KindConstructor, "Double", symtab.TypeRef{}, symtab.Param{Name: "value", Type: ref("double")})
	compare := member(double, symtab.KindMethod, "CompareTo", ref("int"),
		symtab.Param{Name: "other", Type: symtab.TypeRef{Name: "Double", Const: true, Reference: true}})
	compare.Const = true
	compareRaw := member(double, symtab.KindMethod, "CompareTo", ref("int"), symtab.Param{Name: "other", Type: ref("double")})
	compareRaw.Const = true
	parse := member(double, symtab.KindMethod, "Parse", ref("Double"), symtab.Param{Name: "s", Type: symtab.TypeRef{Name: "char", Const: true, Pointer: 1}})
	parse.Static = true
	getStyle := member(double, symtab.KindMethod, "GetStyle", ref("DoubleStyle"))
	getStyle.Const = true
	setStyle := member(double, symtab.KindMethod, "SetStyle", ref("void"),
		symtab.Param{Name: "style", Type: ref("DoubleStyle"), Default: "DOUBLE_STYLE_PLAIN"})
	toString := member(double, symtab.KindMethod, "ToString", symtab.TypeRef{Name: "wchar_t", Const: true, Pointer: 1})
	toString.Const = true
	doubleToInt := member(double, symtab.KindMethod, "ToInt", ref("int"))
	doubleToInt.Const, doubleToInt.Virtual = true, true

	clamp := member(double, symtab.KindInstanceMethod, "Clamp", ref("double"),
		symtab.Param{Name: "lo", Type: ref("double")},
		symtab.Param{Name: "hi", Type: ref("double"), Default: "1.0"})
	clamp.Native = Namespace + "::Clamp"
	clamp.Receiver = &symtab.Param{Name: "self", Type: symtab.TypeRef{Name: "Double", Pointer: 1}}

	round := member(holder, symtab.KindStaticMethod, "Round", ref("result"),
		symtab.Param{Name: "d", Type: ref("double")},
		symtab.Param{Name: "digits", Type: ref("int"), Default: "2"})
	round.Native = Namespace + "::Round"
	attach := member(holder, symtab.KindStaticMethod, "Attach", ref("void"), symtab.Param{Name: "w", Type: symtab.TypeRef{Name: "Widget", Pointer: 1}})
	attach.Native = Namespace + "::Attach"

	tbl := symtab.New("x86_64-linux-gnu", Header)
	for _, d := range []*symtab.Declaration{
		{Name: "Tizen", QualifiedName: "Tizen", Native: "Tizen", Header: Header, Kind: symtab.KindNamespace},
		{Name: "Base", QualifiedName: Namespace, Native: Namespace, Header: Header, Kind: symtab.KindNamespace, Namespace: "Tizen"},
		{Name: "result", QualifiedName: Namespace + "::result", Native: Namespace + "::result", Header: Header, Kind: symtab.KindTypedef, Namespace: Namespace, Type: ref("int")},
		{Name: "DoubleStyle", QualifiedName: Namespace + "::DoubleStyle", Native: Namespace + "::DoubleStyle", Header: Header, Kind: symtab.KindEnum, Namespace: Namespace,
			Enumerators: []symtab.Enumerator{{Name: "DOUBLE_STYLE_PLAIN"}, {Name: "DOUBLE_STYLE_SCIENTIFIC", Value: "4"}}},
		{Name: "NumberFlags", QualifiedName: Namespace + "::NumberFlags", Native: Namespace + "::NumberFlags", Header: Header, Kind: symtab.KindEnum, Namespace: Namespace,
			Enumerators: []symtab.Enumerator{
				{Name: "NUMBER_FLAG_NONE", Value: "0"},
				{Name: "NUMBER_FLAG_SIGNED", Value: "0x1"},
				{Name: "NUMBER_FLAG_FLOAT", Value: "1 << 1"},
				{Name: "NUMBER_FLAG_ALL", Value: "NUMBER_FLAG_SIGNED | NUMBER_FLAG_FLOAT"},
			}},
		{Name: "Number", QualifiedName: number, Native: number, Header: Header, Kind: symtab.KindClass, Namespace: Namespace, Abstract: true,
			Members: []*symtab.Declaration{toInt}},
		{Name: "Double", QualifiedName: double, Native: double, Header: Header, Kind: symtab.KindClass, Namespace: Namespace, Bases: []string{"Number"},
			Members: []*symtab.Declaration{ctor, compare, compareRaw, parse, getStyle, setStyle, toString, doubleToInt, clamp}},
		{Name: "BaseFunctions", QualifiedName: holder, Header: Header, Kind: symtab.KindClass, Namespace: Namespace, Access: symtab.AccessPublic, Synthesized: true,
			Members: []*symtab.Declaration{round, attach}},
	} {
		require.NoError(t, tbl.Add(d))
	}
	return tbl
}

// DoubleMetadata wraps DoubleTable for the "Tizen" library.
func DoubleMetadata(t *testing.T) *meta.Metadata {
	t.Helper()
	return &meta.Metadata{
		LibraryName:  "Tizen",
		Namespace:    "Samsung",
		TargetTriple: "x86_64-linux-gnu",
		Headers:      []string{Header},
		IncludeDirs:  []string{"/opt/tizen/include"},
		Libraries:    []string{"osp-appfw"},
		Table:        DoubleTable(t),
		Types:        typemap.New(DiscardLogger()),
		Version:      semver.MustParse("1.2.3"),
	}
}
