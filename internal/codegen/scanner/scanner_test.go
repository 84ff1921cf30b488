package scanner_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/bindgen/internal/codegen/failure"
	"github.com/Alia5/bindgen/internal/codegen/scanner"
	"github.com/Alia5/bindgen/internal/codegen/symtab"
)

const doubleHeader = `#ifndef _FBASE_DOUBLE_H_
#define _FBASE_DOUBLE_H_

#include <FBaseNumber.h>
#include "FBaseTypes.h"

namespace Tizen { namespace Base
{

typedef unsigned int result;

enum DoubleStyle
{
	DOUBLE_STYLE_PLAIN = 0,
	DOUBLE_STYLE_SCIENTIFIC
};

class _OSP_EXPORT_ Number
{
public:
	virtual double ToDouble(void) const = 0;
};

class _OSP_EXPORT_ Double
	: public Number
{
public:
	Double(double value = 0.0);
	virtual ~Double(void);
	virtual int CompareTo(const Double& value) const;
	static double Parse(const char* s, result& r);
	double value;
	Double& operator =(const Double& rhs);

private:
	int __secret;
};

_OSP_EXPORT_ result Round(Double* pValue, int digits);
_OSP_EXPORT_ int Clamp(int value);
void Register(void (*callback)(int));

}} // Tizen::Base

#endif
`

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func writeHeaders(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

func parse(t *testing.T, req scanner.Request) (*symtab.Table, error) {
	t.Helper()
	return scanner.New(discard()).Parse(context.Background(), req)
}

func TestParseExtractsDeclarations(t *testing.T) {
	dir := writeHeaders(t, map[string]string{
		"FBaseDouble.h": doubleHeader,
		"FBaseTypes.h":  "typedef int mchar;\n",
	})
	tbl, err := parse(t, scanner.Request{
		Headers:      []string{"FBaseDouble.h"},
		IncludeDirs:  []string{dir},
		TargetTriple: "i686-pc-linux-gnu",
		Defines:      []string{"_OSP_EXPORT_="},
	})
	require.NoError(t, err)
	assert.Equal(t, "i686-pc-linux-gnu", tbl.Triple)
	assert.Equal(t, []string{"FBaseDouble.h"}, tbl.Headers)

	var top []string
	for _, d := range tbl.Decls {
		top = append(top, string(d.Kind)+" "+d.QualifiedName)
	}
	assert.Equal(t, []string{
		"namespace Tizen",
		"namespace Tizen::Base",
		"typedef Tizen::Base::result",
		"enum Tizen::Base::DoubleStyle",
		"class Tizen::Base::Number",
		"class Tizen::Base::Double",
		"function Tizen::Base::Round",
		"function Tizen::Base::Clamp",
		"function Tizen::Base::Register",
	}, top)

	result := tbl.Find("Tizen::Base::result")
	assert.Equal(t, symtab.TypeRef{Name: "unsigned int"}, result.Type)

	style := tbl.Find("Tizen::Base::DoubleStyle")
	assert.Equal(t, []symtab.Enumerator{{Name: "DOUBLE_STYLE_PLAIN", Value: "0"}, {Name: "DOUBLE_STYLE_SCIENTIFIC"}}, style.Enumerators)

	number := tbl.Find("Tizen::Base::Number")
	assert.True(t, number.Abstract)
	require.Len(t, number.Members, 1)
	assert.True(t, number.Members[0].Virtual)
	assert.True(t, number.Members[0].Const)
	assert.Empty(t, number.Members[0].Params)

	double := tbl.Find("Tizen::Base::Double")
	assert.False(t, double.Abstract)
	assert.Equal(t, []string{"Number"}, double.Bases)
	var members []string
	for _, m := range double.Members {
		members = append(members, string(m.Kind)+" "+m.Name)
	}
	assert.Equal(t, []string{"constructor Double", "method CompareTo", "method Parse", "field value"}, members)

	ctor := double.Members[0]
	assert.Equal(t, []symtab.Param{{Name: "value", Type: symtab.TypeRef{Name: "double"}, Default: "0.0"}}, ctor.Params)

	compare := double.Members[1]
	assert.Equal(t, symtab.TypeRef{Name: "int"}, compare.Type)
	assert.Equal(t, symtab.TypeRef{Name: "Double", Const: true, Reference: true}, compare.Params[0].Type)
	assert.True(t, compare.Const)

	parseFn := double.Members[2]
	assert.True(t, parseFn.Static)
	assert.Equal(t, []symtab.Param{
		{Name: "s", Type: symtab.TypeRef{Name: "char", Const: true, Pointer: 1}},
		{Name: "r", Type: symtab.TypeRef{Name: "result", Reference: true}},
	}, parseFn.Params)

	round := tbl.Find("Tizen::Base::Round")
	assert.Equal(t, "Tizen::Base", round.Namespace)
	assert.Equal(t, symtab.TypeRef{Name: "result"}, round.Type)
	assert.Equal(t, symtab.TypeRef{Name: "Double", Pointer: 1}, round.Params[0].Type)
	assert.Empty(t, round.Unsupported)

	assert.Equal(t, "function pointer parameter", tbl.Find("Tizen::Base::Register").Unsupported)
}

func TestParseMergesInConfiguredOrder(t *testing.T) {
	dir := writeHeaders(t, map[string]string{
		"A.h": "class A { public: void Run(); };\n",
		"B.h": "class B { public: void Run(); };\n",
		"C.h": "class C {};\n",
	})
	tbl, err := parse(t, scanner.Request{
		Headers:     []string{"C.h", "B.h", "A.h"},
		IncludeDirs: []string{dir},
		Parallelism: 3,
	})
	require.NoError(t, err)

	var names []string
	for _, d := range tbl.Decls {
		names = append(names, d.QualifiedName)
	}
	assert.Equal(t, []string{"C", "B", "A"}, names)
}

func TestParseTypedefForms(t *testing.T) {
	dir := writeHeaders(t, map[string]string{
		"T.h": `typedef struct { int x; } Point, *PointPtr;
typedef struct Tag { int y; } Tagged;
typedef int (*Callback)(int);
using Size = unsigned long;
`,
	})
	tbl, err := parse(t, scanner.Request{Headers: []string{"T.h"}, IncludeDirs: []string{dir}})
	require.NoError(t, err)

	assert.Equal(t, symtab.KindClass, tbl.Find("Point").Kind)
	assert.Equal(t, symtab.TypeRef{Name: "Point", Pointer: 1}, tbl.Find("PointPtr").Type)
	assert.Equal(t, symtab.KindClass, tbl.Find("Tag").Kind)
	assert.Equal(t, symtab.TypeRef{Name: "Tag"}, tbl.Find("Tagged").Type)
	assert.Equal(t, "function pointer typedef", tbl.Find("Callback").Unsupported)
	assert.Equal(t, symtab.TypeRef{Name: "unsigned long"}, tbl.Find("Size").Type)
}

func TestParseMissingHeader(t *testing.T) {
	dir := t.TempDir()
	_, err := parse(t, scanner.Request{Headers: []string{"FBase.h"}, IncludeDirs: []string{dir}})
	require.Error(t, err)

	var perr *failure.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "FBase.h", perr.File)
	assert.Equal(t, []string{dir}, perr.Searched)
	assert.Equal(t, failure.KindParse, failure.KindOf(err))
}

func TestParseUnresolvedIncludes(t *testing.T) {
	dir := writeHeaders(t, map[string]string{
		"Quoted.h": "#include \"Missing.h\"\nclass A {};\n",
		"Angle.h":  "#include <vector>\nclass B {};\n",
	})

	_, err := parse(t, scanner.Request{Headers: []string{"Quoted.h"}, IncludeDirs: []string{dir}})
	var perr *failure.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 1, perr.Line)
	assert.Contains(t, perr.Error(), `"Missing.h"`)

	_, err = parse(t, scanner.Request{Headers: []string{"Angle.h"}, IncludeDirs: []string{dir}})
	assert.NoError(t, err, "standard includes are implicit")

	_, err = parse(t, scanner.Request{Headers: []string{"Angle.h"}, IncludeDirs: []string{dir}, NoStandardIncludes: true})
	require.True(t, errors.As(err, &perr))
	assert.Contains(t, perr.Error(), "<vector>")
}

func TestParseSyntaxError(t *testing.T) {
	dir := writeHeaders(t, map[string]string{
		"Broken.h": "class Good {};\n\nclass Bad { int x = ; };\n",
	})

	_, err := parse(t, scanner.Request{Headers: []string{"Broken.h"}, IncludeDirs: []string{dir}})
	require.Error(t, err)
	var perr *failure.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, filepath.Join(dir, "Broken.h"), perr.File)
	assert.Equal(t, 3, perr.Line)
	assert.Positive(t, perr.Column)
	assert.NotEmpty(t, errors.GetAllHints(err))

	tbl, err := parse(t, scanner.Request{Headers: []string{"Broken.h"}, IncludeDirs: []string{dir}, Lenient: true})
	require.NoError(t, err)
	assert.NotNil(t, tbl.Find("Good"))
}

func TestParseHonorsCancellation(t *testing.T) {
	dir := writeHeaders(t, map[string]string{"A.h": "class A {};\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := scanner.New(discard()).Parse(ctx, scanner.Request{Headers: []string{"A.h"}, IncludeDirs: []string{dir}})
	assert.Error(t, err)
}
