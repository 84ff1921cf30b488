package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Alia5/bindgen/internal/codegen/meta"
	"github.com/Alia5/bindgen/internal/codegen/scanner"
	"github.com/Alia5/bindgen/internal/codegen/symtab"
)

// MockParser returns a fixed table or error and records its requests.
type MockParser struct {
	Table    *symtab.Table
	Err      error
	Requests []scanner.Request
}

func (p *MockParser) Parse(ctx context.Context, req scanner.Request) (*symtab.Table, error) {
	p.Requests = append(p.Requests, req)
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Table, nil
}

// MockEmitter records what it was asked to emit.
type MockEmitter struct {
	Written  []string
	Err      error
	Metadata []*meta.Metadata
	Dirs     []string
	Kind     []string
}

func (e *MockEmitter) Emit(ctx context.Context, md *meta.Metadata, outputDir, kind string) ([]string, error) {
	e.Metadata = append(e.Metadata, md)
	e.Dirs = append(e.Dirs, outputDir)
	e.Kind = append(e.Kind, kind)
	return append([]string(nil), e.Written...), e.Err
}

func (e *MockEmitter) Kinds() []string { return []string{"c", "csharp", "symbols"} }

// ScenarioTable declares classes A and B plus f(A*, int) and g(int), all in
// X.h inside namespace ns.
func ScenarioTable(t *testing.T, ns string) *symtab.Table {
	t.Helper()
	join := func(name string) string { return symtab.Join(ns, name) }
	intParam := func(name string) symtab.Param { return symtab.Param{Name: name, Type: symtab.TypeRef{Name: "int"}} }

	tbl := symtab.New("x86_64-pc-linux-gnu", "X.h")
	for _, d := range []*symtab.Declaration{
		{Name: "A", QualifiedName: join("A"), Native: join("A"), Header: "X.h", Kind: symtab.KindClass, Namespace: ns},
		{Name: "B", QualifiedName: join("B"), Native: join("B"), Header: "X.h", Kind: symtab.KindClass, Namespace: ns},
		{Name: "f", QualifiedName: join("f"), Native: join("f"), Header: "X.h", Kind: symtab.KindFunction, Namespace: ns, Type: symtab.TypeRef{Name: "void"},
			Params: []symtab.Param{{Name: "a", Type: symtab.TypeRef{Name: "A", Pointer: 1}}, intParam("n")}},
		{Name: "g", QualifiedName: join("g"), Native: join("g"), Header: "X.h", Kind: symtab.KindFunction, Namespace: ns, Type: symtab.TypeRef{Name: "void"},
			Params: []symtab.Param{intParam("n")}},
	} {
		require.NoError(t, tbl.Add(d))
	}
	return tbl
}
