package passes_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/bindgen/internal/codegen/failure"
	"github.com/Alia5/bindgen/internal/codegen/passes"
	"github.com/Alia5/bindgen/internal/codegen/symtab"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func intParam(name string) symtab.Param {
	return symtab.Param{Name: name, Type: symtab.TypeRef{Name: "int"}}
}

// scenarioTable declares classes A and B plus f(A*, int) and g(int) in X.h.
func scenarioTable(t *testing.T, ns string) *symtab.Table {
	t.Helper()
	tbl := symtab.New("x86_64-linux-gnu", "X.h")
	for _, d := range []*symtab.Declaration{
		{Name: "A", QualifiedName: symtab.Join(ns, "A"), Header: "X.h", Kind: symtab.KindClass, Namespace: ns},
		{Name: "B", QualifiedName: symtab.Join(ns, "B"), Header: "X.h", Kind: symtab.KindClass, Namespace: ns},
		{Name: "f", QualifiedName: symtab.Join(ns, "f"), Native: symtab.Join(ns, "f"), Header: "X.h", Kind: symtab.KindFunction, Namespace: ns,
			Params: []symtab.Param{{Name: "self", Type: symtab.TypeRef{Name: "A", Pointer: 1}}, intParam("n")}},
		{Name: "g", QualifiedName: symtab.Join(ns, "g"), Native: symtab.Join(ns, "g"), Header: "X.h", Kind: symtab.KindFunction, Namespace: ns,
			Params: []symtab.Param{intParam("n")}},
	} {
		require.NoError(t, tbl.Add(d))
	}
	return tbl
}

func defaultPipeline(t *testing.T) *passes.Pipeline {
	t.Helper()
	ps, err := passes.Build(passes.DefaultNames(), passes.Options{})
	require.NoError(t, err)
	return passes.NewPipeline(discard(), ps...)
}

func TestDefaultPipelineScenario(t *testing.T) {
	tbl := scenarioTable(t, "")
	report, err := defaultPipeline(t).Run(tbl)
	require.NoError(t, err)
	assert.Empty(t, report.Warnings)

	assert.Empty(t, tbl.FreeFunctions())

	f := tbl.Find("A::f")
	require.NotNil(t, f)
	assert.Equal(t, symtab.KindInstanceMethod, f.Kind)
	assert.Equal(t, []symtab.Param{intParam("n")}, f.Params)
	require.NotNil(t, f.Receiver)
	assert.Equal(t, symtab.TypeRef{Name: "A", Pointer: 1}, f.Receiver.Type)
	assert.Equal(t, "f", f.Native)

	holder := tbl.Find(passes.DefaultGlobalHolder)
	require.NotNil(t, holder)
	assert.True(t, holder.Synthesized)
	require.Len(t, holder.Members, 1)
	g := holder.Members[0]
	assert.Equal(t, symtab.KindStaticMethod, g.Kind)
	assert.Equal(t, []symtab.Param{intParam("n")}, g.Params)
	assert.Equal(t, passes.DefaultGlobalHolder+"::g", g.QualifiedName)
}

func TestReceiverPromotionMovesFunctionIntoClass(t *testing.T) {
	tbl := scenarioTable(t, "Ns")
	report := &passes.Report{}
	require.NoError(t, passes.ReceiverPromotion{}.Run(tbl, report))

	classA := tbl.Find("Ns::A")
	require.NotNil(t, classA)
	require.Len(t, classA.Members, 1)
	assert.Equal(t, "Ns::A::f", classA.Members[0].QualifiedName)
	assert.Equal(t, "Ns::A", classA.Members[0].Owner)
	assert.Len(t, classA.Members[0].Params, 1)

	free := tbl.FreeFunctions()
	require.Len(t, free, 1)
	assert.Equal(t, "Ns::g", free[0].QualifiedName)
}

func TestReceiverPromotionResolvesQualifiedAndReferenceReceivers(t *testing.T) {
	tbl := symtab.New("", "Y.h")
	require.NoError(t, tbl.Add(&symtab.Declaration{Name: "Double", QualifiedName: "Tizen::Base::Double", Header: "Y.h", Kind: symtab.KindClass, Namespace: "Tizen::Base"}))
	require.NoError(t, tbl.Add(&symtab.Declaration{Name: "Round", QualifiedName: "Tizen::Util::Round", Header: "Y.h", Kind: symtab.KindFunction, Namespace: "Tizen::Util",
		Params: []symtab.Param{{Name: "d", Type: symtab.TypeRef{Name: "Base::Double", Const: true, Reference: true}}}}))
	require.NoError(t, tbl.Add(&symtab.Declaration{Name: "Swap", QualifiedName: "Tizen::Util::Swap", Header: "Y.h", Kind: symtab.KindFunction, Namespace: "Tizen::Util",
		Params: []symtab.Param{{Name: "d", Type: symtab.TypeRef{Name: "Base::Double", Pointer: 2}}}}))

	require.NoError(t, passes.ReceiverPromotion{}.Run(tbl, &passes.Report{}))

	require.NotNil(t, tbl.Find("Tizen::Base::Double::Round"))
	assert.NotNil(t, tbl.Find("Tizen::Util::Swap"), "double pointers are not receivers")
}

func TestReceiverPromotionSkipsExcludedClass(t *testing.T) {
	tbl := scenarioTable(t, "Ns")
	tbl.Find("Ns::A").Excluded = true

	report := &passes.Report{}
	require.NoError(t, passes.ReceiverPromotion{}.Run(tbl, report))

	require.Len(t, report.Warnings, 1)
	assert.Equal(t, passes.ReceiverPromotionName, report.Warnings[0].Pass)
	assert.Equal(t, "Ns::f", report.Warnings[0].Declaration)
	assert.Len(t, tbl.FreeFunctions(), 2)
	assert.Empty(t, tbl.Find("Ns::A").Members)
}

func TestStaticConversionUsesExistingHolder(t *testing.T) {
	tbl := scenarioTable(t, "Tizen::Base")
	require.NoError(t, tbl.Add(&symtab.Declaration{Name: "BaseUtil", QualifiedName: "Tizen::Base::BaseUtil", Header: "X.h", Kind: symtab.KindClass, Namespace: "Tizen::Base"}))

	conv := passes.NewStaticConversion(passes.Options{HolderSuffix: "Util"})
	assert.Equal(t, "BaseUtil", conv.HolderName("Tizen::Base"))
	require.NoError(t, conv.Run(tbl, &passes.Report{}))

	holder := tbl.Find("Tizen::Base::BaseUtil")
	require.NotNil(t, holder)
	assert.False(t, holder.Synthesized)
	require.Len(t, holder.Members, 2)
	for _, m := range holder.Members {
		assert.Equal(t, symtab.KindStaticMethod, m.Kind)
		assert.Equal(t, "Tizen::Base::BaseUtil", m.Owner)
	}
	assert.Len(t, tbl.Decls, 3, "A, B and the holder")
}

func TestStaticConversionPlacesSynthesizedHolder(t *testing.T) {
	tbl := scenarioTable(t, "Ns")
	require.NoError(t, passes.NewStaticConversion(passes.Options{}).Run(tbl, &passes.Report{}))

	var names []string
	for _, d := range tbl.Decls {
		names = append(names, d.QualifiedName)
	}
	assert.Equal(t, []string{"Ns::A", "Ns::B", "Ns::NsFunctions"}, names)
	assert.Len(t, tbl.Find("Ns::NsFunctions").Members, 2)
}

func TestEveryFreeFunctionEndsInExactlyOneClass(t *testing.T) {
	tbl := scenarioTable(t, "Ns")
	tbl.Find("Ns::A").Excluded = true
	_, err := defaultPipeline(t).Run(tbl)
	require.NoError(t, err)

	owners := map[string]int{}
	tbl.Walk(func(d *symtab.Declaration) bool {
		if d.Kind == symtab.KindStaticMethod || d.Kind == symtab.KindInstanceMethod {
			owners[d.Native]++
		}
		return true
	})
	assert.Equal(t, map[string]int{"Ns::f": 1, "Ns::g": 1}, owners)
	assert.Empty(t, tbl.FreeFunctions())
}

func TestPipelineIsIdempotent(t *testing.T) {
	once := scenarioTable(t, "Ns")
	_, err := defaultPipeline(t).Run(once)
	require.NoError(t, err)

	twice := scenarioTable(t, "Ns")
	_, err = defaultPipeline(t).Run(twice)
	require.NoError(t, err)
	report, err := defaultPipeline(t).Run(twice)
	require.NoError(t, err)
	assert.Empty(t, report.Warnings)

	if diff := cmp.Diff(once, twice, cmpopts.IgnoreUnexported(symtab.Table{})); diff != "" {
		t.Fatalf("second run changed the table (-once +twice):\n%s", diff)
	}
}

type renamePass struct{}

func (renamePass) Name() string { return "rename" }

func (renamePass) Run(t *symtab.Table, r *passes.Report) error {
	for _, d := range t.Decls {
		if d.Kind == symtab.KindFunction {
			r.Warn("rename", d.QualifiedName, "still free")
		}
	}
	return nil
}

func TestPipelineRunsInConfiguredOrder(t *testing.T) {
	before := passes.NewPipeline(discard(), renamePass{}, passes.ReceiverPromotion{})
	report, err := before.Run(scenarioTable(t, "Ns"))
	require.NoError(t, err)
	assert.Len(t, report.Warnings, 2)

	after := passes.NewPipeline(discard(), passes.ReceiverPromotion{})
	after.Append(renamePass{})
	report, err = after.Run(scenarioTable(t, "Ns"))
	require.NoError(t, err)
	assert.Len(t, report.Warnings, 1)
	assert.Len(t, after.Passes(), 2)
}

func TestBuildRejectsUnknownPass(t *testing.T) {
	_, err := passes.Build([]string{passes.ReceiverPromotionName, "inline-everything"}, passes.Options{})
	require.Error(t, err)
	assert.Equal(t, failure.KindConfiguration, failure.KindOf(err))
	assert.Equal(t, []string{"receiver-promotion", "static-conversion"}, passes.Names())
}
