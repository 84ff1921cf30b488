package driver_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/bindgen/internal/codegen/config"
	"github.com/Alia5/bindgen/internal/codegen/driver"
	"github.com/Alia5/bindgen/internal/codegen/exclude"
	"github.com/Alia5/bindgen/internal/codegen/failure"
	"github.com/Alia5/bindgen/internal/codegen/passes"
	"github.com/Alia5/bindgen/internal/codegen/symtab"
	"github.com/Alia5/bindgen/internal/codegen/typemap"
	bgtest "github.com/Alia5/bindgen/internal/testing"
)

func validConfig(t *testing.T) config.Generation {
	return config.Generation{
		LibraryName:       "X",
		OutputDir:         t.TempDir(),
		GeneratorKind:     "c",
		Headers:           []string{"X.h"},
		TargetTriple:      "x86_64-pc-linux-gnu",
		NoBuiltinIncludes: true,
	}
}

type fixture struct {
	parser  *bgtest.MockParser
	emitter *bgtest.MockEmitter
}

func newDriver(t *testing.T, cfg config.Generation, hooks driver.Hooks, ns string) (*driver.Driver, fixture) {
	t.Helper()
	f := fixture{
		parser:  &bgtest.MockParser{Table: bgtest.ScenarioTable(t, ns)},
		emitter: &bgtest.MockEmitter{Written: []string{"include/X_shim.h"}},
	}
	d, err := driver.New(cfg, driver.Options{Parser: f.parser, Emitter: f.emitter, Hooks: hooks, Logger: bgtest.DiscardLogger()})
	require.NoError(t, err)
	return d, f
}

func TestRunScenario(t *testing.T) {
	var post *symtab.Table
	d, f := newDriver(t, validConfig(t), driver.Hooks{Postprocess: func(tbl *symtab.Table) { post = tbl }}, "")
	assert.Equal(t, driver.StateConfigured, d.State())

	res, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, driver.StateDone, res.State)
	assert.Equal(t, driver.StateDone, d.State())
	assert.Equal(t, []string{"include/X_shim.h"}, res.Written)
	_, err = uuid.Parse(res.RunID)
	assert.NoError(t, err)

	require.Len(t, f.emitter.Metadata, 1)
	md := f.emitter.Metadata[0]
	assert.Equal(t, "X", md.LibraryName)
	assert.Equal(t, "c", f.emitter.Kind[0])

	fn := md.Table.Find("A::f")
	require.NotNil(t, fn)
	assert.Equal(t, symtab.KindInstanceMethod, fn.Kind)
	assert.Len(t, fn.Params, 1)
	assert.Empty(t, md.Table.FreeFunctions())

	g := md.Table.Find(passes.DefaultGlobalHolder + "::g")
	require.NotNil(t, g)
	assert.Equal(t, symtab.KindStaticMethod, g.Kind)
	assert.True(t, md.Table.Find(passes.DefaultGlobalHolder).Synthesized)

	require.NotNil(t, post)
	post.Decls = nil
	assert.NotEmpty(t, res.Table.Decls, "postprocess must get a copy")
}

func TestRunPassesRequest(t *testing.T) {
	cfg := validConfig(t)
	cfg.IncludeDirs = []string{"/sdk/include"}
	cfg.CompilerArgs = "-D_OSP_EXPORT_= -isystem /sdk/sys"
	cfg.Parallelism = 2
	d, f := newDriver(t, cfg, driver.Hooks{}, "")

	_, err := d.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, f.parser.Requests, 1)
	req := f.parser.Requests[0]
	assert.Equal(t, []string{"X.h"}, req.Headers)
	assert.Equal(t, []string{"/sdk/include"}, req.IncludeDirs)
	assert.Equal(t, []string{"/sdk/sys"}, req.SystemIncludeDirs)
	assert.Equal(t, []string{"_OSP_EXPORT_="}, req.Defines)
	assert.Equal(t, "x86_64-pc-linux-gnu", req.TargetTriple)
	assert.False(t, req.BuiltinIncludes)
	assert.Equal(t, 2, req.Parallelism)
}

func TestExcludingEveryHeaderIsEmptyOutput(t *testing.T) {
	cfg := validConfig(t)
	cfg.Exclude.Headers = []string{"X.h"}
	d, f := newDriver(t, cfg, driver.Hooks{}, "")

	res, err := d.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, failure.KindEmptyOutput, failure.KindOf(err))
	assert.Equal(t, driver.StateFailed, res.State)
	assert.Equal(t, driver.StateParsed, res.FailedIn)
	assert.Empty(t, f.emitter.Metadata)

	var empty *failure.EmptyOutputError
	require.True(t, errors.As(err, &empty))
	assert.Equal(t, 4, empty.Total)
	assert.Equal(t, 4, empty.Excluded)
	assert.Equal(t, 4, empty.ByRule["header:X.h"])
}

func TestNewRejectsInvalidConfiguration(t *testing.T) {
	cfg := validConfig(t)
	cfg.TargetTriple = ""
	cfg.GeneratorKind = "cobol"
	parser := &bgtest.MockParser{}
	_, err := driver.New(cfg, driver.Options{Parser: parser, Emitter: &bgtest.MockEmitter{}, Logger: bgtest.DiscardLogger()})
	require.Error(t, err)
	assert.Equal(t, failure.KindConfiguration, failure.KindOf(err))

	var ce *failure.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Len(t, ce.Problems(), 2)
	assert.Empty(t, parser.Requests)
}

func TestParseFailure(t *testing.T) {
	d, f := newDriver(t, validConfig(t), driver.Hooks{}, "")
	f.parser.Err = errors.New("boom")

	res, err := d.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, failure.KindParse, failure.KindOf(err))
	assert.Equal(t, driver.StateFailed, res.State)
	assert.Equal(t, driver.StateConfigured, res.FailedIn)
}

func TestParseErrorKeepsLocation(t *testing.T) {
	d, f := newDriver(t, validConfig(t), driver.Hooks{}, "")
	f.parser.Err = errors.WithStack(&failure.ParseError{File: "X.h", Line: 3, Column: 7, Err: errors.New("syntax error")})

	_, err := d.Run(context.Background())
	var pe *failure.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 3, pe.Line)
}

func TestPreprocessHook(t *testing.T) {
	hooks := driver.Hooks{Preprocess: func(s *driver.Session) error {
		assert.Len(t, s.Table().Decls, 4)
		s.Exclude(exclude.Name("Ns::B"))
		return s.MapType("Ns::String", typemap.Mapping{Target: "string", Strategy: typemap.BuiltinEquivalent})
	}}
	d, f := newDriver(t, validConfig(t), hooks, "Ns")

	res, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Excluded)
	assert.True(t, res.Table.Find("Ns::B").Excluded)

	types := f.emitter.Metadata[0].Types
	m, ok := types.Resolve("Ns::String")
	require.True(t, ok)
	assert.Equal(t, typemap.Mapping{Target: "string", Strategy: typemap.BuiltinEquivalent}, m)
	_, ok = types.Resolve("Ns::Unknown")
	assert.False(t, ok)
	assert.Contains(t, res.Warnings, "type mapping Ns::String names no declaration")
}

func TestPreprocessHookErrors(t *testing.T) {
	t.Run("plain error is a configuration error", func(t *testing.T) {
		d, _ := newDriver(t, validConfig(t), driver.Hooks{Preprocess: func(*driver.Session) error { return errors.New("nope") }}, "")
		res, err := d.Run(context.Background())
		assert.Equal(t, failure.KindConfiguration, failure.KindOf(err))
		assert.Equal(t, driver.StateFailed, res.State)
	})
	t.Run("invalid mapping", func(t *testing.T) {
		hook := func(s *driver.Session) error { return s.MapType("Ns::String", typemap.Mapping{Target: "string"}) }
		d, _ := newDriver(t, validConfig(t), driver.Hooks{Preprocess: hook}, "")
		_, err := d.Run(context.Background())
		assert.Equal(t, failure.KindConfiguration, failure.KindOf(err))
	})
	t.Run("invalid rule", func(t *testing.T) {
		hook := func(s *driver.Session) error { s.Exclude(exclude.Rule{}); return nil }
		d, _ := newDriver(t, validConfig(t), driver.Hooks{Preprocess: hook}, "")
		_, err := d.Run(context.Background())
		assert.Equal(t, failure.KindConfiguration, failure.KindOf(err))
	})
}

func TestUnmatchedRuleIsWarning(t *testing.T) {
	cfg := validConfig(t)
	cfg.Exclude.Names = []string{"Nothing"}
	d, _ := newDriver(t, cfg, driver.Hooks{}, "")

	res, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, res.Warnings, "rule name:Nothing matched nothing")
}

func TestEmitFailureKeepsWrittenFiles(t *testing.T) {
	d, f := newDriver(t, validConfig(t), driver.Hooks{Postprocess: func(*symtab.Table) { t.Fatal("postprocess after failed emit") }}, "")
	f.emitter.Err = errors.New("disk full")

	res, err := d.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, failure.KindEmit, failure.KindOf(err))
	assert.Equal(t, driver.StateTransformed, res.FailedIn)
	assert.Equal(t, []string{"include/X_shim.h"}, res.Written)

	var ee *failure.EmitError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, []string{"include/X_shim.h"}, ee.Written)
}

type renamePass struct{}

func (renamePass) Name() string { return "rename" }

func (renamePass) Run(t *symtab.Table, r *passes.Report) error {
	for _, d := range t.Decls {
		if d.Name == "B" {
			d.Name = "Renamed"
		}
	}
	r.Warn("rename", "B", "renamed")
	return nil
}

func TestSetupPassesAppends(t *testing.T) {
	hooks := driver.Hooks{SetupPasses: func(p *passes.Pipeline) { p.Append(renamePass{}) }}
	d, _ := newDriver(t, validConfig(t), hooks, "")

	res, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Renamed", res.Table.Find("B").Name)
	assert.Contains(t, res.Warnings, "rename: B: renamed")
}

func TestRunUntilStopsBeforeEmit(t *testing.T) {
	d, f := newDriver(t, validConfig(t), driver.Hooks{}, "")

	res, err := d.RunUntil(context.Background(), driver.StateTransformed)
	require.NoError(t, err)
	assert.Equal(t, driver.StateTransformed, res.State)
	assert.Empty(t, f.emitter.Metadata)
	assert.NotNil(t, res.Table.Find("A::f"))
}

func TestDriverRunsOnce(t *testing.T) {
	d, _ := newDriver(t, validConfig(t), driver.Hooks{}, "")
	_, err := d.Run(context.Background())
	require.NoError(t, err)

	_, err = d.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, failure.KindInternal, failure.KindOf(err))
}
