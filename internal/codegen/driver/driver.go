// Package driver runs one generation: parse, preprocess, transform, emit.
//
// A Driver is a small state machine:
//
//	Configured -> Parsed -> Preprocessed -> Transformed -> Emitted -> Done
//
// Every non-terminal state can move to Failed. Stages run synchronously and
// nothing is retried or rolled back.
package driver

import (
	"context"
	"log/slog"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/Alia5/bindgen/internal/codegen/config"
	"github.com/Alia5/bindgen/internal/codegen/exclude"
	"github.com/Alia5/bindgen/internal/codegen/failure"
	"github.com/Alia5/bindgen/internal/codegen/meta"
	"github.com/Alia5/bindgen/internal/codegen/passes"
	"github.com/Alia5/bindgen/internal/codegen/scanner"
	"github.com/Alia5/bindgen/internal/codegen/symtab"
	"github.com/Alia5/bindgen/internal/codegen/typemap"
)

type State string

const (
	StateConfigured   State = "Configured"
	StateParsed       State = "Parsed"
	StatePreprocessed State = "Preprocessed"
	StateTransformed  State = "Transformed"
	StateEmitted      State = "Emitted"
	StateDone         State = "Done"
	StateFailed       State = "Failed"
)

var next = map[State]State{
	StateConfigured:   StateParsed,
	StateParsed:       StatePreprocessed,
	StatePreprocessed: StateTransformed,
	StateTransformed:  StateEmitted,
	StateEmitted:      StateDone,
}

// Terminal reports Done and Failed.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Parser turns the configured headers into a symbol table.
type Parser interface {
	Parse(ctx context.Context, req scanner.Request) (*symtab.Table, error)
}

// Emitter writes bindings for a finished table.
type Emitter interface {
	Emit(ctx context.Context, md *meta.Metadata, outputDir, kind string) ([]string, error)
	Kinds() []string
}

// Hooks are optional user callbacks.
type Hooks struct {
	// Preprocess runs after parsing, before exclusion rules are applied.
	Preprocess func(s *Session) error
	// Postprocess receives a copy of the final table after a successful emit.
	Postprocess func(t *symtab.Table)
	// SetupPasses may append passes after the configured ones.
	SetupPasses func(p *passes.Pipeline)
}

type Options struct {
	Parser  Parser
	Emitter Emitter
	Hooks   Hooks
	Logger  *slog.Logger
}

// Result summarizes a run. It is returned for failed runs too.
type Result struct {
	RunID string
	State State
	// FailedIn is the state the run was in when it failed.
	FailedIn State
	Written  []string
	Warnings []string
	Excluded int
	Table    *symtab.Table
}

type Driver struct {
	cfg     config.Generation
	parser  Parser
	emitter Emitter
	hooks   Hooks
	logger  *slog.Logger
	pipe    *passes.Pipeline

	runID  string
	state  State
	ran    bool
	result *Result
}

// New validates cfg and prepares a run. Configuration problems are reported
// here, before any header is read.
func New(cfg config.Generation, opts Options) (*Driver, error) {
	if opts.Parser == nil || opts.Emitter == nil {
		return nil, errors.AssertionFailedf("driver needs a parser and an emitter")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := cfg.Normalize()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(opts.Emitter.Kinds()); err != nil {
		return nil, err
	}
	ps, err := passes.Build(cfg.Passes, cfg.PassOptions())
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger = logger.With("run", runID)
	pipe := passes.NewPipeline(logger, ps...)
	if opts.Hooks.SetupPasses != nil {
		opts.Hooks.SetupPasses(pipe)
	}

	return &Driver{
		cfg:     cfg,
		parser:  opts.Parser,
		emitter: opts.Emitter,
		hooks:   opts.Hooks,
		logger:  logger,
		pipe:    pipe,
		runID:   runID,
		state:   StateConfigured,
	}, nil
}

func (d *Driver) State() State { return d.state }

func (d *Driver) RunID() string { return d.runID }

// Config is the normalized configuration of the run.
func (d *Driver) Config() config.Generation { return d.cfg.Clone() }

func (d *Driver) transition(to State) {
	if to != StateFailed && next[d.state] != to {
		panic("driver: invalid transition " + string(d.state) + " -> " + string(to))
	}
	d.logger.Debug("Driver state", "from", d.state, "to", to)
	d.state = to
}

func (d *Driver) fail(err error) (*Result, error) {
	d.result.FailedIn = d.state
	d.transition(StateFailed)
	d.result.State = StateFailed
	d.logger.Error("Generation failed", "stage", d.result.FailedIn, "kind", failure.KindOf(err), "error", err)
	return d.result, err
}

func (d *Driver) warn(msg string) {
	d.result.Warnings = append(d.result.Warnings, msg)
}

// Run executes the whole pipeline.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	return d.RunUntil(ctx, StateDone)
}

// RunUntil executes the pipeline up to and including stop. Stopping before
// Emitted leaves the output directory untouched. A driver runs once.
func (d *Driver) RunUntil(ctx context.Context, stop State) (*Result, error) {
	if d.ran {
		return d.result, errors.AssertionFailedf("driver run %s already executed", d.runID)
	}
	switch stop {
	case StateParsed, StatePreprocessed, StateTransformed, StateEmitted, StateDone:
	default:
		return nil, errors.AssertionFailedf("cannot stop at state %s", stop)
	}
	d.ran = true
	d.result = &Result{RunID: d.runID, State: d.state}

	d.logger.Info("Starting generation", "library", d.cfg.LibraryName, "kind", d.cfg.GeneratorKind, "headers", len(d.cfg.Headers))

	table, err := d.parse(ctx)
	if err != nil {
		return d.fail(err)
	}
	d.result.Table = table
	d.transition(StateParsed)
	if stop == StateParsed {
		return d.stopped()
	}

	types, err := d.preprocess(table)
	if err != nil {
		return d.fail(err)
	}
	d.transition(StatePreprocessed)
	if stop == StatePreprocessed {
		return d.stopped()
	}

	if err := d.transform(table); err != nil {
		return d.fail(err)
	}
	d.transition(StateTransformed)
	if stop == StateTransformed {
		return d.stopped()
	}

	written, err := d.emit(ctx, table, types)
	d.result.Written = written
	if err != nil {
		return d.fail(err)
	}
	d.transition(StateEmitted)
	if stop == StateEmitted {
		return d.stopped()
	}

	if d.hooks.Postprocess != nil {
		d.hooks.Postprocess(table.Clone())
	}
	d.transition(StateDone)
	d.result.State = StateDone
	d.logger.Info("Generation done", "output", d.cfg.OutputDir, "files", len(written), "warnings", len(d.result.Warnings))
	return d.result, nil
}

func (d *Driver) stopped() (*Result, error) {
	d.result.State = d.state
	d.logger.Info("Generation stopped", "state", d.state)
	return d.result, nil
}

func (d *Driver) request() scanner.Request {
	return scanner.Request{
		Headers:            d.cfg.Headers,
		IncludeDirs:        d.cfg.IncludeDirs,
		SystemIncludeDirs:  d.cfg.SystemIncludeDirs,
		BuiltinIncludeDirs: d.cfg.BuiltinIncludeDirs,
		TargetTriple:       d.cfg.TargetTriple,
		BuiltinIncludes:    !d.cfg.NoBuiltinIncludes,
		NoStandardIncludes: d.cfg.NoStandardIncludes,
		Defines:            d.cfg.Defines,
		Lenient:            d.cfg.Lenient,
		Parallelism:        d.cfg.Parallelism,
	}
}

func (d *Driver) parse(ctx context.Context) (*symtab.Table, error) {
	table, err := d.parser.Parse(ctx, d.request())
	if err != nil {
		if failure.KindOf(err) != failure.KindParse {
			err = errors.WithStack(&failure.ParseError{File: strings.Join(d.cfg.Headers, ", "), Err: err})
		}
		return nil, err
	}
	if table == nil {
		return nil, errors.AssertionFailedf("parser returned no table")
	}
	return table, nil
}

func (d *Driver) preprocess(table *symtab.Table) (*typemap.Registry, error) {
	rules, keep := d.cfg.Rules()
	s := &Session{
		table:  table,
		cfg:    d.cfg,
		rules:  rules,
		keep:   keep,
		types:  typemap.New(d.logger),
		logger: d.logger,
	}
	for _, tm := range d.cfg.TypeMappings {
		if err := s.MapType(tm.Native, tm.Mapping()); err != nil {
			return nil, err
		}
	}

	if d.hooks.Preprocess != nil {
		if err := d.hooks.Preprocess(s); err != nil {
			if failure.KindOf(err) == failure.KindInternal {
				err = failure.Configuration(errors.Wrap(err, "preprocess hook"))
			}
			return nil, err
		}
	}

	var problems []error
	for _, r := range append(append([]exclude.Rule(nil), s.rules...), s.keep...) {
		problems = append(problems, r.Validate())
	}
	if err := failure.Configuration(problems...); err != nil {
		return nil, err
	}

	res := exclude.Apply(table, s.rules, s.keep)
	for _, r := range res.Unmatched {
		d.logger.Warn("Exclusion rule matched nothing", "rule", r.String())
		d.warn("rule " + r.String() + " matched nothing")
	}
	d.result.Excluded = res.Excluded

	for _, name := range typemap.Annotate(table, s.types) {
		d.logger.Warn("Type mapping names no declaration", "native", name)
		d.warn("type mapping " + name + " names no declaration")
	}

	stats := table.Stats()
	d.logger.Info("Preprocessed", "declarations", stats.Total, "excluded", stats.Excluded, "mappings", s.types.Len())
	if stats.Total-stats.Excluded == 0 {
		return nil, errors.WithStack(&failure.EmptyOutputError{Total: stats.Total, Excluded: stats.Excluded, ByRule: res.Matches})
	}
	return s.types, nil
}

func (d *Driver) transform(table *symtab.Table) error {
	report, err := d.pipe.Run(table)
	if err != nil {
		return errors.Wrap(err, "transform")
	}
	for _, w := range report.Warnings {
		d.warn(w.String())
	}
	return nil
}

func (d *Driver) emit(ctx context.Context, table *symtab.Table, types *typemap.Registry) ([]string, error) {
	md := &meta.Metadata{
		LibraryName:  d.cfg.LibraryName,
		Namespace:    d.cfg.Namespace,
		TargetTriple: d.cfg.TargetTriple,
		Headers:      d.cfg.Headers,
		IncludeDirs:  append(append([]string(nil), d.cfg.IncludeDirs...), d.cfg.SystemIncludeDirs...),
		LibraryDirs:  d.cfg.LibraryDirs,
		Libraries:    d.cfg.Libraries,
		Table:        table,
		Types:        types,
	}
	written, err := d.emitter.Emit(ctx, md, d.cfg.OutputDir, d.cfg.GeneratorKind)
	if err != nil && failure.KindOf(err) == failure.KindInternal {
		err = failure.Emit(err, written)
	}
	return written, err
}
