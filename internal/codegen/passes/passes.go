// Package passes restructures the symbol table before emission.
//
// Passes run strictly in the configured order, each on the output of the
// previous one. They share nothing but the table.
package passes

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/Alia5/bindgen/internal/codegen/failure"
	"github.com/Alia5/bindgen/internal/codegen/symtab"
)

// Pass is one named, deterministic transformation of the table.
type Pass interface {
	Name() string
	Run(t *symtab.Table, r *Report) error
}

// Warning is a non-fatal finding recorded by a pass.
type Warning struct {
	Pass        string
	Declaration string
	Message     string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s: %s", w.Pass, w.Declaration, w.Message)
}

type Report struct {
	Warnings []Warning
}

func (r *Report) Warn(pass, decl, format string, args ...any) {
	r.Warnings = append(r.Warnings, Warning{Pass: pass, Declaration: decl, Message: fmt.Sprintf(format, args...)})
}

type Pipeline struct {
	logger *slog.Logger
	passes []Pass
}

func NewPipeline(logger *slog.Logger, passes ...Pass) *Pipeline {
	return &Pipeline{logger: logger, passes: passes}
}

// Append adds passes after the configured ones.
func (p *Pipeline) Append(passes ...Pass) {
	p.passes = append(p.passes, passes...)
}

func (p *Pipeline) Passes() []Pass {
	return append([]Pass(nil), p.passes...)
}

// Run applies every pass in order and collects their warnings.
func (p *Pipeline) Run(t *symtab.Table) (*Report, error) {
	report := &Report{}
	for _, pass := range p.passes {
		before := len(report.Warnings)
		if err := pass.Run(t, report); err != nil {
			return report, errors.Wrapf(err, "pass %s", pass.Name())
		}
		for _, w := range report.Warnings[before:] {
			p.logger.Warn("Transform pass warning", "pass", w.Pass, "declaration", w.Declaration, "message", w.Message)
		}
		p.logger.Debug("Ran transform pass", "pass", pass.Name(), "warnings", len(report.Warnings)-before)
	}
	return report, nil
}

// Options tunes the built-in passes.
type Options struct {
	// HolderSuffix is appended to the last namespace segment to name holder classes.
	HolderSuffix string
	// GlobalHolder names the holder class of functions in the global namespace.
	GlobalHolder string
}

const (
	DefaultHolderSuffix = "Functions"
	DefaultGlobalHolder = "GlobalFunctions"
)

var builtins = map[string]func(Options) Pass{
	ReceiverPromotionName: func(Options) Pass { return ReceiverPromotion{} },
	StaticConversionName:  func(o Options) Pass { return NewStaticConversion(o) },
}

// DefaultNames is the pass order used when none is configured.
func DefaultNames() []string {
	return []string{ReceiverPromotionName, StaticConversionName}
}

// Names lists the built-in passes.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build resolves pass names in order.
func Build(names []string, opts Options) ([]Pass, error) {
	out := make([]Pass, 0, len(names))
	for _, name := range names {
		ctor, ok := builtins[name]
		if !ok {
			return nil, failure.Configurationf("unknown transform pass %q (supported: %v)", name, Names())
		}
		out = append(out, ctor(opts))
	}
	return out, nil
}
