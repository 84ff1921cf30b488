// Package failure defines the fatal error kinds a generation run can end with.
//
// Every error that moves a run into the Failed state is classified by KindOf.
// Errors are created and wrapped with cockroachdb/errors so hints and details
// survive wrapping and can be printed by the CLI.
package failure

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/multierr"
)

// Kind names a failure class. The string form is what the CLI prints.
type Kind string

const (
	KindParse         Kind = "ParseError"
	KindConfiguration Kind = "ConfigurationError"
	KindEmptyOutput   Kind = "EmptyOutputError"
	KindEmit          Kind = "EmitError"
	KindInternal      Kind = "InternalError"
)

// ParseError reports a header that could not be read, resolved or parsed.
type ParseError struct {
	File     string
	Searched []string
	Line     int
	Column   int
	Err      error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString(e.File)
	if e.Line > 0 {
		fmt.Fprintf(&b, ":%d:%d", e.Line, e.Column)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if len(e.Searched) > 0 {
		fmt.Fprintf(&b, " (searched: %s)", strings.Join(e.Searched, ", "))
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// ConfigurationError aggregates every problem found in a configuration.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	problems := e.Problems()
	if len(problems) == 1 {
		return "invalid configuration: " + problems[0]
	}
	return fmt.Sprintf("invalid configuration (%d problems): %s", len(problems), strings.Join(problems, "; "))
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Problems returns one message per aggregated problem.
func (e *ConfigurationError) Problems() []string {
	errs := multierr.Errors(e.Err)
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		out = append(out, err.Error())
	}
	return out
}

// EmptyOutputError reports that exclusion left nothing to generate.
type EmptyOutputError struct {
	Total    int
	Excluded int
	ByRule   map[string]int
}

func (e *EmptyOutputError) Error() string {
	if e.Total == 0 {
		return "headers produced no declarations"
	}
	rules := make([]string, 0, len(e.ByRule))
	for rule, n := range e.ByRule {
		if n > 0 {
			rules = append(rules, fmt.Sprintf("%s matched %d", rule, n))
		}
	}
	sort.Strings(rules)
	msg := fmt.Sprintf("all %d declarations were excluded (%d excluded)", e.Total, e.Excluded)
	if len(rules) > 0 {
		msg += ": " + strings.Join(rules, ", ")
	}
	return msg
}

// EmitError reports an emitter failure. Written lists the files produced
// before the failure; they are left in place.
type EmitError struct {
	Written []string
	Err     error
}

func (e *EmitError) Error() string {
	return fmt.Sprintf("emit failed after %d file(s): %v", len(e.Written), e.Err)
}

func (e *EmitError) Unwrap() error { return e.Err }

// Configuration combines problems into a single ConfigurationError.
// It returns nil when every problem is nil.
func Configuration(problems ...error) error {
	combined := multierr.Combine(problems...)
	if combined == nil {
		return nil
	}
	return errors.WithStack(&ConfigurationError{Err: combined})
}

// Configurationf creates a ConfigurationError with a single problem.
func Configurationf(format string, args ...any) error {
	return Configuration(errors.Newf(format, args...))
}

// Emit wraps err into an EmitError unless it already is one.
func Emit(err error, written []string) error {
	if err == nil {
		return nil
	}
	var ee *EmitError
	if errors.As(err, &ee) {
		return err
	}
	return errors.WithStack(&EmitError{Written: append([]string(nil), written...), Err: err})
}

// KindOf classifies err. Unclassified errors are KindInternal.
func KindOf(err error) Kind {
	var (
		pe *ParseError
		ce *ConfigurationError
		ee *EmptyOutputError
		me *EmitError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &pe):
		return KindParse
	case errors.As(err, &ce):
		return KindConfiguration
	case errors.As(err, &ee):
		return KindEmptyOutput
	case errors.As(err, &me):
		return KindEmit
	default:
		return KindInternal
	}
}
