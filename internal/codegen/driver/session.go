package driver

import (
	"log/slog"

	"github.com/Alia5/bindgen/internal/codegen/config"
	"github.com/Alia5/bindgen/internal/codegen/exclude"
	"github.com/Alia5/bindgen/internal/codegen/symtab"
	"github.com/Alia5/bindgen/internal/codegen/typemap"
)

// Session is what the Preprocess hook sees: the parsed table plus the
// exclusion rules and type mappings about to be applied.
type Session struct {
	table  *symtab.Table
	cfg    config.Generation
	rules  []exclude.Rule
	keep   []exclude.Rule
	types  *typemap.Registry
	logger *slog.Logger
}

func (s *Session) Table() *symtab.Table { return s.table }

func (s *Session) Config() config.Generation { return s.cfg.Clone() }

func (s *Session) Logger() *slog.Logger { return s.logger }

// Exclude adds exclusion rules.
func (s *Session) Exclude(rules ...exclude.Rule) {
	s.rules = append(s.rules, rules...)
}

// Keep adds rules that protect declarations from header exclusion.
func (s *Session) Keep(rules ...exclude.Rule) {
	s.keep = append(s.keep, rules...)
}

// MapType registers a type mapping; a later mapping for the same name wins.
func (s *Session) MapType(native string, m typemap.Mapping) error {
	return s.types.Register(native, m)
}

func (s *Session) Types() *typemap.Registry { return s.types }
