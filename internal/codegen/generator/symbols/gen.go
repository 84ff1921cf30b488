// Package symbols dumps the transformed symbol table as YAML. The dump is
// what every other generator binds, so it doubles as a debugging aid.
package symbols

import (
	"bytes"
	"log/slog"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/Alia5/bindgen/internal/codegen/common"
	"github.com/Alia5/bindgen/internal/codegen/meta"
	"github.com/Alia5/bindgen/internal/codegen/symtab"
	"github.com/Alia5/bindgen/internal/codegen/typemap"
)

// Document is the root of <lib>.symbols.yaml.
type Document struct {
	Library  string                     `yaml:"library"`
	Version  string                     `yaml:"version"`
	Triple   string                     `yaml:"triple,omitempty"`
	Headers  []string                   `yaml:"headers"`
	Stats    symtab.Stats               `yaml:"stats"`
	Mappings map[string]typemap.Mapping `yaml:"mappings,omitempty"`
	Shims    map[string]string          `yaml:"shims,omitempty"`
	Skipped  []common.Skipped           `yaml:"skipped,omitempty"`
	Decls    []*symtab.Declaration      `yaml:"declarations"`
}

func FileName(library string) string {
	return library + ".symbols.yaml"
}

func Generate(logger *slog.Logger, w *common.Writer, md *meta.Metadata) error {
	ix := common.NewIndex(md.LibraryName, md.Table, md.Types)
	doc := Document{
		Library: md.LibraryName,
		Version: md.Version.String(),
		Triple:  md.TargetTriple,
		Headers: md.Headers,
		Stats:   md.Table.Stats(),
		Shims:   map[string]string{},
		Skipped: ix.Skipped(),
		Decls:   md.Table.Decls,
	}
	if md.Types != nil && md.Types.Len() > 0 {
		doc.Mappings = make(map[string]typemap.Mapping, md.Types.Len())
		for _, name := range md.Types.Names() {
			m, _ := md.Types.Resolve(name)
			doc.Mappings[name] = m
		}
	}
	for _, cls := range ix.Classes() {
		for _, d := range ix.Callables(cls) {
			doc.Shims[d.Key()] = ix.Shim(d)
		}
	}
	for _, fn := range ix.FreeFunctions() {
		doc.Shims[fn.Key()] = ix.Shim(fn)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, "encode symbol table")
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(err, "encode symbol table")
	}

	rel := FileName(md.LibraryName)
	if err := w.WriteFile(rel, buf.Bytes()); err != nil {
		return err
	}
	logger.Info("Generated symbol dump", "file", rel, "declarations", len(doc.Decls), "shims", len(doc.Shims))
	return nil
}
