package csharp

import (
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/Alia5/bindgen/internal/codegen/common"
	cgen "github.com/Alia5/bindgen/internal/codegen/generator/c"
	"github.com/Alia5/bindgen/internal/codegen/meta"
	"github.com/Alia5/bindgen/internal/codegen/symtab"
)

type generator struct {
	logger      *slog.Logger
	md          *meta.Metadata
	ix          *common.Index
	m           *mapper
	shimLibrary string
}

// Generate writes P/Invoke bindings against the C shim: one file per header
// plus <Lib>.Interop.cs with the raw entry points.
func Generate(logger *slog.Logger, w *common.Writer, md *meta.Metadata) error {
	ix := common.NewIndex(md.LibraryName, md.Table, md.Types)
	g := &generator{
		logger:      logger,
		md:          md,
		ix:          ix,
		m:           newMapper(ix, common.DottedName(md.Namespace), md.TargetTriple),
		shimLibrary: cgen.ShimLibrary(md.LibraryName),
	}
	for _, s := range ix.Skipped() {
		logger.Debug("Skipping callable", "declaration", s.Declaration, "reason", s.Reason)
	}

	files := 0
	sources := map[string]string{}
	for _, header := range md.Headers {
		src := g.headerFile(header)
		if src == "" {
			logger.Debug("Nothing to bind", "header", header)
			continue
		}
		rel := csFileName(header)
		if other, dup := sources[rel]; dup {
			return errors.Newf("headers %s and %s both map to %s", other, header, rel)
		}
		sources[rel] = header
		if err := w.WriteFile(rel, []byte(src)); err != nil {
			return err
		}
		files++
	}

	if err := generateInterop(logger, w, g); err != nil {
		return err
	}
	if err := common.GenerateReadme(logger, w, md, "C#"); err != nil {
		return err
	}

	logger.Info("Generated C# bindings", "dir", w.Root(), "files", files, "classes", len(ix.Classes()), "skipped", len(ix.Skipped()))
	return nil
}

// csFileName maps FBaseDouble.h to FBaseDouble.cs. Relative directories are
// kept, leading ".." segments are dropped and absolute headers keep only
// their base name, so the result always stays below the output directory.
func csFileName(header string) string {
	header = path.Clean(strings.ReplaceAll(header, "\\", "/"))
	if path.IsAbs(header) || (len(header) > 1 && header[1] == ':') {
		header = path.Base(header)
	}
	for header == ".." || strings.HasPrefix(header, "../") {
		header = strings.TrimPrefix(strings.TrimPrefix(header, ".."), "/")
	}
	return strings.TrimSuffix(header, path.Ext(header)) + ".cs"
}

// csWriter accumulates indented C# source.
type csWriter struct {
	b     strings.Builder
	depth int
}

func (w *csWriter) line(format string, args ...any) {
	if format == "" {
		w.b.WriteByte('\n')
		return
	}
	w.b.WriteString(strings.Repeat("    ", w.depth))
	fmt.Fprintf(&w.b, format, args...)
	w.b.WriteByte('\n')
}

func (w *csWriter) open(format string, args ...any) {
	w.line(format, args...)
	w.line("{")
	w.depth++
}

func (w *csWriter) close() {
	w.depth--
	w.line("}")
}

// headerFile renders the top-level classes and enums a header declares,
// grouped by namespace in order of first appearance. Empty when the header
// has nothing to bind.
func (g *generator) headerFile(header string) string {
	var order []string
	byNS := map[string][]*symtab.Declaration{}
	for _, d := range g.md.Table.Decls {
		if d.Header != header || !g.emits(d) {
			continue
		}
		if _, ok := byNS[d.Namespace]; !ok {
			order = append(order, d.Namespace)
		}
		byNS[d.Namespace] = append(byNS[d.Namespace], d)
	}
	if len(order) == 0 {
		return ""
	}

	w := &csWriter{}
	w.line("// <auto-generated>")
	w.line("//     Generated by bindgen %s from %s. Do not edit.", g.md.Version, header)
	w.line("// </auto-generated>")
	w.line("using System;")
	w.line("using System.Runtime.InteropServices;")
	for _, ns := range order {
		w.line("")
		name := g.m.namespaceOf(ns)
		if name != "" {
			w.open("namespace %s", name)
		}
		for i, d := range byNS[ns] {
			if i > 0 {
				w.line("")
			}
			g.declaration(w, d)
		}
		if name != "" {
			w.close()
		}
	}
	return w.b.String()
}

func (g *generator) emits(d *symtab.Declaration) bool {
	switch d.Kind {
	case symtab.KindClass:
		return g.ix.Bindable(d)
	case symtab.KindEnum:
		return !d.Excluded && (d.Access == "" || d.Access == symtab.AccessPublic)
	}
	return false
}

func (g *generator) declaration(w *csWriter, d *symtab.Declaration) {
	switch d.Kind {
	case symtab.KindClass:
		g.class(w, d)
	case symtab.KindEnum:
		g.enum(w, d)
	}
}
