// Package scanner is the C++ header front-end.
//
// Headers are parsed with tree-sitter; only declarations written in the
// configured headers themselves end up in the symbol table. Included headers
// are resolved so broken include paths fail early, but they are not scanned.
package scanner

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/cockroachdb/errors"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"
	"golang.org/x/sync/errgroup"

	"github.com/Alia5/bindgen/internal/codegen/failure"
	"github.com/Alia5/bindgen/internal/codegen/symtab"
)

// Request carries everything the parser needs from a generation profile.
type Request struct {
	Headers            []string
	IncludeDirs        []string
	SystemIncludeDirs  []string
	BuiltinIncludeDirs []string
	TargetTriple       string
	// BuiltinIncludes enables searching BuiltinIncludeDirs.
	BuiltinIncludes bool
	// NoStandardIncludes requires <...> includes to resolve in the configured directories.
	NoStandardIncludes bool
	Defines            []string
	Lenient            bool
	Parallelism        int
}

func (r Request) parallelism() int {
	if r.Parallelism > 0 {
		return r.Parallelism
	}
	return runtime.GOMAXPROCS(0)
}

// searchPath lists the directories searched for an include. from is the
// including file for quoted includes and empty otherwise.
func (r Request) searchPath(from string) []string {
	var dirs []string
	if from != "" {
		dirs = append(dirs, filepath.Dir(from))
	}
	dirs = append(dirs, r.IncludeDirs...)
	dirs = append(dirs, r.SystemIncludeDirs...)
	if r.BuiltinIncludes {
		dirs = append(dirs, r.BuiltinIncludeDirs...)
	}
	return dirs
}

func find(name string, dirs []string) (string, bool) {
	if filepath.IsAbs(name) {
		st, err := os.Stat(name)
		return name, err == nil && !st.IsDir()
	}
	for _, d := range dirs {
		p := filepath.Join(d, name)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, true
		}
	}
	return "", false
}

// Resolve locates a configured header on the search path.
func (r Request) Resolve(header string) (string, error) {
	dirs := r.searchPath("")
	if p, ok := find(header, dirs); ok {
		return p, nil
	}
	return "", errors.WithStack(&failure.ParseError{File: header, Searched: dirs, Err: errors.New("header not found")})
}

func (r Request) checkInclude(from string, inc include) error {
	var dirs []string
	if inc.system {
		if !r.NoStandardIncludes {
			return nil
		}
		dirs = r.searchPath("")
	} else {
		dirs = r.searchPath(from)
	}
	if _, ok := find(inc.path, dirs); ok {
		return nil
	}
	perr := &failure.ParseError{File: from, Line: inc.line, Searched: dirs, Err: errors.Newf("unresolved include %s", inc.spelling())}
	return errors.WithHint(errors.WithStack(perr), "add the directory containing it to includeDirs or systemIncludeDirs")
}

type Scanner struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Scanner {
	return &Scanner{logger: logger}
}

// Parse scans every header, concurrently up to req.Parallelism, and merges
// the results into one table in configured header order.
func (s *Scanner) Parse(ctx context.Context, req Request) (*symtab.Table, error) {
	defines := compileDefines(req.Defines)
	results := make([][]*symtab.Declaration, len(req.Headers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(req.parallelism())
	for i, header := range req.Headers {
		i, header := i, header
		g.Go(func() error {
			decls, err := s.parseHeader(gctx, req, header, defines)
			if err != nil {
				return err
			}
			results[i] = decls
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tbl := symtab.New(req.TargetTriple, slices.Clone(req.Headers)...)
	for i, decls := range results {
		for _, d := range decls {
			if err := tbl.Add(d); err != nil {
				s.logger.Debug("Skipping duplicate declaration", "header", req.Headers[i], "declaration", d.Key())
			}
		}
	}
	s.logger.Info("Parsed headers", "headers", len(req.Headers), "declarations", tbl.Stats().Total)
	return tbl, nil
}

func (s *Scanner) parseHeader(ctx context.Context, req Request, header string, defines []define) ([]*symtab.Declaration, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	path, err := req.Resolve(header)
	if err != nil {
		return nil, err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(&failure.ParseError{File: path, Err: err})
	}
	src = applyDefines(src, defines)

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(cpp.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, errors.WithStack(&failure.ParseError{File: path, Err: err})
	}
	defer tree.Close()
	root := tree.RootNode()

	if bad := firstError(root); bad != nil {
		pos := bad.StartPoint()
		perr := &failure.ParseError{
			File:   path,
			Line:   int(pos.Row) + 1,
			Column: int(pos.Column) + 1,
			Err:    errors.Newf("syntax error near %q", snippet(bad.Content(src))),
		}
		if !req.Lenient {
			return nil, errors.WithHint(errors.WithStack(perr), "define export macros with 'defines' or set 'lenient' to skip unparsable regions")
		}
		s.logger.Warn("Skipping unparsable region", "header", header, "line", perr.Line, "column", perr.Column)
	}

	x := newExtractor(header, src, s.logger)
	x.scope(root, "")
	for _, inc := range x.includes {
		if err := req.checkInclude(path, inc); err != nil {
			return nil, err
		}
	}
	s.logger.Debug("Scanned header", "header", header, "path", path, "declarations", len(x.decls), "includes", len(x.includes))
	return x.decls, nil
}

// firstError returns the first ERROR or MISSING node in document order.
func firstError(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if e := firstError(n.Child(i)); e != nil {
			return e
		}
	}
	return n
}

func snippet(s string) string {
	const max = 40
	r := []rune(s)
	if len(r) > max {
		return string(r[:max]) + "..."
	}
	return s
}
