package generator

import (
	"context"
	"log/slog"
	"os"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/Alia5/bindgen/internal/codegen/common"
	"github.com/Alia5/bindgen/internal/codegen/failure"
	cgen "github.com/Alia5/bindgen/internal/codegen/generator/c"
	"github.com/Alia5/bindgen/internal/codegen/generator/csharp"
	"github.com/Alia5/bindgen/internal/codegen/generator/symbols"
	"github.com/Alia5/bindgen/internal/codegen/meta"
)

type LanguageGenerator func(logger *slog.Logger, w *common.Writer, md *meta.Metadata) error

var generators = map[string]LanguageGenerator{
	"c":       cgen.Generate,
	"csharp":  csharp.Generate,
	"symbols": symbols.Generate,
}

// Kinds lists the registered generator kinds, sorted.
func Kinds() []string {
	kinds := make([]string, 0, len(generators))
	for k := range generators {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

type Generator struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Generator {
	return &Generator{logger: logger}
}

func (g *Generator) Kinds() []string { return Kinds() }

// Emit writes the bindings of kind into outputDir and returns the files
// written, relative to outputDir. Failures are EmitErrors listing the files
// already written; nothing is rolled back.
func (g *Generator) Emit(ctx context.Context, md *meta.Metadata, outputDir, kind string) ([]string, error) {
	gen, ok := generators[kind]
	if !ok {
		return nil, failure.Configurationf("unsupported generator kind '%s' (supported: %v)", kind, Kinds())
	}
	if err := ctx.Err(); err != nil {
		return nil, failure.Emit(errors.WithStack(err), nil)
	}
	if md.Version == nil {
		v, err := common.GetVersion()
		if err != nil {
			return nil, failure.Emit(err, nil)
		}
		md.Version = v
	}

	g.logger.Info("Generating bindings", "kind", kind, "library", md.LibraryName)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, failure.Emit(errors.Wrapf(err, "failed to create %s output directory", kind), nil)
	}

	w := common.NewWriter(outputDir, g.logger)
	if err := gen(g.logger, w, md); err != nil {
		return w.Written(), failure.Emit(errors.Wrapf(err, "generate %s bindings", kind), w.Written())
	}
	if err := w.WriteManifest(kind, md.Version.String()); err != nil {
		return w.Written(), failure.Emit(err, w.Written())
	}

	g.logger.Info("Binding generation complete", "kind", kind, "output", outputDir, "files", len(w.Written()))
	return w.Written(), nil
}
