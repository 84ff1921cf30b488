package cgen

import (
	"log/slog"
	"strings"

	"github.com/Alia5/bindgen/internal/codegen/common"
	"github.com/Alia5/bindgen/internal/codegen/meta"
)

// Generate produces the C shim layout under the writer's root.
// It creates:
// - include/<lib>_shim.h (extern "C" declarations of every shim symbol)
// - src/<lib>_shim.cpp (shim definitions calling into the native library)
// - CMakeLists.txt
// - README.md
func Generate(logger *slog.Logger, w *common.Writer, md *meta.Metadata) error {
	ix := common.NewIndex(md.LibraryName, md.Table, md.Types)
	for _, s := range ix.Skipped() {
		logger.Debug("Skipping callable", "declaration", s.Declaration, "reason", s.Reason)
	}

	data := shimData{
		Metadata: md,
		Guard:    strings.ToUpper(md.LibraryName) + "_SHIM_H",
		API:      strings.ToUpper(md.LibraryName) + "_SHIM_API",
		Base:     ShimLibrary(md.LibraryName),
		Funcs:    shims(ix),
	}
	logger.Info("Using version", "version", md.Version, "major", md.Version.Major(), "minor", md.Version.Minor(), "patch", md.Version.Patch())

	if err := generateHeader(logger, w, data); err != nil {
		return err
	}
	if err := generateSource(logger, w, data); err != nil {
		return err
	}
	if err := generateCMake(logger, w, data); err != nil {
		return err
	}
	if err := common.GenerateReadme(logger, w, md, "C"); err != nil {
		return err
	}

	logger.Info("Generated C shim", "dir", w.Root(), "functions", len(data.Funcs), "skipped", len(ix.Skipped()))
	return nil
}

type shimData struct {
	*meta.Metadata
	Guard string
	API   string
	Base  string
	Funcs []shimFunc
}

// ShimLibrary is the name of the shared library the shim builds into.
func ShimLibrary(libraryName string) string {
	return libraryName + "_shim"
}
