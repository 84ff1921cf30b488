package meta

import (
	"github.com/Masterminds/semver/v3"

	"github.com/Alia5/bindgen/internal/codegen/symtab"
	"github.com/Alia5/bindgen/internal/codegen/typemap"
)

// Metadata holds everything an emitter needs from a finished transform stage.
// Shared between the generator orchestrator and language-specific generators.
type Metadata struct {
	LibraryName string
	// Namespace is the root target-language namespace; empty means none.
	Namespace    string
	TargetTriple string
	Headers      []string
	IncludeDirs  []string
	LibraryDirs  []string
	Libraries    []string
	Table        *symtab.Table
	Types        *typemap.Registry
	Version      *semver.Version
}
