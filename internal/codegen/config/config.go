// Package config loads and validates generation profiles.
//
// A configuration file holds any number of named profiles, one per SDK or
// machine, and names the profile used when none is selected. Profiles are
// plain values: once validated they are never mutated.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/kballard/go-shellquote"
	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"

	"github.com/Alia5/bindgen/internal/codegen/exclude"
	"github.com/Alia5/bindgen/internal/codegen/failure"
	"github.com/Alia5/bindgen/internal/codegen/passes"
	"github.com/Alia5/bindgen/internal/codegen/typemap"
)

const DefaultGeneratorKind = "csharp"

// File is the on-disk configuration.
type File struct {
	Default        string                `yaml:"default,omitempty" json:"default,omitempty" toml:"default,omitempty"`
	Configurations map[string]Generation `yaml:"configurations" json:"configurations" toml:"configurations"`
}

type Exclusions struct {
	Headers  []string `yaml:"headers,omitempty" json:"headers,omitempty" toml:"headers,omitempty"`
	Names    []string `yaml:"names,omitempty" json:"names,omitempty" toml:"names,omitempty"`
	Patterns []string `yaml:"patterns,omitempty" json:"patterns,omitempty" toml:"patterns,omitempty"`
}

type TypeMapping struct {
	Native   string `yaml:"native" json:"native" toml:"native"`
	Target   string `yaml:"target" json:"target" toml:"target"`
	Strategy string `yaml:"strategy" json:"strategy" toml:"strategy"`
	Marshal  string `yaml:"marshal,omitempty" json:"marshal,omitempty" toml:"marshal,omitempty"`
}

// Generation is one generation profile.
type Generation struct {
	LibraryName              string   `yaml:"libraryName" json:"libraryName" toml:"libraryName"`
	OutputDir                string   `yaml:"outputDir" json:"outputDir" toml:"outputDir"`
	GeneratorKind            string   `yaml:"generatorKind,omitempty" json:"generatorKind,omitempty" toml:"generatorKind,omitempty"`
	IncludeDirs              []string `yaml:"includeDirs,omitempty" json:"includeDirs,omitempty" toml:"includeDirs,omitempty"`
	SystemIncludeDirs        []string `yaml:"systemIncludeDirs,omitempty" json:"systemIncludeDirs,omitempty" toml:"systemIncludeDirs,omitempty"`
	BuiltinIncludeDirs       []string `yaml:"builtinIncludeDirs,omitempty" json:"builtinIncludeDirs,omitempty" toml:"builtinIncludeDirs,omitempty"`
	LibraryDirs              []string `yaml:"libraryDirs,omitempty" json:"libraryDirs,omitempty" toml:"libraryDirs,omitempty"`
	Libraries                []string `yaml:"libraries,omitempty" json:"libraries,omitempty" toml:"libraries,omitempty"`
	Headers                  []string `yaml:"headers" json:"headers" toml:"headers"`
	GenerateLibraryNamespace bool     `yaml:"generateLibraryNamespace,omitempty" json:"generateLibraryNamespace,omitempty" toml:"generateLibraryNamespace,omitempty"`
	Namespace                string   `yaml:"namespace,omitempty" json:"namespace,omitempty" toml:"namespace,omitempty"`
	TargetTriple             string   `yaml:"targetTriple" json:"targetTriple" toml:"targetTriple"`
	NoStandardIncludes       bool     `yaml:"noStandardIncludes,omitempty" json:"noStandardIncludes,omitempty" toml:"noStandardIncludes,omitempty"`
	NoBuiltinIncludes        bool     `yaml:"noBuiltinIncludes,omitempty" json:"noBuiltinIncludes,omitempty" toml:"noBuiltinIncludes,omitempty"`
	Verbose                  bool     `yaml:"verbose,omitempty" json:"verbose,omitempty" toml:"verbose,omitempty"`
	Defines                  []string `yaml:"defines,omitempty" json:"defines,omitempty" toml:"defines,omitempty"`
	CompilerArgs             string   `yaml:"compilerArgs,omitempty" json:"compilerArgs,omitempty" toml:"compilerArgs,omitempty"`
	Lenient                  bool     `yaml:"lenient,omitempty" json:"lenient,omitempty" toml:"lenient,omitempty"`
	Parallelism              int      `yaml:"parallelism,omitempty" json:"parallelism,omitempty" toml:"parallelism,omitempty"`

	Exclude      Exclusions    `yaml:"exclude,omitempty" json:"exclude,omitempty" toml:"exclude,omitempty"`
	Keep         []string      `yaml:"keep,omitempty" json:"keep,omitempty" toml:"keep,omitempty"`
	TypeMappings []TypeMapping `yaml:"typeMappings,omitempty" json:"typeMappings,omitempty" toml:"typeMappings,omitempty"`
	Passes       []string      `yaml:"passes,omitempty" json:"passes,omitempty" toml:"passes,omitempty"`
	HolderSuffix string        `yaml:"holderSuffix,omitempty" json:"holderSuffix,omitempty" toml:"holderSuffix,omitempty"`
	GlobalHolder string        `yaml:"globalHolder,omitempty" json:"globalHolder,omitempty" toml:"globalHolder,omitempty"`
}

// Load reads a configuration file, picking the decoder by extension.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, failure.Configuration(errors.Wrapf(err, "read configuration %s", path))
	}
	var f File
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	case ".toml":
		err = toml.Unmarshal(data, &f)
	case ".json", "":
		err = json.Unmarshal(data, &f)
	default:
		return nil, failure.Configurationf("unsupported configuration format %q (expected .json, .yaml, .yml or .toml)", ext)
	}
	if err != nil {
		return nil, failure.Configuration(errors.Wrapf(err, "decode configuration %s", path))
	}
	return &f, nil
}

// Profiles lists the profile names in sorted order.
func (f *File) Profiles() []string {
	names := make([]string, 0, len(f.Configurations))
	for name := range f.Configurations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select returns the named profile. An empty name selects the file default,
// or the only profile when the file has just one.
func (f *File) Select(name string) (Generation, error) {
	if name == "" {
		name = f.Default
	}
	if name == "" {
		if len(f.Configurations) != 1 {
			return Generation{}, errors.WithHint(
				failure.Configurationf("no configuration selected and no default set (available: %v)", f.Profiles()),
				"pass a profile name or set 'default' in the configuration file")
		}
		name = f.Profiles()[0]
	}
	g, ok := f.Configurations[name]
	if !ok {
		return Generation{}, failure.Configurationf("unknown configuration %q (available: %v)", name, f.Profiles())
	}
	return g.Clone(), nil
}

// Clone copies every slice so the result shares nothing with g.
func (g Generation) Clone() Generation {
	c := g
	c.IncludeDirs = slices.Clone(g.IncludeDirs)
	c.SystemIncludeDirs = slices.Clone(g.SystemIncludeDirs)
	c.BuiltinIncludeDirs = slices.Clone(g.BuiltinIncludeDirs)
	c.LibraryDirs = slices.Clone(g.LibraryDirs)
	c.Libraries = slices.Clone(g.Libraries)
	c.Headers = slices.Clone(g.Headers)
	c.Defines = slices.Clone(g.Defines)
	c.Exclude = Exclusions{
		Headers:  slices.Clone(g.Exclude.Headers),
		Names:    slices.Clone(g.Exclude.Names),
		Patterns: slices.Clone(g.Exclude.Patterns),
	}
	c.Keep = slices.Clone(g.Keep)
	c.TypeMappings = slices.Clone(g.TypeMappings)
	c.Passes = slices.Clone(g.Passes)
	return c
}

// Normalize applies defaults and folds CompilerArgs into defines and include
// directories. It returns a new value.
func (g Generation) Normalize() (Generation, error) {
	n := g.Clone()
	if n.GeneratorKind == "" {
		n.GeneratorKind = DefaultGeneratorKind
	}
	if n.Passes == nil {
		n.Passes = passes.DefaultNames()
	}
	if n.Namespace == "" && n.GenerateLibraryNamespace {
		n.Namespace = n.LibraryName
	}
	if n.CompilerArgs == "" {
		return n, nil
	}

	args, err := shellquote.Split(n.CompilerArgs)
	if err != nil {
		return n, failure.Configuration(errors.Wrapf(err, "compilerArgs %q", n.CompilerArgs))
	}
	var problems []error
	for i := 0; i < len(args); i++ {
		a := args[i]
		value := func(flag string) (string, bool) {
			if v := strings.TrimPrefix(a, flag); v != "" {
				return v, true
			}
			if i+1 < len(args) {
				i++
				return args[i], true
			}
			problems = append(problems, errors.Newf("compilerArgs: %s expects a value", flag))
			return "", false
		}
		switch {
		case strings.HasPrefix(a, "-isystem"):
			if v, ok := value("-isystem"); ok {
				n.SystemIncludeDirs = append(n.SystemIncludeDirs, v)
			}
		case strings.HasPrefix(a, "-I"):
			if v, ok := value("-I"); ok {
				n.IncludeDirs = append(n.IncludeDirs, v)
			}
		case strings.HasPrefix(a, "-D"):
			if v, ok := value("-D"); ok {
				n.Defines = append(n.Defines, v)
			}
		default:
			problems = append(problems, errors.Newf("compilerArgs: unsupported argument %q (supported: -D, -I, -isystem)", a))
		}
	}
	return n, failure.Configuration(problems...)
}

var (
	identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)
	defineRe     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(=.*)?$`)
)

// Validate checks every field and reports all problems at once.
func (g Generation) Validate(generatorKinds []string) error {
	var problems []error
	add := func(format string, args ...any) {
		problems = append(problems, errors.Newf(format, args...))
	}

	switch {
	case g.LibraryName == "":
		add("libraryName is required")
	case !identifierRe.MatchString(g.LibraryName):
		add("libraryName %q is not a valid identifier", g.LibraryName)
	}
	if g.OutputDir == "" {
		add("outputDir is required")
	}
	if !slices.Contains(generatorKinds, g.GeneratorKind) {
		add("unknown generatorKind %q (supported: %v)", g.GeneratorKind, generatorKinds)
	}
	if len(g.Headers) == 0 {
		add("headers must list at least one header")
	}
	for i, h := range g.Headers {
		if strings.TrimSpace(h) == "" {
			add("headers[%d] is empty", i)
		}
	}
	if err := ValidateTriple(g.TargetTriple); err != nil {
		problems = append(problems, err)
	}
	if !g.NoBuiltinIncludes && len(g.BuiltinIncludeDirs) == 0 {
		add("builtinIncludeDirs is required unless noBuiltinIncludes is set")
	}
	for field, dirs := range map[string][]string{
		"includeDirs":        g.IncludeDirs,
		"systemIncludeDirs":  g.SystemIncludeDirs,
		"builtinIncludeDirs": g.BuiltinIncludeDirs,
		"libraryDirs":        g.LibraryDirs,
	} {
		for i, d := range dirs {
			if strings.TrimSpace(d) == "" {
				add("%s[%d] is empty", field, i)
			}
		}
	}
	for _, d := range g.Defines {
		if !defineRe.MatchString(d) {
			add("define %q must look like NAME or NAME=VALUE", d)
		}
	}
	if g.Parallelism < 0 {
		add("parallelism must not be negative")
	}

	rules, keep := g.Rules()
	for _, r := range append(rules, keep...) {
		if err := r.Validate(); err != nil {
			problems = append(problems, err)
		}
	}

	for i, tm := range g.TypeMappings {
		if tm.Native == "" {
			add("typeMappings[%d] has an empty native name", i)
			continue
		}
		if err := tm.Mapping().Validate(); err != nil {
			problems = append(problems, errors.Wrapf(err, "typeMappings[%d] (%s)", i, tm.Native))
		}
	}

	if _, err := passes.Build(g.Passes, g.PassOptions()); err != nil {
		problems = append(problems, err)
	}

	sortProblems(problems)
	return failure.Configuration(problems...)
}

// sortProblems keeps map-driven checks in a stable order.
func sortProblems(problems []error) {
	sort.SliceStable(problems, func(i, j int) bool {
		return problems[i].Error() < problems[j].Error()
	})
}

// ValidateTriple requires an explicit arch-vendor-os[-env] style triple.
// Nothing is guessed from the host.
func ValidateTriple(triple string) error {
	if triple == "" {
		return errors.WithHint(errors.New("targetTriple is required"), "for example i686-pc-linux-gnu or armv7l-unknown-linux-gnueabi")
	}
	parts := strings.Split(triple, "-")
	if len(parts) < 2 || len(parts) > 4 {
		return errors.Newf("targetTriple %q must have 2 to 4 '-' separated parts", triple)
	}
	for _, p := range parts {
		if p == "" {
			return errors.Newf("targetTriple %q has an empty part", triple)
		}
	}
	return nil
}

// Rules converts the exclusion settings into exclusion and keep rules.
func (g Generation) Rules() (rules, keep []exclude.Rule) {
	for _, h := range g.Exclude.Headers {
		rules = append(rules, exclude.Header(h))
	}
	for _, n := range g.Exclude.Names {
		rules = append(rules, exclude.Name(n))
	}
	for _, p := range g.Exclude.Patterns {
		rules = append(rules, exclude.Pattern(p))
	}
	for _, n := range g.Keep {
		keep = append(keep, exclude.Name(n))
	}
	return rules, keep
}

func (tm TypeMapping) Mapping() typemap.Mapping {
	return typemap.Mapping{Target: tm.Target, Strategy: typemap.Strategy(tm.Strategy), Marshal: tm.Marshal}
}

func (g Generation) PassOptions() passes.Options {
	return passes.Options{HolderSuffix: g.HolderSuffix, GlobalHolder: g.GlobalHolder}
}
