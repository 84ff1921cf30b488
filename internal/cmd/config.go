package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"

	"github.com/Alia5/bindgen/internal/codegen/common"
	"github.com/Alia5/bindgen/internal/codegen/config"
	"github.com/Alia5/bindgen/internal/configpaths"
)

// ConfigCommand groups config-related subcommands.
type ConfigCommand struct {
	Init     ConfigInit     `cmd:"" help:"Generate a configuration template"`
	Profiles ConfigProfiles `cmd:"" help:"List the profiles of the configuration file"`
}

// ConfigInit scaffolds a configuration file with a single profile.
type ConfigInit struct {
	Library string `arg:"" optional:"" help:"Library the profile generates bindings for" default:"MyLib"`
	Format  string `help:"Output format" enum:"json,yaml,toml" default:"yaml"`
	Output  string `help:"Destination file path (defaults to ./bindgen.<format>)"`
	Triple  string `help:"Target triple" default:"x86_64-pc-linux-gnu"`
	Kind    string `help:"Generator kind" default:"csharp"`
	Force   bool   `help:"Overwrite if the file already exists"`
}

func (c *ConfigInit) template() config.File {
	return config.File{
		Default: "default",
		Configurations: map[string]config.Generation{
			"default": {
				LibraryName:   c.Library,
				OutputDir:     "generated",
				GeneratorKind: c.Kind,
				IncludeDirs:   []string{"include"},
				Headers:       []string{c.Library + ".h"},
				TargetTriple:  c.Triple,
				// builtin include dirs are toolchain specific
				NoBuiltinIncludes: true,
				Exclude: config.Exclusions{
					Patterns: []string{"*::detail::*"},
				},
			},
		},
	}
}

// Run writes the template, refusing to overwrite unless forced.
func (c *ConfigInit) Run() error {
	format := normalizeFormat(c.Format)
	if format == "" {
		return errors.Newf("unsupported format: %s", c.Format)
	}
	if err := config.ValidateTriple(c.Triple); err != nil {
		return err
	}

	dest := c.Output
	if dest == "" {
		dest = configpaths.BaseName + "." + configpaths.Ext(format)
	}
	if !c.Force {
		if _, err := os.Stat(dest); err == nil {
			return errors.WithHint(errors.Newf("%s already exists", dest), "use --force to overwrite")
		}
	}
	if err := configpaths.EnsureDir(dest); err != nil {
		return errors.Wrapf(err, "create directory for %s", dest)
	}

	data, err := encodeFile(format, c.template())
	if err != nil {
		return err
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", dest)
	}
	return nil
}

func encodeFile(format string, f config.File) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch format {
	case "json":
		data, err = json.MarshalIndent(f, "", "  ")
		data = append(data, '\n')
	case "yaml":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err = enc.Encode(f); err == nil {
			err = enc.Close()
		}
		data = buf.Bytes()
	case "toml":
		data, err = toml.Marshal(f)
	}
	return data, errors.Wrapf(err, "encode %s template", format)
}

func normalizeFormat(f string) string {
	switch strings.ToLower(f) {
	case "json":
		return "json"
	case "yaml", "yml":
		return "yaml"
	case "toml":
		return "toml"
	default:
		return ""
	}
}

// ConfigProfiles prints every profile of the configuration file, marking the default.
type ConfigProfiles struct {
	out io.Writer `kong:"-"`
}

func (c *ConfigProfiles) Run(g *Globals) error {
	path, err := configpaths.Find(g.Config)
	if err != nil {
		return err
	}
	f, err := config.Load(path)
	if err != nil {
		return err
	}
	out := c.out
	if out == nil {
		out = os.Stdout
	}
	for _, name := range f.Profiles() {
		p := f.Configurations[name]
		mark := " "
		if name == f.Default {
			mark = "*"
		}
		kind := p.GeneratorKind
		if kind == "" {
			kind = config.DefaultGeneratorKind
		}
		_, _ = fmt.Fprintf(out, "%s %s\t%s\t%s\t%d headers\n", mark, name, kind, p.TargetTriple, len(p.Headers))
	}
	return nil
}

type VersionCmd struct {
	out io.Writer `kong:"-"`
}

func (c *VersionCmd) Run() error {
	v, err := common.GetVersion()
	if err != nil {
		return err
	}
	out := c.out
	if out == nil {
		out = os.Stdout
	}
	_, err = fmt.Fprintf(out, "bindgen %s\n", v)
	return errors.WithStack(err)
}
