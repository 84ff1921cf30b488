package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/Alia5/bindgen/internal/codegen/config"
	"github.com/Alia5/bindgen/internal/codegen/driver"
	"github.com/Alia5/bindgen/internal/codegen/failure"
	"github.com/Alia5/bindgen/internal/codegen/generator"
	"github.com/Alia5/bindgen/internal/codegen/scanner"
	"github.com/Alia5/bindgen/internal/configpaths"
)

// Globals are flags shared by every command.
type Globals struct {
	Config string `help:"Configuration file (json, yaml, yml or toml)" type:"path" env:"BINDGEN_CONFIG"`
}

type LogConfig struct {
	Level  string `help:"Log level" default:"info" enum:"trace,debug,info,warn,error" env:"BINDGEN_LOG_LEVEL"`
	File   string `help:"Also write logs to this file" env:"BINDGEN_LOG_FILE"`
	Format string `help:"Console log format" default:"auto" enum:"auto,text,json" env:"BINDGEN_LOG_FORMAT"`
}

// CLI is the root command.
type CLI struct {
	Globals
	Log LogConfig `embed:"" prefix:"log."`

	Generate  Generate      `cmd:"" default:"withargs" help:"Generate bindings for a configuration profile"`
	Dump      Dump          `cmd:"" help:"Print the symbol table of a profile instead of generating"`
	Watch     Watch         `cmd:"" help:"Regenerate whenever a header or the configuration changes"`
	ConfigCmd ConfigCommand `cmd:"" name:"config" help:"Configuration helpers"`
	Version   VersionCmd    `cmd:"" help:"Print the bindgen version"`
}

// loadProfile reads the configuration file and selects a profile.
func loadProfile(g *Globals, profile string) (string, config.Generation, error) {
	path, err := configpaths.Find(g.Config)
	if err != nil {
		return "", config.Generation{}, failure.Configuration(err)
	}
	f, err := config.Load(path)
	if err != nil {
		return "", config.Generation{}, err
	}
	cfg, err := f.Select(profile)
	if err != nil {
		return "", config.Generation{}, err
	}
	return path, cfg, nil
}

// newDriver wires the tree-sitter scanner and the registered generators.
// A verbose profile lowers the log level to debug.
func newDriver(logger *slog.Logger, level *slog.LevelVar, cfg config.Generation, hooks driver.Hooks) (*driver.Driver, error) {
	if cfg.Verbose && level != nil && level.Level() > slog.LevelDebug {
		level.Set(slog.LevelDebug)
	}
	return driver.New(cfg, driver.Options{
		Parser:  scanner.New(logger),
		Emitter: generator.New(logger),
		Hooks:   hooks,
		Logger:  logger,
	})
}

// Report prints a failed run as "<Kind>: <message>" followed by any hints.
func Report(w io.Writer, err error) {
	if err == nil {
		return
	}
	_, _ = fmt.Fprintf(w, "%s: %v\n", failure.KindOf(err), err)
	var ce *failure.ConfigurationError
	if errors.As(err, &ce) && len(ce.Problems()) > 1 {
		for _, p := range ce.Problems() {
			_, _ = fmt.Fprintf(w, "  - %s\n", p)
		}
	}
	for _, hint := range errors.GetAllHints(err) {
		_, _ = fmt.Fprintf(w, "hint: %s\n", hint)
	}
}

// Exit reports err on stderr and exits non-zero, or returns when err is nil.
func Exit(err error) {
	if err == nil {
		return
	}
	Report(os.Stderr, err)
	os.Exit(1)
}
