package cmd

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"

	"github.com/cockroachdb/errors"
	yaml "gopkg.in/yaml.v3"

	"github.com/Alia5/bindgen/internal/codegen/driver"
	"github.com/Alia5/bindgen/internal/codegen/symtab"
)

type Dump struct {
	Profile string `arg:"" optional:"" help:"Configuration profile (defaults to the file's default)"`
	Format  string `help:"Output format" enum:"yaml,json" default:"yaml"`
	Stage   string `help:"Stop after this stage" enum:"parsed,preprocessed,transformed" default:"transformed"`
	Output  string `short:"o" help:"Write the table to this file instead of stdout" type:"path"`

	out io.Writer `kong:"-"`
}

var dumpStages = map[string]driver.State{
	"parsed":       driver.StateParsed,
	"preprocessed": driver.StatePreprocessed,
	"transformed":  driver.StateTransformed,
}

// Run is called by Kong when the dump command is executed.
func (c *Dump) Run(logger *slog.Logger, level *slog.LevelVar, g *Globals) error {
	_, cfg, err := loadProfile(g, c.Profile)
	if err != nil {
		return err
	}
	d, err := newDriver(logger, level, cfg, driver.Hooks{})
	if err != nil {
		return err
	}
	if c.out == nil && c.Output == "" && level != nil && level.Level() < slog.LevelError {
		// informational logs share stdout with the table
		level.Set(slog.LevelError)
	}
	stage, ok := dumpStages[c.Stage]
	if !ok {
		stage = driver.StateTransformed
	}
	res, err := d.RunUntil(context.Background(), stage)
	if err != nil {
		return err
	}
	out := c.out
	if out == nil && c.Output != "" {
		f, err := os.Create(c.Output)
		if err != nil {
			return errors.Wrapf(err, "create %s", c.Output)
		}
		defer func() { _ = f.Close() }()
		out = f
	}
	if out == nil {
		out = os.Stdout
	}
	return writeTable(out, c.Format, res.Table)
}

func writeTable(w io.Writer, format string, t *symtab.Table) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(t), "encode table")
	default:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(t); err != nil {
			return errors.Wrap(err, "encode table")
		}
		return errors.Wrap(enc.Close(), "encode table")
	}
}
