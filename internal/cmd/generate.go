package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Alia5/bindgen/internal/codegen/driver"
)

type Generate struct {
	Profile string `arg:"" optional:"" help:"Configuration profile (defaults to the file's default)"`
}

// Run is called by Kong when the generate command is executed.
func (c *Generate) Run(logger *slog.Logger, level *slog.LevelVar, g *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	path, cfg, err := loadProfile(g, c.Profile)
	if err != nil {
		return err
	}
	logger.Info("Loaded configuration", "path", path, "library", cfg.LibraryName)

	d, err := newDriver(logger, level, cfg, driver.Hooks{})
	if err != nil {
		return err
	}
	res, err := d.Run(ctx)
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		logger.Debug("Run warning", "warning", w)
	}
	logger.Info("Bindings generated", "output", cfg.OutputDir, "files", len(res.Written), "excluded", res.Excluded, "warnings", len(res.Warnings))
	return nil
}
