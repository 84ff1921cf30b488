package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"

	"github.com/Alia5/bindgen/internal/codegen/config"
	"github.com/Alia5/bindgen/internal/codegen/driver"
	"github.com/Alia5/bindgen/internal/codegen/scanner"
)

type Watch struct {
	Profile  string        `arg:"" optional:"" help:"Configuration profile (defaults to the file's default)"`
	Debounce time.Duration `help:"Quiet period before regenerating" default:"300ms"`
}

// Run is called by Kong when the watch command is executed.
func (c *Watch) Run(logger *slog.Logger, level *slog.LevelVar, g *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	path, cfg, err := loadProfile(g, c.Profile)
	if err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create file watcher")
	}
	w := &watcher{fw: fw, logger: logger, debounce: c.Debounce}
	defer func() { _ = fw.Close() }()

	w.run = func() {
		// re-read so edits to the configuration apply
		if _, next, err := loadProfile(&Globals{Config: path}, c.Profile); err != nil {
			logger.Error("Configuration invalid; keeping previous profile", "error", err)
		} else {
			cfg = next
		}
		if err := generateOnce(ctx, logger, level, cfg); err != nil {
			logger.Error("Generation failed; still watching", "error", err)
		}
		if err := w.watch(watchedFiles(logger, path, cfg)); err != nil {
			logger.Warn("Failed to update watch list", "error", err)
		}
	}

	w.run()
	logger.Info("Watching for changes", "config", path, "headers", len(cfg.Headers))
	return w.loop(ctx)
}

func generateOnce(ctx context.Context, logger *slog.Logger, level *slog.LevelVar, cfg config.Generation) error {
	d, err := newDriver(logger, level, cfg, driver.Hooks{})
	if err != nil {
		return err
	}
	res, err := d.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("Bindings generated", "output", cfg.OutputDir, "files", len(res.Written))
	return nil
}

// watchedFiles lists the configuration file and every header that resolves.
func watchedFiles(logger *slog.Logger, configPath string, cfg config.Generation) map[string]bool {
	req := scanner.Request{
		IncludeDirs:        cfg.IncludeDirs,
		SystemIncludeDirs:  cfg.SystemIncludeDirs,
		BuiltinIncludeDirs: cfg.BuiltinIncludeDirs,
		BuiltinIncludes:    !cfg.NoBuiltinIncludes,
	}
	files := map[string]bool{}
	if abs, err := filepath.Abs(configPath); err == nil {
		files[abs] = true
	}
	for _, h := range cfg.Headers {
		p, err := req.Resolve(h)
		if err != nil {
			logger.Debug("Not watching unresolved header", "header", h)
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			files[abs] = true
		}
	}
	return files
}

type watcher struct {
	fw       *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration
	run      func()
	files    map[string]bool
}

// watch replaces the watched set. Directories are watched rather than files
// since editors often replace a file instead of writing it in place.
func (w *watcher) watch(files map[string]bool) error {
	dirs := map[string]bool{}
	for f := range files {
		dirs[filepath.Dir(f)] = true
	}
	for _, existing := range w.fw.WatchList() {
		if !dirs[existing] {
			_ = w.fw.Remove(existing)
		}
	}
	var errs error
	for d := range dirs {
		errs = errors.CombineErrors(errs, w.fw.Add(d))
	}
	w.files = files
	return errs
}

func (w *watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return false
	}
	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		return false
	}
	return w.files[abs]
}

// loop calls run once per burst of relevant events, after debounce of quiet.
// It returns when ctx is done or the watcher closes.
func (w *watcher) loop(ctx context.Context) error {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("Change detected", "file", ev.Name, "op", ev.Op.String())
			timer.Reset(w.debounce)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("File watcher error", "error", err)
		case <-timer.C:
			w.run()
		}
	}
}
