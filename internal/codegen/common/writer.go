package common

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"text/template"

	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/blake2b"
)

// ManifestName is the file, relative to the output directory, that records
// the digest of every generated file.
const ManifestName = ".bindgen-manifest.json"

type Manifest struct {
	Generator string            `json:"generator"`
	Version   string            `json:"version"`
	Files     map[string]string `json:"files"`
}

// Writer writes generated files below one output directory. Files whose
// content is unchanged since the previous run are left untouched, and files
// the previous run generated but this one did not are removed when the
// manifest is written.
type Writer struct {
	root     string
	logger   *slog.Logger
	previous map[string]string
	sums     map[string]string
	written  []string
}

func NewWriter(root string, logger *slog.Logger) *Writer {
	w := &Writer{
		root:     root,
		logger:   logger,
		previous: map[string]string{},
		sums:     map[string]string{},
	}
	data, err := os.ReadFile(filepath.Join(root, ManifestName))
	if err != nil {
		return w
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		logger.Debug("Ignoring unreadable manifest", "path", filepath.Join(root, ManifestName), "error", err)
		return w
	}
	if m.Files != nil {
		w.previous = m.Files
	}
	return w
}

func (w *Writer) Root() string { return w.root }

func digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// local reports whether rel names a path inside the root.
func local(rel string) bool {
	return filepath.IsLocal(filepath.FromSlash(rel))
}

// WriteFile writes data to rel, a slash separated path below the root.
// Paths that would leave the root are refused.
func (w *Writer) WriteFile(rel string, data []byte) error {
	if !local(rel) {
		return errors.Newf("refusing to write %q outside %s", rel, w.root)
	}
	path := filepath.Join(w.root, filepath.FromSlash(rel))
	sum := digest(data)

	if w.previous[rel] == sum {
		if existing, err := os.ReadFile(path); err == nil && digest(existing) == sum {
			w.logger.Debug("Unchanged", "path", path)
			w.record(rel, sum)
			return nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", rel)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", rel)
	}
	w.logger.Debug("Generated file", "path", path)
	w.record(rel, sum)
	return nil
}

func (w *Writer) record(rel, sum string) {
	if _, dup := w.sums[rel]; !dup {
		w.written = append(w.written, rel)
	}
	w.sums[rel] = sum
}

// Execute renders tmpl with data into rel.
func (w *Writer) Execute(rel string, tmpl *template.Template, data any) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return errors.Wrapf(err, "render %s", rel)
	}
	return w.WriteFile(rel, buf.Bytes())
}

// Written lists the files produced so far, in write order.
func (w *Writer) Written() []string {
	return slices.Clone(w.written)
}

// WriteManifest records the digests of this run and removes stale files
// listed by the previous manifest.
func (w *Writer) WriteManifest(generator, version string) error {
	var stale []string
	for rel := range w.previous {
		if !local(rel) {
			w.logger.Warn("Ignoring manifest entry outside the output directory", "path", rel)
			continue
		}
		if _, ok := w.sums[rel]; !ok {
			stale = append(stale, rel)
		}
	}
	sort.Strings(stale)
	for _, rel := range stale {
		path := filepath.Join(w.root, filepath.FromSlash(rel))
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return errors.Wrapf(err, "remove stale %s", rel)
		}
		w.logger.Info("Removed stale file", "path", path)
	}

	data, err := json.MarshalIndent(Manifest{Generator: generator, Version: version, Files: w.sums}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode manifest")
	}
	path := filepath.Join(w.root, ManifestName)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return errors.Wrapf(err, "write %s", ManifestName)
	}
	w.previous = w.sums
	return nil
}
