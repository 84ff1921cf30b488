// Package configpaths locates bindgen configuration files.
package configpaths

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/cockroachdb/errors"
)

// EnvConfig names a configuration file when --config is not given.
const EnvConfig = "BINDGEN_CONFIG"

// BaseName is the file name, without extension, searched for by default.
const BaseName = "bindgen"

// DefaultConfigDir returns the platform-specific configuration directory for bindgen.
func DefaultConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if appdata := os.Getenv("AppData"); appdata != "" {
			return filepath.Join(appdata, "bindgen"), nil
		}
		return "", errors.New("AppData not set")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "bindgen"), nil
		}
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, ".config", "bindgen"), nil
		}
		return "", errors.New("HOME not set")
	}
}

// Ext returns the file extension used for a format.
func Ext(format string) string {
	switch format {
	case "yaml", "yml":
		return "yaml"
	case "toml":
		return "toml"
	}
	return "json"
}

// EnsureDir ensures the directory for a given file path exists.
func EnsureDir(filePath string) error {
	dir := filepath.Dir(filePath)
	return os.MkdirAll(dir, 0o755)
}

// ConfigCandidatePaths builds candidate paths for config files per format.
// If userPath is provided, it is prioritized and routed to the matching loader by extension.
func ConfigCandidatePaths(userPath string) (jsonPaths, yamlPaths, tomlPaths []string) {
	add := func(slice *[]string, p string) { *slice = append(*slice, p) }

	if userPath != "" {
		switch ext := filepath.Ext(userPath); ext {
		case ".json":
			add(&jsonPaths, userPath)
		case ".yaml", ".yml":
			add(&yamlPaths, userPath)
		case ".toml":
			add(&tomlPaths, userPath)
		default:
			add(&jsonPaths, userPath)
		}
	}

	dirs := []string{}
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, wd)
	}
	if dir, err := DefaultConfigDir(); err == nil {
		dirs = append(dirs, dir)
	}
	if runtime.GOOS != "windows" {
		dirs = append(dirs, "/etc/bindgen")
	}
	for _, dir := range dirs {
		add(&jsonPaths, filepath.Join(dir, BaseName+".json"))
		add(&yamlPaths, filepath.Join(dir, BaseName+".yaml"))
		add(&yamlPaths, filepath.Join(dir, BaseName+".yml"))
		add(&tomlPaths, filepath.Join(dir, BaseName+".toml"))
	}
	return
}

// Find returns userPath when set, otherwise the first existing candidate in
// JSON, YAML, TOML order.
func Find(userPath string) (string, error) {
	if userPath != "" {
		if _, err := os.Stat(userPath); err != nil {
			return "", errors.Wrapf(err, "configuration %s", userPath)
		}
		return userPath, nil
	}
	jsonPaths, yamlPaths, tomlPaths := ConfigCandidatePaths("")
	var searched []string
	for _, paths := range [][]string{jsonPaths, yamlPaths, tomlPaths} {
		for _, p := range paths {
			if _, err := os.Stat(p); err == nil {
				return p, nil
			}
			searched = append(searched, p)
		}
	}
	return "", errors.WithHint(
		errors.Newf("no configuration file found"),
		"create one with 'bindgen config init' or pass --config (searched: "+filepath.Join("<dir>", BaseName)+".{json,yaml,yml,toml} in "+dirList(searched)+")")
}

func dirList(paths []string) string {
	seen := map[string]bool{}
	var out string
	for _, p := range paths {
		d := filepath.Dir(p)
		if seen[d] {
			continue
		}
		seen[d] = true
		if out != "" {
			out += ", "
		}
		out += d
	}
	return out
}
