// Package dirs resolves the per-user directories mediakit reads and writes:
// the config dir (config.yaml), the data dir (metrics.db, optimized images),
// and the cache dir that holds pipeline temp files.
package dirs

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"

	"mediakit/internal/util"
)

const appName = "mediakit"

// base describes where one kind of directory lives on each platform.
type base struct {
	xdgEnv   string   // linux override, e.g. XDG_DATA_HOME
	linux    []string // relative to $HOME when xdgEnv is unset
	darwin   []string // relative to $HOME
	fallback func() (string, error)
}

var (
	configBase = base{
		xdgEnv:   "XDG_CONFIG_HOME",
		linux:    []string{".config"},
		darwin:   []string{"Library", "Application Support"},
		fallback: os.UserConfigDir,
	}
	dataBase = base{
		xdgEnv:   "XDG_DATA_HOME",
		linux:    []string{".local", "share"},
		darwin:   []string{"Library", "Application Support"},
		fallback: os.UserConfigDir,
	}
	cacheBase = base{
		xdgEnv:   "XDG_CACHE_HOME",
		linux:    []string{".cache"},
		darwin:   []string{"Library", "Caches"},
		fallback: os.UserCacheDir,
	}
)

func (b base) resolve(goos string) (string, error) {
	switch goos {
	case "linux":
		if xdg := os.Getenv(b.xdgEnv); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		return fromHome(b.linux)
	case "darwin":
		return fromHome(b.darwin)
	default:
		root, err := b.fallback()
		if err != nil {
			return "", err
		}
		return filepath.Join(root, appName), nil
	}
}

func fromHome(rel []string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	parts := append([]string{home}, rel...)
	return filepath.Join(append(parts, appName)...), nil
}

// ConfigDir is searched for config.{yaml,toml,json}.
// Linux: $XDG_CONFIG_HOME/mediakit or ~/.config/mediakit.
func ConfigDir() (string, error) { return configBase.resolve(runtime.GOOS) }

// DataDir is the default data_dir.
// Linux: $XDG_DATA_HOME/mediakit or ~/.local/share/mediakit.
func DataDir() (string, error) { return dataBase.resolve(runtime.GOOS) }

// TempBaseDir is the default temp_dir for pipeline temp files.
// Linux: $XDG_CACHE_HOME/mediakit/temp or ~/.cache/mediakit/temp.
func TempBaseDir() (string, error) {
	c, err := cacheBase.resolve(runtime.GOOS)
	if err != nil {
		return "", err
	}
	return filepath.Join(c, "temp"), nil
}

// EnsureAll creates the config, data and temp directories. Directories whose
// location cannot be resolved are skipped.
func EnsureAll() error {
	var errs []error
	for _, resolve := range []func() (string, error){ConfigDir, DataDir, TempBaseDir} {
		p, err := resolve()
		if err != nil {
			continue
		}
		if err := util.EnsureDir(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
