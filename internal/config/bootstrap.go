package config

import (
	"os"

	"leadscout/internal/errors"
)

// EnsureUserConfig writes the default config to path unless a file is
// already there. It reports whether it created one.
func EnsureUserConfig(path string) (created bool, err error) {
	_, err = os.Stat(path)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return false, errors.Wrapf(err, "stat %s", path)
	}
	if err := SaveAtomic(path, Default()); err != nil {
		return false, err
	}
	return true, nil
}

// LoadOrDefault reads path when it exists and falls back to Default.
func LoadOrDefault(path string) (Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}
