package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir

const (
	userConfigDir  = ".config/pyenvctl"
	configFileName = "config.yaml"
)

// Load returns the effective configuration: built-in defaults overlaid with
// the user config file when one exists. A missing file is not an error; a
// malformed one is.
func Load() (Config, error) {
	cfg := Default()

	path, err := userConfigPath()
	if err != nil {
		// User config is optional; fall back to defaults.
		fmt.Fprintf(os.Stderr, "Warning: could not determine user config path: %v\n", err)
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("error reading config from %s: %w", path, err)
	}

	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return Config{}, fmt.Errorf("error parsing config %s: %w", path, err)
	}
	return merge(cfg, overlay), nil
}

var userConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

// merge overlays the values a user actually set onto the defaults. The
// Disable* switches and ExtraVenvDirs are additive over the defaults, so
// their overlay values can be taken as-is.
func merge(base, overlay Config) Config {
	out := base
	out.Discovery.DisableConda = overlay.Discovery.DisableConda
	out.Discovery.DisablePyenv = overlay.Discovery.DisablePyenv
	out.Discovery.DisableCwdScan = overlay.Discovery.DisableCwdScan
	if len(overlay.Discovery.ExtraVenvDirs) > 0 {
		out.Discovery.ExtraVenvDirs = overlay.Discovery.ExtraVenvDirs
	}
	if overlay.Discovery.PythonCommand != "" {
		out.Discovery.PythonCommand = overlay.Discovery.PythonCommand
	}
	if overlay.UI.ColorMode != "" {
		out.UI.ColorMode = overlay.UI.ColorMode
	}
	if overlay.Logging.Level != "" {
		out.Logging.Level = overlay.Logging.Level
	}
	return out
}
