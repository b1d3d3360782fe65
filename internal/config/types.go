package config

// Config is the top-level configuration structure for pyenvctl.
type Config struct {
	Discovery DiscoverySettings `yaml:"discovery"`
	UI        UISettings        `yaml:"ui"`
	Logging   LoggingSettings   `yaml:"logging"`
}

// DiscoverySettings controls where environments are looked for. All sources
// are enabled by default; the Disable* switches opt out of individual ones.
type DiscoverySettings struct {
	// ExtraVenvDirs are additional directories whose immediate children are
	// checked for virtualenv layouts, on top of the built-in locations.
	ExtraVenvDirs []string `yaml:"extraVenvDirs,omitempty"`

	// DisableConda skips conda environment detection (`conda env list`).
	DisableConda bool `yaml:"disableConda,omitempty"`

	// DisablePyenv skips ~/.pyenv/versions scanning.
	DisablePyenv bool `yaml:"disablePyenv,omitempty"`

	// DisableCwdScan skips detection of virtualenvs in the working directory.
	DisableCwdScan bool `yaml:"disableCwdScan,omitempty"`

	// PythonCommand overrides the interpreter used for `python -m venv` and
	// system interpreter detection. Empty means "python" with a "python3"
	// fallback.
	PythonCommand string `yaml:"pythonCommand,omitempty"`
}

// UISettings holds presentation preferences.
type UISettings struct {
	ColorMode string `yaml:"colorMode,omitempty"` // "dark", "light" or "" for auto
}

// LoggingSettings holds the log filter level for both CLI and TUI mode.
type LoggingSettings struct {
	Level string `yaml:"level,omitempty"` // debug, info, warn, error
}
