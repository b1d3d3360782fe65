package config

// Default returns the built-in configuration used when no user config file
// exists. Every discovery source is enabled.
func Default() Config {
	return Config{
		Discovery: DiscoverySettings{},
		UI:        UISettings{ColorMode: ""},
		Logging:   LoggingSettings{Level: "info"},
	}
}
