// Package config loads the layered pyenvctl configuration: built-in defaults
// overlaid with ~/.config/pyenvctl/config.yaml when present.
package config
