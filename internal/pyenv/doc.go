// Package pyenv defines the shared domain model for Python environments and
// packages: environment kinds and lifecycle states, package entries, and the
// operation vocabulary used by the action executor and the registry.
package pyenv
