package pyenv

// EnvKind identifies how an environment is managed. It is a closed set: the
// action provider switches on it to pick command syntax, so adding a kind
// means adding a provider branch.
type EnvKind int

const (
	KindSystem EnvKind = iota
	KindVenv
	KindPyenv
	KindConda
	KindOther
)

// String provides a human-readable representation of the EnvKind.
func (k EnvKind) String() string {
	switch k {
	case KindSystem:
		return "system"
	case KindVenv:
		return "venv"
	case KindPyenv:
		return "pyenv"
	case KindConda:
		return "conda"
	default:
		return "other"
	}
}

// EnvState is the lifecycle state of an environment inside the registry.
type EnvState int

const (
	StateDiscovered EnvState = iota
	StateProbing
	StateReady
	StateDeleting
	StateGone
)

// String provides a human-readable representation of the EnvState.
func (s EnvState) String() string {
	switch s {
	case StateDiscovered:
		return "Discovered"
	case StateProbing:
		return "Probing"
	case StateReady:
		return "Ready"
	case StateDeleting:
		return "Deleting"
	case StateGone:
		return "Gone"
	default:
		return "Unknown"
	}
}

// PackageScope distinguishes packages inside a specific environment from
// globally installed ones.
type PackageScope int

const (
	ScopeEnv PackageScope = iota
	ScopeGlobal
)

// Package is one installed distribution. Identity within a package list is
// the name; the owning environment (or the global marker) scopes it.
type Package struct {
	Name    string
	Version string
	Summary string
	Scope   PackageScope
	Pending bool
}

// Environment is the canonical in-memory representation of one discovered or
// created environment. Identity is the canonical filesystem Path.
type Environment struct {
	Path          string
	Name          string
	Kind          EnvKind
	PythonVersion string
	State         EnvState

	// Packages is populated lazily by a successful ListPackages operation
	// and replaced wholesale on each refresh.
	Packages       []Package
	PackagesLoaded bool

	// LastError holds the most recent operation failure for display. It is
	// decoration only and never blocks further operations.
	LastError string
}

// DisplayName returns the name shown in lists, falling back to the path base
// when discovery produced no explicit name.
func (e *Environment) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.Path
}

// Candidate is a raw discovery result before it is merged into the registry.
type Candidate struct {
	Path        string
	Name        string
	Kind        EnvKind
	VersionHint string
}

// OpKind enumerates the asynchronous external actions the executor runs.
type OpKind int

const (
	OpCreateEnv OpKind = iota
	OpDeleteEnv
	OpListPackages
	OpInstallPackage
	OpRemovePackage
)

// String provides a human-readable representation of the OpKind.
func (k OpKind) String() string {
	switch k {
	case OpCreateEnv:
		return "CreateEnv"
	case OpDeleteEnv:
		return "DeleteEnv"
	case OpListPackages:
		return "ListPackages"
	case OpInstallPackage:
		return "InstallPackage"
	case OpRemovePackage:
		return "RemovePackage"
	default:
		return "Unknown"
	}
}

// OpStatus is the terminal (or running) status of one operation.
type OpStatus int

const (
	StatusRunning OpStatus = iota
	StatusSucceeded
	StatusFailed
	StatusCancelled
)

// String provides a human-readable representation of the OpStatus.
func (s OpStatus) String() string {
	switch s {
	case StatusRunning:
		return "Running"
	case StatusSucceeded:
		return "Succeeded"
	case StatusFailed:
		return "Failed"
	case StatusCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Target references the entity an operation acts on. EnvPath is empty for
// global-scope package operations; Package is empty for environment-level
// operations. For CreateEnv, EnvPath already names the directory the new
// environment will live in.
type Target struct {
	EnvPath string
	Package string
}

// Global reports whether the target addresses the global package scope.
func (t Target) Global() bool {
	return t.EnvPath == ""
}
