// Package actions turns logical operations (create/delete environment,
// list/install/remove package) into executable command specs and parses their
// raw output. Command syntax is selected per environment kind, so the
// executor stays free of any pip/venv/conda knowledge.
package actions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"pyenvctl/internal/discovery"
	"pyenvctl/internal/pyenv"
)

// ExecSpec describes one executable unit of work. When RemovePath is set the
// operation is an in-process recursive delete rather than a spawned process
// (venv deletion is plain directory removal, same as the managers themselves
// perform).
type ExecSpec struct {
	Argv       []string
	Dir        string
	RemovePath string
}

// Result is the parsed output of a completed operation. Only the fields
// relevant to the operation kind are populated.
type Result struct {
	Packages []pyenv.Package
	Env      *pyenv.Environment
}

// Provider builds specs and parses outputs. Implementations must be safe for
// use from multiple operation goroutines: Parse is pure and Build touches the
// filesystem read-mostly.
type Provider interface {
	Build(kind pyenv.OpKind, target pyenv.Target) (ExecSpec, error)
	Parse(kind pyenv.OpKind, target pyenv.Target, raw []byte) (Result, error)
}

// KindResolver reports the kind of a tracked environment. The empty path
// (global scope) never reaches it.
type KindResolver func(envPath string) (pyenv.EnvKind, bool)

// PipProvider is the production Provider covering pip, venv and conda
// tooling.
type PipProvider struct {
	kindOf  KindResolver
	python  string
	homeDir func() (string, error)
}

// NewPipProvider constructs a provider. python is the base interpreter
// command used for global pip and `python -m venv`; empty selects python3.
func NewPipProvider(kindOf KindResolver, python string) *PipProvider {
	if python == "" {
		python = "python3"
	}
	return &PipProvider{kindOf: kindOf, python: python, homeDir: os.UserHomeDir}
}

// VirtualenvsDirName is where created environments are placed, relative to
// the home directory.
const VirtualenvsDirName = ".virtualenvs"

// CreateTarget resolves the environment name entered by the user to the
// target path a CreateEnv operation will produce.
func (p *PipProvider) CreateTarget(name string) (pyenv.Target, error) {
	if name == "" {
		return pyenv.Target{}, fmt.Errorf("environment name must not be empty")
	}
	if name != filepath.Base(name) {
		return pyenv.Target{}, fmt.Errorf("environment name must not contain path separators")
	}
	home, err := p.homeDir()
	if err != nil {
		return pyenv.Target{}, fmt.Errorf("resolving home directory: %w", err)
	}
	return pyenv.Target{EnvPath: filepath.Join(home, VirtualenvsDirName, name)}, nil
}

// Build constructs the spec for one operation.
func (p *PipProvider) Build(kind pyenv.OpKind, target pyenv.Target) (ExecSpec, error) {
	switch kind {
	case pyenv.OpCreateEnv:
		// Make sure the container directory exists before python -m venv runs.
		if err := os.MkdirAll(filepath.Dir(target.EnvPath), 0o755); err != nil {
			return ExecSpec{}, fmt.Errorf("creating %s: %w", filepath.Dir(target.EnvPath), err)
		}
		return ExecSpec{Argv: []string{p.python, "-m", "venv", target.EnvPath}}, nil

	case pyenv.OpDeleteEnv:
		kindOfEnv, ok := p.resolveKind(target)
		if !ok {
			return ExecSpec{}, fmt.Errorf("unknown environment: %s", target.EnvPath)
		}
		switch kindOfEnv {
		case pyenv.KindSystem:
			return ExecSpec{}, fmt.Errorf("refusing to delete a system interpreter")
		case pyenv.KindConda:
			return ExecSpec{Argv: []string{"conda", "env", "remove", "-p", target.EnvPath, "-y"}}, nil
		default:
			return ExecSpec{RemovePath: target.EnvPath}, nil
		}

	case pyenv.OpListPackages:
		argv, err := p.pipArgv(target)
		if err != nil {
			return ExecSpec{}, err
		}
		return ExecSpec{Argv: append(argv, "list", "--format=json")}, nil

	case pyenv.OpInstallPackage:
		argv, err := p.pipArgv(target)
		if err != nil {
			return ExecSpec{}, err
		}
		return ExecSpec{Argv: append(argv, "install", target.Package)}, nil

	case pyenv.OpRemovePackage:
		argv, err := p.pipArgv(target)
		if err != nil {
			return ExecSpec{}, err
		}
		return ExecSpec{Argv: append(argv, "uninstall", "-y", target.Package)}, nil
	}
	return ExecSpec{}, fmt.Errorf("unsupported operation kind: %s", kind)
}

func (p *PipProvider) resolveKind(target pyenv.Target) (pyenv.EnvKind, bool) {
	if p.kindOf == nil {
		return pyenv.KindOther, false
	}
	return p.kindOf(target.EnvPath)
}

// pipArgv returns the pip invocation prefix for the target scope.
func (p *PipProvider) pipArgv(target pyenv.Target) ([]string, error) {
	if target.Global() {
		return []string{p.python, "-m", "pip"}, nil
	}
	kindOfEnv, ok := p.resolveKind(target)
	if !ok {
		return nil, fmt.Errorf("unknown environment: %s", target.EnvPath)
	}
	switch kindOfEnv {
	case pyenv.KindSystem:
		// Path identity of a system environment is the interpreter itself.
		return []string{target.EnvPath, "-m", "pip"}, nil
	case pyenv.KindConda:
		return []string{"conda", "run", "-p", target.EnvPath, "python", "-m", "pip"}, nil
	default:
		if pip := venvPip(target.EnvPath); pip != "" {
			return []string{pip}, nil
		}
		return []string{discovery.VenvPython(target.EnvPath), "-m", "pip"}, nil
	}
}

func venvPip(envPath string) string {
	for _, name := range []string{"pip", "pip3"} {
		candidate := filepath.Join(envPath, "bin", name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// pipListEntry matches one element of `pip list --format=json` output.
type pipListEntry struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Parse interprets the raw stdout of a finished operation.
func (p *PipProvider) Parse(kind pyenv.OpKind, target pyenv.Target, raw []byte) (Result, error) {
	switch kind {
	case pyenv.OpListPackages:
		var entries []pipListEntry
		if err := json.Unmarshal(raw, &entries); err != nil {
			return Result{}, fmt.Errorf("parsing pip list output: %w", err)
		}
		scope := pyenv.ScopeEnv
		if target.Global() {
			scope = pyenv.ScopeGlobal
		}
		pkgs := make([]pyenv.Package, 0, len(entries))
		for _, e := range entries {
			if e.Name == "" {
				continue
			}
			pkgs = append(pkgs, pyenv.Package{Name: e.Name, Version: e.Version, Scope: scope})
		}
		return Result{Packages: pkgs}, nil

	case pyenv.OpCreateEnv:
		// venv prints nothing on success; the entity is derived from the
		// target. The version stays unknown until the next discovery pass
		// probes the new interpreter.
		return Result{Env: &pyenv.Environment{
			Path: target.EnvPath,
			Name: filepath.Base(target.EnvPath),
			Kind: pyenv.KindVenv,
		}}, nil

	case pyenv.OpDeleteEnv, pyenv.OpInstallPackage, pyenv.OpRemovePackage:
		return Result{}, nil
	}
	return Result{}, fmt.Errorf("unsupported operation kind: %s", kind)
}
