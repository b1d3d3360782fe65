// Package discovery locates Python environments on the machine: system
// interpreters, virtualenvs under the usual home locations, pyenv versions,
// conda environments and venvs in the working directory. It produces raw
// candidates keyed by canonical path; merging them into session state is the
// registry's job.
package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"pyenvctl/internal/config"
	"pyenvctl/internal/pyenv"
	"pyenvctl/pkg/logging"
)

const subsystem = "Discovery"

// Provider is the discovery contract consumed by the control loop: safe to
// call repeatedly, results diffable by path.
type Provider interface {
	Scan(ctx context.Context) ([]pyenv.Candidate, error)
}

// runFunc executes a command and returns stdout and stderr separately.
// Injected so tests never spawn interpreters.
type runFunc func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// FilesystemProvider is the production Provider. It combines filesystem
// walks with interpreter probing.
type FilesystemProvider struct {
	settings config.DiscoverySettings

	run     runFunc
	homeDir func() (string, error)
	getwd   func() (string, error)
}

// NewFilesystemProvider builds a provider honoring the discovery settings.
func NewFilesystemProvider(settings config.DiscoverySettings) *FilesystemProvider {
	return &FilesystemProvider{
		settings: settings,
		run:      runCommand,
		homeDir:  os.UserHomeDir,
		getwd:    os.Getwd,
	}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Scan enumerates every enabled source. Individual source failures are
// logged and skipped; Scan only errors when every source failed and nothing
// was found, which callers treat as a DiscoveryFailure.
func (p *FilesystemProvider) Scan(ctx context.Context) ([]pyenv.Candidate, error) {
	var (
		candidates []pyenv.Candidate
		seen       = make(map[string]bool)
		sourceErrs []error
	)
	add := func(c pyenv.Candidate) {
		if c.Path == "" || seen[c.Path] {
			return
		}
		seen[c.Path] = true
		candidates = append(candidates, c)
	}

	sources := []struct {
		name    string
		enabled bool
		scan    func(context.Context, func(pyenv.Candidate)) error
	}{
		{"system", true, p.detectSystem},
		{"venv", true, p.detectVenvDirs},
		{"pyenv", !p.settings.DisablePyenv, p.detectPyenv},
		{"conda", !p.settings.DisableConda, p.detectConda},
		{"local", !p.settings.DisableCwdScan, p.detectLocal},
	}
	for _, src := range sources {
		if !src.enabled {
			continue
		}
		if err := src.scan(ctx, add); err != nil {
			logging.Warn(subsystem, "Failed to detect %s environments: %v", src.name, err)
			sourceErrs = append(sourceErrs, fmt.Errorf("%s: %w", src.name, err))
		}
	}

	if len(candidates) == 0 && len(sourceErrs) == len(sources) {
		return nil, fmt.Errorf("discovery failed: no source could be scanned: %v", sourceErrs)
	}
	logging.Debug(subsystem, "Scan produced %d candidates", len(candidates))
	return candidates, nil
}

// pythonCommands returns the interpreter commands to try for system-level
// probing, honoring the configured override.
func (p *FilesystemProvider) pythonCommands() []string {
	if p.settings.PythonCommand != "" {
		return []string{p.settings.PythonCommand}
	}
	return []string{"python", "python3"}
}

func (p *FilesystemProvider) detectSystem(ctx context.Context, add func(pyenv.Candidate)) error {
	found := false
	for i, python := range p.pythonCommands() {
		version, err := p.probeVersionCmd(ctx, python)
		if err != nil {
			continue
		}
		out, _, err := p.run(ctx, python, "-c", "import sys; print(sys.executable)")
		if err != nil {
			continue
		}
		path := strings.TrimSpace(string(out))
		if path == "" {
			continue
		}
		name := "System Python"
		if i > 0 {
			name = "System Python 3"
		}
		add(pyenv.Candidate{Path: path, Name: name, Kind: pyenv.KindSystem, VersionHint: version})
		found = true
	}
	if !found {
		return fmt.Errorf("no system interpreter responded")
	}
	return nil
}

func (p *FilesystemProvider) detectVenvDirs(ctx context.Context, add func(pyenv.Candidate)) error {
	home, err := p.homeDir()
	if err != nil {
		return err
	}

	roots := append([]string{filepath.Join(home, ".virtualenvs")}, p.settings.ExtraVenvDirs...)
	for _, root := range roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			path := filepath.Join(root, entry.Name())
			if entry.IsDir() && isVirtualenv(path) {
				add(p.venvCandidate(ctx, path))
			}
		}
	}

	// ~/.venv is itself a single environment in some setups.
	single := filepath.Join(home, ".venv")
	if isVirtualenv(single) {
		add(p.venvCandidate(ctx, single))
	}
	return nil
}

func (p *FilesystemProvider) detectPyenv(ctx context.Context, add func(pyenv.Candidate)) error {
	home, err := p.homeDir()
	if err != nil {
		return err
	}
	versionsDir := filepath.Join(home, ".pyenv", "versions")
	entries, err := os.ReadDir(versionsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(versionsDir, entry.Name())
		pythonExec := filepath.Join(path, "bin", "python")
		if _, err := os.Stat(pythonExec); err != nil {
			continue
		}
		version, err := p.probeVersionCmd(ctx, pythonExec)
		if err != nil {
			continue
		}
		add(pyenv.Candidate{
			Path:        path,
			Name:        "pyenv: " + entry.Name(),
			Kind:        pyenv.KindPyenv,
			VersionHint: version,
		})
	}
	return nil
}

// condaEnvList matches the JSON shape of `conda env list --json`.
type condaEnvList struct {
	Envs []string `json:"envs"`
}

func (p *FilesystemProvider) detectConda(ctx context.Context, add func(pyenv.Candidate)) error {
	out, _, err := p.run(ctx, "conda", "env", "list", "--json")
	if err != nil {
		// conda not installed is the common case, not an error worth surfacing.
		logging.Debug(subsystem, "conda env list unavailable: %v", err)
		return nil
	}
	var listing condaEnvList
	if err := json.Unmarshal(out, &listing); err != nil {
		return fmt.Errorf("parsing conda env list output: %w", err)
	}
	for _, envPath := range listing.Envs {
		pythonExec := condaPython(envPath)
		if pythonExec == "" {
			continue
		}
		version, err := p.probeVersionCmd(ctx, pythonExec)
		if err != nil {
			continue
		}
		add(pyenv.Candidate{
			Path:        envPath,
			Name:        "conda: " + filepath.Base(envPath),
			Kind:        pyenv.KindConda,
			VersionHint: version,
		})
	}
	return nil
}

func (p *FilesystemProvider) detectLocal(ctx context.Context, add func(pyenv.Candidate)) error {
	wd, err := p.getwd()
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(wd)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		path := filepath.Join(wd, entry.Name())
		if entry.IsDir() && isVirtualenv(path) {
			add(p.venvCandidate(ctx, path))
		}
	}
	return nil
}

func (p *FilesystemProvider) venvCandidate(ctx context.Context, path string) pyenv.Candidate {
	version, err := p.probeVersionCmd(ctx, VenvPython(path))
	if err != nil {
		version = "Unknown"
	}
	return pyenv.Candidate{
		Path:        path,
		Name:        filepath.Base(path),
		Kind:        pyenv.KindVenv,
		VersionHint: version,
	}
}

// probeVersionCmd runs `<python> --version`. Python 2 printed the version on
// stderr, so both streams are checked.
func (p *FilesystemProvider) probeVersionCmd(ctx context.Context, python string) (string, error) {
	stdout, stderr, err := p.run(ctx, python, "--version")
	if err != nil {
		return "", err
	}
	version := strings.TrimSpace(string(stdout))
	if version == "" {
		version = strings.TrimSpace(string(stderr))
	}
	if version == "" {
		return "", fmt.Errorf("%s --version produced no output", python)
	}
	return version, nil
}

// isVirtualenv reports whether path looks like a virtualenv: an interpreter
// plus an activate script under the platform bin directory.
func isVirtualenv(path string) bool {
	binDir := filepath.Join(path, "bin")
	pythonExec := filepath.Join(binDir, "python")
	activate := filepath.Join(binDir, "activate")
	if runtime.GOOS == "windows" {
		binDir = filepath.Join(path, "Scripts")
		pythonExec = filepath.Join(binDir, "python.exe")
		activate = filepath.Join(binDir, "activate.bat")
	}
	if _, err := os.Stat(pythonExec); err != nil {
		return false
	}
	if _, err := os.Stat(activate); err != nil {
		return false
	}
	return true
}

// VenvPython returns the interpreter path inside a venv-layout environment.
func VenvPython(envPath string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(envPath, "Scripts", "python.exe")
	}
	return filepath.Join(envPath, "bin", "python")
}

func condaPython(envPath string) string {
	candidate := filepath.Join(envPath, "bin", "python")
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	candidate = filepath.Join(envPath, "python.exe")
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}
