package discovery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pyenvctl/internal/config"
	"pyenvctl/internal/pyenv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeVenv lays a minimal virtualenv skeleton under dir.
func makeVenv(t *testing.T, dir string) {
	t.Helper()
	binDir := filepath.Join(dir, "bin")
	require.NoError(t, os.MkdirAll(binDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(binDir, "python"), []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(binDir, "activate"), nil, 0o644))
}

// versionRun answers `<python> --version` probes and fails everything else.
func versionRun(version string) runFunc {
	return func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		if len(args) == 1 && args[0] == "--version" {
			return []byte(version + "\n"), nil, nil
		}
		return nil, nil, fmt.Errorf("unexpected command: %s %v", name, args)
	}
}

func newTestProvider(t *testing.T, settings config.DiscoverySettings, home string) *FilesystemProvider {
	t.Helper()
	p := NewFilesystemProvider(settings)
	p.homeDir = func() (string, error) { return home, nil }
	p.getwd = func() (string, error) { return t.TempDir(), nil }
	p.run = versionRun("Python 3.12.1")
	return p
}

func pathsOf(candidates []pyenv.Candidate) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.Path)
	}
	return out
}

func TestScanFindsVirtualenvsUnderHome(t *testing.T) {
	home := t.TempDir()
	makeVenv(t, filepath.Join(home, ".virtualenvs", "webapp"))
	makeVenv(t, filepath.Join(home, ".virtualenvs", "data"))
	// A stray file and a non-venv directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(home, ".virtualenvs", "README"), nil, 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".virtualenvs", "notavenv"), 0o755))

	p := newTestProvider(t, config.DiscoverySettings{DisableConda: true, DisablePyenv: true, DisableCwdScan: true}, home)
	candidates, err := p.Scan(context.Background())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		filepath.Join(home, ".virtualenvs", "webapp"),
		filepath.Join(home, ".virtualenvs", "data"),
	}, pathsOf(candidates))
	for _, c := range candidates {
		assert.Equal(t, pyenv.KindVenv, c.Kind)
		assert.Equal(t, "Python 3.12.1", c.VersionHint)
	}
}

func TestScanIncludesSingleHomeVenv(t *testing.T) {
	home := t.TempDir()
	makeVenv(t, filepath.Join(home, ".venv"))

	p := newTestProvider(t, config.DiscoverySettings{DisableConda: true, DisablePyenv: true, DisableCwdScan: true}, home)
	candidates, err := p.Scan(context.Background())
	require.NoError(t, err)
	assert.Contains(t, pathsOf(candidates), filepath.Join(home, ".venv"))
}

func TestScanHonorsExtraVenvDirs(t *testing.T) {
	home := t.TempDir()
	extra := t.TempDir()
	makeVenv(t, filepath.Join(extra, "proj"))

	settings := config.DiscoverySettings{
		ExtraVenvDirs:  []string{extra},
		DisableConda:   true,
		DisablePyenv:   true,
		DisableCwdScan: true,
	}
	p := newTestProvider(t, settings, home)
	candidates, err := p.Scan(context.Background())
	require.NoError(t, err)
	assert.Contains(t, pathsOf(candidates), filepath.Join(extra, "proj"))
}

func TestScanFindsPyenvVersions(t *testing.T) {
	home := t.TempDir()
	versionDir := filepath.Join(home, ".pyenv", "versions", "3.12.1")
	require.NoError(t, os.MkdirAll(filepath.Join(versionDir, "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(versionDir, "bin", "python"), []byte("#!/bin/sh\n"), 0o755))
	// An entry without an interpreter is skipped.
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".pyenv", "versions", "broken"), 0o755))

	p := newTestProvider(t, config.DiscoverySettings{DisableConda: true, DisableCwdScan: true}, home)
	candidates, err := p.Scan(context.Background())
	require.NoError(t, err)

	require.Contains(t, pathsOf(candidates), versionDir)
	for _, c := range candidates {
		if c.Path == versionDir {
			assert.Equal(t, pyenv.KindPyenv, c.Kind)
			assert.Equal(t, "pyenv: 3.12.1", c.Name)
		}
	}
}

func TestScanParsesCondaEnvList(t *testing.T) {
	home := t.TempDir()
	condaEnv := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(condaEnv, "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(condaEnv, "bin", "python"), []byte("#!/bin/sh\n"), 0o755))

	p := newTestProvider(t, config.DiscoverySettings{DisablePyenv: true, DisableCwdScan: true}, home)
	p.run = func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		if name == "conda" && len(args) == 3 && args[0] == "env" {
			return []byte(fmt.Sprintf(`{"envs": [%q, "/does/not/exist"]}`, condaEnv)), nil, nil
		}
		if len(args) == 1 && args[0] == "--version" {
			return []byte("Python 3.11.8\n"), nil, nil
		}
		return nil, nil, fmt.Errorf("unexpected command: %s %v", name, args)
	}

	candidates, err := p.Scan(context.Background())
	require.NoError(t, err)

	require.Contains(t, pathsOf(candidates), condaEnv)
	assert.NotContains(t, pathsOf(candidates), "/does/not/exist")
	for _, c := range candidates {
		if c.Path == condaEnv {
			assert.Equal(t, pyenv.KindConda, c.Kind)
			assert.Equal(t, "conda: "+filepath.Base(condaEnv), c.Name)
			assert.Equal(t, "Python 3.11.8", c.VersionHint)
		}
	}
}

func TestScanMissingCondaIsNotAnError(t *testing.T) {
	home := t.TempDir()
	makeVenv(t, filepath.Join(home, ".virtualenvs", "a"))

	p := newTestProvider(t, config.DiscoverySettings{DisablePyenv: true, DisableCwdScan: true}, home)
	// run fails for conda and system probes alike; the venv walk still works.
	candidates, err := p.Scan(context.Background())
	require.NoError(t, err)
	assert.Len(t, candidates, 1)
}

func TestScanFindsWorkingDirectoryVenvs(t *testing.T) {
	home := t.TempDir()
	wd := t.TempDir()
	makeVenv(t, filepath.Join(wd, ".venv"))

	p := newTestProvider(t, config.DiscoverySettings{DisableConda: true, DisablePyenv: true}, home)
	p.getwd = func() (string, error) { return wd, nil }

	candidates, err := p.Scan(context.Background())
	require.NoError(t, err)
	assert.Contains(t, pathsOf(candidates), filepath.Join(wd, ".venv"))
}

func TestScanDetectsSystemInterpreters(t *testing.T) {
	home := t.TempDir()
	p := newTestProvider(t, config.DiscoverySettings{DisableConda: true, DisablePyenv: true, DisableCwdScan: true}, home)
	p.run = func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		switch {
		case len(args) == 1 && args[0] == "--version":
			return []byte("Python 3.12.1\n"), nil, nil
		case len(args) == 2 && args[0] == "-c":
			return []byte("/usr/bin/" + name + "\n"), nil, nil
		}
		return nil, nil, fmt.Errorf("unexpected command: %s %v", name, args)
	}

	candidates, err := p.Scan(context.Background())
	require.NoError(t, err)

	paths := pathsOf(candidates)
	assert.Contains(t, paths, "/usr/bin/python")
	assert.Contains(t, paths, "/usr/bin/python3")
	for _, c := range candidates {
		assert.Equal(t, pyenv.KindSystem, c.Kind)
		assert.True(t, strings.HasPrefix(c.Name, "System Python"))
	}
}

func TestScanPythonCommandOverride(t *testing.T) {
	home := t.TempDir()
	settings := config.DiscoverySettings{
		PythonCommand:  "python3.13",
		DisableConda:   true,
		DisablePyenv:   true,
		DisableCwdScan: true,
	}
	p := newTestProvider(t, settings, home)
	var probed []string
	p.run = func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		switch {
		case len(args) == 1 && args[0] == "--version":
			probed = append(probed, name)
			return []byte("Python 3.13.0\n"), nil, nil
		case len(args) == 2 && args[0] == "-c":
			return []byte("/opt/python3.13/bin/python\n"), nil, nil
		}
		return nil, nil, fmt.Errorf("unexpected command: %s %v", name, args)
	}

	_, err := p.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"python3.13"}, probed)
}

func TestScanVersionFromStderr(t *testing.T) {
	home := t.TempDir()
	makeVenv(t, filepath.Join(home, ".virtualenvs", "legacy"))

	p := newTestProvider(t, config.DiscoverySettings{DisableConda: true, DisablePyenv: true, DisableCwdScan: true}, home)
	p.run = func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		if len(args) == 1 && args[0] == "--version" {
			// Python 2 style: version printed to stderr.
			return nil, []byte("Python 2.7.18\n"), nil
		}
		return nil, nil, fmt.Errorf("unexpected command: %s %v", name, args)
	}

	candidates, err := p.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Python 2.7.18", candidates[0].VersionHint)
}

func TestScanErrorsWhenEverySourceFails(t *testing.T) {
	p := NewFilesystemProvider(config.DiscoverySettings{})
	p.homeDir = func() (string, error) { return "", fmt.Errorf("no home") }
	p.getwd = func() (string, error) { return "", fmt.Errorf("no cwd") }
	p.run = func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		if name == "conda" {
			// conda absence alone is tolerated; force a parse failure instead.
			return []byte("not json"), nil, nil
		}
		return nil, nil, fmt.Errorf("spawn failed")
	}

	_, err := p.Scan(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discovery failed")
}

func TestScanDisableSwitches(t *testing.T) {
	home := t.TempDir()
	makeVenv(t, filepath.Join(home, ".virtualenvs", "only"))
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".pyenv", "versions", "3.12.1", "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".pyenv", "versions", "3.12.1", "bin", "python"), []byte("#!/bin/sh\n"), 0o755))

	settings := config.DiscoverySettings{
		DisableConda:   true,
		DisablePyenv:   true,
		DisableCwdScan: true,
	}
	p := newTestProvider(t, settings, home)
	var condaCalled bool
	base := p.run
	p.run = func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		if name == "conda" {
			condaCalled = true
		}
		return base(ctx, name, args...)
	}

	candidates, err := p.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(home, ".virtualenvs", "only")}, pathsOf(candidates))
	assert.False(t, condaCalled)
}
