package registry

import (
	"testing"

	"pyenvctl/internal/pyenv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(path, name string) pyenv.Candidate {
	return pyenv.Candidate{Path: path, Name: name, Kind: pyenv.KindVenv}
}

func TestApplyDiscoveryAddsAndUpdates(t *testing.T) {
	r := New()

	r.ApplyDiscovery([]pyenv.Candidate{
		candidate("/envs/a", "a"),
		candidate("/envs/b", "b"),
	}, nil)
	require.Equal(t, 2, r.Len())

	a, ok := r.Get("/envs/a")
	require.True(t, ok)
	assert.Equal(t, pyenv.StateDiscovered, a.State)

	// A second scan updates in place and keeps pointer identity.
	r.ApplyDiscovery([]pyenv.Candidate{
		{Path: "/envs/a", Name: "a-renamed", Kind: pyenv.KindVenv, VersionHint: "3.12.1"},
		candidate("/envs/b", "b"),
	}, nil)
	a2, ok := r.Get("/envs/a")
	require.True(t, ok)
	assert.Same(t, a, a2)
	assert.Equal(t, "a-renamed", a2.Name)
	assert.Equal(t, "3.12.1", a2.PythonVersion)
}

func TestApplyDiscoveryDropsMissingUnlessPending(t *testing.T) {
	r := New()
	r.ApplyDiscovery([]pyenv.Candidate{
		candidate("/envs/a", "a"),
		candidate("/envs/b", "b"),
	}, nil)

	// b vanishes from the scan but has an operation in flight.
	r.ApplyDiscovery([]pyenv.Candidate{candidate("/envs/a", "a")}, func(path string) bool {
		return path == "/envs/b"
	})
	_, ok := r.Get("/envs/b")
	assert.True(t, ok, "environment with pending operation must survive the scan")

	// Next scan without pending work drops it.
	r.ApplyDiscovery([]pyenv.Candidate{candidate("/envs/a", "a")}, nil)
	_, ok = r.Get("/envs/b")
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())
}

func TestApplyDiscoveryPreservesLoadedPackages(t *testing.T) {
	r := New()
	r.ApplyDiscovery([]pyenv.Candidate{candidate("/envs/a", "a")}, nil)
	r.ApplyPackageList("/envs/a", []pyenv.Package{{Name: "requests", Version: "2.31.0"}}, "")

	r.ApplyDiscovery([]pyenv.Candidate{candidate("/envs/a", "a")}, nil)
	a, _ := r.Get("/envs/a")
	require.True(t, a.PackagesLoaded)
	assert.Len(t, a.Packages, 1)
}

func TestNavigableExcludesDeletingAndGone(t *testing.T) {
	r := New()
	r.ApplyDiscovery([]pyenv.Candidate{
		candidate("/envs/a", "a"),
		candidate("/envs/b", "b"),
		candidate("/envs/c", "c"),
	}, nil)
	r.MarkDeleting("/envs/b")

	nav := r.Navigable()
	require.Len(t, nav, 2)
	assert.Equal(t, "/envs/a", nav[0].Path)
	assert.Equal(t, "/envs/c", nav[1].Path)
	// Still visible in the full list.
	assert.Equal(t, 3, len(r.All()))
}

func TestApplyPackageListSuccessReplacesAndReadies(t *testing.T) {
	r := New()
	r.ApplyDiscovery([]pyenv.Candidate{candidate("/envs/a", "a")}, nil)
	r.MarkProbing("/envs/a")

	pkgs := []pyenv.Package{
		{Name: "numpy", Version: "1.26.4"},
		{Name: "requests", Version: "2.31.0"},
	}
	r.ApplyPackageList("/envs/a", pkgs, "")

	a, _ := r.Get("/envs/a")
	assert.Equal(t, pyenv.StateReady, a.State)
	assert.True(t, a.PackagesLoaded)
	assert.Equal(t, pkgs, a.Packages)
	assert.Empty(t, a.LastError)
}

func TestApplyPackageListFailureKeepsPreviousList(t *testing.T) {
	r := New()
	r.ApplyDiscovery([]pyenv.Candidate{candidate("/envs/a", "a")}, nil)
	first := []pyenv.Package{{Name: "numpy", Version: "1.26.4"}}
	r.ApplyPackageList("/envs/a", first, "")

	r.MarkProbing("/envs/a")
	r.ApplyPackageList("/envs/a", nil, "pip exited 1")

	a, _ := r.Get("/envs/a")
	assert.Equal(t, pyenv.StateReady, a.State, "failure must not wedge the environment in Probing")
	assert.Equal(t, first, a.Packages, "failed refresh must leave the previous list untouched")
	assert.Equal(t, "pip exited 1", a.LastError)
}

func TestApplyPackageListGlobalScope(t *testing.T) {
	r := New()

	_, loaded := r.GlobalPackages()
	assert.False(t, loaded)

	r.ApplyPackageList("", []pyenv.Package{{Name: "pip", Version: "24.0", Scope: pyenv.ScopeGlobal}}, "")
	pkgs, loaded := r.GlobalPackages()
	assert.True(t, loaded)
	assert.Len(t, pkgs, 1)

	r.ApplyPackageList("", nil, "no interpreter")
	pkgs2, loaded := r.GlobalPackages()
	assert.True(t, loaded)
	assert.Equal(t, pkgs, pkgs2)
	assert.Equal(t, "no interpreter", r.GlobalError())
}

func TestApplyCreate(t *testing.T) {
	r := New()
	r.ApplyCreate(&pyenv.Environment{Path: "/envs/new", Name: "new", Kind: pyenv.KindVenv}, "")

	e, ok := r.Get("/envs/new")
	require.True(t, ok)
	assert.Equal(t, pyenv.StateReady, e.State)

	// A failed create materializes nothing.
	r.ApplyCreate(&pyenv.Environment{Path: "/envs/failed"}, "python exited 1")
	_, ok = r.Get("/envs/failed")
	assert.False(t, ok)
}

func TestApplyDeleteSuccessRemoves(t *testing.T) {
	r := New()
	r.ApplyDiscovery([]pyenv.Candidate{
		candidate("/envs/a", "a"),
		candidate("/envs/b", "b"),
	}, nil)
	r.MarkDeleting("/envs/a")
	r.ApplyDelete("/envs/a", "")

	_, ok := r.Get("/envs/a")
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())
}

func TestApplyDeleteFailureRevertsToReady(t *testing.T) {
	r := New()
	r.ApplyDiscovery([]pyenv.Candidate{candidate("/envs/a", "a")}, nil)
	r.MarkDeleting("/envs/a")
	r.ApplyDelete("/envs/a", "permission denied")

	a, ok := r.Get("/envs/a")
	require.True(t, ok)
	assert.Equal(t, pyenv.StateReady, a.State)
	assert.Equal(t, "permission denied", a.LastError)
}

func TestApplyPackageMutationInstallKeepsSorted(t *testing.T) {
	r := New()
	r.ApplyDiscovery([]pyenv.Candidate{candidate("/envs/a", "a")}, nil)
	r.ApplyPackageList("/envs/a", []pyenv.Package{
		{Name: "Django", Version: "5.0"},
		{Name: "requests", Version: "2.31.0"},
	}, "")

	r.ApplyPackageMutation("/envs/a", "numpy", pyenv.OpInstallPackage, "1.26.4", "")

	a, _ := r.Get("/envs/a")
	require.Len(t, a.Packages, 3)
	assert.Equal(t, "Django", a.Packages[0].Name)
	assert.Equal(t, "numpy", a.Packages[1].Name, "insertion is case-insensitive sorted")
	assert.Equal(t, "requests", a.Packages[2].Name)
}

func TestApplyPackageMutationRemove(t *testing.T) {
	r := New()
	r.ApplyDiscovery([]pyenv.Candidate{candidate("/envs/a", "a")}, nil)
	r.ApplyPackageList("/envs/a", []pyenv.Package{
		{Name: "numpy", Version: "1.26.4"},
		{Name: "requests", Version: "2.31.0"},
	}, "")

	r.ApplyPackageMutation("/envs/a", "numpy", pyenv.OpRemovePackage, "", "")

	a, _ := r.Get("/envs/a")
	require.Len(t, a.Packages, 1)
	assert.Equal(t, "requests", a.Packages[0].Name)
}

func TestApplyPackageMutationFailureClearsPendingOnly(t *testing.T) {
	r := New()
	r.ApplyDiscovery([]pyenv.Candidate{candidate("/envs/a", "a")}, nil)
	r.ApplyPackageList("/envs/a", []pyenv.Package{{Name: "numpy", Version: "1.26.4"}}, "")
	r.SetPackagePending("/envs/a", "numpy", true)

	r.ApplyPackageMutation("/envs/a", "numpy", pyenv.OpRemovePackage, "", "pip exited 1")

	a, _ := r.Get("/envs/a")
	require.Len(t, a.Packages, 1)
	assert.False(t, a.Packages[0].Pending)
	assert.Equal(t, "pip exited 1", a.LastError)
}

func TestFilterByName(t *testing.T) {
	envs := []*pyenv.Environment{
		{Path: "/envs/numpy-playground", Name: "numpy-playground"},
		{Path: "/envs/webapp", Name: "webapp"},
		{Path: "/home/user/.pyenv/versions/3.12.1", Name: "3.12.1"},
	}

	assert.Len(t, FilterByName(envs, ""), 3)

	got := FilterByName(envs, "num")
	require.Len(t, got, 1)
	assert.Equal(t, "numpy-playground", got[0].Name)

	// Matches the path too, case-insensitively.
	got = FilterByName(envs, "PYENV")
	require.Len(t, got, 1)
	assert.Equal(t, "3.12.1", got[0].Name)

	assert.Empty(t, FilterByName(envs, "nope"))
}
