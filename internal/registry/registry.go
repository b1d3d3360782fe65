// Package registry owns the canonical in-memory model of environments and
// their packages. It is mutated only from the owning control loop: discovery
// results and executor terminal events are applied here, raw key input never
// touches it directly. Because exactly one logical thread calls into it, the
// registry carries no locking.
package registry

import (
	"sort"
	"strings"

	"pyenvctl/internal/pyenv"
	"pyenvctl/pkg/logging"
)

const subsystem = "Registry"

// Registry is the environment/package state holder.
type Registry struct {
	envs   []*pyenv.Environment
	byPath map[string]*pyenv.Environment

	// Global-scope packages, loaded lazily like per-environment lists.
	global       []pyenv.Package
	globalLoaded bool
	globalError  string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{byPath: make(map[string]*pyenv.Environment)}
}

// All returns every environment in display order, including ones in Deleting
// state (they stay visible with a decoration until their operation resolves).
func (r *Registry) All() []*pyenv.Environment {
	return r.envs
}

// Navigable returns the environments the cursor may land on: everything not
// currently Deleting or Gone.
func (r *Registry) Navigable() []*pyenv.Environment {
	out := make([]*pyenv.Environment, 0, len(r.envs))
	for _, e := range r.envs {
		if e.State == pyenv.StateDeleting || e.State == pyenv.StateGone {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Get looks an environment up by its path identity.
func (r *Registry) Get(path string) (*pyenv.Environment, bool) {
	e, ok := r.byPath[path]
	return e, ok
}

// Len returns the number of tracked environments.
func (r *Registry) Len() int {
	return len(r.envs)
}

// GlobalPackages returns the global-scope package list and whether it has
// been loaded at least once.
func (r *Registry) GlobalPackages() ([]pyenv.Package, bool) {
	return r.global, r.globalLoaded
}

// GlobalError returns the last failure reason recorded against the global
// package list, empty when the last load succeeded.
func (r *Registry) GlobalError() string {
	return r.globalError
}

// ApplyDiscovery merges one batch of discovery candidates. Existing entries
// are updated in place (identity is the path), new ones are appended in state
// Discovered. Environments absent from the scan are dropped unless hasPending
// reports an in-flight operation against them: those are "not yet rescanned",
// not "deleted".
func (r *Registry) ApplyDiscovery(candidates []pyenv.Candidate, hasPending func(envPath string) bool) {
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		seen[c.Path] = true
		if existing, ok := r.byPath[c.Path]; ok {
			existing.Name = c.Name
			existing.Kind = c.Kind
			if c.VersionHint != "" {
				existing.PythonVersion = c.VersionHint
			}
			continue
		}
		env := &pyenv.Environment{
			Path:          c.Path,
			Name:          c.Name,
			Kind:          c.Kind,
			PythonVersion: c.VersionHint,
			State:         pyenv.StateDiscovered,
		}
		r.envs = append(r.envs, env)
		r.byPath[c.Path] = env
	}

	kept := r.envs[:0]
	for _, e := range r.envs {
		if seen[e.Path] || (hasPending != nil && hasPending(e.Path)) {
			kept = append(kept, e)
			continue
		}
		delete(r.byPath, e.Path)
		logging.Debug(subsystem, "Dropping environment no longer present: %s", e.Path)
	}
	r.envs = kept
}

// MarkProbing records that a ListPackages operation was accepted for the
// environment. Called by the control loop at submission time.
func (r *Registry) MarkProbing(envPath string) {
	if e, ok := r.byPath[envPath]; ok {
		e.State = pyenv.StateProbing
	}
}

// MarkDeleting records that a DeleteEnv operation was accepted.
func (r *Registry) MarkDeleting(envPath string) {
	if e, ok := r.byPath[envPath]; ok {
		e.State = pyenv.StateDeleting
	}
}

// SetPackagePending flags or clears the pending-action marker on one package
// entry. Missing entries are ignored (install targets a package that does not
// exist yet; its entry appears only on success).
func (r *Registry) SetPackagePending(envPath, pkgName string, pending bool) {
	pkgs := r.packagesFor(envPath)
	for i := range pkgs {
		if pkgs[i].Name == pkgName {
			pkgs[i].Pending = pending
			return
		}
	}
}

func (r *Registry) packagesFor(envPath string) []pyenv.Package {
	if envPath == "" {
		return r.global
	}
	if e, ok := r.byPath[envPath]; ok {
		return e.Packages
	}
	return nil
}

// ApplyPackageList applies the terminal result of a ListPackages operation.
// Success replaces the package sequence wholesale and moves the environment
// to Ready. Failure leaves the previous sequence untouched, records the
// reason for display, and still returns the environment to Ready so it does
// not wedge in Probing.
func (r *Registry) ApplyPackageList(envPath string, pkgs []pyenv.Package, reason string) {
	if envPath == "" {
		if reason == "" {
			r.global = pkgs
			r.globalLoaded = true
			r.globalError = ""
		} else {
			r.globalError = reason
		}
		return
	}

	e, ok := r.byPath[envPath]
	if !ok {
		logging.Warn(subsystem, "Package list for unknown environment %s discarded", envPath)
		return
	}
	if reason != "" {
		e.LastError = reason
		e.State = pyenv.StateReady
		return
	}
	e.Packages = pkgs
	e.PackagesLoaded = true
	e.LastError = ""
	e.State = pyenv.StateReady
}

// ApplyCreate applies the terminal result of a CreateEnv operation. Success
// inserts the new environment in Ready state; failure materializes nothing
// (the caller surfaces the reason through the banner).
func (r *Registry) ApplyCreate(env *pyenv.Environment, reason string) {
	if reason != "" || env == nil {
		return
	}
	if existing, ok := r.byPath[env.Path]; ok {
		// Re-creation over a path we already track: refresh in place.
		existing.Name = env.Name
		existing.Kind = env.Kind
		existing.PythonVersion = env.PythonVersion
		existing.State = pyenv.StateReady
		existing.LastError = ""
		return
	}
	created := *env
	created.State = pyenv.StateReady
	r.envs = append(r.envs, &created)
	r.byPath[created.Path] = &created
}

// ApplyDelete applies the terminal result of a DeleteEnv operation. Success
// removes the entity; failure reverts Deleting back to Ready with the reason
// attached.
func (r *Registry) ApplyDelete(envPath string, reason string) {
	e, ok := r.byPath[envPath]
	if !ok {
		return
	}
	if reason != "" {
		e.State = pyenv.StateReady
		e.LastError = reason
		return
	}
	e.State = pyenv.StateGone
	delete(r.byPath, envPath)
	kept := r.envs[:0]
	for _, cur := range r.envs {
		if cur.Path != envPath {
			kept = append(kept, cur)
		}
	}
	r.envs = kept
}

// ApplyPackageMutation applies the terminal result of an InstallPackage or
// RemovePackage operation. Install success inserts or updates the entry
// (version may be empty until the follow-up list refresh fills it in); remove
// success deletes the entry. Failure clears the pending flag and leaves the
// entry as it was.
func (r *Registry) ApplyPackageMutation(envPath, pkgName string, kind pyenv.OpKind, version string, reason string) {
	if reason != "" {
		r.SetPackagePending(envPath, pkgName, false)
		if e, ok := r.byPath[envPath]; ok {
			e.LastError = reason
		} else if envPath == "" {
			r.globalError = reason
		}
		return
	}

	switch kind {
	case pyenv.OpInstallPackage:
		r.upsertPackage(envPath, pkgName, version)
	case pyenv.OpRemovePackage:
		r.removePackage(envPath, pkgName)
	}
}

func (r *Registry) upsertPackage(envPath, pkgName, version string) {
	scope := pyenv.ScopeEnv
	if envPath == "" {
		scope = pyenv.ScopeGlobal
	}
	pkgs := r.packagesFor(envPath)
	for i := range pkgs {
		if pkgs[i].Name == pkgName {
			if version != "" {
				pkgs[i].Version = version
			}
			pkgs[i].Pending = false
			return
		}
	}
	entry := pyenv.Package{Name: pkgName, Version: version, Scope: scope}
	updated := append(pkgs, entry)
	sort.SliceStable(updated, func(i, j int) bool {
		return strings.ToLower(updated[i].Name) < strings.ToLower(updated[j].Name)
	})
	r.storePackages(envPath, updated)
}

func (r *Registry) removePackage(envPath, pkgName string) {
	pkgs := r.packagesFor(envPath)
	kept := make([]pyenv.Package, 0, len(pkgs))
	for _, p := range pkgs {
		if p.Name != pkgName {
			kept = append(kept, p)
		}
	}
	r.storePackages(envPath, kept)
}

func (r *Registry) storePackages(envPath string, pkgs []pyenv.Package) {
	if envPath == "" {
		r.global = pkgs
		return
	}
	if e, ok := r.byPath[envPath]; ok {
		e.Packages = pkgs
	}
}

// FilterByName returns the subsequence of envs whose display name or path
// contains query, case-insensitively, preserving relative order. An empty
// query returns envs unchanged.
func FilterByName(envs []*pyenv.Environment, query string) []*pyenv.Environment {
	if query == "" {
		return envs
	}
	q := strings.ToLower(query)
	out := make([]*pyenv.Environment, 0, len(envs))
	for _, e := range envs {
		if strings.Contains(strings.ToLower(e.DisplayName()), q) ||
			strings.Contains(strings.ToLower(e.Path), q) {
			out = append(out, e)
		}
	}
	return out
}
