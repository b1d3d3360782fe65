// Package mcpserver exposes environment and package management over the
// Model Context Protocol, so agents can drive the same operations the TUI
// offers. Operations here run synchronously: callers get the final outcome
// in the tool response instead of a banner.
package mcpserver

import (
	"context"
	"fmt"
	"sync"

	"pyenvctl/internal/actions"
	"pyenvctl/internal/config"
	"pyenvctl/internal/discovery"
	"pyenvctl/internal/executor"
	"pyenvctl/internal/pyenv"
	"pyenvctl/internal/registry"
	"pyenvctl/pkg/logging"
)

const subsystem = "MCPService"

// Service owns a registry and runs operations against it. A single mutex
// serializes everything; MCP clients may call concurrently, and the registry
// expects one writer.
type Service struct {
	mu     sync.Mutex
	reg    *registry.Registry
	disc   discovery.Provider
	acts   *actions.PipProvider
	runner executor.Runner
}

// NewService assembles a headless service. A nil runner selects the
// production os/exec runner.
func NewService(cfg config.Config, runner executor.Runner) *Service {
	reg := registry.New()
	s := &Service{
		reg:    reg,
		disc:   discovery.NewFilesystemProvider(cfg.Discovery),
		runner: runner,
	}
	if s.runner == nil {
		s.runner = executor.ExecRunner{}
	}
	s.acts = actions.NewPipProvider(func(envPath string) (pyenv.EnvKind, bool) {
		if envPath == "" {
			return pyenv.KindSystem, true
		}
		e, ok := reg.Get(envPath)
		if !ok {
			return pyenv.KindOther, false
		}
		return e.Kind, true
	}, cfg.Discovery.PythonCommand)
	return s
}

// Refresh runs one discovery scan and merges it into the registry.
func (s *Service) Refresh(ctx context.Context) ([]pyenv.Environment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidates, err := s.disc.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovery scan: %w", err)
	}
	s.reg.ApplyDiscovery(candidates, nil)
	return s.snapshot(), nil
}

// ListEnvironments returns the current environment set, scanning first if
// the registry is still empty.
func (s *Service) ListEnvironments(ctx context.Context) ([]pyenv.Environment, error) {
	s.mu.Lock()
	empty := s.reg.Len() == 0
	s.mu.Unlock()
	if empty {
		return s.Refresh(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(), nil
}

// CreateEnvironment creates a virtualenv under ~/.virtualenvs.
func (s *Service) CreateEnvironment(ctx context.Context, name string) (*pyenv.Environment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, err := s.acts.CreateTarget(name)
	if err != nil {
		return nil, err
	}
	result, err := s.run(ctx, pyenv.OpCreateEnv, target)
	if err != nil {
		return nil, err
	}
	s.reg.ApplyCreate(result.Env, "")
	logging.Info(subsystem, "Created environment %s", target.EnvPath)
	return result.Env, nil
}

// DeleteEnvironment removes the environment at path.
func (s *Service) DeleteEnvironment(ctx context.Context, envPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reg.Get(envPath); !ok {
		return fmt.Errorf("unknown environment: %s", envPath)
	}
	target := pyenv.Target{EnvPath: envPath}
	if _, err := s.run(ctx, pyenv.OpDeleteEnv, target); err != nil {
		return err
	}
	s.reg.ApplyDelete(envPath, "")
	logging.Info(subsystem, "Deleted environment %s", envPath)
	return nil
}

// ListPackages returns the installed packages for one environment, or the
// global site when envPath is empty.
func (s *Service) ListPackages(ctx context.Context, envPath string) ([]pyenv.Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if envPath != "" {
		if _, ok := s.reg.Get(envPath); !ok {
			return nil, fmt.Errorf("unknown environment: %s", envPath)
		}
	}
	target := pyenv.Target{EnvPath: envPath}
	result, err := s.run(ctx, pyenv.OpListPackages, target)
	if err != nil {
		return nil, err
	}
	s.reg.ApplyPackageList(envPath, result.Packages, "")
	return result.Packages, nil
}

// InstallPackage installs pkg into the environment (or globally).
func (s *Service) InstallPackage(ctx context.Context, envPath, pkg string) error {
	return s.mutatePackage(ctx, pyenv.OpInstallPackage, envPath, pkg)
}

// RemovePackage uninstalls pkg from the environment (or globally).
func (s *Service) RemovePackage(ctx context.Context, envPath, pkg string) error {
	return s.mutatePackage(ctx, pyenv.OpRemovePackage, envPath, pkg)
}

func (s *Service) mutatePackage(ctx context.Context, kind pyenv.OpKind, envPath, pkg string) error {
	if pkg == "" {
		return fmt.Errorf("package name must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if envPath != "" {
		if _, ok := s.reg.Get(envPath); !ok {
			return fmt.Errorf("unknown environment: %s", envPath)
		}
	}
	target := pyenv.Target{EnvPath: envPath, Package: pkg}
	if _, err := s.run(ctx, kind, target); err != nil {
		return err
	}
	s.reg.ApplyPackageMutation(envPath, pkg, kind, "", "")
	return nil
}

// run is the synchronous build-execute-parse pipeline. Callers hold the lock.
func (s *Service) run(ctx context.Context, kind pyenv.OpKind, target pyenv.Target) (actions.Result, error) {
	spec, err := s.acts.Build(kind, target)
	if err != nil {
		return actions.Result{}, err
	}
	out, err := s.runner.Run(ctx, spec)
	if err != nil {
		return actions.Result{}, err
	}
	return s.acts.Parse(kind, target, out)
}

// snapshot copies the registry contents so callers can marshal them without
// holding the lock. Callers hold the lock.
func (s *Service) snapshot() []pyenv.Environment {
	envs := s.reg.All()
	out := make([]pyenv.Environment, 0, len(envs))
	for _, e := range envs {
		out = append(out, *e)
	}
	return out
}
