package controller

import (
	"errors"
	"fmt"

	"pyenvctl/internal/executor"
	"pyenvctl/internal/pyenv"
	"pyenvctl/internal/tui/model"
	"pyenvctl/pkg/logging"

	tea "github.com/charmbracelet/bubbletea"
)

// handleDiscoveryResult merges a completed scan into the registry and
// re-resolves the selection against the refreshed list.
func handleDiscoveryResult(m *model.Model, msg model.DiscoveryResultMsg) (*model.Model, tea.Cmd) {
	m.IsScanning = false
	firstScan := !m.FirstScanDone
	m.FirstScanDone = true

	if msg.Err != nil {
		logging.Error("Discovery", msg.Err, "Environment scan failed")
		if firstScan {
			// There is nothing on screen worth keeping yet; bail out and let
			// the process exit non-zero with the reason.
			m.FatalError = fmt.Errorf("initial environment scan failed: %w", msg.Err)
			m.CurrentAppMode = model.ModeQuitting
			m.QuittingMessage = "Startup scan failed"
			return m, tea.Quit
		}
		return m, m.SetStatusMessage(
			fmt.Sprintf("Discovery failed: %v", msg.Err),
			model.StatusBarError, model.StatusBarClearDelay)
	}

	m.Registry.ApplyDiscovery(msg.Candidates, m.Executor.HasPendingEnv)
	m.ResolveEnvSelection()
	m.ResolvePackageSelection()

	return m, m.SetStatusMessage(
		fmt.Sprintf("Found %d environments", len(m.VisibleEnvironments())),
		model.StatusBarInfo, model.StatusBarClearDelay)
}

// handleOperationEvent applies one executor terminal event to the registry,
// then fixes up the selection and schedules any follow-up work.
func handleOperationEvent(m *model.Model, ev executor.Event) (*model.Model, tea.Cmd) {
	var cmds []tea.Cmd

	reason := ""
	if ev.Status != pyenv.StatusSucceeded {
		reason = ev.Reason
		if reason == "" {
			reason = ev.Status.String()
		}
	}

	switch ev.Kind {
	case pyenv.OpListPackages:
		m.Registry.ApplyPackageList(ev.Target.EnvPath, ev.Packages, reason)

	case pyenv.OpCreateEnv:
		m.Registry.ApplyCreate(ev.Env, reason)
		if reason == "" && ev.Env != nil {
			// Jump to the new environment and load its packages.
			m.SelectedEnvPath = ev.Env.Path
			cmds = append(cmds, submitListPackages(m, pyenv.Target{EnvPath: ev.Env.Path}))
		}

	case pyenv.OpDeleteEnv:
		m.Registry.ApplyDelete(ev.Target.EnvPath, reason)

	case pyenv.OpInstallPackage, pyenv.OpRemovePackage:
		m.Registry.ApplyPackageMutation(ev.Target.EnvPath, ev.Target.Package, ev.Kind, "", reason)
		if reason == "" {
			// Refresh the authoritative list so versions and dependencies
			// pulled in alongside the package show up.
			cmds = append(cmds, submitListPackages(m, pyenv.Target{EnvPath: ev.Target.EnvPath}))
		}
	}

	m.ResolveEnvSelection()
	m.ResolvePackageSelection()

	cmds = append(cmds, operationStatusCmd(m, ev, reason))
	return m, tea.Batch(cmds...)
}

func operationStatusCmd(m *model.Model, ev executor.Event, reason string) tea.Cmd {
	subject := ev.Target.EnvPath
	if ev.Target.Package != "" {
		subject = ev.Target.Package
	}
	if subject == "" {
		subject = "global site"
	}

	switch ev.Status {
	case pyenv.StatusSucceeded:
		return m.SetStatusMessage(
			fmt.Sprintf("%s succeeded for %s", ev.Kind, subject),
			model.StatusBarSuccess, model.StatusBarClearDelay)
	case pyenv.StatusCancelled:
		return m.SetStatusMessage(
			fmt.Sprintf("%s cancelled for %s", ev.Kind, subject),
			model.StatusBarWarning, model.StatusBarClearDelay)
	default:
		return m.SetStatusMessage(
			fmt.Sprintf("%s failed for %s: %s", ev.Kind, subject, reason),
			model.StatusBarError, 2*model.StatusBarClearDelay)
	}
}

// submitOperation hands an operation to the executor and turns rejections
// into status bar feedback rather than errors.
func submitOperation(m *model.Model, kind pyenv.OpKind, target pyenv.Target) tea.Cmd {
	_, err := m.Executor.Submit(kind, target)
	if err != nil {
		if errors.Is(err, executor.ErrConflict) {
			return m.SetStatusMessage(
				fmt.Sprintf("%s already running for this target", kind),
				model.StatusBarWarning, model.StatusBarClearDelay)
		}
		logging.Error(controllerSubsystem, err, "Submitting %s failed", kind)
		return m.SetStatusMessage(
			fmt.Sprintf("%s rejected: %v", kind, err),
			model.StatusBarError, model.StatusBarClearDelay)
	}

	switch kind {
	case pyenv.OpListPackages:
		m.Registry.MarkProbing(target.EnvPath)
	case pyenv.OpDeleteEnv:
		m.Registry.MarkDeleting(target.EnvPath)
	case pyenv.OpInstallPackage, pyenv.OpRemovePackage:
		m.Registry.SetPackagePending(target.EnvPath, target.Package, true)
	}
	// Deleting drops the entity from the navigable list immediately, so the
	// selection must be re-derived now, not when the terminal event lands.
	m.ResolveEnvSelection()
	m.ResolvePackageSelection()
	return nil
}

// submitListPackages is submitOperation for the list refresh case, where a
// conflicting in-flight list is fine and needs no banner.
func submitListPackages(m *model.Model, target pyenv.Target) tea.Cmd {
	_, err := m.Executor.Submit(pyenv.OpListPackages, target)
	if err != nil {
		if errors.Is(err, executor.ErrConflict) {
			return nil
		}
		return m.SetStatusMessage(
			fmt.Sprintf("Package listing rejected: %v", err),
			model.StatusBarError, model.StatusBarClearDelay)
	}
	m.Registry.MarkProbing(target.EnvPath)
	m.ResolveEnvSelection()
	m.ResolvePackageSelection()
	return nil
}
