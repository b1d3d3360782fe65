package controller

import (
	"fmt"
	"strings"

	"pyenvctl/internal/pyenv"
	"pyenvctl/internal/tui/model"
	"pyenvctl/pkg/logging"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// handleKeyBrowseEnvironments covers the default mode with the environment
// pane focused.
func handleKeyBrowseEnvironments(m *model.Model, msg tea.KeyMsg) (*model.Model, tea.Cmd) {
	keys := m.Keys
	switch {
	case key.Matches(msg, keys.Quit):
		m.CurrentAppMode = model.ModeQuitting
		m.QuittingMessage = "Shutting down..."
		return m, tea.Quit

	case key.Matches(msg, keys.Up):
		moveEnvCursor(m, -1)
		return m, nil

	case key.Matches(msg, keys.Down):
		moveEnvCursor(m, 1)
		return m, nil

	case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Tab):
		return enterPackagePane(m)

	case key.Matches(msg, keys.NewEnv):
		m.LastAppMode = m.CurrentAppMode
		m.CurrentAppMode = model.ModeInputPrompt
		m.CurrentPrompt = model.PromptCreateEnv
		m.PromptInput.Placeholder = "new environment name"
		m.PromptInput.SetValue("")
		m.PromptInput.Focus()
		return m, nil

	case key.Matches(msg, keys.Delete):
		env, ok := m.SelectedEnvironment()
		if !ok {
			return m, nil
		}
		if env.Kind == pyenv.KindSystem {
			return m, m.SetStatusMessage("System interpreters cannot be deleted",
				model.StatusBarWarning, model.StatusBarClearDelay)
		}
		m.Confirm = &model.ConfirmRequest{
			Kind:   pyenv.OpDeleteEnv,
			Target: pyenv.Target{EnvPath: env.Path},
			Text:   model.PendingDeleteText(pyenv.OpDeleteEnv, env.DisplayName()),
		}
		m.LastAppMode = m.CurrentAppMode
		m.CurrentAppMode = model.ModeConfirmDestructive
		return m, nil

	case key.Matches(msg, keys.Install):
		return startInstallPrompt(m)

	case key.Matches(msg, keys.Search):
		m.LastAppMode = m.CurrentAppMode
		m.CurrentAppMode = model.ModeSearch
		m.SearchInput.SetValue(m.FilterQuery)
		m.SearchInput.Focus()
		return m, nil

	case key.Matches(msg, keys.Global):
		return toggleGlobalPackages(m)

	case key.Matches(msg, keys.Refresh):
		return triggerRescan(m)

	case key.Matches(msg, keys.CopyPath):
		return copySelectedPath(m)

	case key.Matches(msg, keys.CancelOps):
		return cancelSelectedOps(m)

	case key.Matches(msg, keys.Help):
		m.LastAppMode = m.CurrentAppMode
		m.CurrentAppMode = model.ModeHelpOverlay
		return m, nil
	}
	return m, nil
}

// handleKeyBrowsePackages covers the mode with the package pane focused.
func handleKeyBrowsePackages(m *model.Model, msg tea.KeyMsg) (*model.Model, tea.Cmd) {
	keys := m.Keys
	switch {
	case key.Matches(msg, keys.Quit):
		m.CurrentAppMode = model.ModeQuitting
		m.QuittingMessage = "Shutting down..."
		return m, tea.Quit

	case key.Matches(msg, keys.Up):
		movePackageCursor(m, -1)
		return m, nil

	case key.Matches(msg, keys.Down):
		movePackageCursor(m, 1)
		return m, nil

	case key.Matches(msg, keys.Esc), key.Matches(msg, keys.Tab):
		m.CurrentAppMode = model.ModeBrowseEnvironments
		m.FocusedPaneKey = model.EnvPaneFocusKey
		return m, nil

	case key.Matches(msg, keys.Install):
		return startInstallPrompt(m)

	case key.Matches(msg, keys.Remove), key.Matches(msg, keys.Delete):
		pkgs := m.VisiblePackages()
		if len(pkgs) == 0 || m.SelectedPackage == "" {
			return m, nil
		}
		m.Confirm = &model.ConfirmRequest{
			Kind:   pyenv.OpRemovePackage,
			Target: m.PackageTarget(m.SelectedPackage),
			Text:   model.PendingDeleteText(pyenv.OpRemovePackage, m.SelectedPackage),
		}
		m.LastAppMode = m.CurrentAppMode
		m.CurrentAppMode = model.ModeConfirmDestructive
		return m, nil

	case key.Matches(msg, keys.Global):
		return toggleGlobalPackages(m)

	case key.Matches(msg, keys.Refresh):
		// In the package pane a refresh reloads the visible list.
		return m, submitListPackages(m, m.PackageTarget(""))

	case key.Matches(msg, keys.CancelOps):
		return cancelSelectedOps(m)

	case key.Matches(msg, keys.Help):
		m.LastAppMode = m.CurrentAppMode
		m.CurrentAppMode = model.ModeHelpOverlay
		return m, nil
	}
	return m, nil
}

// handleKeySearch updates the live filter as the user types.
func handleKeySearch(m *model.Model, msg tea.KeyMsg) (*model.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		// Keep the selection the filter landed on, drop the filter itself.
		m.FilterQuery = ""
		m.SearchInput.Blur()
		m.CurrentAppMode = model.ModeBrowseEnvironments
		m.ResolveEnvSelection()
		return m, nil
	case "esc":
		m.FilterQuery = ""
		m.SearchInput.Blur()
		m.CurrentAppMode = model.ModeBrowseEnvironments
		m.ResolveEnvSelection()
		return m, nil
	case "up", "down":
		delta := -1
		if msg.String() == "down" {
			delta = 1
		}
		moveEnvCursor(m, delta)
		return m, nil
	}

	var cmd tea.Cmd
	m.SearchInput, cmd = m.SearchInput.Update(msg)
	m.FilterQuery = m.SearchInput.Value()
	m.ResolveEnvSelection()
	return m, cmd
}

// handleKeyPrompt collects a name for create or install.
func handleKeyPrompt(m *model.Model, msg tea.KeyMsg) (*model.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		value := strings.TrimSpace(m.PromptInput.Value())
		m.PromptInput.Blur()
		m.CurrentAppMode = m.LastAppMode
		if value == "" {
			return m, nil
		}
		switch m.CurrentPrompt {
		case model.PromptCreateEnv:
			target, err := m.Actions.CreateTarget(value)
			if err != nil {
				return m, m.SetStatusMessage(fmt.Sprintf("Invalid name: %v", err),
					model.StatusBarError, model.StatusBarClearDelay)
			}
			return m, submitOperation(m, pyenv.OpCreateEnv, target)
		case model.PromptInstallPackage:
			return m, submitOperation(m, pyenv.OpInstallPackage, m.PackageTarget(value))
		}
		return m, nil

	case "esc":
		m.PromptInput.Blur()
		m.CurrentAppMode = m.LastAppMode
		return m, nil
	}

	var cmd tea.Cmd
	m.PromptInput, cmd = m.PromptInput.Update(msg)
	return m, cmd
}

// handleKeyConfirm resolves a pending destructive action.
func handleKeyConfirm(m *model.Model, msg tea.KeyMsg) (*model.Model, tea.Cmd) {
	req := m.Confirm
	switch msg.String() {
	case "y", "Y", "enter":
		m.Confirm = nil
		m.CurrentAppMode = m.LastAppMode
		if req == nil {
			return m, nil
		}
		logging.Info(controllerSubsystem, "Confirmed %s for %q", req.Kind, req.Target.EnvPath)
		return m, submitOperation(m, req.Kind, req.Target)
	case "n", "N", "esc", "q":
		m.Confirm = nil
		m.CurrentAppMode = m.LastAppMode
		return m, nil
	}
	return m, nil
}

// handleKeyHelp closes the help overlay. Any key dismisses it.
func handleKeyHelp(m *model.Model, _ tea.KeyMsg) (*model.Model, tea.Cmd) {
	m.CurrentAppMode = m.LastAppMode
	return m, nil
}

// ---- shared key actions ----

func moveEnvCursor(m *model.Model, delta int) {
	visible := m.VisibleEnvironments()
	if len(visible) == 0 {
		return
	}
	idx := m.EnvCursor + delta
	if idx < 0 {
		idx = 0
	}
	if idx >= len(visible) {
		idx = len(visible) - 1
	}
	m.EnvCursor = idx
	m.SelectedEnvPath = visible[idx].Path
	m.ResolvePackageSelection()
}

func movePackageCursor(m *model.Model, delta int) {
	pkgs := m.VisiblePackages()
	if len(pkgs) == 0 {
		return
	}
	idx := m.PackageCursor + delta
	if idx < 0 {
		idx = 0
	}
	if idx >= len(pkgs) {
		idx = len(pkgs) - 1
	}
	m.PackageCursor = idx
	m.SelectedPackage = pkgs[idx].Name
}

func enterPackagePane(m *model.Model) (*model.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.ShowGlobal {
		if _, loaded := m.Registry.GlobalPackages(); !loaded {
			cmd = submitListPackages(m, pyenv.Target{})
		}
	} else {
		env, ok := m.SelectedEnvironment()
		if !ok {
			return m, nil
		}
		if !env.PackagesLoaded {
			cmd = submitListPackages(m, pyenv.Target{EnvPath: env.Path})
		}
	}
	m.CurrentAppMode = model.ModeBrowsePackages
	m.FocusedPaneKey = model.PackagePaneFocusKey
	m.ResolvePackageSelection()
	return m, cmd
}

func startInstallPrompt(m *model.Model) (*model.Model, tea.Cmd) {
	if !m.ShowGlobal {
		if _, ok := m.SelectedEnvironment(); !ok {
			return m, nil
		}
	}
	m.LastAppMode = m.CurrentAppMode
	m.CurrentAppMode = model.ModeInputPrompt
	m.CurrentPrompt = model.PromptInstallPackage
	m.PromptInput.Placeholder = "package to install"
	m.PromptInput.SetValue("")
	m.PromptInput.Focus()
	return m, nil
}

func toggleGlobalPackages(m *model.Model) (*model.Model, tea.Cmd) {
	m.ShowGlobal = !m.ShowGlobal
	var cmd tea.Cmd
	if m.ShowGlobal {
		if _, loaded := m.Registry.GlobalPackages(); !loaded {
			cmd = submitListPackages(m, pyenv.Target{})
		}
	}
	m.ResolvePackageSelection()
	return m, cmd
}

func triggerRescan(m *model.Model) (*model.Model, tea.Cmd) {
	if m.IsScanning {
		return m, nil
	}
	m.IsScanning = true
	logging.Info(controllerSubsystem, "Manual rescan requested")
	return m, model.ScanCmd(m.Discovery)
}

func copySelectedPath(m *model.Model) (*model.Model, tea.Cmd) {
	env, ok := m.SelectedEnvironment()
	if !ok {
		return m, nil
	}
	if err := clipboard.WriteAll(env.Path); err != nil {
		return m, m.SetStatusMessage(fmt.Sprintf("Copy failed: %v", err),
			model.StatusBarError, model.StatusBarClearDelay)
	}
	return m, m.SetStatusMessage("Environment path copied to clipboard",
		model.StatusBarSuccess, model.StatusBarClearDelay)
}

func cancelSelectedOps(m *model.Model) (*model.Model, tea.Cmd) {
	env, ok := m.SelectedEnvironment()
	if !ok {
		return m, nil
	}
	ids := m.Executor.PendingForEnv(env.Path)
	if len(ids) == 0 {
		return m, m.SetStatusMessage("No running operation for this environment",
			model.StatusBarInfo, model.StatusBarClearDelay)
	}
	for _, id := range ids {
		m.Executor.Cancel(id)
	}
	return m, m.SetStatusMessage(
		fmt.Sprintf("Cancellation requested for %d operation(s)", len(ids)),
		model.StatusBarWarning, model.StatusBarClearDelay)
}
