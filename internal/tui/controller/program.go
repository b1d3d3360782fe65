package controller

import (
	"pyenvctl/internal/actions"
	"pyenvctl/internal/config"
	"pyenvctl/internal/discovery"
	"pyenvctl/internal/executor"
	"pyenvctl/internal/pyenv"
	"pyenvctl/internal/registry"
	"pyenvctl/internal/tui/model"
	"pyenvctl/internal/tui/view"
	"pyenvctl/pkg/logging"

	tea "github.com/charmbracelet/bubbletea"
)

// NewProgram wires registry, executor, discovery and action provider together
// and returns the Bubble Tea program ready to run.
func NewProgram(
	cfg config.Config,
	debugMode bool,
	logChannel <-chan logging.LogEntry,
) (*tea.Program, error) {
	view.ApplyColorMode(cfg.UI.ColorMode)
	reg := registry.New()

	kindOf := func(envPath string) (pyenv.EnvKind, bool) {
		if envPath == "" {
			return pyenv.KindSystem, true
		}
		e, ok := reg.Get(envPath)
		if !ok {
			return pyenv.KindOther, false
		}
		return e.Kind, true
	}
	acts := actions.NewPipProvider(kindOf, cfg.Discovery.PythonCommand)
	exec := executor.New(acts, nil)
	disc := discovery.NewFilesystemProvider(cfg.Discovery)

	m := model.InitialModel(cfg, reg, exec, disc, acts, debugMode, logChannel)

	app := NewAppModel(m)
	p := tea.NewProgram(app, tea.WithAltScreen())
	return p, nil
}
