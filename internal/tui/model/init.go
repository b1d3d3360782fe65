package model

import (
	"pyenvctl/internal/actions"
	"pyenvctl/internal/config"
	"pyenvctl/internal/discovery"
	"pyenvctl/internal/executor"
	"pyenvctl/internal/pyenv"
	"pyenvctl/internal/registry"
	"pyenvctl/pkg/logging"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DefaultKeyMap returns a KeyMap with the default bindings used by the TUI.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("↑/k", "navigate up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("↓/j", "navigate down"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch pane"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open packages"),
		),
		Esc: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel/back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q/ctrl+c", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("x", "?"),
			key.WithHelp("x/?", "toggle help"),
		),
		NewEnv: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new environment"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete environment"),
		),
		Install: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "install package"),
		),
		Remove: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "remove package"),
		),
		Search: key.NewBinding(
			key.WithKeys("s", "/"),
			key.WithHelp("s,/", "search environments"),
		),
		Global: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "toggle global packages"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "rescan environments"),
		),
		CopyPath: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy environment path"),
		),
		CancelOps: key.NewBinding(
			key.WithKeys("ctrl+k"),
			key.WithHelp("ctrl+k", "cancel running operation"),
		),
	}
}

// InitialModel constructs the initial model with sensible defaults.
func InitialModel(
	cfg config.Config,
	reg *registry.Registry,
	exec *executor.Executor,
	disc discovery.Provider,
	acts *actions.PipProvider,
	debugMode bool,
	logChannel <-chan logging.LogEntry,
) *Model {
	search := textinput.New()
	search.Placeholder = "environment name"
	search.CharLimit = 128
	search.Width = 40

	prompt := textinput.New()
	prompt.CharLimit = 128
	prompt.Width = 40

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	m := &Model{
		CurrentAppMode: ModeInitializing,
		FocusedPaneKey: EnvPaneFocusKey,
		DebugMode:      debugMode,
		Registry:       reg,
		Executor:       exec,
		Discovery:      disc,
		Actions:        acts,
		Config:         cfg,
		SearchInput:    search,
		PromptInput:    prompt,
		IsScanning:     true,
		Spinner:        s,
		Keys:           DefaultKeyMap(),
		Help:           help.New(),
		ActivityLog:    make([]string, 0),
		LogChannel:     logChannel,
		Events:         exec.Events(),
	}
	return m
}

// Init implements the tea.Model contract for the wrapped model: kick off the
// first scan and start pumping the external channels.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.Spinner.Tick,
		ScanCmd(m.Discovery),
		WaitForOperationCmd(m.Events),
	}
	if logCmd := ListenForLogEntriesCmd(m.LogChannel); logCmd != nil {
		cmds = append(cmds, logCmd)
	}
	return tea.Batch(cmds...)
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Enter, k.NewEnv, k.Search, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Tab, k.Enter, k.Esc},
		{k.NewEnv, k.Delete, k.Install, k.Remove, k.CancelOps},
		{k.Search, k.Global, k.Refresh, k.CopyPath, k.Help, k.Quit},
	}
}

// PendingDeleteText builds the confirmation line for a destructive action.
func PendingDeleteText(kind pyenv.OpKind, name string) string {
	switch kind {
	case pyenv.OpDeleteEnv:
		return "Delete environment " + name + "? (y/n)"
	case pyenv.OpRemovePackage:
		return "Remove package " + name + "? (y/n)"
	default:
		return "Proceed with " + kind.String() + " on " + name + "? (y/n)"
	}
}
