package model

import (
	"time"

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
)

// AppMode represents the current mode of the application
type AppMode int

const (
	ModeInitializing AppMode = iota
	ModeBrowseEnvironments
	ModeBrowsePackages
	ModeSearch
	ModeInputPrompt
	ModeConfirmDestructive
	ModeHelpOverlay
	ModeQuitting
)

// String provides a human-readable representation of the AppMode.
func (m AppMode) String() string {
	switch m {
	case ModeInitializing:
		return "Initializing"
	case ModeBrowseEnvironments:
		return "BrowseEnvironments"
	case ModeBrowsePackages:
		return "BrowsePackages"
	case ModeSearch:
		return "Search"
	case ModeInputPrompt:
		return "InputPrompt"
	case ModeConfirmDestructive:
		return "ConfirmDestructive"
	case ModeHelpOverlay:
		return "HelpOverlay"
	case ModeQuitting:
		return "Quitting"
	default:
		return "Unknown"
	}
}

// PromptKind says what the text prompt collects.
type PromptKind int

const (
	PromptCreateEnv PromptKind = iota
	PromptInstallPackage
)

// MessageType represents the type of status bar message
type MessageType int

const (
	StatusBarInfo MessageType = iota
	StatusBarSuccess
	StatusBarError
	StatusBarWarning
)

// Constants for UI
const (
	MaxActivityLogLines = 500
	EnvPaneFocusKey     = "env-pane"
	PackagePaneFocusKey = "package-pane"
	StatusBarClearDelay = 3 * time.Second
)

// KeyMap defines all the key bindings for the application
type KeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Tab       key.Binding
	Enter     key.Binding
	Esc       key.Binding
	Quit      key.Binding
	Help      key.Binding
	NewEnv    key.Binding
	Delete    key.Binding
	Install   key.Binding
	Remove    key.Binding
	Search    key.Binding
	Global    key.Binding
	Refresh   key.Binding
	CopyPath  key.Binding
	CancelOps key.Binding
}

// ConfirmRequest carries the pending destructive action while the user
// decides.
type ConfirmRequest struct {
	Kind   pyenv.OpKind
	Target pyenv.Target
	Text   string
}

// Model holds all mutable TUI state. It is owned by the Bubble Tea update
// loop; nothing outside the controller writes to it.
type Model struct {
	// Terminal dimensions
	Width  int
	Height int

	CurrentAppMode  AppMode
	LastAppMode     AppMode
	FocusedPaneKey  string
	QuittingMessage string
	DebugMode       bool

	// Domain state and services
	Registry  *registry.Registry
	Executor  *executor.Executor
	Discovery discovery.Provider
	Actions   *actions.PipProvider
	Config    config.Config

	// Selection is tracked by identity plus the index it last occupied, so
	// it can survive refreshes and fall back sensibly when the entity is
	// gone.
	SelectedEnvPath string
	EnvCursor       int
	SelectedPackage string
	PackageCursor   int

	// Package pane scope: the selected environment or the interpreter-wide
	// global site.
	ShowGlobal bool

	// Search / filter
	FilterQuery string
	SearchInput textinput.Model

	// Text prompt (create environment, install package)
	PromptInput   textinput.Model
	CurrentPrompt PromptKind

	// Pending destructive confirmation
	Confirm *ConfirmRequest

	IsScanning bool
	Spinner    spinner.Model

	// FirstScanDone distinguishes the startup scan from later refreshes: a
	// failed startup scan is fatal, a failed refresh is a banner.
	FirstScanDone bool

	// FatalError makes the run exit non-zero after the program stops.
	FatalError error

	Keys KeyMap
	Help help.Model

	StatusBarMessage     string
	StatusBarMessageType MessageType
	StatusBarClearCancel chan struct{}

	// UI State & Output
	ActivityLog      []string
	ActivityLogDirty bool

	// Channels feeding the update loop
	LogChannel <-chan logging.LogEntry
	Events     <-chan executor.Event
}

// VisibleEnvironments returns the navigable environments with the current
// filter applied, in registry order.
func (m *Model) VisibleEnvironments() []*pyenv.Environment {
	return registry.FilterByName(m.Registry.Navigable(), m.FilterQuery)
}

// SelectedEnvironment resolves the selected identity against the registry.
func (m *Model) SelectedEnvironment() (*pyenv.Environment, bool) {
	if m.SelectedEnvPath == "" {
		return nil, false
	}
	return m.Registry.Get(m.SelectedEnvPath)
}

// VisiblePackages returns the list the package pane shows: the selected
// environment's packages, or the global list when ShowGlobal is on.
func (m *Model) VisiblePackages() []pyenv.Package {
	if m.ShowGlobal {
		pkgs, _ := m.Registry.GlobalPackages()
		return pkgs
	}
	if env, ok := m.SelectedEnvironment(); ok {
		return env.Packages
	}
	return nil
}

// PackageTarget returns the operation target for the package pane scope.
func (m *Model) PackageTarget(pkgName string) pyenv.Target {
	if m.ShowGlobal {
		return pyenv.Target{Package: pkgName}
	}
	return pyenv.Target{EnvPath: m.SelectedEnvPath, Package: pkgName}
}

// ResolveEnvSelection re-derives the environment cursor after any change to
// the visible list. Identity wins; a vanished identity falls back to the old
// index clamped into range, then to the last entry, then to nothing.
func (m *Model) ResolveEnvSelection() {
	visible := m.VisibleEnvironments()
	if len(visible) == 0 {
		m.SelectedEnvPath = ""
		m.EnvCursor = 0
		return
	}
	for i, e := range visible {
		if e.Path == m.SelectedEnvPath {
			m.EnvCursor = i
			return
		}
	}
	idx := m.EnvCursor
	if idx >= len(visible) {
		idx = len(visible) - 1
	}
	if idx < 0 {
		idx = 0
	}
	m.EnvCursor = idx
	m.SelectedEnvPath = visible[idx].Path
}

// ResolvePackageSelection does the same for the package pane.
func (m *Model) ResolvePackageSelection() {
	pkgs := m.VisiblePackages()
	if len(pkgs) == 0 {
		m.SelectedPackage = ""
		m.PackageCursor = 0
		return
	}
	for i, p := range pkgs {
		if p.Name == m.SelectedPackage {
			m.PackageCursor = i
			return
		}
	}
	idx := m.PackageCursor
	if idx >= len(pkgs) {
		idx = len(pkgs) - 1
	}
	if idx < 0 {
		idx = 0
	}
	m.PackageCursor = idx
	m.SelectedPackage = pkgs[idx].Name
}

// SetStatusMessage updates the status bar message and schedules its expiry.
// An earlier pending expiry is cancelled so it cannot clear a newer message.
func (m *Model) SetStatusMessage(message string, msgType MessageType, clearAfter time.Duration) tea.Cmd {
	m.StatusBarMessage = message
	m.StatusBarMessageType = msgType

	if m.StatusBarClearCancel != nil {
		close(m.StatusBarClearCancel)
	}
	m.StatusBarClearCancel = make(chan struct{})
	captured := m.StatusBarClearCancel

	return tea.Tick(clearAfter, func(t time.Time) tea.Msg {
		select {
		case <-captured:
			return nil
		default:
			return ClearStatusBarMsg{}
		}
	})
}

// AddRawLineToActivityLog appends one pre-formatted line to the activity log,
// trimming the front when the buffer exceeds MaxActivityLogLines.
func AddRawLineToActivityLog(m *Model, entry string) {
	m.ActivityLog = append(m.ActivityLog, entry)
	if len(m.ActivityLog) > MaxActivityLogLines {
		m.ActivityLog = m.ActivityLog[len(m.ActivityLog)-MaxActivityLogLines:]
	}
	m.ActivityLogDirty = true
}
