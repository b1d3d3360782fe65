package controller

import (
	"fmt"

	"pyenvctl/internal/tui/model"
	"pyenvctl/pkg/logging"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

const controllerSubsystem = "Controller"

// mainControllerDispatch is the central message routing function for the TUI
// application. It receives all Bubble Tea messages and directs them to the
// appropriate handler based on the message type and current application mode.
// All registry mutation happens from here: executor goroutines and the
// discovery scan only reach the state through the messages routed below.
func mainControllerDispatch(m *model.Model, msg tea.Msg) (*model.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg.(type) {
	case spinner.TickMsg, model.NewLogEntryMsg:
		// Too frequent to log.
	default:
		if m.DebugMode {
			logging.Debug(controllerSubsystem, "Received msg: %T", msg)
		}
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		// ctrl+c quits from anywhere, including text inputs.
		if msg.String() == "ctrl+c" {
			m.CurrentAppMode = model.ModeQuitting
			m.QuittingMessage = "Shutting down..."
			return m, tea.Quit
		}
		return routeKeyMsg(m, msg)

	case model.DiscoveryResultMsg:
		return handleDiscoveryResult(m, msg)

	case model.OperationEventMsg:
		m, cmd = handleOperationEvent(m, msg.Event)
		// Keep listening for the next terminal event.
		cmds = append(cmds, cmd, model.WaitForOperationCmd(m.Events))
		return m, tea.Batch(cmds...)

	case model.ClearStatusBarMsg:
		m.StatusBarMessage = ""
		if m.StatusBarClearCancel != nil {
			close(m.StatusBarClearCancel)
			m.StatusBarClearCancel = nil
		}
		return m, nil

	case model.NewLogEntryMsg:
		m = handleNewLogEntry(m, msg)
		cmds = append(cmds, model.ListenForLogEntriesCmd(m.LogChannel))
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	default:
		// Text inputs consume whatever the focused widget understands
		// (cursor blinks and the like).
		switch m.CurrentAppMode {
		case model.ModeSearch:
			m.SearchInput, cmd = m.SearchInput.Update(msg)
		case model.ModeInputPrompt:
			m.PromptInput, cmd = m.PromptInput.Update(msg)
		}
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// routeKeyMsg fans key input out by application mode.
func routeKeyMsg(m *model.Model, msg tea.KeyMsg) (*model.Model, tea.Cmd) {
	switch m.CurrentAppMode {
	case model.ModeSearch:
		return handleKeySearch(m, msg)
	case model.ModeInputPrompt:
		return handleKeyPrompt(m, msg)
	case model.ModeConfirmDestructive:
		return handleKeyConfirm(m, msg)
	case model.ModeHelpOverlay:
		return handleKeyHelp(m, msg)
	case model.ModeBrowsePackages:
		return handleKeyBrowsePackages(m, msg)
	default:
		return handleKeyBrowseEnvironments(m, msg)
	}
}

func handleNewLogEntry(m *model.Model, msg model.NewLogEntryMsg) *model.Model {
	entry := msg.Entry

	// Debug entries reach the activity log only in debug mode.
	if entry.Level >= logging.LevelInfo || m.DebugMode {
		logLine := fmt.Sprintf("%s [%s] [%s] %s",
			entry.Timestamp.Format("15:04:05.000"),
			entry.Level.String(),
			entry.Subsystem,
			entry.Message)
		if entry.Err != nil {
			logLine = fmt.Sprintf("%s -- Error: %v", logLine, entry.Err)
		}
		model.AddRawLineToActivityLog(m, logLine)
	}
	return m
}
