package model

import (
	"context"
	"time"

	"pyenvctl/internal/discovery"
	"pyenvctl/internal/executor"
	"pyenvctl/pkg/logging"

	tea "github.com/charmbracelet/bubbletea"
)

// scanTimeout caps one full discovery pass, external probes included.
const scanTimeout = 30 * time.Second

// ScanCmd creates a command that runs one discovery scan off the update loop.
func ScanCmd(provider discovery.Provider) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
		defer cancel()

		candidates, err := provider.Scan(ctx)
		return DiscoveryResultMsg{Candidates: candidates, Err: err}
	}
}

// WaitForOperationCmd blocks on the executor's event channel and pumps the
// next terminal event into the update loop. The controller re-issues it after
// each delivery so the loop keeps listening.
func WaitForOperationCmd(events <-chan executor.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return OperationEventMsg{Event: ev}
	}
}

// ListenForLogEntriesCmd pumps the next log entry into the update loop.
func ListenForLogEntriesCmd(ch <-chan logging.LogEntry) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		entry, ok := <-ch
		if !ok {
			return nil
		}
		return NewLogEntryMsg{Entry: entry}
	}
}
