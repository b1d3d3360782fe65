package model

import (
	"pyenvctl/internal/executor"
	"pyenvctl/internal/pyenv"
	"pyenvctl/pkg/logging"
)

// ---- Discovery messages ----

// DiscoveryResultMsg carries one completed environment scan.
type DiscoveryResultMsg struct {
	Candidates []pyenv.Candidate
	Err        error
}

// ---- Operation messages ----

// OperationEventMsg wraps a terminal event from the executor.
type OperationEventMsg struct {
	Event executor.Event
}

// ---- Logging ----

// NewLogEntryMsg delivers one log entry from the TUI log channel.
type NewLogEntryMsg struct {
	Entry logging.LogEntry
}

// ---- Status bar ----

type ClearStatusBarMsg struct{}
