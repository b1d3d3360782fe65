package controller

import (
	"pyenvctl/internal/tui/model"
	"pyenvctl/internal/tui/view"

	tea "github.com/charmbracelet/bubbletea"
)

// AppModel wraps the model to handle updates and views
type AppModel struct {
	model *model.Model
}

// NewAppModel creates a new app wrapper
func NewAppModel(m *model.Model) AppModel {
	return AppModel{model: m}
}

// Init implements tea.Model
func (a AppModel) Init() tea.Cmd {
	return a.model.Init()
}

// Update implements tea.Model
func (a AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		a.model.Width = msg.Width
		a.model.Height = msg.Height
		if a.model.CurrentAppMode == model.ModeInitializing {
			a.model.CurrentAppMode = model.ModeBrowseEnvironments
		}
		return a, nil
	}

	updatedModel, cmd := mainControllerDispatch(a.model, msg)
	a.model = updatedModel
	return a, cmd
}

// View implements tea.Model
func (a AppModel) View() string {
	return view.Render(a.model)
}

// Err returns the fatal error the session ended with, if any. Callers use it
// to turn an aborted startup into a non-zero exit.
func (a AppModel) Err() error {
	return a.model.FatalError
}
