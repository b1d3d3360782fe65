package view

import (
	"strings"

	"pyenvctl/internal/tui/model"

	"github.com/charmbracelet/lipgloss"
)

func placeOverlay(m *model.Model, box string) string {
	return lipgloss.Place(m.Width, m.Height, lipgloss.Center, lipgloss.Center, box)
}

func renderHelpOverlay(m *model.Model) string {
	title := HelpTitleStyle.Render("KEYBOARD SHORTCUTS")

	var lines []string
	for _, column := range m.Keys.FullHelp() {
		for _, binding := range column {
			h := binding.Help()
			lines = append(lines, lipgloss.NewStyle().Width(12).Render(h.Key)+h.Desc)
		}
		lines = append(lines, "")
	}

	content := title + "\n\n" + strings.Join(lines, "\n")
	return placeOverlay(m, OverlayStyle.Render(content))
}

func renderConfirmOverlay(m *model.Model) string {
	text := "Confirm? (y/n)"
	if m.Confirm != nil {
		text = m.Confirm.Text
	}
	box := OverlayStyle.BorderForeground(Error).Render(
		WarningStyle.Render(SafeIcon(IconWarning)+"Destructive action") + "\n\n" + text)
	return placeOverlay(m, box)
}

func renderPromptOverlay(m *model.Model) string {
	title := "New environment"
	if m.CurrentPrompt == model.PromptInstallPackage {
		title = "Install package"
		if m.ShowGlobal {
			title += " (global)"
		} else if env, ok := m.SelectedEnvironment(); ok {
			title += " into " + env.DisplayName()
		}
	}
	content := TitleStyle.Render(title) + "\n\n" +
		m.PromptInput.View() + "\n\n" +
		SubtleStyle.Render("enter confirm  •  esc cancel")
	return placeOverlay(m, OverlayStyle.Render(content))
}
