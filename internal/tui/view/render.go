package view

import (
	"fmt"
	"strings"

	"pyenvctl/internal/pyenv"
	"pyenvctl/internal/tui/model"

	"github.com/charmbracelet/lipgloss"
)

// minHeightForLogView is the minimum terminal height (in lines) required to
// show the activity log in the main view.
const minHeightForLogView = 24

// Render renders the UI according to the current model state.
func Render(m *model.Model) string {
	switch m.CurrentAppMode {
	case model.ModeQuitting:
		return SubtleStyle.Render(m.QuittingMessage)
	case model.ModeInitializing:
		if m.Width == 0 || m.Height == 0 {
			return SubtleStyle.Render("Initializing... (waiting for window size)")
		}
		return SubtleStyle.Render("Initializing...")
	case model.ModeHelpOverlay:
		return renderHelpOverlay(m)
	case model.ModeConfirmDestructive:
		return renderConfirmOverlay(m)
	case model.ModeInputPrompt:
		return renderPromptOverlay(m)
	default:
		return renderMain(m)
	}
}

func renderMain(m *model.Model) string {
	contentWidth := m.Width
	if contentWidth <= 0 {
		contentWidth = 80
	}

	headerView := renderHeader(m, contentWidth)
	statusBar := renderStatusBar(m, contentWidth)

	bodyHeight := m.Height - lipgloss.Height(headerView) - lipgloss.Height(statusBar) - 1
	logView := ""
	if m.Height >= minHeightForLogView {
		logHeight := bodyHeight / 4
		if logHeight > 8 {
			logHeight = 8
		}
		if logHeight >= 3 {
			logView = renderLogPanel(m, contentWidth, logHeight)
			bodyHeight -= lipgloss.Height(logView)
		}
	}
	if bodyHeight < 3 {
		bodyHeight = 3
	}

	// Environment list on the left third, packages on the remainder.
	envWidth := contentWidth * 3 / 10
	if envWidth < 24 {
		envWidth = 24
	}
	pkgWidth := contentWidth - envWidth - 2
	if pkgWidth < 20 {
		pkgWidth = 20
	}

	envPane := renderEnvironmentPane(m, envWidth, bodyHeight)
	pkgPane := renderPackagePane(m, pkgWidth, bodyHeight)
	panes := lipgloss.JoinHorizontal(lipgloss.Top, envPane, pkgPane)

	parts := []string{headerView, panes}
	if logView != "" {
		parts = append(parts, logView)
	}
	parts = append(parts, statusBar)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderHeader(m *model.Model, width int) string {
	title := TitleStyle.Render(SafeIcon(IconSnake) + "pyenvctl")
	right := ""
	if m.IsScanning {
		right = m.Spinner.View() + " scanning..."
	} else {
		right = fmt.Sprintf("%d environments", len(m.VisibleEnvironments()))
	}
	if m.FilterQuery != "" {
		right += SubtleStyle.Render(fmt.Sprintf("  filter: %q", m.FilterQuery))
	}

	gap := width - lipgloss.Width(title) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return lipgloss.NewStyle().Width(width).Render(title + strings.Repeat(" ", gap) + right)
}

func renderEnvironmentPane(m *model.Model, width, height int) string {
	style := PanelStyle
	if m.FocusedPaneKey == model.EnvPaneFocusKey {
		style = FocusedPanelStyle
	}
	innerWidth := width - style.GetHorizontalFrameSize()
	innerHeight := height - style.GetVerticalFrameSize() - 1

	title := TitleStyle.Render("Environments")
	lines := []string{title}

	visible := m.VisibleEnvironments()
	if len(visible) == 0 {
		if m.IsScanning {
			lines = append(lines, SubtleStyle.Render("Scanning..."))
		} else {
			lines = append(lines, SubtleStyle.Render("No environments found"))
		}
	}

	start := scrollOffset(m.EnvCursor, len(visible), innerHeight)
	for i := start; i < len(visible) && i-start < innerHeight; i++ {
		env := visible[i]
		line := environmentLine(env, innerWidth)
		if i == m.EnvCursor {
			line = SelectedRowStyle.Width(innerWidth).Render(line)
		}
		lines = append(lines, line)
	}

	content := strings.Join(lines, "\n")
	return style.Width(innerWidth).Height(height - style.GetVerticalFrameSize()).Render(content)
}

func environmentLine(env *pyenv.Environment, width int) string {
	marker := ""
	switch env.State {
	case pyenv.StateProbing:
		marker = SafeIcon(IconHourglass)
	case pyenv.StateDeleting:
		marker = SafeIcon(IconTrash)
	}
	label := fmt.Sprintf("%s%s (%s)", marker, env.DisplayName(), env.Kind)
	if env.PythonVersion != "" {
		label += " " + SubtleStyle.Render(env.PythonVersion)
	}
	if env.LastError != "" {
		label = SafeIcon(IconWarning) + label
	}
	return Truncate(label, width)
}

func renderPackagePane(m *model.Model, width, height int) string {
	style := PanelStyle
	if m.FocusedPaneKey == model.PackagePaneFocusKey {
		style = FocusedPanelStyle
	}
	innerWidth := width - style.GetHorizontalFrameSize()
	innerHeight := height - style.GetVerticalFrameSize() - 1

	title := packagePaneTitle(m)
	lines := []string{title}

	pkgs := m.VisiblePackages()
	if len(pkgs) == 0 {
		lines = append(lines, packagePaneEmptyText(m))
	}

	start := scrollOffset(m.PackageCursor, len(pkgs), innerHeight)
	for i := start; i < len(pkgs) && i-start < innerHeight; i++ {
		p := pkgs[i]
		line := fmt.Sprintf("%-30s %s", Truncate(p.Name, 30), p.Version)
		if p.Pending {
			line = SafeIcon(IconHourglass) + line
		}
		line = Truncate(line, innerWidth)
		if i == m.PackageCursor && m.FocusedPaneKey == model.PackagePaneFocusKey {
			line = SelectedRowStyle.Width(innerWidth).Render(line)
		}
		lines = append(lines, line)
	}

	content := strings.Join(lines, "\n")
	return style.Width(innerWidth).Height(height - style.GetVerticalFrameSize()).Render(content)
}

func packagePaneTitle(m *model.Model) string {
	if m.ShowGlobal {
		return TitleStyle.Render(SafeIcon(IconGlobe) + "Global Packages")
	}
	if env, ok := m.SelectedEnvironment(); ok {
		return TitleStyle.Render(SafeIcon(IconPackage) + "Packages: " + env.DisplayName())
	}
	return TitleStyle.Render(SafeIcon(IconPackage) + "Packages")
}

func packagePaneEmptyText(m *model.Model) string {
	if m.ShowGlobal {
		if err := m.Registry.GlobalError(); err != "" {
			return ErrorStyle.Render("Load failed: " + err)
		}
		if _, loaded := m.Registry.GlobalPackages(); !loaded {
			return SubtleStyle.Render("Press enter to load global packages")
		}
		return SubtleStyle.Render("No packages installed")
	}
	env, ok := m.SelectedEnvironment()
	if !ok {
		return SubtleStyle.Render("Select an environment")
	}
	if env.State == pyenv.StateProbing {
		return SubtleStyle.Render("Loading packages...")
	}
	if env.LastError != "" {
		return ErrorStyle.Render("Load failed: " + env.LastError)
	}
	if !env.PackagesLoaded {
		return SubtleStyle.Render("Press enter to load packages")
	}
	return SubtleStyle.Render("No packages installed")
}

func renderStatusBar(m *model.Model, width int) string {
	if m.CurrentAppMode == model.ModeSearch {
		return StatusBarStyle.Width(width).Render(
			SafeIcon(IconSearch) + "Search: " + m.SearchInput.View())
	}

	text := m.StatusBarMessage
	if text == "" {
		text = m.Help.ShortHelpView(m.Keys.ShortHelp())
		return StatusBarStyle.Width(width).Render(text)
	}

	var styled string
	switch m.StatusBarMessageType {
	case model.StatusBarSuccess:
		styled = SuccessStyle.Render(SafeIcon(IconCheck) + text)
	case model.StatusBarError:
		styled = ErrorStyle.Render(SafeIcon(IconCross) + text)
	case model.StatusBarWarning:
		styled = WarningStyle.Render(SafeIcon(IconWarning) + text)
	default:
		styled = InfoStyle.Render(text)
	}
	return StatusBarStyle.Width(width).Render(Truncate(styled, width-2))
}

func renderLogPanel(m *model.Model, width, height int) string {
	innerHeight := height - 1
	title := SubtleStyle.Render(SafeIcon(IconScroll) + "Activity")

	lines := m.ActivityLog
	if len(lines) > innerHeight {
		lines = lines[len(lines)-innerHeight:]
	}
	styled := make([]string, 0, len(lines)+1)
	styled = append(styled, title)
	for _, l := range lines {
		styled = append(styled, Truncate(styleLogLine(l), width-2))
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(styled, "\n"))
}

// styleLogLine wraps the line in a style matching its level marker.
func styleLogLine(l string) string {
	switch {
	case strings.Contains(l, "[ERROR]"):
		return LogErrorStyle.Render(l)
	case strings.Contains(l, "[WARN]"):
		return LogWarnStyle.Render(l)
	case strings.Contains(l, "[DEBUG]"):
		return LogDebugStyle.Render(l)
	default:
		return LogInfoStyle.Render(l)
	}
}

// scrollOffset keeps the cursor visible inside a window of visibleRows.
func scrollOffset(cursor, total, visibleRows int) int {
	if visibleRows <= 0 || total <= visibleRows {
		return 0
	}
	start := cursor - visibleRows/2
	if start < 0 {
		start = 0
	}
	if start > total-visibleRows {
		start = total - visibleRows
	}
	return start
}
