package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Color palette - field-guide greens with warning amber
	primaryColor = lipgloss.Color("#7FB569") // moss green
	accentColor  = lipgloss.Color("#5CC8C2") // teal
	warningColor = lipgloss.Color("#F6AE2D") // amber warning
	errorColor   = lipgloss.Color("#E85D75") // soft red
	mutedColor   = lipgloss.Color("#6B7280") // gray
	textColor    = lipgloss.Color("#F3F4F6") // light text
	dimTextColor = lipgloss.Color("#9CA3AF") // dim text

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(dimTextColor).
			Italic(true)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(mutedColor).
			MarginTop(1).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(dimTextColor).
			Width(18)

	valueStyle = lipgloss.NewStyle().
			Foreground(textColor)

	focusedLabelStyle = lipgloss.NewStyle().
				Foreground(primaryColor).
				Bold(true).
				Width(18)

	selectionStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(dimTextColor)

	resultCursorStyle = lipgloss.NewStyle().
				Foreground(textColor).
				Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(1, 2).
			MarginTop(1)

	highlightBoxStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(primaryColor).
				Padding(1, 2).
				MarginTop(1)

	confirmPromptStyle = lipgloss.NewStyle().
				Foreground(warningColor).
				Bold(true).
				MarginTop(1)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(primaryColor)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true).
			MarginTop(2)

	// Icon characters
	iconSuccess = "✓"
	iconError   = "✗"
	iconArrow   = "→"
	iconToggle  = "◆"
	iconBlank   = "◇"
)
