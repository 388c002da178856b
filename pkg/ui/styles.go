package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"reqview/pkg/model"
)

// ══════════════════════════════════════════════════════════════════════════════
// DESIGN TOKENS - Consistent spacing, colors, and visual language
// ══════════════════════════════════════════════════════════════════════════════

// Spacing constants for consistent layout (in characters)
const (
	SpaceXS = 1
	SpaceSM = 2
	SpaceMD = 3
	SpaceLG = 4
)

var (
	// Base colors
	ColorBg          = lipgloss.Color("#282A36")
	ColorBgSubtle    = lipgloss.Color("#363949")
	ColorBgHighlight = lipgloss.Color("#44475A")
	ColorText        = lipgloss.Color("#F8F8F2")
	ColorSubtext     = lipgloss.Color("#BFBFBF")
	ColorMuted       = lipgloss.Color("#6272A4")

	// Accent colors
	ColorPrimary = lipgloss.Color("#BD93F9")
	ColorInfo    = lipgloss.Color("#8BE9FD")
	ColorSuccess = lipgloss.Color("#50FA7B")
	ColorWarning = lipgloss.Color("#FFB86C")
	ColorDanger  = lipgloss.Color("#FF5555")

	// Status colors
	ColorStatusDraft      = lipgloss.Color("#BFBFBF")
	ColorStatusInProgress = lipgloss.Color("#8BE9FD")
	ColorStatusReview     = lipgloss.Color("#F1FA8C")
	ColorStatusCompleted  = lipgloss.Color("#50FA7B")

	// Status background colors (for badges)
	ColorStatusDraftBg      = lipgloss.Color("#2A2A3D")
	ColorStatusInProgressBg = lipgloss.Color("#1A3344")
	ColorStatusReviewBg     = lipgloss.Color("#3D3D1A")
	ColorStatusCompletedBg  = lipgloss.Color("#1A3D2A")

	// Armed-source highlight for the graph connect gesture
	ColorArmed   = lipgloss.Color("#FFE066")
	ColorArmedBg = lipgloss.Color("#3D3A1A")
)

var (
	// PanelStyle is the default style for unfocused panels
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBgHighlight)

	// FocusedPanelStyle is the style for focused panels
	FocusedPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorPrimary)

	// TitleStyle renders view titles in the status bar
	TitleStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	// SelectedRowStyle highlights the cursor row in the table
	SelectedRowStyle = lipgloss.NewStyle().
				Background(ColorBgHighlight).
				Foreground(ColorText)

	// CheckedStyle marks batch-selected rows
	CheckedStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess).
			Bold(true)

	// MutedStyle renders secondary text
	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// ArmedStyle highlights the armed source node
	ArmedStyle = lipgloss.NewStyle().
			Foreground(ColorArmed).
			Background(ColorArmedBg).
			Bold(true)
)

// RenderStatusBadge returns a styled status badge
func RenderStatusBadge(status model.Status) string {
	var fg, bg lipgloss.Color
	var label string

	switch status {
	case model.StatusDraft:
		fg, bg, label = ColorStatusDraft, ColorStatusDraftBg, "DRFT"
	case model.StatusInProgress:
		fg, bg, label = ColorStatusInProgress, ColorStatusInProgressBg, "PROG"
	case model.StatusReview:
		fg, bg, label = ColorStatusReview, ColorStatusReviewBg, "RVEW"
	case model.StatusCompleted:
		fg, bg, label = ColorStatusCompleted, ColorStatusCompletedBg, "DONE"
	default:
		fg, bg, label = ColorMuted, ColorBgSubtle, "????"
	}

	return lipgloss.NewStyle().
		Foreground(fg).
		Background(bg).
		Render(label)
}

// StatusColor returns the foreground color for a status.
func StatusColor(status model.Status) lipgloss.Color {
	switch status {
	case model.StatusDraft:
		return ColorStatusDraft
	case model.StatusInProgress:
		return ColorStatusInProgress
	case model.StatusReview:
		return ColorStatusReview
	case model.StatusCompleted:
		return ColorStatusCompleted
	}
	return ColorMuted
}

// RenderDivider renders a horizontal divider line
func RenderDivider(width int) string {
	if width <= 0 {
		return ""
	}
	return lipgloss.NewStyle().
		Foreground(ColorBgHighlight).
		Render(strings.Repeat("─", width))
}
