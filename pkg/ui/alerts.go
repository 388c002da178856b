package ui

import (
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// alertDuration is how long a notification stays visible.
const alertDuration = 3 * time.Second

type alertLevel int

const (
	alertSuccess alertLevel = iota
	alertWarning
	alertDanger
)

// alert is a transient, auto-dismissing notification in the status bar.
// Failed operations leave the prior view state intact; the alert is the
// only trace.
type alert struct {
	level alertLevel
	text  string
	seq   int
}

func (a alert) render() string {
	var fg lipgloss.Color
	switch a.level {
	case alertSuccess:
		fg = ColorSuccess
	case alertWarning:
		fg = ColorWarning
	case alertDanger:
		fg = ColorDanger
	}
	return lipgloss.NewStyle().Foreground(fg).Render(a.text)
}

// showAlert replaces the current notification and schedules its expiry.
func (m Model) showAlert(level alertLevel, text string) (Model, tea.Cmd) {
	m.alert.seq++
	m.alert.level = level
	m.alert.text = text
	seq := m.alert.seq
	return m, tea.Tick(alertDuration, func(time.Time) tea.Msg {
		return alertExpiredMsg{seq: seq}
	})
}

// shortErr keeps error text status-bar sized.
func shortErr(err error) string {
	s := err.Error()
	if len(s) > 120 {
		s = s[:117] + "..."
	}
	return s
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
