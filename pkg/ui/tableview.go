package ui

import (
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"reqview/pkg/model"
)

// tableState holds the requirement table view.
type tableState struct {
	cursor        int
	offset        int
	visible       []model.Requirement
	filterInput   textinput.Model
	filterFocused bool
	statusIdx     int // 0 = no status filter, 1.. = AllStatuses()[i-1]
}

func newTableState() tableState {
	ti := textinput.New()
	ti.Placeholder = "Filter by id, title, description…"
	ti.CharLimit = 64
	ti.Width = 40
	return tableState{filterInput: ti}
}

func (m Model) updateTable(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	t := &m.table
	switch msg.String() {
	case "j", "down":
		if t.cursor < len(t.visible)-1 {
			t.cursor++
		}
	case "k", "up":
		if t.cursor > 0 {
			t.cursor--
		}
	case "home":
		t.cursor = 0
	case "end":
		t.cursor = len(t.visible) - 1
		if t.cursor < 0 {
			t.cursor = 0
		}
	case "/":
		t.filterFocused = true
		t.filterInput.Focus()
		return m, textinput.Blink
	case "f":
		// Cycle the status predicate: none → Draft → … → Completed → none.
		t.statusIdx = (t.statusIdx + 1) % (len(model.AllStatuses()) + 1)
		if t.statusIdx == 0 {
			m.filter.Status = ""
		} else {
			m.filter.Status = model.AllStatuses()[t.statusIdx-1]
		}
		m.refreshVisible()
	case " ":
		if r := m.currentRow(); r != nil {
			m.selection.Toggle(r.RequirementID)
		}
	case "A":
		ids := make([]string, 0, len(t.visible))
		for i := range t.visible {
			ids = append(ids, t.visible[i].RequirementID)
		}
		m.selection.SelectAll(ids)
	case "C":
		m.selection.Clear()
	case "y":
		if r := m.currentRow(); r != nil {
			if err := clipboard.WriteAll(r.RequirementID); err != nil {
				return m.showAlert(alertWarning, "Clipboard unavailable")
			}
			return m.showAlert(alertSuccess, "Copied "+r.RequirementID)
		}
	case "enter":
		if r := m.currentRow(); r != nil {
			m.prevMode = modeTable
			return m, m.detailCmd(r.RequirementID)
		}
	case "a":
		return m.openAddForm()
	case "e":
		if r := m.currentRow(); r != nil {
			return m.openEditForm(*r)
		}
	case "b":
		if m.selection.Len() == 0 {
			return m.showAlert(alertWarning, "Nothing selected for batch edit")
		}
		return m.openBatchForm()
	case "m":
		if r := m.currentRow(); r != nil {
			return m.openMoveForm(*r)
		}
	case "i":
		return m.openImportForm()
	case "o":
		return m.exportRequirements("csv")
	case "O":
		return m.exportRequirements("xlsx")
	case "D":
		if r := m.currentRow(); r != nil {
			return m.deleteRequirement(r.RequirementID)
		}
	}
	return m, nil
}

// exportRequirements downloads the server-side spreadsheet export into
// the working directory.
func (m Model) exportRequirements(format string) (tea.Model, tea.Cmd) {
	client := m.client
	projectID := m.store.ProjectID()
	path := "reqview-export." + format
	return m, func() tea.Msg {
		ctx, cancel := newRequestContext()
		defer cancel()
		f, err := os.Create(path)
		if err != nil {
			return exportDoneMsg{err: err}
		}
		defer f.Close()
		if format == "xlsx" {
			err = client.ExportExcel(ctx, projectID, f)
		} else {
			err = client.ExportCSV(ctx, projectID, f)
		}
		return exportDoneMsg{path: path, err: err}
	}
}

// updateTableFilter feeds keys into the filter text input.
func (m Model) updateTableFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.table.filterFocused = false
		m.table.filterInput.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.table.filterInput, cmd = m.table.filterInput.Update(msg)
	m.filter.Text = m.table.filterInput.Value()
	m.refreshVisible()
	return m, cmd
}

func (m *Model) currentRow() *model.Requirement {
	t := &m.table
	if t.cursor < 0 || t.cursor >= len(t.visible) {
		return nil
	}
	return &t.visible[t.cursor]
}

func (m Model) deleteRequirement(requirementID string) (tea.Model, tea.Cmd) {
	client := m.client
	return m, func() tea.Msg {
		ctx, cancel := newRequestContext()
		defer cancel()
		if err := client.DeleteRequirement(ctx, requirementID); err != nil {
			return mutationDoneMsg{err: err}
		}
		return mutationDoneMsg{notice: "Deleted " + requirementID}
	}
}

// column widths for the table; the title column absorbs the remainder.
const (
	colSel     = 2
	colID      = 12
	colStatus  = 6
	colChapter = 8
	colGroup   = 16
)

func (m Model) viewTable() string {
	t := m.table
	var b strings.Builder

	filterLine := "  " + t.filterInput.View()
	if m.filter.Status != "" {
		filterLine += "  " + MutedStyle.Render("status="+string(m.filter.Status))
	}
	b.WriteString(filterLine + "\n")
	b.WriteString(RenderDivider(m.width) + "\n")

	titleWidth := m.width - colSel - colID - colStatus - colChapter - colGroup - 6*SpaceXS
	if titleWidth < 10 {
		titleWidth = 10
	}

	header := pad("", colSel) + " " +
		pad("ID", colID) + " " +
		pad("TITLE", titleWidth) + " " +
		pad("STATUS", colStatus) + " " +
		pad("CHAPTER", colChapter) + " " +
		pad("GROUP", colGroup)
	b.WriteString(MutedStyle.Render(header) + "\n")

	rows := m.height - 6
	if rows < 1 {
		rows = 1
	}
	start := 0
	if t.cursor >= rows {
		start = t.cursor - rows + 1
	}

	for i := start; i < len(t.visible) && i < start+rows; i++ {
		r := t.visible[i]
		mark := "  "
		if m.selection.Contains(r.RequirementID) {
			mark = CheckedStyle.Render("✓ ")
		}
		line := mark + " " +
			pad(r.RequirementID, colID) + " " +
			pad(r.Title, titleWidth) + " " +
			RenderStatusBadge(r.Status) + " " +
			pad(r.Chapter, colChapter) + " " +
			pad(r.GroupName, colGroup)
		if i == t.cursor {
			line = SelectedRowStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	if len(t.visible) == 0 {
		b.WriteString(MutedStyle.Render("  No requirements match the filter") + "\n")
	}

	help := MutedStyle.Render("  j/k move · space select · / filter · f status · a add · e edit · b batch · m move · i import · o/O export · enter detail")
	return lipgloss.JoinVertical(lipgloss.Left, b.String(), help)
}

// pad truncates or pads s to exactly width display cells.
func pad(s string, width int) string {
	s = runewidth.Truncate(s, width, "…")
	return s + strings.Repeat(" ", width-runewidth.StringWidth(s))
}
