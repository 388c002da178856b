package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"reqview/pkg/model"
)

// projectState is the fuzzy-filtered project picker. Switching projects
// invalidates the whole hierarchy cache and reloads everything.
type projectState struct {
	all      []model.Project
	filtered []model.Project
	input    textinput.Model
	cursor   int
}

func (p *projectState) set(projects []model.Project) {
	ti := textinput.New()
	ti.Placeholder = "Search projects…"
	ti.Focus()
	ti.CharLimit = 48
	ti.Width = 32
	p.input = ti
	p.all = projects
	p.filtered = projects
	p.cursor = 0
}

// names implements fuzzy.Source over the project list.
type names []model.Project

func (n names) String(i int) string { return n[i].Name }
func (n names) Len() int            { return len(n) }

func (p *projectState) refilter() {
	query := p.input.Value()
	if query == "" {
		p.filtered = p.all
	} else {
		matches := fuzzy.FindFrom(query, names(p.all))
		p.filtered = make([]model.Project, 0, len(matches))
		for _, match := range matches {
			p.filtered = append(p.filtered, p.all[match.Index])
		}
	}
	if p.cursor >= len(p.filtered) {
		p.cursor = len(p.filtered) - 1
	}
	if p.cursor < 0 {
		p.cursor = 0
	}
}

func (m Model) updateProjects(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := &m.projects
	switch msg.String() {
	case "esc":
		m.mode = m.prevModeOr(modeTable)
		return m, nil
	case "down", "ctrl+n":
		if p.cursor < len(p.filtered)-1 {
			p.cursor++
		}
		return m, nil
	case "up", "ctrl+p":
		if p.cursor > 0 {
			p.cursor--
		}
		return m, nil
	case "ctrl+a":
		return m.openProjectForm()
	case "enter":
		if p.cursor < len(p.filtered) {
			proj := p.filtered[p.cursor]
			m.store.SetProject(proj.ID)
			m.editor = m.editor.ForProject(proj.ID)
			m.selection.Clear()
			m.graph = newGraphState()
			m.mode = modeTable
			m.loading = true
			next, cmd := m.showAlert(alertSuccess, "Switched to "+proj.Name)
			return next, tea.Batch(cmd, next.reloadCmd(), next.graphRefreshCmd())
		}
		return m, nil
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	p.refilter()
	return m, cmd
}

func (m Model) viewProjects() string {
	p := m.projects
	var b strings.Builder
	b.WriteString(TitleStyle.Render("  Projects") + "\n")
	b.WriteString("  " + p.input.View() + "\n")
	b.WriteString(RenderDivider(m.width/2) + "\n")

	for i, proj := range p.filtered {
		line := "  " + pad(proj.Name, 28) +
			MutedStyle.Render(itoa(proj.GroupsCount)+" groups · "+itoa(proj.RequirementsCount)+" reqs")
		if i == p.cursor {
			line = SelectedRowStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	if len(p.filtered) == 0 {
		b.WriteString(MutedStyle.Render("  no matches") + "\n")
	}

	help := MutedStyle.Render("  type to search · enter switch · ctrl+a new project · esc back")
	return lipgloss.JoinVertical(lipgloss.Left, b.String(), help)
}
