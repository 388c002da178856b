package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"reqview/pkg/model"
)

// treeRow is one visible line in the group tree.
type treeRow struct {
	group    model.Group
	depth    int
	hasKids  bool
	reqCount int
}

// treeState holds the group tree view.
type treeState struct {
	cursor    int
	rows      []treeRow
	collapsed map[string]bool
	groups    []model.Group
}

func newTreeState() treeState {
	return treeState{collapsed: map[string]bool{}}
}

// rebuild recomputes the visible rows from the group tree, counting
// requirements per group from the flat list.
func (t *treeState) rebuild(groups []model.Group, reqs []model.Requirement) {
	t.groups = groups
	counts := map[string]int{}
	for _, r := range reqs {
		counts[r.GroupID]++
	}

	t.rows = t.rows[:0]
	var walk func(gs []model.Group, depth int)
	walk = func(gs []model.Group, depth int) {
		for _, g := range gs {
			t.rows = append(t.rows, treeRow{
				group:    g,
				depth:    depth,
				hasKids:  len(g.Children) > 0,
				reqCount: counts[g.ID],
			})
			if !t.collapsed[g.ID] {
				walk(g.Children, depth+1)
			}
		}
	}
	walk(groups, 0)

	if t.cursor >= len(t.rows) {
		t.cursor = len(t.rows) - 1
	}
	if t.cursor < 0 {
		t.cursor = 0
	}
}

func (m Model) updateTree(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	t := &m.tree
	switch msg.String() {
	case "j", "down":
		if t.cursor < len(t.rows)-1 {
			t.cursor++
		}
	case "k", "up":
		if t.cursor > 0 {
			t.cursor--
		}
	case "enter", "l", "h":
		if t.cursor < len(t.rows) {
			row := t.rows[t.cursor]
			if row.hasKids {
				t.collapsed[row.group.ID] = !t.collapsed[row.group.ID]
				snap := m.store.Snapshot()
				t.rebuild(snap.Groups, snap.Requirements)
			}
		}
	case "g":
		// Scope the table filter to the highlighted group and jump there.
		if t.cursor < len(t.rows) {
			m.filter.GroupID = t.rows[t.cursor].group.ID
			m.refreshVisible()
			m.mode = modeTable
			return m.showAlert(alertSuccess, "Table scoped to "+t.rows[t.cursor].group.Name)
		}
	case "c":
		m.filter.GroupID = ""
		m.refreshVisible()
		return m.showAlert(alertSuccess, "Group scope cleared")
	case "a":
		return m.openGroupForm(nil)
	case "e":
		if t.cursor < len(t.rows) {
			g := t.rows[t.cursor].group
			return m.openGroupForm(&g)
		}
	case "D":
		if t.cursor < len(t.rows) {
			return m.deleteGroup(t.rows[t.cursor].group)
		}
	}
	return m, nil
}

func (m Model) deleteGroup(g model.Group) (tea.Model, tea.Cmd) {
	client := m.client
	return m, func() tea.Msg {
		ctx, cancel := newRequestContext()
		defer cancel()
		if err := client.DeleteGroup(ctx, g.ID); err != nil {
			return mutationDoneMsg{err: err}
		}
		return mutationDoneMsg{notice: "Deleted group " + g.Name}
	}
}

func (m Model) viewTree() string {
	t := m.tree
	var b strings.Builder
	b.WriteString(TitleStyle.Render("  Groups") + "\n")
	b.WriteString(RenderDivider(m.width) + "\n")

	rows := m.height - 5
	if rows < 1 {
		rows = 1
	}
	start := 0
	if t.cursor >= rows {
		start = t.cursor - rows + 1
	}

	for i := start; i < len(t.rows) && i < start+rows; i++ {
		row := t.rows[i]
		indent := strings.Repeat("  ", row.depth)
		branch := "· "
		if row.hasKids {
			if t.collapsed[row.group.ID] {
				branch = "▸ "
			} else {
				branch = "▾ "
			}
		}
		line := "  " + indent + branch + row.group.Name +
			MutedStyle.Render("  ("+itoa(row.reqCount)+")")
		if i == t.cursor {
			line = SelectedRowStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	if len(t.rows) == 0 {
		b.WriteString(MutedStyle.Render("  No groups yet; press a to add one") + "\n")
	}

	help := MutedStyle.Render("  j/k move · enter fold · g scope table · c clear scope · a add · e edit · D delete")
	return lipgloss.JoinVertical(lipgloss.Left, b.String(), help)
}
