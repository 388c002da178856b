package ui

import (
	"fmt"
	"os"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"reqview/pkg/export"
	"reqview/pkg/graphedit"
	"reqview/pkg/layout"
	"reqview/pkg/model"
)

// dragStep is how far one arrow key moves a node, in graph coordinates.
const dragStep = 20.0

// graphState holds the hierarchy graph view. It renders a synced copy of
// the editor's view-model; all mutations go through the editor.
type graphState struct {
	nodes      []model.GraphNode
	edges      []model.GraphEdge
	order      []string // node ids in display order for cursor cycling
	cursor     int
	edgeFocus  bool
	edgeCursor int
	moved      map[string]bool // dragged since last save
}

func newGraphState() graphState {
	return graphState{moved: map[string]bool{}}
}

// sync pulls the editor's current graph into the view.
func (g *graphState) sync(editor *graphedit.Editor) {
	graph := editor.Graph()
	g.nodes = graph.Nodes
	g.edges = graph.Edges
	g.order = g.order[:0]
	for _, n := range g.nodes {
		g.order = append(g.order, n.RequirementID)
	}
	sort.Strings(g.order)
	if g.cursor >= len(g.order) {
		g.cursor = len(g.order) - 1
	}
	if g.cursor < 0 {
		g.cursor = 0
	}
	if g.edgeCursor >= len(g.edges) {
		g.edgeFocus = false
		g.edgeCursor = 0
	}
}

func (g *graphState) focused() string {
	if g.cursor < 0 || g.cursor >= len(g.order) {
		return ""
	}
	return g.order[g.cursor]
}

func (g *graphState) node(id string) *model.GraphNode {
	for i := range g.nodes {
		if g.nodes[i].RequirementID == id {
			return &g.nodes[i]
		}
	}
	return nil
}

// incidentEdges lists edge indexes touching the focused node.
func (g *graphState) incidentEdges() []int {
	id := g.focused()
	var out []int
	for i, e := range g.edges {
		if e.From == id || e.To == id {
			out = append(out, i)
		}
	}
	return out
}

func (m Model) updateGraph(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	g := &m.graph

	if g.edgeFocus {
		return m.updateGraphEdges(msg)
	}

	switch msg.String() {
	case "j", "tab":
		return m.cycleGraphCursor(1)
	case "k", "shift+tab":
		return m.cycleGraphCursor(-1)
	case "m":
		// The connect gesture: mark this node. First mark arms it as the
		// pending parent, second mark on another node toggles the link.
		if id := g.focused(); id != "" {
			if armed := m.editor.Armed(); armed != "" && armed != id &&
				!m.editor.HasEdge(armed, id) && m.editor.WouldCycle(armed, id) {
				// Pre-flight warning only; the server still decides.
				next, cmd := m.showAlert(alertWarning, "This link would form a cycle")
				return next, tea.Batch(cmd, next.markCmd(id))
			}
			return m, m.markCmd(id)
		}
	case "enter":
		// Plain click: open detail, clearing any armed source without a
		// link mutation.
		if id := g.focused(); id != "" {
			m.editor.Click(id)
			m.prevMode = modeGraph
			return m, m.detailCmd(id)
		}
	case "esc":
		m.editor.Click(g.focused())
		return m, nil
	case "up", "down", "left", "right":
		return m.dragFocusedNode(msg.String())
	case "s":
		return m.flushPositions()
	case "E":
		if len(g.incidentEdges()) == 0 {
			return m.showAlert(alertWarning, "No edges on this node")
		}
		g.edgeFocus = true
		g.edgeCursor = 0
		return m, nil
	case "x":
		return m.exportGraphSVG()
	case "X":
		return m.exportGraphPNG()
	}
	return m, nil
}

// cycleGraphCursor moves node focus; leaving a dragged node persists its
// position (the drag-end moment in a keyboard UI).
func (m Model) cycleGraphCursor(delta int) (tea.Model, tea.Cmd) {
	g := &m.graph
	if len(g.order) == 0 {
		return m, nil
	}
	var cmd tea.Cmd
	if len(g.moved) > 0 {
		var next Model
		var c tea.Cmd
		next, c = m.flushPositionsModel()
		m = next
		cmd = c
	}
	g.cursor = (g.cursor + delta + len(g.order)) % len(g.order)
	return m, cmd
}

func (m Model) dragFocusedNode(key string) (tea.Model, tea.Cmd) {
	g := &m.graph
	id := g.focused()
	if id == "" {
		return m, nil
	}
	n := g.node(id)
	if n == nil {
		return m, nil
	}
	x, y := 0.0, 0.0
	if n.X != nil {
		x = *n.X
	}
	if n.Y != nil {
		y = *n.Y
	}
	switch key {
	case "up":
		y -= dragStep
	case "down":
		y += dragStep
	case "left":
		x -= dragStep
	case "right":
		x += dragStep
	}
	// Optimistic: the rendered position moves now; persistence comes at
	// drag end and never rolls this back.
	if m.editor.MoveNode(id, x, y) {
		n.X = &x
		n.Y = &y
		g.moved[id] = true
	}
	return m, nil
}

// flushPositions persists pending node moves.
func (m Model) flushPositions() (tea.Model, tea.Cmd) {
	next, cmd := m.flushPositionsModel()
	return next, cmd
}

func (m Model) flushPositionsModel() (Model, tea.Cmd) {
	if len(m.graph.moved) == 0 {
		return m, nil
	}
	ids := make([]string, 0, len(m.graph.moved))
	for id := range m.graph.moved {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return m, m.savePositionsCmd(ids)
}

func (m Model) updateGraphEdges(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	g := &m.graph
	incident := g.incidentEdges()
	switch msg.String() {
	case "esc", "E":
		g.edgeFocus = false
		return m, nil
	case "j", "tab", "down":
		if len(incident) > 0 {
			g.edgeCursor = (g.edgeCursor + 1) % len(incident)
		}
	case "k", "up":
		if len(incident) > 0 {
			g.edgeCursor = (g.edgeCursor - 1 + len(incident)) % len(incident)
		}
	case "d":
		if g.edgeCursor < len(incident) {
			e := g.edges[incident[g.edgeCursor]]
			g.edgeFocus = false
			// Removal names the exact parent so other parents survive.
			return m, m.removeEdgeCmd(e.From, e.To)
		}
	}
	return m, nil
}

func (m Model) exportGraphSVG() (tea.Model, tea.Cmd) {
	graph := m.editor.Graph()
	f, err := os.Create("reqview-graph.svg")
	if err != nil {
		return m.showAlert(alertDanger, "Export failed: "+shortErr(err))
	}
	defer f.Close()
	if err := export.WriteSVG(f, &graph, export.Options{}); err != nil {
		return m.showAlert(alertDanger, "Export failed: "+shortErr(err))
	}
	return m.showAlert(alertSuccess, "Wrote reqview-graph.svg")
}

func (m Model) exportGraphPNG() (tea.Model, tea.Cmd) {
	graph := m.editor.Graph()
	if err := export.WritePNG("reqview-graph.png", &graph, export.Options{}); err != nil {
		return m.showAlert(alertDanger, "Export failed: "+shortErr(err))
	}
	return m.showAlert(alertSuccess, "Wrote reqview-graph.png")
}

// ── rendering ─────────────────────────────────────────────────────────────

// cellWidth is the character footprint of one node on the text canvas.
const cellWidth = 16

func (m Model) viewGraph() string {
	g := m.graph
	canvas := m.renderGraphCanvas()
	side := m.renderGraphSidebar()

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		PanelStyle.Render(canvas),
		FocusedPanelStyle.Render(side),
	)

	help := "  m mark/link · arrows drag · s save layout · E edges · d remove edge · x/X export · enter detail"
	if g.edgeFocus {
		help = "  j/k cycle edges · d remove this edge · esc back"
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, MutedStyle.Render(help))
}

// renderGraphCanvas draws nodes on a coarse grid scaled from their graph
// coordinates. Edges are listed in the sidebar; the canvas shows topology
// by placement only.
func (m Model) renderGraphCanvas() string {
	g := m.graph
	if len(g.nodes) == 0 {
		return MutedStyle.Render(" graph is empty ")
	}

	cols := (m.width*2/3 - 4) / cellWidth
	if cols < 1 {
		cols = 1
	}
	rowsAvail := m.height - 6
	if rowsAvail < 3 {
		rowsAvail = 3
	}

	type cell struct{ col, row int }
	cells := map[cell][]model.GraphNode{}
	maxRow := 0
	for _, n := range g.nodes {
		col, row := 0, 0
		if n.X != nil {
			col = int(*n.X / layout.DefaultHSpacing)
		}
		if n.Y != nil {
			row = int(*n.Y / layout.DefaultVSpacing)
		}
		if col < 0 {
			col = 0
		}
		if col >= cols {
			col = cols - 1
		}
		if row < 0 {
			row = 0
		}
		if row >= rowsAvail {
			row = rowsAvail - 1
		}
		if row > maxRow {
			maxRow = row
		}
		cells[cell{col, row}] = append(cells[cell{col, row}], n)
	}

	armed := m.editor.Armed()
	focused := g.focused()

	var b strings.Builder
	for row := 0; row <= maxRow; row++ {
		line := make([]string, cols)
		for col := 0; col < cols; col++ {
			ns := cells[cell{col, row}]
			if len(ns) == 0 {
				line[col] = strings.Repeat(" ", cellWidth)
				continue
			}
			n := ns[0]
			label := pad(n.RequirementID, cellWidth-3)
			box := "[" + label + "]"
			switch {
			case n.RequirementID == armed:
				box = ArmedStyle.Render(box)
			case n.RequirementID == focused:
				box = SelectedRowStyle.Render(box)
			default:
				box = lipgloss.NewStyle().Foreground(StatusColor(n.Status)).Render(box)
			}
			if len(ns) > 1 {
				box += "+"
			} else {
				box += " "
			}
			line[col] = box
		}
		b.WriteString(strings.Join(line, "") + "\n")
	}
	return b.String()
}

func (m Model) renderGraphSidebar() string {
	g := m.graph
	var b strings.Builder

	id := g.focused()
	b.WriteString(TitleStyle.Render(" Node ") + "\n")
	if n := g.node(id); n != nil {
		b.WriteString(" " + n.RequirementID + " " + RenderStatusBadge(n.Status) + "\n")
		b.WriteString(" " + pad(n.Title, 28) + "\n")
		if n.X != nil && n.Y != nil {
			b.WriteString(MutedStyle.Render(fmt.Sprintf(" at (%.0f, %.0f)", *n.X, *n.Y)) + "\n")
		}
	} else {
		b.WriteString(MutedStyle.Render(" none") + "\n")
	}

	b.WriteString("\n" + TitleStyle.Render(" Edges ") + "\n")
	incident := g.incidentEdges()
	if len(incident) == 0 {
		b.WriteString(MutedStyle.Render(" none") + "\n")
	}
	for i, idx := range incident {
		e := g.edges[idx]
		line := " " + e.From + " → " + e.To
		if g.edgeFocus && i == g.edgeCursor {
			line = SelectedRowStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	if armed := m.editor.Armed(); armed != "" {
		b.WriteString("\n" + ArmedStyle.Render(" armed parent: "+armed) + "\n")
		b.WriteString(MutedStyle.Render(" mark another node to link") + "\n")
	}
	return b.String()
}
