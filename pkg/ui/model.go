// Package ui implements the terminal frontend: requirement table, group
// tree, hierarchy graph, detail view, and the modal forms. All persistence
// goes through pkg/api; all reads go through the cache snapshot.
package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"reqview/pkg/api"
	"reqview/pkg/cache"
	"reqview/pkg/filter"
	"reqview/pkg/graphedit"
	"reqview/pkg/model"
)

type viewMode int

const (
	modeTable viewMode = iota
	modeTree
	modeGraph
	modeDetail
	modeProjects
	modeForm
)

// requestTimeout bounds every command-issued round trip.
const requestTimeout = 15 * time.Second

func newRequestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

// Model is the root bubbletea model.
type Model struct {
	client *api.Client
	store  *cache.Store
	editor *graphedit.Editor
	logf   func(format string, args ...any)

	mode     viewMode
	prevMode viewMode
	width    int
	height   int

	// table state
	table tableState

	// filter + batch selection
	filter    filter.Filter
	selection *filter.Selection

	// tree state
	tree treeState

	// graph state
	graph graphState

	// detail state
	detail detailState

	// project picker state
	projects projectState

	// form state; pointer so the huh field bindings survive model copies
	form *formState

	// transient notification
	alert alert

	loading bool
}

// New creates the root model. The caller runs the returned model with
// tea.NewProgram.
func New(client *api.Client, store *cache.Store, editor *graphedit.Editor, logf func(string, ...any)) Model {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	m := Model{
		client:    client,
		store:     store,
		editor:    editor,
		logf:      logf,
		mode:      modeTable,
		selection: filter.NewSelection(),
		table:     newTableState(),
		tree:      newTreeState(),
		graph:     newGraphState(),
	}
	return m
}

// Init kicks off the initial cache load.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.reloadCmd(), m.graphRefreshCmd())
}

// ── messages ──────────────────────────────────────────────────────────────

type reloadDoneMsg struct{ err error }

type graphDoneMsg struct{ err error }

type linkDoneMsg struct {
	action graphedit.LinkAction
	err    error
}

type positionsSavedMsg struct{ ids []string }

type detailLoadedMsg struct {
	req *model.Requirement
	err error
}

type projectsLoadedMsg struct {
	projects []model.Project
	err      error
}

type mutationDoneMsg struct {
	notice string
	err    error
}

type exportDoneMsg struct {
	path string
	err  error
}

type alertExpiredMsg struct{ seq int }

// ── commands ──────────────────────────────────────────────────────────────

func (m Model) reloadCmd() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return reloadDoneMsg{err: store.Reload(ctx)}
	}
}

func (m Model) graphRefreshCmd() tea.Cmd {
	editor := m.editor
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return graphDoneMsg{err: editor.Refresh(ctx)}
	}
}

func (m Model) markCmd(requirementID string) tea.Cmd {
	editor := m.editor
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		action, err := editor.Mark(ctx, requirementID)
		return linkDoneMsg{action: action, err: err}
	}
}

func (m Model) removeEdgeCmd(parent, child string) tea.Cmd {
	editor := m.editor
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		err := editor.RemoveEdge(ctx, parent, child)
		action := graphedit.LinkRemoved
		if err != nil {
			action = graphedit.LinkNone
		}
		return linkDoneMsg{action: action, err: err}
	}
}

func (m Model) savePositionsCmd(ids []string) tea.Cmd {
	editor := m.editor
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		editor.SavePositions(ctx, ids...)
		return positionsSavedMsg{ids: ids}
	}
}

func (m Model) detailCmd(requirementID string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		req, err := client.GetRequirement(ctx, requirementID)
		return detailLoadedMsg{req: req, err: err}
	}
}

func (m Model) projectsCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		projects, err := client.ListProjects(ctx)
		return projectsLoadedMsg{projects: projects, err: err}
	}
}

// ── update ────────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case reloadDoneMsg:
		m.loading = false
		if msg.err != nil {
			return m.showAlert(alertDanger, "Load failed: "+shortErr(msg.err))
		}
		m.refreshVisible()
		return m, nil

	case graphDoneMsg:
		if msg.err != nil && msg.err != graphedit.ErrBusy {
			return m.showAlert(alertDanger, "Graph load failed: "+shortErr(msg.err))
		}
		m.graph.sync(m.editor)
		return m, nil

	case linkDoneMsg:
		return m.handleLinkDone(msg)

	case positionsSavedMsg:
		for _, id := range msg.ids {
			delete(m.graph.moved, id)
		}
		return m, nil

	case detailLoadedMsg:
		if msg.err != nil {
			return m.showAlert(alertDanger, "Detail load failed: "+shortErr(msg.err))
		}
		m.detail.set(msg.req, m.width)
		m.prevMode = m.mode
		m.mode = modeDetail
		return m, nil

	case projectsLoadedMsg:
		if msg.err != nil {
			return m.showAlert(alertDanger, "Projects load failed: "+shortErr(msg.err))
		}
		m.projects.set(msg.projects)
		m.mode = modeProjects
		return m, nil

	case mutationDoneMsg:
		if msg.err != nil {
			return m.showAlert(alertDanger, shortErr(msg.err))
		}
		var next Model
		var cmd tea.Cmd
		next, cmd = m.showAlert(alertSuccess, msg.notice)
		return next, tea.Batch(cmd, next.reloadCmd(), next.graphRefreshCmd())

	case exportDoneMsg:
		if msg.err != nil {
			return m.showAlert(alertDanger, "Export failed: "+shortErr(msg.err))
		}
		return m.showAlert(alertSuccess, "Wrote "+msg.path)

	case alertExpiredMsg:
		if msg.seq == m.alert.seq {
			m.alert.text = ""
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.mode == modeForm && m.form != nil {
		return m.updateForm(msg)
	}
	return m, nil
}

// handleLinkDone finishes a connect or edge-removal gesture. The armed
// highlight is already cleared by the editor; only the outcome is
// surfaced here.
func (m Model) handleLinkDone(msg linkDoneMsg) (tea.Model, tea.Cmd) {
	m.graph.sync(m.editor)
	if msg.err != nil {
		if msg.err == graphedit.ErrBusy {
			return m.showAlert(alertWarning, "Busy: previous link operation still in flight")
		}
		return m.showAlert(alertDanger, shortErr(msg.err))
	}
	switch msg.action {
	case graphedit.LinkCreated:
		next, cmd := m.showAlert(alertSuccess, "Parent-child link created")
		return next, tea.Batch(cmd, next.reloadCmd())
	case graphedit.LinkRemoved:
		next, cmd := m.showAlert(alertSuccess, "Parent-child link removed")
		return next, tea.Batch(cmd, next.reloadCmd())
	}
	return m, nil
}

// handleKey dispatches keys to the active view.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The form consumes everything while active.
	if m.mode == modeForm && m.form != nil {
		return m.updateForm(msg)
	}

	// Text filter input has focus priority in table mode.
	if m.mode == modeTable && m.table.filterFocused {
		return m.updateTableFilter(msg)
	}

	switch msg.String() {
	case "ctrl+c", "q":
		if m.mode == modeDetail || m.mode == modeProjects {
			m.mode = m.prevModeOr(modeTable)
			return m, nil
		}
		return m, tea.Quit
	case "1":
		m.mode = modeTable
		return m, nil
	case "2":
		m.mode = modeTree
		return m, nil
	case "3":
		m.mode = modeGraph
		return m, nil
	case "P":
		m.prevMode = m.mode
		return m, m.projectsCmd()
	case "R":
		m.loading = true
		return m, tea.Batch(m.reloadCmd(), m.graphRefreshCmd())
	}

	switch m.mode {
	case modeTable:
		return m.updateTable(msg)
	case modeTree:
		return m.updateTree(msg)
	case modeGraph:
		return m.updateGraph(msg)
	case modeDetail:
		return m.updateDetail(msg)
	case modeProjects:
		return m.updateProjects(msg)
	}
	return m, nil
}

func (m Model) prevModeOr(fallback viewMode) viewMode {
	switch m.prevMode {
	case modeTable, modeTree, modeGraph:
		return m.prevMode
	}
	return fallback
}

// refreshVisible recomputes the filtered subset after cache changes.
func (m *Model) refreshVisible() {
	snap := m.store.Snapshot()
	m.table.visible = m.filter.Apply(snap.Requirements)
	if m.table.cursor >= len(m.table.visible) {
		m.table.cursor = len(m.table.visible) - 1
	}
	if m.table.cursor < 0 {
		m.table.cursor = 0
	}
	m.tree.rebuild(snap.Groups, snap.Requirements)
}

// ── view ──────────────────────────────────────────────────────────────────

func (m Model) View() string {
	var body string
	switch m.mode {
	case modeTable:
		body = m.viewTable()
	case modeTree:
		body = m.viewTree()
	case modeGraph:
		body = m.viewGraph()
	case modeDetail:
		body = m.viewDetail()
	case modeProjects:
		body = m.viewProjects()
	case modeForm:
		body = m.viewForm()
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, m.viewStatusBar())
}

func (m Model) viewStatusBar() string {
	left := TitleStyle.Render("reqview")
	mode := ""
	switch m.mode {
	case modeTable:
		mode = "table"
	case modeTree:
		mode = "tree"
	case modeGraph:
		mode = "graph"
	case modeDetail:
		mode = "detail"
	case modeProjects:
		mode = "projects"
	case modeForm:
		mode = "form"
	}
	parts := left + "  " + MutedStyle.Render("["+mode+"]")
	if m.selection.Len() > 0 {
		parts += "  " + CheckedStyle.Render(itoa(m.selection.Len())+" selected")
	}
	if armed := m.editor.Armed(); armed != "" {
		parts += "  " + ArmedStyle.Render("armed: "+armed)
	}
	if m.loading {
		parts += "  " + MutedStyle.Render("loading…")
	}
	if m.alert.text != "" {
		parts += "  " + m.alert.render()
	}
	return parts
}

// ── forms plumbing (see forms.go) ────────────────────────────────────────

func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := m.form.active.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form.active = f
	}
	switch m.form.active.State {
	case huh.StateCompleted:
		return m.submitForm()
	case huh.StateAborted:
		m.form = nil
		m.mode = m.prevModeOr(modeTable)
		return m, nil
	}
	return m, cmd
}
