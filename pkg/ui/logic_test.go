package ui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"reqview/pkg/api"
	"reqview/pkg/cache"
	"reqview/pkg/graphedit"
	"reqview/pkg/model"
)

// fakeBackend serves both the cache and the graph editor in logic tests.
type fakeBackend struct {
	groups []model.Group
	reqs   []model.Requirement
	graph  model.Graph
}

func (f *fakeBackend) ListGroups(ctx context.Context, projectID string) ([]model.Group, error) {
	return f.groups, nil
}

func (f *fakeBackend) ListRequirements(ctx context.Context, projectID, groupID string) ([]model.Requirement, error) {
	return f.reqs, nil
}

func (f *fakeBackend) FetchGraph(ctx context.Context, projectID string) (*model.Graph, error) {
	g := f.graph
	return &g, nil
}

func (f *fakeBackend) SetParent(ctx context.Context, requirementID string, parentID *string, removeOnly bool) error {
	return nil
}

func (f *fakeBackend) SetPosition(ctx context.Context, requirementID string, x, y float64) error {
	return nil
}

func testModel(t *testing.T, backend *fakeBackend) Model {
	t.Helper()
	store := cache.New(backend, "p1")
	if err := store.Reload(context.Background()); err != nil {
		t.Fatalf("store reload: %v", err)
	}
	editor := graphedit.New(backend, "p1")
	if err := editor.Refresh(context.Background()); err != nil {
		t.Fatalf("editor refresh: %v", err)
	}
	// The client is never dialed in logic tests.
	return New(api.New("http://127.0.0.1:1"), store, editor, nil)
}

func sampleBackend() *fakeBackend {
	return &fakeBackend{
		groups: []model.Group{
			{ID: "g1", Name: "Functional", Children: []model.Group{
				{ID: "g2", Name: "Auth", ParentID: "g1"},
			}},
		},
		reqs: []model.Requirement{
			{RequirementID: "REQ-001", Title: "Login", Status: model.StatusDraft, GroupID: "g2"},
			{RequirementID: "REQ-002", Title: "Logout", Status: model.StatusCompleted, GroupID: "g2"},
			{RequirementID: "REQ-003", Title: "Report", Status: model.StatusDraft, GroupID: "g1"},
		},
		graph: model.Graph{
			Nodes: []model.GraphNode{
				{RequirementID: "REQ-001", Title: "Login", Status: model.StatusDraft},
				{RequirementID: "REQ-002", Title: "Logout", Status: model.StatusCompleted},
			},
			Edges: []model.GraphEdge{{From: "REQ-001", To: "REQ-002"}},
		},
	}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func asModel(t *testing.T, tm tea.Model) Model {
	t.Helper()
	m, ok := tm.(Model)
	if !ok {
		t.Fatalf("unexpected model type %T", tm)
	}
	return m
}

func TestReloadDone_AppliesFilter(t *testing.T) {
	m := testModel(t, sampleBackend())
	m.filter.Status = model.StatusDraft

	next := asModel(t, first(m.Update(reloadDoneMsg{})))
	if len(next.table.visible) != 2 {
		t.Fatalf("expected 2 draft rows, got %d", len(next.table.visible))
	}
	for _, r := range next.table.visible {
		if r.Status != model.StatusDraft {
			t.Errorf("non-draft row leaked through: %+v", r)
		}
	}
}

func TestReloadDone_ClampsCursor(t *testing.T) {
	m := testModel(t, sampleBackend())
	m.table.cursor = 99
	next := asModel(t, first(m.Update(reloadDoneMsg{})))
	if next.table.cursor != 2 {
		t.Errorf("cursor should clamp to the last row, got %d", next.table.cursor)
	}
}

func TestViewModeKeys(t *testing.T) {
	m := testModel(t, sampleBackend())
	cases := []struct {
		key  string
		want viewMode
	}{
		{"2", modeTree},
		{"3", modeGraph},
		{"1", modeTable},
	}
	for _, tc := range cases {
		m = asModel(t, first(m.handleKey(key(tc.key))))
		if m.mode != tc.want {
			t.Errorf("key %q: expected mode %v, got %v", tc.key, tc.want, m.mode)
		}
	}
}

func TestTableSelectionToggle(t *testing.T) {
	m := testModel(t, sampleBackend())
	m.refreshVisible()

	m = asModel(t, first(m.updateTable(key(" "))))
	if !m.selection.Contains("REQ-001") {
		t.Fatal("space should select the cursor row")
	}
	m = asModel(t, first(m.updateTable(key(" "))))
	if m.selection.Contains("REQ-001") {
		t.Fatal("second space should deselect")
	}

	m = asModel(t, first(m.updateTable(key("A"))))
	if m.selection.Len() != 3 {
		t.Errorf("A should select all visible rows, got %d", m.selection.Len())
	}
	m = asModel(t, first(m.updateTable(key("C"))))
	if m.selection.Len() != 0 {
		t.Errorf("C should clear the selection, got %d", m.selection.Len())
	}
}

func TestStatusFilterCycle(t *testing.T) {
	m := testModel(t, sampleBackend())
	m.refreshVisible()

	m = asModel(t, first(m.updateTable(key("f"))))
	if m.filter.Status != model.StatusDraft {
		t.Fatalf("first cycle should filter Draft, got %q", m.filter.Status)
	}
	if len(m.table.visible) != 2 {
		t.Errorf("expected 2 draft rows, got %d", len(m.table.visible))
	}

	// Selection survives the filter hiding a selected row.
	m.selection.Toggle("REQ-002")
	m.refreshVisible()
	if !m.selection.Contains("REQ-002") {
		t.Error("hidden row must stay selected")
	}

	for i := 0; i < len(model.AllStatuses()); i++ {
		m = asModel(t, first(m.updateTable(key("f"))))
	}
	if m.filter.Status != "" {
		t.Errorf("cycle should wrap back to no filter, got %q", m.filter.Status)
	}
}

func TestLinkDone_BusyIsAWarningNotAFailure(t *testing.T) {
	m := testModel(t, sampleBackend())
	next, _ := m.handleLinkDone(linkDoneMsg{err: graphedit.ErrBusy})
	nm := asModel(t, next)
	if nm.alert.level != alertWarning || nm.alert.text == "" {
		t.Errorf("busy should surface as a warning alert, got %+v", nm.alert)
	}
}

func TestLinkDone_SuccessSchedulesReload(t *testing.T) {
	m := testModel(t, sampleBackend())
	next, cmd := m.handleLinkDone(linkDoneMsg{action: graphedit.LinkCreated})
	nm := asModel(t, next)
	if nm.alert.level != alertSuccess {
		t.Errorf("expected success alert, got %+v", nm.alert)
	}
	if cmd == nil {
		t.Error("a confirmed link must schedule the hierarchy reload")
	}
}

func TestLinkDone_FailureShowsError(t *testing.T) {
	m := testModel(t, sampleBackend())
	next, _ := m.handleLinkDone(linkDoneMsg{err: errors.New("server rejected")})
	nm := asModel(t, next)
	if nm.alert.level != alertDanger {
		t.Errorf("expected danger alert, got %+v", nm.alert)
	}
}

func TestAlertExpiry_IgnoresStaleSeq(t *testing.T) {
	m := testModel(t, sampleBackend())
	m, _ = m.showAlert(alertSuccess, "first")
	m, _ = m.showAlert(alertSuccess, "second")

	next := asModel(t, first(m.Update(alertExpiredMsg{seq: m.alert.seq - 1})))
	if next.alert.text != "second" {
		t.Error("an expired earlier alert must not clear the current one")
	}
	next = asModel(t, first(next.Update(alertExpiredMsg{seq: next.alert.seq})))
	if next.alert.text != "" {
		t.Error("the current alert should expire on its own seq")
	}
}

func TestTreeRebuild_CollapseHidesSubtree(t *testing.T) {
	backend := sampleBackend()
	var tr treeState
	tr.collapsed = map[string]bool{}

	tr.rebuild(backend.groups, backend.reqs)
	if len(tr.rows) != 2 {
		t.Fatalf("expected 2 visible rows, got %d", len(tr.rows))
	}
	if tr.rows[0].reqCount != 1 || tr.rows[1].reqCount != 2 {
		t.Errorf("per-group counts wrong: %d/%d", tr.rows[0].reqCount, tr.rows[1].reqCount)
	}

	tr.collapsed["g1"] = true
	tr.rebuild(backend.groups, backend.reqs)
	if len(tr.rows) != 1 {
		t.Errorf("collapsed subtree should hide children, got %d rows", len(tr.rows))
	}
}

func TestGraphState_SyncOrdersNodes(t *testing.T) {
	m := testModel(t, sampleBackend())
	m.graph.sync(m.editor)
	if len(m.graph.order) != 2 || m.graph.order[0] != "REQ-001" {
		t.Errorf("order should be sorted by id, got %v", m.graph.order)
	}
	if m.graph.focused() != "REQ-001" {
		t.Errorf("focus should land on the first node, got %q", m.graph.focused())
	}
}

func TestDragFocusedNode_MarksMoved(t *testing.T) {
	m := testModel(t, sampleBackend())
	m.graph.sync(m.editor)

	next := asModel(t, first(m.dragFocusedNode("right")))
	id := next.graph.focused()
	if !next.graph.moved[id] {
		t.Fatal("dragging should flag the node for a position save")
	}
	n := next.graph.node(id)
	if n.X == nil || *n.X == 0 {
		t.Error("the rendered position should move immediately")
	}

	// The editor's view-model moved too.
	eg := next.editor.Graph()
	en := eg.Node(id)
	if en.X == nil || *en.X != *n.X {
		t.Error("editor and view positions should agree after a drag")
	}
}

func TestPad(t *testing.T) {
	if got := pad("ab", 4); got != "ab  " {
		t.Errorf("pad short: %q", got)
	}
	if got := pad("abcdef", 4); runewidth.StringWidth(got) != 4 {
		t.Errorf("pad long should truncate to width 4: %q", got)
	}
	if got := pad("日本語", 4); runewidth.StringWidth(got) != 4 {
		t.Errorf("pad wide runes: %q", got)
	}
}

func TestShortErr(t *testing.T) {
	if got := shortErr(errors.New("boom")); got != "boom" {
		t.Errorf("short errors pass through, got %q", got)
	}
	long := make([]byte, 200)
	for i := range long {
		long[i] = 'x'
	}
	if got := shortErr(errors.New(string(long))); len(got) != 120 {
		t.Errorf("long errors truncate to 120, got %d", len(got))
	}
}

// first discards the command half of an Update-style return.
func first(tm tea.Model, _ tea.Cmd) tea.Model {
	return tm
}
