// Package graphedit mediates all parent/child link mutations on the
// requirement graph. Gestures arrive from the graph view (mark, click,
// edge removal, node drag) or from table-side callers; the editor turns
// them into set-parent operations, confirms by reloading the whole graph
// from the server, and keeps the rendered graph untouched when anything
// fails.
package graphedit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"reqview/pkg/layout"
	"reqview/pkg/model"
)

// ErrBusy is returned when a gesture arrives while a link mutation or its
// confirming reload is still in flight. Processing the gesture against the
// stale graph could mutate a hierarchy that has since changed, so it is
// rejected instead of queued.
var ErrBusy = errors.New("link operation in flight")

// ErrUnknownNode is returned for gestures on nodes absent from the graph.
var ErrUnknownNode = errors.New("unknown graph node")

// Gateway is the slice of the remote API the editor needs.
type Gateway interface {
	FetchGraph(ctx context.Context, projectID string) (*model.Graph, error)
	SetParent(ctx context.Context, requirementID string, parentID *string, removeOnly bool) error
	SetPosition(ctx context.Context, requirementID string, x, y float64) error
}

// LinkAction describes what a completed mark gesture did.
type LinkAction int

const (
	// LinkNone: the gesture armed (or re-armed) a source node.
	LinkNone LinkAction = iota
	// LinkCreated: a parent→child link was created.
	LinkCreated
	// LinkRemoved: an existing parent→child link was removed.
	LinkRemoved
)

// Editor owns the graph view-model and the connect-gesture state machine.
//
// States: Idle (no armed source) and ArmedSource (exactly one node marked
// as pending parent). A mark on a second, distinct node resolves
// immediately: existing edge → removal, no edge → creation. Either way the
// armed highlight is cleared on the terminal transition, success or not.
type Editor struct {
	gw        Gateway
	projectID string
	logf      func(format string, args ...any)

	mu    sync.Mutex
	graph model.Graph
	nodes map[string]*model.GraphNode
	edges map[string]map[string]bool // parent -> set of children
	armed string
	busy  bool
}

// Option configures an Editor.
type Option func(*Editor)

// WithLogger sets the sink for position-save failures and debug notes.
func WithLogger(logf func(format string, args ...any)) Option {
	return func(e *Editor) { e.logf = logf }
}

// New creates an editor for the given project. Call Refresh before
// handling gestures.
func New(gw Gateway, projectID string, opts ...Option) *Editor {
	e := &Editor{
		gw:        gw,
		projectID: projectID,
		logf:      func(string, ...any) {},
		nodes:     map[string]*model.GraphNode{},
		edges:     map[string]map[string]bool{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ForProject returns a fresh editor bound to another project, keeping the
// gateway and logger. Used on project switch, which resets all gesture
// state.
func (e *Editor) ForProject(projectID string) *Editor {
	return New(e.gw, projectID, WithLogger(e.logf))
}

// Refresh reloads the graph from the server and replaces the view-model.
// Nodes without persisted positions get deterministic layered coordinates.
// While a link mutation is in flight Refresh is rejected with ErrBusy.
func (e *Editor) Refresh(ctx context.Context) error {
	if !e.acquire() {
		return ErrBusy
	}
	defer e.release()
	return e.refreshLocked(ctx)
}

// refreshLocked performs the fetch+swap. Callers must hold the busy flag.
func (e *Editor) refreshLocked(ctx context.Context) error {
	g, err := e.gw.FetchGraph(ctx, e.projectID)
	if err != nil {
		return fmt.Errorf("load graph: %w", err)
	}
	layout.Assign(g, layout.Options{})

	e.mu.Lock()
	defer e.mu.Unlock()
	e.graph = *g
	e.nodes = make(map[string]*model.GraphNode, len(g.Nodes))
	for i := range e.graph.Nodes {
		e.nodes[e.graph.Nodes[i].RequirementID] = &e.graph.Nodes[i]
	}
	e.edges = make(map[string]map[string]bool, len(g.Edges))
	for _, edge := range g.Edges {
		if e.edges[edge.From] == nil {
			e.edges[edge.From] = map[string]bool{}
		}
		e.edges[edge.From][edge.To] = true
	}
	return nil
}

// acquire takes the busy flag; false means a round trip is in flight.
func (e *Editor) acquire() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy {
		return false
	}
	e.busy = true
	return true
}

func (e *Editor) release() {
	e.mu.Lock()
	e.busy = false
	e.mu.Unlock()
}

// Graph returns a copy of the current view-model.
func (e *Editor) Graph() model.Graph {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := model.Graph{
		Nodes: append([]model.GraphNode(nil), e.graph.Nodes...),
		Edges: append([]model.GraphEdge(nil), e.graph.Edges...),
	}
	return out
}

// Armed returns the armed source id, or "" when idle.
func (e *Editor) Armed() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.armed
}

// HasEdge reports whether the rendered graph has the edge parent→child.
func (e *Editor) HasEdge(parent, child string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.edges[parent][child]
}

// Mark handles the modifier-held click gesture on a node.
//
// Idle: the node becomes the armed source. ArmedSource on the same node:
// the node stays armed. ArmedSource on a different node: the link between
// armed source (parent) and this node (child) is toggled, removed when it
// exists and created otherwise, and the editor returns to Idle whatever
// the outcome. On success the graph is reloaded from the server; on failure
// nothing local changes and the error is returned for the alert surface.
func (e *Editor) Mark(ctx context.Context, requirementID string) (LinkAction, error) {
	e.mu.Lock()
	if e.busy {
		e.mu.Unlock()
		return LinkNone, ErrBusy
	}
	if _, ok := e.nodes[requirementID]; !ok {
		e.mu.Unlock()
		return LinkNone, fmt.Errorf("%w: %s", ErrUnknownNode, requirementID)
	}
	if e.armed == "" || e.armed == requirementID {
		e.armed = requirementID
		e.mu.Unlock()
		return LinkNone, nil
	}

	parent := e.armed
	child := requirementID
	removing := e.edges[parent][child]
	// Terminal transition: the highlight clears now, not after the round
	// trip, and stays cleared whether or not the mutation lands.
	e.armed = ""
	e.busy = true
	e.mu.Unlock()
	defer e.release()

	if removing {
		if err := e.gw.SetParent(ctx, child, &parent, true); err != nil {
			return LinkNone, fmt.Errorf("remove link %s→%s: %w", parent, child, err)
		}
		if err := e.refreshLocked(ctx); err != nil {
			return LinkRemoved, err
		}
		return LinkRemoved, nil
	}

	if err := e.gw.SetParent(ctx, child, &parent, false); err != nil {
		return LinkNone, fmt.Errorf("create link %s→%s: %w", parent, child, err)
	}
	if err := e.refreshLocked(ctx); err != nil {
		return LinkCreated, err
	}
	return LinkCreated, nil
}

// Click handles a plain (non-modifier) click on a node: any armed source
// is cleared without a link mutation, and the clicked id is returned so
// the caller can open the detail view.
func (e *Editor) Click(requirementID string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.armed = ""
	return requirementID
}

// RemoveEdge handles direct edge deletion (select an edge, issue remove).
// The removal names the exact parent link so a requirement with several
// parents keeps the others.
func (e *Editor) RemoveEdge(ctx context.Context, parent, child string) error {
	e.mu.Lock()
	if e.busy {
		e.mu.Unlock()
		return ErrBusy
	}
	if !e.edges[parent][child] {
		e.mu.Unlock()
		return fmt.Errorf("no edge %s→%s", parent, child)
	}
	e.armed = ""
	e.busy = true
	e.mu.Unlock()
	defer e.release()

	if err := e.gw.SetParent(ctx, child, &parent, true); err != nil {
		return fmt.Errorf("remove link %s→%s: %w", parent, child, err)
	}
	return e.refreshLocked(ctx)
}

// MoveNode applies a drag result to the rendered node immediately.
// Persistence is separate (SavePositions) and never rolls this back.
func (e *Editor) MoveNode(requirementID string, x, y float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, ok := e.nodes[requirementID]
	if !ok {
		return false
	}
	n.X = &x
	n.Y = &y
	return true
}

// SavePositions persists the current coordinates of the given nodes, one
// call per node. A failed save is logged and skipped: position is a
// convenience, not a correctness field, so there is no retry and no
// rollback, and other interaction is never blocked on it.
func (e *Editor) SavePositions(ctx context.Context, requirementIDs ...string) {
	for _, id := range requirementIDs {
		e.mu.Lock()
		n, ok := e.nodes[id]
		if !ok || n.X == nil || n.Y == nil {
			e.mu.Unlock()
			continue
		}
		x, y := *n.X, *n.Y
		e.mu.Unlock()

		if err := e.gw.SetPosition(ctx, id, x, y); err != nil {
			e.logf("graphedit: save position %s (%.0f,%.0f): %v", id, x, y, err)
		}
	}
}

// WouldCycle reports whether linking parent→child would close a cycle in
// the rendered graph. The server owns the actual rule; this is only a
// pre-flight warning for the UI.
func (e *Editor) WouldCycle(parent, child string) bool {
	g := e.Graph()
	return layout.WouldCycle(&g, parent, child)
}
