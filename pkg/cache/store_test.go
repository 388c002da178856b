package cache

import (
	"context"
	"errors"
	"sync"
	"testing"

	"reqview/pkg/model"
)

type fakeGateway struct {
	mu       sync.Mutex
	groups   map[string][]model.Group       // projectID -> tree
	reqs     map[string][]model.Requirement // projectID -> list
	failReqs error

	// hooks let tests interleave project switches with an in-flight reload
	beforeInstall func()
}

func (g *fakeGateway) ListGroups(ctx context.Context, projectID string) ([]model.Group, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.groups[projectID], nil
}

func (g *fakeGateway) ListRequirements(ctx context.Context, projectID, groupID string) ([]model.Requirement, error) {
	g.mu.Lock()
	hook := g.beforeInstall
	failReqs := g.failReqs
	reqs := g.reqs[projectID]
	g.mu.Unlock()
	if hook != nil {
		hook()
	}
	if failReqs != nil {
		return nil, failReqs
	}
	return reqs, nil
}

func req(id, title string, status model.Status) model.Requirement {
	return model.Requirement{RequirementID: id, Title: title, Status: status}
}

func newPopulatedGateway() *fakeGateway {
	return &fakeGateway{
		groups: map[string][]model.Group{
			"p1": {
				{ID: "g1", Name: "Functional", Children: []model.Group{
					{ID: "g2", Name: "Auth", ParentID: "g1"},
				}},
			},
			"p2": {{ID: "g9", Name: "Other"}},
		},
		reqs: map[string][]model.Requirement{
			"p1": {
				req("REQ-001", "Login", model.StatusDraft),
				req("REQ-002", "Logout", model.StatusCompleted),
			},
			"p2": {req("REQ-100", "Elsewhere", model.StatusDraft)},
		},
	}
}

func TestReload_ReplacesSnapshotWholesale(t *testing.T) {
	gw := newPopulatedGateway()
	s := New(gw, "p1")

	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Requirements) != 2 || len(snap.Groups) != 1 {
		t.Fatalf("Expected 2 requirements and 1 group, got %d/%d", len(snap.Requirements), len(snap.Groups))
	}
	if snap.Version == 0 {
		t.Error("Version should advance on install")
	}

	// Server-side change shows up wholesale on the next reload.
	gw.mu.Lock()
	gw.reqs["p1"] = []model.Requirement{req("REQ-003", "New world", model.StatusDraft)}
	gw.mu.Unlock()
	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("second Reload failed: %v", err)
	}
	snap2 := s.Snapshot()
	if len(snap2.Requirements) != 1 || snap2.Requirements[0].RequirementID != "REQ-003" {
		t.Errorf("Expected the snapshot replaced, got %+v", snap2.Requirements)
	}
	if _, ok := s.Requirement("REQ-001"); ok {
		t.Error("Stale requirement must not survive a reload")
	}
}

func TestReload_FailureKeepsPriorSnapshot(t *testing.T) {
	gw := newPopulatedGateway()
	s := New(gw, "p1")
	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	before := s.Version()

	gw.mu.Lock()
	gw.failReqs = errors.New("connection refused")
	gw.mu.Unlock()
	if err := s.Reload(context.Background()); err == nil {
		t.Fatal("Expected reload error")
	}

	snap := s.Snapshot()
	if len(snap.Requirements) != 2 {
		t.Errorf("Prior snapshot must stay readable, got %d requirements", len(snap.Requirements))
	}
	if s.Version() != before {
		t.Errorf("Failed reload must not bump the version")
	}
}

func TestReload_EmptyProjectIsNotAnError(t *testing.T) {
	gw := &fakeGateway{groups: map[string][]model.Group{}, reqs: map[string][]model.Requirement{}}
	s := New(gw, "empty")
	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Empty project should reload cleanly: %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Groups) != 0 || len(snap.Requirements) != 0 {
		t.Errorf("Expected empty snapshot, got %+v", snap)
	}
}

func TestSetProject_DiscardsInFlightReload(t *testing.T) {
	gw := newPopulatedGateway()
	s := New(gw, "p1")

	// The switch lands while the p1 reload is mid-fetch; its result must
	// be thrown away instead of overwriting p2's view.
	gw.beforeInstall = func() {
		gw.beforeInstall = nil
		s.SetProject("p2")
	}
	_ = s.Reload(context.Background())

	snap := s.Snapshot()
	if snap.ProjectID != "p2" {
		t.Fatalf("Expected active project p2, got %q", snap.ProjectID)
	}
	if len(snap.Requirements) != 0 {
		t.Errorf("Stale p1 data must not be installed after the switch, got %+v", snap.Requirements)
	}

	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload after switch failed: %v", err)
	}
	snap = s.Snapshot()
	if len(snap.Requirements) != 1 || snap.Requirements[0].RequirementID != "REQ-100" {
		t.Errorf("Expected p2 data after reload, got %+v", snap.Requirements)
	}
}

func TestLookups(t *testing.T) {
	gw := newPopulatedGateway()
	s := New(gw, "p1")
	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	r, ok := s.Requirement("REQ-002")
	if !ok || r.Title != "Logout" {
		t.Errorf("Requirement lookup failed: %v %v", r, ok)
	}
	if _, ok := s.Requirement("nope"); ok {
		t.Error("Missing requirement should report ok=false")
	}

	g, ok := s.Group("g2")
	if !ok || g.Name != "Auth" {
		t.Errorf("Nested group lookup failed: %v %v", g, ok)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	gw := newPopulatedGateway()
	s := New(gw, "p1")
	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	snap := s.Snapshot()
	snap.Requirements[0].Title = "mutated copy"

	r, _ := s.Requirement("REQ-001")
	if r.Title != "Login" {
		t.Errorf("Mutating a snapshot copy must not touch the store")
	}
}

func TestApplyLocalPatch(t *testing.T) {
	gw := newPopulatedGateway()
	s := New(gw, "p1")
	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	before := s.Version()

	status := model.StatusInProgress
	title := "Login v2"
	if !s.ApplyLocalPatch("REQ-001", Patch{Title: &title, Status: &status}) {
		t.Fatal("Patch should find REQ-001")
	}

	r, _ := s.Requirement("REQ-001")
	if r.Title != "Login v2" || r.Status != model.StatusInProgress {
		t.Errorf("Patch not applied: %+v", r)
	}
	if r.Description != "" {
		t.Errorf("Untouched fields must survive the patch")
	}
	if s.Version() <= before {
		t.Error("Patch should bump the version")
	}

	if s.ApplyLocalPatch("nope", Patch{Title: &title}) {
		t.Error("Patching an uncached requirement should report false")
	}
}
