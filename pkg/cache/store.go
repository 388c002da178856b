// Package cache holds the in-memory mirror of the active project's group
// tree and requirement list. The mirror is replaced wholesale on reload and
// patched in place after confirmed mutations; readers always see a complete
// snapshot, never a partially applied one.
package cache

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"reqview/pkg/model"
)

// Gateway is the slice of the remote API the cache needs.
type Gateway interface {
	ListGroups(ctx context.Context, projectID string) ([]model.Group, error)
	ListRequirements(ctx context.Context, projectID, groupID string) ([]model.Requirement, error)
}

// Snapshot is one consistent view of the hierarchy. Version increases with
// every installed reload or local patch.
type Snapshot struct {
	ProjectID    string
	Groups       []model.Group
	Requirements []model.Requirement
	Version      uint64
}

// Store caches the hierarchy for the active project.
type Store struct {
	gw Gateway

	mu        sync.Mutex
	projectID string
	snap      Snapshot
	reqs      map[string]*model.Requirement // by requirement_id, into snap.Requirements
	groups    map[string]*model.Group       // flattened group tree

	// epoch invalidates in-flight reloads: a reload only installs its
	// result if the epoch it started under is still current.
	epoch uint64

	sf singleflight.Group
}

// New creates a Store backed by gw for the given project.
func New(gw Gateway, projectID string) *Store {
	return &Store{
		gw:        gw,
		projectID: projectID,
		reqs:      map[string]*model.Requirement{},
		groups:    map[string]*model.Group{},
	}
}

// ProjectID returns the active project id.
func (s *Store) ProjectID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projectID
}

// SetProject switches the active project. The cached snapshot is dropped
// and any reload still in flight for the old project will be discarded
// when it completes.
func (s *Store) SetProject(projectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if projectID == s.projectID {
		return
	}
	s.projectID = projectID
	s.epoch++
	s.snap = Snapshot{ProjectID: projectID, Version: s.snap.Version + 1}
	s.reqs = map[string]*model.Requirement{}
	s.groups = map[string]*model.Group{}
}

// Reload fetches the group tree and the requirement list and replaces the
// snapshot. If either fetch fails nothing is replaced and the prior
// snapshot stays readable. Concurrent calls are coalesced; a reload whose
// result arrives after the project changed underneath it is discarded
// rather than installed.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	epoch := s.epoch
	projectID := s.projectID
	s.mu.Unlock()

	// Keyed by epoch so a reload started after a project switch never
	// joins a flight that is still fetching the old project.
	_, err, _ := s.sf.Do(fmt.Sprintf("reload-%d", epoch), func() (any, error) {
		groups, err := s.gw.ListGroups(ctx, projectID)
		if err != nil {
			return nil, fmt.Errorf("load groups: %w", err)
		}
		reqs, err := s.gw.ListRequirements(ctx, projectID, "")
		if err != nil {
			return nil, fmt.Errorf("load requirements: %w", err)
		}
		s.install(epoch, projectID, groups, reqs)
		return nil, nil
	})
	return err
}

// install swaps in the freshly fetched snapshot unless it is stale.
func (s *Store) install(epoch uint64, projectID string, groups []model.Group, reqs []model.Requirement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return // project switched while we were fetching
	}
	s.snap = Snapshot{
		ProjectID:    projectID,
		Groups:       groups,
		Requirements: reqs,
		Version:      s.snap.Version + 1,
	}
	s.reqs = model.BuildRequirementMap(s.snap.Requirements)
	s.groups = model.BuildGroupMap(s.snap.Groups)
}

// Snapshot returns a copy of the current snapshot. The copy is safe to
// read after later reloads and patches.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := Snapshot{ProjectID: s.snap.ProjectID, Version: s.snap.Version}
	out.Groups = append([]model.Group(nil), s.snap.Groups...)
	out.Requirements = make([]model.Requirement, len(s.snap.Requirements))
	for i := range s.snap.Requirements {
		out.Requirements[i] = s.snap.Requirements[i].Clone()
	}
	return out
}

// Version returns the current snapshot version.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Version
}

// Requirement looks up a requirement by id. A miss is reported via the
// bool, never as an error.
func (s *Store) Requirement(requirementID string) (model.Requirement, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reqs[requirementID]
	if !ok {
		return model.Requirement{}, false
	}
	return r.Clone(), true
}

// Group looks up a group anywhere in the tree by id.
func (s *Store) Group(id string) (model.Group, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok {
		return model.Group{}, false
	}
	return *g, true
}

// Patch is an optimistic field update. Nil fields are left untouched.
type Patch struct {
	Title       *string
	Description *string
	Status      *model.Status
	Chapter     *string
	GroupID     *string
	Position    *model.Position
}

// ApplyLocalPatch updates one cached requirement in memory without a
// network round trip. Returns false when the requirement is not cached.
// Used for optimistic updates ahead of server confirmation; a later
// Reload reconciles with authoritative state.
func (s *Store) ApplyLocalPatch(requirementID string, p Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reqs[requirementID]
	if !ok {
		return false
	}
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.Chapter != nil {
		r.Chapter = *p.Chapter
	}
	if p.GroupID != nil {
		r.GroupID = *p.GroupID
	}
	if p.Position != nil {
		v := *p.Position
		r.Position = &v
	}
	s.snap.Version++
	return true
}
