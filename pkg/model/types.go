package model

import (
	"fmt"
	"time"
)

// Requirement represents a single tracked requirement within a project.
// RequirementID is the human-assigned key (e.g. "REQ-101") and is immutable
// once created; the server never invents or reuses one.
type Requirement struct {
	RequirementID string           `json:"requirement_id"`
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	Status        Status           `json:"status"`
	Chapter       string           `json:"chapter,omitempty"`
	GroupID       string           `json:"group_id"`
	GroupName     string           `json:"group_name,omitempty"`
	ProjectID     string           `json:"project_id,omitempty"`
	ParentIDs     []string         `json:"parents,omitempty"`
	ParentRefs    []RequirementRef `json:"parent_objs,omitempty"`
	Children      []string         `json:"children,omitempty"`
	Position      *Position        `json:"position,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	CreatedBy     string           `json:"created_by,omitempty"`
	UpdatedBy     string           `json:"updated_by,omitempty"`
	History       []HistoryEntry   `json:"history,omitempty"`
}

// RequirementRef is a lightweight reference to another requirement,
// used for parent listings in detail responses.
type RequirementRef struct {
	RequirementID string `json:"requirement_id"`
	Title         string `json:"title"`
}

// Position holds persisted graph coordinates for a requirement node.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// HistoryEntry records one field change on a requirement. The log is
// append-only and ordered by ChangedAt.
type HistoryEntry struct {
	FieldName string    `json:"field_name"`
	OldValue  string    `json:"old_value"`
	NewValue  string    `json:"new_value"`
	ChangedAt time.Time `json:"changed_at"`
	ChangedBy string    `json:"changed_by"`
}

// Clone creates a deep copy of the requirement
func (r Requirement) Clone() Requirement {
	clone := r

	if r.Position != nil {
		v := *r.Position
		clone.Position = &v
	}
	if r.ParentIDs != nil {
		clone.ParentIDs = make([]string, len(r.ParentIDs))
		copy(clone.ParentIDs, r.ParentIDs)
	}
	if r.ParentRefs != nil {
		clone.ParentRefs = make([]RequirementRef, len(r.ParentRefs))
		copy(clone.ParentRefs, r.ParentRefs)
	}
	if r.Children != nil {
		clone.Children = make([]string, len(r.Children))
		copy(clone.Children, r.Children)
	}
	if r.History != nil {
		clone.History = make([]HistoryEntry, len(r.History))
		copy(clone.History, r.History)
	}

	return clone
}

// Validate checks if the requirement data is logically valid
func (r *Requirement) Validate() error {
	if r.RequirementID == "" {
		return fmt.Errorf("requirement ID cannot be empty")
	}
	if r.Title == "" {
		return fmt.Errorf("requirement title cannot be empty")
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", r.Status)
	}
	if r.GroupID == "" {
		return fmt.Errorf("requirement must belong to a group")
	}
	if !r.UpdatedAt.IsZero() && !r.CreatedAt.IsZero() && r.UpdatedAt.Before(r.CreatedAt) {
		return fmt.Errorf("updated_at (%v) cannot be before created_at (%v)", r.UpdatedAt, r.CreatedAt)
	}
	return nil
}

// HasParent reports whether parentID is among the requirement's parents.
func (r *Requirement) HasParent(parentID string) bool {
	for _, p := range r.ParentIDs {
		if p == parentID {
			return true
		}
	}
	return false
}

// Status represents the workflow state of a requirement
type Status string

const (
	StatusDraft      Status = "Draft"
	StatusInProgress Status = "In Progress"
	StatusReview     Status = "Review"
	StatusCompleted  Status = "Completed"
)

// AllStatuses lists every recognized status in workflow order.
func AllStatuses() []Status {
	return []Status{StatusDraft, StatusInProgress, StatusReview, StatusCompleted}
}

// IsValid returns true if the status is a recognized value
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusInProgress, StatusReview, StatusCompleted:
		return true
	}
	return false
}

// IsDone returns true if the status represents finished work
func (s Status) IsDone() bool {
	return s == StatusCompleted
}

// Group is a tree-structured category that requirements belong to.
// Parentage is a strict tree: at most one parent, no cycles.
type Group struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	ParentID          string    `json:"parent_id,omitempty"`
	Children          []Group   `json:"children,omitempty"`
	RequirementsCount int       `json:"requirements_count"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Validate checks if the group data is logically valid
func (g *Group) Validate() error {
	if g.Name == "" {
		return fmt.Errorf("group name cannot be empty")
	}
	if g.ParentID != "" && g.ParentID == g.ID {
		return fmt.Errorf("group cannot be its own parent")
	}
	return nil
}

// Project is the top-level tenant scoping groups and requirements.
type Project struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	GroupsCount       int       `json:"groups_count"`
	RequirementsCount int       `json:"requirements_count"`
	CreatedAt         time.Time `json:"created_at"`
}

// Graph is the node-link view-model of the requirement hierarchy.
// It is regenerated from server state on every graph load; only node
// positions are independently persisted.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// GraphNode is one requirement rendered as a graph node. X/Y are nil when
// the node has no persisted position and the client should auto-place it.
type GraphNode struct {
	RequirementID string   `json:"requirement_id"`
	Label         string   `json:"label"`
	Title         string   `json:"title"`
	Status        Status   `json:"status"`
	GroupName     string   `json:"group_name,omitempty"`
	X             *float64 `json:"x,omitempty"`
	Y             *float64 `json:"y,omitempty"`
}

// GraphEdge is one parent→child link. From is the parent requirement id.
type GraphEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// HasEdge reports whether the graph contains the edge from→to.
func (g *Graph) HasEdge(from, to string) bool {
	for _, e := range g.Edges {
		if e.From == from && e.To == to {
			return true
		}
	}
	return false
}

// Node returns the node for the given requirement id, or nil.
func (g *Graph) Node(requirementID string) *GraphNode {
	for i := range g.Nodes {
		if g.Nodes[i].RequirementID == requirementID {
			return &g.Nodes[i]
		}
	}
	return nil
}
