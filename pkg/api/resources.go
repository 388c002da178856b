package api

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"reqview/pkg/model"
)

// ── Projects ──────────────────────────────────────────────────────────────

// ListProjects returns all projects visible to the client.
func (c *Client) ListProjects(ctx context.Context) ([]model.Project, error) {
	var projects []model.Project
	if err := c.do(ctx, http.MethodGet, "/api/projects", nil, nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// ProjectInput carries the fields for creating a project.
type ProjectInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CreateProject creates a new project and returns it.
func (c *Client) CreateProject(ctx context.Context, in ProjectInput) (*model.Project, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, validationErr("project name is required")
	}
	var p model.Project
	if err := c.do(ctx, http.MethodPost, "/api/projects", nil, in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ── Groups ────────────────────────────────────────────────────────────────

// ListGroups returns the group tree for a project. The response nests
// children; the flat id lookup is the cache's job.
func (c *Client) ListGroups(ctx context.Context, projectID string) ([]model.Group, error) {
	q := url.Values{"project_id": {projectID}}
	var groups []model.Group
	if err := c.do(ctx, http.MethodGet, "/api/groups", q, nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// GroupInput carries the writable fields of a group.
type GroupInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ParentID    string `json:"parent_id,omitempty"`
	ProjectID   string `json:"project_id,omitempty"`
}

// CreateGroup creates a group and returns it.
func (c *Client) CreateGroup(ctx context.Context, in GroupInput) (*model.Group, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, validationErr("group name is required")
	}
	var g model.Group
	if err := c.do(ctx, http.MethodPost, "/api/groups", nil, in, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// UpdateGroup updates a group in place.
func (c *Client) UpdateGroup(ctx context.Context, id string, in GroupInput) (*model.Group, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, validationErr("group name is required")
	}
	var g model.Group
	if err := c.do(ctx, http.MethodPut, "/api/groups/"+url.PathEscape(id), nil, in, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// DeleteGroup deletes a group. The server rejects deletion of non-empty
// groups; that rejection is surfaced unchanged.
func (c *Client) DeleteGroup(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/groups/"+url.PathEscape(id), nil, nil, nil)
}

// ── Requirements ──────────────────────────────────────────────────────────

// ListRequirements returns requirements for a project, optionally scoped
// to one group.
func (c *Client) ListRequirements(ctx context.Context, projectID, groupID string) ([]model.Requirement, error) {
	q := url.Values{"project_id": {projectID}}
	if groupID != "" {
		q.Set("group_id", groupID)
	}
	var reqs []model.Requirement
	if err := c.do(ctx, http.MethodGet, "/api/requirements", q, nil, &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

// GetRequirement fetches one requirement with history, children, and
// parent references.
func (c *Client) GetRequirement(ctx context.Context, requirementID string) (*model.Requirement, error) {
	var r model.Requirement
	if err := c.do(ctx, http.MethodGet, "/api/requirements/"+url.PathEscape(requirementID), nil, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// RequirementInput carries the writable fields of a requirement.
type RequirementInput struct {
	RequirementID string `json:"requirement_id,omitempty"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	Status        string `json:"status,omitempty"`
	Chapter       string `json:"chapter,omitempty"`
	GroupID       string `json:"group_id,omitempty"`
	ProjectID     string `json:"project_id,omitempty"`
}

// CreateRequirement creates a requirement and returns it. A non-empty
// title is required before the request is sent.
func (c *Client) CreateRequirement(ctx context.Context, in RequirementInput) (*model.Requirement, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, validationErr("requirement title is required")
	}
	var r model.Requirement
	if err := c.do(ctx, http.MethodPost, "/api/requirements", nil, in, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateRequirement updates a requirement in place.
func (c *Client) UpdateRequirement(ctx context.Context, requirementID string, in RequirementInput) (*model.Requirement, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, validationErr("requirement title is required")
	}
	var r model.Requirement
	if err := c.do(ctx, http.MethodPut, "/api/requirements/"+url.PathEscape(requirementID), nil, in, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// DeleteRequirement deletes a requirement.
func (c *Client) DeleteRequirement(ctx context.Context, requirementID string) error {
	return c.do(ctx, http.MethodDelete, "/api/requirements/"+url.PathEscape(requirementID), nil, nil, nil)
}

// MoveRequirement reassigns a requirement to another group.
func (c *Client) MoveRequirement(ctx context.Context, requirementID, groupID string) error {
	body := map[string]string{"group_id": groupID}
	return c.do(ctx, http.MethodPost, "/api/requirements/"+url.PathEscape(requirementID)+"/move", nil, body, nil)
}

// setParentRequest is the body of the set-parent operation.
type setParentRequest struct {
	ParentID   *string `json:"parent_id"`
	RemoveOnly bool    `json:"remove_only,omitempty"`
}

// SetParent sets, clears, or removes one parent link of a requirement.
// A nil parentID clears all parentage. With removeOnly, exactly the named
// parent link is removed and any other parents are kept. Self-parenting is
// the server's call to reject; the client sends the request as given.
func (c *Client) SetParent(ctx context.Context, requirementID string, parentID *string, removeOnly bool) error {
	body := setParentRequest{ParentID: parentID, RemoveOnly: removeOnly}
	return c.do(ctx, http.MethodPost, "/api/requirements/"+url.PathEscape(requirementID)+"/parent", nil, body, nil)
}

// SetPosition persists the graph coordinates of a requirement node.
func (c *Client) SetPosition(ctx context.Context, requirementID string, x, y float64) error {
	body := model.Position{X: x, Y: y}
	return c.do(ctx, http.MethodPost, "/api/requirements/"+url.PathEscape(requirementID)+"/position", nil, body, nil)
}

// BatchUpdateInput names the requirements and the field updates to apply
// to each of them. The server accepts status, chapter, and group_id.
type BatchUpdateInput struct {
	RequirementIDs []string          `json:"requirement_ids"`
	Updates        map[string]string `json:"updates"`
	ProjectID      string            `json:"project_id,omitempty"`
}

// BatchUpdateResult reports how many requirements were updated.
type BatchUpdateResult struct {
	UpdatedCount int `json:"updated_count"`
}

// BatchUpdate applies the same field updates to multiple requirements.
func (c *Client) BatchUpdate(ctx context.Context, in BatchUpdateInput) (*BatchUpdateResult, error) {
	if len(in.RequirementIDs) == 0 {
		return nil, validationErr("no requirement IDs provided")
	}
	if len(in.Updates) == 0 {
		return nil, validationErr("no updates provided")
	}
	var res BatchUpdateResult
	if err := c.do(ctx, http.MethodPost, "/api/requirements/batch-update", nil, in, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// FetchGraph returns the node-link view-model for a project.
func (c *Client) FetchGraph(ctx context.Context, projectID string) (*model.Graph, error) {
	q := url.Values{"project_id": {projectID}}
	var g model.Graph
	if err := c.do(ctx, http.MethodGet, "/api/requirements/graph", q, nil, &g); err != nil {
		return nil, err
	}
	if g.Nodes == nil {
		g.Nodes = []model.GraphNode{}
	}
	if g.Edges == nil {
		g.Edges = []model.GraphEdge{}
	}
	return &g, nil
}

// ── Import / export ───────────────────────────────────────────────────────

// ImportResult reports the outcome of a spreadsheet import.
type ImportResult struct {
	RecordsProcessed int `json:"records_processed"`
	RecordsSkipped   int `json:"records_skipped"`
}

// UploadExcel imports requirements from an Excel workbook into a group.
func (c *Client) UploadExcel(ctx context.Context, filename string, file io.Reader, groupID, projectID string) (*ImportResult, error) {
	fields := map[string]string{"group_id": groupID, "project_id": projectID}
	var res ImportResult
	if err := c.upload(ctx, "/api/upload-excel", filename, file, fields, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// UploadCSV imports requirements from a CSV file into a group.
func (c *Client) UploadCSV(ctx context.Context, filename string, file io.Reader, groupID, projectID string) (*ImportResult, error) {
	fields := map[string]string{"group_id": groupID, "project_id": projectID}
	var res ImportResult
	if err := c.upload(ctx, "/api/upload-csv", filename, file, fields, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ExportExcel streams the Excel export for a project into w.
func (c *Client) ExportExcel(ctx context.Context, projectID string, w io.Writer) error {
	return c.download(ctx, "/api/export-excel", url.Values{"project_id": {projectID}}, w)
}

// ExportCSV streams the CSV export for a project into w.
func (c *Client) ExportCSV(ctx context.Context, projectID string, w io.Writer) error {
	return c.download(ctx, "/api/export-csv", url.Values{"project_id": {projectID}}, w)
}
