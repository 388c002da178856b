package ui

import (
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"reqview/pkg/api"
	"reqview/pkg/model"
)

type formKind int

const (
	formAddReq formKind = iota
	formEditReq
	formBatchEdit
	formMoveReq
	formAddGroup
	formEditGroup
	formImport
	formAddProject
)

// formState is the modal form layer. It reads group options from the
// cache and hands every write to the gateway; nothing here mutates local
// state directly.
type formState struct {
	active *huh.Form
	kind   formKind

	// requirement fields
	reqID   string
	title   string
	desc    string
	status  string
	chapter string
	groupID string
	editing string // requirement id being edited

	// batch fields (empty = leave unchanged)
	batchStatus  string
	batchChapter string
	batchGroup   string

	// move fields
	moveReq   string
	moveGroup string

	// group fields
	groupName    string
	groupDesc    string
	groupParent  string
	editingGroup string

	// import fields
	importPath  string
	importGroup string

	// project fields
	projName string
	projDesc string
}

// groupOptions builds the group select options from the cached tree,
// indented by depth.
func (m *Model) groupOptions(includeNone bool) []huh.Option[string] {
	snap := m.store.Snapshot()
	var opts []huh.Option[string]
	if includeNone {
		opts = append(opts, huh.NewOption("(none)", ""))
	}
	var walk func(gs []model.Group, depth int)
	walk = func(gs []model.Group, depth int) {
		for _, g := range gs {
			opts = append(opts, huh.NewOption(strings.Repeat("  ", depth)+g.Name, g.ID))
			walk(g.Children, depth+1)
		}
	}
	walk(snap.Groups, 0)
	return opts
}

func statusOptions(includeBlank bool) []huh.Option[string] {
	var opts []huh.Option[string]
	if includeBlank {
		opts = append(opts, huh.NewOption("(unchanged)", ""))
	}
	for _, s := range model.AllStatuses() {
		opts = append(opts, huh.NewOption(string(s), string(s)))
	}
	return opts
}

func requireNonEmpty(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return api.ValidationError(field + " is required")
		}
		return nil
	}
}

func (m Model) openAddForm() (tea.Model, tea.Cmd) {
	f := &formState{kind: formAddReq, status: string(model.StatusDraft)}
	f.active = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Requirement ID").Value(&f.reqID).Validate(requireNonEmpty("requirement ID")),
			huh.NewInput().Title("Title").Value(&f.title).Validate(requireNonEmpty("title")),
			huh.NewText().Title("Description").Value(&f.desc),
			huh.NewSelect[string]().Title("Status").Options(statusOptions(false)...).Value(&f.status),
			huh.NewInput().Title("Chapter").Value(&f.chapter),
			huh.NewSelect[string]().Title("Group").Options(m.groupOptions(false)...).Value(&f.groupID),
		),
	)
	m.form = f
	m.prevMode = m.mode
	m.mode = modeForm
	return m, f.active.Init()
}

func (m Model) openEditForm(r model.Requirement) (tea.Model, tea.Cmd) {
	f := &formState{
		kind:    formEditReq,
		editing: r.RequirementID,
		reqID:   r.RequirementID,
		title:   r.Title,
		desc:    r.Description,
		status:  string(r.Status),
		chapter: r.Chapter,
		groupID: r.GroupID,
	}
	f.active = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Title").Value(&f.title).Validate(requireNonEmpty("title")),
			huh.NewText().Title("Description").Value(&f.desc),
			huh.NewSelect[string]().Title("Status").Options(statusOptions(false)...).Value(&f.status),
			huh.NewInput().Title("Chapter").Value(&f.chapter),
			huh.NewSelect[string]().Title("Group").Options(m.groupOptions(false)...).Value(&f.groupID),
		),
	)
	m.form = f
	m.prevMode = m.mode
	m.mode = modeForm
	return m, f.active.Init()
}

func (m Model) openBatchForm() (tea.Model, tea.Cmd) {
	f := &formState{kind: formBatchEdit}
	f.active = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Status").Options(statusOptions(true)...).Value(&f.batchStatus),
			huh.NewInput().Title("Chapter (blank = unchanged)").Value(&f.batchChapter),
			huh.NewSelect[string]().Title("Group").Options(append([]huh.Option[string]{huh.NewOption("(unchanged)", "")}, m.groupOptions(false)...)...).Value(&f.batchGroup),
		),
	)
	m.form = f
	m.prevMode = m.mode
	m.mode = modeForm
	return m, f.active.Init()
}

// openMoveForm reassigns one requirement to another group.
func (m Model) openMoveForm(r model.Requirement) (tea.Model, tea.Cmd) {
	f := &formState{kind: formMoveReq, moveReq: r.RequirementID, moveGroup: r.GroupID}
	f.active = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Move "+r.RequirementID+" to group").
				Options(m.groupOptions(false)...).Value(&f.moveGroup),
		),
	)
	m.form = f
	m.prevMode = m.mode
	m.mode = modeForm
	return m, f.active.Init()
}

// openImportForm imports a spreadsheet into a group on the server.
func (m Model) openImportForm() (tea.Model, tea.Cmd) {
	f := &formState{kind: formImport}
	f.active = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("File path (.csv or .xlsx)").Value(&f.importPath).Validate(requireNonEmpty("file path")),
			huh.NewSelect[string]().Title("Into group").Options(m.groupOptions(false)...).Value(&f.importGroup),
		),
	)
	m.form = f
	m.prevMode = m.mode
	m.mode = modeForm
	return m, f.active.Init()
}

func (m Model) openProjectForm() (tea.Model, tea.Cmd) {
	f := &formState{kind: formAddProject}
	f.active = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Project name").Value(&f.projName).Validate(requireNonEmpty("project name")),
			huh.NewText().Title("Description").Value(&f.projDesc),
		),
	)
	m.form = f
	m.prevMode = m.mode
	m.mode = modeForm
	return m, f.active.Init()
}

// openGroupForm opens the add form when g is nil, the edit form otherwise.
func (m Model) openGroupForm(g *model.Group) (tea.Model, tea.Cmd) {
	f := &formState{kind: formAddGroup}
	if g != nil {
		f.kind = formEditGroup
		f.editingGroup = g.ID
		f.groupName = g.Name
		f.groupDesc = g.Description
		f.groupParent = g.ParentID
	}
	f.active = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Name").Value(&f.groupName).Validate(requireNonEmpty("group name")),
			huh.NewText().Title("Description").Value(&f.groupDesc),
			huh.NewSelect[string]().Title("Parent group").Options(m.groupOptions(true)...).Value(&f.groupParent),
		),
	)
	m.form = f
	m.prevMode = m.mode
	m.mode = modeForm
	return m, f.active.Init()
}

// submitForm fires the gateway call for a completed form.
func (m Model) submitForm() (tea.Model, tea.Cmd) {
	f := m.form
	m.form = nil
	m.mode = m.prevModeOr(modeTable)

	client := m.client
	projectID := m.store.ProjectID()

	switch f.kind {
	case formAddReq:
		in := api.RequirementInput{
			RequirementID: f.reqID,
			Title:         f.title,
			Description:   f.desc,
			Status:        f.status,
			Chapter:       f.chapter,
			GroupID:       f.groupID,
			ProjectID:     projectID,
		}
		return m, func() tea.Msg {
			ctx, cancel := newRequestContext()
			defer cancel()
			if _, err := client.CreateRequirement(ctx, in); err != nil {
				return mutationDoneMsg{err: err}
			}
			return mutationDoneMsg{notice: "Created " + in.RequirementID}
		}

	case formEditReq:
		id := f.editing
		in := api.RequirementInput{
			Title:       f.title,
			Description: f.desc,
			Status:      f.status,
			Chapter:     f.chapter,
			GroupID:     f.groupID,
		}
		return m, func() tea.Msg {
			ctx, cancel := newRequestContext()
			defer cancel()
			if _, err := client.UpdateRequirement(ctx, id, in); err != nil {
				return mutationDoneMsg{err: err}
			}
			return mutationDoneMsg{notice: "Updated " + id}
		}

	case formBatchEdit:
		updates := map[string]string{}
		if f.batchStatus != "" {
			updates["status"] = f.batchStatus
		}
		if strings.TrimSpace(f.batchChapter) != "" {
			updates["chapter"] = f.batchChapter
		}
		if f.batchGroup != "" {
			updates["group_id"] = f.batchGroup
		}
		if len(updates) == 0 {
			return m.showAlert(alertWarning, "Batch edit: nothing to change")
		}
		in := api.BatchUpdateInput{
			RequirementIDs: m.selection.IDs(),
			Updates:        updates,
			ProjectID:      projectID,
		}
		return m, func() tea.Msg {
			ctx, cancel := newRequestContext()
			defer cancel()
			res, err := client.BatchUpdate(ctx, in)
			if err != nil {
				return mutationDoneMsg{err: err}
			}
			return mutationDoneMsg{notice: "Updated " + itoa(res.UpdatedCount) + " requirements"}
		}

	case formMoveReq:
		id := f.moveReq
		groupID := f.moveGroup
		return m, func() tea.Msg {
			ctx, cancel := newRequestContext()
			defer cancel()
			if err := client.MoveRequirement(ctx, id, groupID); err != nil {
				return mutationDoneMsg{err: err}
			}
			return mutationDoneMsg{notice: "Moved " + id}
		}

	case formImport:
		path := strings.TrimSpace(f.importPath)
		groupID := f.importGroup
		return m, func() tea.Msg {
			ctx, cancel := newRequestContext()
			defer cancel()
			file, err := os.Open(path)
			if err != nil {
				return mutationDoneMsg{err: err}
			}
			defer file.Close()
			var res *api.ImportResult
			if strings.EqualFold(filepath.Ext(path), ".xlsx") {
				res, err = client.UploadExcel(ctx, filepath.Base(path), file, groupID, projectID)
			} else {
				res, err = client.UploadCSV(ctx, filepath.Base(path), file, groupID, projectID)
			}
			if err != nil {
				return mutationDoneMsg{err: err}
			}
			return mutationDoneMsg{notice: "Imported " + itoa(res.RecordsProcessed) +
				" records, skipped " + itoa(res.RecordsSkipped)}
		}

	case formAddProject:
		in := api.ProjectInput{Name: f.projName, Description: f.projDesc}
		return m, func() tea.Msg {
			ctx, cancel := newRequestContext()
			defer cancel()
			if _, err := client.CreateProject(ctx, in); err != nil {
				return mutationDoneMsg{err: err}
			}
			return mutationDoneMsg{notice: "Created project " + in.Name}
		}

	case formAddGroup:
		in := api.GroupInput{
			Name:        f.groupName,
			Description: f.groupDesc,
			ParentID:    f.groupParent,
			ProjectID:   projectID,
		}
		return m, func() tea.Msg {
			ctx, cancel := newRequestContext()
			defer cancel()
			if _, err := client.CreateGroup(ctx, in); err != nil {
				return mutationDoneMsg{err: err}
			}
			return mutationDoneMsg{notice: "Created group " + in.Name}
		}

	case formEditGroup:
		id := f.editingGroup
		in := api.GroupInput{
			Name:        f.groupName,
			Description: f.groupDesc,
			ParentID:    f.groupParent,
		}
		return m, func() tea.Msg {
			ctx, cancel := newRequestContext()
			defer cancel()
			if _, err := client.UpdateGroup(ctx, id, in); err != nil {
				return mutationDoneMsg{err: err}
			}
			return mutationDoneMsg{notice: "Updated group " + in.Name}
		}
	}
	return m, nil
}

func (m Model) viewForm() string {
	if m.form == nil || m.form.active == nil {
		return ""
	}
	return m.form.active.View()
}
