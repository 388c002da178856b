package ui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"reqview/pkg/model"
)

// detailState holds the requirement detail view: glamour-rendered
// description plus parents, children, and the change history.
type detailState struct {
	req      *model.Requirement
	rendered string
	scroll   int
}

// set loads a freshly fetched requirement into the view.
func (d *detailState) set(req *model.Requirement, width int) {
	d.req = req
	d.scroll = 0
	d.rendered = renderMarkdown(req.Description, width)
}

// renderMarkdown renders rich-text descriptions; on renderer failure the
// raw text is shown instead.
func renderMarkdown(text string, width int) string {
	if strings.TrimSpace(text) == "" {
		return MutedStyle.Render("(no description)")
	}
	wrap := width - 8
	if wrap < 40 {
		wrap = 40
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return out
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := &m.detail
	switch msg.String() {
	case "esc", "q":
		m.mode = m.prevModeOr(modeTable)
		return m, nil
	case "j", "down":
		d.scroll++
	case "k", "up":
		if d.scroll > 0 {
			d.scroll--
		}
	case "y":
		if d.req != nil {
			if err := clipboard.WriteAll(d.req.RequirementID); err != nil {
				return m.showAlert(alertWarning, "Clipboard unavailable")
			}
			return m.showAlert(alertSuccess, "Copied "+d.req.RequirementID)
		}
	case "e":
		if d.req != nil {
			return m.openEditForm(*d.req)
		}
	}
	return m, nil
}

func (m Model) viewDetail() string {
	d := m.detail
	if d.req == nil {
		return MutedStyle.Render("  nothing loaded")
	}
	r := d.req

	var b strings.Builder
	b.WriteString(TitleStyle.Render("  "+r.RequirementID) + "  " + RenderStatusBadge(r.Status) + "\n")
	b.WriteString("  " + r.Title + "\n")
	meta := fmt.Sprintf("  group %s", r.GroupName)
	if r.Chapter != "" {
		meta += " · chapter " + r.Chapter
	}
	if !r.UpdatedAt.IsZero() {
		meta += " · updated " + r.UpdatedAt.Format("2006-01-02 15:04")
	}
	b.WriteString(MutedStyle.Render(meta) + "\n")
	b.WriteString(RenderDivider(m.width) + "\n")
	b.WriteString(d.rendered + "\n")

	if len(r.ParentRefs) > 0 {
		b.WriteString(TitleStyle.Render("  Parents") + "\n")
		for _, p := range r.ParentRefs {
			b.WriteString("   ↑ " + p.RequirementID + "  " + MutedStyle.Render(p.Title) + "\n")
		}
	}
	if len(r.Children) > 0 {
		b.WriteString(TitleStyle.Render("  Children") + "\n")
		for _, c := range r.Children {
			b.WriteString("   ↓ " + c + "\n")
		}
	}

	if len(r.History) > 0 {
		b.WriteString(TitleStyle.Render("  History") + "\n")
		for _, h := range r.History {
			b.WriteString(MutedStyle.Render(fmt.Sprintf("   %s  %s: %q → %q (%s)",
				h.ChangedAt.Format("2006-01-02 15:04"), h.FieldName, h.OldValue, h.NewValue, h.ChangedBy)) + "\n")
		}
	}

	lines := strings.Split(b.String(), "\n")
	visible := m.height - 3
	if visible < 5 {
		visible = 5
	}
	start := d.scroll
	if start > len(lines)-1 {
		start = len(lines) - 1
	}
	if start < 0 {
		start = 0
	}
	end := start + visible
	if end > len(lines) {
		end = len(lines)
	}
	body := strings.Join(lines[start:end], "\n")
	help := MutedStyle.Render("  j/k scroll · e edit · y yank id · esc back")
	return body + "\n" + help
}
