// Package export renders the requirement graph to SVG or PNG files,
// client-side counterparts to the server's spreadsheet exports.
package export

import (
	"fmt"
	"io"
	"os"

	"git.sr.ht/~sbinet/gg"
	svg "github.com/ajstarks/svgo"

	"reqview/pkg/layout"
	"reqview/pkg/model"
)

// Box footprint of a rendered node, in graph coordinates.
const (
	nodeWidth  = 150
	nodeHeight = 48
	margin     = 60
)

// Options tunes snapshot rendering.
type Options struct {
	// TitleLimit truncates node titles; 0 means the default of 24 runes.
	TitleLimit int
}

func (o Options) titleLimit() int {
	if o.TitleLimit <= 0 {
		return 24
	}
	return o.TitleLimit
}

// statusFill maps a requirement status to its node color. Same palette the
// backend serves for its own graph view.
func statusFill(s model.Status) string {
	switch s {
	case model.StatusCompleted:
		return "#28a745"
	case model.StatusInProgress:
		return "#007bff"
	case model.StatusReview:
		return "#ffc107"
	default:
		return "#6c757d"
	}
}

// bounds computes the canvas size and the translation that moves all
// node positions into positive space.
func bounds(g *model.Graph) (w, h int, dx, dy float64) {
	minX, minY := 0.0, 0.0
	maxX, maxY := 0.0, 0.0
	first := true
	for _, n := range g.Nodes {
		if n.X == nil || n.Y == nil {
			continue
		}
		if first {
			minX, maxX = *n.X, *n.X
			minY, maxY = *n.Y, *n.Y
			first = false
			continue
		}
		if *n.X < minX {
			minX = *n.X
		}
		if *n.X > maxX {
			maxX = *n.X
		}
		if *n.Y < minY {
			minY = *n.Y
		}
		if *n.Y > maxY {
			maxY = *n.Y
		}
	}
	dx = margin - minX
	dy = margin - minY
	w = int(maxX-minX) + nodeWidth + 2*margin
	h = int(maxY-minY) + nodeHeight + 2*margin
	return w, h, dx, dy
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

// WriteSVG renders the graph as an SVG document. Nodes missing positions
// are laid out first so an export never draws everything at the origin.
func WriteSVG(w io.Writer, g *model.Graph, opts Options) error {
	if len(g.Nodes) == 0 {
		return fmt.Errorf("nothing to export: graph has no nodes")
	}
	layout.Assign(g, layout.Options{})

	width, height, dx, dy := bounds(g)
	canvas := svg.New(w)
	canvas.Start(width, height)
	canvas.Rect(0, 0, width, height, "fill:#ffffff")

	nodeAt := func(id string) (cx, cy float64, ok bool) {
		n := g.Node(id)
		if n == nil || n.X == nil || n.Y == nil {
			return 0, 0, false
		}
		return *n.X + dx + nodeWidth/2, *n.Y + dy + nodeHeight/2, true
	}

	// Edges under nodes.
	for _, e := range g.Edges {
		x1, y1, ok1 := nodeAt(e.From)
		x2, y2, ok2 := nodeAt(e.To)
		if !ok1 || !ok2 {
			continue
		}
		canvas.Line(int(x1), int(y1), int(x2), int(y2), "stroke:#666666;stroke-width:2")
		// Arrowhead near the child end.
		ax, ay := x1+(x2-x1)*0.8, y1+(y2-y1)*0.8
		canvas.Circle(int(ax), int(ay), 4, "fill:#666666")
	}

	for _, n := range g.Nodes {
		if n.X == nil || n.Y == nil {
			continue
		}
		x := int(*n.X + dx)
		y := int(*n.Y + dy)
		canvas.Roundrect(x, y, nodeWidth, nodeHeight, 6, 6,
			fmt.Sprintf("fill:%s;stroke:#333333;stroke-width:1", statusFill(n.Status)))
		canvas.Text(x+nodeWidth/2, y+20, n.RequirementID,
			"text-anchor:middle;font-size:12px;font-family:sans-serif;fill:#ffffff;font-weight:bold")
		canvas.Text(x+nodeWidth/2, y+36, truncate(n.Title, opts.titleLimit()),
			"text-anchor:middle;font-size:10px;font-family:sans-serif;fill:#ffffff")
	}

	canvas.End()
	return nil
}

// WritePNG renders the graph to a PNG file at path.
func WritePNG(path string, g *model.Graph, opts Options) error {
	if len(g.Nodes) == 0 {
		return fmt.Errorf("nothing to export: graph has no nodes")
	}
	layout.Assign(g, layout.Options{})

	width, height, dx, dy := bounds(g)
	dc := gg.NewContext(width, height)
	dc.SetHexColor("#ffffff")
	dc.Clear()

	nodeAt := func(id string) (cx, cy float64, ok bool) {
		n := g.Node(id)
		if n == nil || n.X == nil || n.Y == nil {
			return 0, 0, false
		}
		return *n.X + dx + nodeWidth/2, *n.Y + dy + nodeHeight/2, true
	}

	dc.SetHexColor("#666666")
	dc.SetLineWidth(2)
	for _, e := range g.Edges {
		x1, y1, ok1 := nodeAt(e.From)
		x2, y2, ok2 := nodeAt(e.To)
		if !ok1 || !ok2 {
			continue
		}
		dc.DrawLine(x1, y1, x2, y2)
		dc.Stroke()
		dc.DrawCircle(x1+(x2-x1)*0.8, y1+(y2-y1)*0.8, 4)
		dc.Fill()
	}

	for _, n := range g.Nodes {
		if n.X == nil || n.Y == nil {
			continue
		}
		x := *n.X + dx
		y := *n.Y + dy
		dc.SetHexColor(statusFill(n.Status))
		dc.DrawRoundedRectangle(x, y, nodeWidth, nodeHeight, 6)
		dc.Fill()
		dc.SetHexColor("#ffffff")
		dc.DrawStringAnchored(n.RequirementID, x+nodeWidth/2, y+18, 0.5, 0.5)
		dc.DrawStringAnchored(truncate(n.Title, opts.titleLimit()), x+nodeWidth/2, y+34, 0.5, 0.5)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := dc.EncodePNG(f); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
