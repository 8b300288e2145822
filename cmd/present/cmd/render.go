package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/go-drift/present/pkg/presentation"
)

// renderer writes tables and colored status words.
type renderer struct {
	out   io.Writer
	color bool
}

func newRenderer(out io.Writer, noColor bool) *renderer {
	return &renderer{out: out, color: !noColor}
}

func (r *renderer) table(title string, header table.Row, rows []table.Row) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(title)
	if r.color {
		t.Style().Color.Header = text.Colors{text.FgHiCyan, text.Bold}
		t.Style().Color.Border = text.Colors{text.FgHiBlack}
		t.Style().Color.Separator = text.Colors{text.FgHiBlack}
	}
	t.AppendHeader(header)
	t.AppendRows(rows)
	t.Render()
}

func (r *renderer) paint(s string, c text.Color) string {
	if !r.color {
		return s
	}
	return c.Sprint(s)
}

func (r *renderer) state(s presentation.State) string {
	switch s {
	case presentation.StateActive:
		return r.paint(s.String(), text.FgGreen)
	case presentation.StatePresented:
		return r.paint(s.String(), text.FgCyan)
	case presentation.StateInitialized:
		return r.paint(s.String(), text.FgYellow)
	default:
		return r.paint(s.String(), text.FgHiBlack)
	}
}

func (r *renderer) status(s presentation.Status) string {
	switch s {
	case presentation.StatusSucceeded:
		return r.paint(s.String(), text.FgGreen)
	case presentation.StatusFaulted:
		return r.paint(s.String(), text.FgRed)
	case presentation.StatusCancelled:
		return r.paint(s.String(), text.FgYellow)
	default:
		return r.paint(s.String(), text.FgHiBlack)
	}
}

func (r *renderer) ok(format string, args ...any) {
	fmt.Fprintln(r.out, r.paint(fmt.Sprintf(format, args...), text.FgGreen))
}

func (r *renderer) fail(format string, args ...any) {
	fmt.Fprintln(r.out, r.paint(fmt.Sprintf(format, args...), text.FgRed))
}

func (r *renderer) stack(nodes []presentation.NodeInfo) {
	rows := make([]table.Row, 0, len(nodes))
	for _, n := range nodes {
		parent := "-"
		if n.Parent != 0 {
			parent = strconv.FormatUint(n.Parent, 10)
		}
		rows = append(rows, table.Row{n.ID, n.Name, parent, n.Options.String(), r.state(n.State), n.Visible})
	}
	r.table("Stack", table.Row{"ID", "Name", "Parent", "Options", "State", "Visible"}, rows)
}
