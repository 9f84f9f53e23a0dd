package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"github.com/example/globalmenu/internal/dbusmenu"
	"github.com/example/globalmenu/internal/menu"
	"github.com/example/globalmenu/internal/protocol"
)

var (
	bold   = color.New(color.Bold).SprintFunc()
	faint  = color.New(color.Faint).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

func printHeader(title string) {
	_, _ = fmt.Fprintln(color.Output, bold(title))
}

func printTargets(targets []dbusmenu.Target) {
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow("SERVICE", "PATH")
	for _, t := range targets {
		tbl.AddRow(t.Service, string(t.Path))
	}
	_, _ = fmt.Fprintln(color.Output, tbl)
}

func printStatus(resp protocol.Response) {
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow("state:", stateColor(resp.State))
	if resp.Window != 0 {
		tbl.AddRow("window:", fmt.Sprintf("%d (%s)", resp.Window, resp.Title))
	}
	if resp.Service != "" {
		tbl.AddRow("target:", fmt.Sprintf("%s %s", resp.Service, resp.Path))
		tbl.AddRow("revision:", resp.Revision)
	}
	_, _ = fmt.Fprintln(color.Output, tbl)
}

func stateColor(state string) string {
	switch state {
	case "bound":
		return green(state)
	case "discovering":
		return yellow(state)
	default:
		return faint(state)
	}
}

func printEntries(entries []menu.Entry) {
	writeEntries(color.Output, entries)
}

func writeEntries(w io.Writer, entries []menu.Entry) {
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow("ID", "ENTRY", "FLAGS")
	addEntryRows(tbl, entries, 0)
	_, _ = fmt.Fprintln(w, tbl)
}

func addEntryRows(tbl *uitable.Table, entries []menu.Entry, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, e := range entries {
		if e.Separator {
			tbl.AddRow(e.ID, indent+faint("────"), "")
			continue
		}
		tbl.AddRow(e.ID, indent+e.Label, entryFlags(e))
		addEntryRows(tbl, e.Children, depth+1)
	}
}

func entryFlags(e menu.Entry) string {
	var flags []string
	if !e.Enabled {
		flags = append(flags, "disabled")
	}
	if e.Toggle != "" {
		state := "off"
		if e.Checked {
			state = "on"
		}
		flags = append(flags, e.Toggle+"="+state)
	}
	if len(e.Children) > 0 {
		flags = append(flags, "submenu")
	}
	return strings.Join(flags, ",")
}

// printNodes shows the raw mirror, hidden items included.
func printNodes(root *menu.Node) {
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow("ID", "LABEL", "TYPE", "ENABLED", "VISIBLE", "PROPS")
	for _, child := range root.Children {
		addNodeRows(tbl, child, 0)
	}
	_, _ = fmt.Fprintln(color.Output, tbl)
}

func addNodeRows(tbl *uitable.Table, n *menu.Node, depth int) {
	label, _ := n.Properties.Label()
	tbl.AddRow(
		n.ID,
		strings.Repeat("  ", depth)+label,
		n.Properties.Type(),
		n.Properties.Enabled(),
		n.Properties.Visible(),
		strings.Join(n.Properties.Names(), ","),
	)
	for _, child := range n.Children {
		addNodeRows(tbl, child, depth+1)
	}
}
