package main

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"
)

var (
	yesStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#90EE90"))
	noStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
)

// isTerminal reports whether w is an interactive terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// verdict renders a yes/no answer, colored on terminals
func verdict(w io.Writer, ok bool) string {
	s := yesNo(ok)
	if !isTerminal(w) {
		return s
	}
	if ok {
		return yesStyle.Render(s)
	}
	return noStyle.Render(s)
}

func newTable(w io.Writer, header ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row(header))
	return t
}
