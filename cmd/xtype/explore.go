package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/wippyai/typecore"
	"github.com/wippyai/typecore/decl"
	"github.com/wippyai/typecore/manifest"
	"github.com/wippyai/typecore/types"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	declStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// pageSize bounds the declaration list shown at once
const pageSize = 20

type exploreState int

const (
	stateSelectDecl exploreState = iota
	stateInputType
	stateShowResult
)

type declInfo struct {
	name   string
	format string
	id     types.DeclID
}

type exploreModel struct {
	err      error
	prog     *typecore.Program
	runner   *runner
	filename string
	result   string
	decls    []declInfo
	input    textinput.Model
	selected int
	state    exploreState
}

func newExploreModel(filename string, p *typecore.Program, r *runner) *exploreModel {
	repo := p.Repository()
	var decls []declInfo
	for _, id := range repo.All() {
		d, err := repo.Declaration(id)
		if err != nil || d.Format == decl.FormatModule || d.Format == decl.FormatPackage {
			continue
		}
		decls = append(decls, declInfo{name: repo.QualifiedName(id), format: d.Format.String(), id: id})
	}
	sort.Slice(decls, func(i, j int) bool { return decls[i].name < decls[j].name })
	return &exploreModel{
		prog:     p,
		runner:   r,
		filename: filename,
		decls:    decls,
		state:    stateSelectDecl,
	}
}

type checkResultMsg struct {
	err    error
	result string
}

func (m *exploreModel) Init() tea.Cmd {
	return nil
}

func (m *exploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state != stateInputType {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectDecl && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectDecl && m.selected < len(m.decls)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectDecl:
				if len(m.decls) == 0 {
					return m, nil
				}
				m.prepareInput()
				m.state = stateInputType
				return m, textinput.Blink

			case stateInputType:
				return m, m.check(m.input.Value())

			case stateShowResult:
				m.state = stateSelectDecl
				m.result = ""
				m.err = nil
			}

		case "esc":
			switch m.state {
			case stateInputType:
				m.state = stateSelectDecl
			case stateShowResult:
				m.state = stateSelectDecl
				m.result = ""
				m.err = nil
			}
		}

	case checkResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputType {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *exploreModel) prepareInput() {
	ti := textinput.New()
	ti.Placeholder = "target type, e.g. Base or {class: Box, args: [String]}"
	ti.Prompt = "assignable to: "
	ti.Width = 60
	ti.Focus()
	m.input = ti
}

// check asks whether the selected declaration is assignable to src
func (m *exploreModel) check(src string) tea.Cmd {
	d := m.decls[m.selected]
	return func() tea.Msg {
		to, err := manifest.ParseType(src)
		if err != nil {
			return checkResultMsg{err: err}
		}
		q := manifest.Query{
			Kind:  manifest.QueryChains,
			From:  &manifest.Type{Name: d.name},
			To:    &to,
			Scope: m.parentScope(d.id),
		}
		ans, err := m.runner.run(q)
		if err != nil {
			return checkResultMsg{err: err}
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%s -> %s: %s\n", d.name, src, yesNo(*ans.OK))
		for _, ch := range ans.Chains {
			b.WriteString("  " + ch + "\n")
		}
		return checkResultMsg{result: b.String()}
	}
}

// parentScope is the scope the selected declaration was written in
func (m *exploreModel) parentScope(id types.DeclID) string {
	repo := m.prog.Repository()
	d, err := repo.Declaration(id)
	if err != nil || d.Parent == types.NoDecl {
		return ""
	}
	return repo.QualifiedName(d.Parent)
}

func (m *exploreModel) View() string {
	if len(m.decls) == 0 {
		return "No declarations.\n\n" + helpStyle.Render("q quit")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("xtype explore"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectDecl:
		start := 0
		if m.selected >= pageSize {
			start = m.selected - pageSize + 1
		}
		end := min(start+pageSize, len(m.decls))
		for i := start; i < end; i++ {
			line := m.decls[i].format + " " + m.decls[i].name
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(m.describe(m.decls[m.selected]))
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter check assignability • q quit"))

	case stateInputType:
		b.WriteString(m.describe(m.decls[m.selected]))
		b.WriteString("\n")
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter check • esc back"))

	case stateShowResult:
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(m.result)
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}
	return b.String()
}

// describe lists the composition, formals and members of a declaration
func (m *exploreModel) describe(info declInfo) string {
	repo := m.prog.Repository()
	d, err := repo.Declaration(info.id)
	if err != nil {
		return errorStyle.Render(err.Error())
	}
	c := m.prog.Checker()
	format := func(n types.Node) string { return typeStyle.Render(types.Format(n, repo)) }

	var b strings.Builder
	b.WriteString(declStyle.Render(info.name))
	b.WriteString("\n")
	for _, f := range d.Formals {
		fmt.Fprintf(&b, "  formal %s extends %s (%s)\n",
			f.Name, format(f.Constraint), c.Variance(d.ID, f.Name, m.runner.access))
	}
	for _, contrib := range d.Contributions {
		fmt.Fprintf(&b, "  %s %s\n", contrib.Kind, format(contrib.Type))
	}
	for _, p := range d.Properties {
		fmt.Fprintf(&b, "  %s property %s: %s\n", p.Access, p.Name, format(p.Type))
	}
	for _, meth := range d.Methods {
		params := make([]string, len(meth.Params))
		for i, p := range meth.Params {
			params[i] = p.Name + ": " + format(p.Type)
		}
		returns := make([]string, len(meth.Returns))
		for i, r := range meth.Returns {
			returns[i] = format(r)
		}
		fmt.Fprintf(&b, "  %s %s(%s)", meth.Access, meth.Name, strings.Join(params, ", "))
		if len(returns) > 0 {
			b.WriteString(" -> " + strings.Join(returns, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func newExploreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "explore",
		Short: "Browse declarations and check assignability interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !isTerminal(os.Stdout) {
				return fmt.Errorf("explore needs an interactive terminal")
			}
			p, err := a.program(cmd.Context())
			if err != nil {
				return err
			}
			r := &runner{p: p, scope: a.cfg.Scope, access: a.cfg.AccessLevel()}
			prog := tea.NewProgram(newExploreModel(a.manifest, p, r), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			_, err = prog.Run()
			return err
		},
	}
}
