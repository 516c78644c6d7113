package cli

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"

	"github.com/matzehuels/monopy/pkg/errors"
	"github.com/matzehuels/monopy/pkg/manifest"
	"github.com/matzehuels/monopy/pkg/workspace"
)

// List styles
var (
	listDimStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// ProjectListModel - Interactive project selection
// =============================================================================

// ProjectListModel is the bubbletea model for interactive project selection.
type ProjectListModel struct {
	Title    string
	Projects []*workspace.Project
	Cursor   int
	Selected *workspace.Project
	Height   int
	Offset   int
}

// NewProjectListModel creates a new project list model.
func NewProjectListModel(title string, projects []*workspace.Project) ProjectListModel {
	return ProjectListModel{Title: title, Projects: projects, Height: 15}
}

func (m ProjectListModel) Init() tea.Cmd {
	return nil
}

func (m ProjectListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Projects)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Projects) == 0 {
				return m, tea.Quit
			}
			m.Selected = m.Projects[m.Cursor]
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m ProjectListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.Title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Projects))

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		p := m.Projects[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		deps := "—"
		if len(p.ImplicitDependencies) > 0 {
			deps = strings.Join(p.ImplicitDependencies, ", ")
		}
		rows = append(rows, []string{cursor, p.Name, string(p.Kind), p.Root, deps})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Project", "Type", "Root", "Depends on").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			if idx >= len(m.Projects) {
				return lipgloss.NewStyle()
			}
			if idx == m.Cursor {
				return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
			}
			if col >= 3 {
				return lipgloss.NewStyle().Foreground(colorDim)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Projects))))

	return b.String()
}

// =============================================================================
// Helpers
// =============================================================================

func interactive() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())
}

// pickProject returns args[0] when given. Otherwise, on a terminal, it asks
// the user to choose among the workspace projects that have a manifest and
// satisfy keep (nil keeps all).
func pickProject(ws *workspace.Workspace, args []string, title string, keep func(*workspace.Project) bool) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if !interactive() {
		return "", errors.New(errors.ErrCodeInvalidInput, "a project name is required")
	}

	var choices []*workspace.Project
	for _, p := range ws.Registry.Projects() {
		if !manifest.Exists(manifest.PathIn(p.Dir)) {
			continue
		}
		if keep == nil || keep(p) {
			choices = append(choices, p)
		}
	}
	if len(choices) == 0 {
		return "", errors.New(errors.ErrCodeProjectNotFound, "no projects to choose from in %s", ws.Root)
	}

	final, err := tea.NewProgram(NewProjectListModel(title, choices)).Run()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "project picker")
	}
	m, ok := final.(ProjectListModel)
	if !ok || m.Selected == nil {
		return "", errors.New(errors.ErrCodeInvalidInput, "no project selected")
	}
	return m.Selected.Name, nil
}
