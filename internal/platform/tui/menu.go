package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
)

// menuAction is what a main menu entry does.
type menuAction int

const (
	menuSolo menuAction = iota
	menuHost
	menuJoin
	menuScores
	menuQuit
)

type menuItem struct {
	title  string
	action menuAction
}

// menuItems lists the main menu. Online entries need a relay.
func menuItems(online bool) []menuItem {
	items := []menuItem{{"Solo marathon", menuSolo}}
	if online {
		items = append(items,
			menuItem{"Host a room", menuHost},
			menuItem{"Join a room", menuJoin},
		)
	}
	return append(items,
		menuItem{"High scores", menuScores},
		menuItem{"Quit", menuQuit},
	)
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("213"))
	cursorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229"))
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))
	codeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			Padding(0, 2)
)

func newNameInput(name string) textinput.Model {
	ti := textinput.New()
	ti.Prompt = "Name: "
	ti.Placeholder = "Player"
	ti.CharLimit = 16
	ti.Width = 16
	ti.SetValue(name)
	ti.Focus()
	return ti
}

func newCodeInput() textinput.Model {
	ti := textinput.New()
	ti.Prompt = "Room code: "
	ti.Placeholder = "ABCD"
	ti.CharLimit = 4
	ti.Width = 6
	return ti
}

// viewMenu renders the title, the name field and the entries.
func (m Model) viewMenu() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(centerStyled(titleStyle.Render("N Y A T E T R I S"), m.width))
	b.WriteString("\n\n")
	b.WriteString(centerStyled(m.nameInput.View(), m.width))
	b.WriteString("\n\n")

	for i, item := range m.items {
		line := "  " + item.title
		if i == m.cursor {
			line = cursorStyle.Render("> " + item.title)
		}
		b.WriteString(centerStyled(line, m.width))
		b.WriteString("\n")
	}

	if m.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(centerStyled(errorStyle.Render(m.errMsg), m.width))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(centerStyled(dimStyle.Render(m.help.View(m.menuKeys)), m.width))
	return b.String()
}

// centerText centers text within given width.
func centerText(text string, width int) string {
	if len(text) >= width {
		return text
	}
	padding := (width - len(text)) / 2
	return strings.Repeat(" ", padding) + text
}

// centerStyled centers text that may carry ANSI styling.
func centerStyled(text string, width int) string {
	w := lipgloss.Width(text)
	if w >= width {
		return text
	}
	return strings.Repeat(" ", (width-w)/2) + text
}
