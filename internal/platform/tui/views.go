package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/nyatetris/internal/multiplayer"
)

const maxNotices = 3

func (m Model) viewJoin() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(centerStyled(titleStyle.Render("JOIN A ROOM"), m.width))
	b.WriteString("\n\n")
	b.WriteString(centerStyled(m.codeInput.View(), m.width))
	b.WriteString("\n\n")
	b.WriteString(centerStyled(dimStyle.Render("enter: join  •  esc: back"), m.width))
	return b.String()
}

func (m Model) viewConnecting() string {
	var b strings.Builder
	b.WriteString("\n\n")
	b.WriteString(centerStyled(m.status, m.width))
	b.WriteString("\n\n")
	b.WriteString(centerStyled(dimStyle.Render("esc: cancel"), m.width))
	return b.String()
}

func (m Model) viewLobby() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(centerStyled(titleStyle.Render("LOBBY"), m.width))
	b.WriteString("\n\n")
	if m.lobby == nil {
		return b.String()
	}

	b.WriteString(centerStyled(codeStyle.Render(m.lobby.Code), m.width))
	b.WriteString("\n")
	if m.lobby.IsHost {
		b.WriteString(centerStyled(dimStyle.Render("Share this code with your friends"), m.width))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for _, p := range m.lobby.Players {
		line := p.Name
		if p.IsHost {
			line += " (host)"
		}
		if p.ID == m.lobby.LocalID {
			line = cursorStyle.Render(line + " (you)")
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
	hint := "Waiting for the host to start  •  esc: leave"
	if m.lobby.IsHost {
		hint = "enter: start  •  esc: close room"
	}
	b.WriteString(centerStyled(dimStyle.Render(hint), m.width))
	return b.String()
}

func (m Model) viewMatch() string {
	dst := m.screen
	dst.Clear()
	used := layoutBoards(dst, m.boards.Boards)

	mid := used / 2
	switch {
	case m.countdown >= 0:
		drawBanner(dst, mid-1, countdownText(m.countdown))
	case m.boards.Paused:
		drawBanner(dst, mid-1, "PAUSED")
	}

	row := used + 1
	if m.match.Mode == multiplayer.MatchModeSolo && m.best > 0 {
		dst.DrawText(0, row, fmt.Sprintf("Best: %d", m.best))
		row++
	}
	notices := m.notices
	if len(notices) > maxNotices {
		notices = notices[len(notices)-maxNotices:]
	}
	for _, n := range notices {
		dst.DrawText(0, row, n)
		row++
	}

	return RenderScreen(dst) + "\n" + dimStyle.Render(m.help.View(m.gameKeys))
}

func (m Model) viewResults() string {
	var b strings.Builder
	b.WriteString("\n")
	if m.ended == nil {
		return b.String()
	}
	e := m.ended

	title := "GAME OVER"
	if e.Mode == multiplayer.MatchModeOnline {
		title = e.Reason.String()
	}
	b.WriteString(centerStyled(titleStyle.Render(title), m.width))
	b.WriteString("\n\n")

	rows := make([]string, 0, len(e.Results)+1)
	rows = append(rows, fmt.Sprintf("%-3s %-16s %8s %6s %6s", "#", "Player", "Score", "Lines", "Level"))
	for i, r := range e.Results {
		name := r.Name
		switch {
		case r.Winner:
			name += " *"
		case r.Disconnected:
			name += " (left)"
		}
		line := fmt.Sprintf("%-3d %-16s %8d %6d %6d", i+1, name, r.Score, r.Lines, r.Level)
		if r.Winner {
			line = cursorStyle.Render(line)
		}
		rows = append(rows, line)
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1).
		Render(strings.Join(rows, "\n"))
	for _, line := range strings.Split(box, "\n") {
		b.WriteString(centerStyled(line, m.width))
		b.WriteString("\n")
	}

	if e.Mode == multiplayer.MatchModeSolo && len(e.Results) > 0 && e.Results[0].Score > m.best {
		b.WriteString("\n")
		b.WriteString(centerStyled(cursorStyle.Render("New high score!"), m.width))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	hint := "enter: menu  •  q: quit"
	switch {
	case e.Mode == multiplayer.MatchModeSolo:
		hint = "r: play again  •  enter: menu  •  q: quit"
	case m.lobby != nil:
		hint = "enter: back to lobby  •  q: quit"
	}
	b.WriteString(centerStyled(dimStyle.Render(hint), m.width))
	return b.String()
}
