package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/nyatetris/internal/config"
	"github.com/vovakirdan/nyatetris/internal/core"
	"github.com/vovakirdan/nyatetris/internal/games/tetris"
	"github.com/vovakirdan/nyatetris/internal/multiplayer"
	"github.com/vovakirdan/nyatetris/internal/relay"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestGameKeyMapActions(t *testing.T) {
	keys := DefaultGameKeyMap()
	tests := []struct {
		msg  tea.KeyMsg
		want core.Action
	}{
		{tea.KeyMsg{Type: tea.KeyLeft}, core.ActionMoveLeft},
		{runes("a"), core.ActionMoveLeft},
		{tea.KeyMsg{Type: tea.KeyRight}, core.ActionMoveRight},
		{tea.KeyMsg{Type: tea.KeyUp}, core.ActionRotateCW},
		{runes("x"), core.ActionRotateCW},
		{runes("z"), core.ActionRotateCCW},
		{tea.KeyMsg{Type: tea.KeyDown}, core.ActionSoftDrop},
		{tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}, core.ActionHardDrop},
		{runes("c"), core.ActionHold},
		{tea.KeyMsg{Type: tea.KeyShiftLeft}, core.ActionHold},
		{runes("p"), core.ActionPause},
		{runes("q"), core.ActionNone},
		{tea.KeyMsg{Type: tea.KeyEsc}, core.ActionNone},
	}

	for _, tt := range tests {
		if got := keys.Action(tt.msg); got != tt.want {
			t.Errorf("Action(%q) = %v, want %v", tt.msg.String(), got, tt.want)
		}
	}
}

func boardOf(name string, compact bool) multiplayer.Board {
	g := tetris.New(tetris.DefaultConfig(), 1)
	return multiplayer.Board{
		PlayerID: name,
		View:     tetris.View{Name: name, Snapshot: g.Snapshot(), Compact: compact},
	}
}

func TestLayoutBoardsWrapsOpponents(t *testing.T) {
	dst := core.NewScreen(80, 60)
	boards := []multiplayer.Board{boardOf("ann", false), boardOf("bob", true)}

	if used := layoutBoards(dst, boards); used != 23 {
		t.Errorf("two boards used %d rows, want 23", used)
	}
	if !strings.HasPrefix(dst.Row(0), "ann") {
		t.Errorf("row 0 = %q, want the local board first", dst.Row(0))
	}
	if !strings.Contains(dst.Row(0), "bob") {
		t.Errorf("row 0 = %q, want the opponent beside the local board", dst.Row(0))
	}

	dst.Clear()
	boards = append(boards, boardOf("cat", true))
	if used := layoutBoards(dst, boards); used != 47 {
		t.Errorf("three boards used %d rows, want 47", used)
	}
	if !strings.HasPrefix(dst.Row(24), "cat") {
		t.Errorf("row 24 = %q, want the third board wrapped", dst.Row(24))
	}
}

func TestCountdownText(t *testing.T) {
	if got := countdownText(3); got != "3" {
		t.Errorf("countdownText(3) = %q", got)
	}
	if got := countdownText(0); got != "GO!" {
		t.Errorf("countdownText(0) = %q", got)
	}
}

// newTestModel builds a model whose coordinator is never started; requests
// queue on its inbox and tests feed events by hand.
func newTestModel(online bool) Model {
	opts := Options{Name: "ann", Tetris: config.DefaultTetrisConfig()}
	if online {
		opts.NewRelay = func() multiplayer.Relay { return nil }
	}
	return NewModel(opts)
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return model
}

func event(t *testing.T, m Model, evt multiplayer.SessionEvent) Model {
	t.Helper()
	return update(t, m, sessionMsg{evt: evt})
}

func TestMenuEntries(t *testing.T) {
	if got := len(newTestModel(false).items); got != 3 {
		t.Errorf("offline menu has %d entries, want 3", got)
	}
	if got := len(newTestModel(true).items); got != 5 {
		t.Errorf("online menu has %d entries, want 5", got)
	}
}

func TestSoloFlow(t *testing.T) {
	m := newTestModel(false)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.page != pageConnecting {
		t.Fatalf("page = %v after choosing solo", m.page)
	}

	m = event(t, m, multiplayer.MatchStartedEvent{Mode: multiplayer.MatchModeSolo})
	if m.page != pageMatch {
		t.Fatalf("page = %v after match start", m.page)
	}
	m = event(t, m, multiplayer.BoardsEvent{Boards: []multiplayer.Board{boardOf("ann", false)}, Paused: true})
	if view := m.View(); !strings.Contains(view, "PAUSED") {
		t.Error("paused match should show a banner")
	}

	m = event(t, m, multiplayer.MatchEndedEvent{
		Mode:    multiplayer.MatchModeSolo,
		Results: []multiplayer.Result{{PlayerID: "local", Name: "ann", Score: 1200}},
	})
	if m.page != pageResults {
		t.Fatalf("page = %v after match end", m.page)
	}
	view := m.View()
	if !strings.Contains(view, "GAME OVER") || !strings.Contains(view, "1200") {
		t.Errorf("results view missing the score:\n%s", view)
	}

	m = update(t, m, runes("r"))
	if m.page != pageConnecting {
		t.Errorf("r should restart, page = %v", m.page)
	}
}

func TestLobbyFlow(t *testing.T) {
	m := newTestModel(true)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.page != pageConnecting {
		t.Fatalf("page = %v after choosing host", m.page)
	}

	lobby := multiplayer.LobbyEvent{
		Code:    "ABCD",
		LocalID: "h",
		IsHost:  true,
		Players: []relay.PlayerInfo{{ID: "h", Name: "ann", IsHost: true}, {ID: "j", Name: "bob"}},
	}
	m = event(t, m, lobby)
	if m.page != pageLobby {
		t.Fatalf("page = %v after lobby", m.page)
	}
	view := m.View()
	for _, want := range []string{"ABCD", "ann", "bob", "enter: start"} {
		if !strings.Contains(view, want) {
			t.Errorf("lobby view missing %q", want)
		}
	}

	m = event(t, m, multiplayer.MatchStartedEvent{Mode: multiplayer.MatchModeOnline})
	m = event(t, m, multiplayer.CountdownEvent{Remaining: 3})
	if m.countdown != 3 {
		t.Errorf("countdown = %d, want 3", m.countdown)
	}
	m = event(t, m, multiplayer.PlayerEliminatedEvent{PlayerID: "j", Name: "bob"})
	m = event(t, m, multiplayer.MatchEndedEvent{
		Mode:   multiplayer.MatchModeOnline,
		Reason: multiplayer.MatchEndReasonCompleted,
		Winner: "h",
		Results: []multiplayer.Result{
			{PlayerID: "h", Name: "ann", Score: 300, Winner: true},
			{PlayerID: "j", Name: "bob", Score: 100},
		},
	})
	// The room carries on; results stay up until dismissed.
	m = event(t, m, lobby)
	if m.page != pageResults {
		t.Fatalf("page = %v, results should stay up", m.page)
	}
	if !strings.Contains(m.View(), "back to lobby") {
		t.Error("results should offer to return to the lobby")
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.page != pageLobby {
		t.Errorf("page = %v, want lobby", m.page)
	}
}

func TestHostLeavingLobbyReturnsToMenu(t *testing.T) {
	m := newTestModel(true)
	m = m.startJoin("abcd")
	m = event(t, m, multiplayer.LobbyEvent{Code: "ABCD", LocalID: "j"})
	m = event(t, m, multiplayer.MatchEndedEvent{Reason: multiplayer.MatchEndReasonHostLeft})

	if m.page != pageMenu {
		t.Fatalf("page = %v, want menu", m.page)
	}
	if !strings.Contains(m.View(), "host closed the room") {
		t.Error("menu should explain why the room closed")
	}
}

func TestFullRoomReturnsToMenu(t *testing.T) {
	m := newTestModel(true)
	m = m.startJoin("abcd")
	m = event(t, m, multiplayer.LobbyEvent{Code: "ABCD", LocalID: "j"})
	m = event(t, m, multiplayer.MatchEndedEvent{Reason: multiplayer.MatchEndReasonRoomFull})

	if m.page != pageMenu {
		t.Fatalf("page = %v, want menu", m.page)
	}
	if !strings.Contains(m.View(), "room is full") {
		t.Error("menu should say the room was full")
	}
}

func TestJoinErrorReturnsToMenu(t *testing.T) {
	m := newTestModel(true)
	m = m.startJoin("ZZZZ")
	m = event(t, m, multiplayer.ErrorEvent{Err: relay.ErrPeerUnreachable})

	if m.page != pageMenu {
		t.Fatalf("page = %v, want menu", m.page)
	}
	if !strings.Contains(m.View(), "peer unreachable") {
		t.Error("menu should show the join error")
	}
}
