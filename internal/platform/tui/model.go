// Package tui is the Bubble Tea front-end: menus, the lobby, match boards
// and the scoreboard, plus serving the same program over SSH with Wish.
// Game logic lives behind a multiplayer.Coordinator; this package only
// forwards input and draws what the coordinator reports.
package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/nyatetris/internal/config"
	"github.com/vovakirdan/nyatetris/internal/core"
	"github.com/vovakirdan/nyatetris/internal/multiplayer"
	"github.com/vovakirdan/nyatetris/internal/storage"
)

// Launch selects what the program does on start.
type Launch int

const (
	LaunchMenu Launch = iota
	LaunchSolo
	LaunchHost
	LaunchJoin
)

// Options configures a Model.
type Options struct {
	SessionID multiplayer.SessionID
	Name      string
	Runtime   core.RuntimeConfig // Screen size, tick rate and solo seed (0 = random)
	Tetris    config.TetrisConfig
	NewRelay  multiplayer.RelayFactory // Nil disables online play
	Store     *storage.Store           // Optional
	Logger    *log.Logger
	Launch    Launch
	JoinCode  string // With LaunchJoin
}

type page int

const (
	pageMenu page = iota
	pageJoin
	pageConnecting
	pageLobby
	pageMatch
	pageResults
	pageScores
)

// sessionMsg wraps a coordinator event for the Bubble Tea loop.
type sessionMsg struct {
	evt multiplayer.SessionEvent
}

// listen waits for the next coordinator event.
func listen(s *multiplayer.ChannelSession) tea.Cmd {
	return func() tea.Msg {
		select {
		case evt := <-s.Events():
			return sessionMsg{evt: evt}
		case <-s.Done():
			return nil
		}
	}
}

// Model is the top-level program: menu, lobby, match and results.
type Model struct {
	opts    Options
	session *multiplayer.ChannelSession
	coord   *multiplayer.Coordinator
	screen  *core.Screen

	width, height int
	page          page

	menuKeys  MenuKeyMap
	gameKeys  GameKeyMap
	help      help.Model
	nameInput textinput.Model
	codeInput textinput.Model
	items     []menuItem
	cursor    int
	scores    ScoreboardModel

	lobby     *multiplayer.LobbyEvent
	status    string // Shown while connecting
	match     multiplayer.MatchStartedEvent
	boards    multiplayer.BoardsEvent
	countdown int
	best      int // Solo high score at match start
	notices   []string
	ended     *multiplayer.MatchEndedEvent
	errMsg    string
	quitting  bool
}

// NewModel builds the program and its coordinator. Call Start before
// running it and Stop afterwards.
func NewModel(opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if opts.SessionID == "" {
		opts.SessionID = "local"
	}
	if opts.Runtime.ScreenW <= 0 || opts.Runtime.ScreenH <= 0 {
		def := core.DefaultConfig()
		opts.Runtime.ScreenW, opts.Runtime.ScreenH = def.ScreenW, def.ScreenH
	}
	rt := opts.Runtime

	session := multiplayer.NewChannelSession(opts.SessionID, 64)
	cc := multiplayer.DefaultCoordinatorConfig()
	cc.Tetris = opts.Tetris
	cc.Logger = opts.Logger
	if rt.TickRate > 0 {
		cc.TickInterval = rt.TickInterval()
	}
	coord := multiplayer.NewCoordinator(cc, opts.NewRelay, session)
	if opts.Store != nil {
		coord.SetResultSaver(opts.Store)
	}

	h := help.New()
	h.Width = rt.ScreenW

	m := Model{
		opts:      opts,
		session:   session,
		coord:     coord,
		screen:    core.NewScreen(rt.ScreenW, rt.ScreenH-2),
		width:     rt.ScreenW,
		height:    rt.ScreenH,
		menuKeys:  DefaultMenuKeyMap(),
		gameKeys:  DefaultGameKeyMap(),
		help:      h,
		nameInput: newNameInput(opts.Name),
		codeInput: newCodeInput(),
		items:     menuItems(opts.NewRelay != nil),
		countdown: -1,
	}

	switch opts.Launch {
	case LaunchSolo:
		m = m.startSolo()
	case LaunchHost:
		m = m.startHost()
	case LaunchJoin:
		m = m.startJoin(opts.JoinCode)
	}
	return m
}

// Start runs the coordinator.
func (m Model) Start() {
	m.coord.Start()
}

// Stop ends the session and waits for the coordinator to leave any room.
func (m Model) Stop() {
	m.session.Close()
	m.coord.Stop()
}

// Init starts listening for coordinator events.
func (m Model) Init() tea.Cmd {
	return tea.Batch(listen(m.session), textinput.Blink)
}

func (m Model) playerName() string {
	return strings.TrimSpace(m.nameInput.Value())
}

func (m Model) startSolo() Model {
	m.errMsg = ""
	m.status = "Starting..."
	m.page = pageConnecting
	m.coord.Send(multiplayer.SoloMsg{Name: m.playerName(), Seed: m.opts.Runtime.Seed})
	return m
}

func (m Model) startHost() Model {
	m.errMsg = ""
	m.status = "Opening room..."
	m.page = pageConnecting
	m.coord.Send(multiplayer.HostMsg{Name: m.playerName()})
	return m
}

func (m Model) startJoin(code string) Model {
	m.errMsg = ""
	m.status = "Connecting to room " + strings.ToUpper(code) + "..."
	m.page = pageConnecting
	m.coord.Send(multiplayer.JoinMsg{Code: code, Name: m.playerName()})
	return m
}

func (m Model) toMenu() Model {
	m.page = pageMenu
	m.lobby = nil
	m.ended = nil
	m.nameInput.Focus()
	return m
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.screen.Resize(msg.Width, max(msg.Height-2, 1))
		m.help.Width = msg.Width
		if m.page == pageScores {
			m.scores, _ = m.scores.Update(msg)
		}
		return m, nil

	case sessionMsg:
		m = m.handleEvent(msg.evt)
		return m, listen(m.session)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		return m.handleKey(msg)
	}

	return m.updateInputs(msg)
}

// updateInputs forwards messages such as cursor blinks to the focused field.
func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.page {
	case pageMenu:
		m.nameInput, cmd = m.nameInput.Update(msg)
	case pageJoin:
		m.codeInput, cmd = m.codeInput.Update(msg)
	}
	return m, cmd
}

func (m Model) handleEvent(evt multiplayer.SessionEvent) Model {
	switch e := evt.(type) {
	case multiplayer.LobbyEvent:
		m.lobby = &e
		m.errMsg = ""
		if m.page == pageConnecting || m.page == pageLobby {
			m.page = pageLobby
		}

	case multiplayer.MatchStartedEvent:
		m.match = e
		m.boards = multiplayer.BoardsEvent{}
		m.countdown = -1
		m.notices = nil
		m.ended = nil
		m.best = 0
		if e.Mode == multiplayer.MatchModeSolo && m.opts.Store != nil {
			if high, err := m.opts.Store.HighScore(storage.ModeSolo); err == nil {
				m.best = high
			}
		}
		m.page = pageMatch

	case multiplayer.CountdownEvent:
		m.countdown = e.Remaining

	case multiplayer.BoardsEvent:
		m.boards = e
		if m.countdown == 0 {
			m.countdown = -1
		}

	case multiplayer.PlayerEliminatedEvent:
		what := "topped out"
		if e.Disconnected {
			what = "left"
		}
		m.notices = append(m.notices, fmt.Sprintf("%s %s", e.Name, what))

	case multiplayer.MatchEndedEvent:
		if m.page == pageLobby || m.page == pageConnecting {
			// The room closed before a match began.
			m = m.toMenu()
			m.errMsg = "The host closed the room."
			if e.Reason == multiplayer.MatchEndReasonRoomFull {
				m.errMsg = "That room is full."
			}
			return m
		}
		m.ended = &e
		m.lobby = nil // Re-sent when the room carries on
		m.page = pageResults

	case multiplayer.ErrorEvent:
		m.errMsg = e.Message()
		if m.page == pageConnecting {
			m = m.toMenu()
			m.errMsg = e.Message()
		}
	}
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.page {
	case pageMenu:
		return m.menuKey(msg)

	case pageJoin:
		switch {
		case key.Matches(msg, m.menuKeys.Back):
			m.codeInput.Blur()
			return m.toMenu(), nil
		case key.Matches(msg, m.menuKeys.Select):
			code := strings.TrimSpace(m.codeInput.Value())
			m.codeInput.Blur()
			return m.startJoin(code), nil
		}
		var cmd tea.Cmd
		m.codeInput, cmd = m.codeInput.Update(msg)
		return m, cmd

	case pageConnecting:
		if key.Matches(msg, m.menuKeys.Back) {
			m.coord.Send(multiplayer.LeaveMsg{})
			return m.toMenu(), nil
		}

	case pageLobby:
		switch {
		case key.Matches(msg, m.menuKeys.Back):
			m.coord.Send(multiplayer.LeaveMsg{})
			return m.toMenu(), nil
		case key.Matches(msg, m.menuKeys.Select):
			if m.lobby != nil && m.lobby.IsHost {
				m.coord.Send(multiplayer.StartMsg{})
			}
		}

	case pageMatch:
		switch {
		case key.Matches(msg, m.gameKeys.Quit):
			m.coord.Send(multiplayer.LeaveMsg{})
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.gameKeys.Leave):
			m.coord.Send(multiplayer.LeaveMsg{})
			return m, nil
		}
		if action := m.gameKeys.Action(msg); action != core.ActionNone {
			m.coord.Send(multiplayer.InputMsg{Action: action})
		}

	case pageResults:
		switch {
		case key.Matches(msg, m.menuKeys.Select), key.Matches(msg, m.menuKeys.Back):
			if m.lobby != nil {
				m.page = pageLobby
				return m, nil
			}
			return m.toMenu(), nil
		case msg.String() == "r" && m.ended != nil && m.ended.Mode == multiplayer.MatchModeSolo:
			return m.startSolo(), nil
		case msg.String() == "q":
			m.quitting = true
			return m, tea.Quit
		}

	case pageScores:
		var cmd tea.Cmd
		m.scores, cmd = m.scores.Update(msg)
		if m.scores.GoingBack() {
			return m.toMenu(), nil
		}
		return m, cmd
	}
	return m, nil
}

func (m Model) menuKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.menuKeys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case key.Matches(msg, m.menuKeys.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
		return m, nil
	case key.Matches(msg, m.menuKeys.Select):
		return m.selectItem()
	}

	var cmd tea.Cmd
	m.nameInput, cmd = m.nameInput.Update(msg)
	return m, cmd
}

func (m Model) selectItem() (tea.Model, tea.Cmd) {
	m.errMsg = ""
	switch m.items[m.cursor].action {
	case menuSolo:
		return m.startSolo(), nil
	case menuHost:
		return m.startHost(), nil
	case menuJoin:
		m.page = pageJoin
		m.nameInput.Blur()
		m.codeInput.SetValue("")
		return m, m.codeInput.Focus()
	case menuScores:
		m.page = pageScores
		m.scores = NewScoreboardModel(m.opts.Store, m.width, m.height)
		return m, nil
	case menuQuit:
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// View renders the current page.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	switch m.page {
	case pageJoin:
		return m.viewJoin()
	case pageConnecting:
		return m.viewConnecting()
	case pageLobby:
		return m.viewLobby()
	case pageMatch:
		return m.viewMatch()
	case pageResults:
		return m.viewResults()
	case pageScores:
		return m.scores.View()
	default:
		return m.viewMenu()
	}
}

// Run starts the program in the local terminal and blocks until it exits.
func Run(opts Options) error {
	model := NewModel(opts)
	model.Start()
	defer model.Stop()

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(), // Use alternate screen buffer
	)

	_, err := p.Run()
	return err
}
