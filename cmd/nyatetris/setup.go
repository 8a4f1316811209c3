package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/term"

	"github.com/vovakirdan/nyatetris/internal/config"
	"github.com/vovakirdan/nyatetris/internal/core"
	"github.com/vovakirdan/nyatetris/internal/multiplayer"
	"github.com/vovakirdan/nyatetris/internal/platform/tui"
	"github.com/vovakirdan/nyatetris/internal/relay"
	"github.com/vovakirdan/nyatetris/internal/rendezvous"
	"github.com/vovakirdan/nyatetris/internal/storage"
	"github.com/vovakirdan/nyatetris/internal/transport/ws"
)

// Smallest terminal that fits a full board with its side panel.
const (
	minWidth  = 40
	minHeight = 25
)

// loadConfig applies the config file, difficulty preset and --fps.
func loadConfig() (config.TetrisConfig, error) {
	cfg, err := config.LoadTetris(flagConfig)
	if err != nil {
		return cfg, err
	}
	preset, err := config.ParseDifficulty(flagDifficulty)
	if err != nil {
		return cfg, err
	}
	config.ApplyTetrisPreset(&cfg, preset)
	if flagFPS > 0 {
		cfg.Match.TickRate = flagFPS
	}
	return cfg, cfg.Validate()
}

func parseLevel() log.Level {
	level, err := log.ParseLevel(flagLogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// newServerLogger logs to stderr for the long-running commands.
func newServerLogger() *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Level:           parseLevel(),
	})
}

// newFileLogger logs to ~/.nyatetris/nyatetris.log while Bubble Tea owns
// the terminal. The returned closer is never nil.
func newFileLogger() (*log.Logger, io.Closer) {
	dir := config.HomeDir()
	if dir == "" {
		return log.NewWithOptions(io.Discard, log.Options{}), io.NopCloser(nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return log.NewWithOptions(io.Discard, log.Options{}), io.NopCloser(nil)
	}
	f, err := os.OpenFile(filepath.Join(dir, "nyatetris.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return log.NewWithOptions(io.Discard, log.Options{}), io.NopCloser(nil)
	}
	return log.NewWithOptions(f, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Level:           parseLevel(),
	}), f
}

// terminalSize returns the terminal size, or an error if it is too small.
func terminalSize() (int, int, error) {
	width, height := 80, 24 // Defaults
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		width, height = w, h
	}
	if width < minWidth || height < minHeight {
		return width, height, fmt.Errorf("terminal is %dx%d, need at least %dx%d", width, height, minWidth, minHeight)
	}
	return width, height, nil
}

// newRelayFactory builds relay nodes on the websocket transport, with
// addresses published through the rendezvous service.
func newRelayFactory(cfg config.TetrisConfig, logger *log.Logger) multiplayer.RelayFactory {
	dir := rendezvous.NewClient(cfg.Network.RendezvousURL, nil)
	t := ws.New(dir, ws.Config{
		ListenAddr:    cfg.Network.ListenAddr,
		AdvertiseHost: cfg.Network.AdvertiseHost,
		Logger:        logger,
	})
	relayCfg := relay.ConfigFrom(cfg)
	relayCfg.Logger = logger
	return multiplayer.NodeFactory(t, relayCfg)
}

// runTUI starts the program with the given launch mode.
func runTUI(launch tui.Launch, joinCode string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	width, height, err := terminalSize()
	if err != nil {
		return err
	}

	logger, closer := newFileLogger()
	defer closer.Close()

	// Open score storage
	store, err := storage.Open(flagDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not open scores database: %v\n", err)
		// Continue without storage - the game still works
		store = nil
	}
	if store != nil {
		defer store.Close()
	}

	logger.Info("starting", "launch", launch, "seed", flagSeed, "rendezvous", cfg.Network.RendezvousURL)
	return tui.Run(tui.Options{
		SessionID: multiplayer.SessionID(flagName),
		Name:      flagName,
		Runtime: core.RuntimeConfig{
			ScreenW:  width,
			ScreenH:  height,
			TickRate: cfg.Match.TickRate,
			Seed:     flagSeed,
		},
		Tetris:    cfg,
		NewRelay:  newRelayFactory(cfg, logger),
		Store:     store,
		Logger:    logger,
		Launch:    launch,
		JoinCode:  joinCode,
	})
}
