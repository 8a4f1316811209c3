package main

import (
	"github.com/spf13/cobra"

	"github.com/vovakirdan/nyatetris/internal/platform/tui"
	"github.com/vovakirdan/nyatetris/internal/relay"
)

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Open a room and wait for players",
	Long: `Open a room and show its code. Share the code with the other players;
press Enter in the lobby to start once everyone is in.

The host's address is published through the rendezvous service named by
network.rendezvous_url in the config. Joiners dial the host directly, so the
host must be reachable at network.advertise_host.

` + controls,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runTUI(tui.LaunchHost, "")
	},
}

var joinCmd = &cobra.Command{
	Use:   "join <code>",
	Short: "Join a room by its code",
	Long: `Join the room with the given four-character code. Codes are not case
sensitive.

Examples:
  nyatetris join K7QP
  nyatetris join k7qp --name bob`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		code, err := relay.NormalizeRoomCode(args[0])
		if err != nil {
			return err
		}
		return runTUI(tui.LaunchJoin, code)
	},
}
