package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/nyatetris/internal/rendezvous"
)

var (
	flagRendezvousAddr string
	flagRendezvousTTL  time.Duration
)

var rendezvousCmd = &cobra.Command{
	Use:   "rendezvous",
	Short: "Run the room code lookup service",
	Long: `Run the HTTP service hosts publish their addresses to. Joiners look a
room's host up by its code here, then connect to the host directly.

Endpoints:
  PUT    /peers/{id}  - Claim an address (409 if another host holds it)
  GET    /peers/{id}  - Resolve an address
  DELETE /peers/{id}  - Release an address
  GET    /healthz     - Liveness
  GET    /metrics     - Prometheus metrics

Examples:
  nyatetris rendezvous
  nyatetris rendezvous --addr :8080 --ttl 1h`,
	Args: cobra.NoArgs,
	RunE: runRendezvous,
}

func init() {
	rendezvousCmd.Flags().StringVar(&flagRendezvousAddr, "addr", ":7420", "HTTP listen address")
	rendezvousCmd.Flags().DurationVar(&flagRendezvousTTL, "ttl", rendezvous.DefaultTTL, "How long a claim lives without renewal")
}

func runRendezvous(_ *cobra.Command, _ []string) error {
	logger := newServerLogger()
	srv := rendezvous.NewServer(
		rendezvous.WithTTL(flagRendezvousTTL),
		rendezvous.WithLogger(logger),
	)
	httpSrv := &http.Server{
		Addr:              flagRendezvousAddr,
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("rendezvous listening", "address", flagRendezvousAddr, "ttl", flagRendezvousTTL)
		errCh <- httpSrv.ListenAndServe()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
