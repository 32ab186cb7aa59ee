package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/tui-traffic/internal/observer"
	"github.com/vovakirdan/tui-traffic/internal/platform/tui"
	"github.com/vovakirdan/tui-traffic/internal/routing"
	"github.com/vovakirdan/tui-traffic/internal/sim"
)

var (
	flagSSHAddr      string
	flagHostKey      string
	flagIdleTimeout  int
	flagObserve      string
	flagObserveScene string
	flagAllowRemote  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the SSH viewer server",
	Long: `Start an SSH server where every connection gets its own scene picker
and viewer. Runs watched over SSH are saved to the server's database.

With --observe, one shared world also runs on the server and is streamed
read-only over a websocket at ws://<addr>/ws, with the tile layout at
http://<addr>/bootstrap.

Host key handling:
  - If --host-key is provided, uses that key file
  - Otherwise, auto-generates a key at ~/.traffic/host_key

Examples:
  traffic serve                              # Listen on :23234
  traffic serve --ssh :2222                  # Listen on port 2222
  traffic serve --observe 127.0.0.1:8080     # Also stream the crossroads

Users can connect with:
  ssh localhost -p 23234`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagSSHAddr, "ssh", ":23234", "SSH server address (host:port)")
	serveCmd.Flags().StringVar(&flagHostKey, "host-key", "", "Path to host key file (auto-generated if not specified)")
	serveCmd.Flags().IntVar(&flagIdleTimeout, "idle-timeout", 30, "Idle timeout in minutes before disconnecting")
	serveCmd.Flags().StringVar(&flagObserve, "observe", "", "Websocket observer address (host:port); empty disables it")
	serveCmd.Flags().StringVar(&flagObserveScene, "observe-scene", "crossroads", "Scene streamed to observers")
	serveCmd.Flags().BoolVar(&flagAllowRemote, "allow-remote", false, "Accept observers from non-loopback addresses")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg := tui.SSHServerConfig{
		Address:     flagSSHAddr,
		HostKeyPath: flagHostKey,
		DBPath:      flagDBPath,
		IdleTimeout: time.Duration(flagIdleTimeout) * time.Minute,
		Sim:         simConfig,
		Preset:      presetName(),
		Logger:      logger.WithPrefix("ssh"),
	}

	server, err := tui.NewSSHServer(cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	if flagObserve != "" {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		stop, err := startObserver(ctx, flagObserve, flagObserveScene)
		if err != nil {
			return err
		}
		defer stop()
	}

	fmt.Printf("Starting traffic SSH server on %s\n", cfg.Address)
	fmt.Println("Press Ctrl+C to stop")

	return server.ListenAndServe()
}

// startObserver runs one world in the background and streams it over a
// websocket. The returned function stops the HTTP server.
func startObserver(ctx context.Context, addr, sceneID string) (func(), error) {
	if err := requireScene(sceneID); err != nil {
		return nil, err
	}
	obsLogger := logger.WithPrefix("observer")

	w, err := tui.SceneBuilder(sceneID, simConfig, sim.WithLogger(obsLogger))(resolveSeed())
	if err != nil {
		return nil, err
	}

	obs := observer.NewServer(sceneID, sim.TileViews(w.Tiles()), observer.Config{
		AllowRemote: flagAllowRemote,
		TickRate:    routing.TickRate,
	}, obsLogger)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           obs.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		obsLogger.Info("observer listening", "address", addr, "scene", sceneID)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			obsLogger.Error("observer server error", "err", err)
		}
	}()
	go func() {
		if err := observer.Drive(ctx, w, routing.TickRate, obs, obsLogger); err != nil {
			obsLogger.Error("observed world stopped", "err", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}, nil
}
