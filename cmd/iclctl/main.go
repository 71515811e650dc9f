// Command iclctl is an example program wiring icl/device together: it
// starts (or attaches to) the ICL, runs discovery, and logs whatever it
// finds until interrupted. It is not part of the tested library surface.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/MatusOllah/slogcolor"

	"github.com/horiba-icl/icl-go/icl"
	"github.com/horiba-icl/icl-go/icl/device"
)

var (
	isVerbose  = flag.Bool("verbose", false, "Enable display of DEBUG log messages")
	websocket  = flag.String("websocket", icl.DefaultURI, "ICL WebSocket URI")
	startICL   = flag.Bool("start-icl", false, "Spawn the ICL process if it is not already running (Windows only)")
	enableBins = flag.Bool("binary", true, "Enable binary telemetry mode")
)

func main() {
	flag.Parse()

	opts := slogcolor.DefaultOptions
	if *isVerbose {
		opts.Level = slog.LevelDebug
	} else {
		opts.Level = slog.LevelInfo
	}
	logger := slog.New(slogcolor.NewHandler(os.Stderr, opts))
	slog.SetDefault(logger)

	manager, err := device.NewManager(device.ManagerOptions{
		WebsocketURI:         *websocket,
		StartICL:             *startICL,
		EnableBinaryMessages: *enableBins,
		Logger:               logger,
	})
	if err != nil {
		slog.Error("failed to construct device manager", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer stop()

	if err := manager.Start(ctx); err != nil {
		slog.Error("failed to start device manager", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := manager.Stop(context.Background()); err != nil {
			slog.Error("failed to stop device manager", "error", err)
		}
	}()

	slog.Info("discovered devices",
		"ccds", len(manager.ChargeCoupledDevices()),
		"monochromators", len(manager.Monochromators()),
	)

	slog.Info("entering main loop")
loop:
	for {
		select {
		case <-time.After(10 * time.Second):
			slog.Info("status", "manager", manager, "stats", manager.Transport().Stats)
		case <-ctx.Done():
			slog.Info("exiting due to signal")
			break loop
		}
	}
}
