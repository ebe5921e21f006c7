// Command volod is the DS1140-PD pulse-driver control daemon.
// Run with --mock to use simulated hardware (no pulse head required).
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ez-emfi/volod/internal/api"
	"github.com/ez-emfi/volod/internal/config"
	"github.com/ez-emfi/volod/internal/engine"
	"github.com/ez-emfi/volod/internal/events"
	"github.com/ez-emfi/volod/internal/hardware"
	"github.com/ez-emfi/volod/internal/models"
	"github.com/ez-emfi/volod/internal/pulse"
	"github.com/ez-emfi/volod/internal/telemetry"
	"github.com/ez-emfi/volod/internal/zeroconf"
)

const version = "0.3.0"

func main() {
	var (
		mock      = flag.Bool("mock", false, "use mock hardware driver (no pulse head required)")
		addr      = flag.String("addr", ":8090", "HTTP listen address")
		cfgDir    = flag.String("config-dir", "", "config directory (default: ~/.config/volod)")
		debug     = flag.Bool("debug", false, "enable debug logging")
		serialDev = flag.String("serial", "/dev/ttyUSB0", "serial device for the pulse head link")
		tickHz    = flag.Int("tick-hz", 1000, "control loop rate")
		mqttURL   = flag.String("mqtt", "", "MQTT broker URL for telemetry (empty = disabled)")
		ilkPin    = flag.String("interlock-pin", "", "GPIO pin for the safety key switch (empty = none)")
	)
	flag.Parse()

	// Configure logging
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Resolve config directory
	if *cfgDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			slog.Error("cannot determine home directory", "err", err)
			os.Exit(1)
		}
		*cfgDir = filepath.Join(home, ".config", "volod")
	}
	if err := os.MkdirAll(*cfgDir, 0755); err != nil {
		slog.Error("cannot create config directory", "path", *cfgDir, "err", err)
		os.Exit(1)
	}

	// Graceful shutdown context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Hardware driver
	var hw hardware.Driver
	if *mock {
		slog.Info("using mock hardware driver")
		hw = hardware.NewMock()
	} else {
		slog.Info("using serial pulse head driver", "device", *serialDev)
		hw = hardware.NewSerial(*serialDev)
	}
	if err := hw.Init(ctx); err != nil {
		slog.Error("hardware initialization failed", "err", err)
		os.Exit(1)
	}
	defer hw.Close()

	// Safety interlock
	var interlock hardware.Interlock = hardware.StaticInterlock(true)
	if *ilkPin != "" {
		ilk, err := hardware.NewGPIOInterlock(*ilkPin)
		if err != nil {
			slog.Error("interlock initialization failed", "pin", *ilkPin, "err", err)
			os.Exit(1)
		}
		interlock = ilk
		slog.Info("safety interlock enabled", "pin", *ilkPin)
	}

	// Config store
	store := config.NewJSONStore(*cfgDir)

	// Event bus
	bus := events.NewBus()

	// Telemetry
	var tele telemetry.Publisher = telemetry.Nop{}
	if *mqttURL != "" {
		mq, err := telemetry.NewMQTTPublisher(*mqttURL)
		if err != nil {
			slog.Warn("telemetry disabled: broker unreachable", "broker", *mqttURL, "err", err)
		} else {
			tele = mq
			defer mq.Close()
			slog.Info("telemetry enabled", "broker", *mqttURL)
		}
	}

	// Pulse core, preloaded with the persisted snapshot
	core := pulse.NewCore()
	snap, err := store.Load()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	core.Stage(*snap)

	runner := engine.New(core, hw, interlock, bus, store, tele, *tickHz)

	// Hot reload of externally edited snapshot files
	watcher := config.NewWatcher(store, runner.Stage)
	defer watcher.Close()

	// Control loop
	go func() {
		if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("control loop error", "err", err)
		}
	}()
	go runner.RunHeartbeat(ctx)
	runner.PublishLifecycle("STARTUP")

	// Zeroconf mDNS registration
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "volod"
	}
	port := 8090
	if parts := strings.SplitN(*addr, ":", 2); len(parts) == 2 && parts[1] != "" {
		if p, err := strconv.Atoi(parts[1]); err == nil {
			port = p
		}
	}
	zc := zeroconf.New(hostname, port)
	go func() {
		if err := zc.Start(ctx); err != nil {
			slog.Warn("zeroconf failed", "err", err)
		}
	}()

	// HTTP server
	info := models.Info{
		Version: version,
		Mock:    *mock,
		TickHz:  *tickHz,
	}
	if !*mock {
		info.Serial = *serialDev
	}
	router := api.NewRouter(runner, bus, info)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout (needed for SSE)
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("volod listening", "addr", *addr, "mock", *mock, "config", *cfgDir)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")
	runner.PublishLifecycle("SHUTDOWN")

	// Flush pending config writes
	if err := store.Flush(); err != nil {
		slog.Warn("failed to flush config", "err", err)
	}

	// Graceful HTTP shutdown
	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("server shutdown error", "err", err)
	}

	slog.Info("shutdown complete")
}
