package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/soar/padcontrol/frontend"
	"github.com/soar/padcontrol/internal/car"
	"github.com/soar/padcontrol/internal/config"
	"github.com/soar/padcontrol/internal/console"
	"github.com/soar/padcontrol/internal/dispatch"
	"github.com/soar/padcontrol/internal/gamepad"
	"github.com/soar/padcontrol/internal/hub"
	plog "github.com/soar/padcontrol/internal/log"
	"github.com/soar/padcontrol/internal/poller"
	"github.com/soar/padcontrol/internal/sdlpad"
	"github.com/soar/padcontrol/internal/server"
	"github.com/soar/padcontrol/internal/session"
	"github.com/soar/padcontrol/internal/tray"
)

// Cross-platform signal handling: use os.Interrupt on all platforms
// On Windows: os.Interrupt is sent when Ctrl+C is pressed
// On Unix: os.Interrupt is equivalent to syscall.SIGINT
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

const (
	shutdownTimeout = 5 * time.Second
	flushTimeout    = 2 * time.Second
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "padcontrol:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	guiMode := !console.IsRunningFromConsole()

	cfg, v, err := config.Load(args)
	if err != nil {
		return err
	}

	logger, logCloser, err := plog.Setup(plog.Options{
		Level:  cfg.Log.Level,
		File:   cfg.Log.File,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return err
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Closed by Ctrl+C on Windows, or the tray's Exit item
	shutdownRequested := make(chan struct{})
	var requestShutdown sync.Once
	closeShutdown := func() { requestShutdown.Do(func() { close(shutdownRequested) }) }
	consoleShutdown := make(chan struct{})
	reregisterConsole := console.SetupConsoleHandler(consoleShutdown)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, shutdownSignals...)

	reg, err := cfg.Registry()
	if err != nil {
		return err
	}
	logger.Info("Inputs configured", "inputs", reg.Names(),
		"noise_threshold", reg.NoiseThreshold(), "input_delta", reg.InputDelta())

	src, sourceDone, err := openSource(ctx, cfg, logger, reregisterConsole)
	if err != nil {
		return err
	}

	d, err := dispatch.New(cfg.Dispatch(), logger.With("component", "dispatch"))
	if err != nil {
		return err
	}
	defer d.Close()
	if prober, ok := d.(interface{ Probe(context.Context) error }); ok {
		if err := prober.Probe(ctx); err != nil {
			logger.Warn("Car not reachable", "url", cfg.Car.URL, "error", err)
		}
	}

	ctrl := car.NewController(cfg.Controller(), d, logger.With("component", "car"))
	ctrlCtx, ctrlCancel := context.WithCancel(ctx)
	defer ctrlCancel()
	ctrlDone := make(chan struct{})
	go func() {
		ctrl.Run(ctrlCtx)
		close(ctrlDone)
	}()

	h := hub.NewHub(logger.With("component", "hub"))
	go h.Run(ctx)
	broadcaster := hub.NewBroadcaster(h, reg.Status(), logger)
	go broadcaster.Run(ctx)

	p := poller.New(reg, src,
		poller.WithInterval(cfg.Interval),
		poller.WithHandler(ctrl.Handle),
		poller.WithHandler(broadcaster.Publish),
		poller.WithLogger(logger.With("component", "poller")),
	)
	sess := session.New(ctx, p, broadcaster, logger)

	srv := server.New(h, broadcaster, sess, frontend.FS(), cfg.Addr, logger)
	srv.SetCarStats(func() server.CarStats {
		dispatched, dropped := ctrl.Stats()
		return server.CarStats{
			Instruction: string(ctrl.LastInstruction()),
			LatencyMS:   ctrl.Latency().Milliseconds(),
			Dispatched:  dispatched,
			Dropped:     dropped,
		}
	})
	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			serverErrCh <- err
		}
	}()

	url := localURL(cfg.Addr)
	logger.Info("padcontrol started", "url", url)

	if config.Watch(v, func(changes []config.ThresholdChange) {
		for _, ch := range changes {
			if ch.NoiseThreshold != nil {
				if err := sess.SetNoiseThreshold(ch.Name, *ch.NoiseThreshold); err != nil {
					logger.Warn("Ignoring reloaded noise threshold", "input", ch.Name, "error", err)
				}
			}
			if ch.InputDelta != nil {
				if err := sess.SetInputDelta(ch.Name, *ch.InputDelta); err != nil {
					logger.Warn("Ignoring reloaded input delta", "input", ch.Name, "error", err)
				}
			}
		}
	}) {
		logger.Info("Watching config file", "file", v.ConfigFileUsed())
	}

	var t *tray.Tray
	if cfg.Tray || (runtime.GOOS == "windows" && guiMode) {
		t = tray.New(sess, url, closeShutdown, logger)
		sess.OnChange(t.Refresh)
		go t.Run(nil)
	} else {
		logger.Info("Press Ctrl+C to exit")
	}

	if cfg.Autostart {
		if err := sess.Start(); err != nil {
			logger.Error("Autostart failed", "error", err)
		}
	}

	var runErr error
	select {
	case <-sigCh:
		logger.Info("Shutting down")
	case <-consoleShutdown:
		logger.Info("Shutting down")
	case <-shutdownRequested:
		logger.Info("Shutdown requested from tray")
	case err := <-serverErrCh:
		logger.Error("HTTP server error", "error", err)
		runErr = err
	}

	// Stopping sends the all-zero status, so the car halts before we exit.
	if err := sess.Stop(); err != nil && !errors.Is(err, poller.ErrNotStarted) {
		logger.Warn("Stopping session", "error", err)
	}
	ctrlCancel()
	<-ctrlDone
	flushCtx, flushCancel := context.WithTimeout(context.Background(), flushTimeout)
	ctrl.Flush(flushCtx)
	flushCancel()

	if t != nil {
		t.Quit()
	}
	cancel()
	<-sourceDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", "error", err)
	}

	logger.Info("padcontrol stopped")
	return runErr
}

// openSource starts the configured input source. The returned channel is
// closed once the source released its device.
func openSource(ctx context.Context, cfg *config.Config, logger *slog.Logger, onInit func()) (poller.Source, <-chan struct{}, error) {
	done := make(chan struct{})

	switch cfg.Source {
	case config.SourceGPIO:
		src, err := gamepad.OpenGPIO(cfg.GPIO.Pins)
		if err != nil {
			return nil, nil, err
		}
		close(done)
		logger.Info("Reading GPIO buttons", "pins", cfg.GPIO.Pins)
		return src, done, nil

	default:
		reader := sdlpad.NewReader(cfg.Joystick, logger.With("component", "sdl"))
		// SDL3 replaces the console handler during init
		reader.OnInit = onInit
		go func() {
			defer close(done)
			if err := reader.Run(ctx); err != nil {
				logger.Error("Gamepad reader failed", "error", err)
			}
		}()
		return reader, done, nil
	}
}

func localURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}
