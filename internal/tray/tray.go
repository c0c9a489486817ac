package tray

import (
	"io"
	"log/slog"
	"os/exec"
	"runtime"
	"sync"
	"sync/atomic"

	"fyne.io/systray"
)

// ShutdownFunc is called when "Exit" is clicked
type ShutdownFunc func()

// Session is the polling session the tray menu starts and stops.
type Session interface {
	Start() error
	Stop() error
	Running() bool
}

// Tray manages the system tray icon and menu
type Tray struct {
	session      Session
	url          string
	shutdownFunc ShutdownFunc
	logger       *slog.Logger
	once         sync.Once
	shuttingDown atomic.Bool
	menuStart    *systray.MenuItem
	menuStop     *systray.MenuItem
	menuOpen     *systray.MenuItem
	menuExit     *systray.MenuItem
}

// New creates a new Tray instance
func New(session Session, url string, shutdownFn ShutdownFunc, logger *slog.Logger) *Tray {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Tray{
		session:      session,
		url:          url,
		shutdownFunc: shutdownFn,
		logger:       logger,
	}
}

// Run initializes and runs the system tray (blocks until Quit())
func (t *Tray) Run(iconData []byte) {
	systray.Run(func() {
		t.onReady(iconData)
	}, func() {
		t.onExit()
	})
}

// Quit removes the tray icon.
func (t *Tray) Quit() {
	if t.shuttingDown.CompareAndSwap(false, true) {
		systray.Quit()
	}
}

func (t *Tray) onReady(iconData []byte) {
	if iconData != nil {
		systray.SetIcon(iconData)
	}
	systray.SetTitle("padcontrol")
	systray.SetTooltip("padcontrol - " + t.url)

	t.menuStart = systray.AddMenuItem("Start session", "Start polling the gamepad")
	t.menuStop = systray.AddMenuItem("Stop session", "Stop polling and halt the car")
	systray.AddSeparator()
	t.menuOpen = systray.AddMenuItem("Open Browser", "Open web interface")
	t.menuExit = systray.AddMenuItem("Exit", "Quit application")
	t.Refresh()

	// Handle menu clicks in separate goroutines to prevent blocking
	go t.handleMenuClicks()

	t.logger.Info("System tray initialized")
}

// Refresh enables the session item that applies to the current state.
func (t *Tray) Refresh() {
	if t.menuStart == nil {
		return
	}
	if t.session.Running() {
		t.menuStart.Disable()
		t.menuStop.Enable()
	} else {
		t.menuStart.Enable()
		t.menuStop.Disable()
	}
}

func (t *Tray) handleMenuClicks() {
	for {
		select {
		case <-t.menuStart.ClickedCh:
			if err := t.session.Start(); err != nil {
				t.logger.Warn("Cannot start session", "error", err)
			}
			t.Refresh()
		case <-t.menuStop.ClickedCh:
			if err := t.session.Stop(); err != nil {
				t.logger.Warn("Cannot stop session", "error", err)
			}
			t.Refresh()
		case <-t.menuOpen.ClickedCh:
			if !t.shuttingDown.Load() {
				t.openBrowser()
			}
		case <-t.menuExit.ClickedCh:
			if t.shuttingDown.CompareAndSwap(false, true) {
				t.once.Do(t.shutdownFunc)
				systray.Quit()
				return
			}
		}
	}
}

func (t *Tray) onExit() {
	t.shuttingDown.Store(true)
	t.logger.Info("System tray exiting")
}

// openBrowser opens the default web browser
func (t *Tray) openBrowser() {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", t.url)
	case "darwin":
		cmd = exec.Command("open", t.url)
	default:
		cmd = exec.Command("xdg-open", t.url)
	}

	if err := cmd.Start(); err != nil {
		t.logger.Warn("Failed to open browser", "error", err)
	}
}
