//go:build !windows

package console

// IsRunningFromConsole is always true outside Windows; there is no GUI
// subsystem launch to detect.
func IsRunningFromConsole() bool {
	return true
}

// SetupConsoleHandler does nothing; os/signal delivers Ctrl+C here.
func SetupConsoleHandler(chan struct{}) func() {
	return func() {}
}
