//go:build !linux && !darwin && !windows

package logger

// isTerminal is conservative on platforms without a termios probe.
func isTerminal(fd uintptr) bool {
	return false
}
