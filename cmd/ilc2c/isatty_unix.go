//go:build !windows

package main

import "golang.org/x/sys/unix"

// isTerminal reports whether fd is attached to an interactive terminal,
// used to decide whether diagnostic output gets colorized.
func isTerminal(fd uintptr) bool {
	_, err := unix.IoctlGetTermios(int(fd), ioctlGetTermios)
	return err == nil
}
