package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/corey/dropcache/internal/adapters/socket"
	"github.com/corey/dropcache/internal/app"
)

// isDBLockError returns true if the error chain contains a bbolt lock timeout.
// bbolt returns the string "timeout" when it cannot acquire the file lock
// within the configured deadline.
func isDBLockError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "timeout")
}

// diagnoseDBLock checks the daemon state and returns actionable guidance
// when a bbolt open fails due to lock contention. It distinguishes three
// scenarios: daemon running, stale socket, and unknown lock holder.
func diagnoseDBLock(p *app.Paths) string {
	client := socket.NewClient(p.Socket)

	if client.Ping() {
		return "cache database is locked by the running daemon\n" +
			"  → stop it first:  dropcache daemon stop\n" +
			"  → then retry your command"
	}

	if _, err := os.Stat(p.Socket); err == nil {
		return fmt.Sprintf("cache database is locked; daemon socket exists but is not responding\n"+
			"  → a previous daemon may have crashed\n"+
			"  → find the process:  %s\n"+
			"  → kill it:           kill <PID>\n"+
			"  → clean up socket:   rm %s", pidHint(p), p.Socket)
	}

	return "cache database is locked by another process\n" +
		"  → find the process:  ps aux | grep dropcache\n" +
		"  → kill it:           kill <PID>\n" +
		"  → then retry your command"
}

// pidHint points at the pid file when a daemon left one behind.
func pidHint(p *app.Paths) string {
	if data, err := os.ReadFile(p.PIDFile); err == nil {
		return "pid " + strings.TrimSpace(string(data)) + " (from " + p.PIDFile + ")"
	}
	return "ps aux | grep 'dropcache daemon'"
}
