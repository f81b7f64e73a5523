// Package server implements the Server Loop (§4.6): accepting
// connections, polling sockets, flushing outbound queues, routing
// inbound messages, and driving deferred destruction, plus the
// built-in wl_display/wl_registry/wl_callback bootstrap (§6).
package server

import (
	"os"
	"path/filepath"

	"github.com/kryptco/wlserver/internal/wire"
)

// Config gathers the environment-resolved knobs a deployed server
// needs, grounded on kryptco-kr's config.go/socket_unix.go env-driven
// path resolution.
type Config struct {
	// SocketPath is the Unix domain socket path to listen on.
	SocketPath string
	// BufferSize is the inbound/outbound buffer bound, §4.1 (default 16 KiB).
	BufferSize int
	// FdQueueCap is the buffered fd queue cap per direction, §6 (default 16).
	FdQueueCap int
	// ReadRetries is the bounded retry count for assembling a frame, §4.1 (default 2).
	ReadRetries int
	// UseSyslog selects a syslog logging backend when true.
	UseSyslog bool
}

// DefaultConfig resolves a Config from the environment, falling back
// to the spec's stated defaults.
func DefaultConfig() Config {
	return Config{
		SocketPath:  defaultSocketPath(),
		BufferSize:  wire.DefaultBufferSize,
		FdQueueCap:  wire.DefaultFdQueueCap,
		ReadRetries: wire.DefaultReadRetries,
		UseSyslog:   os.Getenv("WL_LOG_SYSLOG") == "true",
	}
}

func defaultSocketPath() string {
	if p := os.Getenv("WAYLAND_SOCKET_PATH"); p != "" {
		return p
	}
	name := os.Getenv("WAYLAND_DISPLAY")
	if name == "" {
		name = "wayland-0"
	}
	if filepath.IsAbs(name) {
		return name
	}
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, name)
}
