// Package capture manages hardware capture feeds: one Source per
// device, each owning a session subprocess, a raw-frame conversion
// path, and a connection state machine with health monitoring.
package capture

import (
	"context"

	"github.com/studioswitch/studioswitch/internal/frame"
)

// FrameSink receives raw frames from a running session. It is called
// on the session's read goroutine; implementations must not block.
type FrameSink func(*frame.Raw)

// SessionConfig describes the stream a session should produce.
type SessionConfig struct {
	DevicePath string
	Width      int
	Height     int
	FPS        int
	Format     frame.Format
}

// Session is a single run of a capture backend for one device. A
// session is single-use: once stopped it cannot be restarted, the
// owning Source creates a fresh one instead.
type Session interface {
	// Configure prepares the session. Must be called before Start.
	Configure(cfg SessionConfig, sink FrameSink) error

	// Start launches the backend. It returns once the backend has been
	// spawned; frame delivery is signalled via Running.
	Start(ctx context.Context) error

	// Running returns a channel closed once the session is delivering
	// frames.
	Running() <-chan struct{}

	// Stop terminates the backend and releases the device. Safe to
	// call multiple times.
	Stop()
}

// SessionFactory creates sessions. The switcher wires in the ffmpeg
// factory; tests substitute fakes.
type SessionFactory func() Session
