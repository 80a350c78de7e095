// Package media plays video files into switcher slots. A player
// decodes one clip and exposes transport controls; decoding runs in an
// ffmpeg subprocess behind the decoder interface.
package media

import (
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/studioswitch/studioswitch/internal/frame"
	"github.com/studioswitch/studioswitch/internal/logging"
)

// State is the transport state of a player.
type State string

// Transport states.
const (
	StatePlaying State = "playing"
	StatePaused  State = "paused"
	StateStopped State = "stopped"
)

// Player is one loaded clip with transport controls. Frames decoded
// while playing are published as the latest image.
type Player interface {
	// ID identifies the clip. Two players for the same file are still
	// distinct sources.
	ID() string
	// FileID names the underlying media file.
	FileID() string

	Play() error
	Pause() error
	// Seek moves the playhead, clamped to the clip duration. Playback
	// state is preserved across the seek.
	Seek(pos time.Duration) error

	Duration() time.Duration
	Position() time.Duration
	State() State

	// Latest returns the most recently decoded frame, or nil.
	Latest() *image.NRGBA

	// Close releases the decoder. The player is unusable afterwards.
	Close() error
}

// Opener creates a player for a media file path. The switcher uses the
// ffmpeg opener; tests substitute fakes.
type Opener func(path string) (Player, error)

// decoder produces frames from one clip starting at an offset. start
// after stop begins a fresh decode; pause and resume suspend the
// current one.
type decoder interface {
	start(offset time.Duration, sink FrameSink, done func()) error
	pause() error
	resume() error
	stop()
}

// FrameSink receives decoded frames.
type FrameSink func(*frame.Raw)

// clipPlayer tracks transport state and the playhead. The playhead is
// wall-clock derived: a base position plus elapsed play time since the
// last resume.
type clipPlayer struct {
	id       string
	fileID   string
	duration time.Duration
	dec      decoder
	clk      clock.Clock

	mu        sync.Mutex
	state     State
	base      time.Duration
	resumedAt time.Time
	decoding  bool
	closed    bool

	latest atomic.Pointer[image.NRGBA]
}

func newClipPlayer(id, fileID string, duration time.Duration, dec decoder, clk clock.Clock) *clipPlayer {
	return &clipPlayer{
		id:       id,
		fileID:   fileID,
		duration: duration,
		dec:      dec,
		clk:      clk,
		state:    StatePaused,
	}
}

func (p *clipPlayer) ID() string              { return p.id }
func (p *clipPlayer) FileID() string          { return p.fileID }
func (p *clipPlayer) Duration() time.Duration { return p.duration }

func (p *clipPlayer) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *clipPlayer) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked()
}

func (p *clipPlayer) positionLocked() time.Duration {
	pos := p.base
	if p.state == StatePlaying {
		pos += p.clk.Now().Sub(p.resumedAt)
	}
	if pos > p.duration {
		pos = p.duration
	}
	return pos
}

func (p *clipPlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("player closed")
	}
	if p.state == StatePlaying {
		return nil
	}
	if p.state == StateStopped {
		p.base = 0
	}
	if p.decoding {
		if err := p.dec.resume(); err != nil {
			return err
		}
	} else {
		if err := p.dec.start(p.base, p.onFrame, p.onDecodeDone); err != nil {
			return err
		}
		p.decoding = true
	}
	p.resumedAt = p.clk.Now()
	p.state = StatePlaying
	return nil
}

func (p *clipPlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("player closed")
	}
	if p.state != StatePlaying {
		return nil
	}
	p.base = p.positionLocked()
	p.state = StatePaused
	if p.decoding {
		return p.dec.pause()
	}
	return nil
}

func (p *clipPlayer) Seek(pos time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("player closed")
	}
	if pos < 0 {
		pos = 0
	}
	if pos > p.duration {
		pos = p.duration
	}

	wasPlaying := p.state == StatePlaying
	if p.decoding {
		p.dec.stop()
		p.decoding = false
	}
	p.base = pos
	if wasPlaying {
		if err := p.dec.start(pos, p.onFrame, p.onDecodeDone); err != nil {
			p.state = StatePaused
			return err
		}
		p.decoding = true
		p.resumedAt = p.clk.Now()
	} else {
		p.state = StatePaused
	}
	return nil
}

func (p *clipPlayer) Latest() *image.NRGBA { return p.latest.Load() }

func (p *clipPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.decoding {
		p.dec.stop()
		p.decoding = false
	}
	p.state = StateStopped
	return nil
}

func (p *clipPlayer) onFrame(raw *frame.Raw) {
	img, err := frame.Convert(raw)
	if err != nil {
		logging.GetLogger("media").Warn("Frame conversion failed",
			"file", p.fileID, "error", err)
		return
	}
	p.latest.Store(img)
}

// onDecodeDone fires when the decoder reaches end of file.
func (p *clipPlayer) onDecodeDone() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.state != StatePlaying {
		return
	}
	p.decoding = false
	p.base = p.duration
	p.state = StateStopped
}
