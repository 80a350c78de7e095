package media

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

// fakeDecoder records transport calls without spawning anything.
type fakeDecoder struct {
	mu      sync.Mutex
	starts  []time.Duration
	paused  int
	resumed int
	stops   int
	sink    FrameSink
	done    func()
	failure error
}

func (f *fakeDecoder) start(offset time.Duration, sink FrameSink, done func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failure != nil {
		return f.failure
	}
	f.starts = append(f.starts, offset)
	f.sink = sink
	f.done = done
	return nil
}

func (f *fakeDecoder) pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused++
	return nil
}

func (f *fakeDecoder) resume() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumed++
	return nil
}

func (f *fakeDecoder) stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func newTestPlayer(duration time.Duration) (*clipPlayer, *fakeDecoder, *clock.Mock) {
	dec := &fakeDecoder{}
	mock := clock.NewMock()
	p := newClipPlayer("player-1", "clip.mp4", duration, dec, mock)
	return p, dec, mock
}

func TestPlayerStartsPaused(t *testing.T) {
	p, _, _ := newTestPlayer(10 * time.Second)
	if p.State() != StatePaused {
		t.Errorf("expected paused, got %s", p.State())
	}
	if p.Position() != 0 {
		t.Errorf("expected position 0, got %v", p.Position())
	}
}

func TestPlayerPlayAdvancesPosition(t *testing.T) {
	p, dec, mock := newTestPlayer(10 * time.Second)

	if err := p.Play(); err != nil {
		t.Fatalf("play failed: %v", err)
	}
	if p.State() != StatePlaying {
		t.Fatalf("expected playing, got %s", p.State())
	}
	if len(dec.starts) != 1 || dec.starts[0] != 0 {
		t.Errorf("expected decode start at 0, got %v", dec.starts)
	}

	mock.Add(3 * time.Second)
	if got := p.Position(); got != 3*time.Second {
		t.Errorf("expected position 3s, got %v", got)
	}

	// Playing again is a no-op.
	if err := p.Play(); err != nil {
		t.Fatalf("repeat play failed: %v", err)
	}
	if len(dec.starts) != 1 || dec.resumed != 0 {
		t.Error("repeated play must not touch the decoder")
	}
}

func TestPlayerPauseFreezesPosition(t *testing.T) {
	p, dec, mock := newTestPlayer(10 * time.Second)

	p.Play()
	mock.Add(2 * time.Second)
	if err := p.Pause(); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if dec.paused != 1 {
		t.Errorf("expected 1 decoder pause, got %d", dec.paused)
	}

	mock.Add(5 * time.Second)
	if got := p.Position(); got != 2*time.Second {
		t.Errorf("position must freeze while paused: got %v", got)
	}

	// Resume picks up from the frozen position.
	p.Play()
	if dec.resumed != 1 {
		t.Errorf("expected decoder resume, got %d", dec.resumed)
	}
	mock.Add(1 * time.Second)
	if got := p.Position(); got != 3*time.Second {
		t.Errorf("expected position 3s after resume, got %v", got)
	}
}

func TestPlayerSeek(t *testing.T) {
	t.Run("while paused", func(t *testing.T) {
		p, dec, _ := newTestPlayer(10 * time.Second)
		if err := p.Seek(4 * time.Second); err != nil {
			t.Fatalf("seek failed: %v", err)
		}
		if p.State() != StatePaused {
			t.Errorf("seek must preserve paused state, got %s", p.State())
		}
		if p.Position() != 4*time.Second {
			t.Errorf("expected position 4s, got %v", p.Position())
		}
		if len(dec.starts) != 0 {
			t.Error("paused seek must not start decoding")
		}
	})

	t.Run("while playing", func(t *testing.T) {
		p, dec, mock := newTestPlayer(10 * time.Second)
		p.Play()
		mock.Add(time.Second)
		if err := p.Seek(7 * time.Second); err != nil {
			t.Fatalf("seek failed: %v", err)
		}
		if p.State() != StatePlaying {
			t.Errorf("seek must preserve playing state, got %s", p.State())
		}
		if dec.stops != 1 {
			t.Errorf("playing seek must stop the old decode, got %d stops", dec.stops)
		}
		if len(dec.starts) != 2 || dec.starts[1] != 7*time.Second {
			t.Errorf("expected restart at 7s, got %v", dec.starts)
		}
		mock.Add(time.Second)
		if got := p.Position(); got != 8*time.Second {
			t.Errorf("expected position 8s, got %v", got)
		}
	})

	t.Run("clamped to clip bounds", func(t *testing.T) {
		p, _, _ := newTestPlayer(10 * time.Second)
		p.Seek(-3 * time.Second)
		if p.Position() != 0 {
			t.Errorf("negative seek must clamp to 0, got %v", p.Position())
		}
		p.Seek(25 * time.Second)
		if p.Position() != 10*time.Second {
			t.Errorf("overshoot must clamp to duration, got %v", p.Position())
		}
	})
}

func TestPlayerPositionClampedToDuration(t *testing.T) {
	p, _, mock := newTestPlayer(5 * time.Second)
	p.Play()
	mock.Add(time.Minute)
	if got := p.Position(); got != 5*time.Second {
		t.Errorf("position must not pass the clip end, got %v", got)
	}
}

func TestPlayerDecodeDoneStops(t *testing.T) {
	p, dec, mock := newTestPlayer(5 * time.Second)
	p.Play()
	mock.Add(5 * time.Second)
	dec.done()

	if p.State() != StateStopped {
		t.Errorf("expected stopped at end of clip, got %s", p.State())
	}
	if p.Position() != 5*time.Second {
		t.Errorf("expected position at clip end, got %v", p.Position())
	}

	// Play after end restarts from the beginning.
	if err := p.Play(); err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if len(dec.starts) != 2 || dec.starts[1] != 0 {
		t.Errorf("expected decode restart at 0, got %v", dec.starts)
	}
	if p.Position() != 0 {
		t.Errorf("expected position 0 on replay, got %v", p.Position())
	}
}

func TestPlayerClose(t *testing.T) {
	p, dec, _ := newTestPlayer(5 * time.Second)
	p.Play()
	if err := p.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if dec.stops != 1 {
		t.Errorf("close must stop the decoder, got %d stops", dec.stops)
	}
	if err := p.Play(); err == nil {
		t.Error("play after close must fail")
	}
	if err := p.Close(); err != nil {
		t.Errorf("repeated close must be a no-op, got %v", err)
	}
}
