package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/studioswitch/studioswitch/internal/devices"
	"github.com/studioswitch/studioswitch/internal/events"
	"github.com/studioswitch/studioswitch/internal/frame"
	"github.com/studioswitch/studioswitch/internal/logging"
	"github.com/studioswitch/studioswitch/internal/metrics"
)

// Status is the connection state of a capture feed.
type Status string

// Feed connection states.
const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
)

// Feed start failures.
var (
	ErrPermissionDenied   = errors.New("permission denied")
	ErrDeviceNotAvailable = errors.New("device not available")
)

// Snapshot is the most recent converted frame of a feed, published
// atomically so readers never observe a partial frame.
type Snapshot struct {
	Image *image.NRGBA
	Seq   uint64
	Time  time.Time
}

// Preset is one capture format in the quality preference order.
type Preset struct {
	Width, Height, FPS int
}

// defaultPresets lists capture formats best first. A source walks the
// list on launch and keeps the first one its session accepts.
func defaultPresets() []Preset {
	return []Preset{
		{Width: 1920, Height: 1080, FPS: 30},
		{Width: 1280, Height: 720, FPS: 30},
		{Width: 640, Height: 480, FPS: 30},
	}
}

// Options tunes source behavior. Zero values select defaults.
type Options struct {
	// StartTimeout bounds the wait for first frames after a session
	// starts. Default 500ms.
	StartTimeout time.Duration
	// HealthInterval is how often frame progress is checked. Default 2s.
	HealthInterval time.Duration
	// RestartPause is the wait between stopping a stalled session and
	// launching its replacement, giving the device time to free up.
	// Default 100ms.
	RestartPause time.Duration
	// Clock drives start and health timing. Default real clock.
	Clock clock.Clock
	// Factory creates capture sessions. Default ffmpeg.
	Factory SessionFactory
	// Presets are the capture formats to try, best first. Default
	// 1080p, then 720p, then 480p.
	Presets []Preset
	// Width, Height, and FPS pin a single capture format, overriding
	// Presets.
	Width, Height, FPS int
}

func (o *Options) fill() {
	if o.StartTimeout <= 0 {
		o.StartTimeout = 500 * time.Millisecond
	}
	if o.HealthInterval <= 0 {
		o.HealthInterval = 2 * time.Second
	}
	if o.RestartPause <= 0 {
		o.RestartPause = 100 * time.Millisecond
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	if o.Factory == nil {
		o.Factory = NewFFmpegSession
	}
	if o.Width > 0 || o.Height > 0 || o.FPS > 0 {
		w, h, fps := o.Width, o.Height, o.FPS
		if w <= 0 {
			w = 1280
		}
		if h <= 0 {
			h = 720
		}
		if fps <= 0 {
			fps = 30
		}
		o.Presets = []Preset{{Width: w, Height: h, FPS: fps}}
	}
	if len(o.Presets) == 0 {
		o.Presets = defaultPresets()
	}
}

// Source is one capture feed. It owns the session for its device,
// converts raw frames to CPU images, publishes the latest frame as an
// atomic snapshot, and monitors frame progress while connected.
//
// State machine: disconnected -> connecting -> connected, with error
// reachable from connecting (permission denied, device not available)
// and from connected (stalled after the single restart attempt).
type Source struct {
	device   devices.Device
	detector devices.Detector
	bus      *events.Bus
	opts     Options

	mu         sync.Mutex
	status     Status
	reason     string
	session    Session
	ctx        context.Context
	cancel     context.CancelFunc
	healthStop chan struct{}
	restarted  bool

	frames atomic.Uint64
	latest atomic.Pointer[Snapshot]
}

// NewSource creates a feed for the given device in the disconnected
// state. Start must be called before frames flow.
func NewSource(device devices.Device, detector devices.Detector, bus *events.Bus, opts Options) *Source {
	opts.fill()
	return &Source{
		device:   device,
		detector: detector,
		bus:      bus,
		opts:     opts,
		status:   StatusDisconnected,
	}
}

// Device returns the device this feed captures from.
func (s *Source) Device() devices.Device { return s.device }

// Status returns the current connection state and, for the error
// state, the failure reason.
func (s *Source) Status() (Status, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.reason
}

// FrameCount returns the number of raw frames received since Start.
func (s *Source) FrameCount() uint64 { return s.frames.Load() }

// Latest returns the most recent converted frame, or nil before the
// first successful conversion.
func (s *Source) Latest() *Snapshot { return s.latest.Load() }

// Start connects the feed: it verifies device access, launches a
// session, and waits a bounded time for frames. On success the feed is
// connected and health monitoring begins. Restarting an errored or
// stopped feed is allowed; starting a connecting or connected feed is
// a no-op.
func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.status == StatusConnecting || s.status == StatusConnected {
		s.mu.Unlock()
		return nil
	}

	if s.detector != nil && !s.detector.CheckPermission(s.device) {
		s.setStatusLocked(StatusError, ErrPermissionDenied.Error())
		s.mu.Unlock()
		return ErrPermissionDenied
	}

	s.frames.Store(0)
	s.latest.Store(nil)
	s.restarted = false
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.setStatusLocked(StatusConnecting, "")

	sess, err := s.launchLocked()
	if err != nil {
		s.setStatusLocked(StatusError, ErrDeviceNotAvailable.Error())
		s.mu.Unlock()
		return errors.Join(ErrDeviceNotAvailable, err)
	}
	s.session = sess
	s.mu.Unlock()

	// Bounded wait for first frames, outside the lock so the sink can
	// run.
	timer := s.opts.Clock.Timer(s.opts.StartTimeout)
	defer timer.Stop()
	select {
	case <-sess.Running():
	case <-timer.C:
		sess.Stop()
		s.mu.Lock()
		s.setStatusLocked(StatusError, ErrDeviceNotAvailable.Error())
		s.mu.Unlock()
		return ErrDeviceNotAvailable
	case <-ctx.Done():
		sess.Stop()
		s.mu.Lock()
		s.setStatusLocked(StatusDisconnected, "")
		s.mu.Unlock()
		return ctx.Err()
	}

	s.mu.Lock()
	s.setStatusLocked(StatusConnected, "")
	s.healthStop = make(chan struct{})
	go s.healthLoop(s.healthStop)
	s.mu.Unlock()
	return nil
}

// launchLocked creates, configures, and starts a fresh session. The
// format presets are tried best first; a session that rejects a
// configuration drops the source down to the next preset.
func (s *Source) launchLocked() (Session, error) {
	var errs []error
	for i, p := range s.opts.Presets {
		sess := s.opts.Factory()
		cfg := SessionConfig{
			DevicePath: s.device.Path,
			Width:      p.Width,
			Height:     p.Height,
			FPS:        p.FPS,
			Format:     frame.FormatBGRA,
		}
		if err := sess.Configure(cfg, s.onFrame); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := sess.Start(s.ctx); err != nil {
			return nil, err
		}
		if i > 0 {
			logging.GetLogger("capture").Info("Capture format downgraded",
				"device", s.device.ID, "width", p.Width, "height", p.Height, "fps", p.FPS)
		}
		return sess, nil
	}
	return nil, fmt.Errorf("no supported capture format: %w", errors.Join(errs...))
}

// Stop disconnects the feed and releases the device. Idempotent.
func (s *Source) Stop() {
	s.mu.Lock()
	if s.status == StatusDisconnected {
		s.mu.Unlock()
		return
	}
	if s.healthStop != nil {
		close(s.healthStop)
		s.healthStop = nil
	}
	sess := s.session
	s.session = nil
	if s.cancel != nil {
		s.cancel()
	}
	s.setStatusLocked(StatusDisconnected, "")
	s.mu.Unlock()

	if sess != nil {
		sess.Stop()
	}
}

// onFrame is the session sink: count the frame, convert it, and
// publish the snapshot. Conversion failures are non-fatal; the feed
// stays connected and the previous snapshot remains visible.
func (s *Source) onFrame(raw *frame.Raw) {
	seq := s.frames.Add(1)
	metrics.IncFramesCaptured(s.device.ID)

	img, err := frame.Convert(raw)
	if err != nil {
		metrics.IncConversionFailure(s.device.ID)
		logging.GetLogger("capture").Warn("Frame conversion failed",
			"device", s.device.ID, "error", err)
		return
	}
	s.latest.Store(&Snapshot{Image: img, Seq: seq, Time: raw.Timestamp})
}

// healthLoop checks frame progress while connected. A stalled feed
// gets exactly one restart attempt; a second stall moves the feed to
// the error state.
func (s *Source) healthLoop(stop <-chan struct{}) {
	logger := logging.GetLogger("capture")
	ticker := s.opts.Clock.Ticker(s.opts.HealthInterval)
	defer ticker.Stop()

	last := s.frames.Load()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		current := s.frames.Load()
		if current != last {
			last = current
			s.mu.Lock()
			s.restarted = false
			s.mu.Unlock()
			continue
		}

		s.mu.Lock()
		if s.status != StatusConnected {
			s.mu.Unlock()
			return
		}
		if s.restarted {
			logger.Error("Feed stalled after restart", "device", s.device.ID)
			s.healthStop = nil
			old := s.session
			s.session = nil
			s.setStatusLocked(StatusError, "capture stalled")
			s.mu.Unlock()
			if old != nil {
				old.Stop()
			}
			return
		}

		logger.Warn("Feed stalled, restarting session", "device", s.device.ID)
		metrics.IncCaptureRestart(s.device.ID)
		s.restarted = true
		old := s.session
		s.session = nil
		s.mu.Unlock()

		// The device is exclusive, so the stalled session must be gone
		// before its replacement opens it.
		if old != nil {
			old.Stop()
		}
		s.opts.Clock.Sleep(s.opts.RestartPause)

		s.mu.Lock()
		if s.status != StatusConnected {
			// Stopped externally while waiting.
			s.mu.Unlock()
			return
		}
		sess, err := s.launchLocked()
		if err != nil {
			s.healthStop = nil
			s.setStatusLocked(StatusError, "capture stalled")
			s.mu.Unlock()
			return
		}
		s.session = sess
		s.mu.Unlock()
	}
}

// setStatusLocked records a state change and publishes it.
func (s *Source) setStatusLocked(status Status, reason string) {
	if s.status == status && s.reason == reason {
		return
	}
	s.status = status
	s.reason = reason
	logging.GetLogger("capture").Info("Feed status changed",
		"device", s.device.ID, "status", string(status), "reason", reason)
	if s.bus != nil {
		s.bus.Publish(events.FeedStatusChangedEvent{
			DeviceID:  s.device.ID,
			Status:    string(status),
			Reason:    reason,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}
