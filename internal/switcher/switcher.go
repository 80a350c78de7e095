package switcher

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/studioswitch/studioswitch/internal/capture"
	"github.com/studioswitch/studioswitch/internal/devices"
	"github.com/studioswitch/studioswitch/internal/effects"
	"github.com/studioswitch/studioswitch/internal/events"
	"github.com/studioswitch/studioswitch/internal/logging"
	"github.com/studioswitch/studioswitch/internal/media"
	"github.com/studioswitch/studioswitch/internal/metrics"
	"github.com/studioswitch/studioswitch/internal/virtual"
)

// Slot names the two outputs.
type Slot string

// Output slots.
const (
	SlotPreview Slot = "preview"
	SlotProgram Slot = "program"
)

// Switcher operation errors.
var (
	ErrClosed        = errors.New("switcher closed")
	ErrNoMediaLoaded = errors.New("no media loaded in slot")
	ErrUnknownSlot   = errors.New("unknown slot")
)

// Options configures the switcher.
type Options struct {
	// Width and Height size rendered virtual frames and outputs.
	Width, Height int
	// MediaDir is the directory media file IDs resolve against.
	MediaDir string
	// TickInterval drives transition progress. Default 50ms.
	TickInterval time.Duration
	// Clock drives transitions. Default real clock.
	Clock clock.Clock
	// Opener creates media players. Default ffmpeg.
	Opener media.Opener
}

func (o *Options) fill() {
	if o.Width <= 0 {
		o.Width = 1280
	}
	if o.Height <= 0 {
		o.Height = 720
	}
	if o.TickInterval <= 0 {
		o.TickInterval = 50 * time.Millisecond
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	if o.Opener == nil {
		o.Opener = media.Open
	}
}

// transition is one in-flight crossfade. Its ticker goroutine posts
// progress updates to the coordination loop; cancelling the context
// guarantees no further tick mutates switcher state.
type transition struct {
	ctx       context.Context
	cancel    context.CancelFunc
	startedAt time.Time
	duration  time.Duration
}

// Switcher owns the preview and program slots. Every mutation runs as
// a closure on one coordination goroutine, so operations are strictly
// serialized and slot state never needs a lock.
type Switcher struct {
	opts     Options
	bus      *events.Bus
	pipeline *effects.Pipeline
	registry *capture.Registry
	virtuals *virtual.Registry
	detector devices.Detector

	ops chan func()

	// closeMu orders every ops send against Close, so nothing can be
	// enqueued once the drain goroutine is gone.
	closeMu sync.Mutex
	closed  bool

	// Coordination-goroutine state. Only op closures touch these.
	preview   ContentSource
	program   ContentSource
	crossfade float64
	active    *transition
}

// New creates a switcher with empty slots and starts its coordination
// goroutine.
func New(bus *events.Bus, pipeline *effects.Pipeline, registry *capture.Registry,
	virtuals *virtual.Registry, detector devices.Detector, opts Options) *Switcher {
	opts.fill()
	s := &Switcher{
		opts:     opts,
		bus:      bus,
		pipeline: pipeline,
		registry: registry,
		virtuals: virtuals,
		detector: detector,
		ops:      make(chan func(), 32),
		preview:  NoSource(),
		program:  NoSource(),
	}
	go s.run()
	return s
}

func (s *Switcher) run() {
	for op := range s.ops {
		op()
	}
}

// do runs fn on the coordination goroutine and waits for its result.
// After Close it fails fast with ErrClosed: the closed check and the
// enqueue happen under closeMu, so an accepted op always has a drainer.
func (s *Switcher) do(fn func() error) error {
	reply := make(chan error, 1)
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		return ErrClosed
	}
	s.ops <- func() { reply <- fn() }
	s.closeMu.Unlock()
	return <-reply
}

// post runs fn on the coordination goroutine without waiting. Used by
// the transition ticker; after Close the tick is dropped.
func (s *Switcher) post(fn func()) {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return
	}
	s.ops <- fn
}

// Load resolves a source reference and loads it into a slot, replacing
// and releasing whatever was there. Loading a source with the same
// identity key as the current occupant is a no-op.
func (s *Switcher) Load(ctx context.Context, slot Slot, ref events.SourceRef) error {
	if slot != SlotPreview && slot != SlotProgram {
		return fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}

	// Resolution can block (device start, ffprobe), so it happens off
	// the coordination goroutine.
	src, err := s.resolve(ctx, ref)
	if err != nil {
		return err
	}

	return s.do(func() error {
		target := &s.preview
		if slot == SlotProgram {
			target = &s.program
		}
		if target.Key() == src.Key() {
			src.release(s.registry)
			return nil
		}
		old := *target
		*target = src
		s.releaseLocked(old)

		logging.GetLogger("switcher").Info("Source loaded",
			"slot", string(slot), "source", src.Key())
		s.bus.Publish(events.SourceLoadedEvent{
			Bus:       string(slot),
			Source:    src.Ref(),
			Timestamp: eventTime(s.opts.Clock),
		})
		return nil
	})
}

// resolve turns a source reference into a live content source.
func (s *Switcher) resolve(ctx context.Context, ref events.SourceRef) (ContentSource, error) {
	switch Kind(ref.Kind) {
	case KindNone:
		return NoSource(), nil
	case KindCamera:
		path, err := s.detector.DevicePathByID(ref.DeviceID)
		if err != nil {
			return ContentSource{}, fmt.Errorf("unknown device %q: %w", ref.DeviceID, err)
		}
		feed, err := s.registry.Acquire(ctx, devices.Device{ID: ref.DeviceID, Path: path})
		if err != nil {
			// The feed never made it into a slot, so the reference
			// goes straight back.
			s.registry.Release(ref.DeviceID)
			return ContentSource{}, err
		}
		return CameraSource(feed), nil
	case KindMedia:
		if ref.FileID == "" {
			return ContentSource{}, fmt.Errorf("media source needs a file id")
		}
		player, err := s.opts.Opener(filepath.Join(s.opts.MediaDir, filepath.Clean("/"+ref.FileID)))
		if err != nil {
			return ContentSource{}, err
		}
		return MediaSource(player), nil
	case KindVirtual:
		gen, err := s.virtuals.Lookup(ref.VirtualID)
		if err != nil {
			return ContentSource{}, err
		}
		return VirtualSource(gen), nil
	default:
		return ContentSource{}, fmt.Errorf("unknown source kind %q", ref.Kind)
	}
}

// Take cuts preview to program in one step: program takes over the
// preview source, the program effect chain is overwritten with a copy
// of the preview chain, and any running transition is cancelled
// without completing. Preview keeps its source, so the same take can
// be repeated.
func (s *Switcher) Take() error {
	return s.do(func() error {
		s.cancelTransitionLocked()
		s.commitTakeLocked()
		metrics.IncTakes()
		s.bus.Publish(events.TakeEvent{
			Program:   s.program.Ref(),
			Timestamp: eventTime(s.opts.Clock),
		})
		return nil
	})
}

// commitTakeLocked puts the current preview source on program and
// carries the preview effect chain with it. Runs on the coordination
// goroutine.
func (s *Switcher) commitTakeLocked() {
	s.pipeline.CopyPreviewToProgram()
	old := s.program
	s.program = s.preview
	s.retainLocked(s.program)
	s.crossfade = 0
	s.releaseLocked(old)

	logging.GetLogger("switcher").Info("Take",
		"program", s.program.Key(), "preview", s.preview.Key())
}

// retainLocked records that another slot now holds the source. Camera
// feeds are refcounted by the registry; media players and generators
// track nothing per holder.
func (s *Switcher) retainLocked(src ContentSource) {
	if src.Kind() == KindCamera && s.registry != nil {
		s.registry.Retain(src.Feed().Device().ID)
	}
}

// releaseLocked frees a source that just left a slot. A media player
// still present in the other slot stays open; it is closed when the
// last slot lets go of it.
func (s *Switcher) releaseLocked(old ContentSource) {
	if old.Kind() == KindMedia &&
		(s.preview.Key() == old.Key() || s.program.Key() == old.Key()) {
		return
	}
	old.release(s.registry)
}

// Transition starts a timed crossfade from program to preview. A
// transition started while another is running cancels the old one and
// fades from the current mix. Progress is wall-clock derived, so a
// stalled tick never slows the fade; when progress reaches 1 the
// crossfade commits as an implicit take. A zero duration completes on
// the first tick.
func (s *Switcher) Transition(duration time.Duration) error {
	return s.do(func() error {
		s.cancelTransitionLocked()
		// Nothing to fade to.
		if s.preview.Kind() == KindNone {
			return nil
		}
		if duration < 0 {
			duration = 0
		}

		ctx, cancel := context.WithCancel(context.Background())
		tr := &transition{
			ctx:       ctx,
			cancel:    cancel,
			startedAt: s.opts.Clock.Now(),
			duration:  duration,
		}
		s.active = tr

		ticker := s.opts.Clock.Ticker(s.opts.TickInterval)
		go func() {
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					s.post(func() { s.transitionTick(tr) })
				}
			}
		}()

		s.bus.Publish(events.TransitionStartedEvent{
			DurationMs: duration.Milliseconds(),
			Timestamp:  eventTime(s.opts.Clock),
		})
		logging.GetLogger("switcher").Info("Transition started", "duration", duration)
		return nil
	})
}

// transitionTick advances the crossfade. Runs on the coordination
// goroutine; a tick whose transition was cancelled is a no-op.
func (s *Switcher) transitionTick(tr *transition) {
	if s.active != tr || tr.ctx.Err() != nil {
		return
	}

	progress := 1.0
	if tr.duration > 0 {
		progress = float64(s.opts.Clock.Now().Sub(tr.startedAt)) / float64(tr.duration)
	}
	if progress < 1 {
		s.crossfade = progress
		return
	}

	// Implicit take.
	tr.cancel()
	s.active = nil
	s.commitTakeLocked()
	metrics.IncTransitions()
	s.bus.Publish(events.TransitionCompletedEvent{
		Program:   s.program.Ref(),
		Timestamp: eventTime(s.opts.Clock),
	})
}

// CancelTransition aborts a running crossfade. Program snaps back to
// full; no completion event is published.
func (s *Switcher) CancelTransition() error {
	return s.do(func() error {
		if s.active == nil {
			return nil
		}
		s.cancelTransitionLocked()
		return nil
	})
}

func (s *Switcher) cancelTransitionLocked() {
	if s.active == nil {
		return
	}
	s.active.cancel()
	s.active = nil
	s.crossfade = 0
	metrics.IncTransitionsCancelled()
	logging.GetLogger("switcher").Info("Transition cancelled")
}

// Play starts media playback in a slot.
func (s *Switcher) Play(slot Slot) error { return s.playback(slot, "play", 0) }

// Pause pauses media playback in a slot.
func (s *Switcher) Pause(slot Slot) error { return s.playback(slot, "pause", 0) }

// Seek moves the playhead of the media in a slot.
func (s *Switcher) Seek(slot Slot, pos time.Duration) error {
	return s.playback(slot, "seek", pos)
}

// StopPlayback rewinds the media in a slot to the start and pauses it.
func (s *Switcher) StopPlayback(slot Slot) error { return s.playback(slot, "stop", 0) }

func (s *Switcher) playback(slot Slot, action string, pos time.Duration) error {
	if slot != SlotPreview && slot != SlotProgram {
		return fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}
	return s.do(func() error {
		src := s.preview
		if slot == SlotProgram {
			src = s.program
		}
		player := src.Player()
		if player == nil {
			return ErrNoMediaLoaded
		}

		var err error
		switch action {
		case "play":
			err = player.Play()
		case "pause":
			err = player.Pause()
		case "seek":
			err = player.Seek(pos)
		case "stop":
			if err = player.Seek(0); err == nil {
				err = player.Pause()
			}
		}
		if err != nil {
			return err
		}

		s.bus.Publish(events.PlaybackStateChangedEvent{
			Bus:         string(slot),
			State:       string(player.State()),
			PositionSec: player.Position().Seconds(),
			Timestamp:   eventTime(s.opts.Clock),
		})
		return nil
	})
}

// PreviewImage renders the preview output: the slot's current frame
// run through the preview effect chain.
func (s *Switcher) PreviewImage() (*image.NRGBA, error) {
	var img *image.NRGBA
	err := s.do(func() error {
		img = s.preview.Image(s.opts.Width, s.opts.Height)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.pipeline.ProcessPreview(img), nil
}

// ProgramImage renders the program output. During a transition the
// processed program and preview frames are mixed at the current
// crossfade position.
func (s *Switcher) ProgramImage() (*image.NRGBA, error) {
	var programImg, previewImg *image.NRGBA
	var mix float64
	err := s.do(func() error {
		programImg = s.program.Image(s.opts.Width, s.opts.Height)
		if s.active != nil {
			previewImg = s.preview.Image(s.opts.Width, s.opts.Height)
			mix = s.crossfade
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := s.pipeline.ProcessProgram(programImg)
	if previewImg == nil || mix <= 0 {
		return out, nil
	}
	return mixImages(out, s.pipeline.ProcessPreview(previewImg), mix), nil
}

// Status is a snapshot of switcher state for the API.
type Status struct {
	Preview            events.SourceRef `json:"preview" doc:"Source in the preview slot"`
	Program            events.SourceRef `json:"program" doc:"Source in the program slot"`
	TransitionActive   bool             `json:"transition_active" doc:"Whether a crossfade is running"`
	TransitionProgress float64          `json:"transition_progress" doc:"Crossfade position, 0 to 1"`
	PreviewPlayback    *PlaybackStatus  `json:"preview_playback,omitempty" doc:"Playback state for a media preview source"`
	ProgramPlayback    *PlaybackStatus  `json:"program_playback,omitempty" doc:"Playback state for a media program source"`
}

// PlaybackStatus describes a media player's transport.
type PlaybackStatus struct {
	FileID      string  `json:"file_id" example:"clip.mp4" doc:"Media file identifier"`
	State       string  `json:"state" example:"playing" doc:"Transport state"`
	PositionSec float64 `json:"position_sec" doc:"Playhead position in seconds"`
	DurationSec float64 `json:"duration_sec" doc:"Clip duration in seconds"`
}

func playbackStatus(src ContentSource) *PlaybackStatus {
	player := src.Player()
	if player == nil {
		return nil
	}
	return &PlaybackStatus{
		FileID:      player.FileID(),
		State:       string(player.State()),
		PositionSec: player.Position().Seconds(),
		DurationSec: player.Duration().Seconds(),
	}
}

// Status reports the current slots, transition, and playback state.
func (s *Switcher) Status() (Status, error) {
	var st Status
	err := s.do(func() error {
		st = Status{
			Preview:            s.preview.Ref(),
			Program:            s.program.Ref(),
			TransitionActive:   s.active != nil,
			TransitionProgress: s.crossfade,
			PreviewPlayback:    playbackStatus(s.preview),
			ProgramPlayback:    playbackStatus(s.program),
		}
		return nil
	})
	return st, err
}

// Close cancels any transition, releases both slots, and stops the
// coordination goroutine. Camera feeds stay warm in the registry; the
// registry's own Close disconnects them. Idempotent.
func (s *Switcher) Close() error {
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		return nil
	}
	s.closed = true
	s.closeMu.Unlock()

	// With closed set no new ops can be enqueued; this final op drains
	// behind any already accepted, then run exits on the channel close.
	reply := make(chan struct{})
	s.ops <- func() {
		s.cancelTransitionLocked()
		old := s.program
		s.program = NoSource()
		s.releaseLocked(old)
		old = s.preview
		s.preview = NoSource()
		s.releaseLocked(old)
		close(reply)
	}
	<-reply
	close(s.ops)
	return nil
}

// mixImages blends two processed outputs at the given weight on b.
func mixImages(a, b *image.NRGBA, weight float64) *image.NRGBA {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	out := image.NewNRGBA(a.Bounds())
	n := len(out.Pix)
	if len(b.Pix) < n {
		n = len(b.Pix)
	}
	for i := 0; i < n; i++ {
		av := float64(a.Pix[i])
		bv := float64(b.Pix[i])
		out.Pix[i] = uint8(av + (bv-av)*weight + 0.5)
	}
	return out
}

func eventTime(clk clock.Clock) string {
	return clk.Now().UTC().Format(time.RFC3339)
}
