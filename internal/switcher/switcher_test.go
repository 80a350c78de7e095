package switcher

import (
	"context"
	"errors"
	"image"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/studioswitch/studioswitch/internal/capture"
	"github.com/studioswitch/studioswitch/internal/devices"
	"github.com/studioswitch/studioswitch/internal/effects"
	"github.com/studioswitch/studioswitch/internal/events"
	"github.com/studioswitch/studioswitch/internal/media"
	"github.com/studioswitch/studioswitch/internal/virtual"
)

// fakePlayer is an in-memory media.Player.
type fakePlayer struct {
	mu       sync.Mutex
	id       string
	fileID   string
	state    media.State
	position time.Duration
	duration time.Duration
	closed   bool
}

func (p *fakePlayer) ID() string     { return p.id }
func (p *fakePlayer) FileID() string { return p.fileID }

func (p *fakePlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("closed")
	}
	p.state = media.StatePlaying
	return nil
}

func (p *fakePlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = media.StatePaused
	return nil
}

func (p *fakePlayer) Seek(pos time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = pos
	return nil
}

func (p *fakePlayer) Duration() time.Duration { return p.duration }

func (p *fakePlayer) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

func (p *fakePlayer) State() media.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *fakePlayer) Latest() *image.NRGBA { return image.NewNRGBA(image.Rect(0, 0, 4, 4)) }

func (p *fakePlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.state = media.StateStopped
	return nil
}

func (p *fakePlayer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// fakeCaptureSession satisfies capture.Session and delivers frames
// immediately.
type fakeCaptureSession struct {
	mu      sync.Mutex
	running chan struct{}
	stopped bool
}

func (f *fakeCaptureSession) Configure(cfg capture.SessionConfig, sink capture.FrameSink) error {
	return nil
}

func (f *fakeCaptureSession) Start(ctx context.Context) error {
	close(f.running)
	return nil
}

func (f *fakeCaptureSession) Running() <-chan struct{} { return f.running }

func (f *fakeCaptureSession) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

type testDetector struct{}

func (testDetector) FindDevices() ([]devices.Device, error) {
	return []devices.Device{{ID: "cam-1", Path: "/dev/video0", Name: "Cam"}}, nil
}

func (testDetector) DevicePathByID(id string) (string, error) {
	if id == "cam-1" {
		return "/dev/video0", nil
	}
	return "", errors.New("not found")
}

func (testDetector) CheckPermission(devices.Device) bool { return true }

// harness bundles a switcher with its collaborators.
type harness struct {
	sw       *Switcher
	bus      *events.Bus
	pipeline *effects.Pipeline
	registry *capture.Registry
	clock    *clock.Mock
	players  []*fakePlayer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	bus := events.New()
	dev := effects.NewSoftwareDevice()
	t.Cleanup(dev.Close)
	pipeline := effects.NewPipeline(dev, bus)
	registry := capture.NewRegistry(testDetector{}, bus, capture.Options{
		Factory: func() capture.Session {
			return &fakeCaptureSession{running: make(chan struct{})}
		},
		Width: 4, Height: 4,
	})
	mock := clock.NewMock()
	h := &harness{bus: bus, pipeline: pipeline, registry: registry, clock: mock}

	h.sw = New(bus, pipeline, registry, virtual.NewRegistry(), testDetector{}, Options{
		Width: 16, Height: 9,
		Clock:        mock,
		TickInterval: 50 * time.Millisecond,
		Opener: func(path string) (media.Player, error) {
			p := &fakePlayer{
				id:       path + "#" + time.Now().Format("150405.000000000"),
				fileID:   filepath.Base(path),
				state:    media.StatePaused,
				duration: 10 * time.Second,
			}
			h.players = append(h.players, p)
			return p, nil
		},
	})
	t.Cleanup(func() {
		h.sw.Close()
		h.registry.Close()
	})
	return h
}

func waitEvent[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		panic("unreachable")
	}
}

func virtualRef(id string) events.SourceRef {
	return events.SourceRef{Kind: "virtual", VirtualID: id}
}

func TestLoadPublishesAndReflectsStatus(t *testing.T) {
	h := newHarness(t)
	loaded := make(chan events.SourceLoadedEvent, 4)
	defer h.bus.Subscribe(func(e events.SourceLoadedEvent) { loaded <- e })()

	if err := h.sw.Load(context.Background(), SlotPreview, virtualRef("bars")); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	ev := waitEvent(t, loaded)
	if ev.Bus != "preview" || ev.Source.VirtualID != "bars" {
		t.Errorf("unexpected event: %+v", ev)
	}

	st, err := h.sw.Status()
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if st.Preview.Kind != "virtual" || st.Preview.VirtualID != "bars" {
		t.Errorf("status preview wrong: %+v", st.Preview)
	}
	if st.Program.Kind != "none" {
		t.Errorf("program must start empty, got %+v", st.Program)
	}
}

func TestLoadSameIdentityIsNoop(t *testing.T) {
	h := newHarness(t)
	loaded := make(chan events.SourceLoadedEvent, 4)
	defer h.bus.Subscribe(func(e events.SourceLoadedEvent) { loaded <- e })()

	ref := virtualRef("bars")
	h.sw.Load(context.Background(), SlotPreview, ref)
	waitEvent(t, loaded)

	h.sw.Load(context.Background(), SlotPreview, ref)
	select {
	case ev := <-loaded:
		t.Errorf("reloading the same source must not publish, got %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLoadReplacingMediaClosesPlayer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.sw.Load(ctx, SlotPreview, events.SourceRef{Kind: "media", FileID: "a.mp4"})
	h.sw.Load(ctx, SlotPreview, virtualRef("bars"))

	if len(h.players) != 1 {
		t.Fatalf("expected 1 player, got %d", len(h.players))
	}
	if !h.players[0].isClosed() {
		t.Error("replaced media player must be closed")
	}
}

func TestLoadInvalidRefs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		name string
		slot Slot
		ref  events.SourceRef
	}{
		{"unknown slot", Slot("aux"), virtualRef("bars")},
		{"unknown kind", SlotPreview, events.SourceRef{Kind: "hologram"}},
		{"unknown device", SlotPreview, events.SourceRef{Kind: "camera", DeviceID: "cam-9"}},
		{"unknown virtual", SlotPreview, events.SourceRef{Kind: "virtual", VirtualID: "nope"}},
		{"media without file", SlotPreview, events.SourceRef{Kind: "media"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := h.sw.Load(ctx, tt.slot, tt.ref); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestCameraSharedAcrossSlots(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	camRef := events.SourceRef{Kind: "camera", DeviceID: "cam-1"}

	if err := h.sw.Load(ctx, SlotPreview, camRef); err != nil {
		t.Fatalf("load preview failed: %v", err)
	}
	if err := h.sw.Load(ctx, SlotProgram, camRef); err != nil {
		t.Fatalf("load program failed: %v", err)
	}

	feed := h.registry.Get("cam-1")
	if feed == nil {
		t.Fatal("expected an active feed")
	}

	// Replacing one slot keeps the shared feed for the other.
	h.sw.Load(ctx, SlotPreview, virtualRef("bars"))
	if status, _ := feed.Status(); status != capture.StatusConnected {
		t.Errorf("feed must stay connected while program holds it, got %s", status)
	}

	// Even with no slot holding it the feed stays registered and
	// capturing, so cutting back to the camera is instant.
	h.sw.Load(ctx, SlotProgram, virtualRef("black"))
	if h.registry.Get("cam-1") == nil {
		t.Fatal("feed must stay registered after the last slot lets go")
	}
	if status, _ := feed.Status(); status != capture.StatusConnected {
		t.Errorf("unreferenced feed must stay warm, got %s", status)
	}
}

// flakyDetector denies device access until allow is called.
type flakyDetector struct {
	mu      sync.Mutex
	allowed bool
}

func (d *flakyDetector) FindDevices() ([]devices.Device, error) {
	return []devices.Device{{ID: "cam-1", Path: "/dev/video0", Name: "Cam"}}, nil
}

func (d *flakyDetector) DevicePathByID(id string) (string, error) {
	if id == "cam-1" {
		return "/dev/video0", nil
	}
	return "", errors.New("not found")
}

func (d *flakyDetector) CheckPermission(devices.Device) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.allowed
}

func (d *flakyDetector) allow() {
	d.mu.Lock()
	d.allowed = true
	d.mu.Unlock()
}

func TestLoadCameraRetriesAfterFailedStart(t *testing.T) {
	bus := events.New()
	dev := effects.NewSoftwareDevice()
	t.Cleanup(dev.Close)
	pipeline := effects.NewPipeline(dev, bus)
	det := &flakyDetector{}
	registry := capture.NewRegistry(det, bus, capture.Options{
		Factory: func() capture.Session {
			return &fakeCaptureSession{running: make(chan struct{})}
		},
		Width: 4, Height: 4,
	})
	sw := New(bus, pipeline, registry, virtual.NewRegistry(), det, Options{Width: 16, Height: 9})
	t.Cleanup(func() {
		sw.Close()
		registry.Close()
	})

	camRef := events.SourceRef{Kind: "camera", DeviceID: "cam-1"}
	ctx := context.Background()
	if err := sw.Load(ctx, SlotPreview, camRef); err == nil {
		t.Fatal("expected load to fail while device access is denied")
	}

	det.allow()
	if err := sw.Load(ctx, SlotPreview, camRef); err != nil {
		t.Fatalf("load after fixing device access failed: %v", err)
	}
	st, err := sw.Status()
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if st.Preview.DeviceID != "cam-1" {
		t.Errorf("preview must hold the recovered camera, got %+v", st.Preview)
	}
	feed := registry.Get("cam-1")
	if feed == nil {
		t.Fatal("expected a registered feed")
	}
	if status, _ := feed.Status(); status != capture.StatusConnected {
		t.Errorf("expected connected feed after retry, got %s", status)
	}
}

func TestTakeCopiesPreviewToProgram(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	took := make(chan events.TakeEvent, 4)
	defer h.bus.Subscribe(func(e events.TakeEvent) { took <- e })()

	h.sw.Load(ctx, SlotPreview, virtualRef("bars"))
	h.sw.Load(ctx, SlotProgram, virtualRef("black"))

	if err := h.sw.Take(); err != nil {
		t.Fatalf("take failed: %v", err)
	}
	ev := waitEvent(t, took)
	if ev.Program.VirtualID != "bars" {
		t.Errorf("take event must carry the new program source: %+v", ev)
	}

	st, _ := h.sw.Status()
	if st.Program.VirtualID != "bars" {
		t.Errorf("program must hold the preview source, got %+v", st.Program)
	}
	if st.Preview.VirtualID != "bars" {
		t.Errorf("preview must keep its source through a take, got %+v", st.Preview)
	}

	// The same preview can be taken again.
	if err := h.sw.Take(); err != nil {
		t.Fatalf("repeated take failed: %v", err)
	}
	if ev := waitEvent(t, took); ev.Program.VirtualID != "bars" {
		t.Errorf("repeated take must keep program on bars: %+v", ev)
	}
}

func TestTakeReleasesReplacedProgramSource(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.sw.Load(ctx, SlotProgram, events.SourceRef{Kind: "media", FileID: "clip.mp4"})
	h.sw.Load(ctx, SlotPreview, virtualRef("bars"))

	if err := h.sw.Take(); err != nil {
		t.Fatalf("take failed: %v", err)
	}
	if !h.players[0].isClosed() {
		t.Error("take must close the media player it bumped off program")
	}
}

func TestTakeSharesMediaPlayerAcrossSlots(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.sw.Load(ctx, SlotPreview, events.SourceRef{Kind: "media", FileID: "clip.mp4"})
	if err := h.sw.Take(); err != nil {
		t.Fatalf("take failed: %v", err)
	}
	if h.players[0].isClosed() {
		t.Fatal("take must not close the player now shared by both slots")
	}

	st, _ := h.sw.Status()
	if st.ProgramPlayback == nil || st.ProgramPlayback.FileID != "clip.mp4" {
		t.Errorf("program must report the shared player, got %+v", st.ProgramPlayback)
	}

	// Replacing preview keeps the player alive for program.
	h.sw.Load(ctx, SlotPreview, virtualRef("bars"))
	if h.players[0].isClosed() {
		t.Fatal("player must stay open while program still holds it")
	}

	// Replacing program drops the last reference.
	h.sw.Load(ctx, SlotProgram, virtualRef("black"))
	if !h.players[0].isClosed() {
		t.Error("player must close when the last slot lets go of it")
	}
}

func TestTakeCopiesEffectChain(t *testing.T) {
	h := newHarness(t)
	h.pipeline.PreviewChain().Add(effects.New(effects.KindGrayscale))
	h.pipeline.ProgramChain().Add(effects.New(effects.KindBlur))
	h.pipeline.ProgramChain().Add(effects.New(effects.KindSepia))

	if err := h.sw.Take(); err != nil {
		t.Fatalf("take failed: %v", err)
	}

	got := h.pipeline.ProgramChain().Effects()
	if len(got) != 1 || got[0].Kind != effects.KindGrayscale {
		t.Errorf("program chain must be overwritten with preview's effects, got %d effects", len(got))
	}
	if h.pipeline.PreviewChain().Len() != 1 {
		t.Error("preview chain must be untouched by take")
	}
}

func TestTransitionCompletes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	started := make(chan events.TransitionStartedEvent, 2)
	completed := make(chan events.TransitionCompletedEvent, 2)
	defer h.bus.Subscribe(func(e events.TransitionStartedEvent) { started <- e })()
	defer h.bus.Subscribe(func(e events.TransitionCompletedEvent) { completed <- e })()

	h.sw.Load(ctx, SlotPreview, virtualRef("bars"))
	h.sw.Load(ctx, SlotProgram, virtualRef("black"))

	if err := h.sw.Transition(time.Second); err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if ev := waitEvent(t, started); ev.DurationMs != 1000 {
		t.Errorf("expected 1000ms duration, got %d", ev.DurationMs)
	}

	// Let the ticker goroutine register before driving the clock.
	time.Sleep(20 * time.Millisecond)

	h.clock.Add(500 * time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	st, _ := h.sw.Status()
	if !st.TransitionActive {
		t.Fatal("transition must still be active at the midpoint")
	}
	if st.TransitionProgress < 0.4 || st.TransitionProgress > 0.6 {
		t.Errorf("expected progress near 0.5, got %v", st.TransitionProgress)
	}

	h.clock.Add(600 * time.Millisecond)
	ev := waitEvent(t, completed)
	if ev.Program.VirtualID != "bars" {
		t.Errorf("completion must carry the new program source: %+v", ev)
	}

	st, _ = h.sw.Status()
	if st.TransitionActive {
		t.Error("transition must be inactive after completion")
	}
	if st.TransitionProgress != 0 {
		t.Errorf("crossfade must reset after the implicit take, got %v", st.TransitionProgress)
	}
	if st.Program.VirtualID != "bars" {
		t.Errorf("implicit take must commit preview to program, got %+v", st.Program)
	}
}

func TestTransitionZeroDurationCompletesOnFirstTick(t *testing.T) {
	h := newHarness(t)
	completed := make(chan events.TransitionCompletedEvent, 2)
	defer h.bus.Subscribe(func(e events.TransitionCompletedEvent) { completed <- e })()

	h.sw.Load(context.Background(), SlotPreview, virtualRef("bars"))

	if err := h.sw.Transition(0); err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	h.clock.Add(50 * time.Millisecond)
	waitEvent(t, completed)

	st, _ := h.sw.Status()
	if st.Program.VirtualID != "bars" {
		t.Errorf("expected committed program, got %+v", st.Program)
	}
}

func TestTransitionRestartsActiveTransition(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	started := make(chan events.TransitionStartedEvent, 2)
	completed := make(chan events.TransitionCompletedEvent, 2)
	defer h.bus.Subscribe(func(e events.TransitionStartedEvent) { started <- e })()
	defer h.bus.Subscribe(func(e events.TransitionCompletedEvent) { completed <- e })()

	h.sw.Load(ctx, SlotPreview, virtualRef("bars"))
	h.sw.Load(ctx, SlotProgram, virtualRef("black"))

	if err := h.sw.Transition(time.Minute); err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	waitEvent(t, started)
	time.Sleep(20 * time.Millisecond)
	h.clock.Add(30 * time.Second)
	time.Sleep(20 * time.Millisecond)

	// Starting another transition replaces the slow one.
	if err := h.sw.Transition(time.Second); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	if ev := waitEvent(t, started); ev.DurationMs != 1000 {
		t.Errorf("expected the new 1000ms duration, got %d", ev.DurationMs)
	}
	st, _ := h.sw.Status()
	if !st.TransitionActive {
		t.Fatal("the replacement transition must be active")
	}
	if st.TransitionProgress != 0 {
		t.Errorf("restart must reset the crossfade, got %v", st.TransitionProgress)
	}

	time.Sleep(20 * time.Millisecond)
	h.clock.Add(1100 * time.Millisecond)
	if ev := waitEvent(t, completed); ev.Program.VirtualID != "bars" {
		t.Errorf("completion must carry the new program source: %+v", ev)
	}

	// The replaced transition must never complete on its own.
	h.clock.Add(2 * time.Minute)
	select {
	case ev := <-completed:
		t.Errorf("replaced transition produced completion: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTransitionWithEmptyPreviewIsNoop(t *testing.T) {
	h := newHarness(t)
	started := make(chan events.TransitionStartedEvent, 2)
	defer h.bus.Subscribe(func(e events.TransitionStartedEvent) { started <- e })()

	if err := h.sw.Transition(time.Second); err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	st, _ := h.sw.Status()
	if st.TransitionActive {
		t.Error("empty preview must not start a transition")
	}
	select {
	case <-started:
		t.Error("no start event expected for an empty preview")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCancelTransition(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	completed := make(chan events.TransitionCompletedEvent, 2)
	defer h.bus.Subscribe(func(e events.TransitionCompletedEvent) { completed <- e })()

	h.sw.Load(ctx, SlotPreview, virtualRef("bars"))
	h.sw.Load(ctx, SlotProgram, virtualRef("black"))

	h.sw.Transition(time.Second)
	time.Sleep(20 * time.Millisecond)
	h.clock.Add(300 * time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	if err := h.sw.CancelTransition(); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	st, _ := h.sw.Status()
	if st.TransitionActive {
		t.Error("transition must be inactive after cancel")
	}
	if st.TransitionProgress != 0 {
		t.Errorf("crossfade must snap back to 0, got %v", st.TransitionProgress)
	}
	if st.Program.VirtualID != "black" {
		t.Errorf("cancelled transition must not commit, got %+v", st.Program)
	}

	// Ticks from the cancelled transition must never fire again.
	h.clock.Add(2 * time.Second)
	select {
	case ev := <-completed:
		t.Errorf("cancelled transition produced completion: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTakeCancelsActiveTransition(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	completed := make(chan events.TransitionCompletedEvent, 2)
	defer h.bus.Subscribe(func(e events.TransitionCompletedEvent) { completed <- e })()

	h.sw.Load(ctx, SlotPreview, virtualRef("bars"))
	h.sw.Transition(time.Minute)
	time.Sleep(20 * time.Millisecond)

	if err := h.sw.Take(); err != nil {
		t.Fatalf("take failed: %v", err)
	}
	st, _ := h.sw.Status()
	if st.TransitionActive {
		t.Error("take must cancel the running transition")
	}
	if st.Program.VirtualID != "bars" {
		t.Errorf("take must commit immediately, got %+v", st.Program)
	}

	h.clock.Add(2 * time.Minute)
	select {
	case <-completed:
		t.Error("cancelled transition must not complete after take")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPlaybackControls(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	playback := make(chan events.PlaybackStateChangedEvent, 4)
	defer h.bus.Subscribe(func(e events.PlaybackStateChangedEvent) { playback <- e })()

	h.sw.Load(ctx, SlotPreview, events.SourceRef{Kind: "media", FileID: "clip.mp4"})

	if err := h.sw.Play(SlotPreview); err != nil {
		t.Fatalf("play failed: %v", err)
	}
	ev := waitEvent(t, playback)
	if ev.Bus != "preview" || ev.State != "playing" {
		t.Errorf("unexpected playback event: %+v", ev)
	}

	if err := h.sw.Seek(SlotPreview, 5*time.Second); err != nil {
		t.Fatalf("seek failed: %v", err)
	}
	if err := h.sw.Pause(SlotPreview); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if h.players[0].Position() != 5*time.Second {
		t.Errorf("expected position 5s, got %v", h.players[0].Position())
	}

	st, _ := h.sw.Status()
	if st.PreviewPlayback == nil || st.PreviewPlayback.State != "paused" {
		t.Errorf("status must report paused playback, got %+v", st.PreviewPlayback)
	}

	if err := h.sw.StopPlayback(SlotPreview); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if h.players[0].Position() != 0 {
		t.Errorf("stop must rewind to 0, got %v", h.players[0].Position())
	}
	if h.players[0].State() != media.StatePaused {
		t.Errorf("stop must leave the player paused, got %v", h.players[0].State())
	}
}

func TestPlaybackWithoutMedia(t *testing.T) {
	h := newHarness(t)
	h.sw.Load(context.Background(), SlotPreview, virtualRef("bars"))

	if err := h.sw.Play(SlotPreview); !errors.Is(err, ErrNoMediaLoaded) {
		t.Errorf("expected ErrNoMediaLoaded, got %v", err)
	}
	if err := h.sw.Pause(SlotProgram); !errors.Is(err, ErrNoMediaLoaded) {
		t.Errorf("expected ErrNoMediaLoaded, got %v", err)
	}
	if err := h.sw.Seek(Slot("aux"), 0); !errors.Is(err, ErrUnknownSlot) {
		t.Errorf("expected ErrUnknownSlot, got %v", err)
	}
}

func TestOutputImages(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// Empty slots render nothing.
	img, err := h.sw.PreviewImage()
	if err != nil {
		t.Fatalf("preview image failed: %v", err)
	}
	if img != nil {
		t.Error("empty preview slot must render nil")
	}

	h.sw.Load(ctx, SlotPreview, virtualRef("bars"))
	img, err = h.sw.PreviewImage()
	if err != nil {
		t.Fatalf("preview image failed: %v", err)
	}
	if img == nil {
		t.Fatal("expected a rendered frame")
	}
	if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 9 {
		t.Errorf("expected 16x9 frame, got %dx%d", b.Dx(), b.Dy())
	}

	h.sw.Load(ctx, SlotProgram, virtualRef("white"))
	img, err = h.sw.ProgramImage()
	if err != nil {
		t.Fatalf("program image failed: %v", err)
	}
	if img == nil || img.Pix[0] != 255 {
		t.Error("program output must render the white source")
	}
}

func TestCloseReleasesEverything(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.sw.Load(ctx, SlotPreview, events.SourceRef{Kind: "media", FileID: "clip.mp4"})
	h.sw.Load(ctx, SlotProgram, events.SourceRef{Kind: "camera", DeviceID: "cam-1"})

	if err := h.sw.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if !h.players[0].isClosed() {
		t.Error("close must close loaded media players")
	}
	// The camera feed stays warm; the registry's own Close stops it.
	feed := h.registry.Get("cam-1")
	if feed == nil {
		t.Fatal("camera feed must stay registered after switcher close")
	}
	if status, _ := feed.Status(); status != capture.StatusConnected {
		t.Errorf("camera feed must stay warm after switcher close, got %s", status)
	}

	// Every operation after close fails fast, including far more calls
	// than the op queue buffers.
	for i := 0; i < 64; i++ {
		if err := h.sw.Take(); !errors.Is(err, ErrClosed) {
			t.Fatalf("take %d after close: expected ErrClosed, got %v", i, err)
		}
	}
	if _, err := h.sw.Status(); !errors.Is(err, ErrClosed) {
		t.Errorf("status after close must fail with ErrClosed, got %v", err)
	}
	if err := h.sw.Close(); err != nil {
		t.Errorf("repeated close must be a no-op, got %v", err)
	}

	h.registry.Close()
	if status, _ := feed.Status(); status != capture.StatusDisconnected {
		t.Errorf("registry close must stop the feed, got %s", status)
	}
}
