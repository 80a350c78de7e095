package capture

import (
	"context"
	"sync"

	"github.com/studioswitch/studioswitch/internal/devices"
	"github.com/studioswitch/studioswitch/internal/events"
	"github.com/studioswitch/studioswitch/internal/logging"
	"github.com/studioswitch/studioswitch/internal/metrics"
)

// Registry deduplicates capture feeds per device: loading the same
// camera into both slots shares one hardware session. Feeds are kept
// warm after the last holder releases them, so cutting back to a
// recently used camera is instant; only Stop and Close disconnect a
// device.
type Registry struct {
	detector devices.Detector
	bus      *events.Bus
	opts     Options

	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	source *Source
	refs   int
}

// NewRegistry creates a feed registry.
func NewRegistry(detector devices.Detector, bus *events.Bus, opts Options) *Registry {
	return &Registry{
		detector: detector,
		bus:      bus,
		opts:     opts,
		entries:  make(map[string]*registryEntry),
	}
}

// Acquire returns the feed for a device, starting one if none exists.
// The feed stays shared: a second Acquire for the same device ID
// returns the same Source. Acquiring a feed in the error state retries
// the start, so a fixed device recovers on the next load attempt. The
// start error, if any, is returned but the errored feed is still
// registered so its status is queryable.
func (r *Registry) Acquire(ctx context.Context, device devices.Device) (*Source, error) {
	r.mu.Lock()
	e, ok := r.entries[device.ID]
	if !ok {
		e = &registryEntry{source: NewSource(device, r.detector, r.bus, r.opts)}
		r.entries[device.ID] = e
		metrics.SetActiveFeeds(len(r.entries))
	}
	e.refs++
	src := e.source
	r.mu.Unlock()

	// No-op on a connecting or connected feed, restart otherwise.
	if err := src.Start(ctx); err != nil {
		logging.GetLogger("capture").Warn("Feed start failed",
			"device", device.ID, "error", err)
		return src, err
	}
	return src, nil
}

// Retain adds a reference to an already registered feed, for a holder
// that came to share a Source without going through Acquire.
func (r *Registry) Retain(deviceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[deviceID]; ok {
		e.refs++
	}
}

// Release drops one reference to a device's feed. The feed keeps
// capturing even with no holders left; Stop or Close disconnect it.
func (r *Registry) Release(deviceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[deviceID]; ok && e.refs > 0 {
		e.refs--
	}
}

// Stop disconnects a device's feed and releases the hardware. The
// entry stays registered, so a later Acquire starts it again.
func (r *Registry) Stop(deviceID string) {
	r.mu.Lock()
	e, ok := r.entries[deviceID]
	r.mu.Unlock()
	if ok {
		e.source.Stop()
	}
}

// Get returns the feed for a device ID without acquiring a reference,
// or nil if none is registered.
func (r *Registry) Get(deviceID string) *Source {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[deviceID]; ok {
		return e.source
	}
	return nil
}

// Active returns the currently registered feeds.
func (r *Registry) Active() []*Source {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Source, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.source)
	}
	return out
}

// Close stops every feed.
func (r *Registry) Close() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*registryEntry)
	metrics.SetActiveFeeds(0)
	r.mu.Unlock()

	for _, e := range entries {
		e.source.Stop()
	}
}
