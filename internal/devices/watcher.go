package devices

import (
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/studioswitch/studioswitch/internal/events"
)

// Watcher polls for capture devices and publishes discovery events
// when the set changes.
type Watcher struct {
	detector Detector
	bus      *events.Bus
	interval time.Duration
	clock    clock.Clock
	logger   *slog.Logger

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	known map[string]Device
}

// NewWatcher creates a device watcher polling at the given interval.
// A non-positive interval defaults to 3s.
func NewWatcher(detector Detector, bus *events.Bus, interval time.Duration, logger *slog.Logger) *Watcher {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Watcher{
		detector: detector,
		bus:      bus,
		interval: interval,
		clock:    clock.New(),
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		known:    make(map[string]Device),
	}
}

// Start seeds the known device set without publishing, then begins
// polling. Devices present at startup are not hotplug events.
func (w *Watcher) Start() {
	if found, err := w.detector.FindDevices(); err == nil {
		for _, dev := range found {
			w.known[dev.ID] = dev
		}
	}

	go w.loop()
}

// Stop halts polling. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.done
}

func (w *Watcher) loop() {
	defer close(w.done)

	ticker := w.clock.Ticker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

func (w *Watcher) poll() {
	found, err := w.detector.FindDevices()
	if err != nil {
		w.logger.Warn("Device poll failed", "error", err)
		return
	}

	current := make(map[string]Device, len(found))
	for _, dev := range found {
		current[dev.ID] = dev
		if _, ok := w.known[dev.ID]; !ok {
			w.logger.Info("Device added", "device_id", dev.ID, "path", dev.Path)
			w.publish(dev, "added")
		}
	}
	for id, dev := range w.known {
		if _, ok := current[id]; !ok {
			w.logger.Info("Device removed", "device_id", id)
			w.publish(dev, "removed")
		}
	}
	w.known = current
}

func (w *Watcher) publish(dev Device, action string) {
	w.bus.Publish(events.DeviceDiscoveryEvent{
		DeviceID:   dev.ID,
		DevicePath: dev.Path,
		DeviceName: dev.Name,
		Action:     action,
		Timestamp:  w.clock.Now().UTC().Format(time.RFC3339),
	})
}
