package tally

import (
	"log/slog"
	"sync"

	"github.com/studioswitch/studioswitch/internal/events"
)

// Manager subscribes to switcher events and drives the tally lights:
// program solid while a camera is live, preview blinking while a
// camera is cued.
type Manager struct {
	controller   Controller
	eventBus     *events.Bus
	logger       *slog.Logger
	unsubscribes []func()

	mu            sync.RWMutex
	programCamera bool
	previewCamera bool
}

// NewManager creates a tally manager. Call Start to begin reacting to
// events.
func NewManager(controller Controller, eventBus *events.Bus, logger *slog.Logger) *Manager {
	return &Manager{
		controller: controller,
		eventBus:   eventBus,
		logger:     logger,
	}
}

// Start subscribes to slot and take events.
func (m *Manager) Start() {
	m.unsubscribes = append(m.unsubscribes,
		m.eventBus.Subscribe(func(e events.SourceLoadedEvent) {
			m.handleSlotChange(e.Bus, e.Source)
		}),
		m.eventBus.Subscribe(func(e events.TakeEvent) {
			// A take swaps the slots; the sides trade camera state.
			m.mu.Lock()
			m.programCamera, m.previewCamera = m.previewCamera, m.programCamera
			m.mu.Unlock()
			m.updateLights()
		}),
		m.eventBus.Subscribe(func(e events.TransitionCompletedEvent) {
			m.mu.Lock()
			m.programCamera, m.previewCamera = m.previewCamera, m.programCamera
			m.mu.Unlock()
			m.updateLights()
		}),
	)
	m.logger.Info("Tally manager started")
}

// Stop unsubscribes from events and turns the lights off.
func (m *Manager) Stop() {
	for _, unsub := range m.unsubscribes {
		unsub()
	}
	m.unsubscribes = nil
	m.set(LightProgram, false, "")
	m.set(LightPreview, false, "")
	m.logger.Info("Tally manager stopped")
}

func (m *Manager) handleSlotChange(slot string, source events.SourceRef) {
	isCamera := source.Kind == "camera"
	m.mu.Lock()
	switch slot {
	case "program":
		m.programCamera = isCamera
	case "preview":
		m.previewCamera = isCamera
	}
	m.mu.Unlock()
	m.updateLights()
}

func (m *Manager) updateLights() {
	m.mu.RLock()
	program, preview := m.programCamera, m.previewCamera
	m.mu.RUnlock()

	if program {
		m.set(LightProgram, true, "solid")
	} else {
		m.set(LightProgram, false, "")
	}
	if preview {
		m.set(LightPreview, true, "blink")
	} else {
		m.set(LightPreview, false, "")
	}
}

func (m *Manager) set(light Light, enabled bool, pattern string) {
	if err := m.controller.Set(light, enabled, pattern); err != nil {
		m.logger.Warn("Failed to set tally light",
			"light", string(light), "error", err)
	}
}

// GetController returns the underlying controller for direct API access.
func (m *Manager) GetController() Controller {
	return m.controller
}
