package events

// Event type constants for kelindar/event.
const (
	TypeSourceLoaded uint32 = iota + 1
	TypeTake
	TypeTransitionStarted
	TypeTransitionCompleted
	TypeFeedStatusChanged
	TypeEffectChainChanged
	TypePlaybackStateChanged
	TypeDeviceDiscovery
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// SourceRef identifies the content occupying a switcher slot.
type SourceRef struct {
	Kind      string `json:"kind" example:"camera" doc:"Source kind: camera, media, virtual, none"`
	DeviceID  string `json:"device_id,omitempty" example:"cam-1" doc:"Capture device identifier for camera sources"`
	FileID    string `json:"file_id,omitempty" example:"clip.mp4" doc:"Media file identifier for media sources"`
	VirtualID string `json:"virtual_id,omitempty" example:"bars" doc:"Virtual source identifier"`
}

// SourceLoadedEvent is published after a source is loaded into a slot.
type SourceLoadedEvent struct {
	Bus       string    `json:"bus" example:"preview" doc:"Slot the source was loaded into: preview or program"`
	Source    SourceRef `json:"source" doc:"Source now occupying the slot"`
	Timestamp string    `json:"timestamp" example:"2026-08-30T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SourceLoadedEvent.
func (e SourceLoadedEvent) Type() uint32 { return TypeSourceLoaded }

// TakeEvent is published after an atomic cut commits preview into program.
type TakeEvent struct {
	Program   SourceRef `json:"program" doc:"Source now live on program"`
	Timestamp string    `json:"timestamp" example:"2026-08-30T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for TakeEvent.
func (e TakeEvent) Type() uint32 { return TypeTake }

// TransitionStartedEvent is published when a timed crossfade begins.
type TransitionStartedEvent struct {
	DurationMs int64  `json:"duration_ms" example:"1000" doc:"Crossfade duration in milliseconds"`
	Timestamp  string `json:"timestamp" example:"2026-08-30T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for TransitionStartedEvent.
func (e TransitionStartedEvent) Type() uint32 { return TypeTransitionStarted }

// TransitionCompletedEvent is published after a crossfade's implicit take.
// Cancelled transitions do not produce this event.
type TransitionCompletedEvent struct {
	Program   SourceRef `json:"program" doc:"Source now live on program"`
	Timestamp string    `json:"timestamp" example:"2026-08-30T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for TransitionCompletedEvent.
func (e TransitionCompletedEvent) Type() uint32 { return TypeTransitionCompleted }

// FeedStatusChangedEvent is published when a capture feed's connection
// status changes (connecting, connected, error, disconnected).
type FeedStatusChangedEvent struct {
	DeviceID  string `json:"device_id" example:"cam-1" doc:"Capture device identifier"`
	Status    string `json:"status" example:"connected" doc:"New connection status"`
	Reason    string `json:"reason,omitempty" example:"permission denied" doc:"Failure reason when status is error"`
	Timestamp string `json:"timestamp" example:"2026-08-30T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for FeedStatusChangedEvent.
func (e FeedStatusChangedEvent) Type() uint32 { return TypeFeedStatusChanged }

// GetDeviceID implements the FeedEvent interface for the tally manager.
func (e FeedStatusChangedEvent) GetDeviceID() string { return e.DeviceID }

// EffectChainChangedEvent is published after any committed mutation of an
// effect chain (add, remove, reorder, overwrite on take).
type EffectChainChangedEvent struct {
	Chain     string   `json:"chain" example:"program output" doc:"Chain name: preview output or program output"`
	Effects   []string `json:"effects" example:"[\"blur\",\"grayscale\"]" doc:"Effect kinds in composition order"`
	Timestamp string   `json:"timestamp" example:"2026-08-30T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for EffectChainChangedEvent.
func (e EffectChainChangedEvent) Type() uint32 { return TypeEffectChainChanged }

// PlaybackStateChangedEvent is published when media playback state changes.
type PlaybackStateChangedEvent struct {
	Bus         string  `json:"bus" example:"program" doc:"Slot whose playback changed"`
	State       string  `json:"state" example:"playing" doc:"Playback state: playing, paused, stopped"`
	PositionSec float64 `json:"position_sec" example:"12.5" doc:"Current playback position in seconds"`
	Timestamp   string  `json:"timestamp" example:"2026-08-30T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for PlaybackStateChangedEvent.
func (e PlaybackStateChangedEvent) Type() uint32 { return TypePlaybackStateChanged }

// DeviceDiscoveryEvent represents device hotplug events.
type DeviceDiscoveryEvent struct {
	DeviceID   string `json:"device_id" example:"cam-1" doc:"Stable device identifier"`
	DevicePath string `json:"device_path" example:"/dev/video0" doc:"Path to the video device"`
	DeviceName string `json:"device_name" example:"HDMI Capture" doc:"Human-readable device name"`
	Action     string `json:"action" example:"added" doc:"Action type: added, removed"`
	Timestamp  string `json:"timestamp" example:"2026-08-30T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceDiscoveryEvent.
func (e DeviceDiscoveryEvent) Type() uint32 { return TypeDeviceDiscovery }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Timestamp  string         `json:"timestamp" example:"2026-08-30T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"switcher" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
