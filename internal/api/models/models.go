// Package models defines the request and response bodies of the HTTP
// API.
package models

import (
	"github.com/studioswitch/studioswitch/internal/events"
	"github.com/studioswitch/studioswitch/internal/switcher"
)

// HealthData is the health check payload.
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Health status"`
	Message string `json:"message" example:"API is healthy" doc:"Status detail"`
}

// HealthResponse wraps the health check payload.
type HealthResponse struct {
	Body HealthData
}

// VersionData contains version and build metadata.
type VersionData struct {
	Version   string `json:"version" example:"1.2.0" doc:"Application version"`
	GitCommit string `json:"git_commit" doc:"Git commit hash"`
	BuildDate string `json:"build_date" doc:"Build timestamp"`
	BuildID   string `json:"build_id" doc:"Build identifier"`
	GoVersion string `json:"go_version" doc:"Go toolchain version"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"Build platform"`
}

// VersionResponse wraps version metadata.
type VersionResponse struct {
	Body VersionData
}

// StatusResponse wraps the switcher status snapshot.
type StatusResponse struct {
	Body switcher.Status
}

// LoadSourceRequest loads a source into a slot.
type LoadSourceRequest struct {
	Slot string           `path:"slot" enum:"preview,program" doc:"Target slot"`
	Body events.SourceRef `doc:"Source to load"`
}

// TransitionRequest starts a timed crossfade.
type TransitionRequest struct {
	Body struct {
		DurationMs int64 `json:"duration_ms" minimum:"0" example:"1000" doc:"Crossfade duration in milliseconds"`
	}
}

// PlaybackRequest controls media playback in a slot.
type PlaybackRequest struct {
	Slot   string `path:"slot" enum:"preview,program" doc:"Target slot"`
	Action string `path:"action" enum:"play,pause,seek,stop" doc:"Transport action"`
	Body   struct {
		PositionSec float64 `json:"position_sec,omitempty" minimum:"0" doc:"Seek position in seconds, for seek"`
	}
}

// StatusOnlyResponse carries the refreshed status after a mutation.
type StatusOnlyResponse struct {
	Body switcher.Status
}

// DeviceData describes one capture device and its feed state.
type DeviceData struct {
	ID     string `json:"id" example:"cam-1" doc:"Stable device identifier"`
	Path   string `json:"path" example:"/dev/video0" doc:"Device path"`
	Name   string `json:"name" example:"HDMI Capture" doc:"Human-readable name"`
	Status string `json:"status" example:"connected" doc:"Feed status, idle when no feed is active"`
	Reason string `json:"reason,omitempty" doc:"Failure reason for errored feeds"`
	Frames uint64 `json:"frames" doc:"Frames received by the active feed"`
}

// DeviceListResponse wraps the device list.
type DeviceListResponse struct {
	Body struct {
		Devices []DeviceData `json:"devices" doc:"Available capture devices"`
		Count   int          `json:"count" doc:"Number of devices"`
	}
}

// VirtualSourceData describes one virtual source.
type VirtualSourceData struct {
	ID   string `json:"id" example:"bars" doc:"Virtual source identifier"`
	Name string `json:"name" example:"Color Bars" doc:"Human-readable name"`
}

// VirtualListResponse wraps the virtual source list.
type VirtualListResponse struct {
	Body struct {
		Sources []VirtualSourceData `json:"sources" doc:"Available virtual sources"`
	}
}

// EffectData describes one effect in a chain.
type EffectData struct {
	ID      string             `json:"id" doc:"Effect identity"`
	Kind    string             `json:"kind" example:"blur" doc:"Effect kind"`
	Name    string             `json:"name" doc:"Display name"`
	Params  map[string]float64 `json:"params" doc:"Effect parameters"`
	Enabled bool               `json:"enabled" doc:"Whether the effect is applied"`
}

// ChainData describes an effect chain.
type ChainData struct {
	Name    string       `json:"name" example:"program output" doc:"Chain name"`
	Enabled bool         `json:"enabled" doc:"Whether the chain is applied"`
	Opacity float64      `json:"opacity" doc:"Blend factor of the processed result"`
	Effects []EffectData `json:"effects" doc:"Effects in composition order"`
}

// ChainResponse wraps one chain.
type ChainResponse struct {
	Body ChainData
}

// ChainUpdateRequest toggles a chain or sets its opacity.
type ChainUpdateRequest struct {
	Chain string `path:"chain" doc:"Chain name"`
	Body  struct {
		Enabled *bool    `json:"enabled,omitempty" doc:"New enabled state"`
		Opacity *float64 `json:"opacity,omitempty" minimum:"0" maximum:"1" doc:"New opacity"`
	}
}

// EffectCreateRequest appends an effect to a chain.
type EffectCreateRequest struct {
	Chain string `path:"chain" doc:"Chain name"`
	Body  struct {
		Kind string `json:"kind" example:"blur" doc:"Effect kind to add"`
	}
}

// EffectUpdateRequest edits an effect's parameters or enabled flag.
type EffectUpdateRequest struct {
	Chain string `path:"chain" doc:"Chain name"`
	ID    string `path:"id" doc:"Effect identity"`
	Body  struct {
		Params  map[string]float64 `json:"params,omitempty" doc:"Parameter values to set"`
		Enabled *bool              `json:"enabled,omitempty" doc:"New enabled state"`
	}
}

// EffectMoveRequest repositions an effect within its chain.
type EffectMoveRequest struct {
	Chain string `path:"chain" doc:"Chain name"`
	ID    string `path:"id" doc:"Effect identity"`
	Body  struct {
		Index int `json:"index" minimum:"0" doc:"Target position"`
	}
}

// EffectPathRequest addresses one effect in a chain.
type EffectPathRequest struct {
	Chain string `path:"chain" doc:"Chain name"`
	ID    string `path:"id" doc:"Effect identity"`
}

// EffectResponse wraps one effect.
type EffectResponse struct {
	Body EffectData
}

// LogEntryData is one buffered log entry.
type LogEntryData struct {
	Timestamp  string         `json:"timestamp" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"switcher" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured attributes"`
}

// LogsResponse wraps recent log entries.
type LogsResponse struct {
	Body struct {
		Entries []LogEntryData `json:"entries" doc:"Recent log entries, oldest first"`
		Count   int            `json:"count" doc:"Number of entries"`
	}
}

// TallyData lists the available tally lights.
type TallyData struct {
	Lights []string `json:"lights" doc:"Lights the tally controller can drive"`
}

// TallyResponse wraps tally capability info.
type TallyResponse struct {
	Body TallyData
}
