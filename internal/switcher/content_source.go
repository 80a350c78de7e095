// Package switcher implements the switching core: two content slots,
// an atomic take, a wall-clock-driven crossfade, and per-slot playback
// control. All slot mutations run on a single coordination goroutine.
package switcher

import (
	"image"

	"github.com/studioswitch/studioswitch/internal/capture"
	"github.com/studioswitch/studioswitch/internal/events"
	"github.com/studioswitch/studioswitch/internal/logging"
	"github.com/studioswitch/studioswitch/internal/media"
	"github.com/studioswitch/studioswitch/internal/virtual"
)

// Kind discriminates the content source union.
type Kind string

// Content source kinds.
const (
	KindNone    Kind = "none"
	KindCamera  Kind = "camera"
	KindMedia   Kind = "media"
	KindVirtual Kind = "virtual"
)

// ContentSource is what occupies a switcher slot: a camera feed, a
// media player, a virtual generator, or nothing. Equality is by
// identity key, not by pointer: the same camera in both slots compares
// equal, two players of the same file do not.
type ContentSource struct {
	kind      Kind
	feed      *capture.Source
	player    media.Player
	generator virtual.Generator
}

// NoSource returns the empty content source.
func NoSource() ContentSource {
	return ContentSource{kind: KindNone}
}

// CameraSource wraps a capture feed.
func CameraSource(feed *capture.Source) ContentSource {
	return ContentSource{kind: KindCamera, feed: feed}
}

// MediaSource wraps a media player.
func MediaSource(player media.Player) ContentSource {
	return ContentSource{kind: KindMedia, player: player}
}

// VirtualSource wraps a generator.
func VirtualSource(gen virtual.Generator) ContentSource {
	return ContentSource{kind: KindVirtual, generator: gen}
}

// Kind returns the source kind.
func (c ContentSource) Kind() Kind { return c.kind }

// Key is the identity of the source. Two sources with equal keys refer
// to the same content.
func (c ContentSource) Key() string {
	switch c.kind {
	case KindCamera:
		return "camera:" + c.feed.Device().ID
	case KindMedia:
		return "media:" + c.player.ID()
	case KindVirtual:
		return "virtual:" + c.generator.ID()
	default:
		return "none"
	}
}

// Ref describes the source for events and the API.
func (c ContentSource) Ref() events.SourceRef {
	ref := events.SourceRef{Kind: string(c.kind)}
	switch c.kind {
	case KindCamera:
		ref.DeviceID = c.feed.Device().ID
	case KindMedia:
		ref.FileID = c.player.FileID()
	case KindVirtual:
		ref.VirtualID = c.generator.ID()
	}
	return ref
}

// Player returns the media player, or nil for non-media sources.
func (c ContentSource) Player() media.Player { return c.player }

// Feed returns the capture feed, or nil for non-camera sources.
func (c ContentSource) Feed() *capture.Source { return c.feed }

// Image renders the source's current frame at the given size, or nil
// when no frame is available yet.
func (c ContentSource) Image(width, height int) *image.NRGBA {
	switch c.kind {
	case KindCamera:
		if snap := c.feed.Latest(); snap != nil {
			return snap.Image
		}
		return nil
	case KindMedia:
		return c.player.Latest()
	case KindVirtual:
		return c.generator.Render(width, height)
	default:
		return nil
	}
}

// release frees the resources the source holds. Camera feeds are
// refcounted by the registry; media players are closed outright.
func (c ContentSource) release(registry *capture.Registry) {
	switch c.kind {
	case KindCamera:
		if registry != nil {
			registry.Release(c.feed.Device().ID)
		}
	case KindMedia:
		if err := c.player.Close(); err != nil {
			logging.GetLogger("switcher").Warn("Player close failed",
				"file", c.player.FileID(), "error", err)
		}
	}
}
