package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/studioswitch/studioswitch/internal/api/models"
	"github.com/studioswitch/studioswitch/internal/switcher"
)

// registerSwitcherRoutes registers slot, take, transition, and
// playback endpoints.
func (s *Server) registerSwitcherRoutes() {
	sw := s.options.Switcher

	huma.Register(s.api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/api/status",
		Summary:     "Switcher Status",
		Description: "Get the current slots, transition, and playback state",
		Tags:        []string{"switcher"},
		Errors:      []int{401, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.StatusResponse, error) {
		st, err := sw.Status()
		if err != nil {
			return nil, s.mapSwitcherError(err)
		}
		return &models.StatusResponse{Body: st}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "load-source",
		Method:      http.MethodPost,
		Path:        "/api/slots/{slot}/source",
		Summary:     "Load Source",
		Description: "Load a camera, media file, or virtual source into a slot",
		Tags:        []string{"switcher"},
		Errors:      []int{400, 401, 404, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.LoadSourceRequest) (*models.StatusOnlyResponse, error) {
		if err := sw.Load(ctx, switcher.Slot(input.Slot), input.Body); err != nil {
			return nil, s.mapSwitcherError(err)
		}
		return s.statusResponse()
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "take",
		Method:      http.MethodPost,
		Path:        "/api/take",
		Summary:     "Take",
		Description: "Cut preview to program in one atomic step",
		Tags:        []string{"switcher"},
		Errors:      []int{401, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.StatusOnlyResponse, error) {
		if err := sw.Take(); err != nil {
			return nil, s.mapSwitcherError(err)
		}
		return s.statusResponse()
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "start-transition",
		Method:      http.MethodPost,
		Path:        "/api/transition",
		Summary:     "Start Transition",
		Description: "Start a timed crossfade from program to preview, replacing any crossfade already running",
		Tags:        []string{"switcher"},
		Errors:      []int{401, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.TransitionRequest) (*models.StatusOnlyResponse, error) {
		err := sw.Transition(time.Duration(input.Body.DurationMs) * time.Millisecond)
		if err != nil {
			return nil, s.mapSwitcherError(err)
		}
		return s.statusResponse()
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "cancel-transition",
		Method:      http.MethodDelete,
		Path:        "/api/transition",
		Summary:     "Cancel Transition",
		Description: "Abort a running crossfade; program snaps back to full",
		Tags:        []string{"switcher"},
		Errors:      []int{401, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.StatusOnlyResponse, error) {
		if err := sw.CancelTransition(); err != nil {
			return nil, s.mapSwitcherError(err)
		}
		return s.statusResponse()
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "playback-control",
		Method:      http.MethodPost,
		Path:        "/api/slots/{slot}/playback/{action}",
		Summary:     "Playback Control",
		Description: "Play, pause, or seek the media loaded in a slot",
		Tags:        []string{"playback"},
		Errors:      []int{400, 401, 404, 409, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.PlaybackRequest) (*models.StatusOnlyResponse, error) {
		slot := switcher.Slot(input.Slot)
		var err error
		switch input.Action {
		case "play":
			err = sw.Play(slot)
		case "pause":
			err = sw.Pause(slot)
		case "seek":
			err = sw.Seek(slot, time.Duration(input.Body.PositionSec*float64(time.Second)))
		case "stop":
			err = sw.StopPlayback(slot)
		}
		if err != nil {
			return nil, s.mapSwitcherError(err)
		}
		return s.statusResponse()
	})
}

func (s *Server) statusResponse() (*models.StatusOnlyResponse, error) {
	st, err := s.options.Switcher.Status()
	if err != nil {
		return nil, s.mapSwitcherError(err)
	}
	return &models.StatusOnlyResponse{Body: st}, nil
}

// mapSwitcherError translates switcher errors into HTTP errors.
func (s *Server) mapSwitcherError(err error) error {
	switch {
	case errors.Is(err, switcher.ErrNoMediaLoaded):
		return huma.Error409Conflict("No media loaded in slot", err)
	case errors.Is(err, switcher.ErrUnknownSlot):
		return huma.Error400BadRequest("Unknown slot", err)
	case errors.Is(err, switcher.ErrClosed):
		return huma.Error500InternalServerError("Switcher is shut down", err)
	default:
		return huma.Error400BadRequest(err.Error(), err)
	}
}
