package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/studioswitch/studioswitch/internal/api/models"
)

// registerDeviceRoutes registers capture device, virtual source, and
// tally endpoints.
func (s *Server) registerDeviceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-devices",
		Method:      http.MethodGet,
		Path:        "/api/devices",
		Summary:     "List Devices",
		Description: "List capture devices with the status of any active feed",
		Tags:        []string{"devices"},
		Errors:      []int{401, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.DeviceListResponse, error) {
		found, err := s.options.Detector.FindDevices()
		if err != nil {
			return nil, huma.Error500InternalServerError("Device discovery failed", err)
		}

		resp := &models.DeviceListResponse{}
		resp.Body.Devices = make([]models.DeviceData, len(found))
		for i, dev := range found {
			data := models.DeviceData{
				ID:     dev.ID,
				Path:   dev.Path,
				Name:   dev.Name,
				Status: "idle",
			}
			if feed := s.options.Registry.Get(dev.ID); feed != nil {
				status, reason := feed.Status()
				data.Status = string(status)
				data.Reason = reason
				data.Frames = feed.FrameCount()
			}
			resp.Body.Devices[i] = data
		}
		resp.Body.Count = len(resp.Body.Devices)
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-feed",
		Method:      http.MethodDelete,
		Path:        "/api/devices/{id}/feed",
		Summary:     "Stop Feed",
		Description: "Disconnect a device's capture feed; the next load starts it again",
		Tags:        []string{"devices"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct {
		ID string `path:"id" doc:"Capture device identifier"`
	}) (*struct{}, error) {
		if s.options.Registry.Get(input.ID) == nil {
			return nil, huma.Error404NotFound("No feed for device " + input.ID)
		}
		s.options.Registry.Stop(input.ID)
		return nil, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-virtual-sources",
		Method:      http.MethodGet,
		Path:        "/api/virtuals",
		Summary:     "List Virtual Sources",
		Description: "List the available software-generated sources",
		Tags:        []string{"devices"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.VirtualListResponse, error) {
		resp := &models.VirtualListResponse{}
		for _, g := range s.options.Virtuals.List() {
			resp.Body.Sources = append(resp.Body.Sources, models.VirtualSourceData{
				ID:   g.ID(),
				Name: g.Name(),
			})
		}
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-tally",
		Method:      http.MethodGet,
		Path:        "/api/tally",
		Summary:     "Tally Capability",
		Description: "List the tally lights available on this board",
		Tags:        []string{"devices"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.TallyResponse, error) {
		resp := &models.TallyResponse{}
		if s.options.Tally != nil {
			for _, light := range s.options.Tally.Available() {
				resp.Body.Lights = append(resp.Body.Lights, string(light))
			}
		}
		return resp, nil
	})
}
