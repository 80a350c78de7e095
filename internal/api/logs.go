package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/studioswitch/studioswitch/internal/api/models"
	"github.com/studioswitch/studioswitch/internal/logging"
)

// registerLogRoutes registers the buffered log endpoint.
func (s *Server) registerLogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Recent Logs",
		Description: "Get the ring-buffered recent log entries",
		Tags:        []string{"system"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.LogsResponse, error) {
		resp := &models.LogsResponse{}
		if buffer := logging.GetBuffer(); buffer != nil {
			entries := buffer.ReadAll()
			resp.Body.Entries = make([]models.LogEntryData, len(entries))
			for i, entry := range entries {
				resp.Body.Entries[i] = models.LogEntryData{
					Timestamp:  entry.Timestamp.UTC().Format(time.RFC3339Nano),
					Level:      entry.Level,
					Module:     entry.Module,
					Message:    entry.Message,
					Attributes: entry.Attributes,
				}
			}
		}
		resp.Body.Count = len(resp.Body.Entries)
		return resp, nil
	})
}
