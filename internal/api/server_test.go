package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/studioswitch/studioswitch/internal/capture"
	"github.com/studioswitch/studioswitch/internal/devices"
	"github.com/studioswitch/studioswitch/internal/effects"
	"github.com/studioswitch/studioswitch/internal/events"
	"github.com/studioswitch/studioswitch/internal/switcher"
	"github.com/studioswitch/studioswitch/internal/virtual"
)

type fakeDetector struct{}

func (d *fakeDetector) FindDevices() ([]devices.Device, error) {
	return []devices.Device{{ID: "cam-1", Path: "/dev/video0", Name: "Test Capture"}}, nil
}

func (d *fakeDetector) DevicePathByID(deviceID string) (string, error) {
	if deviceID == "cam-1" {
		return "/dev/video0", nil
	}
	return "", fmt.Errorf("unknown device: %s", deviceID)
}

func (d *fakeDetector) CheckPermission(device devices.Device) bool {
	return true
}

// fakeFeedSession delivers no frames but reports running immediately.
type fakeFeedSession struct {
	running chan struct{}
}

func (f *fakeFeedSession) Configure(capture.SessionConfig, capture.FrameSink) error { return nil }

func (f *fakeFeedSession) Start(context.Context) error {
	close(f.running)
	return nil
}

func (f *fakeFeedSession) Running() <-chan struct{} { return f.running }
func (f *fakeFeedSession) Stop()                    {}

type apiHarness struct {
	server   *Server
	ts       *httptest.Server
	switcher *switcher.Switcher
	device   *effects.SoftwareDevice
	registry *capture.Registry
}

func newHarness(t *testing.T) *apiHarness {
	t.Helper()

	bus := events.New()
	device := effects.NewSoftwareDevice()
	pipeline := effects.NewPipeline(device, bus)
	detector := &fakeDetector{}
	registry := capture.NewRegistry(detector, bus, capture.Options{
		Factory: func() capture.Session {
			return &fakeFeedSession{running: make(chan struct{})}
		},
		Width: 4, Height: 4,
	})
	virtuals := virtual.NewRegistry()
	sw := switcher.New(bus, pipeline, registry, virtuals, detector, switcher.Options{
		Width:  64,
		Height: 36,
	})

	server := NewServer(&Options{
		AuthUsername: "test",
		AuthPassword: "test",
		Switcher:     sw,
		Pipeline:     pipeline,
		Registry:     registry,
		Detector:     detector,
		Virtuals:     virtuals,
		EventBus:     bus,
	})

	ts := httptest.NewServer(server.mux)
	h := &apiHarness{server: server, ts: ts, switcher: sw, device: device, registry: registry}
	t.Cleanup(func() {
		ts.Close()
		sw.Close()
		registry.Close()
		device.Close()
	})
	return h
}

// request sends an authenticated request and returns the status code
// with the raw body.
func (h *apiHarness) request(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()

	req, err := http.NewRequest(method, h.ts.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.SetBasicAuth("test", "test")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp.StatusCode, data
}

type statusBody struct {
	Preview            events.SourceRef `json:"preview"`
	Program            events.SourceRef `json:"program"`
	TransitionActive   bool             `json:"transition_active"`
	TransitionProgress float64          `json:"transition_progress"`
}

func decodeStatus(t *testing.T, data []byte) statusBody {
	t.Helper()
	var st statusBody
	if err := json.Unmarshal(data, &st); err != nil {
		t.Fatalf("decode status: %v (%s)", err, data)
	}
	return st
}

func TestHealthRequiresNoAuth(t *testing.T) {
	h := newHarness(t)

	resp, err := http.Get(h.ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestBasicAuth(t *testing.T) {
	h := newHarness(t)

	resp, err := http.Get(h.ts.URL + "/api/status")
	if err != nil {
		t.Fatalf("unauthenticated request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, h.ts.URL+"/api/status", nil)
	req.SetBasicAuth("test", "wrong")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("bad credentials request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad credentials, got %d", resp.StatusCode)
	}

	code, _ := h.request(t, http.MethodGet, "/api/status", "")
	if code != http.StatusOK {
		t.Fatalf("expected 200 with credentials, got %d", code)
	}
}

func TestAuthViaQueryParameter(t *testing.T) {
	h := newHarness(t)

	creds := base64.StdEncoding.EncodeToString([]byte("test:test"))
	resp, err := http.Get(h.ts.URL + "/api/status?auth=" + creds)
	if err != nil {
		t.Fatalf("query auth request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with query credentials, got %d", resp.StatusCode)
	}
}

func TestLoadVirtualSourceAndTake(t *testing.T) {
	h := newHarness(t)

	code, body := h.request(t, http.MethodPost, "/api/slots/preview/source",
		`{"kind":"virtual","virtual_id":"bars"}`)
	if code != http.StatusOK {
		t.Fatalf("load source: expected 200, got %d (%s)", code, body)
	}
	st := decodeStatus(t, body)
	if st.Preview.Kind != "virtual" || st.Preview.VirtualID != "bars" {
		t.Fatalf("unexpected preview after load: %+v", st.Preview)
	}

	code, body = h.request(t, http.MethodPost, "/api/take", "")
	if code != http.StatusOK {
		t.Fatalf("take: expected 200, got %d (%s)", code, body)
	}
	st = decodeStatus(t, body)
	if st.Program.Kind != "virtual" || st.Program.VirtualID != "bars" {
		t.Fatalf("unexpected program after take: %+v", st.Program)
	}
	if st.Preview.Kind != "virtual" || st.Preview.VirtualID != "bars" {
		t.Fatalf("preview must keep its source through a take, got %+v", st.Preview)
	}
}

func TestLoadUnknownVirtualSource(t *testing.T) {
	h := newHarness(t)

	code, _ := h.request(t, http.MethodPost, "/api/slots/preview/source",
		`{"kind":"virtual","virtual_id":"nope"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown virtual source, got %d", code)
	}
}

func TestLoadRejectsUnknownSlot(t *testing.T) {
	h := newHarness(t)

	code, _ := h.request(t, http.MethodPost, "/api/slots/backstage/source",
		`{"kind":"virtual","virtual_id":"bars"}`)
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unknown slot, got %d", code)
	}
}

func TestTransitionLifecycle(t *testing.T) {
	h := newHarness(t)

	code, body := h.request(t, http.MethodPost, "/api/slots/preview/source",
		`{"kind":"virtual","virtual_id":"bars"}`)
	if code != http.StatusOK {
		t.Fatalf("load source: %d (%s)", code, body)
	}

	code, body = h.request(t, http.MethodPost, "/api/transition", `{"duration_ms":60000}`)
	if code != http.StatusOK {
		t.Fatalf("start transition: expected 200, got %d (%s)", code, body)
	}
	st := decodeStatus(t, body)
	if !st.TransitionActive {
		t.Fatal("expected transition to be active")
	}

	// A second transition request replaces the running one.
	code, body = h.request(t, http.MethodPost, "/api/transition", `{"duration_ms":1000}`)
	if code != http.StatusOK {
		t.Fatalf("restart transition: expected 200, got %d (%s)", code, body)
	}
	st = decodeStatus(t, body)
	if !st.TransitionActive {
		t.Fatal("expected the replacement transition to be active")
	}

	code, body = h.request(t, http.MethodDelete, "/api/transition", "")
	if code != http.StatusOK {
		t.Fatalf("cancel transition: expected 200, got %d (%s)", code, body)
	}
	st = decodeStatus(t, body)
	if st.TransitionActive {
		t.Fatal("expected transition to be cancelled")
	}
	if st.TransitionProgress != 0 {
		t.Fatalf("expected progress reset, got %v", st.TransitionProgress)
	}
}

func TestPlaybackWithoutMedia(t *testing.T) {
	h := newHarness(t)

	code, _ := h.request(t, http.MethodPost, "/api/slots/preview/playback/play", `{}`)
	if code != http.StatusConflict {
		t.Fatalf("expected 409 without media, got %d", code)
	}
}

func TestEffectChainEndpoints(t *testing.T) {
	h := newHarness(t)
	base := "/api/chains/preview%20output"

	code, _ := h.request(t, http.MethodGet, "/api/chains/nope", "")
	if code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown chain, got %d", code)
	}

	code, body := h.request(t, http.MethodPost, base+"/effects", `{"kind":"grayscale"}`)
	if code != http.StatusOK {
		t.Fatalf("add effect: expected 200, got %d (%s)", code, body)
	}
	var created struct {
		ID      string `json:"id"`
		Kind    string `json:"kind"`
		Enabled bool   `json:"enabled"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode effect: %v", err)
	}
	if created.ID == "" || created.Kind != "grayscale" || !created.Enabled {
		t.Fatalf("unexpected created effect: %+v", created)
	}

	code, _ = h.request(t, http.MethodPost, base+"/effects", `{"kind":"sparkle"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown kind, got %d", code)
	}

	code, body = h.request(t, http.MethodPatch, base+"/effects/"+created.ID, `{"enabled":false}`)
	if code != http.StatusOK {
		t.Fatalf("update effect: expected 200, got %d (%s)", code, body)
	}
	var updated struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.Unmarshal(body, &updated); err != nil {
		t.Fatalf("decode updated effect: %v", err)
	}
	if updated.Enabled {
		t.Fatal("expected effect to be disabled")
	}

	code, body = h.request(t, http.MethodPost, base+"/effects/"+created.ID+"/duplicate", "")
	if code != http.StatusOK {
		t.Fatalf("duplicate effect: expected 200, got %d (%s)", code, body)
	}
	var dup struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &dup); err != nil {
		t.Fatalf("decode duplicate: %v", err)
	}
	if dup.ID == "" || dup.ID == created.ID {
		t.Fatalf("duplicate must get its own identity, got %q", dup.ID)
	}

	code, body = h.request(t, http.MethodGet, base, "")
	if code != http.StatusOK {
		t.Fatalf("get chain: expected 200, got %d", code)
	}
	var chain struct {
		Name    string  `json:"name"`
		Opacity float64 `json:"opacity"`
		Effects []struct {
			ID string `json:"id"`
		} `json:"effects"`
	}
	if err := json.Unmarshal(body, &chain); err != nil {
		t.Fatalf("decode chain: %v", err)
	}
	if chain.Name != effects.PreviewChainName || len(chain.Effects) != 2 {
		t.Fatalf("unexpected chain: %+v", chain)
	}

	code, body = h.request(t, http.MethodPost, base+"/effects/"+dup.ID+"/move", `{"index":0}`)
	if code != http.StatusOK {
		t.Fatalf("move effect: expected 200, got %d (%s)", code, body)
	}
	if err := json.Unmarshal(body, &chain); err != nil {
		t.Fatalf("decode chain after move: %v", err)
	}
	if chain.Effects[0].ID != dup.ID {
		t.Fatalf("expected duplicate first after move, got %+v", chain.Effects)
	}

	code, body = h.request(t, http.MethodDelete, base+"/effects/"+created.ID, "")
	if code != http.StatusOK {
		t.Fatalf("remove effect: expected 200, got %d (%s)", code, body)
	}
	if err := json.Unmarshal(body, &chain); err != nil {
		t.Fatalf("decode chain after delete: %v", err)
	}
	if len(chain.Effects) != 1 || chain.Effects[0].ID != dup.ID {
		t.Fatalf("unexpected chain after delete: %+v", chain.Effects)
	}

	code, _ = h.request(t, http.MethodDelete, base+"/effects/"+created.ID, "")
	if code != http.StatusNotFound {
		t.Fatalf("expected 404 deleting a removed effect, got %d", code)
	}

	code, body = h.request(t, http.MethodPatch, base, `{"opacity":0.5,"enabled":false}`)
	if code != http.StatusOK {
		t.Fatalf("update chain: expected 200, got %d (%s)", code, body)
	}
	if err := json.Unmarshal(body, &chain); err != nil {
		t.Fatalf("decode chain after update: %v", err)
	}
	if chain.Opacity != 0.5 {
		t.Fatalf("expected opacity 0.5, got %v", chain.Opacity)
	}
}

func TestDeviceAndVirtualListing(t *testing.T) {
	h := newHarness(t)

	code, body := h.request(t, http.MethodGet, "/api/devices", "")
	if code != http.StatusOK {
		t.Fatalf("list devices: expected 200, got %d", code)
	}
	var devList struct {
		Devices []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"devices"`
		Count int `json:"count"`
	}
	if err := json.Unmarshal(body, &devList); err != nil {
		t.Fatalf("decode devices: %v", err)
	}
	if devList.Count != 1 || devList.Devices[0].ID != "cam-1" {
		t.Fatalf("unexpected devices: %+v", devList)
	}
	if devList.Devices[0].Status != "idle" {
		t.Fatalf("expected idle feed status, got %q", devList.Devices[0].Status)
	}

	code, body = h.request(t, http.MethodGet, "/api/virtuals", "")
	if code != http.StatusOK {
		t.Fatalf("list virtuals: expected 200, got %d", code)
	}
	var virtList struct {
		Sources []struct {
			ID string `json:"id"`
		} `json:"sources"`
	}
	if err := json.Unmarshal(body, &virtList); err != nil {
		t.Fatalf("decode virtuals: %v", err)
	}
	found := false
	for _, s := range virtList.Sources {
		if s.ID == "bars" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected bars in virtual sources, got %+v", virtList.Sources)
	}
}

func TestStopFeedEndpoint(t *testing.T) {
	h := newHarness(t)

	code, _ := h.request(t, http.MethodDelete, "/api/devices/cam-1/feed", "")
	if code != http.StatusNotFound {
		t.Fatalf("expected 404 without an active feed, got %d", code)
	}

	code, body := h.request(t, http.MethodPost, "/api/slots/preview/source",
		`{"kind":"camera","device_id":"cam-1"}`)
	if code != http.StatusOK {
		t.Fatalf("load camera: expected 200, got %d (%s)", code, body)
	}

	code, _ = h.request(t, http.MethodDelete, "/api/devices/cam-1/feed", "")
	if code != http.StatusNoContent {
		t.Fatalf("stop feed: expected 204, got %d", code)
	}
	feed := h.registry.Get("cam-1")
	if feed == nil {
		t.Fatal("feed must stay registered after a stop")
	}
	if status, _ := feed.Status(); status != capture.StatusDisconnected {
		t.Fatalf("expected disconnected feed, got %s", status)
	}
}

func TestFrameSnapshots(t *testing.T) {
	h := newHarness(t)

	resp, err := http.Get(h.ts.URL + "/api/slots/program/frame.png")
	if err != nil {
		t.Fatalf("frame request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for empty program, got %d", resp.StatusCode)
	}

	code, body := h.request(t, http.MethodPost, "/api/slots/preview/source",
		`{"kind":"virtual","virtual_id":"bars"}`)
	if code != http.StatusOK {
		t.Fatalf("load source: %d (%s)", code, body)
	}
	if code, body = h.request(t, http.MethodPost, "/api/take", ""); code != http.StatusOK {
		t.Fatalf("take: %d (%s)", code, body)
	}

	resp, err = http.Get(h.ts.URL + "/api/slots/program/frame.png")
	if err != nil {
		t.Fatalf("frame request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 after take, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("expected image/png, got %q", ct)
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 64 || bounds.Dy() != 36 {
		t.Fatalf("unexpected frame size: %v", bounds)
	}
}

func TestLogsEndpoint(t *testing.T) {
	h := newHarness(t)

	code, body := h.request(t, http.MethodGet, "/api/logs", "")
	if code != http.StatusOK {
		t.Fatalf("get logs: expected 200, got %d", code)
	}
	var logs struct {
		Entries []json.RawMessage `json:"entries"`
		Count   int               `json:"count"`
	}
	if err := json.Unmarshal(body, &logs); err != nil {
		t.Fatalf("decode logs: %v", err)
	}
	if logs.Count != len(logs.Entries) {
		t.Fatalf("count %d does not match %d entries", logs.Count, len(logs.Entries))
	}
}
