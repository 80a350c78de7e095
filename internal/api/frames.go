package api

import (
	"image"
	"image/png"
	"net/http"
)

// registerFrameRoutes installs the PNG snapshot handlers on the raw mux.
// They bypass Huma because the response is a binary image, not JSON.
func (s *Server) registerFrameRoutes() {
	s.mux.HandleFunc("GET /api/slots/preview/frame.png", func(w http.ResponseWriter, r *http.Request) {
		img, err := s.options.Switcher.PreviewImage()
		s.serveFrame(w, img, err)
	})
	s.mux.HandleFunc("GET /api/slots/program/frame.png", func(w http.ResponseWriter, r *http.Request) {
		img, err := s.options.Switcher.ProgramImage()
		s.serveFrame(w, img, err)
	})
}

func (s *Server) serveFrame(w http.ResponseWriter, img *image.NRGBA, err error) {
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if img == nil {
		http.Error(w, "no frame available", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := png.Encode(w, img); err != nil {
		s.logger.Warn("Failed to encode frame", "error", err)
	}
}
