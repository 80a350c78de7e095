package capture

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/studioswitch/studioswitch/internal/frame"
	"github.com/studioswitch/studioswitch/internal/logging"
)

// ffmpegSession captures from a V4L2 device by running ffmpeg with a
// rawvideo pipe on stdout and reading fixed-size frames from it.
type ffmpegSession struct {
	cfg      SessionConfig
	sink     FrameSink
	cmd      *exec.Cmd
	running  chan struct{}
	runOnce  sync.Once
	stopOnce sync.Once
	done     chan struct{}
}

// NewFFmpegSession creates a session backed by an ffmpeg subprocess.
func NewFFmpegSession() Session {
	return &ffmpegSession{
		running: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (s *ffmpegSession) Configure(cfg SessionConfig, sink FrameSink) error {
	if cfg.DevicePath == "" {
		return fmt.Errorf("device path is required")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", cfg.Width, cfg.Height)
	}
	if sink == nil {
		return fmt.Errorf("frame sink is required")
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}
	if cfg.Format == "" {
		cfg.Format = frame.FormatBGRA
	}
	s.cfg = cfg
	s.sink = sink
	return nil
}

// pixFmt maps a frame format to ffmpeg's rawvideo pixel format name.
func pixFmt(f frame.Format) string {
	switch f {
	case frame.FormatRGBA:
		return "rgba"
	default:
		return "bgra"
	}
}

func (s *ffmpegSession) Start(ctx context.Context) error {
	if s.sink == nil {
		return fmt.Errorf("session not configured")
	}
	logger := logging.GetLogger("capture")

	args := []string{
		"-hide_banner", "-loglevel", "warning",
		"-f", "v4l2",
		"-framerate", fmt.Sprintf("%d", s.cfg.FPS),
		"-video_size", fmt.Sprintf("%dx%d", s.cfg.Width, s.cfg.Height),
		"-i", s.cfg.DevicePath,
		"-f", "rawvideo",
		"-pix_fmt", pixFmt(s.cfg.Format),
		"-",
	}
	s.cmd = exec.CommandContext(ctx, "ffmpeg", args...)
	s.cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := s.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := s.cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := s.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	logger.Info("Capture session started",
		"device", s.cfg.DevicePath, "pid", s.cmd.Process.Pid,
		"size", fmt.Sprintf("%dx%d", s.cfg.Width, s.cfg.Height))

	go s.logStderr(stderr)
	go s.readFrames(stdout)
	go func() {
		err := s.cmd.Wait()
		if err != nil && ctx.Err() == nil {
			logger.Warn("Capture process exited", "device", s.cfg.DevicePath, "error", err)
		}
		close(s.done)
	}()
	return nil
}

func (s *ffmpegSession) Running() <-chan struct{} { return s.running }

func (s *ffmpegSession) Stop() {
	s.stopOnce.Do(func() {
		if s.cmd == nil || s.cmd.Process == nil {
			return
		}
		if err := s.cmd.Process.Signal(syscall.SIGINT); err != nil && !strings.Contains(err.Error(), "already finished") {
			logging.GetLogger("capture").Warn("Failed to signal capture process", "error", err)
		}
		select {
		case <-s.done:
		case <-time.After(3 * time.Second):
			_ = s.cmd.Process.Kill()
			<-s.done
		}
	})
}

// readFrames reads fixed-size packed frames from the pipe and hands
// each one to the sink. The first complete frame closes the running
// channel.
func (s *ffmpegSession) readFrames(r io.Reader) {
	frameLen := s.cfg.Width * s.cfg.Height * 4
	br := bufio.NewReaderSize(r, frameLen)
	for {
		buf := make([]byte, frameLen)
		if _, err := io.ReadFull(br, buf); err != nil {
			return
		}
		s.runOnce.Do(func() { close(s.running) })
		s.sink(&frame.Raw{
			Format:    s.cfg.Format,
			Width:     s.cfg.Width,
			Height:    s.cfg.Height,
			Stride:    s.cfg.Width * 4,
			Data:      buf,
			Timestamp: time.Now(),
		})
	}
}

// logStderr forwards ffmpeg's diagnostics to the capture logger.
func (s *ffmpegSession) logStderr(r io.Reader) {
	logger := logging.GetLogger("ffmpeg")
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.Contains(line, "error"), strings.Contains(line, "Error"):
			logger.Error(line, "device", s.cfg.DevicePath)
		default:
			logger.Debug(line, "device", s.cfg.DevicePath)
		}
	}
}
