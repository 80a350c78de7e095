package media

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/studioswitch/studioswitch/internal/frame"
	"github.com/studioswitch/studioswitch/internal/logging"
)

// Open probes a media file and returns an ffmpeg-backed player for it.
// The player starts paused at position zero.
func Open(path string) (Player, error) {
	info, err := probe(path)
	if err != nil {
		return nil, err
	}
	dec := &ffmpegDecoder{path: path, width: info.width, height: info.height}
	return newClipPlayer(uuid.NewString(), filepath.Base(path), info.duration, dec, clock.New()), nil
}

// ffmpegDecoder decodes a clip with an ffmpeg subprocess writing
// rawvideo BGRA to stdout at native rate. Pause suspends the process
// with SIGSTOP rather than tearing it down; a seek stops the process
// and a fresh one starts at the new offset.
type ffmpegDecoder struct {
	path   string
	width  int
	height int

	mu     sync.Mutex
	cmd    *exec.Cmd
	exited chan struct{}
}

func (d *ffmpegDecoder) start(offset time.Duration, sink FrameSink, done func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cmd != nil {
		return fmt.Errorf("decoder already running")
	}

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-re",
		"-ss", fmt.Sprintf("%.3f", offset.Seconds()),
		"-i", d.path,
		"-f", "rawvideo",
		"-pix_fmt", "bgra",
		"-",
	}
	cmd := exec.Command("ffmpeg", args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	d.cmd = cmd
	d.exited = make(chan struct{})
	exited := d.exited
	logging.GetLogger("media").Debug("Decode started",
		"file", d.path, "offset", offset, "pid", cmd.Process.Pid)

	go d.logStderr(stderr)
	go func() {
		d.readFrames(stdout, sink)
		err := cmd.Wait()
		close(exited)
		d.mu.Lock()
		finished := d.cmd == cmd
		if finished {
			d.cmd = nil
		}
		d.mu.Unlock()
		// Natural end of clip, not a stop.
		if finished && err == nil && done != nil {
			done()
		}
	}()
	return nil
}

func (d *ffmpegDecoder) pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cmd == nil || d.cmd.Process == nil {
		return nil
	}
	return d.cmd.Process.Signal(syscall.SIGSTOP)
}

func (d *ffmpegDecoder) resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cmd == nil || d.cmd.Process == nil {
		return fmt.Errorf("decoder not running")
	}
	return d.cmd.Process.Signal(syscall.SIGCONT)
}

func (d *ffmpegDecoder) stop() {
	d.mu.Lock()
	cmd := d.cmd
	exited := d.exited
	d.cmd = nil
	d.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return
	}
	// A stopped process cannot handle SIGINT; wake it first.
	_ = cmd.Process.Signal(syscall.SIGCONT)
	_ = cmd.Process.Signal(syscall.SIGINT)
	select {
	case <-exited:
	case <-time.After(3 * time.Second):
		_ = cmd.Process.Kill()
		<-exited
	}
}

func (d *ffmpegDecoder) readFrames(r io.Reader, sink FrameSink) {
	frameLen := d.width * d.height * 4
	br := bufio.NewReaderSize(r, frameLen)
	for {
		buf := make([]byte, frameLen)
		if _, err := io.ReadFull(br, buf); err != nil {
			return
		}
		sink(&frame.Raw{
			Format:    frame.FormatBGRA,
			Width:     d.width,
			Height:    d.height,
			Stride:    d.width * 4,
			Data:      buf,
			Timestamp: time.Now(),
		})
	}
}

func (d *ffmpegDecoder) logStderr(r io.Reader) {
	logger := logging.GetLogger("media")
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		logger.Warn(scanner.Text(), "file", d.path)
	}
}
