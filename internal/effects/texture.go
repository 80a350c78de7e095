package effects

import (
	"errors"
	"fmt"
	"image"
	"sync"
)

// Texture is an RGBA8 image resident on a render device. Rows are
// stored bottom-up, following the render origin convention, so CPU
// images are flipped vertically exactly once on upload and flipped
// back exactly once on download.
type Texture struct {
	width  int
	height int
	pix    []byte
}

// Width returns the texture width in pixels.
func (t *Texture) Width() int { return t.width }

// Height returns the texture height in pixels.
func (t *Texture) Height() int { return t.height }

// Device allocates textures and command contexts for effect rendering.
type Device interface {
	// NewTexture allocates an uninitialized texture.
	NewTexture(width, height int) (*Texture, error)
	// NewCommandContext creates a context for recording render work.
	NewCommandContext() CommandContext
}

// CommandContext records render operations and executes them in order
// on Submit, which blocks until all recorded work has completed.
type CommandContext interface {
	Enqueue(op func() error)
	Submit() error
}

// SoftwareDevice is a CPU-backed render device. Command contexts run
// their recorded operations on a shared worker goroutine so the work
// is serialized the way a real device queue would be.
type SoftwareDevice struct {
	mu     sync.Mutex
	queue  chan func()
	closed bool
}

// NewSoftwareDevice creates a CPU render device.
func NewSoftwareDevice() *SoftwareDevice {
	return &SoftwareDevice{}
}

// submit hands a job to the worker goroutine, starting it on first
// use. The enqueue happens under the device mutex so a concurrent
// Close cannot tear the queue down mid-send.
func (d *SoftwareDevice) submit(job func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.New("render device closed")
	}
	if d.queue == nil {
		d.queue = make(chan func(), 16)
		go func(queue chan func()) {
			for op := range queue {
				op()
			}
		}(d.queue)
	}
	d.queue <- job
	return nil
}

// NewTexture allocates a zeroed texture.
func (d *SoftwareDevice) NewTexture(width, height int) (*Texture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid texture size %dx%d", width, height)
	}
	return &Texture{width: width, height: height, pix: make([]byte, width*height*4)}, nil
}

// NewCommandContext creates a command context backed by the device's
// worker goroutine.
func (d *SoftwareDevice) NewCommandContext() CommandContext {
	return &softwareContext{device: d}
}

// Close stops the device worker. Submits racing or following Close
// fail with an error; textures remain readable.
func (d *SoftwareDevice) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	if d.queue != nil {
		close(d.queue)
		d.queue = nil
	}
}

type softwareContext struct {
	device *SoftwareDevice
	ops    []func() error
}

func (c *softwareContext) Enqueue(op func() error) {
	c.ops = append(c.ops, op)
}

func (c *softwareContext) Submit() error {
	ops := c.ops
	c.ops = nil
	done := make(chan error, 1)
	err := c.device.submit(func() {
		for _, op := range ops {
			if err := op(); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	})
	if err != nil {
		return err
	}
	return <-done
}

// UploadImage copies a CPU image into a new texture, reversing row
// order for the device origin convention.
func UploadImage(d Device, img *image.NRGBA) (*Texture, error) {
	b := img.Bounds()
	tex, err := d.NewTexture(b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}
	rowLen := tex.width * 4
	for y := 0; y < tex.height; y++ {
		src := img.Pix[(b.Dy()-1-y)*img.Stride : (b.Dy()-1-y)*img.Stride+rowLen]
		copy(tex.pix[y*rowLen:(y+1)*rowLen], src)
	}
	return tex, nil
}

// DownloadImage copies a texture back into a CPU image, reversing row
// order again so the result is upright. An upload followed by a
// download reproduces the original pixels exactly.
func DownloadImage(tex *Texture) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, tex.width, tex.height))
	rowLen := tex.width * 4
	for y := 0; y < tex.height; y++ {
		src := tex.pix[(tex.height-1-y)*rowLen : (tex.height-y)*rowLen]
		copy(img.Pix[y*img.Stride:y*img.Stride+rowLen], src)
	}
	return img
}
