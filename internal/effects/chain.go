package effects

import (
	"fmt"
	"image"
	"sync"
)

// Chain is an ordered list of effects applied to one output. The chain
// has its own enabled flag and an opacity that blends the processed
// result back over the unprocessed input.
type Chain struct {
	mu        sync.RWMutex
	name      string
	effects   []*Effect
	enabled   bool
	opacity   float64
	observers map[int]func()
	nextObs   int
}

// NewChain creates an empty, enabled chain at full opacity.
func NewChain(name string) *Chain {
	return &Chain{
		name:      name,
		enabled:   true,
		opacity:   1.0,
		observers: make(map[int]func()),
	}
}

// Name returns the chain name.
func (c *Chain) Name() string { return c.name }

// Enabled reports whether the chain is applied at all.
func (c *Chain) Enabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// SetEnabled toggles the whole chain.
func (c *Chain) SetEnabled(enabled bool) {
	c.mu.Lock()
	c.enabled = enabled
	c.mu.Unlock()
	c.notify()
}

// Opacity returns the blend factor of the processed result.
func (c *Chain) Opacity() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.opacity
}

// SetOpacity sets the blend factor, clamped to [0, 1].
func (c *Chain) SetOpacity(opacity float64) {
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	c.mu.Lock()
	c.opacity = opacity
	c.mu.Unlock()
	c.notify()
}

// Effects returns the current effect list in order. The returned slice
// is a copy; the effects themselves are shared.
func (c *Chain) Effects() []*Effect {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Effect, len(c.effects))
	copy(out, c.effects)
	return out
}

// Len returns the number of effects in the chain.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.effects)
}

// Add appends an effect to the end of the chain.
func (c *Chain) Add(e *Effect) {
	c.mu.Lock()
	c.effects = append(c.effects, e)
	c.mu.Unlock()
	c.notify()
}

// Remove deletes the effect with the given ID. It returns false if no
// effect has that ID.
func (c *Chain) Remove(id string) bool {
	c.mu.Lock()
	idx := c.indexLocked(id)
	if idx < 0 {
		c.mu.Unlock()
		return false
	}
	c.effects = append(c.effects[:idx], c.effects[idx+1:]...)
	c.mu.Unlock()
	c.notify()
	return true
}

// Find returns the effect with the given ID, or nil.
func (c *Chain) Find(id string) *Effect {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if idx := c.indexLocked(id); idx >= 0 {
		return c.effects[idx]
	}
	return nil
}

// Move repositions the effect with the given ID to the target index.
// The remaining effects keep their relative order.
func (c *Chain) Move(id string, to int) error {
	c.mu.Lock()
	from := c.indexLocked(id)
	if from < 0 {
		c.mu.Unlock()
		return fmt.Errorf("effect %s not in chain %s", id, c.name)
	}
	if to < 0 || to >= len(c.effects) {
		c.mu.Unlock()
		return fmt.Errorf("index %d out of range for chain %s", to, c.name)
	}
	e := c.effects[from]
	c.effects = append(c.effects[:from], c.effects[from+1:]...)
	c.effects = append(c.effects[:to], append([]*Effect{e}, c.effects[to:]...)...)
	c.mu.Unlock()
	c.notify()
	return nil
}

// Duplicate inserts an independent copy of the effect with the given
// ID directly after the original and returns the copy.
func (c *Chain) Duplicate(id string) (*Effect, error) {
	c.mu.Lock()
	idx := c.indexLocked(id)
	if idx < 0 {
		c.mu.Unlock()
		return nil, fmt.Errorf("effect %s not in chain %s", id, c.name)
	}
	dup := c.effects[idx].Clone()
	c.effects = append(c.effects[:idx+1], append([]*Effect{dup}, c.effects[idx+1:]...)...)
	c.mu.Unlock()
	c.notify()
	return dup, nil
}

// Clear drops all effects.
func (c *Chain) Clear() {
	c.mu.Lock()
	c.effects = nil
	c.mu.Unlock()
	c.notify()
}

// CopyFrom replaces this chain's effects, enabled flag, and opacity
// with independent copies of the source chain's state.
func (c *Chain) CopyFrom(src *Chain) {
	src.mu.RLock()
	effects := make([]*Effect, len(src.effects))
	for i, e := range src.effects {
		effects[i] = e.Clone()
	}
	enabled, opacity := src.enabled, src.opacity
	src.mu.RUnlock()

	c.mu.Lock()
	c.effects = effects
	c.enabled = enabled
	c.opacity = opacity
	c.mu.Unlock()
	c.notify()
}

// RegisterObserver adds a callback invoked after every committed chain
// mutation. The returned function removes the observer.
func (c *Chain) RegisterObserver(fn func()) func() {
	c.mu.Lock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

func (c *Chain) notify() {
	c.mu.RLock()
	fns := make([]func(), 0, len(c.observers))
	for _, fn := range c.observers {
		fns = append(fns, fn)
	}
	c.mu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}

func (c *Chain) indexLocked(id string) int {
	for i, e := range c.effects {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// Apply records the chain's work on the command context and returns
// the output texture. If the chain is disabled or has no enabled
// effects the input texture is returned unchanged and nothing is
// recorded. The output pixels are valid once Submit returns.
func (c *Chain) Apply(tex *Texture, cctx CommandContext) *Texture {
	c.mu.RLock()
	enabled := c.enabled
	opacity := c.opacity
	active := make([]*Effect, 0, len(c.effects))
	for _, e := range c.effects {
		if e.Enabled {
			active = append(active, e)
		}
	}
	c.mu.RUnlock()

	if !enabled || len(active) == 0 {
		return tex
	}

	out := &Texture{width: tex.width, height: tex.height, pix: make([]byte, len(tex.pix))}
	cctx.Enqueue(func() error {
		orig := DownloadImage(tex)
		img := orig
		for _, e := range active {
			img = e.apply(img)
		}
		if opacity < 1 {
			img = blendImages(orig, img, opacity)
		}
		uploaded, err := UploadImage(staticDevice{out}, img)
		if err != nil {
			return err
		}
		_ = uploaded
		return nil
	})
	return out
}

// staticDevice lets UploadImage fill a pre-allocated output texture.
type staticDevice struct{ tex *Texture }

func (d staticDevice) NewTexture(width, height int) (*Texture, error) {
	if width != d.tex.width || height != d.tex.height {
		return nil, fmt.Errorf("size mismatch: want %dx%d, got %dx%d", d.tex.width, d.tex.height, width, height)
	}
	return d.tex, nil
}

func (d staticDevice) NewCommandContext() CommandContext { return nil }

// blendImages linearly interpolates per channel between base and
// processed with the given weight on processed.
func blendImages(base, processed *image.NRGBA, weight float64) *image.NRGBA {
	out := image.NewNRGBA(base.Bounds())
	for i := range out.Pix {
		b := float64(base.Pix[i])
		p := float64(processed.Pix[i])
		out.Pix[i] = clamp8(b + (p-b)*weight)
	}
	return out
}
