package effects

import (
	"image"
	"time"

	"github.com/studioswitch/studioswitch/internal/events"
	"github.com/studioswitch/studioswitch/internal/logging"
	"github.com/studioswitch/studioswitch/internal/metrics"
)

// Chain names used by the pipeline.
const (
	PreviewChainName = "preview output"
	ProgramChainName = "program output"
)

// Pipeline owns one effect chain per output and runs textures through
// them on a render device. A render failure is non-fatal: the affected
// output degrades to its unprocessed image for that frame.
type Pipeline struct {
	device  Device
	preview *Chain
	program *Chain
}

// NewPipeline creates a pipeline with an empty chain for each output.
// Chain mutations are published on the bus.
func NewPipeline(device Device, bus *events.Bus) *Pipeline {
	p := &Pipeline{
		device:  device,
		preview: NewChain(PreviewChainName),
		program: NewChain(ProgramChainName),
	}
	if bus != nil {
		p.preview.RegisterObserver(func() { publishChainChanged(bus, p.preview) })
		p.program.RegisterObserver(func() { publishChainChanged(bus, p.program) })
	}
	return p
}

func publishChainChanged(bus *events.Bus, chain *Chain) {
	effects := chain.Effects()
	kinds := make([]string, len(effects))
	for i, e := range effects {
		kinds[i] = string(e.Kind)
	}
	bus.Publish(events.EffectChainChangedEvent{
		Chain:     chain.Name(),
		Effects:   kinds,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// PreviewChain returns the chain applied to the preview output.
func (p *Pipeline) PreviewChain() *Chain { return p.preview }

// ProgramChain returns the chain applied to the program output.
func (p *Pipeline) ProgramChain() *Chain { return p.program }

// ChainByName resolves a chain by its public name, or nil.
func (p *Pipeline) ChainByName(name string) *Chain {
	switch name {
	case PreviewChainName:
		return p.preview
	case ProgramChainName:
		return p.program
	default:
		return nil
	}
}

// CopyPreviewToProgram overwrites the program chain with a copy of the
// preview chain's effects and settings.
func (p *Pipeline) CopyPreviewToProgram() {
	p.program.CopyFrom(p.preview)
}

// ProcessPreview runs an image through the preview chain.
func (p *Pipeline) ProcessPreview(img *image.NRGBA) *image.NRGBA {
	return p.process(p.preview, img)
}

// ProcessProgram runs an image through the program chain.
func (p *Pipeline) ProcessProgram(img *image.NRGBA) *image.NRGBA {
	return p.process(p.program, img)
}

// process uploads the image, applies the chain, submits the recorded
// work, and downloads the result. When the chain would do nothing the
// round trip is skipped entirely and the input is returned as-is. On
// any failure the unprocessed input is returned.
func (p *Pipeline) process(chain *Chain, img *image.NRGBA) *image.NRGBA {
	if img == nil {
		return nil
	}
	if !chain.Enabled() || !chain.hasEnabledEffects() {
		return img
	}

	logger := logging.GetLogger("effects")
	start := time.Now()

	tex, err := UploadImage(p.device, img)
	if err != nil {
		metrics.IncRenderFailure(chain.Name())
		logger.Warn("texture upload failed", "chain", chain.Name(), "error", err)
		return img
	}
	cctx := p.device.NewCommandContext()
	out := chain.Apply(tex, cctx)
	if err := cctx.Submit(); err != nil {
		metrics.IncRenderFailure(chain.Name())
		logger.Warn("effect render failed", "chain", chain.Name(), "error", err)
		return img
	}
	result := DownloadImage(out)
	metrics.ObserveEffectApply(chain.Name(), time.Since(start).Seconds())
	return result
}

func (c *Chain) hasEnabledEffects() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.effects {
		if e.Enabled {
			return true
		}
	}
	return false
}
