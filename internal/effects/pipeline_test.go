package effects

import (
	"testing"
	"time"

	"github.com/studioswitch/studioswitch/internal/events"
)

func TestPipelineEmptyChainIdentity(t *testing.T) {
	dev := NewSoftwareDevice()
	defer dev.Close()
	p := NewPipeline(dev, nil)

	img := testGradient(32, 24)
	out := p.ProcessPreview(img)
	if out != img {
		t.Error("empty chain must return the input image unchanged")
	}
	out = p.ProcessProgram(img)
	if out != img {
		t.Error("empty program chain must return the input image unchanged")
	}
}

func TestPipelineAppliesEffects(t *testing.T) {
	dev := NewSoftwareDevice()
	defer dev.Close()
	p := NewPipeline(dev, nil)

	p.PreviewChain().Add(New(KindInvert))

	img := testGradient(16, 12)
	out := p.ProcessPreview(img)
	if out == img {
		t.Fatal("expected a new image from a non-empty chain")
	}
	// Invert is its own inverse per channel; spot-check one pixel.
	if out.Pix[0] != 255-img.Pix[0] {
		t.Errorf("expected inverted red channel: %d vs %d", out.Pix[0], img.Pix[0])
	}
	if out.Pix[3] != img.Pix[3] {
		t.Error("alpha must be preserved by invert")
	}
}

func TestPipelineOutputsIndependent(t *testing.T) {
	dev := NewSoftwareDevice()
	defer dev.Close()
	p := NewPipeline(dev, nil)

	p.PreviewChain().Add(New(KindInvert))

	img := testGradient(16, 12)
	program := p.ProcessProgram(img)
	if program != img {
		t.Error("program output must not be affected by preview chain")
	}
}

func TestPipelineUprightOutput(t *testing.T) {
	dev := NewSoftwareDevice()
	defer dev.Close()
	p := NewPipeline(dev, nil)

	// Brightness 0 is a pixel-level no-op but forces the full texture
	// round trip, exercising both row reversals.
	p.PreviewChain().Add(New(KindBrightness))

	img := testGradient(16, 12)
	out := p.ProcessPreview(img)
	for i := range img.Pix {
		if out.Pix[i] != img.Pix[i] {
			t.Fatalf("round trip changed pixel byte %d: %d -> %d", i, img.Pix[i], out.Pix[i])
		}
	}
}

func TestPipelineCopyPreviewToProgram(t *testing.T) {
	dev := NewSoftwareDevice()
	defer dev.Close()
	p := NewPipeline(dev, nil)

	p.PreviewChain().Add(New(KindBlur))
	p.PreviewChain().Add(New(KindSepia))
	p.ProgramChain().Add(New(KindInvert))

	p.CopyPreviewToProgram()

	got := p.ProgramChain().Effects()
	if len(got) != 2 {
		t.Fatalf("expected 2 effects on program chain, got %d", len(got))
	}
	if got[0].Kind != KindBlur || got[1].Kind != KindSepia {
		t.Errorf("program chain has wrong effects: %v, %v", got[0].Kind, got[1].Kind)
	}

	// Editing the program copy must not touch preview.
	p.ProgramChain().Clear()
	if p.PreviewChain().Len() != 2 {
		t.Error("clearing program chain affected preview chain")
	}
}

func TestPipelinePublishesChainEvents(t *testing.T) {
	dev := NewSoftwareDevice()
	defer dev.Close()
	bus := events.New()
	p := NewPipeline(dev, bus)

	received := make(chan events.EffectChainChangedEvent, 4)
	unsub := bus.Subscribe(func(e events.EffectChainChangedEvent) {
		received <- e
	})
	defer unsub()

	p.ProgramChain().Add(New(KindGrayscale))

	var ev events.EffectChainChangedEvent
	select {
	case ev = <-received:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for chain change event")
	}
	if ev.Chain != ProgramChainName {
		t.Errorf("expected chain %q, got %q", ProgramChainName, ev.Chain)
	}
	if len(ev.Effects) != 1 || ev.Effects[0] != string(KindGrayscale) {
		t.Errorf("unexpected effect list: %v", ev.Effects)
	}
}

func TestPipelineChainByName(t *testing.T) {
	dev := NewSoftwareDevice()
	defer dev.Close()
	p := NewPipeline(dev, nil)

	tests := []struct {
		name string
		want *Chain
	}{
		{PreviewChainName, p.PreviewChain()},
		{ProgramChainName, p.ProgramChain()},
		{"main output", nil},
	}
	for _, tt := range tests {
		if got := p.ChainByName(tt.name); got != tt.want {
			t.Errorf("ChainByName(%q) returned wrong chain", tt.name)
		}
	}
}
