// Package effects implements the per-output GPU effect pipeline: ordered
// effect chains, a render device abstraction, and the image round trip
// applied to preview and program outputs independently.
package effects

import (
	"image"
	"maps"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// Kind identifies an effect implementation.
type Kind string

// Built-in effect kinds.
const (
	KindBrightness Kind = "brightness"
	KindContrast   Kind = "contrast"
	KindSaturation Kind = "saturation"
	KindGamma      Kind = "gamma"
	KindBlur       Kind = "blur"
	KindSharpen    Kind = "sharpen"
	KindGrayscale  Kind = "grayscale"
	KindInvert     Kind = "invert"
	KindSepia      Kind = "sepia"
	KindOpacity    Kind = "opacity"
)

// Kinds lists every built-in effect kind.
func Kinds() []Kind {
	return []Kind{
		KindBrightness, KindContrast, KindSaturation, KindGamma,
		KindBlur, KindSharpen, KindGrayscale, KindInvert,
		KindSepia, KindOpacity,
	}
}

// defaultParams returns the parameter map a fresh effect of the given
// kind starts with.
func defaultParams(kind Kind) map[string]float64 {
	switch kind {
	case KindBrightness, KindContrast, KindSaturation:
		return map[string]float64{"amount": 0}
	case KindGamma:
		return map[string]float64{"gamma": 1.0}
	case KindBlur, KindSharpen:
		return map[string]float64{"sigma": 1.5}
	case KindOpacity:
		return map[string]float64{"alpha": 1.0}
	default:
		return map[string]float64{}
	}
}

// Effect is one entry in a chain: an opaque identity, a kind, a typed
// parameter map, and an enabled flag. Disabled effects stay in the
// chain (order is preserved) but are skipped during application.
type Effect struct {
	ID      string             `json:"id"`
	Kind    Kind               `json:"kind"`
	Name    string             `json:"name"`
	Params  map[string]float64 `json:"params"`
	Enabled bool               `json:"enabled"`
}

// New creates an enabled effect of the given kind with default parameters.
func New(kind Kind) *Effect {
	return &Effect{
		ID:      uuid.NewString(),
		Kind:    kind,
		Name:    string(kind),
		Params:  defaultParams(kind),
		Enabled: true,
	}
}

// Clone returns an independent copy with the same kind and parameter
// values but a fresh identity. Mutating the clone never affects the
// original.
func (e *Effect) Clone() *Effect {
	return &Effect{
		ID:      uuid.NewString(),
		Kind:    e.Kind,
		Name:    e.Name,
		Params:  maps.Clone(e.Params),
		Enabled: e.Enabled,
	}
}

// param reads a parameter with a fallback for missing keys.
func (e *Effect) param(key string, fallback float64) float64 {
	if v, ok := e.Params[key]; ok {
		return v
	}
	return fallback
}

// apply runs the effect on an image, returning a new image.
func (e *Effect) apply(img *image.NRGBA) *image.NRGBA {
	switch e.Kind {
	case KindBrightness:
		return imaging.AdjustBrightness(img, e.param("amount", 0))
	case KindContrast:
		return imaging.AdjustContrast(img, e.param("amount", 0))
	case KindSaturation:
		return imaging.AdjustSaturation(img, e.param("amount", 0))
	case KindGamma:
		return imaging.AdjustGamma(img, e.param("gamma", 1.0))
	case KindBlur:
		return imaging.Blur(img, e.param("sigma", 1.5))
	case KindSharpen:
		return imaging.Sharpen(img, e.param("sigma", 1.5))
	case KindGrayscale:
		return imaging.Grayscale(img)
	case KindInvert:
		return imaging.Invert(img)
	case KindSepia:
		return applySepia(img)
	case KindOpacity:
		return applyOpacity(img, e.param("alpha", 1.0))
	default:
		return img
	}
}

// applySepia applies the classic sepia weighting per pixel.
func applySepia(img *image.NRGBA) *image.NRGBA {
	out := imaging.Clone(img)
	for i := 0; i+3 < len(out.Pix); i += 4 {
		r := float64(out.Pix[i])
		g := float64(out.Pix[i+1])
		b := float64(out.Pix[i+2])
		out.Pix[i] = clamp8(0.393*r + 0.769*g + 0.189*b)
		out.Pix[i+1] = clamp8(0.349*r + 0.686*g + 0.168*b)
		out.Pix[i+2] = clamp8(0.272*r + 0.534*g + 0.131*b)
	}
	return out
}

// applyOpacity scales the alpha channel by the given factor.
func applyOpacity(img *image.NRGBA, alpha float64) *image.NRGBA {
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	out := imaging.Clone(img)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = clamp8(float64(out.Pix[i]) * alpha)
	}
	return out
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
