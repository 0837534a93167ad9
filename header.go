package parapng

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ColorType is the PNG color type byte, per the PNG specification's IHDR
// chunk layout.
type ColorType uint8

const (
	ColorGreyscale      ColorType = 0
	ColorTruecolor      ColorType = 2
	ColorIndexed        ColorType = 3
	ColorGreyscaleAlpha ColorType = 4
	ColorTruecolorAlpha ColorType = 6
)

func (c ColorType) String() string {
	switch c {
	case ColorGreyscale:
		return "greyscale"
	case ColorTruecolor:
		return "truecolor"
	case ColorIndexed:
		return "indexed"
	case ColorGreyscaleAlpha:
		return "greyscale+alpha"
	case ColorTruecolorAlpha:
		return "truecolor+alpha"
	default:
		return fmt.Sprintf("color(%d)", uint8(c))
	}
}

// channels returns the number of sample channels per pixel for this color
// type, before bit depth is taken into account.
func (c ColorType) channels() int {
	switch c {
	case ColorGreyscale, ColorIndexed:
		return 1
	case ColorGreyscaleAlpha:
		return 2
	case ColorTruecolor:
		return 3
	case ColorTruecolorAlpha:
		return 4
	default:
		return 0
	}
}

// validDepths enumerates the bit depths the PNG specification allows for
// each color type. A Go map stands in for the original implementation's
// match-arm table (Header::validate in the reference implementation).
var validDepths = map[ColorType]map[uint8]bool{
	ColorGreyscale:      {1: true, 2: true, 4: true, 8: true, 16: true},
	ColorTruecolor:      {8: true, 16: true},
	ColorIndexed:        {1: true, 2: true, 4: true, 8: true},
	ColorGreyscaleAlpha: {8: true, 16: true},
	ColorTruecolorAlpha: {8: true, 16: true},
}

// Header describes the image metadata written into the IHDR chunk, plus the
// derived geometry the rest of the pipeline needs.
type Header struct {
	Width     uint32 `validate:"required"`
	Height    uint32 `validate:"required"`
	ColorType ColorType
	BitDepth  uint8
}

var headerValidator = validator.New()

// Validate checks that the header describes a legal PNG image: dimensions
// in range, and a (ColorType, BitDepth) combination the PNG spec allows.
func (h Header) Validate() error {
	if err := headerValidator.Struct(&h); err != nil {
		return newError("Header.Validate", KindInvalidHeader, err)
	}
	if h.Width == 0 || h.Width > 1<<31-1 {
		return newError("Header.Validate", KindInvalidHeader, fmt.Errorf("width %d out of range", h.Width))
	}
	if h.Height == 0 || h.Height > 1<<31-1 {
		return newError("Header.Validate", KindInvalidHeader, fmt.Errorf("height %d out of range", h.Height))
	}
	depths, ok := validDepths[h.ColorType]
	if !ok {
		return newError("Header.Validate", KindInvalidHeader, fmt.Errorf("unknown color type %d", h.ColorType))
	}
	if !depths[h.BitDepth] {
		return newError("Header.Validate", KindInvalidHeader, fmt.Errorf("bit depth %d invalid for %s", h.BitDepth, h.ColorType))
	}
	return nil
}

// BytesPerPixel is ceil(channels*depth/8).
func (h Header) BytesPerPixel() int {
	bits := h.ColorType.channels() * int(h.BitDepth)
	return (bits + 7) / 8
}

// Stride is the number of packed bytes per scanline, ceil(width*channels*depth/8).
func (h Header) Stride() int {
	bits := int(h.Width) * h.ColorType.channels() * int(h.BitDepth)
	return (bits + 7) / 8
}

// filterBPP returns the "bpp" used by the filter predictors: the
// number of whole bytes one pixel occupies, floored to 1 for sub-byte
// depths (the PNG spec defines filtering in terms of whole bytes, so
// 1/2/4-bit images filter byte-by-byte rather than pixel-by-pixel).
func (h Header) filterBPP() int {
	bpp := h.BytesPerPixel()
	if bpp < 1 {
		return 1
	}
	return bpp
}

func (h Header) String() string {
	return fmt.Sprintf("%dx%d %s@%d", h.Width, h.Height, h.ColorType, h.BitDepth)
}
