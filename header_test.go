package parapng

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaderValidateRejectsZeroDimensions(t *testing.T) {
	h := Header{Width: 0, Height: 1, ColorType: ColorGreyscale, BitDepth: 8}
	err := h.Validate()
	assert.ErrorIs(t, err, ErrInvalidHeader)
}

func TestHeaderValidateRejectsBadColorDepthCombination(t *testing.T) {
	h := Header{Width: 4, Height: 4, ColorType: ColorTruecolor, BitDepth: 4}
	err := h.Validate()
	assert.ErrorIs(t, err, ErrInvalidHeader)
}

func TestHeaderValidateAcceptsAllFifteenCombinations(t *testing.T) {
	valid := map[ColorType][]uint8{
		ColorGreyscale:      {1, 2, 4, 8, 16},
		ColorTruecolor:      {8, 16},
		ColorIndexed:        {1, 2, 4, 8},
		ColorGreyscaleAlpha: {8, 16},
		ColorTruecolorAlpha: {8, 16},
	}
	for ct, depths := range valid {
		for _, d := range depths {
			h := Header{Width: 1, Height: 1, ColorType: ct, BitDepth: d}
			assert.NoError(t, h.Validate(), "%s depth %d should be valid", ct, d)
		}
	}
}

func TestStrideAndBytesPerPixel(t *testing.T) {
	h := Header{Width: 7, Height: 1, ColorType: ColorTruecolorAlpha, BitDepth: 8}
	assert.Equal(t, 4, h.BytesPerPixel())
	assert.Equal(t, 28, h.Stride())

	sub := Header{Width: 9, Height: 1, ColorType: ColorIndexed, BitDepth: 4}
	assert.Equal(t, 1, sub.filterBPP())
	assert.Equal(t, 5, sub.Stride()) // ceil(9*1*4/8) = 5
}
