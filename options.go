package parapng

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/parapng/parapng/internal/workerpool"
)

// CompressionLevel mirrors zlib's coarse fast/default/high knob.
type CompressionLevel int

const (
	CompressionFast    CompressionLevel = 1
	CompressionDefault CompressionLevel = 6
	CompressionHigh    CompressionLevel = 9
)

// FilterType is one of the five PNG scanline filters.
type FilterType uint8

const (
	FilterNone FilterType = iota
	FilterSub
	FilterUp
	FilterAverage
	FilterPaeth
)

func (f FilterType) String() string {
	switch f {
	case FilterNone:
		return "none"
	case FilterSub:
		return "sub"
	case FilterUp:
		return "up"
	case FilterAverage:
		return "average"
	case FilterPaeth:
		return "paeth"
	default:
		return fmt.Sprintf("filter(%d)", uint8(f))
	}
}

// FilterMode selects either per-row adaptive filtering or one fixed filter
// for every row.
type FilterMode struct {
	Adaptive bool
	Fixed    FilterType
}

// AdaptiveFilterMode requests per-row minimum-sum-of-absolute-differences
// filter selection.
func AdaptiveFilterMode() FilterMode { return FilterMode{Adaptive: true} }

// FixedFilterMode requests the same filter for every row.
func FixedFilterMode(f FilterType) FilterMode { return FilterMode{Fixed: f} }

// Strategy selects the deflate compression strategy. Go's deflate
// implementations don't expose zlib's full Z_*_STRATEGY enum; see
// resolveStrategy and internal/deflatewrap's resolveLevel for the
// approximation used.
type Strategy uint8

const (
	StrategyDefault Strategy = iota
	StrategyFiltered
	StrategyHuffman
	StrategyRLE
	StrategyFixed
)

// StrategyMode selects either the adaptive strategy rule or a fixed strategy.
type StrategyMode struct {
	Adaptive bool
	Fixed    Strategy
}

func AdaptiveStrategyMode() StrategyMode { return StrategyMode{Adaptive: true} }

func FixedStrategyMode(s Strategy) StrategyMode { return StrategyMode{Fixed: s} }

const minChunkSize = 32 * 1024
const defaultChunkSize = 256 * 1024

// Options configures an Encoder.
type Options struct {
	ChunkSize        int `validate:"min=32768"`
	CompressionLevel CompressionLevel
	FilterMode       FilterMode
	StrategyMode     StrategyMode

	// Pool is an optional shared worker pool. When nil the encoder uses the
	// package-default pool sized to runtime.NumCPU().
	Pool *workerpool.Pool

	// Logger receives debug-level diagnostics about chunk dispatch and
	// state transitions. A nil Logger means no logging, same as zap.NewNop().
	Logger *zap.Logger
}

// DefaultOptions returns the encoder's baseline defaults.
func DefaultOptions() Options {
	return Options{
		ChunkSize:        defaultChunkSize,
		CompressionLevel: CompressionDefault,
		FilterMode:       AdaptiveFilterMode(),
		StrategyMode:     AdaptiveStrategyMode(),
	}
}

var optionsValidator = validator.New()

// Validate checks option ranges and enum membership.
func (o Options) Validate() error {
	if err := optionsValidator.Struct(&o); err != nil {
		return newError("Options.Validate", KindInvalidOption, err)
	}
	switch o.CompressionLevel {
	case CompressionFast, CompressionDefault, CompressionHigh:
	default:
		return newError("Options.Validate", KindInvalidOption, fmt.Errorf("invalid compression level %d", o.CompressionLevel))
	}
	if !o.FilterMode.Adaptive {
		switch o.FilterMode.Fixed {
		case FilterNone, FilterSub, FilterUp, FilterAverage, FilterPaeth:
		default:
			return newError("Options.Validate", KindInvalidOption, fmt.Errorf("invalid fixed filter %d", o.FilterMode.Fixed))
		}
	}
	if !o.StrategyMode.Adaptive {
		switch o.StrategyMode.Fixed {
		case StrategyDefault, StrategyFiltered, StrategyHuffman, StrategyRLE, StrategyFixed:
		default:
			return newError("Options.Validate", KindInvalidOption, fmt.Errorf("invalid fixed strategy %d", o.StrategyMode.Fixed))
		}
	}
	return nil
}

// logger returns o.Logger, or a no-op logger when unset.
func (o Options) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}

// resolveFilterMode applies the "None for Indexed, Adaptive otherwise"
// default rule: None for Indexed images, Adaptive otherwise.
func (o Options) resolveFilterMode(h Header) FilterMode {
	if !o.FilterMode.Adaptive {
		return o.FilterMode
	}
	if h.ColorType == ColorIndexed {
		return FixedFilterMode(FilterNone)
	}
	return AdaptiveFilterMode()
}
