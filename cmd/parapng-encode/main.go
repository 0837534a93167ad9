// Command parapng-encode converts an arbitrary raster image into a PNG
// file using the parapng parallel encoder. It is an outer collaborator
// only: it decodes a source image, maps it onto one of the five PNG color
// types, and drives the public Encoder API — none of the pipeline logic
// lives here.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/parapng/parapng"
	"github.com/parapng/parapng/internal/workerpool"
)

func main() {
	_ = godotenv.Load()

	var (
		colorFlag     = flag.String("color", "truecolor", "output color type: greyscale, truecolor, indexed, greyscale-alpha, truecolor-alpha")
		workersFlag   = flag.Int("workers", runtime.NumCPU(), "worker pool size")
		chunkSizeFlag = flag.Int("chunk-size", 256*1024, "chunk size in bytes, minimum 32768")
		levelFlag     = flag.Int("level", 6, "compression level: 1 (fast), 6 (default), 9 (high)")
		filterFlag    = flag.String("filter", "adaptive", "filter mode: adaptive, none, sub, up, average, paeth")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <input-image> <output.png>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(flag.Arg(0), flag.Arg(1), *colorFlag, *filterFlag, *workersFlag, *chunkSizeFlag, *levelFlag); err != nil {
		fmt.Fprintln(os.Stderr, "parapng-encode:", err)
		os.Exit(1)
	}
}

func run(inPath, outPath, colorName, filterName string, workers, chunkSize, level int) error {
	in, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer in.Close()

	img, _, err := image.Decode(in)
	if err != nil {
		return fmt.Errorf("decode %s: %w", inPath, err)
	}

	colorType, err := parseColorType(colorName)
	if err != nil {
		return err
	}
	filterMode, err := parseFilterMode(filterName)
	if err != nil {
		return err
	}
	compLevel, err := parseLevel(level)
	if err != nil {
		return err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	pool := workerpool.New(workers)
	defer pool.Close()

	opts := parapng.DefaultOptions()
	opts.ChunkSize = chunkSize
	opts.CompressionLevel = compLevel
	opts.FilterMode = filterMode
	opts.Pool = pool

	return encode(out, img, colorType, opts)
}

// encode drives the full Encoder state machine over one in-memory image.
func encode(w *os.File, img image.Image, colorType parapng.ColorType, opts parapng.Options) error {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	header := parapng.Header{
		Width:     uint32(width),
		Height:    uint32(height),
		ColorType: colorType,
		BitDepth:  8,
	}
	if err := header.Validate(); err != nil {
		return err
	}

	enc, err := parapng.NewEncoder(parapng.NewSink(w), opts)
	if err != nil {
		return err
	}
	if err := enc.WriteHeader(header); err != nil {
		return err
	}

	paletted, isPaletted := img.(*image.Paletted)
	if colorType == parapng.ColorIndexed {
		if !isPaletted {
			return fmt.Errorf("indexed output requires a paletted source image")
		}
		plte, trns := paletteChunks(paletted.Palette)
		if err := enc.WritePalette(plte); err != nil {
			return err
		}
		if trns != nil {
			if err := enc.WriteTransparency(trns); err != nil {
				return err
			}
		}
	}

	stride := header.Stride()
	const rowBatch = 256
	rows := make([]byte, 0, stride*rowBatch)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		rows = appendRow(rows, img, colorType, paletted, bounds, y)
		if len(rows)/stride >= rowBatch {
			if err := enc.WriteImageRows(rows); err != nil {
				return err
			}
			rows = rows[:0]
		}
	}
	if len(rows) > 0 {
		if err := enc.WriteImageRows(rows); err != nil {
			return err
		}
	}
	return enc.Finish()
}

func appendRow(rows []byte, img image.Image, colorType parapng.ColorType, paletted *image.Paletted, bounds image.Rectangle, y int) []byte {
	for x := bounds.Min.X; x < bounds.Max.X; x++ {
		switch colorType {
		case parapng.ColorIndexed:
			rows = append(rows, paletted.ColorIndexAt(x, y))
		case parapng.ColorGreyscale:
			g, _, _, _ := img.At(x, y).RGBA()
			rows = append(rows, byte(g>>8))
		case parapng.ColorGreyscaleAlpha:
			g, _, _, a := img.At(x, y).RGBA()
			rows = append(rows, byte(g>>8), byte(a>>8))
		case parapng.ColorTruecolor:
			r, g, b, _ := img.At(x, y).RGBA()
			rows = append(rows, byte(r>>8), byte(g>>8), byte(b>>8))
		case parapng.ColorTruecolorAlpha:
			r, g, b, a := img.At(x, y).RGBA()
			rows = append(rows, byte(r>>8), byte(g>>8), byte(b>>8), byte(a>>8))
		}
	}
	return rows
}

// paletteChunks flattens a color.Palette into PLTE's RGB-triple form, and
// builds a tRNS payload (one byte per entry) when any entry isn't fully
// opaque. It returns a nil tRNS payload when every entry is opaque.
func paletteChunks(palette color.Palette) (plte []byte, trns []byte) {
	plte = make([]byte, 0, len(palette)*3)
	alphas := make([]byte, len(palette))
	anyTransparent := false
	for i, c := range palette {
		r, g, b, a := c.RGBA()
		plte = append(plte, byte(r>>8), byte(g>>8), byte(b>>8))
		alphas[i] = byte(a >> 8)
		if alphas[i] != 0xff {
			anyTransparent = true
		}
	}
	if anyTransparent {
		trns = alphas
	}
	return plte, trns
}

func parseColorType(name string) (parapng.ColorType, error) {
	switch name {
	case "greyscale":
		return parapng.ColorGreyscale, nil
	case "truecolor":
		return parapng.ColorTruecolor, nil
	case "indexed":
		return parapng.ColorIndexed, nil
	case "greyscale-alpha":
		return parapng.ColorGreyscaleAlpha, nil
	case "truecolor-alpha":
		return parapng.ColorTruecolorAlpha, nil
	default:
		return 0, fmt.Errorf("unknown -color %q", name)
	}
}

func parseFilterMode(name string) (parapng.FilterMode, error) {
	switch name {
	case "adaptive":
		return parapng.AdaptiveFilterMode(), nil
	case "none":
		return parapng.FixedFilterMode(parapng.FilterNone), nil
	case "sub":
		return parapng.FixedFilterMode(parapng.FilterSub), nil
	case "up":
		return parapng.FixedFilterMode(parapng.FilterUp), nil
	case "average":
		return parapng.FixedFilterMode(parapng.FilterAverage), nil
	case "paeth":
		return parapng.FixedFilterMode(parapng.FilterPaeth), nil
	default:
		return parapng.FilterMode{}, fmt.Errorf("unknown -filter %q", name)
	}
}

func parseLevel(level int) (parapng.CompressionLevel, error) {
	switch parapng.CompressionLevel(level) {
	case parapng.CompressionFast, parapng.CompressionDefault, parapng.CompressionHigh:
		return parapng.CompressionLevel(level), nil
	default:
		return 0, fmt.Errorf("-level must be 1, 6, or 9, got %d", level)
	}
}
