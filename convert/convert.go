// Package convert turns image files into packed icon headers.
//
// Run converts a directory of weather icons in one go, File converts a single image. Both
// decode PNG, JPEG, GIF, BMP, TIFF and WebP input.
package convert

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // GIF decoder
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"io"
	"log/slog"
	"os"

	_ "golang.org/x/image/bmp"  // BMP decoder
	_ "golang.org/x/image/tiff" // TIFF decoder
	_ "golang.org/x/image/webp" // WebP decoder

	"github.com/BeatGlow/eink/draw"
	"github.com/BeatGlow/eink/header"
	"github.com/BeatGlow/eink/pixel"
)

// Errors
var (
	ErrNoMatches        = errors.New("convert: no input file matched")
	ErrUnsupportedImage = fmt.Errorf("convert: unsupported image: %w", image.ErrFormat)
)

// Config configures a conversion.
type Config struct {
	// Dir is the input directory scanned by Run.
	Dir string

	// OutDir receives the headers, empty means Dir for Run and the directory of the input
	// file for File.
	OutDir string

	// Pattern selects the files Run converts. The first submatch is the icon id.
	Pattern string

	// GrayIDs are the icon ids that get a 4-gray header next to the 1-bit one. A nil
	// slice uses the defaults, an empty one disables 4-gray output.
	GrayIDs []int

	// Thresholds for the quantizer, nil uses pixel.DefaultThresholds.
	Thresholds *pixel.Thresholds

	// Frame places every image in a canvas of this size before packing. Zero keeps the
	// size of the image.
	Frame image.Point

	// Fit scales images to fit Frame.
	Fit bool

	// Prefix of the macro names. Run uses header.DefaultPrefix when empty, File uses the
	// value as given.
	Prefix string

	// Logger receives progress, nil uses slog.Default().
	Logger *slog.Logger
}

// DefaultConfig are the default configuration values.
var DefaultConfig = Config{
	Dir:     "weather_icons",
	Pattern: `^weather_(\d+)\.png$`,
	GrayIDs: []int{2, 3, 51, 61, 71, 95},
}

func (c *Config) withDefaults() *Config {
	out := new(Config)
	if c == nil {
		*out = DefaultConfig
	} else {
		*out = *c
	}
	if out.Dir == "" {
		out.Dir = DefaultConfig.Dir
	}
	if out.Pattern == "" {
		out.Pattern = DefaultConfig.Pattern
	}
	if out.GrayIDs == nil {
		out.GrayIDs = DefaultConfig.GrayIDs
	}
	if out.Thresholds == nil {
		t := pixel.DefaultThresholds
		out.Thresholds = &t
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return out
}

// Icon is a packed image ready to be written as a header.
type Icon struct {
	Name string
	*pixel.Packed
}

// Header returns the header describing the icon.
func (i *Icon) Header(prefix, comment string) *header.Header {
	h := header.New(i.Name, prefix, i.Packed)
	h.Comment = comment
	return h
}

// Write renders the icon header to path.
func (i *Icon) Write(path, prefix, comment string) error {
	var b bytes.Buffer
	if _, err := i.Header(prefix, comment).WriteTo(&b); err != nil {
		return &FileError{Path: path, Stage: StageWrite, Err: err}
	}
	if err := os.WriteFile(path, b.Bytes(), 0o644); err != nil {
		return &FileError{Path: path, Stage: StageWrite, Err: err}
	}
	return nil
}

// Decode reads an image file. Failures are reported as a *FileError.
func Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FileError{Path: path, Stage: StageOpen, Err: err}
	}
	defer func() { _ = f.Close() }()

	img, err := DecodeReader(f)
	if err != nil {
		return nil, &FileError{Path: path, Stage: StageDecode, Err: err}
	}
	return img, nil
}

// DecodeReader decodes an image in any of the registered formats.
func DecodeReader(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if errors.Is(err, image.ErrFormat) {
		return nil, ErrUnsupportedImage
	} else if err != nil {
		return nil, err
	}
	return img, nil
}

// Convert frames img according to cfg and packs it in format f.
func Convert(img image.Image, name string, f pixel.Format, cfg *Config) (*Icon, error) {
	cfg = cfg.withDefaults()
	if err := (&header.Header{Name: name}).Validate(); err != nil {
		return nil, err
	}
	if f != pixel.OneBit && f != pixel.TwoBit {
		return nil, fmt.Errorf("convert: %w %s", pixel.ErrFormat, f)
	}
	framed := draw.Frame(img, cfg.Frame, cfg.Fit)
	return &Icon{
		Name:   name,
		Packed: pixel.Pack(framed, f, *cfg.Thresholds),
	}, nil
}
