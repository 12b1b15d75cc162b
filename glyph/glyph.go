// Package glyph rasterizes text with a TrueType font so it can be packed like an icon.
package glyph

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

// Errors
var (
	ErrEmptyText = errors.New("glyph: no text to render")
	ErrFont      = errors.New("glyph: unknown built-in font")
)

// Defaults
const (
	DefaultSize = 24
	DefaultDPI  = 72
)

// Options for Render.
type Options struct {
	// Font is a TrueType font, nil uses Go Regular.
	Font []byte

	// Size in points.
	Size float64

	// DPI is the output resolution.
	DPI float64

	// Padding in pixels added on every side.
	Padding int
}

// Builtin returns the TrueType data of one of the Go fonts by name.
func Builtin(name string) ([]byte, error) {
	switch strings.ToLower(name) {
	case "", "goregular", "regular":
		return goregular.TTF, nil
	case "gobold", "bold":
		return gobold.TTF, nil
	case "gomono", "mono":
		return gomono.TTF, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrFont, name)
	}
}

func (o Options) withDefaults() Options {
	if o.Font == nil {
		o.Font = goregular.TTF
	}
	if o.Size <= 0 {
		o.Size = DefaultSize
	}
	if o.DPI <= 0 {
		o.DPI = DefaultDPI
	}
	if o.Padding < 0 {
		o.Padding = 0
	}
	return o
}

// Render draws text in black on a transparent background that is just large enough to hold
// it. Lines are separated by newlines.
func Render(text string, opts Options) (*image.NRGBA, error) {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	opts = opts.withDefaults()
	f, err := freetype.ParseFont(opts.Font)
	if err != nil {
		return nil, fmt.Errorf("glyph: error parsing font: %w", err)
	}

	face := truetype.NewFace(f, &truetype.Options{
		Size:    opts.Size,
		DPI:     opts.DPI,
		Hinting: font.HintingFull,
	})
	defer face.Close()

	var (
		metrics = face.Metrics()
		ascent  = metrics.Ascent.Ceil()
		height  = (metrics.Ascent + metrics.Descent).Ceil()
		advance fixed.Int26_6
	)
	for _, line := range lines {
		if w := font.MeasureString(face, line); w > advance {
			advance = w
		}
	}

	var (
		pad = opts.Padding
		dst = image.NewNRGBA(image.Rect(0, 0, advance.Ceil()+2*pad, height*len(lines)+2*pad))
		c   = freetype.NewContext()
	)
	c.SetDPI(opts.DPI)
	c.SetFont(f)
	c.SetFontSize(opts.Size)
	c.SetHinting(font.HintingFull)
	c.SetClip(dst.Bounds())
	c.SetDst(dst)
	c.SetSrc(image.Black)

	for i, line := range lines {
		if _, err = c.DrawString(line, freetype.Pt(pad, pad+ascent+i*height)); err != nil {
			return nil, fmt.Errorf("glyph: error drawing %q: %w", line, err)
		}
	}
	return dst, nil
}
