package pixel

import (
	"errors"
	"fmt"
	"image"
	"strings"
)

// ErrFormat is returned when parsing an unknown format name.
var ErrFormat = errors.New("pixel: unknown format")

// Format is a packed bitplane encoding.
type Format uint8

// Supported formats.
const (
	OneBit Format = iota + 1 // 1 bit per pixel, row-major
	TwoBit                   // 2 bits per pixel (4 gray levels), column-major
)

func (f Format) String() string {
	switch f {
	case OneBit:
		return "1bit"
	case TwoBit:
		return "4g"
	default:
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
}

// ParseFormat parses a format name as accepted on the command line.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "1bit", "1", "mono":
		return OneBit, nil
	case "4g", "2bit", "2", "gray":
		return TwoBit, nil
	default:
		return 0, fmt.Errorf("%w %q", ErrFormat, s)
	}
}

// Size returns the packed length in bytes of a w x h image, which depends on nothing else.
func (f Format) Size(w, h int) int {
	w, h = clamp(w), clamp(h)
	switch f {
	case OneBit:
		return Stride(w) * h
	case TwoBit:
		return w * BytesPerColumn(h)
	default:
		return 0
	}
}

// Packed is a packed bitplane together with the dimensions it encodes.
type Packed struct {
	Format Format
	Width  int
	Height int
	Data   []byte
}

func (p *Packed) String() string {
	return fmt.Sprintf("Packed(%s,%dx%d,%d bytes)", p.Format, p.Width, p.Height, len(p.Data))
}

// Image exposes the packed data as an image, sharing the underlying bytes.
func (p *Packed) Image() Image {
	w, h := clamp(p.Width), clamp(p.Height)
	switch p.Format {
	case OneBit:
		return &MonoImage{
			Buffer:     Buffer{Rect: image.Rect(0, 0, w, h), Pix: p.Data, Stride: Stride(w)},
			Thresholds: DefaultThresholds,
		}
	case TwoBit:
		return &Gray2ColumnImage{
			Buffer:     Buffer{Rect: image.Rect(0, 0, w, h), Pix: p.Data, Stride: BytesPerColumn(h)},
			Thresholds: DefaultThresholds,
		}
	default:
		return nil
	}
}

// PackOneBit packs one BinaryLevel per pixel of a w x h image, visiting rows top to bottom.
func PackOneBit(w, h int, level func(x, y int) BinaryLevel) *Packed {
	m := NewMonoImage(w, h)
	w, h = m.Rect.Dx(), m.Rect.Dy()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if level(x, y)&1 != 0 {
				i, bit := m.PixOffset(x, y)
				m.Pix[i] |= 1 << bit
			}
		}
	}
	return &Packed{Format: OneBit, Width: w, Height: h, Data: m.Pix}
}

// PackTwoBit packs one GrayLevel per pixel of a w x h image, visiting columns left to right.
func PackTwoBit(w, h int, level func(x, y int) GrayLevel) *Packed {
	m := NewGray2ColumnImage(w, h)
	w, h = m.Rect.Dx(), m.Rect.Dy()
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			m.SetGray(x, y, level(x, y))
		}
	}
	return &Packed{Format: TwoBit, Width: w, Height: h, Data: m.Pix}
}

// Pack quantizes every pixel of src with t and packs the result in format f. The top-left
// corner of src.Bounds() becomes pixel (0, 0).
func Pack(src image.Image, f Format, t Thresholds) *Packed {
	b := src.Bounds()
	switch f {
	case OneBit:
		return PackOneBit(b.Dx(), b.Dy(), func(x, y int) BinaryLevel {
			return t.Binary(src.At(b.Min.X+x, b.Min.Y+y))
		})
	case TwoBit:
		return PackTwoBit(b.Dx(), b.Dy(), func(x, y int) GrayLevel {
			return t.Gray(src.At(b.Min.X+x, b.Min.Y+y))
		})
	default:
		panic("pixel: cannot pack " + f.String())
	}
}
