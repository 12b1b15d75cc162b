package pixel

import "image/color"

// GrayLevel is a 2-bit gray level. Higher values are darker, 0 is the white background.
type GrayLevel uint8

// Gray levels.
const (
	White GrayLevel = iota
	LightGray
	MidGray
	Black
)

// grayPalette holds the gray values icon authors paint with, one per level.
var grayPalette = [4]uint8{0xff, 0xd2, 0x80, 0x2d}

func (l GrayLevel) RGBA() (r, g, b, a uint32) {
	y := uint32(grayPalette[l&3])
	y |= y << 8
	return y, y, y, 0xffff
}

// BinaryLevel is a 1-bit level. On is drawn (black), Off is the white background.
type BinaryLevel uint8

// Binary levels.
const (
	Off BinaryLevel = iota
	On
)

func (l BinaryLevel) RGBA() (r, g, b, a uint32) {
	if l&1 != 0 {
		return 0, 0, 0, 0xffff
	}
	return 0xffff, 0xffff, 0xffff, 0xffff
}

// Luminance returns the integer perceptual gray value of an 8-bit RGB triplet.
//
// The division truncates, so the result is reproducible bit for bit.
func Luminance(r, g, b uint8) uint8 {
	return uint8((uint32(r)*299 + uint32(g)*587 + uint32(b)*114) / 1000)
}

// Thresholds configures the quantizer. The two formats are tuned independently.
type Thresholds struct {
	// GrayAlpha is the alpha below which a pixel is background in the 2-bit format.
	GrayAlpha uint8

	// GrayWhite, GrayLight and GrayMid are the luminance breakpoints of the 2-bit format:
	// at or above GrayWhite is level 0, at or above GrayLight level 1, at or above
	// GrayMid level 2 and anything darker level 3.
	GrayWhite uint8
	GrayLight uint8
	GrayMid   uint8

	// MonoAlpha is the alpha below which a pixel is background in the 1-bit format.
	MonoAlpha uint8

	// MonoBlack is the luminance below which a pixel is drawn in the 1-bit format.
	MonoBlack uint8
}

// DefaultThresholds are matched to the gamma response of the target panel. Pixel authors
// should avoid the luminance values 254, 168 and 90, which sit on bucket edges.
var DefaultThresholds = Thresholds{
	GrayAlpha: 64,
	GrayWhite: 254,
	GrayLight: 168,
	GrayMid:   90,
	MonoAlpha: 128,
	MonoBlack: 192,
}

// GrayLevel quantizes a non-premultiplied 8-bit pixel to a 2-bit level.
func (t Thresholds) GrayLevel(r, g, b, a uint8) GrayLevel {
	if a < t.GrayAlpha {
		return White
	}
	switch lum := Luminance(r, g, b); {
	case lum >= t.GrayWhite:
		return White
	case lum >= t.GrayLight:
		return LightGray
	case lum >= t.GrayMid:
		return MidGray
	default:
		return Black
	}
}

// BinaryLevel quantizes a non-premultiplied 8-bit pixel to a 1-bit level.
func (t Thresholds) BinaryLevel(r, g, b, a uint8) BinaryLevel {
	if a < t.MonoAlpha {
		return Off
	}
	if Luminance(r, g, b) < t.MonoBlack {
		return On
	}
	return Off
}

// Gray quantizes any color to a 2-bit level.
func (t Thresholds) Gray(c color.Color) GrayLevel {
	if l, ok := c.(GrayLevel); ok {
		return l & 3
	}
	n := toNRGBA(c)
	return t.GrayLevel(n.R, n.G, n.B, n.A)
}

// Binary quantizes any color to a 1-bit level.
func (t Thresholds) Binary(c color.Color) BinaryLevel {
	if l, ok := c.(BinaryLevel); ok {
		return l & 1
	}
	n := toNRGBA(c)
	return t.BinaryLevel(n.R, n.G, n.B, n.A)
}

// GrayModel returns a color model converting to GrayLevel.
func (t Thresholds) GrayModel() color.Model {
	return grayModel(t)
}

// BinaryModel returns a color model converting to BinaryLevel.
func (t Thresholds) BinaryModel() color.Model {
	return binaryModel(t)
}

// Models using the DefaultThresholds.
var (
	GrayModel   = DefaultThresholds.GrayModel()
	BinaryModel = DefaultThresholds.BinaryModel()
)

type grayModel Thresholds

func (m grayModel) Convert(c color.Color) color.Color {
	return Thresholds(m).Gray(c)
}

type binaryModel Thresholds

func (m binaryModel) Convert(c color.Color) color.Color {
	return Thresholds(m).Binary(c)
}

// toNRGBA reduces c to the 8-bit straight alpha channels an image decoder would report.
func toNRGBA(c color.Color) color.NRGBA {
	if n, ok := c.(color.NRGBA); ok {
		return n
	}
	return color.NRGBAModel.Convert(c).(color.NRGBA)
}
