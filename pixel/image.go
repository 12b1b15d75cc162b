package pixel

import (
	"image"
	"image/color"
	"image/draw"
)

type Image interface {
	draw.Image

	// Clear the image.
	Clear()

	// Fill the image with a single color.
	Fill(color.Color)
}

// Buffer holds the packed pixel values of an image.
type Buffer struct {
	// Rect is the image bounding box, always anchored at (0, 0).
	Rect image.Rectangle

	// Pix are the packed pixels.
	Pix []byte

	// Stride is the Pix stride (in bytes) between adjacent rows or columns, depending on
	// the format.
	Stride int
}

func (p *Buffer) Bounds() image.Rectangle {
	return p.Rect
}

func (p *Buffer) Clear() {
	for i := range p.Pix {
		p.Pix[i] = 0x00
	}
}

func (p *Buffer) in(x, y int) bool {
	return (image.Point{X: x, Y: y}).In(p.Rect)
}

func makeBuffer(w, h, stride, size int) Buffer {
	return Buffer{
		Rect:   image.Rect(0, 0, w, h),
		Pix:    make([]byte, size),
		Stride: stride,
	}
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// Stride is the number of bytes in one row of a OneBit image w pixels wide.
func Stride(w int) int {
	if w <= 0 {
		return 0
	}
	return (w + 7) / 8
}

// BytesPerColumn is the number of bytes in one column of a TwoBit image h pixels high.
func BytesPerColumn(h int) int {
	if h <= 0 {
		return 0
	}
	return (h-1)/8*2 + (h-1)%8/4 + 1
}

// MonoImage is a 1-bit per pixel row-major image.
//
// Each row starts on a byte boundary, the leftmost pixel of a byte is its most significant
// bit and padding bits at the end of a row stay 0.
type MonoImage struct {
	Buffer

	// Thresholds used by Set.
	Thresholds Thresholds
}

func NewMonoImage(w, h int) *MonoImage {
	w, h = clamp(w), clamp(h)
	stride := Stride(w)
	return &MonoImage{
		Buffer:     makeBuffer(w, h, stride, stride*h),
		Thresholds: DefaultThresholds,
	}
}

func (p *MonoImage) ColorModel() color.Model {
	return p.Thresholds.BinaryModel()
}

// PixOffset returns the index of the byte holding (x, y) and the bit position within it.
func (p *MonoImage) PixOffset(x, y int) (int, uint) {
	return y*p.Stride + x/8, 7 - uint(x%8)
}

func (p *MonoImage) At(x, y int) color.Color {
	if !p.in(x, y) {
		return color.Transparent
	}
	return p.BinaryAt(x, y)
}

func (p *MonoImage) BinaryAt(x, y int) BinaryLevel {
	if !p.in(x, y) {
		return Off
	}
	i, bit := p.PixOffset(x, y)
	return BinaryLevel(p.Pix[i]>>bit) & 1
}

func (p *MonoImage) Set(x, y int, c color.Color) {
	p.SetBinary(x, y, p.Thresholds.Binary(c))
}

func (p *MonoImage) SetBinary(x, y int, l BinaryLevel) {
	if !p.in(x, y) {
		return
	}
	i, bit := p.PixOffset(x, y)
	if l&1 != 0 {
		p.Pix[i] |= 1 << bit
	} else {
		p.Pix[i] &^= 1 << bit
	}
}

func (p *MonoImage) Fill(c color.Color) {
	if p.Thresholds.Binary(c) == Off {
		p.Clear()
		return
	}

	// Build one row, leaving the padding bits clear, and repeat it.
	w, h := p.Rect.Dx(), p.Rect.Dy()
	row := make([]byte, p.Stride)
	for x := 0; x < w; x++ {
		row[x/8] |= 0x80 >> uint(x%8)
	}
	for y := 0; y < h; y++ {
		copy(p.Pix[y*p.Stride:], row)
	}
}

// Gray2ColumnImage is a 2-bits per pixel column-major image.
//
// Each column occupies Stride bytes. A byte holds four vertically adjacent pixels, the
// topmost in the two most significant bits, so a pair of bytes covers an 8 row band.
type Gray2ColumnImage struct {
	Buffer

	// Thresholds used by Set.
	Thresholds Thresholds
}

func NewGray2ColumnImage(w, h int) *Gray2ColumnImage {
	w, h = clamp(w), clamp(h)
	bpc := BytesPerColumn(h)
	return &Gray2ColumnImage{
		Buffer:     makeBuffer(w, h, bpc, w*bpc),
		Thresholds: DefaultThresholds,
	}
}

func (p *Gray2ColumnImage) ColorModel() color.Model {
	return p.Thresholds.GrayModel()
}

// PixOffset returns the index of the byte holding (x, y) and the shift of its 2-bit field.
func (p *Gray2ColumnImage) PixOffset(x, y int) (int, uint) {
	var (
		colByte = y/8*2 + y%8/4
		shift   = 6 - uint(y%4)*2
	)
	return x*p.Stride + colByte, shift
}

func (p *Gray2ColumnImage) At(x, y int) color.Color {
	if !p.in(x, y) {
		return color.Transparent
	}
	return p.GrayAt(x, y)
}

func (p *Gray2ColumnImage) GrayAt(x, y int) GrayLevel {
	if !p.in(x, y) {
		return White
	}
	i, shift := p.PixOffset(x, y)
	return GrayLevel(p.Pix[i]>>shift) & 3
}

func (p *Gray2ColumnImage) Set(x, y int, c color.Color) {
	p.SetGray(x, y, p.Thresholds.Gray(c))
}

// SetGray clears the 2-bit field of (x, y) before storing l, so repeated writes are safe.
func (p *Gray2ColumnImage) SetGray(x, y int, l GrayLevel) {
	if !p.in(x, y) {
		return
	}
	i, shift := p.PixOffset(x, y)
	p.Pix[i] = p.Pix[i]&^(3<<shift) | byte(l&3)<<shift
}

func (p *Gray2ColumnImage) Fill(c color.Color) {
	l := p.Thresholds.Gray(c)
	if l == White {
		p.Clear()
		return
	}

	// Build one column, leaving the unaddressed fields clear, and repeat it.
	w, h := p.Rect.Dx(), p.Rect.Dy()
	col := make([]byte, p.Stride)
	for y := 0; y < h; y++ {
		i := y/8*2 + y%8/4
		col[i] |= byte(l) << (6 - uint(y%4)*2)
	}
	for x := 0; x < w; x++ {
		copy(p.Pix[x*p.Stride:], col)
	}
}

// Interface checks.
var (
	_ Image = (*MonoImage)(nil)
	_ Image = (*Gray2ColumnImage)(nil)
)
