package draw

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// Frame places src in a transparent canvas of the given size.
//
// A zero size returns src unchanged. Otherwise src is centered in the frame and cropped
// where it does not fit. With fit set, src is first scaled to the largest size that fits
// the frame with its aspect ratio kept. Scaling samples the nearest source pixel, so no
// colors are introduced that the source does not contain.
func Frame(src image.Image, size image.Point, fit bool) image.Image {
	if size.X <= 0 || size.Y <= 0 {
		return src
	}

	var (
		dst = image.NewNRGBA(image.Rectangle{Max: size})
		sr  = src.Bounds()
	)
	if sr.Empty() {
		return dst
	}

	if fit {
		scaled := FitSize(sr.Size(), size)
		if scaled.X == 0 || scaled.Y == 0 {
			return dst
		}
		offset := size.Sub(scaled).Div(2)
		xdraw.NearestNeighbor.Scale(dst, image.Rectangle{Min: offset, Max: offset.Add(scaled)}, src, sr, xdraw.Src, nil)
		return dst
	}

	// Negative offsets crop src on both sides.
	offset := size.Sub(sr.Size()).Div(2)
	Draw(dst, image.Rectangle{Min: offset, Max: offset.Add(sr.Size())}, src, sr.Min, Src)
	return dst
}

// FitSize returns the largest size with the aspect ratio of src that fits in box.
func FitSize(src, box image.Point) image.Point {
	if src.X <= 0 || src.Y <= 0 || box.X <= 0 || box.Y <= 0 {
		return image.Point{}
	}
	if src.X*box.Y >= src.Y*box.X {
		// Width bound.
		return image.Pt(box.X, src.Y*box.X/src.X)
	}
	return image.Pt(src.X*box.Y/src.Y, box.Y)
}
