// Package pixel implements the pixel quantizer and the packed bitplane formats consumed by
// the E-ink panel firmware.
//
// Two formats are supported: [OneBit], a row-major 1 bit per pixel plane with the leftmost
// pixel in the most significant bit, and [TwoBit], a column-major 2 bits per pixel plane
// holding four rows per byte. Both are exposed as [image/draw.Image] implementations
// ([MonoImage] and [Gray2ColumnImage]) as well as through [Pack].
package pixel
