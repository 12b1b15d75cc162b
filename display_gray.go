package eink

import (
	"context"
	"fmt"

	"github.com/BeatGlow/eink/pixel"
)

func (d *Display) initGray(ctx context.Context) error {
	return d.initQuick(ctx, entryXDecYInc,
		[]byte{cmdRAMXWindow, lo(Width - 1), hi(Width - 1), 0x00, 0x00},
		tempGray)
}

// WriteGray sends a 4-gray frame and refreshes the panel.
//
// The frame is column-major with Height columns of Width pixels, the layout of
// pixel.TwoBit for a Height x Width image. The panel must be initialized in 4-gray mode.
func (d *Display) WriteGray(ctx context.Context, p *pixel.Packed) error {
	if d.mode != ModeGray {
		return fmt.Errorf("%w: %s mode takes no 4-gray frame", ErrMode, d.mode)
	}
	if p.Format != pixel.TwoBit {
		return fmt.Errorf("%w: got %s, want %s", ErrFrameFormat, p.Format, pixel.TwoBit)
	}
	if p.Width != Height || p.Height != Width || len(p.Data) != GraySize {
		return fmt.Errorf("%w: got %dx%d (%d bytes), want %dx%d (%d bytes)",
			ErrFrameSize, p.Width, p.Height, len(p.Data), Height, Width, GraySize)
	}

	ram1, ram2 := splitGray(p.Data)
	if err := d.command(cmdWriteRAM, ram1...); err != nil {
		return err
	}
	if err := d.command(cmdWriteRAM2, ram2...); err != nil {
		return err
	}
	return d.update(ctx, updateFast)
}

// splitGray spreads 2-bit levels over the two panel RAMs. Every pair of input bytes
// holds eight pixels and yields one byte per RAM. The low level bit goes to the first
// RAM, the high one to the second, both inverted so white is all ones.
func splitGray(data []byte) (ram1, ram2 []byte) {
	ram1 = make([]byte, len(data)/2)
	ram2 = make([]byte, len(data)/2)
	for i := range ram1 {
		var b1, b2 byte
		for _, v := range data[i*2 : i*2+2] {
			for shift := 6; shift >= 0; shift -= 2 {
				level := v >> shift & 3
				b1 = b1<<1 | level&1
				b2 = b2<<1 | level>>1
			}
		}
		ram1[i] = ^b1
		ram2[i] = ^b2
	}
	return
}
