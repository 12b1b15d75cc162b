package eink

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/BeatGlow/eink/pixel"
)

// window addresses the RAM window and moves the address counters to its origin.
func window(x0, y0, x1, y1 int) [][]byte {
	return [][]byte{
		{cmdRAMXWindow, lo(x0), hi(x0), lo(x1), hi(x1)},
		{cmdRAMYWindow, lo(y0), hi(y0), lo(y1), hi(y1)},
		{cmdRAMXCounter, lo(x0), hi(x0)},
		{cmdRAMYCounter, lo(y0), hi(y0)},
	}
}

func (d *Display) initFull(ctx context.Context) error {
	if err := d.hardReset(ctx, 100*time.Millisecond, 100*time.Millisecond); err != nil {
		return err
	}
	if err := d.waitBusy(ctx); err != nil {
		return err
	}
	for i := 0; i < 3; i++ {
		if err := d.command(cmdSoftReset); err != nil {
			return err
		}
		if err := delay(ctx, 100*time.Millisecond); err != nil {
			return err
		}
	}
	if err := d.waitBusy(ctx); err != nil {
		return err
	}
	if err := d.commands(append([][]byte{
		{cmdTempSensor, internalTempSensor},
		boosterSoftStart,
		driverOutput(),
		{cmdBorderWaveform, borderFollowLUT},
		{cmdDataEntryMode, entryXIncYInc},
	}, window(0, 0, Width-1, Height-1)...)...); err != nil {
		return err
	}
	return d.waitBusy(ctx)
}

// initQuick is the reset and setup shared by the fast and the 4-gray mode, they only
// differ in data entry direction and temperature.
func (d *Display) initQuick(ctx context.Context, entry byte, xWindow []byte, temp byte) error {
	if err := d.hardReset(ctx, 100*time.Millisecond, 100*time.Millisecond); err != nil {
		return err
	}
	if err := d.waitBusy(ctx); err != nil {
		return err
	}
	if err := d.command(cmdSoftReset); err != nil {
		return err
	}
	if err := d.waitBusy(ctx); err != nil {
		return err
	}

	setup := [][]byte{
		boosterSoftStart,
		driverOutput(),
		{cmdDataEntryMode, entry},
	}
	w := window(0, 0, Width-1, Height-1)
	w[0] = xWindow
	if err := d.commands(append(setup, w...)...); err != nil {
		return err
	}
	if err := d.waitBusy(ctx); err != nil {
		return err
	}
	return d.commands(
		[]byte{cmdBorderWaveform, borderFollowLUT},
		[]byte{cmdTempSensor, internalTempSensor},
		[]byte{cmdWriteTemp, temp},
	)
}

func (d *Display) initFast(ctx context.Context) error {
	return d.initQuick(ctx, entryXIncYInc,
		[]byte{cmdRAMXWindow, 0x00, 0x00, lo(Width - 1), hi(Width - 1)},
		tempFast)
}

// WriteMono sends a 1-bit frame of Width x Height pixels and refreshes the panel.
//
// The panel must be initialized in full or fast mode. Set bits are black.
func (d *Display) WriteMono(ctx context.Context, p *pixel.Packed) error {
	var update byte
	switch d.mode {
	case ModeFull:
		update = updateFull
	case ModeFast:
		update = updateFast
	default:
		return fmt.Errorf("%w: %s mode takes no full 1-bit frame", ErrMode, d.mode)
	}
	if p.Format != pixel.OneBit {
		return fmt.Errorf("%w: got %s, want %s", ErrFrameFormat, p.Format, pixel.OneBit)
	}
	if p.Width != Width || p.Height != Height || len(p.Data) != MonoSize {
		return fmt.Errorf("%w: got %dx%d (%d bytes), want %dx%d (%d bytes)",
			ErrFrameSize, p.Width, p.Height, len(p.Data), Width, Height, MonoSize)
	}

	if err := d.command(cmdWriteRAM, invert(p.Data)...); err != nil {
		return err
	}
	if err := d.command(cmdWriteRAM2, fill(MonoSize, 0xff)...); err != nil {
		return err
	}
	return d.update(ctx, update)
}

// WritePart sends a 1-bit frame to the window with its top left corner at (x, y) and
// runs a partial refresh.
//
// The window starts at x rounded down to a multiple of 8 and spans the full stride of the
// frame. It must lie within the panel. The panel stays in partial mode afterwards and
// needs Init before the next full frame.
func (d *Display) WritePart(ctx context.Context, x, y int, p *pixel.Packed) error {
	if d.mode == ModeOff || d.mode == ModeGray {
		return fmt.Errorf("%w: %s mode takes no partial frame", ErrMode, d.mode)
	}
	if p.Format != pixel.OneBit {
		return fmt.Errorf("%w: got %s, want %s", ErrFrameFormat, p.Format, pixel.OneBit)
	}
	stride := pixel.Stride(p.Width)
	if p.Width <= 0 || p.Height <= 0 || len(p.Data) != stride*p.Height {
		return fmt.Errorf("%w: %dx%d frame with %d bytes", ErrFrameSize, p.Width, p.Height, len(p.Data))
	}

	x &^= 7
	r := image.Rect(x, y, x+stride*8, y+p.Height)
	if x < 0 || y < 0 || !r.In(image.Rect(0, 0, Width, Height)) {
		return fmt.Errorf("%w: window %s", ErrBounds, r)
	}

	if err := d.hardReset(ctx, 10*time.Millisecond, 10*time.Millisecond); err != nil {
		return err
	}
	if err := d.waitBusy(ctx); err != nil {
		return err
	}
	if err := d.command(cmdSoftReset); err != nil {
		return err
	}
	if err := d.waitBusy(ctx); err != nil {
		return err
	}
	if err := d.commands(append([][]byte{
		boosterSoftStart,
		driverOutput(),
		{cmdDataEntryMode, entryXIncYInc},
		{cmdTempSensor, internalTempSensor},
		{cmdBorderWaveform, borderPartial},
	}, window(r.Min.X, r.Min.Y, r.Max.X-1, r.Max.Y-1)...)...); err != nil {
		return err
	}
	if err := d.command(cmdWriteRAM, invert(p.Data)...); err != nil {
		return err
	}
	d.mode = ModePartial
	return d.update(ctx, updatePartial)
}

// invert translates set-is-black frame bits to the panel, where set bits are white.
func invert(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = ^b
	}
	return out
}
