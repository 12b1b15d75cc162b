// Package eink drives the 800x480 4-gray SPI E-ink panel the packed icon formats are made
// for.
//
// The panel takes 1-bit frames row-major, 800 pixels per row, and 4-gray frames
// column-major, 480 columns of 800 pixels, exactly as produced by the pixel package.
package eink

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/BeatGlow/eink/pixel"
)

var debug bool

func init() {
	debug = os.Getenv("EINK_DEBUG") != ""
}

// Errors
var (
	ErrBounds      = errors.New("eink: out of display bounds")
	ErrBusyTimeout = errors.New("eink: timeout waiting for the panel")
	ErrFrameFormat = errors.New("eink: frame format does not match the panel mode")
	ErrFrameSize   = errors.New("eink: frame size does not match the panel")
	ErrMode        = errors.New("eink: panel is not initialized for this operation")
)

// Panel geometry.
const (
	// Width is the number of source lines, the direction in which RAM bytes run.
	Width = 800

	// Height is the number of gate lines.
	Height = 480

	// MonoSize is the size in bytes of a 1-bit frame.
	MonoSize = Width * Height / 8

	// GraySize is the size in bytes of a 4-gray frame.
	GraySize = Width * Height / 4
)

// DefaultTimeout is the longest the panel may stay busy.
const DefaultTimeout = 10 * time.Second

// busyPoll is the busy pin polling interval.
const busyPoll = 10 * time.Millisecond

// delay waits for d or until ctx is done. Tests replace it.
var delay = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Mode is the update mode the panel is initialized for.
type Mode uint8

// Supported modes.
const (
	ModeOff     Mode = iota // Not initialized or in deep sleep
	ModeFull                // 1-bit, full refresh
	ModeFast                // 1-bit, fast refresh
	ModeGray                // 4-gray
	ModePartial             // 1-bit, partial window refresh
)

func (m Mode) String() string {
	switch m {
	case ModeFull:
		return "full"
	case ModeFast:
		return "fast"
	case ModeGray:
		return "4-gray"
	case ModePartial:
		return "partial"
	default:
		return "off"
	}
}

// Format is the frame format the mode takes.
func (m Mode) Format() pixel.Format {
	if m == ModeGray {
		return pixel.TwoBit
	}
	return pixel.OneBit
}

// FrameSize is the size of a full frame in the mode's format, as an image.
func (m Mode) FrameSize() image.Point {
	if m == ModeGray {
		// Columns of the 4-gray buffer run along the source lines.
		return image.Pt(Height, Width)
	}
	return image.Pt(Width, Height)
}

// Config is the display configuration.
type Config struct {
	// Timeout for busy waits, zero uses DefaultTimeout.
	Timeout time.Duration

	// Logger receives debug output when EINK_DEBUG is set, nil uses slog.Default().
	Logger *slog.Logger
}

// Display is an E-ink panel together with a frame buffer in the format of its mode.
//
// Drawing on the display only changes the buffer, Refresh pushes it to the panel.
type Display struct {
	pixel.Image
	c       Conn
	mode    Mode
	timeout time.Duration
	log     *slog.Logger
}

// New returns a display on c. Call Init before sending frames.
func New(c Conn, config *Config) *Display {
	if config == nil {
		config = new(Config)
	}
	d := &Display{
		Image:   pixel.NewMonoImage(Width, Height),
		c:       c,
		timeout: config.Timeout,
		log:     config.Logger,
	}
	if d.timeout <= 0 {
		d.timeout = DefaultTimeout
	}
	if d.log == nil {
		d.log = slog.Default()
	}
	return d
}

func (d *Display) String() string {
	return fmt.Sprintf("E-ink %dx%d (%s, %s)", Width, Height, d.mode, d.c)
}

// Mode is the current update mode.
func (d *Display) Mode() Mode {
	return d.mode
}

// Close puts the panel to sleep and closes the connection.
func (d *Display) Close() error {
	if d.mode != ModeOff {
		if err := d.Sleep(context.Background()); err != nil {
			_ = d.c.Close()
			return err
		}
	}
	return d.c.Close()
}

// Refresh pushes the frame buffer to the panel. In partial mode the whole buffer is sent
// as one window.
func (d *Display) Refresh(ctx context.Context) error {
	switch i := d.Image.(type) {
	case *pixel.MonoImage:
		p := &pixel.Packed{Format: pixel.OneBit, Width: Width, Height: Height, Data: i.Pix}
		if d.mode == ModePartial {
			return d.WritePart(ctx, 0, 0, p)
		}
		return d.WriteMono(ctx, p)
	case *pixel.Gray2ColumnImage:
		return d.WriteGray(ctx, &pixel.Packed{Format: pixel.TwoBit, Width: Height, Height: Width, Data: i.Pix})
	default:
		return ErrMode
	}
}

// Init resets the panel and initializes it for mode. The frame buffer is replaced when
// the mode takes a different format.
func (d *Display) Init(ctx context.Context, mode Mode) (err error) {
	switch mode {
	case ModeFull:
		err = d.initFull(ctx)
	case ModeFast:
		err = d.initFast(ctx)
	case ModeGray:
		err = d.initGray(ctx)
	default:
		return fmt.Errorf("eink: can not initialize %s mode", mode)
	}
	if err != nil {
		d.mode = ModeOff
		return err
	}

	size := mode.FrameSize()
	switch d.Image.(type) {
	case *pixel.Gray2ColumnImage:
		if mode.Format() != pixel.TwoBit {
			d.Image = pixel.NewMonoImage(size.X, size.Y)
		}
	default:
		if mode.Format() == pixel.TwoBit {
			d.Image = pixel.NewGray2ColumnImage(size.X, size.Y)
		}
	}
	d.mode = mode
	return nil
}

// Sleep puts the panel into deep sleep. It has to be initialized to be used again.
func (d *Display) Sleep(ctx context.Context) error {
	if err := d.command(cmdDeepSleep, 0x01); err != nil {
		return err
	}
	d.mode = ModeOff
	return delay(ctx, 100*time.Millisecond)
}

// ClearScreen turns the whole panel white.
func (d *Display) ClearScreen(ctx context.Context) error {
	var update byte
	switch d.mode {
	case ModeFull:
		update = updateFull
	case ModeFast, ModeGray:
		update = updateFast
	default:
		return ErrMode
	}
	white := fill(MonoSize, 0xff)
	if err := d.command(cmdWriteRAM, white...); err != nil {
		return err
	}
	if err := d.command(cmdWriteRAM2, white...); err != nil {
		return err
	}
	return d.update(ctx, update)
}

func (d *Display) command(cmd byte, data ...byte) error {
	if debug {
		d.log.Debug("eink command", "cmd", fmt.Sprintf("%#02x", cmd), "bytes", len(data))
	}
	return d.c.Command(cmd, data...)
}

func (d *Display) commands(commands ...[]byte) (err error) {
	for _, command := range commands {
		if err = d.command(command[0], command[1:]...); err != nil {
			return
		}
	}
	return
}

// hardReset pulses the reset pin low for hold and waits settle afterwards.
func (d *Display) hardReset(ctx context.Context, hold, settle time.Duration) (err error) {
	if err = d.c.Reset(gpio.Low); err != nil {
		return
	}
	if err = delay(ctx, hold); err != nil {
		return
	}
	if err = d.c.Reset(gpio.High); err != nil {
		return
	}
	return delay(ctx, settle)
}

// waitBusy polls the busy pin until the panel is idle and gives it time to settle.
func (d *Display) waitBusy(ctx context.Context) error {
	polls := int(d.timeout / busyPoll)
	for i := 0; d.c.Busy(); i++ {
		if i >= polls {
			return ErrBusyTimeout
		}
		if err := delay(ctx, busyPoll); err != nil {
			return err
		}
	}
	return delay(ctx, 200*time.Millisecond)
}

// update runs the display update sequence selected by mode and waits for it to finish.
func (d *Display) update(ctx context.Context, mode byte) error {
	if err := d.commands(
		[]byte{cmdDisplayUpdate2, mode},
		[]byte{cmdMasterActivation},
	); err != nil {
		return err
	}
	return d.waitBusy(ctx)
}

func fill(n int, v byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = v
	}
	return b
}
